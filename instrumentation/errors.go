package instrumentation

import "github.com/rhusar/jgroups-opentelemetry/errcode"

// ModuleCode is the errcode module of the instrumentation core.
const ModuleCode = 60

var (
	// ErrDuplicateInstrumentation is returned by NewCatalog when two
	// instrumentations target the same protocol type, fallback included.
	ErrDuplicateInstrumentation = errcode.Register(errcode.New(ModuleCode, 1,
		"instrumentation", "error.instrumentation.duplicate", "duplicate instrumentation target"))
	ErrNilInstrumentation = errcode.Register(errcode.New(ModuleCode, 2,
		"instrumentation", "error.instrumentation.nil", "instrumentation is nil"))
	ErrUnknownProtocol = errcode.Register(errcode.New(ModuleCode, 3,
		"instrumentation", "error.instrumentation.unknown_protocol", "protocol has no type identity"))
	// ErrRegistration wraps the meter errors of one protocol's registrations.
	ErrRegistration = errcode.Register(errcode.New(ModuleCode, 4,
		"instrumentation", "error.instrumentation.registration", "metric registration failed"))
)
