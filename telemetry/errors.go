package telemetry

import "github.com/rhusar/jgroups-opentelemetry/errcode"

const ModuleCode = 61

var (
	ErrInvalidConfig = errcode.Register(errcode.New(ModuleCode, 1,
		"telemetry", "error.telemetry.invalid_config", "invalid opentelemetry configuration"))
	ErrExporter = errcode.Register(errcode.New(ModuleCode, 2,
		"telemetry", "error.telemetry.exporter", "failed to create metric exporter"))
	ErrResource = errcode.Register(errcode.New(ModuleCode, 3,
		"telemetry", "error.telemetry.resource", "failed to create resource"))
	// ErrNotAttached is returned by Start when the bridge was never attached to a stack.
	ErrNotAttached = errcode.Register(errcode.New(ModuleCode, 4,
		"telemetry", "error.telemetry.not_attached", "bridge is not attached to a stack"))
)
