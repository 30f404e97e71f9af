package registry

import "github.com/rhusar/jgroups-opentelemetry/errcode"

const ModuleCode = 63

var (
	ErrNilComponent = errcode.Register(errcode.New(ModuleCode, 1,
		"registry", "error.registry.nil_component", "component must not be nil"))
	ErrDuplicateComponent = errcode.Register(errcode.New(ModuleCode, 2,
		"registry", "error.registry.duplicate_component", "component already registered"))
	ErrMissingDependency = errcode.Register(errcode.New(ModuleCode, 3,
		"registry", "error.registry.missing_dependency", "component dependency not registered"))
	ErrDependencyCycle = errcode.Register(errcode.New(ModuleCode, 4,
		"registry", "error.registry.dependency_cycle", "component dependency cycle detected"))
)
