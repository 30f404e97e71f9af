// Package component defines the lifecycle shared by the pluggable parts of
// the bridge. It imports nothing from the rest of the module.
package component

import "context"

// Component has the lifecycle Init, Start, Stop.
type Component interface {
	// Name is unique per application and used in DependsOn.
	Name() string

	// DependsOn lists the components that must be initialized first.
	// A name prefixed with "optional:" is skipped when not registered.
	DependsOn() []string

	// Init reads configuration and creates resources without starting anything.
	Init(ctx context.Context, loader ConfigLoader) error

	Start(ctx context.Context) error

	// Stop releases resources. It may be called more than once.
	Stop(ctx context.Context) error
}
