// Package registry runs the lifecycle of components in dependency order.
//
// Components are grouped in layers: a layer only depends on earlier ones.
// Init and Start run layer by layer, the components of one layer
// concurrently. Stop runs the layers in reverse.
package registry

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rhusar/jgroups-opentelemetry/component"
	"github.com/rhusar/jgroups-opentelemetry/logger"
)

// optionalPrefix marks a dependency that may be absent, e.g. "optional:opentelemetry".
const optionalPrefix = "optional:"

type Registry struct {
	mu         sync.RWMutex
	components map[string]component.Component
	logger     *logger.CtxZapLogger
}

func NewRegistry(log *logger.CtxZapLogger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		components: make(map[string]component.Component),
		logger:     log,
	}
}

func (r *Registry) Register(comp component.Component) error {
	if comp == nil {
		return ErrNilComponent
	}
	name := comp.Name()
	if name == "" {
		return ErrNilComponent.WithMsgf("component name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.components[name]; exists {
		return ErrDuplicateComponent.WithMsgf("component %q already registered", name)
	}
	r.components[name] = comp
	return nil
}

// MustRegister registers comp and panics on failure.
func (r *Registry) MustRegister(comp component.Component) {
	if err := r.Register(comp); err != nil {
		panic(fmt.Sprintf("register component: %v", err))
	}
}

func (r *Registry) Get(name string) (component.Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	comp, ok := r.components[name]
	return comp, ok
}

// GetTyped returns the component registered under name if it is a T.
func GetTyped[T component.Component](r *Registry, name string) (T, bool) {
	var zero T
	comp, ok := r.Get(name)
	if !ok {
		return zero, false
	}
	typed, ok := comp.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Resolve returns the components in dependency order.
func (r *Registry) Resolve() ([]component.Component, error) {
	layers, err := r.resolveLayers()
	if err != nil {
		return nil, err
	}
	var order []component.Component
	for _, layer := range layers {
		order = append(order, layer...)
	}
	return order, nil
}

// Init initializes every component with loader.
func (r *Registry) Init(ctx context.Context, loader component.ConfigLoader) error {
	return r.run(ctx, "init", func(ctx context.Context, c component.Component) error {
		return c.Init(ctx, loader)
	})
}

func (r *Registry) Start(ctx context.Context) error {
	return r.run(ctx, "start", func(ctx context.Context, c component.Component) error {
		return c.Start(ctx)
	})
}

// Stop stops every component, dependents first. Errors are logged and
// the remaining components are still stopped.
func (r *Registry) Stop(ctx context.Context) error {
	layers, err := r.resolveLayers()
	if err != nil {
		return err
	}
	for i := len(layers) - 1; i >= 0; i-- {
		var wg sync.WaitGroup
		for _, comp := range layers[i] {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := comp.Stop(ctx); err != nil {
					r.logger.WarnCtx(ctx, "component stop failed",
						zap.String("component", comp.Name()), zap.Error(err))
				}
			}()
		}
		wg.Wait()
	}
	r.logger.DebugCtx(ctx, "all components stopped")
	return nil
}

func (r *Registry) run(ctx context.Context, phase string, fn func(context.Context, component.Component) error) error {
	layers, err := r.resolveLayers()
	if err != nil {
		r.logger.ErrorCtx(ctx, "failed to resolve component dependencies", zap.Error(err))
		return err
	}

	for i, layer := range layers {
		r.logger.DebugCtx(ctx, "running component layer",
			zap.String("phase", phase), zap.Int("layer", i), zap.Int("count", len(layer)))

		g, gctx := errgroup.WithContext(ctx)
		for _, comp := range layer {
			g.Go(func() error {
				if err := fn(gctx, comp); err != nil {
					return fmt.Errorf("component %q %s failed: %w", comp.Name(), phase, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			r.logger.ErrorCtx(ctx, "component lifecycle failed", zap.String("phase", phase), zap.Error(err))
			return err
		}
	}
	r.logger.DebugCtx(ctx, "all components done", zap.String("phase", phase))
	return nil
}

// resolveLayers groups the components by dependency depth. Each layer is
// sorted by name.
func (r *Registry) resolveLayers() ([][]component.Component, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inDegree := make(map[string]int, len(r.components))
	dependents := make(map[string][]string, len(r.components))
	for name := range r.components {
		inDegree[name] = 0
	}

	for name, comp := range r.components {
		for _, dep := range comp.DependsOn() {
			depName, optional := strings.CutPrefix(dep, optionalPrefix)
			if _, ok := r.components[depName]; !ok {
				if optional {
					continue
				}
				return nil, ErrMissingDependency.WithMsgf("component %q depends on %q, which is not registered", name, depName)
			}
			dependents[depName] = append(dependents[depName], name)
			inDegree[name]++
		}
	}

	var layers [][]component.Component
	done := 0
	for done < len(r.components) {
		var names []string
		for name, degree := range inDegree {
			if degree == 0 {
				names = append(names, name)
			}
		}
		if len(names) == 0 {
			return nil, ErrDependencyCycle
		}
		slices.Sort(names)

		layer := make([]component.Component, 0, len(names))
		for _, name := range names {
			delete(inDegree, name)
			layer = append(layer, r.components[name])
			for _, next := range dependents[name] {
				inDegree[next]--
			}
		}
		layers = append(layers, layer)
		done += len(names)
	}
	return layers, nil
}
