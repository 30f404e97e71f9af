package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhusar/jgroups-opentelemetry/component"
	"github.com/rhusar/jgroups-opentelemetry/logger"
)

// recorder collects lifecycle calls across components.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) index(call string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.calls {
		if c == call {
			return i
		}
	}
	return -1
}

type mockComponent struct {
	name    string
	deps    []string
	rec     *recorder
	initErr error
	stopErr error
}

func (m *mockComponent) Name() string        { return m.name }
func (m *mockComponent) DependsOn() []string { return m.deps }

func (m *mockComponent) Init(context.Context, component.ConfigLoader) error {
	m.rec.add("init:" + m.name)
	return m.initErr
}

func (m *mockComponent) Start(context.Context) error {
	m.rec.add("start:" + m.name)
	return nil
}

func (m *mockComponent) Stop(context.Context) error {
	m.rec.add("stop:" + m.name)
	return m.stopErr
}

func newMock(rec *recorder, name string, deps ...string) *mockComponent {
	return &mockComponent{name: name, deps: deps, rec: rec}
}

func TestRegistry_Lifecycle(t *testing.T) {
	rec := &recorder{}
	r := NewRegistry(logger.Nop())
	r.MustRegister(newMock(rec, "opentelemetry", "config", "logger"))
	r.MustRegister(newMock(rec, "logger", "config"))
	r.MustRegister(newMock(rec, "config"))
	ctx := context.Background()

	require.NoError(t, r.Init(ctx, nil))
	require.NoError(t, r.Start(ctx))
	require.NoError(t, r.Stop(ctx))

	assert.Less(t, rec.index("init:config"), rec.index("init:logger"))
	assert.Less(t, rec.index("init:logger"), rec.index("init:opentelemetry"))
	assert.Less(t, rec.index("start:logger"), rec.index("start:opentelemetry"))
	assert.Less(t, rec.index("stop:opentelemetry"), rec.index("stop:logger"))
	assert.Less(t, rec.index("stop:logger"), rec.index("stop:config"))
}

func TestRegistry_Resolve(t *testing.T) {
	rec := &recorder{}
	r := NewRegistry(nil)
	r.MustRegister(newMock(rec, "b", "a"))
	r.MustRegister(newMock(rec, "c", "a"))
	r.MustRegister(newMock(rec, "a", "optional:missing"))

	order, err := r.Resolve()
	require.NoError(t, err)
	var names []string
	for _, c := range order {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestRegistry_Errors(t *testing.T) {
	rec := &recorder{}

	t.Run("duplicate", func(t *testing.T) {
		r := NewRegistry(nil)
		require.NoError(t, r.Register(newMock(rec, "a")))
		assert.ErrorIs(t, r.Register(newMock(rec, "a")), ErrDuplicateComponent)
	})

	t.Run("nil", func(t *testing.T) {
		assert.ErrorIs(t, NewRegistry(nil).Register(nil), ErrNilComponent)
	})

	t.Run("missing dependency", func(t *testing.T) {
		r := NewRegistry(nil)
		r.MustRegister(newMock(rec, "a", "config"))
		_, err := r.Resolve()
		assert.ErrorIs(t, err, ErrMissingDependency)
	})

	t.Run("cycle", func(t *testing.T) {
		r := NewRegistry(nil)
		r.MustRegister(newMock(rec, "a", "b"))
		r.MustRegister(newMock(rec, "b", "a"))
		_, err := r.Resolve()
		assert.ErrorIs(t, err, ErrDependencyCycle)
	})

	t.Run("init failure stops later layers", func(t *testing.T) {
		rec := &recorder{}
		boom := errors.New("boom")
		r := NewRegistry(nil)
		failing := newMock(rec, "config")
		failing.initErr = boom
		r.MustRegister(failing)
		r.MustRegister(newMock(rec, "logger", "config"))

		err := r.Init(context.Background(), nil)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, -1, rec.index("init:logger"))
	})

	t.Run("stop continues past failures", func(t *testing.T) {
		rec := &recorder{}
		r := NewRegistry(nil)
		r.MustRegister(newMock(rec, "config"))
		failing := newMock(rec, "logger", "config")
		failing.stopErr = errors.New("boom")
		r.MustRegister(failing)

		require.NoError(t, r.Stop(context.Background()))
		assert.NotEqual(t, -1, rec.index("stop:config"))
	})
}

func TestGetTyped(t *testing.T) {
	rec := &recorder{}
	r := NewRegistry(nil)
	r.MustRegister(newMock(rec, "a"))

	m, ok := GetTyped[*mockComponent](r, "a")
	require.True(t, ok)
	assert.Equal(t, "a", m.Name())

	_, ok = GetTyped[*mockComponent](r, "b")
	assert.False(t, ok)
}
