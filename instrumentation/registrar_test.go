package instrumentation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/rhusar/jgroups-opentelemetry/stack"
	"github.com/rhusar/jgroups-opentelemetry/testutil"
)

func TestNewCatalog(t *testing.T) {
	t.Run("lookup and fallback", func(t *testing.T) {
		impl := &specialInstrumentation{}
		c, err := NewCatalog(impl, Generic{})
		require.NoError(t, err)

		got, ok := c.Lookup(typeSpecial)
		assert.True(t, ok)
		assert.Same(t, impl, got)

		_, ok = c.Lookup(typeDummy)
		assert.False(t, ok)
		_, ok = c.Lookup(stack.AnyProtocol)
		assert.False(t, ok, "the fallback is not a specific match")

		assert.Equal(t, Generic{}, c.Fallback())
		assert.Equal(t, []stack.TypeID{typeSpecial, stack.AnyProtocol}, c.Targets())
		assert.Equal(t, 2, c.Len())
	})

	t.Run("duplicate specific target", func(t *testing.T) {
		_, err := NewCatalog(&specialInstrumentation{}, &specialInstrumentation{})
		assert.ErrorIs(t, err, ErrDuplicateInstrumentation)
	})

	t.Run("duplicate fallback", func(t *testing.T) {
		_, err := NewCatalog(Generic{}, failingInstrumentation{target: stack.AnyProtocol})
		assert.ErrorIs(t, err, ErrDuplicateInstrumentation)
	})

	t.Run("nil instrumentation", func(t *testing.T) {
		_, err := NewCatalog(Generic{}, nil)
		assert.ErrorIs(t, err, ErrNilInstrumentation)
	})

	t.Run("empty target", func(t *testing.T) {
		_, err := NewCatalog(failingInstrumentation{})
		assert.ErrorIs(t, err, ErrUnknownProtocol)
	})

	t.Run("nil catalog", func(t *testing.T) {
		var c *Catalog
		_, ok := c.Lookup(typeDummy)
		assert.False(t, ok)
		assert.Nil(t, c.Fallback())
		assert.Zero(t, c.Len())
	})
}

func newRegistrar(t *testing.T, tc *testutil.MetricsTestContext, impls ...Instrumentation) *Registrar {
	t.Helper()
	c, err := NewCatalog(impls...)
	require.NoError(t, err)
	return NewRegistrar(c, WithLogger(tc.Logger))
}

func TestRegistrar_SpecificWinsOverFallback(t *testing.T) {
	tc := testutil.NewMetricsTestContext(t)
	impl := &specialInstrumentation{}
	r := newRegistrar(t, tc, impl, Generic{})

	p := &special{}
	p.sent.Add(2)
	sum := r.Register(context.Background(), tc.Provider, []stack.Protocol{p}, Options{Cluster: "c", Node: "n"})

	assert.Equal(t, Summary{Specific: 1}, sum)
	assert.Equal(t, 1, impl.calls)
	m := tc.Collect(t)
	assert.Equal(t, []string{"jgroups.pbcast.special.sent"}, m.Names(), "the declared schema is not scanned")
	assert.Equal(t, int64(2), m.Int64(t, "jgroups.pbcast.special.sent"))
}

func TestRegistrar_FallbackCoversUnmatchedProtocols(t *testing.T) {
	tc := testutil.NewMetricsTestContext(t)
	r := newRegistrar(t, tc, &specialInstrumentation{}, Generic{})

	protocols := []stack.Protocol{newDummy(5), silent{}, &special{}}
	sum := r.Register(context.Background(), tc.Provider, protocols, Options{ExposeConfiguration: true})

	assert.Equal(t, Summary{Specific: 1, Generic: 2}, sum)
	assert.Equal(t, 3, sum.Total())
	m := tc.Collect(t)
	assert.Equal(t, []string{
		"jgroups.pbcast.special.sent",
		"jgroups.dummy.interval.check",
		"jgroups.dummy.num.msgs.sent",
	}, m.Names())
}

func TestRegistrar_WithoutFallbackSkips(t *testing.T) {
	tc := testutil.NewMetricsTestContext(t)
	r := newRegistrar(t, tc, &specialInstrumentation{})

	sum := r.Register(context.Background(), tc.Provider, []stack.Protocol{newDummy(1), nil, &special{}}, Options{})

	assert.Equal(t, Summary{Specific: 1, Skipped: 2}, sum)
}

func TestRegistrar_SameTypeDifferentClusters(t *testing.T) {
	tc := testutil.NewMetricsTestContext(t)
	r := newRegistrar(t, tc, Generic{})

	r.Register(context.Background(), tc.Provider, []stack.Protocol{newDummy(1)}, Options{Cluster: "clusterA", Node: "a1"})
	r.Register(context.Background(), tc.Provider, []stack.Protocol{newDummy(2)}, Options{Cluster: "clusterB", Node: "b1"})

	m := tc.Collect(t)
	assert.Equal(t, []string{"jgroups.dummy.num.msgs.sent"}, m.Names())
	assert.Equal(t, 2, m.Points("jgroups.dummy.num.msgs.sent"))
	assert.Equal(t, int64(1), m.Int64(t, "jgroups.dummy.num.msgs.sent", AttributeCluster.String("clusterA")))
	assert.Equal(t, int64(2), m.Int64(t, "jgroups.dummy.num.msgs.sent", AttributeCluster.String("clusterB")))
}

func TestRegistrar_FailuresDoNotCrossProtocols(t *testing.T) {
	tc := testutil.NewMetricsTestContext(t)
	r := newRegistrar(t, tc,
		failingInstrumentation{target: typeSilent},
		failingInstrumentation{target: typeSpecial, panics: true},
		Generic{},
	)

	sum := r.Register(context.Background(), tc.Provider, []stack.Protocol{silent{}, &special{}, newDummy(3)}, Options{})

	assert.Equal(t, Summary{Specific: 2, Generic: 1, Failed: 2}, sum)
	assert.Equal(t, int64(3), tc.Collect(t).Int64(t, "jgroups.dummy.num.msgs.sent"))
	assert.Equal(t, 2, tc.Logs.FilterLevelExact(zapcore.WarnLevel).FilterMessage("metrics registration failed").Len())
}

func TestRegistrar_NilProviderIsNoop(t *testing.T) {
	tc := testutil.NewMetricsTestContext(t)
	impl := &specialInstrumentation{}
	r := newRegistrar(t, tc, impl, Generic{})

	sum := r.Register(context.Background(), nil, []stack.Protocol{&special{}}, Options{})

	assert.Equal(t, Summary{}, sum)
	assert.Zero(t, impl.calls)
}

func TestRegistrar_ScopeName(t *testing.T) {
	tc := testutil.NewMetricsTestContext(t)
	r := newRegistrar(t, tc, Generic{})

	r.Register(context.Background(), tc.Provider, []stack.Protocol{newDummy(1)}, Options{})
	r.Register(context.Background(), tc.Provider, []stack.Protocol{newDummy(1)}, Options{ScopeName: "custom"})

	assert.ElementsMatch(t, []string{DefaultScopeName, "custom"}, collectScopes(t, tc))
}

func collectScopes(t *testing.T, tc *testutil.MetricsTestContext) []string {
	t.Helper()
	var names []string
	for _, sm := range tc.ResourceMetrics(t).ScopeMetrics {
		names = append(names, sm.Scope.Name)
	}
	return names
}
