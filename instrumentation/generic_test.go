package instrumentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/rhusar/jgroups-opentelemetry/testutil"
)

func TestGeneric_ScopeGating(t *testing.T) {
	t.Run("configuration hidden", func(t *testing.T) {
		tc := testutil.NewMetricsTestContext(t)
		ctx := newTestContext(tc, newDummy(4))

		require.NoError(t, Generic{}.RegisterMetrics(ctx))

		m := tc.Collect(t)
		assert.Equal(t, []string{"jgroups.dummy.num.msgs.sent"}, m.Names())
		assert.Equal(t, int64(4), m.Int64(t, "jgroups.dummy.num.msgs.sent"))
		assert.True(t, m.IsMonotonicSum("jgroups.dummy.num.msgs.sent"))
	})

	t.Run("configuration exposed", func(t *testing.T) {
		tc := testutil.NewMetricsTestContext(t)
		ctx := newTestContext(tc, newDummy(4))
		ctx.ExposeConfiguration = true

		require.NoError(t, Generic{}.RegisterMetrics(ctx))

		m := tc.Collect(t)
		assert.Equal(t, []string{"jgroups.dummy.interval.check", "jgroups.dummy.num.msgs.sent"}, m.Names())
		assert.Equal(t, int64(1500), m.Int64(t, "jgroups.dummy.interval.check"))
		assert.Equal(t, "ms", m.MustGet(t, "jgroups.dummy.interval.check").Unit)
	})

	t.Run("flag read once at registration", func(t *testing.T) {
		tc := testutil.NewMetricsTestContext(t)
		ctx := newTestContext(tc, newDummy(1))

		require.NoError(t, Generic{}.RegisterMetrics(ctx))
		ctx.ExposeConfiguration = true

		assert.Len(t, tc.Collect(t), 1)
	})
}

func TestGeneric_ReadsAreLive(t *testing.T) {
	tc := testutil.NewMetricsTestContext(t)
	p := newDummy(1)
	require.NoError(t, Generic{}.RegisterMetrics(newTestContext(tc, p)))

	assert.Equal(t, int64(1), tc.Collect(t).Int64(t, "jgroups.dummy.num.msgs.sent"))
	p.sent.Add(10)
	assert.Equal(t, int64(11), tc.Collect(t).Int64(t, "jgroups.dummy.num.msgs.sent"))
}

func TestGeneric_FailingReadsAreIsolated(t *testing.T) {
	tc := testutil.NewMetricsTestContext(t)
	f := &faulty{}
	f.healthy.Store(12)

	require.NoError(t, Generic{}.RegisterMetrics(newTestContext(tc, f)))

	m := tc.Collect(t)
	assert.Zero(t, m.Int64(t, "jgroups.dummy.unavailable"))
	assert.Zero(t, m.Int64(t, "jgroups.dummy.exploding"))
	assert.Zero(t, m.Int64(t, "jgroups.dummy.wrong.shape"))
	assert.Equal(t, int64(12), m.Int64(t, "jgroups.dummy.healthy"))
	assert.Equal(t, 3, tc.Logs.FilterMessage("metric read failed").FilterLevelExact(zapcore.DebugLevel).Len())
}

func TestGeneric_HistogramSkippedWithWarning(t *testing.T) {
	tc := testutil.NewMetricsTestContext(t)

	require.NoError(t, Generic{}.RegisterMetrics(newTestContext(tc, &faulty{})))

	m := tc.Collect(t)
	_, ok := m.Get("jgroups.dummy.latency")
	assert.False(t, ok)
	warnings := tc.Logs.FilterLevelExact(zapcore.WarnLevel).FilterMessage("histogram declarations are not supported, skipping")
	assert.Equal(t, 1, warnings.Len())
}

func TestGeneric_ProtocolWithoutDeclarations(t *testing.T) {
	tc := testutil.NewMetricsTestContext(t)

	require.NoError(t, Generic{}.RegisterMetrics(newTestContext(tc, silent{})))
	assert.Empty(t, tc.Collect(t))
}
