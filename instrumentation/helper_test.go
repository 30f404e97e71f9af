package instrumentation

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/rhusar/jgroups-opentelemetry/observability"
	"github.com/rhusar/jgroups-opentelemetry/stack"
	"github.com/rhusar/jgroups-opentelemetry/testutil"
)

func TestPrefix(t *testing.T) {
	tests := []struct {
		id   stack.TypeID
		want string
	}{
		{stack.RootNamespace + "UNICAST3", "jgroups.unicast3."},
		{stack.RootNamespace + "pbcast.GMS", "jgroups.pbcast.gms."},
		{stack.RootNamespace + "JDBC_PING", "jgroups.jdbc_ping."},
		{stack.RootNamespace + "dns.DNS_PING", "jgroups.dns.dns_ping."},
		{"com.example.CUSTOM", "jgroups.com.example.custom."},
	}
	for _, tt := range tests {
		t.Run(tt.id.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Prefix(tt.id))
			assert.Equal(t, Prefix(tt.id), Prefix(tt.id))
		})
	}
}

func TestDeriveName(t *testing.T) {
	assert.Equal(t, "num.msgs.sent", DeriveName("num_msgs_sent"))
	assert.Equal(t, "xmit.table.size", DeriveName("xmit-table_size"))
	assert.Equal(t, "views", DeriveName("views"))
}

func TestUnitMappingIsStable(t *testing.T) {
	for range 3 {
		assert.Equal(t, "1", observability.Unity.UCUM())
		assert.Equal(t, "By", observability.Bytes.UCUM())
		assert.Equal(t, "ms", observability.Milliseconds.UCUM())
		assert.Equal(t, "ns", observability.Nanoseconds.UCUM())
		assert.Equal(t, "{messages}", observability.Messages.UCUM())
	}
}

func TestToInt64(t *testing.T) {
	var adder observability.Adder
	adder.Add(7)
	var i64 atomic.Int64
	i64.Store(-4)
	var i32 atomic.Int32
	i32.Store(5)
	var u64 atomic.Uint64
	u64.Store(6)
	var u32 atomic.Uint32
	u32.Store(8)
	var flag atomic.Bool
	flag.Store(true)

	tests := []struct {
		name    string
		in      any
		want    int64
		wantErr bool
	}{
		{"adder", &adder, 7, false},
		{"atomic int64", &i64, -4, false},
		{"atomic int32", &i32, 5, false},
		{"atomic uint64", &u64, 6, false},
		{"atomic uint32", &u32, 8, false},
		{"atomic bool", &flag, 1, false},
		{"bool false", false, 0, false},
		{"int", 42, 42, false},
		{"uint8", uint8(3), 3, false},
		{"float truncated", 3.9, 3, false},
		{"float32 truncated", float32(-2.5), -2, false},
		{"duration", 2 * time.Millisecond, 2_000_000, false},
		{"nil", nil, 0, true},
		{"error", errUnavailable, 0, true},
		{"string", "12", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := toInt64(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func newTestContext(tc *testutil.MetricsTestContext, p stack.Protocol) *Context {
	ctx := NewContext(p, tc.Provider.Meter("test"), Attributes("c1", "n1"))
	ctx.Logger = tc.Logger
	return ctx
}

func TestHelper_InstrumentKinds(t *testing.T) {
	tc := testutil.NewMetricsTestContext(t)
	h := newTestContext(tc, newDummy(0)).Helper()

	h.RegisterCounter("sent", "sent", observability.Messages, func() int64 { return 3 })
	h.RegisterUpDownCounter("queue", "queue", observability.Unity, func() int64 { return -1 })
	h.RegisterGauge("conns", "conns", observability.Connections, func() int64 { return 9 })
	h.RegisterBoolGauge("running", "running", observability.Dimensionless, func() bool { return true })
	h.RegisterDoubleGauge("avg", "avg", observability.Milliseconds, func() float64 { return 1.5 })
	h.RegisterDoubleGauge("nan", "nan", observability.Unity, func() float64 { return math.NaN() })
	require.NoError(t, h.Err())
	assert.Equal(t, 6, h.Registered())

	m := tc.Collect(t)
	assert.True(t, m.IsMonotonicSum("jgroups.dummy.sent"))
	assert.False(t, m.IsMonotonicSum("jgroups.dummy.queue"))
	assert.True(t, m.IsGauge("jgroups.dummy.conns"))
	assert.Equal(t, int64(3), m.Int64(t, "jgroups.dummy.sent", AttributeCluster.String("c1"), AttributeNode.String("n1")))
	assert.Equal(t, int64(-1), m.Int64(t, "jgroups.dummy.queue"))
	assert.Equal(t, int64(9), m.Int64(t, "jgroups.dummy.conns"))
	assert.Equal(t, int64(1), m.Int64(t, "jgroups.dummy.running"))
	assert.InDelta(t, 1.5, m.Float64(t, "jgroups.dummy.avg"), 1e-9)
	assert.Zero(t, m.Float64(t, "jgroups.dummy.nan"))

	sent := m.MustGet(t, "jgroups.dummy.sent")
	assert.Equal(t, "{messages}", sent.Unit)
	assert.Equal(t, "sent", sent.Description)
}

func TestHelper_CountersAsGauges(t *testing.T) {
	tc := testutil.NewMetricsTestContext(t)
	ctx := newTestContext(tc, newDummy(0))
	ctx.CountersAsGauges = true
	h := ctx.Helper()

	h.RegisterCounter("sent", "sent", observability.Messages, func() int64 { return 3 })
	h.RegisterUpDownCounter("queue", "queue", observability.Unity, func() int64 { return 2 })

	m := tc.Collect(t)
	assert.True(t, m.IsGauge("jgroups.dummy.sent"))
	assert.True(t, m.IsGauge("jgroups.dummy.queue"))
	assert.Equal(t, int64(3), m.Int64(t, "jgroups.dummy.sent"))
}

func TestHelper_PanickingReadYieldsZero(t *testing.T) {
	tc := testutil.NewMetricsTestContext(t)
	h := newTestContext(tc, newDummy(0)).Helper()

	h.RegisterGauge("broken", "broken", observability.Unity, func() int64 { panic("destroyed") })
	h.RegisterDoubleGauge("broken.avg", "broken", observability.Unity, func() float64 { panic("destroyed") })
	h.RegisterGauge("fine", "fine", observability.Unity, func() int64 { return 1 })

	m := tc.Collect(t)
	assert.Zero(t, m.Int64(t, "jgroups.dummy.broken"))
	assert.Zero(t, m.Float64(t, "jgroups.dummy.broken.avg"))
	assert.Equal(t, int64(1), m.Int64(t, "jgroups.dummy.fine"))
	assert.Equal(t, 2, tc.Logs.FilterMessage("metric read failed").FilterLevelExact(zapcore.DebugLevel).Len())
}

func TestHelper_Histogram(t *testing.T) {
	tc := testutil.NewMetricsTestContext(t)
	h := newTestContext(tc, newDummy(0)).Helper()

	hist := h.RegisterHistogram("size", "size", observability.Bytes)
	hist.Record(context.Background(), 100)
	hist.Record(context.Background(), 300)

	dp := tc.Collect(t).Histogram(t, "jgroups.dummy.size", AttributeNode.String("n1"))
	assert.Equal(t, uint64(2), dp.Count)
	assert.Equal(t, int64(400), dp.Sum)

	var nilHist *Histogram
	assert.NotPanics(t, func() { nilHist.Record(context.Background(), 1) })
}

func TestHelper_InvalidNameIsIsolated(t *testing.T) {
	tc := testutil.NewMetricsTestContext(t)
	h := newTestContext(tc, newDummy(0)).Helper()

	h.RegisterGauge("bad name", "invalid", observability.Unity, func() int64 { return 1 })
	h.RegisterGauge("good", "valid", observability.Unity, func() int64 { return 2 })

	err := h.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRegistration)
	assert.Equal(t, 1, h.Registered())
	assert.Equal(t, 1, tc.Logs.FilterMessage("failed to register metric").Len())
	assert.Equal(t, int64(2), tc.Collect(t).Int64(t, "jgroups.dummy.good"))
}
