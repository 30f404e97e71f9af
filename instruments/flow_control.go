package instruments

import (
	"time"

	"github.com/rhusar/jgroups-opentelemetry/instrumentation"
	"github.com/rhusar/jgroups-opentelemetry/observability"
	"github.com/rhusar/jgroups-opentelemetry/protocols"
	"github.com/rhusar/jgroups-opentelemetry/stack"
)

type flowControlProtocol interface {
	stack.Protocol
	Flow() *protocols.FlowControl
}

// FlowControlInstrumentation registers the credit based flow control metrics of UFC and MFC.
type FlowControlInstrumentation struct {
	target stack.TypeID

	// AverageTimeBlocked registers blocked.avg. Nil reports it in milliseconds.
	AverageTimeBlocked func(h *instrumentation.Helper, f *protocols.FlowControl)
}

func NewFlowControl(target stack.TypeID) FlowControlInstrumentation {
	return FlowControlInstrumentation{target: target}
}

// NewMFC reports blocked.avg in nanoseconds, MFC's native unit.
func NewMFC() FlowControlInstrumentation {
	return FlowControlInstrumentation{
		target: protocols.TypeMFC,
		AverageTimeBlocked: func(h *instrumentation.Helper, f *protocols.FlowControl) {
			h.RegisterDoubleGauge("blocked.avg",
				"Average time in nanoseconds that senders were blocked waiting for credits",
				observability.Nanoseconds, func() float64 { return f.AverageTimeBlocked(time.Nanosecond) })
		},
	}
}

func (fc FlowControlInstrumentation) Target() stack.TypeID { return fc.target }

func (fc FlowControlInstrumentation) RegisterMetrics(ctx *instrumentation.Context) error {
	p, err := protocolAs[flowControlProtocol](ctx)
	if err != nil {
		return err
	}
	f := p.Flow()
	h := ctx.Helper()

	h.RegisterCounter("credit.requests.received", "Number of credit requests received from senders",
		observability.Unity, f.CreditRequestsReceived)
	h.RegisterCounter("credit.requests.sent", "Number of credit requests sent to receivers",
		observability.Unity, f.CreditRequestsSent)
	h.RegisterCounter("credit.responses.received", "Number of credit responses (replenishments) received from receivers",
		observability.Unity, f.CreditResponsesReceived)
	h.RegisterCounter("credit.responses.sent", "Number of credit responses (replenishments) sent to senders",
		observability.Unity, f.CreditResponsesSent)
	h.RegisterGauge("blocked", "Number of times flow control blocked a sender waiting for credits",
		observability.Unity, f.NumberOfBlockings)

	if fc.AverageTimeBlocked != nil {
		fc.AverageTimeBlocked(h, f)
	} else {
		registerAverageTimeBlocked(h, f)
	}

	if ctx.ExposeConfiguration {
		h.RegisterGauge("credits.max", "Maximum number of bytes to send per receiver before credits must be replenished",
			observability.Bytes, func() int64 { return f.MaxCredits })
		h.RegisterGauge("credits.min", "Threshold at which a receiver sends more credits to a sender",
			observability.Bytes, func() int64 { return f.MinCredits })
		h.RegisterDoubleGauge("credits.threshold.min", "Threshold (as percentage of max_credits) at which a receiver sends more credits",
			observability.Unity, func() float64 { return f.MinThreshold })
		h.RegisterGauge("blocked.max", "Maximum time in milliseconds to block waiting for credits before sending a replenishment request",
			observability.Milliseconds, func() int64 { return f.MaxBlockTime.Milliseconds() })
	}
	return h.Err()
}

func registerAverageTimeBlocked(h *instrumentation.Helper, f *protocols.FlowControl) {
	h.RegisterDoubleGauge("blocked.avg",
		"Average time in milliseconds that senders were blocked waiting for credits",
		observability.Milliseconds, func() float64 { return f.AverageTimeBlocked(time.Millisecond) })
}
