package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/rhusar/jgroups-opentelemetry/logger"
)

// CircuitState is the state of a CircuitBreaker.
type CircuitState int32

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig guards the metric exporter. While open, exports go
// to the fallback exporter.
type CircuitBreakerConfig struct {
	Enabled              bool          `mapstructure:"enabled" json:"enabled"`
	FailureThreshold     int           `mapstructure:"failure_threshold" json:"failure_threshold"`           // consecutive failures that open the circuit
	SuccessThreshold     int           `mapstructure:"success_threshold" json:"success_threshold"`           // half-open successes that close it again
	Timeout              time.Duration `mapstructure:"timeout" json:"timeout"`                               // time spent open before a recovery attempt
	HalfOpenMaxRequests  int           `mapstructure:"half_open_max_requests" json:"half_open_max_requests"` // concurrent exports let through while half-open
	FallbackExporterType string        `mapstructure:"fallback_exporter_type" json:"fallback_exporter_type"` // stdout or noop
}

func (c CircuitBreakerConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(&c,
		validation.Field(&c.FailureThreshold, validation.Required, validation.Min(1)),
		validation.Field(&c.SuccessThreshold, validation.Required, validation.Min(1)),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.HalfOpenMaxRequests, validation.Required, validation.Min(1)),
		validation.Field(&c.FallbackExporterType, validation.Required,
			validation.In(ExporterStdout, ExporterNoop).
				Error(fmt.Sprintf("unsupported fallback exporter type %q (supported: stdout, noop)", c.FallbackExporterType))),
	)
}

// CircuitBreaker is an sdkmetric.Exporter that stops calling a failing
// primary exporter for a while and exports to a fallback meanwhile.
// Temporality and aggregation always come from the primary.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	logger *logger.CtxZapLogger
	now    func() time.Time

	state            atomic.Int32
	failureCount     atomic.Int32
	successCount     atomic.Int32
	halfOpenRequests atomic.Int32

	mu              sync.RWMutex
	lastStateChange time.Time

	primary  sdkmetric.Exporter
	fallback sdkmetric.Exporter
}

var _ sdkmetric.Exporter = (*CircuitBreaker)(nil)

func NewCircuitBreaker(config CircuitBreakerConfig, log *logger.CtxZapLogger, primary, fallback sdkmetric.Exporter) *CircuitBreaker {
	if log == nil {
		log = logger.Nop()
	}
	cb := &CircuitBreaker{
		config:   config,
		logger:   log,
		now:      time.Now,
		primary:  primary,
		fallback: fallback,
	}
	cb.lastStateChange = cb.now()
	cb.state.Store(int32(StateClosed))
	return cb
}

func (cb *CircuitBreaker) Temporality(k sdkmetric.InstrumentKind) metricdata.Temporality {
	return cb.primary.Temporality(k)
}

func (cb *CircuitBreaker) Aggregation(k sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return cb.primary.Aggregation(k)
}

// Export sends rm to the primary exporter, or to the fallback while the circuit is open.
func (cb *CircuitBreaker) Export(ctx context.Context, rm *metricdata.ResourceMetrics) error {
	if !cb.config.Enabled {
		return cb.primary.Export(ctx, rm)
	}

	switch cb.State() {
	case StateOpen:
		if !cb.shouldAttemptReset() {
			return cb.fallback.Export(ctx, rm)
		}
		cb.toHalfOpen()
		return cb.tryPrimary(ctx, rm)
	case StateHalfOpen:
		return cb.tryPrimary(ctx, rm)
	default:
		if err := cb.primary.Export(ctx, rm); err != nil {
			cb.onFailure()
			return err
		}
		cb.onSuccess()
		return nil
	}
}

// tryPrimary lets at most HalfOpenMaxRequests half-open exports reach the
// primary at a time. The others go to the fallback.
func (cb *CircuitBreaker) tryPrimary(ctx context.Context, rm *metricdata.ResourceMetrics) error {
	if !cb.canAttemptRequest() {
		return cb.fallback.Export(ctx, rm)
	}
	err := cb.primary.Export(ctx, rm)
	cb.releaseRequest()
	if err != nil {
		cb.onFailure()
		return cb.fallback.Export(ctx, rm)
	}
	cb.onSuccess()
	return nil
}

func (cb *CircuitBreaker) ForceFlush(ctx context.Context) error {
	return errors.Join(cb.primary.ForceFlush(ctx), cb.fallback.ForceFlush(ctx))
}

func (cb *CircuitBreaker) Shutdown(ctx context.Context) error {
	return errors.Join(cb.primary.Shutdown(ctx), cb.fallback.Shutdown(ctx))
}

func (cb *CircuitBreaker) onSuccess() {
	cb.failureCount.Store(0)
	if cb.State() == StateHalfOpen && int(cb.successCount.Add(1)) >= cb.config.SuccessThreshold {
		cb.toClosed()
	}
}

func (cb *CircuitBreaker) onFailure() {
	failures := cb.failureCount.Add(1)
	switch cb.State() {
	case StateHalfOpen:
		cb.toOpen()
	case StateClosed:
		if int(failures) >= cb.config.FailureThreshold {
			cb.toOpen()
		}
	}
}

func (cb *CircuitBreaker) toClosed() {
	if from, ok := cb.transition(StateClosed); ok {
		cb.failureCount.Store(0)
		cb.logger.Info("metric exporter circuit closed",
			zap.String("from", from.String()))
	}
}

func (cb *CircuitBreaker) toOpen() {
	if from, ok := cb.transition(StateOpen); ok {
		cb.logger.Warn("metric exporter circuit opened",
			zap.String("from", from.String()),
			zap.Int32("failure_count", cb.failureCount.Load()),
			zap.String("fallback_exporter", cb.config.FallbackExporterType))
	}
}

func (cb *CircuitBreaker) toHalfOpen() {
	if from, ok := cb.transition(StateHalfOpen); ok {
		cb.failureCount.Store(0)
		cb.logger.Info("metric exporter circuit half-open",
			zap.String("from", from.String()))
	}
}

func (cb *CircuitBreaker) transition(to CircuitState) (CircuitState, bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	from := CircuitState(cb.state.Load())
	if from == to {
		return from, false
	}
	cb.state.Store(int32(to))
	cb.successCount.Store(0)
	cb.halfOpenRequests.Store(0)
	cb.lastStateChange = cb.now()
	return from, true
}

func (cb *CircuitBreaker) shouldAttemptReset() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.now().Sub(cb.lastStateChange) >= cb.config.Timeout
}

func (cb *CircuitBreaker) canAttemptRequest() bool {
	if int(cb.halfOpenRequests.Add(1)) > cb.config.HalfOpenMaxRequests {
		cb.halfOpenRequests.Add(-1)
		return false
	}
	return true
}

// releaseRequest frees a half-open slot. A transition resets the slots,
// so the count never goes below zero.
func (cb *CircuitBreaker) releaseRequest() {
	for {
		n := cb.halfOpenRequests.Load()
		if n <= 0 || cb.halfOpenRequests.CompareAndSwap(n, n-1) {
			return
		}
	}
}

func (cb *CircuitBreaker) State() CircuitState {
	return CircuitState(cb.state.Load())
}

// Stats returns a snapshot for diagnostics.
func (cb *CircuitBreaker) Stats() map[string]any {
	cb.mu.RLock()
	last := cb.lastStateChange
	cb.mu.RUnlock()
	return map[string]any{
		"state":              cb.State().String(),
		"failure_count":      cb.failureCount.Load(),
		"success_count":      cb.successCount.Load(),
		"half_open_requests": cb.halfOpenRequests.Load(),
		"last_state_change":  last.Format(time.RFC3339),
		"failure_threshold":  cb.config.FailureThreshold,
		"success_threshold":  cb.config.SuccessThreshold,
		"timeout":            cb.config.Timeout.String(),
		"fallback_exporter":  cb.config.FallbackExporterType,
	}
}
