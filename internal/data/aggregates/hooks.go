package aggregates

import (
	"strings"
	"time"

	"github.com/yungbote/gonasi-backend/internal/observability"
)

// Hooks receives aggregate-level observability events. Names are
// "<aggregate>.<operation>".
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}

type observabilityHooks struct {
	metrics *observability.Metrics
}

func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return &observabilityHooks{metrics: metrics}
}

func splitOp(name string) (string, string) {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, "."); i > 0 {
		return name[:i], name[i+1:]
	}
	return name, "write"
}

func (h *observabilityHooks) ObserveOperation(name, status string, dur time.Duration) {
	agg, op := splitOp(name)
	h.metrics.ObserveAggregateOperation(agg, op, strings.TrimSpace(status), dur)
}

func (h *observabilityHooks) IncConflict(name string) {
	agg, op := splitOp(name)
	h.metrics.IncAggregateConflict(agg, op)
}

func (h *observabilityHooks) IncRetry(name string) {
	agg, op := splitOp(name)
	h.metrics.IncAggregateRetry(agg, op)
}
