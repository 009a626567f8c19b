package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/gonasi-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests   *CounterVec
	apiLatency    *HistogramVec
	apiInflight   *Gauge
	aggregateOps  *HistogramVec
	aggregateConf *CounterVec
	aggregateRtry *CounterVec
	interactions  *CounterVec
	transitions   *CounterVec
	broadcasts    *CounterVec
	autoplay      *CounterVec
	sseClients    *Gauge
	redisUp       *Gauge
	redisPing     *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Current() *Metrics {
	return instance
}

// Init builds the process-wide registry. It returns nil when metrics are disabled,
// and every method tolerates a nil receiver.
func Init(enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
	})
	return instance
}

// New builds a standalone registry.
func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("gonasi_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"gonasi_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		apiInflight: NewGauge("gonasi_api_inflight_requests", "In-flight API requests."),
		aggregateOps: NewHistogramVec(
			"gonasi_aggregate_operation_duration_seconds",
			"Aggregate write duration by aggregate/operation/status.",
			[]string{"aggregate", "operation", "status"},
			nil,
		),
		aggregateConf: NewCounterVec("gonasi_aggregate_conflicts_total", "Aggregate writes rejected by a conflict.", []string{"aggregate", "operation"}),
		aggregateRtry: NewCounterVec("gonasi_aggregate_retries_total", "Aggregate writes retried after a retryable failure.", []string{"aggregate", "operation"}),
		interactions:  NewCounterVec("gonasi_block_interactions_total", "Block interactions recorded by completion.", []string{"complete"}),
		transitions:   NewCounterVec("gonasi_live_transitions_total", "Committed live session transitions by field/to.", []string{"field", "to"}),
		broadcasts:    NewCounterVec("gonasi_live_broadcasts_total", "Live session broadcasts by event/outcome.", []string{"event", "outcome"}),
		autoplay:      NewCounterVec("gonasi_autoplay_advances_total", "Autoplay timer advances by outcome.", []string{"outcome"}),
		sseClients:    NewGauge("gonasi_sse_clients", "Connected SSE clients."),
		redisUp:       NewGauge("gonasi_redis_up", "Redis reachability (1 up, 0 down)."),
		redisPing:     NewGauge("gonasi_redis_ping_seconds", "Last Redis ping round trip in seconds."),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed && log != nil {
			log.Error("metrics server failed", "error", err, "addr", addr)
		}
	}()
}

// StartRedisCollector pings rdb on an interval until ctx is done.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.aggregateOps, m.aggregateConf, m.aggregateRtry,
		m.interactions, m.transitions, m.broadcasts, m.autoplay,
		m.sseClients, m.redisUp, m.redisPing,
	}
	for _, mw := range writers {
		if err := mw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(aggregate, operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateOps.Observe(dur.Seconds(), aggregate, operation, status)
}

func (m *Metrics) IncAggregateConflict(aggregate, operation string) {
	if m == nil {
		return
	}
	m.aggregateConf.Inc(aggregate, operation)
}

func (m *Metrics) IncAggregateRetry(aggregate, operation string) {
	if m == nil {
		return
	}
	m.aggregateRtry.Inc(aggregate, operation)
}

func (m *Metrics) IncInteraction(isComplete bool) {
	if m == nil {
		return
	}
	m.interactions.Inc(strconv.FormatBool(isComplete))
}

func (m *Metrics) IncTransition(field, to string) {
	if m == nil {
		return
	}
	m.transitions.Inc(field, to)
}

func (m *Metrics) IncBroadcast(event string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.broadcasts.Inc(event, outcome)
}

func (m *Metrics) IncAutoplayAdvance(outcome string) {
	if m == nil {
		return
	}
	m.autoplay.Inc(outcome)
}

func (m *Metrics) SSEClientsInc() {
	if m == nil {
		return
	}
	m.sseClients.Inc()
}

func (m *Metrics) SSEClientsDec() {
	if m == nil {
		return
	}
	m.sseClients.Dec()
}
