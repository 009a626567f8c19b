package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.IncBroadcast("live_session_state", nil)
	m.SSEClientsInc()
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("WritePrometheus on nil: %v", err)
	}
}

func TestWritePrometheusExposition(t *testing.T) {
	m := New()
	m.ObserveAPI("POST", "/api/live-sessions/:id/state", "200", 30*time.Millisecond)
	m.IncBroadcast("live_session_state", nil)
	m.IncBroadcast("live_session_state", errors.New("redis down"))
	m.ObserveAggregateOperation("live_session", "commit_state", "success", 2*time.Millisecond)

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"# TYPE gonasi_api_requests_total counter",
		`gonasi_api_requests_total{method="POST",route="/api/live-sessions/:id/state",status="200"} 1.000000`,
		`gonasi_live_broadcasts_total{event="live_session_state",outcome="error"} 1.000000`,
		`gonasi_aggregate_operation_duration_seconds_bucket{aggregate="live_session",operation="commit_state",status="success",le="+Inf"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"a", "b"}, []string{`x"y`})
	if got != `{a="x\"y",b="unknown"}` {
		t.Fatalf("labelString: %s", got)
	}
	if withLe("", "0.5") != `{le="0.5"}` {
		t.Fatalf("withLe on empty labels")
	}
}

func TestParseHeaders(t *testing.T) {
	h := ParseHeaders(" api-key=abc , broken, x=1")
	if len(h) != 2 || h["api-key"] != "abc" || h["x"] != "1" {
		t.Fatalf("ParseHeaders: %v", h)
	}
	if ParseHeaders("") != nil {
		t.Fatalf("empty headers should be nil")
	}
}
