package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeSource struct {
	snapshot goSession.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goSession.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func TestCollectorEmitsOnlyAuditWhenMetricsDisabled(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{snapshot: goSession.NewMetrics(goSession.MetricsConfig{}).Snapshot()})
	if n := testutil.CollectAndCount(c); n != 1 {
		t.Fatalf("expected only the audit dropped counter, got %d metrics", n)
	}
}

func TestCollectorCountersAndHistogram(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{
				goSession.MetricLoginSuccess: 7,
			},
			Histograms: map[goSession.MetricID][]uint64{
				goSession.MetricAuthorizeLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
			HistogramSums: map[goSession.MetricID]time.Duration{
				goSession.MetricAuthorizeLatency: 1500 * time.Millisecond,
			},
		},
		dropped: 2,
	})

	expected := `
# HELP gosession_login_success_total Successful logins.
# TYPE gosession_login_success_total counter
gosession_login_success_total 7
# HELP gosession_authorize_latency_seconds Authorize latency.
# TYPE gosession_authorize_latency_seconds histogram
gosession_authorize_latency_seconds_bucket{le="0.001"} 1
gosession_authorize_latency_seconds_bucket{le="0.005"} 3
gosession_authorize_latency_seconds_bucket{le="0.01"} 6
gosession_authorize_latency_seconds_bucket{le="0.025"} 10
gosession_authorize_latency_seconds_bucket{le="0.05"} 15
gosession_authorize_latency_seconds_bucket{le="0.1"} 21
gosession_authorize_latency_seconds_bucket{le="0.25"} 28
gosession_authorize_latency_seconds_bucket{le="+Inf"} 36
gosession_authorize_latency_seconds_sum 1.5
gosession_authorize_latency_seconds_count 36
# HELP gosession_audit_dropped_total Audit events dropped due to dispatcher backpressure.
# TYPE gosession_audit_dropped_total counter
gosession_audit_dropped_total 2
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"gosession_login_success_total",
		"gosession_authorize_latency_seconds",
		"gosession_audit_dropped_total",
	)
	if err != nil {
		t.Fatal(err)
	}
}

func TestCollectorPassesLint(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{snapshot: goSession.NewMetrics(goSession.MetricsConfig{Enabled: true, EnableLatencyHistograms: true}).Snapshot()})
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := reg.Gather(); err != nil {
		t.Fatalf("gather: %v", err)
	}
}

func TestHandlerServesEngineMetrics(t *testing.T) {
	cfg := goSession.DefaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Audit.Enabled = false
	engine, err := goSession.New().
		WithConfig(cfg).
		WithStore(store.NewMemoryStore(nil)).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()

	if _, err := engine.IssueSession(context.Background(), goSession.Principal{UserID: 1, Email: "a@example.com", Role: goSession.RoleUser}); err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	h, err := Handler(engine)
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "gosession_session_issued_total 1") {
		t.Fatalf("expected issued counter in output, got:\n%s", body)
	}
}
