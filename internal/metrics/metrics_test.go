package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kube-rca/alert-analyzer/internal/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	before := testutil.ToFloat64(ToolInvocationsTotal.WithLabelValues("cost_breakdown", "error"))
	r.ObserveTool("cost_breakdown", model.Failure("AccessDenied: not authorized"), 10*time.Millisecond)
	if got := testutil.ToFloat64(ToolInvocationsTotal.WithLabelValues("cost_breakdown", "error")); got != before+1 {
		t.Fatalf("tool error counter = %v, want %v", got, before+1)
	}

	before = testutil.ToFloat64(ToolInvocationsTotal.WithLabelValues("cost_breakdown", model.ReasonTimeout))
	r.ObserveTool("cost_breakdown", model.Failure(model.ReasonTimeout), time.Second)
	if got := testutil.ToFloat64(ToolInvocationsTotal.WithLabelValues("cost_breakdown", model.ReasonTimeout)); got != before+1 {
		t.Fatalf("tool timeout counter = %v", got)
	}

	before = testutil.ToFloat64(EventsTotal.WithLabelValues(string(model.StateDelivered)))
	r.ObserveEvent(model.StateDelivered, 2*time.Second)
	if got := testutil.ToFloat64(EventsTotal.WithLabelValues(string(model.StateDelivered))); got != before+1 {
		t.Fatalf("events counter = %v", got)
	}

	before = testutil.ToFloat64(ModelCallsTotal.WithLabelValues(model.DegradedModelTimeout))
	r.ObserveAnalysis(model.DegradedModelTimeout, 3, 30*time.Second)
	if got := testutil.ToFloat64(ModelCallsTotal.WithLabelValues(model.DegradedModelTimeout)); got != before+1 {
		t.Fatalf("model counter = %v", got)
	}

	before = testutil.ToFloat64(DeliveriesTotal.WithLabelValues("critical", "failed"))
	r.ObserveDelivery("critical", "failed", 3)
	if got := testutil.ToFloat64(DeliveriesTotal.WithLabelValues("critical", "failed")); got != before+1 {
		t.Fatalf("delivery counter = %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	NewRecorder().ObserveEvent(model.StateRejected, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 || !strings.Contains(rec.Body.String(), "alert_analyzer_pipeline_events_total") {
		t.Fatalf("metrics not exposed: %d", rec.Code)
	}
}
