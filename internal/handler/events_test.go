package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/alert-analyzer/internal/model"
	"github.com/kube-rca/alert-analyzer/internal/service"
)

type stubPipeline struct {
	outcome model.Outcome
	raw     []byte
}

func (s *stubPipeline) Process(_ context.Context, raw []byte) model.Outcome {
	s.raw = raw
	return s.outcome
}

type stubAuth struct {
	err error
}

func (s stubAuth) Authenticate(context.Context, http.Header) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "tester", nil
}

func newTestRouter(p EventProcessor, auth Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterDeps{Pipeline: p, Auth: auth, Metrics: http.NotFoundHandler()})
}

func postEvent(r http.Handler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestReceiveEventStatusMapping(t *testing.T) {
	cls := &model.Classification{Category: model.CategoryBudgetWarning}
	tests := []struct {
		name    string
		outcome model.Outcome
		want    int
	}{
		{
			name: "delivered",
			outcome: model.Outcome{
				ExecutionID:    "e1",
				State:          model.StateDelivered,
				Classification: cls,
				Message:        &model.OutboundMessage{DedupeKey: "k1"},
				Ack:            &model.Ack{StatusCode: 200, Attempts: 1},
			},
			want: http.StatusOK,
		},
		{
			name:    "rejected",
			outcome: model.Outcome{ExecutionID: "e2", State: model.StateRejected, Err: model.ErrUnsupportedEventShape},
			want:    http.StatusUnprocessableEntity,
		},
		{
			name:    "delivery failed",
			outcome: model.Outcome{ExecutionID: "e3", State: model.StateDeliveryFailed, Err: &model.DeliveryError{Attempts: 3, StatusCode: 500}},
			want:    http.StatusBadGateway,
		},
		{
			name:    "abandoned",
			outcome: model.Outcome{ExecutionID: "e4", State: model.StateAbandoned, Err: context.DeadlineExceeded},
			want:    http.StatusGatewayTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &stubPipeline{outcome: tt.outcome}
			w := postEvent(newTestRouter(p, nil), `{"budgetName":"Monthly"}`)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			if string(p.raw) != `{"budgetName":"Monthly"}` {
				t.Fatalf("raw body not forwarded: %q", p.raw)
			}
		})
	}
}

func TestReceiveEventResponseBody(t *testing.T) {
	p := &stubPipeline{outcome: model.Outcome{
		ExecutionID:    "e1",
		State:          model.StateDelivered,
		Classification: &model.Classification{Category: model.CategoryMetricAlarm},
		Analysis:       &model.AnalysisResult{Degraded: true, DegradedReason: model.DegradedModelTimeout},
		Message:        &model.OutboundMessage{DedupeKey: "alarm|ALARM|t"},
		Ack:            &model.Ack{Duplicate: true},
	}}
	w := postEvent(newTestRouter(p, nil), `{}`)

	var resp model.EventResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := model.EventResponse{
		ExecutionID: "e1",
		State:       model.StateDelivered,
		Category:    model.CategoryMetricAlarm,
		Degraded:    true,
		Duplicate:   true,
		DedupeKey:   "alarm|ALARM|t",
	}
	if resp != want {
		t.Fatalf("response = %+v, want %+v", resp, want)
	}
}

func TestReceiveEventValidation(t *testing.T) {
	p := &stubPipeline{}
	r := newTestRouter(p, nil)

	if w := postEvent(r, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("empty body: status = %d", w.Code)
	}

	large := fmt.Sprintf(`{"detail":%q}`, strings.Repeat("x", maxEventBytes))
	if w := postEvent(r, large); w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("large body: status = %d", w.Code)
	}
	if p.raw != nil {
		t.Fatalf("pipeline invoked for invalid body")
	}
}

func TestReceiveEventAuth(t *testing.T) {
	p := &stubPipeline{outcome: model.Outcome{State: model.StateDelivered}}

	w := postEvent(newTestRouter(p, stubAuth{err: service.ErrUnauthorized}), `{}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if p.raw != nil {
		t.Fatalf("pipeline invoked without credentials")
	}

	w = postEvent(newTestRouter(p, stubAuth{err: errors.New("jwks fetch failed")}), `{}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}

	w = postEvent(newTestRouter(p, stubAuth{}), `{}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestHealthAndDocs(t *testing.T) {
	r := newTestRouter(&stubPipeline{}, nil)

	for _, path := range []string{"/ping", "/", "/openapi.json"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s = %d", path, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	if !bytes.Contains(w.Body.Bytes(), []byte("/webhook/events")) {
		t.Fatalf("openapi document missing event route")
	}
}
