package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kube-rca/alert-analyzer/internal/config"
	"github.com/kube-rca/alert-analyzer/internal/model"
	"google.golang.org/genai"
)

func TestAgentClientComplete(t *testing.T) {
	var got model.ModelRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/complete" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"content":"Here you go: {\"root_cause\":\"x\"}"}`))
	}))
	defer srv.Close()

	c := NewAgentClient(config.AgentConfig{BaseURL: srv.URL + "/"})
	resp, err := c.Complete(context.Background(), model.ModelRequest{Prompt: "analyze", MaxOutputTokens: 2000})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got.Prompt != "analyze" || got.MaxOutputTokens != 2000 {
		t.Fatalf("request = %+v", got)
	}
	if resp.Content == "" {
		t.Fatalf("empty content")
	}
}

func TestAgentClientErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantTransient bool
	}{
		{name: "server-error", status: http.StatusBadGateway, wantTransient: true},
		{name: "rate-limited", status: http.StatusTooManyRequests, wantTransient: true},
		{name: "bad-request", status: http.StatusBadRequest, wantTransient: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := NewAgentClient(config.AgentConfig{BaseURL: srv.URL}).Complete(context.Background(), model.ModelRequest{Prompt: "p"})
			if err == nil {
				t.Fatalf("Complete() error = nil")
			}
			if got := errors.Is(err, model.ErrModelTransient); got != tt.wantTransient {
				t.Fatalf("transient = %v, want %v (err=%v)", got, tt.wantTransient, err)
			}
		})
	}
}

func TestAgentClientNotConfigured(t *testing.T) {
	if _, err := NewAgentClient(config.AgentConfig{}).Complete(context.Background(), model.ModelRequest{}); err == nil {
		t.Fatalf("expected error without AGENT_URL")
	}
}

func TestInspectorClient(t *testing.T) {
	var auth string
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch r.URL.Path {
		case "/v1/inspect/get_budget_status":
			_, _ = w.Write([]byte(`{"data":{"budget_count":2}}`))
		case "/v1/inspect/get_emr_cluster_status":
			_, _ = w.Write([]byte(`{"error":"cluster not found"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewInspectorClient(config.InspectorConfig{BaseURL: srv.URL, Token: "t0ken"})

	data, err := c.Inspect(context.Background(), "get_budget_status", map[string]any{"x": 1})
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if data["budget_count"] != 2.0 {
		t.Fatalf("data = %v", data)
	}
	if auth != "Bearer t0ken" || body["x"] != 1.0 {
		t.Fatalf("auth=%q body=%v", auth, body)
	}

	if _, err := c.Inspect(context.Background(), "get_emr_cluster_status", nil); err == nil {
		t.Fatalf("expected error from error payload")
	}
	if _, err := c.Inspect(context.Background(), "unknown", nil); err == nil {
		t.Fatalf("expected error for 404")
	}
}

type fakeGenerator struct {
	resp *genai.GenerateContentResponse
	err  error
	cfg  *genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.cfg = config
	return f.resp, f.err
}

func TestGenAIClientComplete(t *testing.T) {
	gen := &fakeGenerator{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText(`{"root_cause":"memory"}`, genai.RoleModel),
		}},
	}}
	c := &GenAIClient{models: gen, modelID: "gemini-2.5-flash", temperature: 0.3}

	resp, err := c.Complete(context.Background(), model.ModelRequest{Prompt: "p", MaxOutputTokens: 1500})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != `{"root_cause":"memory"}` {
		t.Fatalf("Content = %q", resp.Content)
	}
	if gen.cfg.MaxOutputTokens != 1500 {
		t.Fatalf("MaxOutputTokens = %d", gen.cfg.MaxOutputTokens)
	}
}

func TestGenAIErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantTransient bool
	}{
		{name: "unavailable", err: genai.APIError{Code: 503, Message: "overloaded"}, wantTransient: true},
		{name: "quota", err: genai.APIError{Code: 429, Message: "quota"}, wantTransient: true},
		{name: "invalid", err: genai.APIError{Code: 400, Message: "bad"}, wantTransient: false},
		{name: "deadline", err: context.DeadlineExceeded, wantTransient: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &GenAIClient{models: &fakeGenerator{err: tt.err}}
			_, err := c.Complete(context.Background(), model.ModelRequest{Prompt: "p"})
			if got := errors.Is(err, model.ErrModelTransient); got != tt.wantTransient {
				t.Fatalf("transient = %v, want %v (err=%v)", got, tt.wantTransient, err)
			}
		})
	}
}
