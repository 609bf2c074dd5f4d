package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kube-rca/alert-analyzer/internal/model"
)

func testMessage() model.OutboundMessage {
	return model.OutboundMessage{
		Blocks: []model.Block{
			{Type: model.BlockHeader, Text: &model.TextObject{Type: "plain_text", Text: "Budget Warning"}},
		},
		FallbackText: "Budget Warning: Monthly",
		DedupeKey:    "budget-abc123",
	}
}

func TestWebhookSenderSlackPayload(t *testing.T) {
	var got map[string]any
	var idempotency string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idempotency = r.Header.Get("Idempotency-Key")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewWebhookSender(time.Second)
	status, err := sender.Send(context.Background(), model.Destination{ID: "heartbeat", Kind: model.DestinationSlack, URL: srv.URL}, testMessage())
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if got["text"] != "Budget Warning: Monthly" {
		t.Fatalf("text = %v", got["text"])
	}
	if _, ok := got["dedupe_key"]; ok {
		t.Fatalf("slack payload should not carry dedupe_key")
	}
	if idempotency != "" {
		t.Fatalf("slack request should not carry Idempotency-Key")
	}
}

func TestWebhookSenderGenericPayload(t *testing.T) {
	var got map[string]any
	var idempotency string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idempotency = r.Header.Get("Idempotency-Key")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewWebhookSender(time.Second)
	_, err := sender.Send(context.Background(), model.Destination{ID: "ops", Kind: model.DestinationWebhook, URL: srv.URL}, testMessage())
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if idempotency != "budget-abc123" {
		t.Fatalf("Idempotency-Key = %q", idempotency)
	}
	if got["fallback_text"] != "Budget Warning: Monthly" || got["dedupe_key"] != "budget-abc123" {
		t.Fatalf("payload = %v", got)
	}
	blocks, ok := got["blocks"].([]any)
	if !ok || len(blocks) != 1 {
		t.Fatalf("blocks = %v", got["blocks"])
	}
}

func TestWebhookSenderNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	status, err := NewWebhookSender(time.Second).Send(context.Background(), model.Destination{ID: "x", URL: srv.URL}, testMessage())
	if err == nil {
		t.Fatalf("Send() error = nil, want error")
	}
	if status != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", status)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("error should include response body: %v", err)
	}
}

func TestWebhookSenderOAuth2(t *testing.T) {
	var tokenCalls int32
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			atomic.AddInt32(&tokenCalls, 1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`))
		default:
			auth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	dest := model.Destination{
		ID:   "secure",
		Kind: model.DestinationWebhook,
		URL:  srv.URL + "/hook",
		OAuth2: &model.OAuth2Credentials{
			TokenURL:     srv.URL + "/token",
			ClientID:     "analyzer",
			ClientSecret: "secret",
		},
	}

	sender := NewWebhookSender(time.Second)
	for i := 0; i < 2; i++ {
		if _, err := sender.Send(context.Background(), dest, testMessage()); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	if auth != "Bearer tok-1" {
		t.Fatalf("Authorization = %q", auth)
	}
	if n := atomic.LoadInt32(&tokenCalls); n != 1 {
		t.Fatalf("token fetched %d times, want 1 (cached)", n)
	}
}

func TestWebhookSenderMissingURL(t *testing.T) {
	if _, err := NewWebhookSender(time.Second).Send(context.Background(), model.Destination{ID: "none"}, testMessage()); err == nil {
		t.Fatalf("expected error for destination without URL")
	}
}
