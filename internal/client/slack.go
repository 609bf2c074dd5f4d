// 알림 전송 대상(Slack incoming webhook / 일반 webhook)으로 메시지를 보내는 클라이언트
// 재시도, 중복 방지, rate limit은 service.Publisher에서 처리하고 여기서는 1회 전송만 담당
//
// 전송 형식:
//   - slack: {"blocks": [...], "text": fallback_text}
//   - webhook: {"blocks": [...], "fallback_text": ..., "dedupe_key": ...} + Idempotency-Key 헤더
//
// OAuth2 설정이 있는 webhook은 client credentials 토큰을 붙여서 전송

package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kube-rca/alert-analyzer/internal/model"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// WebhookSender 구조체 정의
type WebhookSender struct {
	httpClient *http.Client

	// oauthClients: destination ID -> 토큰을 붙이는 http.Client
	// 토큰 캐시를 재사용하기 위해 destination별로 1개만 생성
	oauthClients sync.Map
}

// SlackMessage(Slack incoming webhook 본문) 구조체 정의
type SlackMessage struct {
	Blocks []model.Block `json:"blocks"`
	Text   string        `json:"text"`
}

// WebhookMessage(일반 webhook 본문) 구조체 정의
type WebhookMessage struct {
	Blocks       []model.Block `json:"blocks"`
	FallbackText string        `json:"fallback_text"`
	DedupeKey    string        `json:"dedupe_key"`
}

// WebhookSender 객체 생성
func NewWebhookSender(timeout time.Duration) *WebhookSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSender{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send - 1회 전송, 응답 status code 반환 (응답을 받지 못하면 0)
func (s *WebhookSender) Send(ctx context.Context, dest model.Destination, msg model.OutboundMessage) (int, error) {
	if dest.URL == "" {
		return 0, fmt.Errorf("destination %s has no URL", dest.ID)
	}

	header := http.Header{}
	var body any
	switch dest.Kind {
	case model.DestinationWebhook:
		body = WebhookMessage{Blocks: msg.Blocks, FallbackText: msg.FallbackText, DedupeKey: msg.DedupeKey}
		header.Set("Idempotency-Key", msg.DedupeKey)
	default:
		body = SlackMessage{Blocks: msg.Blocks, Text: msg.FallbackText}
	}

	status, err := postJSON(ctx, s.clientFor(dest), dest.URL, header, body, nil)
	if err != nil {
		return status, fmt.Errorf("send to %s: %w", dest.ID, err)
	}
	return status, nil
}

func (s *WebhookSender) clientFor(dest model.Destination) *http.Client {
	if dest.OAuth2 == nil {
		return s.httpClient
	}
	if c, ok := s.oauthClients.Load(dest.ID); ok {
		return c.(*http.Client)
	}

	cc := clientcredentials.Config{
		ClientID:     dest.OAuth2.ClientID,
		ClientSecret: dest.OAuth2.ClientSecret,
		TokenURL:     dest.OAuth2.TokenURL,
		Scopes:       dest.OAuth2.Scopes,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, s.httpClient)
	client := cc.Client(ctx)
	client.Timeout = s.httpClient.Timeout

	actual, _ := s.oauthClients.LoadOrStore(dest.ID, client)
	return actual.(*http.Client)
}
