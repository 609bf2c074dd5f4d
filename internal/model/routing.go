package model

import (
	"fmt"
	"strings"
)

// DestinationKind - 전송 대상 종류
type DestinationKind string

const (
	// Slack incoming webhook: {blocks, text}
	DestinationSlack DestinationKind = "slack"
	// 일반 webhook: {blocks, fallback_text, dedupe_key} + Idempotency-Key 헤더
	DestinationWebhook DestinationKind = "webhook"
)

// OAuth2Credentials - client credentials 방식으로 인증하는 webhook 설정
type OAuth2Credentials struct {
	TokenURL     string   `yaml:"token_url" json:"token_url"`
	ClientID     string   `yaml:"client_id" json:"client_id"`
	ClientSecret string   `yaml:"-" json:"-"`
	Scopes       []string `yaml:"scopes" json:"scopes,omitempty"`
}

// Destination - 알림 전송 대상 (채널)
type Destination struct {
	ID     string             `json:"id"`
	Kind   DestinationKind    `json:"kind"`
	URL    string             `json:"-"`
	OAuth2 *OAuth2Credentials `json:"-"`
}

// RoutingRule - 분류 + metadata predicate -> 분석 여부, 전송 대상
// 프로세스 시작 시 1회 로드되고 이후 변경하지 않음
type RoutingRule struct {
	Name        string
	Category    Category
	When        string
	Analyze     bool
	Destination string
}

// RouteDecision - 라우팅 결과
type RouteDecision struct {
	Rule        string
	Analyze     bool
	Destination Destination
}

// Ack - 전송 성공 응답
type Ack struct {
	Destination string `json:"destination"`
	DedupeKey   string `json:"dedupe_key"`
	StatusCode  int    `json:"status_code,omitempty"`
	Attempts    int    `json:"attempts"`

	// Duplicate: 이미 전송된 dedupe_key라서 전송하지 않음
	Duplicate bool `json:"duplicate,omitempty"`
}

// DeliveryError - 재시도 소진 후 전송 실패
type DeliveryError struct {
	Destination string
	DedupeKey   string
	Attempts    int
	StatusCode  int
	Err         error
}

func (e *DeliveryError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "delivery to %s failed after %d attempt(s)", e.Destination, e.Attempts)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (last status %d)", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
