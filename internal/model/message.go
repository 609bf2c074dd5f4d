package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Block Kit 블록 타입
const (
	BlockHeader  = "header"
	BlockSection = "section"
	BlockDivider = "divider"
	BlockContext = "context"
)

// TextObject - Block Kit 텍스트 객체 (plain_text, mrkdwn)
type TextObject struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// Block - 렌더링 가능한 메시지 섹션
type Block struct {
	Type     string       `json:"type"`
	Text     *TextObject  `json:"text,omitempty"`
	Fields   []TextObject `json:"fields,omitempty"`
	Elements []TextObject `json:"elements,omitempty"`
}

// OutboundMessage - 전송할 메시지
type OutboundMessage struct {
	Blocks       []Block `json:"blocks"`
	FallbackText string  `json:"fallback_text"`
	DedupeKey    string  `json:"dedupe_key"`
}

// Render - 블록의 모든 텍스트를 순서대로 이어붙인 문자열
// 크기 제한 검증 및 로그 출력용
func (m OutboundMessage) Render() string {
	var b strings.Builder
	for _, block := range m.Blocks {
		if block.Text != nil {
			b.WriteString(block.Text.Text)
			b.WriteString("\n")
		}
		for _, f := range block.Fields {
			b.WriteString(f.Text)
			b.WriteString("\n")
		}
		for _, e := range block.Elements {
			b.WriteString(e.Text)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// DedupeKey - 이벤트 식별 필드로 계산한 결정적 키
// 수신 시각(ReceivedAt)은 포함하지 않음
// 발생 단위 식별자(id, time, StateChangeTime)가 없으면 SNS MessageId, 그다음 원본 페이로드 순으로 사용
func DedupeKey(event AlertEvent) string {
	parts := []string{string(event.Source)}

	switch {
	case event.Budget != nil:
		b := event.Budget
		parts = append(parts, b.DetailType, b.Detail.BudgetName, formatOptional(b.Detail.ThresholdPercentage))
		if b.ID != "" || b.Time != "" {
			parts = append(parts, b.ID, b.Time)
		} else {
			parts = append(parts, event.EnvelopeID)
		}
	case event.Alarm != nil:
		a := event.Alarm
		parts = append(parts, a.AlarmName, a.NewStateValue)
		switch {
		case a.StateChangeTime != "":
			parts = append(parts, a.StateChangeTime)
		case event.EnvelopeID != "":
			parts = append(parts, event.EnvelopeID)
		default:
			parts = append(parts, string(event.RawPayload))
		}
	case event.Custom != nil:
		c := event.Custom
		parts = append(parts, c.DetailType, c.Source)
		switch {
		case c.ID != "":
			parts = append(parts, c.ID)
		case event.EnvelopeID != "":
			parts = append(parts, event.EnvelopeID)
		default:
			// encoding/json은 map 키를 정렬하므로 결정적
			detail, _ := json.Marshal(c.Detail)
			parts = append(parts, strings.Join(c.Resources, ","), string(detail))
		}
	default:
		parts = append(parts, string(event.RawPayload))
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return fmt.Sprintf("%s-%s", event.Source, hex.EncodeToString(sum[:16]))
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
