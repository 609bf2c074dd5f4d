// 인입 페이로드 -> AlertEvent 정규화
//
// 흐름:
//   - SNS 봉투(Lambda Records / HTTP push Notification)가 있으면 Message를 꺼냄
//   - budget -> alarm -> custom 순서로 형태 판별
//   - 어떤 형태에도 맞지 않으면 model.ErrUnsupportedEventShape (추측하지 않음)

package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kube-rca/alert-analyzer/internal/model"
)

// 봉투 안에 봉투가 있는 경우까지만 허용
const maxEnvelopeDepth = 2

type snsLambdaEnvelope struct {
	Records []struct {
		Sns struct {
			MessageID string `json:"MessageId"`
			Message   string `json:"Message"`
		} `json:"Sns"`
	} `json:"Records"`
}

type snsHTTPEnvelope struct {
	Type      string `json:"Type"`
	MessageID string `json:"MessageId"`
	Message   string `json:"Message"`
}

// Normalize - 원본 페이로드를 AlertEvent로 변환 (부수효과 없음)
func Normalize(raw []byte, receivedAt time.Time) (model.AlertEvent, error) {
	return normalize(raw, receivedAt.UTC(), "", 0)
}

// envelopeID - 가장 바깥 SNS 봉투의 MessageId (재전송되어도 동일)
func normalize(raw []byte, receivedAt time.Time, envelopeID string, depth int) (model.AlertEvent, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return model.AlertEvent{}, fmt.Errorf("empty payload: %w", model.ErrUnsupportedEventShape)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return model.AlertEvent{}, fmt.Errorf("payload is not a JSON object: %w", model.ErrUnsupportedEventShape)
	}

	if inner, messageID, ok := unwrapEnvelope(raw, fields); ok {
		if depth >= maxEnvelopeDepth {
			return model.AlertEvent{}, fmt.Errorf("too many nested envelopes: %w", model.ErrUnsupportedEventShape)
		}
		if envelopeID == "" {
			envelopeID = messageID
		}
		return normalize([]byte(inner), receivedAt, envelopeID, depth+1)
	}

	event := model.AlertEvent{
		RawPayload: json.RawMessage(append([]byte(nil), raw...)),
		ReceivedAt: receivedAt,
		EnvelopeID: envelopeID,
	}

	detailType := stringOf(fields["detail-type"])
	_, hasDetail := fields["detail"]

	switch {
	case detailType != "" && hasDetail && strings.Contains(strings.ToLower(detailType), "budget"):
		budget, err := decodeBudget(detailType, fields["detail"])
		if err != nil {
			return model.AlertEvent{}, err
		}
		budget.ID = stringOf(fields["id"])
		budget.Time = stringOf(fields["time"])
		event.Source = model.SourceBudget
		event.Budget = budget

	case stringOf(fields["AlarmName"]) != "":
		var alarm model.AlarmNotification
		if err := json.Unmarshal(raw, &alarm); err != nil {
			return model.AlertEvent{}, fmt.Errorf("invalid alarm payload: %v: %w", err, model.ErrUnsupportedEventShape)
		}
		event.Source = model.SourceAlarm
		event.Alarm = &alarm

	case detailType != "" && hasDetail:
		var custom model.CustomEvent
		if err := json.Unmarshal(raw, &custom); err != nil || custom.Detail == nil {
			return model.AlertEvent{}, fmt.Errorf("custom event detail must be an object: %w", model.ErrUnsupportedEventShape)
		}
		event.Source = model.SourceCustom
		event.Custom = &custom

	default:
		return model.AlertEvent{}, fmt.Errorf("no supported shape matched: %w", model.ErrUnsupportedEventShape)
	}

	return event, nil
}

// unwrapEnvelope - SNS 봉투면 안쪽 Message와 MessageId 반환
func unwrapEnvelope(raw []byte, fields map[string]json.RawMessage) (string, string, bool) {
	if _, ok := fields["Records"]; ok {
		var env snsLambdaEnvelope
		if err := json.Unmarshal(raw, &env); err == nil && len(env.Records) > 0 && env.Records[0].Sns.Message != "" {
			return env.Records[0].Sns.Message, strings.TrimSpace(env.Records[0].Sns.MessageID), true
		}
		return "", "", false
	}
	if stringOf(fields["Type"]) == "Notification" {
		var env snsHTTPEnvelope
		if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
			return env.Message, strings.TrimSpace(env.MessageID), true
		}
	}
	return "", "", false
}

// decodeBudget - 예산 알림 detail 파싱
// 숫자가 문자열로 오는 경우도 허용하고, 해석할 수 없는 값은 누락으로 처리
func decodeBudget(detailType string, rawDetail json.RawMessage) (*model.BudgetNotification, error) {
	var detail map[string]any
	if err := json.Unmarshal(rawDetail, &detail); err != nil || detail == nil {
		return nil, fmt.Errorf("budget detail must be an object: %w", model.ErrUnsupportedEventShape)
	}

	name, _ := detail["budgetName"].(string)
	return &model.BudgetNotification{
		DetailType: detailType,
		Detail: model.BudgetDetail{
			BudgetName:          strings.TrimSpace(name),
			ThresholdPercentage: numberOf(detail["thresholdPercentage"]),
			ActualSpend:         numberOf(detail["actualSpend"]),
			ForecastedSpend:     numberOf(detail["forecastedSpend"]),
		},
	}, nil
}

func stringOf(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func numberOf(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(n), "%"), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}
