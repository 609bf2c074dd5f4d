// 인입 이벤트(AlertEvent) 및 지원하는 페이로드 형태 정의
// handler, consumer, service 레이어에서 공통으로 사용하기 때문에 model 레이어에 별도로 정의
//
// 지원하는 형태:
//   - budget: AWS Budgets 알림 (detail-type + detail.budgetName)
//   - alarm: CloudWatch 알람 (AlarmName + Trigger)
//   - custom: EventBridge 형태의 커스텀 이벤트 (detail-type + detail)

package model

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrUnsupportedEventShape - 지원하지 않는 페이로드 형태
// Normalizer에서만 반환되며, 파이프라인을 중단시키는 유일한 에러
var ErrUnsupportedEventShape = errors.New("unsupported event shape")

// EventSource - 이벤트 출처
type EventSource string

const (
	SourceBudget EventSource = "budget"
	SourceAlarm  EventSource = "alarm"
	SourceCustom EventSource = "custom"
)

// AlertEvent - 정규화된 인입 이벤트
// Normalizer에서 생성된 이후 변경하지 않음
type AlertEvent struct {
	Source     EventSource     `json:"source"`
	RawPayload json.RawMessage `json:"raw_payload"`
	ReceivedAt time.Time       `json:"received_at"`
	// EnvelopeID - SNS 봉투의 MessageId (봉투 없이 수신된 경우 빈 값)
	EnvelopeID string `json:"envelope_id,omitempty"`

	// Source에 해당하는 필드 하나만 설정됨
	Budget *BudgetNotification `json:"budget,omitempty"`
	Alarm  *AlarmNotification  `json:"alarm,omitempty"`
	Custom *CustomEvent        `json:"custom,omitempty"`
}

// BudgetNotification - AWS Budgets 임계치 알림
type BudgetNotification struct {
	ID         string       `json:"id,omitempty"`
	Time       string       `json:"time,omitempty"`
	DetailType string       `json:"detail-type"`
	Detail     BudgetDetail `json:"detail"`
}

// BudgetDetail - 예산 알림 상세
// 숫자 필드는 누락될 수 있으므로 포인터로 정의
type BudgetDetail struct {
	BudgetName          string   `json:"budgetName"`
	ThresholdPercentage *float64 `json:"thresholdPercentage,omitempty"`
	ActualSpend         *float64 `json:"actualSpend,omitempty"`
	ForecastedSpend     *float64 `json:"forecastedSpend,omitempty"`
}

// AlarmNotification - CloudWatch 알람 SNS 메시지
type AlarmNotification struct {
	AlarmName        string       `json:"AlarmName"`
	AlarmDescription string       `json:"AlarmDescription,omitempty"`
	NewStateValue    string       `json:"NewStateValue,omitempty"`
	NewStateReason   string       `json:"NewStateReason,omitempty"`
	StateChangeTime  string       `json:"StateChangeTime,omitempty"`
	Region           string       `json:"Region,omitempty"`
	Trigger          AlarmTrigger `json:"Trigger"`
}

// AlarmTrigger - 알람을 발생시킨 메트릭 정보
type AlarmTrigger struct {
	Namespace  string           `json:"Namespace,omitempty"`
	MetricName string           `json:"MetricName,omitempty"`
	Threshold  *float64         `json:"Threshold,omitempty"`
	Dimensions []AlarmDimension `json:"Dimensions,omitempty"`
}

// AlarmDimension - CloudWatch 메트릭 dimension (예: FunctionName)
type AlarmDimension struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CustomEvent - EventBridge 형태의 커스텀 이벤트
// detail은 형태가 고정되지 않으므로 map으로 유지
type CustomEvent struct {
	ID         string         `json:"id,omitempty"`
	DetailType string         `json:"detail-type"`
	Source     string         `json:"source,omitempty"`
	Resources  []string       `json:"resources,omitempty"`
	Detail     map[string]any `json:"detail"`
}

// Dimension - 알람 dimension 값 조회 (없으면 빈 문자열)
func (a *AlarmNotification) Dimension(name string) string {
	for _, d := range a.Trigger.Dimensions {
		if d.Name == name {
			return d.Value
		}
	}
	return ""
}

// DetailString - detail 필드를 문자열로 조회 (없거나 문자열이 아니면 빈 문자열)
func (c *CustomEvent) DetailString(key string) string {
	if c.Detail == nil {
		return ""
	}
	if v, ok := c.Detail[key].(string); ok {
		return v
	}
	return ""
}
