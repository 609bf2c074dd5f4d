package model

import (
	"sort"
	"strconv"
)

// Category - 알림 분류 (닫힌 집합)
type Category string

const (
	CategoryBudgetWarning  Category = "budget_warning"
	CategoryBudgetCritical Category = "budget_critical"
	CategoryMetricAlarm    Category = "metric_alarm"
	CategoryCustomError    Category = "custom_error"
	CategoryUnclassified   Category = "unclassified"
)

// Categories - 전체 분류 목록 (라우팅 설정 검증용)
var Categories = []Category{
	CategoryBudgetWarning,
	CategoryBudgetCritical,
	CategoryMetricAlarm,
	CategoryCustomError,
	CategoryUnclassified,
}

// Valid - 정의된 분류인지 확인
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Confidence - 분류 신뢰도
// 확률이 아니라 규칙 매칭 여부만 표현 (rule_match / fallback)
type Confidence string

const (
	ConfidenceRuleMatch Confidence = "rule_match"
	ConfidenceFallback  Confidence = "fallback"
)

// Metadata - 분류 시 추출한 스칼라 값 모음
// 값이 없으면 키 자체가 없음 (nil 대신 absent)
type Metadata map[string]any

// String - 문자열 값 조회
func (m Metadata) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Number - 숫자 값 조회
func (m Metadata) Number(key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Text - 표시용 문자열 변환 (포맷터, 프롬프트에서 사용)
func (m Metadata) Text(key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Keys - 정렬된 키 목록 (출력 순서를 결정적으로 유지)
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Classification - 분류 결과
type Classification struct {
	Event      AlertEvent `json:"-"`
	Category   Category   `json:"category"`
	Confidence Confidence `json:"confidence"`

	// Rule: 매칭된 규칙 이름 (fallback이면 빈 문자열)
	Rule string `json:"rule,omitempty"`

	// Ambiguous: 첫 매칭 이후에도 predicate가 참이었던 규칙 이름
	// 우선순위 결정에는 사용하지 않고 로그/메시지에 노출만 함
	Ambiguous []string `json:"ambiguous,omitempty"`

	Metadata Metadata `json:"metadata"`
}
