package model

import "errors"

// ErrModelTransient - 재시도 가능한 모델 호출 실패 (네트워크, 429, 5xx)
// client 구현체는 재시도 대상 에러를 이 값으로 감싸서 반환
var ErrModelTransient = errors.New("transient model error")

// ModelRequest - LLM 호출 요청
type ModelRequest struct {
	Prompt          string `json:"prompt"`
	MaxOutputTokens int    `json:"max_output_tokens"`
}

// ModelResponse - LLM 응답 (JSON 분석 결과가 자유 텍스트에 섞여 있을 수 있음)
type ModelResponse struct {
	Content string `json:"content"`
}

// Severity - 분석 심각도
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// 분석 불가 시 고정 문구
const (
	RootCauseUnavailable = "analysis unavailable"
	RootCauseSkipped     = "analysis not requested for this alert"
	ManualInvestigation  = "Investigate manually: review the alert details and the diagnostic context in the console"
)

// Degraded 사유
const (
	DegradedModelTimeout = "model_timeout"
	DegradedModelError   = "model_error"
	DegradedParseError   = "parse_error"
)

// Diagnostic - 추가 조사용 명령
type Diagnostic struct {
	Command string `json:"command"`
	Purpose string `json:"purpose"`
}

// Remediation - 조치 항목
type Remediation struct {
	Action   string   `json:"action"`
	Priority Severity `json:"priority"`
}

// AnalysisResult - 이벤트 1건에 대한 분석 결과 (생성 후 변경하지 않음)
type AnalysisResult struct {
	RootCause    string        `json:"root_cause"`
	Severity     Severity      `json:"severity"`
	Diagnostics  []Diagnostic  `json:"diagnostics"`
	Remediation  []Remediation `json:"remediation"`
	CommonCauses []string      `json:"common_causes"`

	// Degraded: 모델 호출 없이 만들어진 fallback 분석
	Degraded       bool   `json:"degraded"`
	DegradedReason string `json:"degraded_reason,omitempty"`

	// Skipped: 라우팅 정책상 분석을 요청하지 않음 (passthrough)
	Skipped bool `json:"skipped,omitempty"`

	Model string `json:"model,omitempty"`
}

// ParsedAnalysis - 모델 응답 파싱 결과 (tagged)
// OK=false면 Reason에 실패 사유가 있고 Result는 사용하지 않음
type ParsedAnalysis struct {
	OK     bool
	Result AnalysisResult
	Reason string
}

// DefaultSeverity - 분류별 기본 심각도 (fallback, 모델이 severity를 주지 않은 경우)
func DefaultSeverity(cls Classification) Severity {
	switch cls.Category {
	case CategoryBudgetCritical, CategoryCustomError:
		return SeverityHigh
	case CategoryMetricAlarm:
		if hint, _ := cls.Metadata.String("severity_hint"); hint == "error" {
			return SeverityHigh
		}
		return SeverityMedium
	case CategoryBudgetWarning:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// FallbackAnalysis - 모델 호출 실패 시 결정적으로 생성되는 분석 결과
func FallbackAnalysis(cls Classification, reason string) AnalysisResult {
	return AnalysisResult{
		RootCause:      RootCauseUnavailable,
		Severity:       DefaultSeverity(cls),
		Diagnostics:    []Diagnostic{},
		Remediation:    []Remediation{{Action: ManualInvestigation, Priority: SeverityHigh}},
		CommonCauses:   []string{},
		Degraded:       true,
		DegradedReason: reason,
	}
}

// SkippedAnalysis - 라우팅 정책상 분석하지 않는 알림 (원본 알림만 전달)
func SkippedAnalysis(cls Classification) AnalysisResult {
	return AnalysisResult{
		RootCause:    RootCauseSkipped,
		Severity:     DefaultSeverity(cls),
		Diagnostics:  []Diagnostic{},
		Remediation:  []Remediation{},
		CommonCauses: []string{},
		Skipped:      true,
	}
}
