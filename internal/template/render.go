// 전송 메시지 fallback text 렌더링
//
// 지원하는 변수 형식:
//
//	{{alert.title}}, {{alert.category}}, {{alert.source}},
//	{{alert.rule}}, {{alert.dedupe_key}}, {{alert.received_at}}
//
//	{{analysis.root_cause}}, {{analysis.severity}}, {{analysis.status}}
package template

import (
	"strings"
	"time"

	"github.com/kube-rca/alert-analyzer/internal/model"
)

// DefaultFallbackText - FALLBACK_TEXT_TEMPLATE 미설정 시 사용
const DefaultFallbackText = "[{{analysis.severity}}] {{alert.title}}: {{analysis.root_cause}}"

// AlertData - 템플릿 렌더링에 사용할 알림 데이터
type AlertData struct {
	Title      string
	Category   string
	Source     string
	Rule       string
	DedupeKey  string
	ReceivedAt time.Time
}

// AnalysisData - 템플릿 렌더링에 사용할 분석 데이터
type AnalysisData struct {
	RootCause string
	Severity  string
	Status    string
}

// AlertDataFromClassification - Classification에서 AlertData 생성
func AlertDataFromClassification(cls model.Classification, title, dedupeKey string) AlertData {
	return AlertData{
		Title:      title,
		Category:   string(cls.Category),
		Source:     string(cls.Event.Source),
		Rule:       cls.Rule,
		DedupeKey:  dedupeKey,
		ReceivedAt: cls.Event.ReceivedAt,
	}
}

// AnalysisDataFromResult - AnalysisResult에서 AnalysisData 생성
//   - status: analyzed / degraded / skipped
func AnalysisDataFromResult(res model.AnalysisResult) AnalysisData {
	status := "analyzed"
	switch {
	case res.Skipped:
		status = "skipped"
	case res.Degraded:
		status = "degraded"
	}
	return AnalysisData{
		RootCause: res.RootCause,
		Severity:  string(res.Severity),
		Status:    status,
	}
}

// RenderText - 템플릿의 변수를 실제 값으로 치환
//
// alert 또는 analysis 중 하나만 전달해도 동작합니다.
// nil로 전달된 항목의 변수는 빈 문자열로 치환됩니다.
// body가 비어 있으면 DefaultFallbackText를 사용합니다.
func RenderText(body string, alert *AlertData, analysis *AnalysisData) string {
	if strings.TrimSpace(body) == "" {
		body = DefaultFallbackText
	}
	pairs := make([]string, 0, 18)

	// --- Alert 변수 ---
	if alert != nil {
		receivedAt := ""
		if !alert.ReceivedAt.IsZero() {
			receivedAt = alert.ReceivedAt.UTC().Format(time.RFC3339)
		}
		pairs = append(pairs,
			"{{alert.title}}", alert.Title,
			"{{alert.category}}", alert.Category,
			"{{alert.source}}", alert.Source,
			"{{alert.rule}}", alert.Rule,
			"{{alert.dedupe_key}}", alert.DedupeKey,
			"{{alert.received_at}}", receivedAt,
		)
	} else {
		pairs = append(pairs,
			"{{alert.title}}", "",
			"{{alert.category}}", "",
			"{{alert.source}}", "",
			"{{alert.rule}}", "",
			"{{alert.dedupe_key}}", "",
			"{{alert.received_at}}", "",
		)
	}

	// --- Analysis 변수 ---
	if analysis != nil {
		pairs = append(pairs,
			"{{analysis.root_cause}}", analysis.RootCause,
			"{{analysis.severity}}", analysis.Severity,
			"{{analysis.status}}", analysis.Status,
		)
	} else {
		pairs = append(pairs,
			"{{analysis.root_cause}}", "",
			"{{analysis.severity}}", "",
			"{{analysis.status}}", "",
		)
	}

	return strings.NewReplacer(pairs...).Replace(body)
}
