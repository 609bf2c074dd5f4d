// 분석 결과 -> Block Kit 메시지 변환 (Response Formatter)
//
// I/O 없음. 같은 입력이면 항상 같은 메시지(dedupe_key 포함)를 반환
// 블록 구성:
//   - header: 심각도 표시 + 분류 제목
//   - fields: 분류 metadata
//   - root cause / diagnostics / remediation / common causes
//   - context: 도구 실행 요약, 분석 상태(degraded, skipped, model)

package service

import (
	"fmt"
	"strings"

	"github.com/kube-rca/alert-analyzer/internal/model"
	tmpl "github.com/kube-rca/alert-analyzer/internal/template"
)

// Block Kit 크기 제한
const (
	maxHeaderChars  = 150
	maxSectionChars = 3000
	maxFieldChars   = 2000
	maxFields       = 10
	maxBlocks       = 50
	maxFieldValue   = 200
	maxDiagnostics  = 5
	maxRemediation  = 5
)

var severityEmoji = map[model.Severity]string{
	model.SeverityHigh:   "🔴",
	model.SeverityMedium: "🟡",
	model.SeverityLow:    "🔵",
}

var categoryTitle = map[model.Category]string{
	model.CategoryBudgetWarning:  "Budget warning",
	model.CategoryBudgetCritical: "Budget critical",
	model.CategoryMetricAlarm:    "Metric alarm",
	model.CategoryCustomError:    "Custom error",
	model.CategoryUnclassified:   "Unclassified alert",
}

// Formatter 구조체 정의
type Formatter struct {
	fallbackTemplate string
}

// NewFormatter - Formatter 객체 생성 (빈 템플릿이면 기본 fallback 문구 사용)
func NewFormatter(fallbackTemplate string) *Formatter {
	return &Formatter{fallbackTemplate: fallbackTemplate}
}

// Title - 분류 제목 (예: "Budget warning: Monthly")
func Title(cls model.Classification) string {
	title, ok := categoryTitle[cls.Category]
	if !ok {
		title = string(cls.Category)
	}
	for _, key := range []string{"budget_name", "alarm_name", "detail_type"} {
		if subject := cls.Metadata.Text(key); subject != "" {
			if cls.Category == model.CategoryBudgetWarning || cls.Category == model.CategoryBudgetCritical {
				if threshold := cls.Metadata.Text("threshold"); threshold != "" {
					return fmt.Sprintf("%s: %s at %s%%", title, subject, threshold)
				}
			}
			return title + ": " + subject
		}
	}
	return title
}

// Format - 분류 + 분석 결과로 메시지 생성
func (f *Formatter) Format(cls model.Classification, analysis model.AnalysisResult) model.OutboundMessage {
	return f.FormatWithContext(cls, analysis, model.DiagnosticContext{})
}

// FormatWithContext - 진단 컨텍스트 요약을 포함한 메시지 생성
func (f *Formatter) FormatWithContext(cls model.Classification, analysis model.AnalysisResult, dc model.DiagnosticContext) model.OutboundMessage {
	title := Title(cls)
	dedupeKey := model.DedupeKey(cls.Event)

	blocks := make([]model.Block, 0, 12)

	emoji := severityEmoji[analysis.Severity]
	if emoji == "" {
		emoji = severityEmoji[model.SeverityLow]
	}
	blocks = append(blocks, model.Block{
		Type: model.BlockHeader,
		Text: &model.TextObject{Type: "plain_text", Text: limitText(emoji+" "+title, maxHeaderChars), Emoji: true},
	})

	if fields := metadataFields(cls.Metadata); len(fields) > 0 {
		blocks = append(blocks, model.Block{Type: model.BlockSection, Fields: fields})
	}
	if raw := cls.Metadata.Text("raw"); raw != "" {
		blocks = append(blocks, section("*Payload*\n```"+limitText(raw, maxSectionChars-32)+"```"))
	}
	if len(cls.Ambiguous) > 0 {
		blocks = append(blocks, contextBlock("Also matched: "+strings.Join(cls.Ambiguous, ", ")))
	}

	blocks = append(blocks, model.Block{Type: model.BlockDivider})
	blocks = append(blocks, section("*Root cause*\n"+analysis.RootCause))

	if len(analysis.Diagnostics) > 0 {
		var b strings.Builder
		b.WriteString("*Diagnostics*")
		for i, d := range analysis.Diagnostics {
			if i >= maxDiagnostics {
				break
			}
			fmt.Fprintf(&b, "\n• `%s`", d.Command)
			if d.Purpose != "" {
				b.WriteString(" - ")
				b.WriteString(d.Purpose)
			}
		}
		blocks = append(blocks, section(b.String()))
	}

	if len(analysis.Remediation) > 0 {
		var b strings.Builder
		b.WriteString("*Remediation*")
		for i, r := range analysis.Remediation {
			if i >= maxRemediation {
				break
			}
			fmt.Fprintf(&b, "\n• [%s] %s", strings.ToUpper(string(r.Priority)), r.Action)
		}
		blocks = append(blocks, section(b.String()))
	}

	if len(analysis.CommonCauses) > 0 {
		var b strings.Builder
		b.WriteString("*Common causes*")
		for i, c := range analysis.CommonCauses {
			if i >= maxCommonCauses {
				break
			}
			b.WriteString("\n• ")
			b.WriteString(c)
		}
		blocks = append(blocks, section(b.String()))
	}

	if summary := contextSummary(dc); summary != "" {
		blocks = append(blocks, contextBlock(summary))
	}
	blocks = append(blocks, contextBlock(footer(cls, analysis, dedupeKey)))

	if len(blocks) > maxBlocks {
		blocks = blocks[:maxBlocks]
	}

	alertData := tmpl.AlertDataFromClassification(cls, title, dedupeKey)
	analysisData := tmpl.AnalysisDataFromResult(analysis)

	return model.OutboundMessage{
		Blocks:       blocks,
		FallbackText: limitText(tmpl.RenderText(f.fallbackTemplate, &alertData, &analysisData), maxSectionChars),
		DedupeKey:    dedupeKey,
	}
}

func section(text string) model.Block {
	return model.Block{
		Type: model.BlockSection,
		Text: &model.TextObject{Type: "mrkdwn", Text: limitText(text, maxSectionChars)},
	}
}

func contextBlock(text string) model.Block {
	return model.Block{
		Type:     model.BlockContext,
		Elements: []model.TextObject{{Type: "mrkdwn", Text: limitText(text, maxSectionChars)}},
	}
}

// metadataFields - raw를 제외한 metadata를 키 순서대로 최대 10개 필드로 변환
func metadataFields(md model.Metadata) []model.TextObject {
	fields := make([]model.TextObject, 0, maxFields)
	for _, key := range md.Keys() {
		if key == "raw" {
			continue
		}
		value := md.Text(key)
		if value == "" {
			continue
		}
		if len(fields) >= maxFields {
			break
		}
		text := fmt.Sprintf("*%s*\n%s", key, limitText(value, maxFieldValue))
		fields = append(fields, model.TextObject{Type: "mrkdwn", Text: limitText(text, maxFieldChars)})
	}
	return fields
}

// contextSummary - 도구 실행 결과 요약 (빈 컨텍스트면 빈 문자열)
func contextSummary(dc model.DiagnosticContext) string {
	if dc.Len() == 0 {
		return ""
	}
	failed := dc.Failed()
	summary := fmt.Sprintf("Context: %d tool(s), %d ok, %d failed", dc.Len(), dc.Len()-failed, failed)
	if failed == 0 {
		return summary
	}

	reasons := make([]string, 0, failed)
	for _, e := range dc.Entries() {
		if !e.Result.OK {
			reasons = append(reasons, e.Tool+": "+e.Result.Reason)
		}
	}
	return summary + " (" + strings.Join(reasons, ", ") + ")"
}

func footer(cls model.Classification, analysis model.AnalysisResult, dedupeKey string) string {
	var parts []string
	switch {
	case analysis.Skipped:
		parts = append(parts, "Analysis skipped by routing policy")
	case analysis.Degraded:
		parts = append(parts, "⚠️ Degraded analysis ("+analysis.DegradedReason+")")
	case analysis.Model != "":
		parts = append(parts, "Analyzed by "+analysis.Model)
	}
	rule := cls.Rule
	if rule == "" {
		rule = string(cls.Confidence)
	}
	if rule != "" {
		parts = append(parts, "rule "+rule)
	}
	parts = append(parts, "key "+dedupeKey)
	return strings.Join(parts, " | ")
}

// limitText - 결과가 max 글자(rune)를 넘지 않도록 자름
func limitText(s string, max int) string {
	if len([]rune(s)) <= max {
		return s
	}
	return truncate(s, max-3)
}
