package service

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kube-rca/alert-analyzer/internal/model"
)

// 포맷터의 섹션 크기 제한 안에 그대로 들어가도록 파싱 시점에 자름
const (
	maxRootCauseChars = 2500
	maxItemChars      = 300
	maxListItems      = 5
	maxCommonCauses   = 3
)

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

type rawAnalysis struct {
	RootCause    string            `json:"root_cause"`
	Severity     string            `json:"severity"`
	Diagnostics  []json.RawMessage `json:"diagnostics"`
	Remediation  []json.RawMessage `json:"remediation"`
	CommonCauses []any             `json:"common_causes"`
}

// ParseOrFallback - 모델 응답에서 JSON 분석 결과 추출
// 실패해도 panic/에러 없이 OK=false와 사유를 반환
func ParseOrFallback(content string) model.ParsedAnalysis {
	candidate, ok := extractJSONObject(content)
	if !ok {
		return model.ParsedAnalysis{Reason: "no JSON object in model response"}
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return model.ParsedAnalysis{Reason: "invalid JSON: " + err.Error()}
	}

	rootCause := strings.TrimSpace(toSlackMarkdown(raw.RootCause))
	if rootCause == "" {
		return model.ParsedAnalysis{Reason: "missing root_cause"}
	}

	result := model.AnalysisResult{
		RootCause:    truncate(rootCause, maxRootCauseChars),
		Severity:     normalizeSeverity(raw.Severity, ""),
		Diagnostics:  []model.Diagnostic{},
		Remediation:  []model.Remediation{},
		CommonCauses: []string{},
	}

	for _, item := range raw.Diagnostics {
		if len(result.Diagnostics) >= maxListItems {
			break
		}
		if d, ok := parseDiagnostic(item); ok {
			result.Diagnostics = append(result.Diagnostics, d)
		}
	}
	for _, item := range raw.Remediation {
		if len(result.Remediation) >= maxListItems {
			break
		}
		if r, ok := parseRemediation(item); ok {
			result.Remediation = append(result.Remediation, r)
		}
	}
	for _, item := range raw.CommonCauses {
		if len(result.CommonCauses) >= maxCommonCauses {
			break
		}
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			result.CommonCauses = append(result.CommonCauses, truncate(toSlackMarkdown(strings.TrimSpace(s)), maxItemChars))
		}
	}

	return model.ParsedAnalysis{OK: true, Result: result}
}

// extractJSONObject - ```json 블록 우선, 없으면 첫 번째 균형 잡힌 {...}
func extractJSONObject(content string) (string, bool) {
	if m := fencedJSONPattern.FindStringSubmatch(content); m != nil && json.Valid([]byte(m[1])) {
		return m[1], true
	}

	for start := strings.IndexByte(content, '{'); start >= 0; {
		if end := matchBrace(content, start); end > start {
			candidate := content[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(content[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// matchBrace - start의 '{'와 짝이 맞는 '}' 위치 (문자열 내부 괄호는 무시)
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func parseDiagnostic(raw json.RawMessage) (model.Diagnostic, bool) {
	var obj struct {
		Command string `json:"command"`
		Purpose string `json:"purpose"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil || strings.TrimSpace(s) == "" {
			return model.Diagnostic{}, false
		}
		obj.Command = s
	}
	if strings.TrimSpace(obj.Command) == "" {
		return model.Diagnostic{}, false
	}
	return model.Diagnostic{
		Command: truncate(strings.TrimSpace(obj.Command), maxItemChars),
		Purpose: truncate(toSlackMarkdown(strings.TrimSpace(obj.Purpose)), maxItemChars),
	}, true
}

func parseRemediation(raw json.RawMessage) (model.Remediation, bool) {
	var obj struct {
		Action   string `json:"action"`
		Priority string `json:"priority"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return model.Remediation{}, false
		}
		obj.Action = s
	}
	if strings.TrimSpace(obj.Action) == "" {
		return model.Remediation{}, false
	}
	return model.Remediation{
		Action:   truncate(toSlackMarkdown(strings.TrimSpace(obj.Action)), maxItemChars),
		Priority: normalizeSeverity(obj.Priority, model.SeverityMedium),
	}, true
}

// normalizeSeverity - 모델이 준 심각도를 high/medium/low로 정규화
// 해석할 수 없으면 def (빈 값이면 Analyzer가 분류 기본값으로 채움)
func normalizeSeverity(s string, def model.Severity) model.Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "critical", "error", "p1":
		return model.SeverityHigh
	case "medium", "warning", "moderate", "p2":
		return model.SeverityMedium
	case "low", "info", "p3":
		return model.SeverityLow
	default:
		return def
	}
}
