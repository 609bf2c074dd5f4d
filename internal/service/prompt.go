package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kube-rca/alert-analyzer/internal/model"
)

const omittedMarker = `{"omitted":"size_limit"}`

const promptInstructions = `You are an SRE assistant analyzing an infrastructure alert.
Use the alert metadata and the diagnostic context below. Tool entries with "ok": false failed;
do not invent data for them. Respond with a single JSON object and nothing else:
{
  "root_cause": "one or two sentences",
  "severity": "high|medium|low",
  "diagnostics": [{"command": "read-only command to run", "purpose": "what it shows"}],
  "remediation": [{"action": "what to do", "priority": "high|medium|low"}],
  "common_causes": ["short cause"]
}
Limit diagnostics and remediation to 5 items and common_causes to 3 items.`

// BuildPrompt - 분류/metadata/진단 컨텍스트로 프롬프트 생성
//
// maxBytes를 넘지 않도록 도구 결과를 우선순위(선택 순서) 순으로 채우고,
// 들어가지 않는 항목은 {"omitted":"size_limit"}로 대체 (JSON을 자르지 않음)
// 헤더만으로도 넘치면 metadata를 키 단위로 생략
func BuildPrompt(cls model.Classification, dc model.DiagnosticContext, maxBytes int) string {
	var b strings.Builder
	b.WriteString(promptInstructions)
	b.WriteString("\n\nAlert category: ")
	b.WriteString(string(cls.Category))
	if cls.Rule != "" {
		b.WriteString(" (rule ")
		b.WriteString(cls.Rule)
		b.WriteString(")")
	}
	b.WriteString("\nAlert metadata: ")
	header := b.String()

	footerOpen := "\nDiagnostic context:\n{"
	footerClose := "}\n"

	// metadata: 예산이 모자라면 긴 값(raw 등)부터 생략
	metaJSON := marshalMetadata(cls.Metadata, maxBytes-len(header)-len(footerOpen)-len(footerClose))

	var p strings.Builder
	p.WriteString(header)
	p.WriteString(metaJSON)
	p.WriteString(footerOpen)

	entries := dc.Entries()
	if len(entries) == 0 {
		p.WriteString(footerClose)
		return p.String()
	}

	// 각 항목은 `"name":{...}` 형태로 독립 직렬화
	budget := maxBytes - p.Len() - len(footerClose)
	parts := make([]string, 0, len(entries))
	for i, e := range entries {
		key, _ := json.Marshal(e.Tool)
		sep := ""
		if i > 0 {
			sep = ","
		}

		full := sep + string(key) + ":" + marshalEntry(e)
		// 이후 항목의 marker 자리를 남겨둠
		reserve := 0
		for _, rest := range entries[i+1:] {
			restKey, _ := json.Marshal(rest.Tool)
			reserve += 1 + len(restKey) + 1 + len(omittedMarker)
		}

		if len(full)+reserve <= budget {
			parts = append(parts, full)
			budget -= len(full)
			continue
		}
		marker := sep + string(key) + ":" + omittedMarker
		parts = append(parts, marker)
		budget -= len(marker)
	}

	for _, part := range parts {
		p.WriteString(part)
	}
	p.WriteString(footerClose)
	return p.String()
}

func marshalEntry(e model.ToolInvocation) string {
	data, err := json.Marshal(e.Result)
	if err != nil {
		return fmt.Sprintf(`{"ok":false,"error":%q}`, "unserializable result")
	}
	return string(data)
}

// marshalMetadata - 예산 안에서 metadata 직렬화
// 넘치면 가장 긴 값부터 "omitted"로 바꿈
func marshalMetadata(md model.Metadata, budget int) string {
	if len(md) == 0 {
		return "{}"
	}
	data, err := json.Marshal(md)
	if err != nil {
		return "{}"
	}
	if len(data) <= budget {
		return string(data)
	}

	trimmed := make(model.Metadata, len(md))
	for k, v := range md {
		trimmed[k] = v
	}
	for len(data) > budget {
		longest, size := "", 0
		for _, k := range trimmed.Keys() {
			if s, ok := trimmed[k].(string); ok && len(s) > size && s != "omitted" {
				longest, size = k, len(s)
			}
		}
		if longest == "" {
			break
		}
		trimmed[longest] = "omitted"
		data, _ = json.Marshal(trimmed)
	}
	return string(data)
}
