package service

import (
	"regexp"
	"strings"
)

var (
	boldPattern    = regexp.MustCompile(`\*\*([^*\n]+?)\*\*`)
	headingPattern = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*#*$`)
)

// toSlackMarkdown - 모델이 쓰는 Markdown을 Slack mrkdwn으로 변환
//   - **bold** -> *bold*
//   - ### heading -> *heading*
//
// 코드 블록(```)과 인라인 코드(`)는 변환하지 않음
func toSlackMarkdown(s string) string {
	if s == "" {
		return s
	}

	lines := strings.Split(s, "\n")
	inCodeBlock := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCodeBlock = !inCodeBlock
			continue
		}
		if inCodeBlock {
			continue
		}
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			lines[i] = "*" + strings.ReplaceAll(m[1], "**", "") + "*"
			continue
		}
		lines[i] = convertInline(line)
	}
	return strings.Join(lines, "\n")
}

// convertInline - 인라인 코드 구간은 건너뛰고 bold만 변환
func convertInline(line string) string {
	parts := strings.Split(line, "`")
	for i := range parts {
		// 짝수 index가 코드 밖 (닫히지 않은 ` 뒤는 코드로 취급)
		if i%2 == 0 {
			parts[i] = boldPattern.ReplaceAllString(parts[i], "*$1*")
		}
	}
	return strings.Join(parts, "`")
}
