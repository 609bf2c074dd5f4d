// 읽기 전용 진단 도구(Tool) 인터페이스 및 인자 타입 정의
//
// 흐름:
//   - main(cli)에서 Registry 생성 후 도구 등록 (시작 시 1회)
//   - Gatherer가 SelectionTable에 따라 Registry에서 도구를 찾아 Invoke 호출
//   - MCP 서버가 같은 Registry를 외부 에이전트에 노출
//
// 모든 도구는 부수효과가 없어야 하며, 실패는 error로만 반환함

package tool

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kube-rca/alert-analyzer/internal/model"
)

// ParamType - 도구 인자 타입
type ParamType string

const (
	ParamString ParamType = "string"
	ParamNumber ParamType = "number"
	ParamList   ParamType = "array"
)

// Param - 도구 인자 명세
type Param struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description"`
	Required    bool      `json:"required,omitempty"`
}

// Spec - 도구 명세 (CLI tools 목록, MCP 등록에 사용)
type Spec struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params,omitempty"`
}

// Tool - 읽기 전용 진단 도구
type Tool interface {
	Name() string
	Spec() Spec
	Invoke(ctx context.Context, args Args) (map[string]any, error)
}

// Args - 도구 호출 인자
type Args map[string]any

// String - 문자열 인자 조회
func (a Args) String(key string) string {
	switch v := a[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// RequireString - 필수 문자열 인자 (없으면 ErrMissingInput)
func (a Args) RequireString(key string) (string, error) {
	s := a.String(key)
	if s == "" {
		return "", fmt.Errorf("%s: %w", key, model.ErrMissingInput)
	}
	return s, nil
}

// Int - 정수 인자 조회 후 [lo, hi] 범위로 보정
// 값이 없거나 숫자가 아니면 def 사용
func (a Args) Int(key string, def, lo, hi int) int {
	n := def
	switch v := a[key].(type) {
	case int:
		n = v
	case int32:
		n = int(v)
	case int64:
		n = int(v)
	case float64:
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			n = int(v)
		}
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			n = parsed
		}
	}
	return clamp(n, lo, hi)
}

// Strings - 문자열 목록 인자 조회 (콤마 구분 문자열도 허용)
func (a Args) Strings(key string) []string {
	var out []string
	switch v := a[key].(type) {
	case []string:
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
