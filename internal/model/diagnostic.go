package model

import (
	"errors"
	"time"
)

// 도구 실패 사유 (ToolResult.Reason)
const (
	ReasonMissingInput = "missing_input"
	ReasonUnavailable  = "unavailable"
	ReasonTimeout      = "timeout"
)

// ErrMissingInput - 도구 호출에 필요한 인자가 없음
var ErrMissingInput = errors.New(ReasonMissingInput)

// ToolResult - 단일 도구 호출 결과
// success(Data) 또는 failure(Reason) 중 하나
type ToolResult struct {
	OK     bool           `json:"ok"`
	Data   map[string]any `json:"data,omitempty"`
	Reason string         `json:"error,omitempty"`
}

// Success - 성공 결과 생성
func Success(data map[string]any) ToolResult {
	if data == nil {
		data = map[string]any{}
	}
	return ToolResult{OK: true, Data: data}
}

// Failure - 실패 결과 생성
func Failure(reason string) ToolResult {
	if reason == "" {
		reason = "unknown error"
	}
	return ToolResult{OK: false, Reason: reason}
}

// ToolInvocation - 도구 호출 1건
// 다른 호출의 성공/실패와 무관하게 독립적으로 기록됨
type ToolInvocation struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Result    ToolResult     `json:"result"`
	Duration  time.Duration  `json:"-"`
}

// DiagnosticContext - 분류 1건에 대해 수집한 진단 컨텍스트
// 순서는 선택 정책(priority) 순서이며 완료 순서와 무관
type DiagnosticContext struct {
	entries []ToolInvocation
}

// NewDiagnosticContext - 선택 순서대로 정렬된 호출 목록으로 컨텍스트 생성
func NewDiagnosticContext(entries []ToolInvocation) DiagnosticContext {
	copied := make([]ToolInvocation, len(entries))
	copy(copied, entries)
	return DiagnosticContext{entries: copied}
}

// Entries - 전체 호출 목록 (복사본)
func (d DiagnosticContext) Entries() []ToolInvocation {
	out := make([]ToolInvocation, len(d.entries))
	copy(out, d.entries)
	return out
}

// Get - 도구 이름으로 조회
func (d DiagnosticContext) Get(tool string) (ToolInvocation, bool) {
	for _, e := range d.entries {
		if e.Tool == tool {
			return e, true
		}
	}
	return ToolInvocation{}, false
}

// Len - 호출 수
func (d DiagnosticContext) Len() int {
	return len(d.entries)
}

// Failed - 실패한 호출 수
func (d DiagnosticContext) Failed() int {
	n := 0
	for _, e := range d.entries {
		if !e.Result.OK {
			n++
		}
	}
	return n
}

// AllFailed - 모든 호출이 실패했는지 (빈 컨텍스트는 false)
func (d DiagnosticContext) AllFailed() bool {
	return len(d.entries) > 0 && d.Failed() == len(d.entries)
}
