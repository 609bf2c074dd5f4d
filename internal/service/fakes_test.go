package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/kube-rca/alert-analyzer/internal/model"
	"github.com/kube-rca/alert-analyzer/internal/tool"
)

// fakeTool - Invoke 동작을 함수로 주입하는 테스트용 도구
type fakeTool struct {
	name  string
	fn    func(ctx context.Context, args tool.Args) (map[string]any, error)
	mu    sync.Mutex
	calls int
}

func (f *fakeTool) Name() string { return f.name }

func (f *fakeTool) Spec() tool.Spec { return tool.Spec{Name: f.name} }

func (f *fakeTool) Invoke(ctx context.Context, args tool.Args) (map[string]any, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(ctx, args)
}

func (f *fakeTool) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func okTool(name string, data map[string]any) *fakeTool {
	return &fakeTool{name: name, fn: func(context.Context, tool.Args) (map[string]any, error) {
		return data, nil
	}}
}

// fakeModel - 순서대로 응답/에러를 반환하는 ModelClient
type fakeModel struct {
	mu        sync.Mutex
	responses []fakeModelResponse
	requests  []model.ModelRequest
}

type fakeModelResponse struct {
	content string
	err     error
	block   bool // ctx가 끝날 때까지 대기
	panic   bool
}

func (f *fakeModel) Complete(ctx context.Context, req model.ModelRequest) (model.ModelResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	idx := len(f.requests) - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	r := f.responses[idx]
	f.mu.Unlock()

	if r.panic {
		panic("model exploded")
	}
	if r.block {
		<-ctx.Done()
		return model.ModelResponse{}, ctx.Err()
	}
	if r.err != nil {
		return model.ModelResponse{}, r.err
	}
	return model.ModelResponse{Content: r.content}, nil
}

func (f *fakeModel) Requests() []model.ModelRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.ModelRequest(nil), f.requests...)
}

// fakeSender - 상태 코드를 순서대로 반환하는 Sender
type fakeSender struct {
	mu       sync.Mutex
	statuses []int
	err      error
	sent     []model.OutboundMessage
}

func (f *fakeSender) Send(ctx context.Context, dest model.Destination, msg model.OutboundMessage) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)

	status := 200
	if len(f.statuses) > 0 {
		idx := len(f.sent) - 1
		if idx >= len(f.statuses) {
			idx = len(f.statuses) - 1
		}
		status = f.statuses[idx]
	}
	if f.err != nil {
		return 0, f.err
	}
	if status < 200 || status >= 300 {
		return status, errStatus(status)
	}
	return status, nil
}

func (f *fakeSender) Sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type errStatus int

func (e errStatus) Error() string { return "unexpected status " + strconv.Itoa(int(e)) }

func noSleep(context.Context, time.Duration) error { return nil }

const validModelResponse = "Here is my analysis:\n```json\n" + `{
  "root_cause": "The **checkout-api** deploy at 09:10 introduced a null pointer in the payment path.",
  "severity": "critical",
  "diagnostics": [{"command": "aws logs tail /aws/lambda/checkout-api --since 1h", "purpose": "confirm the stack trace"}],
  "remediation": [{"action": "Roll back to the previous version", "priority": "high"}],
  "common_causes": ["bad deploy"]
}` + "\n```\nLet me know if you need more."
