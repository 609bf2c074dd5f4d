package mcpserver

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kube-rca/alert-analyzer/internal/tool"
)

type stubTool struct {
	name string
	fn   func(ctx context.Context, args tool.Args) (map[string]any, error)
}

func (s stubTool) Name() string { return s.name }

func (s stubTool) Spec() tool.Spec {
	return tool.Spec{
		Name:        s.name,
		Description: "stub " + s.name,
		Params: []tool.Param{
			{Name: "budget_name", Type: tool.ParamString, Required: true},
			{Name: "days", Type: tool.ParamNumber},
			{Name: "services", Type: tool.ParamList},
		},
	}
}

func (s stubTool) Invoke(ctx context.Context, args tool.Args) (map[string]any, error) {
	return s.fn(ctx, args)
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content = %+v", res.Content)
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T", res.Content[0])
	}
	return text.Text
}

func TestToolDefinition(t *testing.T) {
	def := toolDefinition(stubTool{name: "budget_status"}.Spec())

	if def.Name != "budget_status" || def.Description != "stub budget_status" {
		t.Fatalf("definition = %+v", def)
	}
	if len(def.InputSchema.Required) != 1 || def.InputSchema.Required[0] != "budget_name" {
		t.Fatalf("required = %v", def.InputSchema.Required)
	}
	for _, name := range []string{"budget_name", "days", "services"} {
		if _, ok := def.InputSchema.Properties[name]; !ok {
			t.Fatalf("property %s missing", name)
		}
	}
}

func TestHandlerInvokesTool(t *testing.T) {
	var got tool.Args
	registry, err := tool.NewRegistry(stubTool{name: "budget_status", fn: func(_ context.Context, args tool.Args) (map[string]any, error) {
		got = args
		return map[string]any{"actual": 850.0}, nil
	}})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	s := New(registry, time.Second)

	res, err := s.handler("budget_status")(context.Background(), callRequest("budget_status", map[string]any{"budget_name": "Monthly", "days": 7.0}))
	if err != nil || res.IsError {
		t.Fatalf("handler() = %+v, %v", res, err)
	}
	if text := resultText(t, res); text != `{"data":{"actual":850}}` {
		t.Fatalf("result = %s", text)
	}
	if got.String("budget_name") != "Monthly" || got.Int("days", 0, 0, 30) != 7 {
		t.Fatalf("args = %v", got)
	}
}

func TestHandlerToolFailure(t *testing.T) {
	registry, _ := tool.NewRegistry(stubTool{name: "cost_breakdown", fn: func(ctx context.Context, _ tool.Args) (map[string]any, error) {
		<-ctx.Done()
		return nil, errors.New("AccessDenied")
	}})
	s := New(registry, 10*time.Millisecond)

	res, err := s.handler("cost_breakdown")(context.Background(), callRequest("cost_breakdown", nil))
	if err != nil {
		t.Fatalf("protocol error = %v", err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "AccessDenied") {
		t.Fatalf("result = %+v", res)
	}

	res, _ = s.handler("missing")(context.Background(), callRequest("missing", nil))
	if !res.IsError {
		t.Fatalf("unregistered tool returned success")
	}
}
