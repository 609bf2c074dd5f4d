// 읽기 전용 진단 도구를 MCP(stdio)로 노출
//
// 흐름:
//   - Registry의 도구 명세(Spec)를 MCP 도구 정의로 변환해 등록
//   - 호출 시 인자를 tool.Args로 넘겨 Invoke, 결과는 JSON 텍스트로 반환
//   - 도구 실패는 MCP 에러 결과로 반환 (프로토콜 에러 아님)

package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kube-rca/alert-analyzer/internal/tool"
)

const (
	serverName    = "alert-analyzer-tools"
	serverVersion = "1.0.0"
)

// Server - 진단 도구 MCP 서버
type Server struct {
	mcpServer   *server.MCPServer
	registry    *tool.Registry
	toolTimeout time.Duration
}

// New - Registry의 모든 도구를 등록한 MCP 서버 생성
func New(registry *tool.Registry, toolTimeout time.Duration) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			serverName,
			serverVersion,
			server.WithToolCapabilities(false),
		),
		registry:    registry,
		toolTimeout: toolTimeout,
	}
	for _, spec := range registry.Specs() {
		s.mcpServer.AddTool(toolDefinition(spec), s.handler(spec.Name))
	}
	return s
}

// Run - stdio로 서버 실행 (stdin이 닫힐 때까지 블록)
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// toolDefinition - Spec -> MCP 도구 정의
func toolDefinition(spec tool.Spec) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(spec.Description),
		mcp.WithReadOnlyHintAnnotation(true),
	}
	for _, p := range spec.Params {
		propOpts := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			propOpts = append(propOpts, mcp.Required())
		}
		switch p.Type {
		case tool.ParamNumber:
			opts = append(opts, mcp.WithNumber(p.Name, propOpts...))
		case tool.ParamList:
			opts = append(opts, mcp.WithArray(p.Name, append(propOpts, mcp.WithStringItems())...))
		default:
			opts = append(opts, mcp.WithString(p.Name, propOpts...))
		}
	}
	return mcp.NewTool(spec.Name, opts...)
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		t, ok := s.registry.Get(name)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("tool %s not registered", name)), nil
		}

		if s.toolTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.toolTimeout)
			defer cancel()
		}

		data, err := t.Invoke(ctx, tool.Args(request.GetArguments()))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", name, err)), nil
		}

		body, err := json.Marshal(map[string]any{"data": data})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}
