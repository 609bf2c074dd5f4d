// 외부 추론(Agent) 서비스와 HTTP 통신하는 모델 클라이언트 정의
//
// 환경변수:
//   - AGENT_URL: Agent 서비스 URL (예: http://alert-agent.monitoring.svc:8000)
//   - MODEL_PROVIDER=agent 일 때 GenAIClient 대신 사용
//
// Agent에 전달하는 데이터:
//   - prompt: 분류/metadata/진단 컨텍스트로 만든 프롬프트
//   - max_output_tokens: 응답 토큰 상한

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kube-rca/alert-analyzer/internal/config"
	"github.com/kube-rca/alert-analyzer/internal/model"
)

// 에러 응답 본문은 로그용으로 앞부분만 읽음
const maxErrorBody = 1024

// AgentClient 구조체 정의
type AgentClient struct {
	baseURL    string
	httpClient *http.Client
}

// AgentClient 객체 생성
// 호출별 timeout은 service.Analyzer의 context로 제어
func NewAgentClient(cfg config.AgentConfig) *AgentClient {
	return &AgentClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // AI 분석 시간 고려
		},
	}
}

// Agent 설정 여부 체크
func (c *AgentClient) IsConfigured() bool {
	return c.baseURL != ""
}

// POST /v1/complete 분석 요청 (동기, 재시도 없음)
func (c *AgentClient) Complete(ctx context.Context, req model.ModelRequest) (model.ModelResponse, error) {
	if !c.IsConfigured() {
		return model.ModelResponse{}, fmt.Errorf("agent URL not configured")
	}

	var out model.ModelResponse
	status, err := postJSON(ctx, c.httpClient, c.baseURL+"/v1/complete", nil, req, &out)
	if err != nil {
		if isTransientStatus(status) || isNetworkError(err) {
			return model.ModelResponse{}, fmt.Errorf("agent complete: %v: %w", err, model.ErrModelTransient)
		}
		return model.ModelResponse{}, fmt.Errorf("agent complete: %w", err)
	}
	if strings.TrimSpace(out.Content) == "" {
		return model.ModelResponse{}, fmt.Errorf("empty agent response")
	}
	return out, nil
}

// postJSON - JSON 요청 전송 후 2xx면 응답을 out에 파싱
// 반환하는 status는 응답을 받지 못한 경우 0
func postJSON(ctx context.Context, httpClient *http.Client, url string, header http.Header, body, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, values := range header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, fmt.Errorf("returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
	}
	return resp.StatusCode, nil
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
