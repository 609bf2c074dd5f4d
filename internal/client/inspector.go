// 읽기 전용 inspection 서비스 클라이언트
// 진단 도구(internal/tool)가 클라우드 리소스를 조회할 때 사용
//
// 환경변수:
//   - INSPECTOR_URL: inspection 서비스 URL
//   - INSPECTOR_TOKEN: Bearer 토큰 (선택)
//
// 요청/응답:
//   - POST {base}/v1/inspect/{operation}  body: 도구 인자
//   - 성공: {"data": {...}}
//   - 실패: {"error": "..."}

package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kube-rca/alert-analyzer/internal/config"
)

// InspectorClient 구조체 정의
type InspectorClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type inspectResponse struct {
	Data  map[string]any `json:"data"`
	Error string         `json:"error,omitempty"`
}

// InspectorClient 객체 생성
func NewInspectorClient(cfg config.InspectorConfig) *InspectorClient {
	return &InspectorClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Inspection 서비스 설정 여부 체크
func (c *InspectorClient) IsConfigured() bool {
	return c.baseURL != ""
}

// Inspect - operation 1회 호출
func (c *InspectorClient) Inspect(ctx context.Context, operation string, args map[string]any) (map[string]any, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("inspector URL not configured")
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	if args == nil {
		args = map[string]any{}
	}

	var resp inspectResponse
	endpoint := c.baseURL + "/v1/inspect/" + url.PathEscape(operation)
	if _, err := postJSON(ctx, c.httpClient, endpoint, header, args, &resp); err != nil {
		return nil, fmt.Errorf("inspect %s: %w", operation, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("inspect %s: %s", operation, resp.Error)
	}
	if resp.Data == nil {
		resp.Data = map[string]any{}
	}
	return resp.Data, nil
}
