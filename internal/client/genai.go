// Gemini API(google.golang.org/genai)로 분석 요청을 보내는 모델 클라이언트
//
// 환경변수:
//   - AI_API_KEY: Gemini API Key
//   - LLM_MODEL_ID (default: gemini-2.5-flash)
//   - LLM_TEMPERATURE (default: 0.3)
//
// 재시도 판단은 service.Analyzer에서 하며, 여기서는 재시도 가능한 에러를
// model.ErrModelTransient로 감싸서 반환만 함

package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kube-rca/alert-analyzer/internal/config"
	"github.com/kube-rca/alert-analyzer/internal/model"
	"google.golang.org/genai"
)

// GenAIClient 구조체 정의
type GenAIClient struct {
	models      generator
	modelID     string
	temperature float32
}

// generator - genai.Models 중 GenerateContent만 사용 (테스트 대체용)
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenAIClient 객체 생성
func NewGenAIClient(ctx context.Context, cfg config.ModelConfig) (*GenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing AI_API_KEY")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GenAIClient{
		models:      c.Models,
		modelID:     cfg.ModelID,
		temperature: float32(cfg.Temperature),
	}, nil
}

// Complete - 프롬프트 1회 호출 (재시도 없음)
func (c *GenAIClient) Complete(ctx context.Context, req model.ModelRequest) (model.ModelResponse, error) {
	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	}
	if req.MaxOutputTokens > 0 {
		genCfg.MaxOutputTokens = int32(req.MaxOutputTokens)
	}

	resp, err := c.models.GenerateContent(ctx, c.modelID, genai.Text(req.Prompt), genCfg)
	if err != nil {
		return model.ModelResponse{}, classifyGenAIError(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return model.ModelResponse{}, fmt.Errorf("empty model response")
	}
	return model.ModelResponse{Content: text}, nil
}

// ModelID - 사용 중인 모델 ID
func (c *GenAIClient) ModelID() string {
	return c.modelID
}

func classifyGenAIError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if isTransientStatus(apiErr.Code) {
			return fmt.Errorf("genai status %d: %v: %w", apiErr.Code, err, model.ErrModelTransient)
		}
		return fmt.Errorf("genai status %d: %w", apiErr.Code, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("genai request failed: %v: %w", err, model.ErrModelTransient)
	}
	return fmt.Errorf("genai request failed: %w", err)
}

// 429, 5xx만 재시도 대상
func isTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
