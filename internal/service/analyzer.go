// 분류 + 진단 컨텍스트 -> LLM 분석 (Analysis Engine)
//
// 흐름:
//   - BuildPrompt로 크기 제한된 프롬프트 생성
//   - ModelClient 호출 (시도별 timeout, 재시도 가능한 에러만 backoff 후 재시도)
//   - ParseOrFallback으로 JSON 분석 결과 추출
//
// 어떤 실패든 degraded fallback 결과로 변환되며 Analyze는 에러/패닉을 밖으로 내보내지 않음

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kube-rca/alert-analyzer/internal/model"
)

// ModelClient - LLM 호출 인터페이스 (client.GenAIClient, client.AgentClient)
type ModelClient interface {
	Complete(ctx context.Context, req model.ModelRequest) (model.ModelResponse, error)
}

// AnalysisObserver - 분석 결과 관측 (metrics)
//   - outcome: ok 또는 degraded 사유
type AnalysisObserver interface {
	ObserveAnalysis(outcome string, attempts int, duration time.Duration)
}

// AnalyzerConfig - 모델 호출 설정
type AnalyzerConfig struct {
	ModelName       string
	MaxPromptBytes  int
	MaxOutputTokens int
	Timeout         time.Duration
	MaxRetries      int
	BaseBackoff     time.Duration
	MaxBackoff      time.Duration
}

// Analyzer 구조체 정의
type Analyzer struct {
	client   ModelClient
	cfg      AnalyzerConfig
	observer AnalysisObserver
	sleep    sleepFunc
}

// NewAnalyzer - Analyzer 객체 생성
// client가 nil이면 모든 분석이 model_error fallback으로 처리됨
func NewAnalyzer(client ModelClient, cfg AnalyzerConfig, observer AnalysisObserver) *Analyzer {
	if cfg.MaxPromptBytes <= 0 {
		cfg.MaxPromptBytes = 24000
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 2000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 8 * time.Second
	}
	return &Analyzer{
		client:   client,
		cfg:      cfg,
		observer: observer,
		sleep:    sleepContext,
	}
}

// Analyze - 분석 결과 생성 (항상 well-formed 결과 반환)
func (a *Analyzer) Analyze(ctx context.Context, cls model.Classification, dc model.DiagnosticContext) model.AnalysisResult {
	start := time.Now()

	if a.client == nil {
		log.Printf("[Analyzer] Model client not configured (category=%s)", cls.Category)
		return a.fallback(cls, model.DegradedModelError, 0, start)
	}

	if dc.AllFailed() {
		log.Printf("[Analyzer] Proceeding with category and metadata only (all %d tools failed)", dc.Len())
	}

	req := model.ModelRequest{
		Prompt:          BuildPrompt(cls, dc, a.cfg.MaxPromptBytes),
		MaxOutputTokens: a.cfg.MaxOutputTokens,
	}

	resp, attempts, reason := a.complete(ctx, req)
	if reason != "" {
		return a.fallback(cls, reason, attempts, start)
	}

	parsed := ParseOrFallback(resp.Content)
	if !parsed.OK {
		log.Printf("[Analyzer] Failed to parse model response (category=%s): %s", cls.Category, parsed.Reason)
		return a.fallback(cls, model.DegradedParseError, attempts, start)
	}

	result := parsed.Result
	if result.Severity == "" {
		result.Severity = model.DefaultSeverity(cls)
	}
	result.Model = a.cfg.ModelName

	a.observe("ok", attempts, start)
	return result
}

// complete - 재시도 루프
// 실패 시 degraded 사유를 반환 (성공이면 빈 문자열)
func (a *Analyzer) complete(ctx context.Context, req model.ModelRequest) (model.ModelResponse, int, string) {
	backoff := NewBackoff(a.cfg.BaseBackoff, a.cfg.MaxBackoff)
	reason := model.DegradedModelError

	for attempt := 1; attempt <= a.cfg.MaxRetries+1; attempt++ {
		resp, err := a.callOnce(ctx, req)
		if err == nil {
			return resp, attempt, ""
		}

		timedOut := errors.Is(err, context.DeadlineExceeded)
		if timedOut {
			reason = model.DegradedModelTimeout
		} else {
			reason = model.DegradedModelError
		}
		log.Printf("[Analyzer] Model call failed (attempt=%d/%d): %v", attempt, a.cfg.MaxRetries+1, err)

		// 상위 ctx(파이프라인 시간 예산)가 끝났으면 재시도하지 않음
		if ctx.Err() != nil {
			return model.ModelResponse{}, attempt, reason
		}
		if !timedOut && !errors.Is(err, model.ErrModelTransient) {
			return model.ModelResponse{}, attempt, reason
		}
		if attempt > a.cfg.MaxRetries {
			return model.ModelResponse{}, attempt, reason
		}
		// 대기 후 시도 1회를 끝낼 시간이 남지 않으면 재시도하지 않음
		wait := backoff.Next()
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait+a.cfg.Timeout {
			log.Printf("[Analyzer] Skipping retry, %s left in analysis budget", time.Until(deadline).Round(time.Millisecond))
			return model.ModelResponse{}, attempt, reason
		}
		if err := a.sleep(ctx, wait); err != nil {
			return model.ModelResponse{}, attempt, reason
		}
	}
	return model.ModelResponse{}, a.cfg.MaxRetries + 1, reason
}

// callOnce - 시도 1회 (timeout 적용, 패닉은 에러로 변환)
func (a *Analyzer) callOnce(ctx context.Context, req model.ModelRequest) (resp model.ModelResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model client panicked: %v", r)
		}
	}()

	attemptCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	resp, err = a.client.Complete(attemptCtx, req)
	// client가 감싸지 않은 timeout도 DeadlineExceeded로 판별되도록 함
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return resp, err
}

func (a *Analyzer) fallback(cls model.Classification, reason string, attempts int, start time.Time) model.AnalysisResult {
	log.Printf("[Analyzer] Using fallback analysis (category=%s, reason=%s)", cls.Category, reason)
	a.observe(reason, attempts, start)
	return model.FallbackAnalysis(cls, reason)
}

func (a *Analyzer) observe(outcome string, attempts int, start time.Time) {
	if a.observer != nil {
		a.observer.ObserveAnalysis(outcome, attempts, time.Since(start))
	}
}
