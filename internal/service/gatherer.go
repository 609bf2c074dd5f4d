// 분류별 진단 도구 실행 (Context Gatherer)
//
// 흐름:
//   - SelectionTable에서 분류에 해당하는 호출 목록 조회
//   - metadata로 인자 바인딩 (누락 시 도구를 호출하지 않고 missing_input 기록)
//   - errgroup으로 최대 N개 동시 실행, 도구별 timeout 적용
//   - 모든 호출이 끝난 뒤 선택 순서대로 DiagnosticContext 구성
//
// 도구 에러/패닉은 failure로 기록되며 Gather 자체는 실패하지 않음

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kube-rca/alert-analyzer/internal/model"
	"github.com/kube-rca/alert-analyzer/internal/tool"
	"golang.org/x/sync/errgroup"
)

// ToolObserver - 도구 호출 결과 관측 (metrics)
type ToolObserver interface {
	ObserveTool(name string, result model.ToolResult, duration time.Duration)
}

// Gatherer 구조체 정의
type Gatherer struct {
	registry    *tool.Registry
	selection   tool.SelectionTable
	concurrency int
	toolTimeout time.Duration
	observer    ToolObserver
}

// GathererOption - Gatherer 선택 설정
type GathererOption func(*Gatherer)

// WithToolObserver - 도구 호출 관측자 설정
func WithToolObserver(o ToolObserver) GathererOption {
	return func(g *Gatherer) { g.observer = o }
}

// NewGatherer - Gatherer 객체 생성
func NewGatherer(registry *tool.Registry, selection tool.SelectionTable, concurrency int, toolTimeout time.Duration, opts ...GathererOption) *Gatherer {
	if concurrency <= 0 {
		concurrency = 5
	}
	if toolTimeout <= 0 {
		toolTimeout = 15 * time.Second
	}
	g := &Gatherer{
		registry:    registry,
		selection:   selection,
		concurrency: concurrency,
		toolTimeout: toolTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Gather - 분류 1건에 대한 진단 컨텍스트 수집
func (g *Gatherer) Gather(ctx context.Context, cls model.Classification) model.DiagnosticContext {
	calls := g.selection.For(cls.Category)
	entries := make([]model.ToolInvocation, len(calls))

	eg := new(errgroup.Group)
	eg.SetLimit(g.concurrency)

	for i, call := range calls {
		args, bindErr := call.Bind(cls.Metadata)
		entries[i] = model.ToolInvocation{Tool: call.Tool, Arguments: args}

		if bindErr != nil {
			entries[i].Result = model.Failure(model.ReasonMissingInput)
			g.observe(entries[i])
			continue
		}

		t, ok := g.registry.Get(call.Tool)
		if !ok {
			entries[i].Result = model.Failure(model.ReasonUnavailable)
			g.observe(entries[i])
			continue
		}

		// 각 goroutine은 자기 index에만 기록
		eg.Go(func() error {
			start := time.Now()
			entries[i].Result = g.invoke(ctx, t, args)
			entries[i].Duration = time.Since(start)
			g.observe(entries[i])
			return nil
		})
	}

	// goroutine은 에러를 반환하지 않음
	_ = eg.Wait()

	dc := model.NewDiagnosticContext(entries)
	if dc.AllFailed() {
		log.Printf("[Gatherer] all %d tool invocations failed (category=%s)", dc.Len(), cls.Category)
	}
	return dc
}

// invoke - 도구 1회 실행, 에러/패닉/timeout을 failure로 변환
// ctx를 확인하지 않는 도구도 toolTimeout이 지나면 기다리지 않음 (도구 goroutine은 끝날 때 정리됨)
func (g *Gatherer) invoke(ctx context.Context, t tool.Tool, args tool.Args) model.ToolResult {
	toolCtx, cancel := context.WithTimeout(ctx, g.toolTimeout)
	defer cancel()

	done := make(chan model.ToolResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Gatherer] tool %s panicked: %v", t.Name(), r)
				done <- model.Failure(fmt.Sprintf("panic: %v", r))
			}
		}()

		data, err := t.Invoke(toolCtx, args)
		if err != nil {
			done <- model.Failure(failureReason(toolCtx, err))
			return
		}
		done <- model.Success(data)
	}()

	select {
	case result := <-done:
		return result
	case <-toolCtx.Done():
		log.Printf("[Gatherer] tool %s did not return within %s", t.Name(), g.toolTimeout)
		return model.Failure(failureReason(toolCtx, toolCtx.Err()))
	}
}

func (g *Gatherer) observe(inv model.ToolInvocation) {
	if !inv.Result.OK {
		log.Printf("[Gatherer] tool %s failed: %s", inv.Tool, inv.Result.Reason)
	}
	if g.observer != nil {
		g.observer.ObserveTool(inv.Tool, inv.Result, inv.Duration)
	}
}

func failureReason(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, model.ErrMissingInput):
		return model.ReasonMissingInput
	case errors.Is(err, tool.ErrUnavailable):
		return model.ReasonUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return model.ReasonTimeout
	default:
		return err.Error()
	}
}
