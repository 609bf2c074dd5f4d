// 이벤트 1건 처리 파이프라인
//
// 흐름:
//
//	Normalize -> Classify -> Route -> Gather -> Analyze -> Format -> Publish
//
// 실행마다 execution id(uuid)를 발급하고 상태 전이를 로그로 남김
// 전체 시간 예산(PIPELINE_TIMEOUT)을 넘기면 전송 전에 중단 (abandoned, 메시지 없음)
// 도구 수집과 분석은 전송 몫(delivery reserve)을 뺀 시간 안에서만 실행
// 여러 단계를 묶어서 재시도하지 않으며, 재시도는 각 단계의 외부 호출 안에서만 일어남

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/kube-rca/alert-analyzer/internal/model"
)

const (
	archiveTimeout = 10 * time.Second

	// defaultDeliveryReserve - 전송을 위해 남겨두는 시간 (DELIVERY_TIMEOUT 기본값과 동일)
	defaultDeliveryReserve = 10 * time.Second
)

// Router - 분류 -> 분석 여부 / 전송 대상 (routing.Table)
type Router interface {
	Route(cls model.Classification) model.RouteDecision
}

// Archiver - 분석 결과 저장 (EmbeddingService)
type Archiver interface {
	Archive(ctx context.Context, rec model.AnalysisRecord) (int64, error)
}

// PipelineObserver - 실행 종료 상태 관측 (metrics)
type PipelineObserver interface {
	ObserveEvent(state model.PipelineState, duration time.Duration)
}

// Pipeline 구조체 정의
// 모든 필드는 생성 후 읽기 전용이므로 여러 이벤트를 동시에 처리해도 안전
type Pipeline struct {
	classifier *Classifier
	gatherer   *Gatherer
	analyzer   *Analyzer
	formatter  *Formatter
	publisher  *Publisher
	router     Router
	archiver   Archiver
	observer   PipelineObserver
	timeout    time.Duration
	reserve    time.Duration
	now        func() time.Time
	newID      func() string
}

// PipelineOption - Pipeline 선택 설정
type PipelineOption func(*Pipeline)

// WithArchiver - 분석 결과 저장소 설정
func WithArchiver(a Archiver) PipelineOption {
	return func(p *Pipeline) { p.archiver = a }
}

// WithPipelineObserver - 실행 결과 관측자 설정
func WithPipelineObserver(o PipelineObserver) PipelineOption {
	return func(p *Pipeline) { p.observer = o }
}

// WithPipelineTimeout - 전체 시간 예산 설정 (기본 90초)
func WithPipelineTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithDeliveryReserve - 분석 단계가 쓰지 못하도록 전송에 남겨둘 시간 (기본 10초)
func WithDeliveryReserve(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.reserve = d
		}
	}
}

// NewPipeline - Pipeline 객체 생성
func NewPipeline(classifier *Classifier, gatherer *Gatherer, analyzer *Analyzer, formatter *Formatter, publisher *Publisher, router Router, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		classifier: classifier,
		gatherer:   gatherer,
		analyzer:   analyzer,
		formatter:  formatter,
		publisher:  publisher,
		router:     router,
		timeout:    90 * time.Second,
		reserve:    defaultDeliveryReserve,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process - raw 페이로드 1건 처리
// 지원하지 않는 형태면 rejected, 그 외 실패는 Outcome.State/Err로 표현 (panic 없음)
func (p *Pipeline) Process(ctx context.Context, raw []byte) model.Outcome {
	start := p.now()
	id := p.newID()
	log.Printf("[Pipeline] %s state=%s (bytes=%d)", id, model.StateReceived, len(raw))

	event, err := Normalize(raw, start)
	if err != nil {
		log.Printf("[Pipeline] %s state=%s: %v", id, model.StateRejected, err)
		return p.finish(model.Outcome{ExecutionID: id, State: model.StateRejected, Err: err}, start)
	}
	return p.run(ctx, id, event, start)
}

// ProcessEvent - 이미 정규화된 이벤트 처리 (replay)
func (p *Pipeline) ProcessEvent(ctx context.Context, event model.AlertEvent) model.Outcome {
	start := p.now()
	id := p.newID()
	log.Printf("[Pipeline] %s state=%s (source=%s, replay)", id, model.StateReceived, event.Source)
	return p.run(ctx, id, event, start)
}

func (p *Pipeline) run(parent context.Context, id string, event model.AlertEvent, start time.Time) (outcome model.Outcome) {
	outcome = model.Outcome{ExecutionID: id, State: model.StateNormalized}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Pipeline] %s panicked: %v", id, r)
			outcome.State = model.StateAbandoned
			outcome.Message = nil
			outcome.Err = fmt.Errorf("pipeline panicked: %v", r)
		}
		outcome = p.finish(outcome, start)
	}()
	log.Printf("[Pipeline] %s state=%s (source=%s)", id, model.StateNormalized, event.Source)

	ctx, cancel := context.WithTimeout(parent, p.timeout)
	defer cancel()

	cls := p.classifier.Classify(event)
	outcome.State = model.StateClassified
	outcome.Classification = &cls
	if len(cls.Ambiguous) > 0 {
		log.Printf("[Pipeline] %s state=%s (category=%s, rule=%s, also_matched=%v)", id, model.StateClassified, cls.Category, cls.Rule, cls.Ambiguous)
	} else {
		log.Printf("[Pipeline] %s state=%s (category=%s, rule=%s)", id, model.StateClassified, cls.Category, cls.Rule)
	}

	decision := p.router.Route(cls)
	log.Printf("[Pipeline] %s routed (rule=%s, analyze=%t, destination=%s)", id, decision.Rule, decision.Analyze, decision.Destination.ID)

	var (
		dc       model.DiagnosticContext
		analysis model.AnalysisResult
	)
	if decision.Analyze {
		stageCtx, stageCancel := p.analysisContext(ctx)
		dc = p.gatherer.Gather(stageCtx, cls)
		outcome.State = model.StateContextGathered
		log.Printf("[Pipeline] %s state=%s (tools=%d, failed=%d)", id, model.StateContextGathered, dc.Len(), dc.Failed())

		analysis = p.analyzer.Analyze(stageCtx, cls, dc)
		stageCancel()
	} else {
		analysis = model.SkippedAnalysis(cls)
	}
	outcome.State = model.StateAnalyzed
	outcome.Analysis = &analysis
	log.Printf("[Pipeline] %s state=%s (severity=%s, degraded=%t, skipped=%t)", id, model.StateAnalyzed, analysis.Severity, analysis.Degraded, analysis.Skipped)

	msg := p.formatter.FormatWithContext(cls, analysis, dc)
	outcome.State = model.StateFormatted
	log.Printf("[Pipeline] %s state=%s (blocks=%d, key=%s)", id, model.StateFormatted, len(msg.Blocks), msg.DedupeKey)

	// 시간 예산 초과 시 전송하지 않음
	if err := ctx.Err(); err != nil {
		log.Printf("[Pipeline] %s state=%s before delivery: %v", id, model.StateAbandoned, err)
		outcome.State = model.StateAbandoned
		outcome.Err = err
		return outcome
	}
	outcome.Message = &msg

	ack, err := p.publisher.Publish(ctx, msg, decision.Destination)
	if err != nil {
		outcome.State = model.StateDeliveryFailed
		outcome.Err = err
		log.Printf("[Pipeline] %s state=%s: %v", id, model.StateDeliveryFailed, err)
	} else {
		outcome.State = model.StateDelivered
		outcome.Ack = &ack
		log.Printf("[Pipeline] %s state=%s (destination=%s, duplicate=%t)", id, model.StateDelivered, ack.Destination, ack.Duplicate)
	}

	if !ack.Duplicate {
		p.archive(ctx, id, cls, analysis, dc, msg.DedupeKey)
	}
	return outcome
}

// analysisContext - 전송 몫을 뺀 deadline을 가진 ctx
// 남은 시간의 절반 이상은 예약하지 않음 (짧은 상위 deadline에서도 분석 기회를 남김)
func (p *Pipeline) analysisContext(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return context.WithCancel(ctx)
	}
	reserve := p.reserve
	if half := time.Until(deadline) / 2; reserve > half {
		reserve = half
	}
	return context.WithDeadline(ctx, deadline.Add(-reserve))
}

// archive - 분석 결과 저장 (실패해도 결과에 영향 없음)
func (p *Pipeline) archive(ctx context.Context, id string, cls model.Classification, analysis model.AnalysisResult, dc model.DiagnosticContext, dedupeKey string) {
	if p.archiver == nil || analysis.Skipped {
		return
	}
	archiveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	rec := model.AnalysisRecord{
		ExecutionID: id,
		DedupeKey:   dedupeKey,
		Category:    cls.Category,
		Title:       Title(cls),
		Analysis:    analysis,
		Context:     dc.Entries(),
		CreatedAt:   p.now(),
	}
	if _, err := p.archiver.Archive(archiveCtx, rec); err != nil {
		log.Printf("[Pipeline] %s Failed to archive analysis: %v", id, err)
	}
}

func (p *Pipeline) finish(outcome model.Outcome, start time.Time) model.Outcome {
	if p.observer != nil {
		p.observer.ObserveEvent(outcome.State, p.now().Sub(start))
	}
	return outcome
}

// IsRejected - 지원하지 않는 형태로 거부된 결과인지
func IsRejected(outcome model.Outcome) bool {
	return outcome.State == model.StateRejected && errors.Is(outcome.Err, model.ErrUnsupportedEventShape)
}
