// Prometheus 메트릭 정의 및 파이프라인 관측 기록
package metrics

import (
	"net/http"
	"time"

	"github.com/kube-rca/alert-analyzer/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "alert_analyzer"

// 파이프라인 메트릭
var (
	// EventsTotal - 종료 상태별 파이프라인 실행 수
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "events_total",
			Help:      "Total alert events processed, by terminal state",
		},
		[]string{"state"},
	)

	// PipelineDuration - 수신부터 종료까지 처리 시간
	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution time in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60, 90, 120},
		},
		[]string{"state"},
	)
)

// 도구 메트릭
var (
	// ToolInvocationsTotal - 결과별 진단 도구 호출 수
	ToolInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "invocations_total",
			Help:      "Total diagnostic tool invocations",
		},
		[]string{"tool", "result"},
	)

	// ToolDuration - 도구 실행 시간
	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "duration_seconds",
			Help:      "Diagnostic tool latency in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		},
		[]string{"tool"},
	)
)

// 모델 메트릭
var (
	// ModelCallsTotal - 결과(ok 또는 degraded 사유)별 분석 수
	ModelCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "analyses_total",
			Help:      "Total analyses by outcome",
		},
		[]string{"outcome"},
	)

	// ModelAttempts - 분석 1건당 모델 호출 횟수
	ModelAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "attempts",
			Help:      "Model call attempts per analysis",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		},
	)

	// ModelDuration - 재시도를 포함한 분석 시간
	ModelDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "duration_seconds",
			Help:      "Analysis latency in seconds including retries",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
	)
)

// 전송 메트릭
var (
	// DeliveriesTotal - 전송 대상/결과별 전송 수
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "total",
			Help:      "Total deliveries by destination and result",
		},
		[]string{"destination", "result"},
	)

	// DeliveryAttempts - 전송 1건당 시도 횟수
	DeliveryAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "attempts",
			Help:      "Send attempts per delivery",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		},
		[]string{"destination"},
	)
)

// Recorder - 파이프라인 단계 관측값을 메트릭으로 기록
// service 패키지의 observer 인터페이스들을 구현
type Recorder struct{}

// NewRecorder - Recorder 객체 생성
func NewRecorder() *Recorder {
	return &Recorder{}
}

// ObserveEvent - 종료된 파이프라인 실행 1건 기록
func (Recorder) ObserveEvent(state model.PipelineState, duration time.Duration) {
	EventsTotal.WithLabelValues(string(state)).Inc()
	PipelineDuration.WithLabelValues(string(state)).Observe(duration.Seconds())
}

// ObserveTool - 도구 호출 1건 기록
func (Recorder) ObserveTool(name string, result model.ToolResult, duration time.Duration) {
	outcome := "ok"
	if !result.OK {
		outcome = toolFailureLabel(result.Reason)
	}
	ToolInvocationsTotal.WithLabelValues(name, outcome).Inc()
	ToolDuration.WithLabelValues(name).Observe(duration.Seconds())
}

// ObserveAnalysis - 분석 1건 기록
func (Recorder) ObserveAnalysis(outcome string, attempts int, duration time.Duration) {
	ModelCallsTotal.WithLabelValues(outcome).Inc()
	ModelAttempts.Observe(float64(attempts))
	ModelDuration.Observe(duration.Seconds())
}

// ObserveDelivery - 전송 1건 기록
func (Recorder) ObserveDelivery(destination, result string, attempts int) {
	DeliveriesTotal.WithLabelValues(destination, result).Inc()
	DeliveryAttempts.WithLabelValues(destination).Observe(float64(attempts))
}

// toolFailureLabel - 자유 형식 에러 메시지는 "error"로 묶음 (label cardinality 제한)
func toolFailureLabel(reason string) string {
	switch reason {
	case model.ReasonMissingInput, model.ReasonUnavailable, model.ReasonTimeout:
		return reason
	default:
		return "error"
	}
}

// Handler - Prometheus scrape 핸들러
func Handler() http.Handler {
	return promhttp.Handler()
}
