package model

// PipelineState - 파이프라인 실행 상태
// 한 방향으로만 전이하며, 여러 단계를 묶어서 재시도하지 않음
//
//	received -> normalized -> classified -> context_gathered -> analyzed -> formatted -> delivered | delivery_failed
//	received -> rejected (지원하지 않는 형태)
//	* -> abandoned (전체 시간 예산 초과, 전송하지 않음)
type PipelineState string

const (
	StateReceived        PipelineState = "received"
	StateNormalized      PipelineState = "normalized"
	StateClassified      PipelineState = "classified"
	StateContextGathered PipelineState = "context_gathered"
	StateAnalyzed        PipelineState = "analyzed"
	StateFormatted       PipelineState = "formatted"
	StateDelivered       PipelineState = "delivered"
	StateDeliveryFailed  PipelineState = "delivery_failed"
	StateRejected        PipelineState = "rejected"
	StateAbandoned       PipelineState = "abandoned"
)

// Terminal - 종료 상태 여부
func (s PipelineState) Terminal() bool {
	switch s {
	case StateDelivered, StateDeliveryFailed, StateRejected, StateAbandoned:
		return true
	}
	return false
}

// Outcome - 이벤트 1건 처리 결과
type Outcome struct {
	ExecutionID    string           `json:"execution_id"`
	State          PipelineState    `json:"state"`
	Classification *Classification  `json:"classification,omitempty"`
	Analysis       *AnalysisResult  `json:"analysis,omitempty"`
	Message        *OutboundMessage `json:"message,omitempty"`
	Ack            *Ack             `json:"ack,omitempty"`
	Err            error            `json:"-"`
}
