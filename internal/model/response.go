package model

type ErrorResponse struct {
	Error string `json:"error"`
}

type PingResponse struct {
	Message string `json:"message"`
}

type RootResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// EventResponse - 이벤트 인입 응답
type EventResponse struct {
	ExecutionID string        `json:"execution_id"`
	State       PipelineState `json:"state"`
	Category    Category      `json:"category,omitempty"`
	Degraded    bool          `json:"degraded,omitempty"`
	Duplicate   bool          `json:"duplicate,omitempty"`
	DedupeKey   string        `json:"dedupe_key,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// NewEventResponse - Outcome을 응답 형태로 변환
func NewEventResponse(o Outcome) EventResponse {
	resp := EventResponse{ExecutionID: o.ExecutionID, State: o.State}
	if o.Classification != nil {
		resp.Category = o.Classification.Category
	}
	if o.Analysis != nil {
		resp.Degraded = o.Analysis.Degraded
	}
	if o.Message != nil {
		resp.DedupeKey = o.Message.DedupeKey
	}
	if o.Ack != nil {
		resp.Duplicate = o.Ack.Duplicate
	}
	if o.Err != nil {
		resp.Error = o.Err.Error()
	}
	return resp
}
