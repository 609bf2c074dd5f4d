package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/alert-analyzer/internal/model"
)

// EventProcessor - 원본 이벤트 1건을 파이프라인으로 처리
type EventProcessor interface {
	Process(ctx context.Context, raw []byte) model.Outcome
}

// EventHandler - 알림 이벤트 인입 핸들러
type EventHandler struct {
	pipeline EventProcessor
}

func NewEventHandler(pipeline EventProcessor) *EventHandler {
	return &EventHandler{pipeline: pipeline}
}

// ReceiveEvent godoc
// @Summary Receive an infrastructure alert event
// @Description Accepts a budget notification, metric alarm, custom event or an SNS envelope wrapping one of them,
// @Description and runs it through classification, analysis and delivery synchronously.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Security ApiKeyAuth
// @Param request body object true "Raw event payload"
// @Success 200 {object} model.EventResponse
// @Failure 400,401,422 {object} model.ErrorResponse
// @Failure 502,504 {object} model.EventResponse
// @Router /webhook/events [post]
func (h *EventHandler) ReceiveEvent(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, model.ErrorResponse{Error: "payload too large"})
			return
		}
		log.Printf("Failed to read event body: %v", err)
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid payload"})
		return
	}
	if len(raw) == 0 {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "empty payload"})
		return
	}

	log.Printf("Received event (principal=%s, bytes=%d)", GetPrincipal(c), len(raw))

	// 호출자가 연결을 끊어도 전송까지 진행 (파이프라인 자체 시간 예산 적용)
	outcome := h.pipeline.Process(context.WithoutCancel(c.Request.Context()), raw)

	resp := model.NewEventResponse(outcome)
	switch outcome.State {
	case model.StateRejected:
		c.JSON(http.StatusUnprocessableEntity, model.ErrorResponse{Error: resp.Error})
	default:
		c.JSON(statusFor(outcome.State), resp)
	}
}

// statusFor - 종료 상태별 HTTP 상태 코드
func statusFor(state model.PipelineState) int {
	switch state {
	case model.StateDelivered:
		return http.StatusOK
	case model.StateRejected:
		return http.StatusUnprocessableEntity
	case model.StateDeliveryFailed:
		return http.StatusBadGateway
	case model.StateAbandoned:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
