package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// maxEventBytes - 인입 이벤트 본문 최대 크기
const maxEventBytes = 1 << 20

// RouterDeps - 라우터 구성 요소
type RouterDeps struct {
	Pipeline EventProcessor
	Auth     Authenticator
	Metrics  http.Handler
}

// NewRouter - gin 라우터 생성 및 엔드포인트 등록
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// 건강 체크 및 문서
	router.GET("/ping", Ping)
	router.GET("/", Root)
	router.GET("/openapi.json", OpenAPIDoc)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	events := NewEventHandler(deps.Pipeline)
	webhook := router.Group("/webhook", BodyLimitMiddleware(maxEventBytes), IngestAuthMiddleware(deps.Auth))
	webhook.POST("/events", events.ReceiveEvent)

	return router
}
