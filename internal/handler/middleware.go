package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/alert-analyzer/internal/model"
	"github.com/kube-rca/alert-analyzer/internal/service"
)

const principalKey = "principal"

// Authenticator - 인입 요청 인증
type Authenticator interface {
	Authenticate(ctx context.Context, header http.Header) (string, error)
}

// IngestAuthMiddleware - 이벤트 인입 인증 미들웨어
// auth가 nil이면 모든 요청 허용
func IngestAuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth == nil {
			c.Next()
			return
		}

		principal, err := auth.Authenticate(c.Request.Context(), c.Request.Header)
		if err != nil {
			if !errors.Is(err, service.ErrUnauthorized) {
				log.Printf("Failed to authenticate ingest request: %v", err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{Error: "unauthorized"})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// GetPrincipal - 인증된 호출자 식별자
func GetPrincipal(c *gin.Context) string {
	return c.GetString(principalKey)
}

// BodyLimitMiddleware - 요청 본문 크기 제한
func BodyLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
