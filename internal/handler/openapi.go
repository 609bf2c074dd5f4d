package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/alert-analyzer/docs"
)

// OpenAPIDoc - swag로 생성한 OpenAPI 문서 반환
func OpenAPIDoc(c *gin.Context) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(docs.SwaggerInfo.ReadDoc()))
}
