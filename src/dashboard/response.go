// response.go
package dashboard

import (
	"net/http"

	"EcomInsight/src/processor"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 错误响应体
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusOf 数据错误 400，计算错误 422，其余 500
func StatusOf(err error) (int, string) {
	switch processor.KindOf(err) {
	case processor.KindData:
		return http.StatusBadRequest, string(processor.KindData)
	case processor.KindComputation:
		return http.StatusUnprocessableEntity, string(processor.KindComputation)
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// Fail 按错误类别返回 JSON 错误
func Fail(c *gin.Context, err error) {
	status, code := StatusOf(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Code: code, Message: err.Error()})
}

// NotFound 返回资源不存在
func NotFound(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Code: "NOT_FOUND", Message: message})
}
