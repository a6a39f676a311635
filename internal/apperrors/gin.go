package apperrors

import (
	"net/http"

	"supermock/internal/logger"

	"github.com/gin-gonic/gin"
)

// Response 错误响应体
type Response struct {
	StatusCode int               `json:"status_code"`
	Error      string            `json:"error"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
}

// Abort 把错误写成 JSON 并中止请求，5xx 会记录日志
func Abort(c *gin.Context, err error) {
	appErr, ok := As(err)
	if !ok {
		appErr = Internal(err)
	}

	status := appErr.HTTPStatus()
	message := appErr.Message
	if status >= http.StatusInternalServerError {
		logger.Error("Server error",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err,
		)
		message = "Internal server error"
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, Response{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
		Details:    appErr.Details,
	})
}
