package shared

import (
	"github.com/dujiao-next/ledger/internal/http/response"
	"github.com/dujiao-next/ledger/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回错误响应；服务端错误记 error，其余带原始错误时记 info
func RespondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	switch {
	case appErr.ServerSide():
		RequestLog(c).Errorw("handler_error", "code", appErr.Code, "message", appErr.Message, "error", err)
	case err != nil:
		RequestLog(c).Infow("handler_rejected", "code", appErr.Code, "message", appErr.Message, "error", err)
	}
	response.Error(c, appErr.Code, appErr.Message)
}
