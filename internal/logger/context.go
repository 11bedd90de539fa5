package logger

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

type requestIDKey struct{}

// ContextWithRequestID 将请求 ID 写入上下文
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDKey{}, strings.TrimSpace(requestID))
}

// RequestIDFromContext 读取上下文中的请求 ID
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(requestIDKey{}).(string); ok {
		return value
	}
	return ""
}

// FromContext 返回携带 request_id 的 SugaredLogger
func FromContext(ctx context.Context) *zap.SugaredLogger {
	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		return S()
	}
	return SW("request_id", requestID)
}
