package router

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dujiao-next/ledger/internal/cache"
	"github.com/dujiao-next/ledger/internal/constants"
	"github.com/dujiao-next/ledger/internal/http/response"
	"github.com/dujiao-next/ledger/internal/logger"

	"github.com/gin-gonic/gin"
)

const (
	idempotencyHeader        = "Idempotency-Key"
	idempotencyReplayHeader  = "Idempotent-Replayed"
	idempotencyMaxKeyLength  = 128
	defaultIdempotencyWindow = 24 * time.Hour
)

// capturingWriter 记录响应体，用于幂等回放
type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// IdempotencyMiddleware 按推广员维度的幂等键中间件，Redis 未启用时直接放行
func IdempotencyMiddleware(ttl time.Duration) gin.HandlerFunc {
	if ttl <= 0 {
		ttl = defaultIdempotencyWindow
	}
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(idempotencyHeader))
		if key == "" || !cache.Enabled() {
			c.Next()
			return
		}
		if len(key) > idempotencyMaxKeyLength {
			response.BadRequest(c, "idempotency key too long")
			c.Abort()
			return
		}
		scope := idempotencyScope(c)
		ctx := c.Request.Context()
		log := logger.FromContext(ctx)

		cached, hit, err := cache.GetIdempotentResponse(ctx, scope, key)
		if err != nil {
			log.Warnw("idempotency_lookup_failed", "scope", scope, "error", err)
		}
		if hit && cached != nil {
			replay(c, cached)
			return
		}

		acquired, err := cache.AcquireIdempotencyLock(ctx, scope, key, ttl)
		if err != nil {
			log.Warnw("idempotency_lock_failed", "scope", scope, "error", err)
			c.Next()
			return
		}
		if !acquired {
			response.ErrorWithData(c, response.CodeConflict, "request with this idempotency key is in progress", gin.H{
				"idempotency_key": key,
			})
			c.Abort()
			return
		}
		defer func() {
			if err := cache.ReleaseIdempotencyLock(ctx, scope, key); err != nil {
				log.Warnw("idempotency_unlock_failed", "scope", scope, "error", err)
			}
		}()

		writer := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()

		status := writer.Status()
		// 仅缓存成功与业务拒绝结果，存储故障允许客户端重试
		if status >= http.StatusInternalServerError {
			return
		}
		snapshot := &cache.IdempotentResponse{
			Status:      status,
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.body.Bytes(),
			CreatedAt:   time.Now().Unix(),
		}
		if err := cache.SaveIdempotentResponse(ctx, scope, key, snapshot, ttl); err != nil {
			log.Warnw("idempotency_save_failed", "scope", scope, "error", err)
		}
	}
}

func idempotencyScope(c *gin.Context) string {
	subject := c.ClientIP()
	if value, ok := c.Get(constants.ContextKeyPromoterID); ok {
		if id, ok := value.(uint); ok && id > 0 {
			subject = fmt.Sprintf("promoter:%d", id)
		}
	}
	return fmt.Sprintf("%s:%s:%s", c.Request.Method, c.FullPath(), subject)
}

func replay(c *gin.Context, cached *cache.IdempotentResponse) {
	contentType := cached.ContentType
	if contentType == "" {
		contentType = "application/json; charset=utf-8"
	}
	c.Header(idempotencyReplayHeader, "true")
	c.Data(cached.Status, contentType, cached.Body)
	c.Abort()
}
