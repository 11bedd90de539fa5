package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dujiao-next/ledger/internal/constants"
	"github.com/dujiao-next/ledger/internal/http/response"
	"github.com/dujiao-next/ledger/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	Message       string
}

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

// RateLimitMiddleware 固定窗口限流，client 为空或规则未配置时放行
// Redis 不可用时拒绝请求，提现与订单事件不在无限流状态下处理
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
			c.Next()
			return
		}
		key := rule.key(c, keyFunc)

		values, err := rateLimitScript.Run(c.Request.Context(), client, []string{key}, rule.WindowSeconds).Int64Slice()
		if err != nil || len(values) < 2 {
			logger.FromContext(c.Request.Context()).Errorw("rate_limit_script_failed", "key", key, "error", err)
			response.Error(c, response.CodeServiceUnavailable, "rate limit unavailable")
			c.Abort()
			return
		}
		count, ttl := values[0], values[1]
		remaining := int64(rule.MaxRequests) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(rule.MaxRequests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if count <= int64(rule.MaxRequests) {
			c.Next()
			return
		}

		wait := rule.retryAfter(ttl)
		c.Header("Retry-After", strconv.Itoa(wait))
		logger.FromContext(c.Request.Context()).Infow("rate_limited", "key", key, "count", count, "retry_after", wait)
		response.Error(c, response.CodeTooManyRequests, fmt.Sprintf(rule.message(), wait))
		c.Abort()
	}
}

func (r RateLimitRule) key(c *gin.Context, keyFunc RateLimitKeyFunc) string {
	key := ""
	if keyFunc != nil {
		key = strings.TrimSpace(keyFunc(c))
	}
	if key == "" {
		key = c.ClientIP()
	}
	if r.Prefix == "" {
		return key
	}
	return r.Prefix + ":" + key
}

// retryAfter TTL 异常（-1/-2）时按整个窗口计
func (r RateLimitRule) retryAfter(ttl int64) int {
	if ttl >= 1 {
		return int(ttl)
	}
	if r.WindowSeconds >= 1 {
		return r.WindowSeconds
	}
	return 1
}

func (r RateLimitRule) message() string {
	if msg := strings.TrimSpace(r.Message); msg != "" {
		return msg
	}
	return "too many requests, retry in %d seconds"
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByPromoter 使用推广员 ID 作为限流 key，未登录时回退到 IP
func KeyByPromoter(c *gin.Context) string {
	if value, ok := c.Get(constants.ContextKeyPromoterID); ok {
		if id, ok := value.(uint); ok && id > 0 {
			return fmt.Sprintf("promoter:%d", id)
		}
	}
	return c.ClientIP()
}

// KeyByIPAndJSONField 使用 IP + JSON 字段作为限流 key
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(strings.TrimSpace(readJSONField(c, field)))
		if value == "" {
			return c.ClientIP()
		}
		return fmt.Sprintf("%s|%s", value, c.ClientIP())
	}
}

// readJSONField 读取请求体中的字符串字段并回填请求体，非字符串或解析失败返回空
func readJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(body) == 0 {
		return ""
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	var text string
	if err := json.Unmarshal(payload[field], &text); err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
