package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// IdempotentResponse 幂等请求的首次响应快照
type IdempotentResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
	CreatedAt   int64  `json:"created_at"`
}

func idempotencyKey(scope, key string) string {
	return fmt.Sprintf("idem:%s:%s", strings.TrimSpace(scope), strings.TrimSpace(key))
}

// GetIdempotentResponse 读取已记录的响应
func GetIdempotentResponse(ctx context.Context, scope, key string) (*IdempotentResponse, bool, error) {
	var resp IdempotentResponse
	hit, err := GetJSON(ctx, idempotencyKey(scope, key), &resp)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &resp, true, nil
}

// SaveIdempotentResponse 记录首次响应
func SaveIdempotentResponse(ctx context.Context, scope, key string, resp *IdempotentResponse, ttl time.Duration) error {
	if resp == nil {
		return nil
	}
	return SetJSON(ctx, idempotencyKey(scope, key), resp, ttl)
}

// AcquireIdempotencyLock 占用幂等键，防止同一请求并发执行
func AcquireIdempotencyLock(ctx context.Context, scope, key string, ttl time.Duration) (bool, error) {
	return SetNX(ctx, idempotencyKey(scope, key)+":lock", time.Now().Unix(), ttl)
}

// ReleaseIdempotencyLock 释放幂等键
func ReleaseIdempotencyLock(ctx context.Context, scope, key string) error {
	return Del(ctx, idempotencyKey(scope, key)+":lock")
}
