package cache

import (
	"context"
	"fmt"
	"time"
)

// PayoutToken 打款渠道访问令牌，多实例共享以减少鉴权请求
type PayoutToken struct {
	Channel     string `json:"channel"`
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

func payoutTokenKey(channel, clientID string) string {
	return fmt.Sprintf("payout:token:%s:%s", channel, clientID)
}

// GetPayoutToken 获取未过期的渠道令牌
func GetPayoutToken(ctx context.Context, channel, clientID string) (*PayoutToken, bool, error) {
	if channel == "" || clientID == "" {
		return nil, false, nil
	}
	var token PayoutToken
	hit, err := GetJSON(ctx, payoutTokenKey(channel, clientID), &token)
	if err != nil || !hit {
		return nil, hit, err
	}
	if token.AccessToken == "" || time.Now().Unix() >= token.ExpiresAt {
		return nil, false, nil
	}
	return &token, true, nil
}

// SetPayoutToken 缓存渠道令牌，ttl 不大于零时不缓存
func SetPayoutToken(ctx context.Context, clientID string, token *PayoutToken, ttl time.Duration) error {
	if token == nil || token.AccessToken == "" || clientID == "" || ttl <= 0 {
		return nil
	}
	if token.ExpiresAt == 0 {
		token.ExpiresAt = time.Now().Add(ttl).Unix()
	}
	return SetJSON(ctx, payoutTokenKey(token.Channel, clientID), token, ttl)
}
