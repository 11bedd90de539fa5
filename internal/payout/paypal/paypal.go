package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dujiao-next/ledger/internal/cache"
	"github.com/dujiao-next/ledger/internal/config"
	"github.com/dujiao-next/ledger/internal/logger"
	"github.com/dujiao-next/ledger/internal/models"
	"github.com/dujiao-next/ledger/internal/service"
)

var (
	ErrConfigInvalid   = errors.New("paypal config invalid")
	ErrAuthFailed      = errors.New("paypal auth failed")
	ErrRequestFailed   = errors.New("paypal request failed")
	ErrResponseInvalid = errors.New("paypal response invalid")
	ErrPayoutDenied    = errors.New("paypal payout denied")
)

const (
	Channel               = "paypal"
	defaultSandboxBaseURL = "https://api-m.sandbox.paypal.com"
	defaultCurrency       = "USD"
	defaultTimeout        = 12 * time.Second
	tokenExpiryMargin     = 60 * time.Second
)

// 批次状态
const (
	BatchStatusSuccess    = "SUCCESS"
	BatchStatusPending    = "PENDING"
	BatchStatusProcessing = "PROCESSING"
	BatchStatusNew        = "NEW"
	BatchStatusDenied     = "DENIED"
	BatchStatusCanceled   = "CANCELED"
)

// Config PayPal Payouts 渠道配置。
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	Currency     string
	EmailSubject string
}

// TokenStore 访问令牌缓存
type TokenStore interface {
	Get(ctx context.Context, clientID string) (string, bool, error)
	Save(ctx context.Context, clientID, token string, ttl time.Duration) error
}

// Gateway PayPal Payouts 打款渠道
// 说明：批次号由调用方写回提现申请的 payout_ref，渠道自身不保存批次。
type Gateway struct {
	cfg    *Config
	tokens TokenStore
	client *http.Client
}

// FromAppConfig 从应用配置构建渠道配置
func FromAppConfig(cfg config.PayPalPayoutConfig) *Config {
	out := &Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		BaseURL:      cfg.BaseURL,
		Currency:     cfg.Currency,
		EmailSubject: cfg.EmailSubject,
	}
	out.normalize()
	return out
}

// ValidateConfig 校验配置。
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return fmt.Errorf("%w: client_id is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.ClientSecret) == "" {
		return fmt.Errorf("%w: client_secret is required", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(strings.TrimSpace(cfg.BaseURL)); err != nil {
		return fmt.Errorf("%w: base_url is invalid", ErrConfigInvalid)
	}
	if len(cfg.Currency) != 3 {
		return fmt.Errorf("%w: currency is invalid", ErrConfigInvalid)
	}
	return nil
}

// NewGateway 创建 PayPal 打款渠道，tokens 为空时使用 Redis 令牌缓存
func NewGateway(cfg *Config, tokens TokenStore) (*Gateway, error) {
	if cfg != nil {
		cfg.normalize()
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if tokens == nil {
		tokens = cacheTokenStore{}
	}
	return &Gateway{cfg: cfg, tokens: tokens, client: http.DefaultClient}, nil
}

// ConfirmPayout 未提交时创建打款批次，已提交时按 req.PayoutRef 查询批次，批次成功时确认
func (g *Gateway) ConfirmPayout(ctx context.Context, req *models.WithdrawalRequest) (service.PayoutConfirmation, error) {
	if req == nil {
		return service.PayoutConfirmation{}, service.ErrNotFound
	}
	token, err := g.getAccessToken(ctx)
	if err != nil {
		return service.PayoutConfirmation{}, err
	}

	batchID := strings.TrimSpace(req.PayoutRef)
	var status string
	if batchID != "" {
		status, err = g.getBatchStatus(ctx, token, batchID)
	} else {
		batchID, status, err = g.createBatch(ctx, token, req)
	}
	if err != nil {
		return service.PayoutConfirmation{}, err
	}

	logger.FromContext(ctx).Infow("paypal_payout_status", "withdrawal_id", req.ID, "batch_id", batchID, "batch_status", status)
	switch batchState(status) {
	case service.PayoutStateSucceeded:
		return service.PayoutConfirmation{Confirmed: true, Reference: batchID}, nil
	case service.PayoutStateFailed:
		return service.PayoutConfirmation{Reference: batchID}, fmt.Errorf("%w: batch %s is %s", ErrPayoutDenied, batchID, status)
	default:
		return service.PayoutConfirmation{Reference: batchID}, nil
	}
}

// PayoutStatus 查询已提交批次的状态，未提交时返回 none
func (g *Gateway) PayoutStatus(ctx context.Context, req *models.WithdrawalRequest) (service.PayoutState, error) {
	if req == nil {
		return "", service.ErrNotFound
	}
	batchID := strings.TrimSpace(req.PayoutRef)
	if batchID == "" {
		return service.PayoutStateNone, nil
	}
	token, err := g.getAccessToken(ctx)
	if err != nil {
		return "", err
	}
	status, err := g.getBatchStatus(ctx, token, batchID)
	if err != nil {
		return "", err
	}
	return batchState(status), nil
}

// batchState 将批次状态映射为渠道无关的打款状态，未知状态按处理中对待
func batchState(status string) service.PayoutState {
	switch status {
	case BatchStatusSuccess:
		return service.PayoutStateSucceeded
	case BatchStatusDenied, BatchStatusCanceled:
		return service.PayoutStateFailed
	default:
		return service.PayoutStatePending
	}
}

func (g *Gateway) createBatch(ctx context.Context, token string, req *models.WithdrawalRequest) (string, string, error) {
	receiver := ""
	if req.Promoter != nil {
		receiver = strings.TrimSpace(req.Promoter.Email)
	}
	if receiver == "" {
		return "", "", fmt.Errorf("%w: receiver email is empty", ErrConfigInvalid)
	}
	senderID := "WD-" + strconv.FormatUint(uint64(req.ID), 10)
	payload := map[string]interface{}{
		"sender_batch_header": map[string]string{
			"sender_batch_id": senderID,
			"email_subject":   g.cfg.EmailSubject,
		},
		"items": []map[string]interface{}{
			{
				"recipient_type": "EMAIL",
				"receiver":       receiver,
				"sender_item_id": senderID,
				"amount": map[string]string{
					"value":    req.Amount.String(),
					"currency": g.cfg.Currency,
				},
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("%w: marshal request failed", ErrRequestFailed)
	}
	respBody, statusCode, err := g.doJSONRequest(ctx, http.MethodPost, "/v1/payments/payouts", token, body)
	if err != nil {
		return "", "", err
	}
	if statusCode < 200 || statusCode >= 300 {
		return "", "", fmt.Errorf("%w: create payout status %d", ErrResponseInvalid, statusCode)
	}
	return parseBatchHeader(respBody)
}

func (g *Gateway) getBatchStatus(ctx context.Context, token, batchID string) (string, error) {
	respBody, statusCode, err := g.doJSONRequest(ctx, http.MethodGet, "/v1/payments/payouts/"+url.PathEscape(batchID), token, nil)
	if err != nil {
		return "", err
	}
	if statusCode < 200 || statusCode >= 300 {
		return "", fmt.Errorf("%w: get payout status %d", ErrResponseInvalid, statusCode)
	}
	_, status, err := parseBatchHeader(respBody)
	return status, err
}

func parseBatchHeader(body []byte) (string, string, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", "", fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}
	batchID := strings.TrimSpace(readString(raw, "batch_header", "payout_batch_id"))
	status := strings.ToUpper(strings.TrimSpace(readString(raw, "batch_header", "batch_status")))
	if batchID == "" || status == "" {
		return "", "", fmt.Errorf("%w: missing batch header", ErrResponseInvalid)
	}
	return batchID, status, nil
}

func (c *Config) normalize() {
	c.ClientID = strings.TrimSpace(c.ClientID)
	c.ClientSecret = strings.TrimSpace(c.ClientSecret)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = defaultSandboxBaseURL
	}
	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
	if c.Currency == "" {
		c.Currency = defaultCurrency
	}
	c.EmailSubject = strings.TrimSpace(c.EmailSubject)
	if c.EmailSubject == "" {
		c.EmailSubject = "You have a payout"
	}
}

func (g *Gateway) getAccessToken(ctx context.Context) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.FromContext(ctx)
	if cached, ok, err := g.tokens.Get(ctx, g.cfg.ClientID); err != nil {
		log.Warnw("paypal_token_cache_get_failed", "error", err)
	} else if ok {
		return cached, nil
	}
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	values := url.Values{}
	values.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader(values.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: build token request failed", ErrAuthFailed)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(g.cfg.ClientID, g.cfg.ClientSecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: request token failed", ErrAuthFailed)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read token response failed", ErrAuthFailed)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: token status %d", ErrAuthFailed, resp.StatusCode)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode token response failed", ErrAuthFailed)
	}
	token := strings.TrimSpace(readString(parsed, "access_token"))
	if token == "" {
		return "", fmt.Errorf("%w: access_token is empty", ErrAuthFailed)
	}
	if ttl := tokenTTL(readString(parsed, "expires_in")); ttl > 0 {
		if err := g.tokens.Save(ctx, g.cfg.ClientID, token, ttl); err != nil {
			log.Warnw("paypal_token_cache_set_failed", "error", err)
		}
	}
	return token, nil
}

// tokenTTL 令牌有效期减去安全余量，无法解析时不缓存
func tokenTTL(raw string) time.Duration {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || seconds <= 0 {
		return 0
	}
	ttl := time.Duration(seconds)*time.Second - tokenExpiryMargin
	if ttl <= 0 {
		return 0
	}
	return ttl
}

func (g *Gateway) doJSONRequest(ctx context.Context, method, endpoint, token string, body []byte) ([]byte, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.cfg.BaseURL+endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: http request failed", ErrRequestFailed)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read response failed", ErrRequestFailed)
	}
	return respBody, resp.StatusCode, nil
}

func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, defaultTimeout)
}

func readString(raw map[string]interface{}, path ...string) string {
	if raw == nil {
		return ""
	}
	var current interface{} = raw
	for _, seg := range path {
		next, ok := current.(map[string]interface{})
		if !ok {
			return ""
		}
		current = next[seg]
	}
	if current == nil {
		return ""
	}
	if str, ok := current.(string); ok {
		return str
	}
	return fmt.Sprintf("%v", current)
}

// cacheTokenStore 基于 Redis 的令牌缓存，Redis 未启用时每次重新鉴权
type cacheTokenStore struct{}

func (cacheTokenStore) Get(ctx context.Context, clientID string) (string, bool, error) {
	token, hit, err := cache.GetPayoutToken(ctx, Channel, clientID)
	if err != nil || !hit || token == nil {
		return "", false, err
	}
	return token.AccessToken, true, nil
}

func (cacheTokenStore) Save(ctx context.Context, clientID, token string, ttl time.Duration) error {
	return cache.SetPayoutToken(ctx, clientID, &cache.PayoutToken{
		Channel:     Channel,
		AccessToken: token,
	}, ttl)
}
