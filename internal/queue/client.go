package queue

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/ledger/internal/config"
	"github.com/dujiao-next/ledger/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
)

// ErrQueueDisabled 队列未启用
var ErrQueueDisabled = errors.New("queue disabled")

// Client 队列客户端封装
type Client struct {
	client       *asynq.Client
	enabled      bool
	defaultQueue string
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, defaultQueue: DefaultQueue}, nil
	}
	opt := buildRedisOpt(cfg)
	client := asynq.NewClient(opt)
	return &Client{
		client:       client,
		enabled:      true,
		defaultQueue: DefaultQueue,
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueOrderEvent 推送订单事件任务，按订单号去重
func (c *Client) EnqueueOrderEvent(payload OrderEventPayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return ErrQueueDisabled
	}
	task, err := NewOrderEventTask(payload)
	if err != nil {
		return err
	}
	options := []asynq.Option{
		asynq.Queue(constants.QueueCritical),
		asynq.MaxRetry(10),
		asynq.TaskID(orderEventTaskID(payload)),
	}
	options = append(options, opts...)
	_, err = c.client.Enqueue(task, options...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// EnqueueWithdrawStatusNotify 推送提现状态通知任务
func (c *Client) EnqueueWithdrawStatusNotify(payload WithdrawStatusNotifyPayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewWithdrawStatusNotifyTask(payload)
	if err != nil {
		return err
	}
	options := append([]asynq.Option{asynq.Queue(c.defaultQueue)}, opts...)
	_, err = c.client.Enqueue(task, options...)
	return err
}

// EnqueueCommissionConfirmSweep 推送到期佣金入账任务
func (c *Client) EnqueueCommissionConfirmSweep(before time.Time, delay time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	if delay < 0 {
		delay = 0
	}
	task, err := NewCommissionConfirmSweepTask(CommissionConfirmSweepPayload{Before: before.Unix()})
	if err != nil {
		return err
	}
	options := []asynq.Option{
		asynq.Queue(c.defaultQueue),
		asynq.ProcessIn(delay),
		asynq.TaskID(fmt.Sprintf("commission_confirm_sweep:%d", before.Unix())),
		asynq.Retention(time.Hour),
	}
	_, err = c.client.Enqueue(task, options...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func orderEventTaskID(payload OrderEventPayload) string {
	return fmt.Sprintf("order_event:%s:%s:%d:%s",
		strings.TrimSpace(payload.Event),
		strings.TrimSpace(payload.OrderRef),
		payload.PromoterID,
		strings.TrimSpace(payload.Kind),
	)
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{DefaultQueue: 1}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}
