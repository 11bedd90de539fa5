package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dujiao-next/ledger/internal/logger"
	"github.com/dujiao-next/ledger/internal/metrics"
	"github.com/dujiao-next/ledger/internal/provider"
	"github.com/dujiao-next/ledger/internal/queue"
	"github.com/dujiao-next/ledger/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderEvent, c.handleOrderEvent)
	mux.HandleFunc(queue.TaskWithdrawStatusNotify, c.handleWithdrawStatusNotify)
	mux.HandleFunc(queue.TaskCommissionConfirmSweep, c.handleCommissionConfirmSweep)
}

func (c *Consumer) handleOrderEvent(ctx context.Context, task *asynq.Task) (err error) {
	defer func() { metrics.ObserveTask(queue.TaskOrderEvent, err) }()
	if c == nil || task == nil || c.OrderEventService == nil {
		logger.Debugw("worker_order_event_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderEventPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_event_unmarshal_failed", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if payload.RequestID != "" {
		ctx = logger.ContextWithRequestID(ctx, payload.RequestID)
	}
	log := logger.FromContext(ctx)

	result, err := c.OrderEventService.Apply(ctx, payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrStorageUnavailable), errors.Is(err, service.ErrLedgerConflict):
			log.Warnw("worker_order_event_retry", "event", payload.Event, "order_ref", payload.OrderRef, "error", err)
			return err
		default:
			// 业务错误重试无意义，记录后丢弃
			log.Warnw("worker_order_event_dropped", "event", payload.Event, "order_ref", payload.OrderRef, "error", err)
			return nil
		}
	}
	fields := []interface{}{"event", payload.Event, "order_ref", payload.OrderRef}
	if result != nil && result.Commission != nil {
		fields = append(fields, "commission_id", result.Commission.ID)
	}
	if result != nil && result.Reversal != nil {
		fields = append(fields, "reversed", len(result.Reversal.Reversed), "deferred", len(result.Reversal.Deferred))
	}
	log.Infow("worker_order_event_applied", fields...)
	return nil
}

func (c *Consumer) handleWithdrawStatusNotify(ctx context.Context, task *asynq.Task) (err error) {
	defer func() { metrics.ObserveTask(queue.TaskWithdrawStatusNotify, err) }()
	if c == nil || task == nil {
		return nil
	}
	var payload queue.WithdrawStatusNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_withdraw_notify_unmarshal_failed", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if payload.WithdrawalID == 0 {
		logger.Debugw("worker_withdraw_notify_skip_invalid_payload", "withdrawal_id", payload.WithdrawalID)
		return nil
	}
	if payload.RequestID != "" {
		ctx = logger.ContextWithRequestID(ctx, payload.RequestID)
	}
	// 通知渠道由下游订阅结构化日志，这里只校验申请仍存在
	req, err := c.WithdrawalService.GetAdmin(ctx, payload.WithdrawalID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			logger.Debugw("worker_withdraw_notify_skip_not_found", "withdrawal_id", payload.WithdrawalID)
			return nil
		}
		return err
	}
	logger.FromContext(ctx).Infow("withdrawal_status_notified",
		"withdrawal_id", req.ID,
		"promoter_id", req.PromoterID,
		"action", payload.Action,
		"status", payload.Status,
		"current_status", req.Status,
		"amount", payload.Amount,
	)
	return nil
}

func (c *Consumer) handleCommissionConfirmSweep(ctx context.Context, task *asynq.Task) (err error) {
	defer func() { metrics.ObserveTask(queue.TaskCommissionConfirmSweep, err) }()
	if c == nil || task == nil || c.LedgerService == nil {
		return nil
	}
	var payload queue.CommissionConfirmSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_confirm_sweep_unmarshal_failed", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	before := time.Now()
	if payload.Before > 0 {
		before = time.Unix(payload.Before, 0)
	}
	_, err = c.LedgerService.CreditDue(ctx, before)
	return err
}

// confirmDue 将到期的待确认佣金入账
func (c *Consumer) confirmDue(ctx context.Context, now time.Time) {
	if c == nil || c.LedgerService == nil {
		return
	}
	if _, err := c.LedgerService.CreditDue(ctx, now); err != nil {
		logger.Warnw("worker_commission_confirm_due_failed", "error", err)
	}
}

// scheduleSweep 多实例部署时按时间窗去重投递入账任务，投递失败时本地执行
func (c *Consumer) scheduleSweep(ctx context.Context, now time.Time, window time.Duration) {
	if c == nil || c.Container == nil {
		return
	}
	if c.QueueClient == nil || !c.QueueClient.Enabled() {
		c.confirmDue(ctx, now)
		return
	}
	if window <= 0 {
		window = defaultConfirmInterval
	}
	if err := c.QueueClient.EnqueueCommissionConfirmSweep(now.Truncate(window), 0); err != nil {
		logger.Warnw("worker_confirm_sweep_enqueue_failed", "error", err)
		c.confirmDue(ctx, now)
	}
}
