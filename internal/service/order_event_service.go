package service

import (
	"context"
	"strings"

	"github.com/dujiao-next/ledger/internal/config"
	"github.com/dujiao-next/ledger/internal/constants"
	"github.com/dujiao-next/ledger/internal/logger"
	"github.com/dujiao-next/ledger/internal/models"
	"github.com/dujiao-next/ledger/internal/queue"

	"github.com/hibiken/asynq"
)

// OrderEventEnqueuer 订单事件入队
type OrderEventEnqueuer interface {
	Enabled() bool
	EnqueueOrderEvent(payload queue.OrderEventPayload, opts ...asynq.Option) error
}

// OrderEventResult 订单事件处理结果
type OrderEventResult struct {
	Queued     bool                    `json:"queued"`
	Commission *models.CommissionEntry `json:"commission,omitempty"`
	Reversal   *ReverseByOrderResult   `json:"reversal,omitempty"`
}

// OrderEventService 订单事件入账服务：支付入账、取消与退款冲正
type OrderEventService struct {
	cfg    *config.Config
	ledger *LedgerService
	queue  OrderEventEnqueuer
}

// NewOrderEventService 创建订单事件服务
func NewOrderEventService(cfg *config.Config, ledger *LedgerService, enqueuer OrderEventEnqueuer) *OrderEventService {
	return &OrderEventService{cfg: cfg, ledger: ledger, queue: enqueuer}
}

// Accept 接收订单事件：队列可用时异步处理，否则同步处理
func (s *OrderEventService) Accept(ctx context.Context, payload queue.OrderEventPayload) (*OrderEventResult, error) {
	normalized, err := normalizeOrderEvent(payload)
	if err != nil {
		return nil, err
	}
	if s.queue != nil && s.queue.Enabled() {
		normalized.RequestID = logger.RequestIDFromContext(ctx)
		if err := s.queue.EnqueueOrderEvent(normalized); err != nil {
			logger.FromContext(ctx).Warnw("order_event_enqueue_failed",
				"event", normalized.Event,
				"order_ref", normalized.OrderRef,
				"error", err,
			)
		} else {
			return &OrderEventResult{Queued: true}, nil
		}
	}
	return s.Apply(ctx, normalized)
}

// Apply 同步处理订单事件，重复投递幂等
func (s *OrderEventService) Apply(ctx context.Context, payload queue.OrderEventPayload) (*OrderEventResult, error) {
	normalized, err := normalizeOrderEvent(payload)
	if err != nil {
		return nil, err
	}
	switch normalized.Event {
	case constants.OrderEventPaid:
		amount, err := models.ParseMoney(normalized.Amount)
		if err != nil {
			return nil, ErrInvalidAmount
		}
		entry, err := s.ledger.Record(ctx, RecordCommissionInput{
			PromoterID: normalized.PromoterID,
			Amount:     amount.Decimal,
			Kind:       normalized.Kind,
			OrderRef:   normalized.OrderRef,
		})
		if err != nil {
			return nil, err
		}
		return &OrderEventResult{Commission: entry}, nil
	case constants.OrderEventCanceled, constants.OrderEventRefunded:
		if normalized.Event == constants.OrderEventCanceled && s.cfg != nil && !s.cfg.Ledger.ReverseOnOrderCancelled {
			logger.FromContext(ctx).Infow("order_event_cancel_ignored", "order_ref", normalized.OrderRef)
			return &OrderEventResult{}, nil
		}
		reason := normalized.Reason
		if reason == "" {
			reason = "order_" + normalized.Event
		}
		result, err := s.ledger.ReverseByOrder(ctx, normalized.OrderRef, reason)
		if err != nil {
			return nil, err
		}
		return &OrderEventResult{Reversal: result}, nil
	}
	return nil, ErrOrderEventInvalid
}

func normalizeOrderEvent(payload queue.OrderEventPayload) (queue.OrderEventPayload, error) {
	payload.Event = strings.ToLower(strings.TrimSpace(payload.Event))
	payload.OrderRef = strings.TrimSpace(payload.OrderRef)
	payload.Kind = strings.ToLower(strings.TrimSpace(payload.Kind))
	payload.Amount = strings.TrimSpace(payload.Amount)
	payload.Reason = strings.TrimSpace(payload.Reason)
	if payload.OrderRef == "" {
		return payload, ErrOrderEventInvalid
	}
	switch payload.Event {
	case constants.OrderEventPaid:
		if payload.PromoterID == 0 {
			return payload, ErrOrderEventInvalid
		}
		if payload.Kind == "" {
			payload.Kind = constants.CommissionKindDirectSale
		}
	case constants.OrderEventCanceled, constants.OrderEventRefunded:
	default:
		return payload, ErrOrderEventInvalid
	}
	return payload, nil
}
