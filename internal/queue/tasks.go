package queue

import (
	"encoding/json"

	"github.com/dujiao-next/ledger/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderEvent 订单事件入账任务
	TaskOrderEvent = constants.TaskOrderEvent
	// TaskWithdrawStatusNotify 提现状态通知任务
	TaskWithdrawStatusNotify = constants.TaskWithdrawStatusNotify
	// TaskCommissionConfirmSweep 到期佣金入账任务
	TaskCommissionConfirmSweep = constants.TaskCommissionConfirmSweep
)

// OrderEventPayload 订单事件任务载荷
type OrderEventPayload struct {
	Event      string `json:"event"`
	OrderRef   string `json:"order_ref"`
	PromoterID uint   `json:"promoter_id"`
	Amount     string `json:"amount"`
	Kind       string `json:"kind"`
	Reason     string `json:"reason,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// WithdrawStatusNotifyPayload 提现状态通知任务载荷
type WithdrawStatusNotifyPayload struct {
	WithdrawalID uint   `json:"withdrawal_id"`
	PromoterID   uint   `json:"promoter_id"`
	Action       string `json:"action"`
	Status       string `json:"status"`
	Amount       string `json:"amount"`
	RequestID    string `json:"request_id,omitempty"`
}

// CommissionConfirmSweepPayload 到期佣金入账任务载荷
type CommissionConfirmSweepPayload struct {
	Before int64 `json:"before"`
}

// NewOrderEventTask 创建订单事件任务
func NewOrderEventTask(payload OrderEventPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderEvent, body), nil
}

// NewWithdrawStatusNotifyTask 创建提现状态通知任务
func NewWithdrawStatusNotifyTask(payload WithdrawStatusNotifyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWithdrawStatusNotify, body), nil
}

// NewCommissionConfirmSweepTask 创建到期佣金入账任务
func NewCommissionConfirmSweepTask(payload CommissionConfirmSweepPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommissionConfirmSweep, body), nil
}
