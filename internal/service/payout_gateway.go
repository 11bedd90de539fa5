package service

import (
	"context"
	"strings"

	"github.com/dujiao-next/ledger/internal/models"

	"github.com/google/uuid"
)

// PayoutConfirmation 打款确认结果
// 说明：未确认时 Reference 仍可能非空，表示渠道已受理但尚未结算。
type PayoutConfirmation struct {
	Confirmed bool
	Reference string
}

// PayoutState 渠道侧打款状态
type PayoutState string

const (
	PayoutStateNone      PayoutState = "none"
	PayoutStatePending   PayoutState = "pending"
	PayoutStateSucceeded PayoutState = "succeeded"
	PayoutStateFailed    PayoutState = "failed"
)

// PayoutGateway 打款渠道，完成提现前确认款项已到账
type PayoutGateway interface {
	// ConfirmPayout 未提交时提交打款，已提交（req.PayoutRef 非空）时查询结算结果
	ConfirmPayout(ctx context.Context, req *models.WithdrawalRequest) (PayoutConfirmation, error)
	// PayoutStatus 查询 req.PayoutRef 对应打款的当前状态
	PayoutStatus(ctx context.Context, req *models.WithdrawalRequest) (PayoutState, error)
}

// ManualPayoutGateway 人工打款渠道：管理员线下转账后直接确认
type ManualPayoutGateway struct{}

// NewManualPayoutGateway 创建人工打款渠道
func NewManualPayoutGateway() *ManualPayoutGateway {
	return &ManualPayoutGateway{}
}

// ConfirmPayout 人工渠道始终确认，生成内部流水号
func (g *ManualPayoutGateway) ConfirmPayout(_ context.Context, req *models.WithdrawalRequest) (PayoutConfirmation, error) {
	if req == nil {
		return PayoutConfirmation{}, ErrNotFound
	}
	ref := strings.TrimSpace(req.PayoutRef)
	if ref == "" {
		ref = "MANUAL-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	}
	return PayoutConfirmation{Confirmed: true, Reference: ref}, nil
}

// PayoutStatus 人工渠道的流水号只在确认时生成，有流水号即视为已打款
func (g *ManualPayoutGateway) PayoutStatus(_ context.Context, req *models.WithdrawalRequest) (PayoutState, error) {
	if req == nil {
		return "", ErrNotFound
	}
	if strings.TrimSpace(req.PayoutRef) == "" {
		return PayoutStateNone, nil
	}
	return PayoutStateSucceeded, nil
}
