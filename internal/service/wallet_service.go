package service

import (
	"context"

	"github.com/dujiao-next/ledger/internal/constants"
	"github.com/dujiao-next/ledger/internal/models"
	"github.com/dujiao-next/ledger/internal/repository"

	"github.com/shopspring/decimal"
)

const walletRecentLimit = 5

// Wallet 推广员钱包视图，每次由账本实时汇总，不落库
type Wallet struct {
	PromoterID          uint         `json:"promoter_id"`
	TotalEarned         models.Money `json:"total_earned"`
	TotalWithdrawn      models.Money `json:"total_withdrawn"`
	Locked              models.Money `json:"locked"`
	PendingCommission   models.Money `json:"pending_commission"`
	WithdrawableBalance models.Money `json:"withdrawable_balance"`
	AvailableBalance    models.Money `json:"available_balance"`
}

// WalletSummary 推广员钱包概览
type WalletSummary struct {
	Wallet
	PendingWithdrawals int64                      `json:"pending_withdrawals"`
	RecentCommissions  []models.CommissionEntry   `json:"recent_commissions"`
	RecentWithdrawals  []models.WithdrawalRequest `json:"recent_withdrawals"`
}

// WalletService 钱包余额计算服务
type WalletService struct {
	promoterRepo   repository.PromoterRepository
	commissionRepo repository.CommissionRepository
	withdrawRepo   repository.WithdrawalRepository
}

// NewWalletService 创建钱包余额计算服务
func NewWalletService(
	promoterRepo repository.PromoterRepository,
	commissionRepo repository.CommissionRepository,
	withdrawRepo repository.WithdrawalRepository,
) *WalletService {
	return &WalletService{
		promoterRepo:   promoterRepo,
		commissionRepo: commissionRepo,
		withdrawRepo:   withdrawRepo,
	}
}

// ComputeWallet 汇总推广员钱包余额
func (s *WalletService) ComputeWallet(ctx context.Context, promoterID uint) (Wallet, error) {
	var wallet Wallet
	err := retryRead(func() error {
		promoter, err := s.promoterRepo.WithContext(ctx).GetByID(promoterID)
		if err != nil {
			return wrapStorageErr(err)
		}
		if promoter == nil {
			return ErrPromoterNotFound
		}
		wallet, err = computeWalletTx(s.commissionRepo.WithContext(ctx), s.withdrawRepo.WithContext(ctx), promoterID)
		return err
	})
	return wallet, err
}

// Summary 返回钱包概览及最近记录
func (s *WalletService) Summary(ctx context.Context, promoterID uint) (*WalletSummary, error) {
	wallet, err := s.ComputeWallet(ctx, promoterID)
	if err != nil {
		return nil, err
	}
	summary := &WalletSummary{Wallet: wallet}
	err = retryRead(func() error {
		withdrawRepo := s.withdrawRepo.WithContext(ctx)
		count, err := withdrawRepo.CountByPromoter(promoterID, lockedWithdrawStatuses)
		if err != nil {
			return wrapStorageErr(err)
		}
		commissions, err := s.commissionRepo.WithContext(ctx).ListRecent(promoterID, walletRecentLimit)
		if err != nil {
			return wrapStorageErr(err)
		}
		withdrawals, err := withdrawRepo.ListRecent(promoterID, walletRecentLimit)
		if err != nil {
			return wrapStorageErr(err)
		}
		summary.PendingWithdrawals = count
		summary.RecentCommissions = commissions
		summary.RecentWithdrawals = withdrawals
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// computeWalletTx 使用给定仓储（通常已绑定事务）汇总余额
func computeWalletTx(commissionRepo repository.CommissionRepository, withdrawRepo repository.WithdrawalRepository, promoterID uint) (Wallet, error) {
	earned, err := commissionRepo.SumByPromoter(promoterID, []string{constants.CommissionStatusCredited})
	if err != nil {
		return Wallet{}, wrapStorageErr(err)
	}
	pending, err := commissionRepo.SumByPromoter(promoterID, []string{constants.CommissionStatusPending})
	if err != nil {
		return Wallet{}, wrapStorageErr(err)
	}
	withdrawn, err := withdrawRepo.SumByPromoter(promoterID, []string{constants.WithdrawStatusCompleted})
	if err != nil {
		return Wallet{}, wrapStorageErr(err)
	}
	locked, err := withdrawRepo.SumByPromoter(promoterID, lockedWithdrawStatuses)
	if err != nil {
		return Wallet{}, wrapStorageErr(err)
	}
	return buildWallet(promoterID, repository.PromoterLedgerAggregate{
		Earned:    earned,
		Pending:   pending,
		Withdrawn: withdrawn,
		Locked:    locked,
	}), nil
}

func buildWallet(promoterID uint, agg repository.PromoterLedgerAggregate) Wallet {
	available := agg.Earned.Sub(agg.Withdrawn)
	withdrawable := available.Sub(agg.Locked)
	return Wallet{
		PromoterID:          promoterID,
		TotalEarned:         models.NewMoneyFromDecimal(agg.Earned),
		TotalWithdrawn:      models.NewMoneyFromDecimal(agg.Withdrawn),
		Locked:              models.NewMoneyFromDecimal(agg.Locked),
		PendingCommission:   models.NewMoneyFromDecimal(agg.Pending),
		WithdrawableBalance: models.NewMoneyFromDecimal(withdrawable),
		AvailableBalance:    models.NewMoneyFromDecimal(available),
	}
}

// withdrawable 返回可提现余额的 decimal 值
func (w Wallet) withdrawable() decimal.Decimal {
	return w.WithdrawableBalance.Decimal
}
