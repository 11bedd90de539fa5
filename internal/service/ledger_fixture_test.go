package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dujiao-next/ledger/internal/config"
	"github.com/dujiao-next/ledger/internal/constants"
	"github.com/dujiao-next/ledger/internal/models"
	"github.com/dujiao-next/ledger/internal/queue"
	"github.com/dujiao-next/ledger/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ledgerFixture struct {
	db          *gorm.DB
	cfg         *config.Config
	promoters   repository.PromoterRepository
	commissions repository.CommissionRepository
	withdrawals repository.WithdrawalRepository
	ledger      *LedgerService
	wallet      *WalletService
	withdraw    *WithdrawalService
	notifier    *recordingNotifier
}

type recordingNotifier struct {
	mu       sync.Mutex
	payloads []queue.WithdrawStatusNotifyPayload
}

func (n *recordingNotifier) EnqueueWithdrawStatusNotify(payload queue.WithdrawStatusNotifyPayload, _ ...asynq.Option) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payloads = append(n.payloads, payload)
	return nil
}

func (n *recordingNotifier) statuses() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.payloads))
	for _, p := range n.payloads {
		out = append(out, p.Status)
	}
	return out
}

func newLedgerTestConfig() *config.Config {
	return &config.Config{
		Ledger: config.LedgerConfig{
			ConfirmDays:       0,
			MinWithdrawAmount: "0.01",
			CreateRetryLimit:  3,
		},
	}
}

func setupLedgerFixture(t *testing.T, payout PayoutGateway) *ledgerFixture {
	t.Helper()
	return setupLedgerFixtureWithConfig(t, newLedgerTestConfig(), payout)
}

func setupLedgerFixtureWithConfig(t *testing.T, cfg *config.Config, payout PayoutGateway) *ledgerFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:ledger_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	promoterRepo := repository.NewPromoterRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	withdrawRepo := repository.NewWithdrawalRepository(db)
	notifier := &recordingNotifier{}
	return &ledgerFixture{
		db:          db,
		cfg:         cfg,
		promoters:   promoterRepo,
		commissions: commissionRepo,
		withdrawals: withdrawRepo,
		ledger:      NewLedgerService(cfg, promoterRepo, commissionRepo, withdrawRepo),
		wallet:      NewWalletService(promoterRepo, commissionRepo, withdrawRepo),
		withdraw:    NewWithdrawalService(cfg, promoterRepo, commissionRepo, withdrawRepo, payout, notifier),
		notifier:    notifier,
	}
}

func (f *ledgerFixture) createPromoter(t *testing.T, email string) *models.Promoter {
	t.Helper()
	promoter := &models.Promoter{
		DisplayName: email,
		Email:       email,
		Tier:        constants.PromoterTierPaid,
		Status:      constants.PromoterStatusActive,
	}
	if err := f.db.Create(promoter).Error; err != nil {
		t.Fatalf("create promoter failed: %v", err)
	}
	return promoter
}

func (f *ledgerFixture) credit(t *testing.T, promoterID uint, amount string) *models.CommissionEntry {
	t.Helper()
	entry, err := f.ledger.Record(context.Background(), RecordCommissionInput{
		PromoterID: promoterID,
		Amount:     decimal.RequireFromString(amount),
		Kind:       constants.CommissionKindDirectSale,
	})
	if err != nil {
		t.Fatalf("record commission failed: %v", err)
	}
	if entry.Status != constants.CommissionStatusCredited {
		t.Fatalf("expected credited commission, got %s", entry.Status)
	}
	return entry
}

func (f *ledgerFixture) mustWallet(t *testing.T, promoterID uint) Wallet {
	t.Helper()
	wallet, err := f.wallet.ComputeWallet(context.Background(), promoterID)
	if err != nil {
		t.Fatalf("compute wallet failed: %v", err)
	}
	return wallet
}

func (f *ledgerFixture) mustCreateWithdrawal(t *testing.T, promoterID uint, amount string) *models.WithdrawalRequest {
	t.Helper()
	req, err := f.withdraw.Create(context.Background(), promoterID, decimal.RequireFromString(amount))
	if err != nil {
		t.Fatalf("create withdrawal failed: %v", err)
	}
	return req
}

func assertMoney(t *testing.T, label string, got models.Money, want string) {
	t.Helper()
	if !got.Decimal.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("unexpected %s: got=%s want=%s", label, got.String(), want)
	}
}

func notePtr(value string) *string {
	return &value
}
