package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dujiao-next/ledger/internal/config"
	"github.com/dujiao-next/ledger/internal/constants"
	"github.com/dujiao-next/ledger/internal/logger"
	"github.com/dujiao-next/ledger/internal/metrics"
	"github.com/dujiao-next/ledger/internal/models"
	"github.com/dujiao-next/ledger/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultLedgerRetryLimit = 3
	maxReverseReasonRunes   = 255
)

// RecordCommissionInput 记录佣金输入
type RecordCommissionInput struct {
	PromoterID uint
	Amount     decimal.Decimal
	Kind       string
	OrderRef   string
}

// CommissionListQuery 佣金列表查询
type CommissionListQuery struct {
	Page       int
	PageSize   int
	PromoterID uint
	Status     string
	Kind       string
	OrderRef   string
}

// ReverseByOrderResult 按订单冲正结果
type ReverseByOrderResult struct {
	Reversed []uint `json:"reversed"`
	Deferred []uint `json:"deferred"`
}

// LedgerService 佣金账本服务
type LedgerService struct {
	cfg            *config.Config
	promoterRepo   repository.PromoterRepository
	commissionRepo repository.CommissionRepository
	withdrawRepo   repository.WithdrawalRepository
}

// NewLedgerService 创建佣金账本服务
func NewLedgerService(
	cfg *config.Config,
	promoterRepo repository.PromoterRepository,
	commissionRepo repository.CommissionRepository,
	withdrawRepo repository.WithdrawalRepository,
) *LedgerService {
	return &LedgerService{
		cfg:            cfg,
		promoterRepo:   promoterRepo,
		commissionRepo: commissionRepo,
		withdrawRepo:   withdrawRepo,
	}
}

// Record 记录一笔佣金，同一订单同类型重复记录时返回已有记录
func (s *LedgerService) Record(ctx context.Context, input RecordCommissionInput) (*models.CommissionEntry, error) {
	amount := input.Amount
	if amount.LessThanOrEqual(decimal.Zero) || !models.FitsMoneyScale(amount) {
		return nil, ErrInvalidAmount
	}
	kind := strings.ToLower(strings.TrimSpace(input.Kind))
	if !isValidCommissionKind(kind) {
		return nil, ErrCommissionKindInvalid
	}
	promoter, err := s.promoterRepo.WithContext(ctx).GetByID(input.PromoterID)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	if promoter == nil {
		return nil, ErrPromoterNotFound
	}

	commissionRepo := s.commissionRepo.WithContext(ctx)
	orderRef := strings.TrimSpace(input.OrderRef)
	if orderRef != "" {
		existing, err := commissionRepo.GetByOrderRef(promoter.ID, orderRef, kind)
		if err != nil {
			return nil, wrapStorageErr(err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	now := time.Now()
	entry := &models.CommissionEntry{
		PromoterID: promoter.ID,
		Amount:     models.NewMoneyFromDecimal(amount),
		Kind:       kind,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if orderRef != "" {
		entry.OrderRef = &orderRef
	}
	if days := s.confirmDays(); days > 0 {
		confirmAt := now.Add(time.Duration(days) * 24 * time.Hour)
		entry.Status = constants.CommissionStatusPending
		entry.ConfirmAt = &confirmAt
	} else {
		entry.Status = constants.CommissionStatusCredited
		entry.CreditedAt = &now
	}

	if err := commissionRepo.Create(entry); err != nil {
		if orderRef != "" && isUniqueViolation(err) {
			existing, getErr := commissionRepo.GetByOrderRef(promoter.ID, orderRef, kind)
			if getErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, wrapStorageErr(err)
	}

	metrics.ObserveCommission(kind, "record", amount)
	logger.FromContext(ctx).Infow("commission_recorded",
		"commission_id", entry.ID,
		"promoter_id", entry.PromoterID,
		"amount", entry.Amount.String(),
		"kind", entry.Kind,
		"status", entry.Status,
		"order_ref", orderRef,
	)
	return entry, nil
}

// Credit 将待确认佣金入账
func (s *LedgerService) Credit(ctx context.Context, entryID uint) (*models.CommissionEntry, error) {
	var applied []models.CommissionEntry
	err := s.promoterRepo.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commissionTx := s.commissionRepo.WithTx(tx)
		_, entry, err := s.lockEntryWithPromoter(tx, entryID)
		if err != nil {
			return err
		}
		if entry.Status != constants.CommissionStatusPending {
			return ErrCommissionStatusInvalid
		}
		now := time.Now()
		affected, err := commissionTx.UpdateStatusFrom(entry.ID, constants.CommissionStatusPending, map[string]interface{}{
			"status":      constants.CommissionStatusCredited,
			"credited_at": now,
			"updated_at":  now,
		})
		if err != nil {
			return wrapStorageErr(err)
		}
		if affected == 0 {
			return ErrCommissionStatusInvalid
		}

		applied, err = applyRequestedReversals(commissionTx, s.withdrawRepo.WithTx(tx), entry.PromoterID, now)
		if err != nil {
			return err
		}
		return wrapStorageErr(s.promoterRepo.WithTx(tx).BumpLedgerVersion(entry.PromoterID))
	})
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	entry, err := s.commissionRepo.WithContext(ctx).GetByID(entryID)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	if entry != nil {
		metrics.ObserveCommission(entry.Kind, "credit", entry.Amount.Decimal)
		logger.FromContext(ctx).Infow("commission_credited", "commission_id", entry.ID, "promoter_id", entry.PromoterID)
	}
	logAppliedReversals(ctx, applied, "credit")
	return entry, nil
}

// CreditDue 将确认期已到的待确认佣金批量入账
func (s *LedgerService) CreditDue(ctx context.Context, now time.Time) (int64, error) {
	affected, err := s.commissionRepo.WithContext(ctx).MarkDueCredited(now, now)
	if err != nil {
		return 0, wrapStorageErr(err)
	}
	if affected > 0 {
		logger.FromContext(ctx).Infow("commission_credit_due", "count", affected)
	}
	if _, err := s.ApplyRequestedReversals(ctx); err != nil {
		return affected, err
	}
	return affected, nil
}

// ApplyRequestedReversals 逐个推广员执行已登记的冲正请求，返回实际冲正条数
func (s *LedgerService) ApplyRequestedReversals(ctx context.Context) (int, error) {
	promoterIDs, err := s.commissionRepo.WithContext(ctx).ListReversalRequestedPromoterIDs()
	if err != nil {
		return 0, wrapStorageErr(err)
	}
	total := 0
	for _, promoterID := range promoterIDs {
		var applied []models.CommissionEntry
		err := s.promoterRepo.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			promoterTx := s.promoterRepo.WithTx(tx)
			if _, err := promoterTx.GetByIDForUpdate(promoterID); err != nil {
				return wrapStorageErr(err)
			}
			var err error
			applied, err = applyRequestedReversals(s.commissionRepo.WithTx(tx), s.withdrawRepo.WithTx(tx), promoterID, time.Now())
			if err != nil || len(applied) == 0 {
				return err
			}
			return wrapStorageErr(promoterTx.BumpLedgerVersion(promoterID))
		})
		if err != nil {
			return total, wrapStorageErr(err)
		}
		logAppliedReversals(ctx, applied, "sweep")
		total += len(applied)
	}
	return total, nil
}

// Reverse 冲正佣金。已入账佣金若被提现占用，冲正后可提现余额会为负，
// 此时只登记冲正请求，待占用释放后由 applyRequestedReversals 执行。
func (s *LedgerService) Reverse(ctx context.Context, entryID uint, reason string) (*models.CommissionEntry, error) {
	reasonText := truncateRunes(strings.TrimSpace(reason), maxReverseReasonRunes)
	if reasonText == "" {
		reasonText = "manual"
	}

	deferred := false
	err := withLedgerRetry(s.retryLimit(), func() error {
		deferred = false
		return s.promoterRepo.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			commissionTx := s.commissionRepo.WithTx(tx)
			promoter, entry, err := s.lockEntryWithPromoter(tx, entryID)
			if err != nil {
				return err
			}
			if entry.Status == constants.CommissionStatusReversed {
				return ErrAlreadyReversed
			}
			promoterTx := s.promoterRepo.WithTx(tx)

			now := time.Now()
			updates := map[string]interface{}{
				"status":         constants.CommissionStatusReversed,
				"reversed_at":    now,
				"reverse_reason": reasonText,
				"updated_at":     now,
			}
			if entry.Status == constants.CommissionStatusCredited {
				wallet, err := computeWalletTx(commissionTx, s.withdrawRepo.WithTx(tx), promoter.ID)
				if err != nil {
					return err
				}
				if entry.Amount.Decimal.GreaterThan(wallet.withdrawable()) {
					deferred = true
					if entry.ReversalRequestedAt != nil {
						return nil
					}
					updates = map[string]interface{}{
						"reversal_requested_at": now,
						"reverse_reason":        reasonText,
						"updated_at":            now,
					}
				}
			}

			affected, err := commissionTx.UpdateStatusFrom(entry.ID, entry.Status, updates)
			if err != nil {
				return wrapStorageErr(err)
			}
			if affected == 0 {
				return ErrAlreadyReversed
			}
			ok, err := promoterTx.CompareAndBumpLedgerVersion(promoter.ID, promoter.LedgerVersion)
			if err != nil {
				return wrapStorageErr(err)
			}
			if !ok {
				return ErrLedgerConflict
			}
			return nil
		})
	})
	if err != nil {
		return nil, wrapStorageErr(err)
	}

	entry, err := s.commissionRepo.WithContext(ctx).GetByID(entryID)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	if entry == nil {
		return nil, ErrNotFound
	}
	if deferred {
		logger.FromContext(ctx).Warnw("commission_reversal_deferred",
			"commission_id", entry.ID,
			"promoter_id", entry.PromoterID,
			"amount", entry.Amount.String(),
			"reason", entry.ReverseReason,
		)
		return entry, nil
	}
	metrics.ObserveCommission(entry.Kind, "reverse", entry.Amount.Decimal)
	logger.FromContext(ctx).Infow("commission_reversed",
		"commission_id", entry.ID,
		"promoter_id", entry.PromoterID,
		"amount", entry.Amount.String(),
		"reason", reasonText,
	)
	return entry, nil
}

// lockEntryWithPromoter 先锁推广员再锁佣金，与提现流转的加锁顺序一致
func (s *LedgerService) lockEntryWithPromoter(tx *gorm.DB, entryID uint) (*models.Promoter, *models.CommissionEntry, error) {
	commissionTx := s.commissionRepo.WithTx(tx)
	current, err := commissionTx.GetByID(entryID)
	if err != nil {
		return nil, nil, wrapStorageErr(err)
	}
	if current == nil {
		return nil, nil, ErrNotFound
	}
	promoter, err := s.promoterRepo.WithTx(tx).GetByIDForUpdate(current.PromoterID)
	if err != nil {
		return nil, nil, wrapStorageErr(err)
	}
	if promoter == nil {
		return nil, nil, ErrPromoterNotFound
	}
	entry, err := commissionTx.GetByIDForUpdate(entryID)
	if err != nil {
		return nil, nil, wrapStorageErr(err)
	}
	if entry == nil {
		return nil, nil, ErrNotFound
	}
	return promoter, entry, nil
}

// ReverseByOrder 冲正订单关联的全部可冲正佣金，被提现占用的佣金登记为延迟冲正
func (s *LedgerService) ReverseByOrder(ctx context.Context, orderRef, reason string) (*ReverseByOrderResult, error) {
	result := &ReverseByOrderResult{Reversed: []uint{}, Deferred: []uint{}}
	ref := strings.TrimSpace(orderRef)
	if ref == "" {
		return nil, ErrOrderEventInvalid
	}
	rows, err := s.commissionRepo.WithContext(ctx).ListByOrderRef(ref, []string{
		constants.CommissionStatusPending,
		constants.CommissionStatusCredited,
	})
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	for _, row := range rows {
		entry, err := s.Reverse(ctx, row.ID, reason)
		switch {
		case errors.Is(err, ErrAlreadyReversed):
			continue
		case err != nil:
			return result, err
		case entry.Status == constants.CommissionStatusReversed:
			result.Reversed = append(result.Reversed, row.ID)
		default:
			result.Deferred = append(result.Deferred, row.ID)
		}
	}
	return result, nil
}

// applyRequestedReversals 在调用方事务内执行已登记的冲正请求，
// 按请求先后处理，只冲正不会使可提现余额为负的记录。
func applyRequestedReversals(commissionTx repository.CommissionRepository, withdrawTx repository.WithdrawalRepository, promoterID uint, now time.Time) ([]models.CommissionEntry, error) {
	rows, err := commissionTx.ListReversalRequested(promoterID)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	wallet, err := computeWalletTx(commissionTx, withdrawTx, promoterID)
	if err != nil {
		return nil, err
	}
	room := wallet.withdrawable()
	applied := make([]models.CommissionEntry, 0, len(rows))
	for _, row := range rows {
		if row.Amount.Decimal.GreaterThan(room) {
			continue
		}
		affected, err := commissionTx.UpdateStatusFrom(row.ID, constants.CommissionStatusCredited, map[string]interface{}{
			"status":      constants.CommissionStatusReversed,
			"reversed_at": now,
			"updated_at":  now,
		})
		if err != nil {
			return nil, wrapStorageErr(err)
		}
		if affected == 0 {
			continue
		}
		room = room.Sub(row.Amount.Decimal)
		applied = append(applied, row)
	}
	return applied, nil
}

func logAppliedReversals(ctx context.Context, applied []models.CommissionEntry, trigger string) {
	for _, row := range applied {
		metrics.ObserveCommission(row.Kind, "reverse", row.Amount.Decimal)
		logger.FromContext(ctx).Infow("commission_reversed",
			"commission_id", row.ID,
			"promoter_id", row.PromoterID,
			"amount", row.Amount.String(),
			"reason", row.ReverseReason,
			"trigger", trigger,
		)
	}
}

// Get 查询佣金记录
func (s *LedgerService) Get(ctx context.Context, entryID uint) (*models.CommissionEntry, error) {
	entry, err := s.commissionRepo.WithContext(ctx).GetByID(entryID)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	if entry == nil {
		return nil, ErrNotFound
	}
	return entry, nil
}

// List 查询佣金记录列表
func (s *LedgerService) List(ctx context.Context, query CommissionListQuery) ([]models.CommissionEntry, int64, error) {
	status := strings.TrimSpace(query.Status)
	if status != "" && !isValidCommissionStatus(status) {
		return nil, 0, ErrBadRequest
	}
	kind := strings.TrimSpace(query.Kind)
	if kind != "" && !isValidCommissionKind(kind) {
		return nil, 0, ErrCommissionKindInvalid
	}
	var (
		rows  []models.CommissionEntry
		total int64
	)
	err := retryRead(func() error {
		var err error
		rows, total, err = s.commissionRepo.WithContext(ctx).List(repository.CommissionListFilter{
			Page:       query.Page,
			PageSize:   query.PageSize,
			PromoterID: query.PromoterID,
			Status:     status,
			Kind:       kind,
			OrderRef:   query.OrderRef,
		})
		return wrapStorageErr(err)
	})
	return rows, total, err
}

func (s *LedgerService) confirmDays() int {
	if s == nil || s.cfg == nil || s.cfg.Ledger.ConfirmDays < 0 {
		return 0
	}
	return s.cfg.Ledger.ConfirmDays
}

func (s *LedgerService) retryLimit() int {
	if s == nil || s.cfg == nil {
		return defaultLedgerRetryLimit
	}
	return normalizeRetryLimit(s.cfg.Ledger.CreateRetryLimit)
}

// withLedgerRetry 乐观锁冲突时重试，事务已回滚因此重试安全
func withLedgerRetry(limit int, fn func() error) error {
	var err error
	for attempt := 0; attempt < limit; attempt++ {
		err = fn()
		if !errors.Is(err, ErrLedgerConflict) {
			return err
		}
		metrics.ObserveLedgerConflict()
	}
	return err
}

func normalizeRetryLimit(limit int) int {
	if limit <= 0 {
		return defaultLedgerRetryLimit
	}
	return limit
}

func isValidCommissionKind(kind string) bool {
	switch kind {
	case constants.CommissionKindDirectSale, constants.CommissionKindNetworkReferral:
		return true
	}
	return false
}

func isValidCommissionStatus(status string) bool {
	switch status {
	case constants.CommissionStatusPending, constants.CommissionStatusCredited, constants.CommissionStatusReversed:
		return true
	}
	return false
}

// truncateRunes 按字符截断，避免切断多字节字符
func truncateRunes(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit])
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
