package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dujiao-next/ledger/internal/config"
	"github.com/dujiao-next/ledger/internal/constants"
	"github.com/dujiao-next/ledger/internal/logger"
	"github.com/dujiao-next/ledger/internal/metrics"
	"github.com/dujiao-next/ledger/internal/models"
	"github.com/dujiao-next/ledger/internal/queue"
	"github.com/dujiao-next/ledger/internal/repository"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WithdrawalNotifier 提现状态变更通知
type WithdrawalNotifier interface {
	EnqueueWithdrawStatusNotify(payload queue.WithdrawStatusNotifyPayload, opts ...asynq.Option) error
}

// TransitionInput 提现状态流转输入
type TransitionInput struct {
	WithdrawalID uint
	Action       string
	ActorType    string
	ActorID      uint
	Note         *string
}

// WithdrawalListQuery 推广员提现列表查询
type WithdrawalListQuery struct {
	Page     int
	PageSize int
	Status   string
	Ordering string
}

// AdminWithdrawalListQuery 管理端提现列表查询
type AdminWithdrawalListQuery struct {
	Page       int
	PageSize   int
	PromoterID uint
	Status     string
	Search     string
	Ordering   string
}

// AdminWithdrawalItem 管理端提现列表项
type AdminWithdrawalItem struct {
	models.WithdrawalRequest
	AvailableActions []string `json:"available_actions"`
}

// PromoterWithdrawalItem 推广员提现列表项
type PromoterWithdrawalItem struct {
	models.WithdrawalRequest
	AvailableActions []string `json:"available_actions"`
}

// WithdrawalService 提现申请服务
type WithdrawalService struct {
	cfg            *config.Config
	promoterRepo   repository.PromoterRepository
	commissionRepo repository.CommissionRepository
	withdrawRepo   repository.WithdrawalRepository
	payout         PayoutGateway
	notifier       WithdrawalNotifier
	minAmount      decimal.Decimal
}

// NewWithdrawalService 创建提现申请服务
func NewWithdrawalService(
	cfg *config.Config,
	promoterRepo repository.PromoterRepository,
	commissionRepo repository.CommissionRepository,
	withdrawRepo repository.WithdrawalRepository,
	payout PayoutGateway,
	notifier WithdrawalNotifier,
) *WithdrawalService {
	if payout == nil {
		payout = NewManualPayoutGateway()
	}
	minAmount := decimal.Zero
	if cfg != nil {
		if parsed, err := models.ParseMoney(cfg.Ledger.MinWithdrawAmount); err == nil && parsed.GreaterThan(decimal.Zero) {
			minAmount = parsed.Decimal
		} else if strings.TrimSpace(cfg.Ledger.MinWithdrawAmount) != "" {
			logger.Warnw("withdraw_min_amount_invalid", "value", cfg.Ledger.MinWithdrawAmount)
		}
	}
	return &WithdrawalService{
		cfg:            cfg,
		promoterRepo:   promoterRepo,
		commissionRepo: commissionRepo,
		withdrawRepo:   withdrawRepo,
		payout:         payout,
		notifier:       notifier,
		minAmount:      minAmount,
	}
}

// Create 推广员提交提现申请；余额校验与写入在同一事务中完成
func (s *WithdrawalService) Create(ctx context.Context, promoterID uint, rawAmount decimal.Decimal) (*models.WithdrawalRequest, error) {
	amount := rawAmount
	if amount.LessThanOrEqual(decimal.Zero) || !models.FitsMoneyScale(amount) {
		metrics.ObserveWithdrawalRejected("invalid_amount")
		return nil, ErrInvalidAmount
	}
	if s.minAmount.GreaterThan(decimal.Zero) && amount.LessThan(s.minAmount) {
		metrics.ObserveWithdrawalRejected("below_minimum")
		return nil, ErrWithdrawAmountTooSmall
	}

	requestID := logger.RequestIDFromContext(ctx)
	var createdID uint
	err := withLedgerRetry(s.retryLimit(), func() error {
		return s.promoterRepo.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			promoterTx := s.promoterRepo.WithTx(tx)
			withdrawTx := s.withdrawRepo.WithTx(tx)
			promoter, err := promoterTx.GetByIDForUpdate(promoterID)
			if err != nil {
				return wrapStorageErr(err)
			}
			if promoter == nil {
				return ErrPromoterNotFound
			}
			if promoter.Status != constants.PromoterStatusActive {
				return ErrPromoterDisabled
			}

			wallet, err := computeWalletTx(s.commissionRepo.WithTx(tx), withdrawTx, promoter.ID)
			if err != nil {
				return err
			}
			if amount.GreaterThan(wallet.withdrawable()) {
				return ErrInsufficientBalance
			}

			now := time.Now()
			req := &models.WithdrawalRequest{
				PromoterID:  promoter.ID,
				Amount:      models.NewMoneyFromDecimal(amount),
				Status:      constants.WithdrawStatusPending,
				RequestedAt: now,
				UpdatedAt:   now,
			}
			if err := withdrawTx.Create(req); err != nil {
				return wrapStorageErr(err)
			}
			if err := withdrawTx.CreateEvent(&models.WithdrawalEvent{
				WithdrawalID: req.ID,
				PromoterID:   promoter.ID,
				ActorType:    constants.ActorTypePromoter,
				ActorID:      promoter.ID,
				Action:       "create",
				ToStatus:     constants.WithdrawStatusPending,
				RequestID:    requestID,
				CreatedAt:    now,
			}); err != nil {
				return wrapStorageErr(err)
			}
			ok, err := promoterTx.CompareAndBumpLedgerVersion(promoter.ID, promoter.LedgerVersion)
			if err != nil {
				return wrapStorageErr(err)
			}
			if !ok {
				return ErrLedgerConflict
			}
			createdID = req.ID
			return nil
		})
	})
	if err != nil {
		err = wrapStorageErr(err)
		switch {
		case errors.Is(err, ErrInsufficientBalance):
			metrics.ObserveWithdrawalRejected("insufficient_balance")
		case errors.Is(err, ErrLedgerConflict):
			metrics.ObserveWithdrawalRejected("ledger_conflict")
		}
		logger.FromContext(ctx).Infow("withdrawal_create_rejected",
			"promoter_id", promoterID,
			"amount", amount.StringFixed(models.MoneyScale),
			"error", err,
		)
		return nil, err
	}

	req, err := s.withdrawRepo.WithContext(ctx).GetByID(createdID)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	metrics.ObserveWithdrawalTransition("create", constants.WithdrawStatusPending, amount)
	logger.FromContext(ctx).Infow("withdrawal_created",
		"withdrawal_id", createdID,
		"promoter_id", promoterID,
		"amount", amount.StringFixed(models.MoneyScale),
	)
	s.notify(ctx, req, "create")
	return req, nil
}

// Cancel 推广员撤销自己的待审核申请
func (s *WithdrawalService) Cancel(ctx context.Context, promoterID, withdrawalID uint) (*models.WithdrawalRequest, error) {
	return s.Transition(ctx, TransitionInput{
		WithdrawalID: withdrawalID,
		Action:       constants.WithdrawActionCancel,
		ActorType:    constants.ActorTypePromoter,
		ActorID:      promoterID,
	})
}

// Approve 管理员批准提现申请
func (s *WithdrawalService) Approve(ctx context.Context, adminID, withdrawalID uint, note *string) (*models.WithdrawalRequest, error) {
	return s.adminTransition(ctx, constants.WithdrawActionApprove, adminID, withdrawalID, note)
}

// Reject 管理员驳回提现申请
func (s *WithdrawalService) Reject(ctx context.Context, adminID, withdrawalID uint, note *string) (*models.WithdrawalRequest, error) {
	return s.adminTransition(ctx, constants.WithdrawActionReject, adminID, withdrawalID, note)
}

// MarkProcessing 管理员标记打款中
func (s *WithdrawalService) MarkProcessing(ctx context.Context, adminID, withdrawalID uint, note *string) (*models.WithdrawalRequest, error) {
	return s.adminTransition(ctx, constants.WithdrawActionMarkProcessing, adminID, withdrawalID, note)
}

// Complete 管理员确认打款完成，需打款渠道确认
func (s *WithdrawalService) Complete(ctx context.Context, adminID, withdrawalID uint, note *string) (*models.WithdrawalRequest, error) {
	return s.adminTransition(ctx, constants.WithdrawActionComplete, adminID, withdrawalID, note)
}

// Fail 管理员标记打款失败，锁定金额释放回可提现余额
func (s *WithdrawalService) Fail(ctx context.Context, adminID, withdrawalID uint, note *string) (*models.WithdrawalRequest, error) {
	return s.adminTransition(ctx, constants.WithdrawActionFail, adminID, withdrawalID, note)
}

func (s *WithdrawalService) adminTransition(ctx context.Context, action string, adminID, withdrawalID uint, note *string) (*models.WithdrawalRequest, error) {
	return s.Transition(ctx, TransitionInput{
		WithdrawalID: withdrawalID,
		Action:       action,
		ActorType:    constants.ActorTypeAdmin,
		ActorID:      adminID,
		Note:         note,
	})
}

// Transition 执行提现状态流转：锁行后按当前状态做 compare-and-swap。
// 完成与失败需要询问打款渠道，渠道调用在行锁内进行，使两者对同一申请串行。
func (s *WithdrawalService) Transition(ctx context.Context, input TransitionInput) (*models.WithdrawalRequest, error) {
	action := normalizeWithdrawAction(input.Action)
	if _, ok := withdrawalTransitions[action]; !ok {
		return nil, ErrWithdrawActionInvalid
	}
	note := normalizeNote(input.Note)

	var (
		fromStatus, toStatus string
		promoterID           uint
		payoutRef            string
		payoutErr            error
		applied              []models.CommissionEntry
	)
	err := s.promoterRepo.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payoutErr = nil
		withdrawTx := s.withdrawRepo.WithTx(tx)
		req, err := withdrawTx.GetByIDForUpdate(input.WithdrawalID)
		if err != nil {
			return wrapStorageErr(err)
		}
		if req == nil {
			return ErrNotFound
		}
		if input.ActorType == constants.ActorTypePromoter && req.PromoterID != input.ActorID {
			return ErrForbidden
		}
		rule, err := resolveWithdrawTransition(action, input.ActorType, req.Status)
		if err != nil {
			return err
		}

		now := time.Now()
		switch action {
		case constants.WithdrawActionComplete:
			ref, err := s.confirmPayoutTx(ctx, tx, req, now)
			if err != nil {
				if errors.Is(err, ErrPayoutNotConfirmed) {
					// 渠道流水号已落库，提交事务后再返回未确认
					payoutErr = err
					return nil
				}
				return err
			}
			payoutRef = ref
		case constants.WithdrawActionFail:
			if err := s.ensurePayoutReleasable(ctx, req); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"status":     rule.To,
			"updated_at": now,
		}
		if note != nil && input.ActorType == constants.ActorTypeAdmin {
			updates["admin_note"] = *note
		}
		if payoutRef != "" {
			updates["payout_ref"] = payoutRef
		}
		affected, err := withdrawTx.UpdateStatusFrom(req.ID, rule.From, updates)
		if err != nil {
			return wrapStorageErr(err)
		}
		if affected == 0 {
			return ErrInvalidTransition
		}

		eventNote := ""
		if note != nil {
			eventNote = *note
		}
		if err := withdrawTx.CreateEvent(&models.WithdrawalEvent{
			WithdrawalID: req.ID,
			PromoterID:   req.PromoterID,
			ActorType:    input.ActorType,
			ActorID:      input.ActorID,
			Action:       action,
			FromStatus:   rule.From,
			ToStatus:     rule.To,
			Note:         eventNote,
			RequestID:    logger.RequestIDFromContext(ctx),
			CreatedAt:    now,
		}); err != nil {
			return wrapStorageErr(err)
		}

		promoterTx := s.promoterRepo.WithTx(tx)
		if releasesLock(rule.To) {
			if _, err := promoterTx.GetByIDForUpdate(req.PromoterID); err != nil {
				return wrapStorageErr(err)
			}
			applied, err = applyRequestedReversals(s.commissionRepo.WithTx(tx), withdrawTx, req.PromoterID, now)
			if err != nil {
				return err
			}
		}
		if err := promoterTx.BumpLedgerVersion(req.PromoterID); err != nil {
			return wrapStorageErr(err)
		}
		fromStatus = rule.From
		toStatus = rule.To
		promoterID = req.PromoterID
		return nil
	})
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	if payoutErr != nil {
		return nil, payoutErr
	}

	req, err := s.withdrawRepo.WithContext(ctx).GetByID(input.WithdrawalID)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	fields := []interface{}{
		"withdrawal_id", input.WithdrawalID,
		"promoter_id", promoterID,
		"action", action,
		"actor_type", input.ActorType,
		"actor_id", input.ActorID,
		"from_status", fromStatus,
		"to_status", toStatus,
		"note_overwritten", note != nil && input.ActorType == constants.ActorTypeAdmin,
	}
	if note != nil {
		fields = append(fields, "note", *note)
	}
	if payoutRef != "" {
		fields = append(fields, "payout_ref", payoutRef)
	}
	logger.FromContext(ctx).Infow("withdrawal_transition", fields...)
	logAppliedReversals(ctx, applied, action)
	if req != nil {
		metrics.ObserveWithdrawalTransition(action, toStatus, req.Amount.Decimal)
	}
	s.notify(ctx, req, action)
	return req, nil
}

// confirmPayoutTx 在行锁内请求打款渠道。渠道返回的流水号无论是否确认都立即写回申请，
// 后续的完成重试与失败校验都以该流水号为准。
func (s *WithdrawalService) confirmPayoutTx(ctx context.Context, tx *gorm.DB, req *models.WithdrawalRequest, now time.Time) (string, error) {
	if req.Promoter == nil {
		promoter, err := s.promoterRepo.WithTx(tx).GetByID(req.PromoterID)
		if err != nil {
			return "", wrapStorageErr(err)
		}
		req.Promoter = promoter
	}
	log := logger.FromContext(ctx)
	confirmation, gatewayErr := s.payout.ConfirmPayout(ctx, req)
	ref := strings.TrimSpace(confirmation.Reference)
	if gatewayErr == nil && confirmation.Confirmed {
		return ref, nil
	}
	if ref != "" && ref != req.PayoutRef {
		affected, err := s.withdrawRepo.WithTx(tx).UpdateStatusFrom(req.ID, req.Status, map[string]interface{}{
			"payout_ref": ref,
			"updated_at": now,
		})
		if err != nil {
			log.Errorw("withdrawal_payout_ref_save_failed", "withdrawal_id", req.ID, "payout_ref", ref, "error", err)
			return "", wrapStorageErr(err)
		}
		if affected == 0 {
			return "", ErrInvalidTransition
		}
		log.Infow("withdrawal_payout_submitted", "withdrawal_id", req.ID, "payout_ref", ref)
	}
	if gatewayErr != nil {
		log.Warnw("withdrawal_payout_confirm_failed", "withdrawal_id", req.ID, "payout_ref", ref, "error", gatewayErr)
	}
	return "", ErrPayoutNotConfirmed
}

// ensurePayoutReleasable 失败前校验打款：未提交过渠道，或渠道明确失败，才允许释放锁定金额
func (s *WithdrawalService) ensurePayoutReleasable(ctx context.Context, req *models.WithdrawalRequest) error {
	if strings.TrimSpace(req.PayoutRef) == "" {
		return nil
	}
	state, err := s.payout.PayoutStatus(ctx, req)
	if err != nil {
		logger.FromContext(ctx).Warnw("withdrawal_payout_status_failed", "withdrawal_id", req.ID, "payout_ref", req.PayoutRef, "error", err)
		return ErrPayoutInFlight
	}
	if state != PayoutStateFailed {
		logger.FromContext(ctx).Warnw("withdrawal_fail_refused",
			"withdrawal_id", req.ID,
			"payout_ref", req.PayoutRef,
			"payout_state", string(state),
		)
		return ErrPayoutInFlight
	}
	return nil
}

// Get 推广员查询自己的提现申请
func (s *WithdrawalService) Get(ctx context.Context, promoterID, withdrawalID uint) (*models.WithdrawalRequest, error) {
	req, err := s.GetAdmin(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}
	if req.PromoterID != promoterID {
		return nil, ErrForbidden
	}
	return req, nil
}

// GetAdmin 管理端查询提现申请
func (s *WithdrawalService) GetAdmin(ctx context.Context, withdrawalID uint) (*models.WithdrawalRequest, error) {
	var req *models.WithdrawalRequest
	err := retryRead(func() error {
		var err error
		req, err = s.withdrawRepo.WithContext(ctx).GetByID(withdrawalID)
		return wrapStorageErr(err)
	})
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrNotFound
	}
	return req, nil
}

// ListForPromoter 查询推广员自己的提现申请
func (s *WithdrawalService) ListForPromoter(ctx context.Context, promoterID uint, query WithdrawalListQuery) ([]PromoterWithdrawalItem, int64, error) {
	if promoterID == 0 {
		return nil, 0, ErrPromoterNotFound
	}
	rows, total, err := s.list(ctx, repository.WithdrawalListFilter{
		Page:       query.Page,
		PageSize:   query.PageSize,
		PromoterID: promoterID,
		Status:     query.Status,
		Ordering:   query.Ordering,
	})
	if err != nil {
		return nil, 0, err
	}
	items := make([]PromoterWithdrawalItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, PromoterWithdrawalItem{
			WithdrawalRequest: row,
			AvailableActions:  PromoterActions(row.Status),
		})
	}
	return items, total, nil
}

// ListAdmin 管理端查询全部提现申请，每行附带可执行动作
func (s *WithdrawalService) ListAdmin(ctx context.Context, query AdminWithdrawalListQuery) ([]AdminWithdrawalItem, int64, error) {
	rows, total, err := s.list(ctx, repository.WithdrawalListFilter{
		Page:       query.Page,
		PageSize:   query.PageSize,
		PromoterID: query.PromoterID,
		Status:     query.Status,
		Search:     query.Search,
		Ordering:   query.Ordering,
	})
	if err != nil {
		return nil, 0, err
	}
	items := make([]AdminWithdrawalItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, AdminWithdrawalItem{
			WithdrawalRequest: row,
			AvailableActions:  AvailableActions(row.Status),
		})
	}
	return items, total, nil
}

// ListEvents 查询提现流转审计记录
func (s *WithdrawalService) ListEvents(ctx context.Context, withdrawalID uint) ([]models.WithdrawalEvent, error) {
	if _, err := s.GetAdmin(ctx, withdrawalID); err != nil {
		return nil, err
	}
	rows, err := s.withdrawRepo.WithContext(ctx).ListEvents(withdrawalID)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	return rows, nil
}

// AvailableActions 返回当前状态下管理端可执行的动作
func (s *WithdrawalService) AvailableActions(status string) []string {
	return AvailableActions(status)
}

func (s *WithdrawalService) list(ctx context.Context, filter repository.WithdrawalListFilter) ([]models.WithdrawalRequest, int64, error) {
	filter.Status = strings.TrimSpace(filter.Status)
	if filter.Status != "" && !IsValidWithdrawStatus(filter.Status) {
		return nil, 0, ErrBadRequest
	}
	filter.Ordering = strings.TrimSpace(filter.Ordering)
	if filter.Ordering == "" {
		filter.Ordering = constants.WithdrawOrderingRequestedAtDesc
	}
	if !IsValidWithdrawOrdering(filter.Ordering) {
		return nil, 0, ErrBadRequest
	}
	var (
		rows  []models.WithdrawalRequest
		total int64
	)
	err := retryRead(func() error {
		var err error
		rows, total, err = s.withdrawRepo.WithContext(ctx).List(filter)
		return wrapStorageErr(err)
	})
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (s *WithdrawalService) notify(ctx context.Context, req *models.WithdrawalRequest, action string) {
	if s.notifier == nil || req == nil {
		return
	}
	payload := queue.WithdrawStatusNotifyPayload{
		WithdrawalID: req.ID,
		PromoterID:   req.PromoterID,
		Action:       action,
		Status:       req.Status,
		Amount:       req.Amount.String(),
		RequestID:    logger.RequestIDFromContext(ctx),
	}
	if err := s.notifier.EnqueueWithdrawStatusNotify(payload); err != nil {
		logger.FromContext(ctx).Warnw("withdrawal_notify_enqueue_failed",
			"withdrawal_id", req.ID,
			"status", req.Status,
			"error", err,
		)
	}
}

func (s *WithdrawalService) retryLimit() int {
	if s == nil || s.cfg == nil {
		return defaultLedgerRetryLimit
	}
	return normalizeRetryLimit(s.cfg.Ledger.CreateRetryLimit)
}

func normalizeNote(note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
