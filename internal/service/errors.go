package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                = errors.New("resource not found")
	ErrForbidden               = errors.New("forbidden")
	ErrBadRequest              = errors.New("bad request")
	ErrInvalidAmount           = errors.New("amount must be positive with at most two decimals")
	ErrWithdrawAmountTooSmall  = errors.New("withdraw amount below minimum")
	ErrCommissionKindInvalid   = errors.New("commission kind invalid")
	ErrCommissionStatusInvalid = errors.New("commission status invalid")
	ErrInsufficientBalance     = errors.New("insufficient withdrawable balance")
	ErrInvalidTransition       = errors.New("invalid withdrawal status transition")
	ErrWithdrawActionInvalid   = errors.New("withdrawal action invalid")
	ErrAlreadyReversed         = errors.New("commission already reversed")
	ErrLedgerConflict          = errors.New("ledger changed concurrently")
	ErrPayoutNotConfirmed      = errors.New("payout not confirmed")
	ErrPayoutInFlight          = errors.New("payout submitted and not failed")
	ErrPromoterNotFound        = errors.New("promoter not found")
	ErrPromoterDisabled        = errors.New("promoter disabled")
	ErrPromoterExists          = errors.New("promoter already exists")
	ErrPromoterTierInvalid     = errors.New("promoter tier invalid")
	ErrPromoterStatusInvalid   = errors.New("promoter status invalid")
	ErrOrderEventInvalid       = errors.New("order event invalid")
	ErrInvalidToken            = errors.New("invalid token")
	ErrStorageUnavailable      = errors.New("storage unavailable")
)

// ledgerErrors 业务错误集合，命中时不包装为存储错误
var ledgerErrors = []error{
	ErrNotFound,
	ErrForbidden,
	ErrBadRequest,
	ErrInvalidAmount,
	ErrWithdrawAmountTooSmall,
	ErrCommissionKindInvalid,
	ErrCommissionStatusInvalid,
	ErrInsufficientBalance,
	ErrInvalidTransition,
	ErrWithdrawActionInvalid,
	ErrAlreadyReversed,
	ErrLedgerConflict,
	ErrPayoutNotConfirmed,
	ErrPayoutInFlight,
	ErrPromoterNotFound,
	ErrPromoterDisabled,
	ErrPromoterExists,
	ErrPromoterTierInvalid,
	ErrPromoterStatusInvalid,
	ErrOrderEventInvalid,
	ErrInvalidToken,
	ErrStorageUnavailable,
}

// IsLedgerError 判断是否为业务错误
func IsLedgerError(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range ledgerErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// wrapStorageErr 将底层存储错误统一包装为 ErrStorageUnavailable
func wrapStorageErr(err error) error {
	if err == nil || IsLedgerError(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

// retryRead 只读操作遇到存储错误时重试一次
func retryRead(fn func() error) error {
	err := fn()
	if err == nil || !errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return fn()
}
