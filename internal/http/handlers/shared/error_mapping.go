package shared

import (
	"errors"

	"github.com/dujiao-next/ledger/internal/http/response"
	"github.com/dujiao-next/ledger/internal/service"

	"github.com/gin-gonic/gin"
)

// MappedError 定义业务错误到接口错误响应的映射关系。
type MappedError struct {
	Target error
	Code   int
	Msg    string
}

// RespondMappedError 按规则表返回错误，未命中时返回兜底响应。
func RespondMappedError(c *gin.Context, err error, rules []MappedError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Msg, err)
			return
		}
	}
	RespondError(c, fallbackCode, fallbackMsg, err)
}

// ConcatMappedErrors 合并多组映射规则。
func ConcatMappedErrors(groups ...[]MappedError) []MappedError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]MappedError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

// LedgerValidationRules 输入校验类错误。
var LedgerValidationRules = []MappedError{
	{Target: service.ErrBadRequest, Code: response.CodeBadRequest, Msg: "bad request"},
	{Target: service.ErrInvalidAmount, Code: response.CodeBadRequest, Msg: "amount must be positive with at most two decimals"},
	{Target: service.ErrWithdrawAmountTooSmall, Code: response.CodeBadRequest, Msg: "withdraw amount below minimum"},
	{Target: service.ErrCommissionKindInvalid, Code: response.CodeBadRequest, Msg: "commission kind invalid"},
	{Target: service.ErrPromoterTierInvalid, Code: response.CodeBadRequest, Msg: "promoter tier invalid"},
	{Target: service.ErrPromoterStatusInvalid, Code: response.CodeBadRequest, Msg: "promoter status invalid"},
	{Target: service.ErrOrderEventInvalid, Code: response.CodeBadRequest, Msg: "order event invalid"},
	{Target: service.ErrWithdrawActionInvalid, Code: response.CodeBadRequest, Msg: "withdrawal action invalid"},
}

// LedgerStateRules 余额与状态机类错误。
var LedgerStateRules = []MappedError{
	{Target: service.ErrInsufficientBalance, Code: response.CodeBadRequest, Msg: "insufficient withdrawable balance"},
	{Target: service.ErrPromoterDisabled, Code: response.CodeForbidden, Msg: "promoter disabled"},
	{Target: service.ErrInvalidTransition, Code: response.CodeConflict, Msg: "invalid status transition, refresh and retry"},
	{Target: service.ErrCommissionStatusInvalid, Code: response.CodeConflict, Msg: "commission status invalid"},
	{Target: service.ErrAlreadyReversed, Code: response.CodeConflict, Msg: "commission already reversed"},
	{Target: service.ErrLedgerConflict, Code: response.CodeConflict, Msg: "ledger changed concurrently, retry"},
	{Target: service.ErrPayoutNotConfirmed, Code: response.CodeConflict, Msg: "payout not confirmed"},
	{Target: service.ErrPayoutInFlight, Code: response.CodeConflict, Msg: "payout submitted to channel and not failed"},
	{Target: service.ErrPromoterExists, Code: response.CodeConflict, Msg: "promoter already exists"},
}

// LedgerAccessRules 访问控制与存储类错误。
var LedgerAccessRules = []MappedError{
	{Target: service.ErrNotFound, Code: response.CodeNotFound, Msg: "resource not found"},
	{Target: service.ErrPromoterNotFound, Code: response.CodeNotFound, Msg: "promoter not found"},
	{Target: service.ErrForbidden, Code: response.CodeForbidden, Msg: "forbidden"},
	{Target: service.ErrStorageUnavailable, Code: response.CodeServiceUnavailable, Msg: "storage unavailable"},
}

// LedgerErrorRules 账本接口通用错误映射。
var LedgerErrorRules = ConcatMappedErrors(LedgerValidationRules, LedgerStateRules, LedgerAccessRules)

// RespondLedgerError 按通用映射返回账本错误。
func RespondLedgerError(c *gin.Context, err error) {
	RespondMappedError(c, err, LedgerErrorRules, response.CodeInternal, "internal error")
}
