package public

import (
	"strings"

	handlershared "github.com/dujiao-next/ledger/internal/http/handlers/shared"
	"github.com/dujiao-next/ledger/internal/http/response"
	"github.com/dujiao-next/ledger/internal/models"
	"github.com/dujiao-next/ledger/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateWithdrawalRequest 提现申请请求，金额支持字符串或数字
type CreateWithdrawalRequest struct {
	Amount *models.Money `json:"amount" binding:"required"`
}

// CreateWithdrawal 提交提现申请
func (h *Handler) CreateWithdrawal(c *gin.Context) {
	promoterID, ok := getPromoterID(c)
	if !ok {
		return
	}
	var req CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "amount is required", nil)
		return
	}

	row, err := h.WithdrawalService.Create(c.Request.Context(), promoterID, req.Amount.Decimal)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	response.Success(c, service.PromoterWithdrawalItem{
		WithdrawalRequest: *row,
		AvailableActions:  service.PromoterActions(row.Status),
	})
}

// ListWithdrawals 查询我的提现申请
func (h *Handler) ListWithdrawals(c *gin.Context) {
	promoterID, ok := getPromoterID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.PaginationFromQuery(c)
	rows, total, err := h.WithdrawalService.ListForPromoter(c.Request.Context(), promoterID, service.WithdrawalListQuery{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
		Ordering: strings.TrimSpace(c.Query("ordering")),
	})
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// GetWithdrawal 查询我的单笔提现申请
func (h *Handler) GetWithdrawal(c *gin.Context) {
	promoterID, ok := getPromoterID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	row, err := h.WithdrawalService.Get(c.Request.Context(), promoterID, id)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	response.Success(c, service.PromoterWithdrawalItem{
		WithdrawalRequest: *row,
		AvailableActions:  service.PromoterActions(row.Status),
	})
}

// CancelWithdrawal 撤销待审核的提现申请
func (h *Handler) CancelWithdrawal(c *gin.Context) {
	promoterID, ok := getPromoterID(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	row, err := h.WithdrawalService.Cancel(c.Request.Context(), promoterID, id)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	response.SuccessWithMsg(c, "withdrawal cancelled", service.PromoterWithdrawalItem{
		WithdrawalRequest: *row,
		AvailableActions:  service.PromoterActions(row.Status),
	})
}
