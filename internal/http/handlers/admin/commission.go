package admin

import (
	"strings"

	"github.com/dujiao-next/ledger/internal/constants"
	handlershared "github.com/dujiao-next/ledger/internal/http/handlers/shared"
	"github.com/dujiao-next/ledger/internal/http/response"
	"github.com/dujiao-next/ledger/internal/models"
	"github.com/dujiao-next/ledger/internal/service"

	"github.com/gin-gonic/gin"
)

// RecordCommissionRequest 手工记录佣金请求
type RecordCommissionRequest struct {
	PromoterID uint          `json:"promoter_id" binding:"required"`
	Amount     *models.Money `json:"amount" binding:"required"`
	Kind       string        `json:"kind"`
	OrderRef   string        `json:"order_ref"`
}

// ReverseCommissionRequest 冲正佣金请求
type ReverseCommissionRequest struct {
	Reason string `json:"reason"`
}

// ListCommissions 佣金记录列表
func (h *Handler) ListCommissions(c *gin.Context) {
	page, pageSize := handlershared.PaginationFromQuery(c)
	promoterID, ok := handlershared.ParseUintQuery(c, "promoter_id")
	if !ok {
		return
	}
	rows, total, err := h.LedgerService.List(c.Request.Context(), service.CommissionListQuery{
		Page:       page,
		PageSize:   pageSize,
		PromoterID: promoterID,
		Status:     strings.TrimSpace(c.Query("status")),
		Kind:       strings.TrimSpace(c.Query("kind")),
		OrderRef:   strings.TrimSpace(c.Query("order_ref")),
	})
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// RecordCommission 手工记录佣金
func (h *Handler) RecordCommission(c *gin.Context) {
	var req RecordCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	entry, err := h.LedgerService.Record(c.Request.Context(), service.RecordCommissionInput{
		PromoterID: req.PromoterID,
		Amount:     req.Amount.Decimal,
		Kind:       req.Kind,
		OrderRef:   req.OrderRef,
	})
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	response.Success(c, entry)
}

// CreditCommission 提前确认入账
func (h *Handler) CreditCommission(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	entry, err := h.LedgerService.Credit(c.Request.Context(), id)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	response.Success(c, entry)
}

// ReverseCommission 冲正佣金
func (h *Handler) ReverseCommission(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req ReverseCommissionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "bad request", nil)
			return
		}
	}
	entry, err := h.LedgerService.Reverse(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	requestLog(c).Infow("admin_commission_reversed",
		"admin_username", currentAdminName(c),
		"commission_id", entry.ID,
		"reason", req.Reason,
		"deferred", entry.ReversalRequestedAt != nil && entry.Status != constants.CommissionStatusReversed,
	)
	response.Success(c, entry)
}
