package admin

import (
	"strings"

	"github.com/dujiao-next/ledger/internal/constants"
	handlershared "github.com/dujiao-next/ledger/internal/http/handlers/shared"
	"github.com/dujiao-next/ledger/internal/http/response"
	"github.com/dujiao-next/ledger/internal/service"

	"github.com/gin-gonic/gin"
)

// WithdrawalActionRequest 管理端审核请求
type WithdrawalActionRequest struct {
	AdminNote *string `json:"admin_note"`
}

// ListWithdrawalRequests 管理端提现申请列表
func (h *Handler) ListWithdrawalRequests(c *gin.Context) {
	page, pageSize := handlershared.PaginationFromQuery(c)
	promoterID, ok := handlershared.ParseUintQuery(c, "promoter_id")
	if !ok {
		return
	}
	rows, total, err := h.WithdrawalService.ListAdmin(c.Request.Context(), service.AdminWithdrawalListQuery{
		Page:       page,
		PageSize:   pageSize,
		PromoterID: promoterID,
		Status:     strings.TrimSpace(c.Query("status")),
		Search:     strings.TrimSpace(c.Query("search")),
		Ordering:   strings.TrimSpace(c.Query("ordering")),
	})
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// GetWithdrawalRequest 管理端提现申请详情（含流转记录）
func (h *Handler) GetWithdrawalRequest(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	row, err := h.WithdrawalService.GetAdmin(c.Request.Context(), id)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	events, err := h.WithdrawalService.ListEvents(c.Request.Context(), id)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	response.Success(c, gin.H{
		"withdrawal": service.AdminWithdrawalItem{
			WithdrawalRequest: *row,
			AvailableActions:  service.AvailableActions(row.Status),
		},
		"events": events,
	})
}

// WithdrawalAction 返回执行指定审核动作的处理函数
func (h *Handler) WithdrawalAction(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, ok := getAdminID(c)
		if !ok {
			return
		}
		id, ok := handlershared.ParseIDParam(c, "id")
		if !ok {
			return
		}
		var req WithdrawalActionRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, response.CodeBadRequest, "bad request", nil)
				return
			}
		}

		row, err := h.WithdrawalService.Transition(c.Request.Context(), service.TransitionInput{
			WithdrawalID: id,
			Action:       action,
			ActorType:    constants.ActorTypeAdmin,
			ActorID:      adminID,
			Note:         req.AdminNote,
		})
		if err != nil {
			respondLedgerError(c, err)
			return
		}
		requestLog(c).Infow("admin_withdrawal_action",
			"admin_id", adminID,
			"admin_username", currentAdminName(c),
			"withdrawal_id", row.ID,
			"action", action,
			"status", row.Status,
		)
		response.Success(c, service.AdminWithdrawalItem{
			WithdrawalRequest: *row,
			AvailableActions:  service.AvailableActions(row.Status),
		})
	}
}
