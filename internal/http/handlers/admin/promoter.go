package admin

import (
	"strings"

	handlershared "github.com/dujiao-next/ledger/internal/http/handlers/shared"
	"github.com/dujiao-next/ledger/internal/http/response"
	"github.com/dujiao-next/ledger/internal/service"

	"github.com/gin-gonic/gin"
)

// CreatePromoterRequest 创建推广员请求
type CreatePromoterRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Tier        string `json:"tier"`
}

// UpdatePromoterStatusRequest 更新推广员状态请求
type UpdatePromoterStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListPromoters 推广员列表
func (h *Handler) ListPromoters(c *gin.Context) {
	page, pageSize := handlershared.PaginationFromQuery(c)
	rows, total, err := h.PromoterService.List(c.Request.Context(), service.PromoterListQuery{
		Page:     page,
		PageSize: pageSize,
		Search:   strings.TrimSpace(c.Query("search")),
		Tier:     strings.TrimSpace(c.Query("tier")),
		Status:   strings.TrimSpace(c.Query("status")),
	})
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// CreatePromoter 创建推广员
func (h *Handler) CreatePromoter(c *gin.Context) {
	var req CreatePromoterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	promoter, err := h.PromoterService.Create(c.Request.Context(), service.CreatePromoterInput{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Tier:        req.Tier,
	})
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	response.Success(c, promoter)
}

// GetPromoterWallet 查看推广员钱包概览
func (h *Handler) GetPromoterWallet(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	summary, err := h.WalletService.Summary(c.Request.Context(), id)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	response.Success(c, summary)
}

// UpdatePromoterStatus 启用或停用推广员
func (h *Handler) UpdatePromoterStatus(c *gin.Context) {
	id, ok := handlershared.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdatePromoterStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	promoter, err := h.PromoterService.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	requestLog(c).Infow("admin_promoter_status_updated",
		"admin_username", currentAdminName(c),
		"promoter_id", promoter.ID,
		"status", promoter.Status,
	)
	response.Success(c, promoter)
}
