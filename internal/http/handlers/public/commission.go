package public

import (
	"strings"

	handlershared "github.com/dujiao-next/ledger/internal/http/handlers/shared"
	"github.com/dujiao-next/ledger/internal/http/response"
	"github.com/dujiao-next/ledger/internal/service"

	"github.com/gin-gonic/gin"
)

// ListCommissions 查询我的佣金记录
func (h *Handler) ListCommissions(c *gin.Context) {
	promoterID, ok := getPromoterID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.PaginationFromQuery(c)
	rows, total, err := h.LedgerService.List(c.Request.Context(), service.CommissionListQuery{
		Page:       page,
		PageSize:   pageSize,
		PromoterID: promoterID,
		Status:     strings.TrimSpace(c.Query("status")),
		Kind:       strings.TrimSpace(c.Query("kind")),
	})
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}
