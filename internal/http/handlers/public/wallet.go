package public

import (
	"github.com/dujiao-next/ledger/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetWalletSummary 获取我的钱包概览
func (h *Handler) GetWalletSummary(c *gin.Context) {
	promoterID, ok := getPromoterID(c)
	if !ok {
		return
	}
	summary, err := h.WalletService.Summary(c.Request.Context(), promoterID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	response.Success(c, summary)
}
