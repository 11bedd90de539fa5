package public

import (
	"github.com/dujiao-next/ledger/internal/constants"
	handlershared "github.com/dujiao-next/ledger/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getPromoterID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, constants.ContextKeyPromoterID)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func respondLedgerError(c *gin.Context, err error) {
	handlershared.RespondLedgerError(c, err)
}
