package admin

import (
	"strings"

	"github.com/dujiao-next/ledger/internal/constants"
	handlershared "github.com/dujiao-next/ledger/internal/http/handlers/shared"
	"github.com/dujiao-next/ledger/internal/provider"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 后台管理接口：推广员维护、佣金记账、提现审核与授权管理
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

// 以下读取 AdminJWTAuthMiddleware 写入上下文的管理员信息

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, constants.ContextKeyAdminID)
}

func currentAdminName(c *gin.Context) string {
	value, exists := c.Get(constants.ContextKeyAdminName)
	if !exists {
		return ""
	}
	if name, ok := value.(string); ok {
		return strings.TrimSpace(name)
	}
	return ""
}

func currentAdminIsSuper(c *gin.Context) bool {
	value, exists := c.Get(constants.ContextKeyAdminSuper)
	if !exists {
		return false
	}
	flag, ok := value.(bool)
	return ok && flag
}

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func respondLedgerError(c *gin.Context, err error) {
	handlershared.RespondLedgerError(c, err)
}
