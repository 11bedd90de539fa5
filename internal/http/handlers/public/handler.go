package public

import "github.com/dujiao-next/ledger/internal/provider"

// Handler 推广员侧接口处理器入口
// 说明：该处理器仅用于推广员本人可访问的钱包、提现与佣金 API。
type Handler struct {
	*provider.Container
}

// New 创建推广员处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
