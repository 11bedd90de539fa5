package events

import (
	"strings"

	handlershared "github.com/dujiao-next/ledger/internal/http/handlers/shared"
	"github.com/dujiao-next/ledger/internal/http/response"
	"github.com/dujiao-next/ledger/internal/models"
	"github.com/dujiao-next/ledger/internal/provider"
	"github.com/dujiao-next/ledger/internal/queue"

	"github.com/gin-gonic/gin"
)

// Handler 内部订单事件接口处理器，由订单系统回调
type Handler struct {
	*provider.Container
}

// New 创建订单事件处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

// OrderEventRequest 订单事件请求
type OrderEventRequest struct {
	Event      string        `json:"event" binding:"required"`
	OrderRef   string        `json:"order_ref" binding:"required"`
	PromoterID uint          `json:"promoter_id"`
	Amount     *models.Money `json:"amount"`
	Kind       string        `json:"kind"`
	Reason     string        `json:"reason"`
}

// ReceiveOrderEvent 接收订单事件：入队异步处理，队列不可用时同步入账
func (h *Handler) ReceiveOrderEvent(c *gin.Context) {
	var req OrderEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondError(c, response.CodeBadRequest, "order event invalid", nil)
		return
	}
	payload := queue.OrderEventPayload{
		Event:      strings.TrimSpace(req.Event),
		OrderRef:   strings.TrimSpace(req.OrderRef),
		PromoterID: req.PromoterID,
		Kind:       strings.TrimSpace(req.Kind),
		Reason:     strings.TrimSpace(req.Reason),
	}
	if req.Amount != nil {
		payload.Amount = req.Amount.String()
	}

	result, err := h.OrderEventService.Accept(c.Request.Context(), payload)
	if err != nil {
		handlershared.RespondLedgerError(c, err)
		return
	}
	handlershared.RequestLog(c).Infow("order_event_received",
		"event", payload.Event,
		"order_ref", payload.OrderRef,
		"promoter_id", payload.PromoterID,
		"queued", result.Queued,
	)
	response.Success(c, result)
}
