package constants

// 推广员等级常量
const (
	PromoterTierPaid   = "paid"
	PromoterTierUnpaid = "unpaid"
)

// 推广员状态常量
const (
	PromoterStatusActive   = "active"
	PromoterStatusDisabled = "disabled"
)

// 佣金类型常量
const (
	CommissionKindDirectSale      = "direct_sale"
	CommissionKindNetworkReferral = "network_referral"
)

// 佣金状态常量
const (
	CommissionStatusPending  = "pending"
	CommissionStatusCredited = "credited"
	CommissionStatusReversed = "reversed"
)

// 提现申请状态常量
const (
	WithdrawStatusPending    = "pending"
	WithdrawStatusApproved   = "approved"
	WithdrawStatusProcessing = "processing"
	WithdrawStatusCompleted  = "completed"
	WithdrawStatusFailed     = "failed"
	WithdrawStatusRejected   = "rejected"
	WithdrawStatusCancelled  = "cancelled"
)

// 提现状态流转动作常量
const (
	WithdrawActionCancel         = "cancel"
	WithdrawActionApprove        = "approve"
	WithdrawActionReject         = "reject"
	WithdrawActionMarkProcessing = "processing"
	WithdrawActionComplete       = "complete"
	WithdrawActionFail           = "fail"
)

// 操作主体类型常量
const (
	ActorTypePromoter = "promoter"
	ActorTypeAdmin    = "admin"
	ActorTypeSystem   = "system"
)

// 提现列表排序常量
const (
	WithdrawOrderingRequestedAtAsc  = "requested_at"
	WithdrawOrderingRequestedAtDesc = "-requested_at"
	WithdrawOrderingAmountAsc       = "amount"
	WithdrawOrderingAmountDesc      = "-amount"
)

// 订单事件类型常量
const (
	OrderEventPaid     = "paid"
	OrderEventCanceled = "canceled"
	OrderEventRefunded = "refunded"
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型常量
const (
	TaskOrderEvent             = "ledger:order_event"
	TaskWithdrawStatusNotify   = "ledger:withdraw_status_notify"
	TaskCommissionConfirmSweep = "ledger:commission_confirm_sweep"
)

// 上下文键常量
const (
	ContextKeyRequestID  = "request_id"
	ContextKeyPromoterID = "promoter_id"
	ContextKeyAdminID    = "admin_id"
	ContextKeyAdminName  = "admin_username"
	ContextKeyAdminSuper = "admin_is_super"
)
