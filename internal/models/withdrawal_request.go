package models

import "time"

// WithdrawalRequest 推广员提现申请
type WithdrawalRequest struct {
	ID          uint      `gorm:"primarykey" json:"id"`                                            // 主键
	PromoterID  uint      `gorm:"not null;index" json:"promoter_id"`                               // 推广员ID
	Amount      Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`             // 申请金额
	Status      string    `gorm:"type:varchar(20);not null;index" json:"status"`                   // 状态
	AdminNote   string    `gorm:"type:text;not null;default:''" json:"admin_note"`                 // 管理员备注（仅保留最新一条）
	PayoutRef   string    `gorm:"type:varchar(128);not null;default:''" json:"payout_ref"`         // 打款流水号
	RequestedAt time.Time `gorm:"not null;index" json:"requested_at"`                              // 申请时间
	UpdatedAt   time.Time `gorm:"index" json:"updated_at"`                                         // 更新时间

	Promoter *Promoter `gorm:"foreignKey:PromoterID" json:"promoter,omitempty"` // 推广员
}

// TableName 指定表名
func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}

// WithdrawalEvent 提现状态流转审计记录
// 说明：每次状态流转写入一条，备注历史在此保留，对外字段只展示最新备注。
type WithdrawalEvent struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	WithdrawalID uint      `gorm:"not null;index" json:"withdrawal_id"`
	PromoterID   uint      `gorm:"not null;index" json:"promoter_id"`
	ActorType    string    `gorm:"type:varchar(20);not null" json:"actor_type"`
	ActorID      uint      `gorm:"not null;default:0" json:"actor_id"`
	Action       string    `gorm:"type:varchar(32);not null;index" json:"action"`
	FromStatus   string    `gorm:"type:varchar(20);not null;default:''" json:"from_status"`
	ToStatus     string    `gorm:"type:varchar(20);not null" json:"to_status"`
	Note         string    `gorm:"type:text;not null;default:''" json:"note"`
	RequestID    string    `gorm:"type:varchar(64);not null;default:''" json:"request_id"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (WithdrawalEvent) TableName() string {
	return "withdrawal_events"
}
