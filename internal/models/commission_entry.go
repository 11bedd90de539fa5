package models

import "time"

// CommissionEntry 佣金账本记录
// 说明：金额创建后不可变，仅允许状态流转，记录永不删除。
type CommissionEntry struct {
	ID                  uint       `gorm:"primarykey" json:"id"`                                                                       // 主键
	PromoterID          uint       `gorm:"not null;index;index:idx_commission_order_unique,unique" json:"promoter_id"`                 // 推广员ID
	Amount              Money      `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`                                        // 佣金金额
	Kind                string     `gorm:"type:varchar(32);not null;index:idx_commission_order_unique,unique" json:"kind"`             // 佣金类型
	Status              string     `gorm:"type:varchar(20);not null;index" json:"status"`                                              // 佣金状态
	OrderRef            *string    `gorm:"type:varchar(64);index;index:idx_commission_order_unique,unique" json:"order_ref,omitempty"` // 来源订单
	ConfirmAt           *time.Time `gorm:"index" json:"confirm_at,omitempty"`                                                          // 待确认到期时间
	CreditedAt          *time.Time `json:"credited_at,omitempty"`                                                                      // 入账时间
	ReversedAt          *time.Time `json:"reversed_at,omitempty"`                                                                      // 冲正时间
	ReverseReason       string     `gorm:"type:varchar(255);not null;default:''" json:"reverse_reason,omitempty"`                      // 冲正原因
	ReversalRequestedAt *time.Time `gorm:"index" json:"reversal_requested_at,omitempty"`                                               // 冲正请求时间（提现占用释放后执行冲正）
	CreatedAt           time.Time  `gorm:"index" json:"created_at"`                                                                    // 创建时间
	UpdatedAt           time.Time  `json:"updated_at"`                                                                                 // 更新时间

	Promoter *Promoter `gorm:"foreignKey:PromoterID" json:"promoter,omitempty"` // 推广员
}

// TableName 指定表名
func (CommissionEntry) TableName() string {
	return "commission_entries"
}
