package models

import "time"

// Promoter 推广员档案
type Promoter struct {
	ID            uint      `gorm:"primarykey" json:"id"`                                     // 主键
	DisplayName   string    `gorm:"type:varchar(100);not null;index" json:"display_name"`     // 显示名称
	Email         string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`      // 联系邮箱
	Tier          string    `gorm:"type:varchar(20);not null;default:'unpaid'" json:"tier"`   // 推广员等级
	Status        string    `gorm:"type:varchar(20);not null;default:'active'" json:"status"` // 状态
	LedgerVersion int64     `gorm:"not null;default:0" json:"-"`                              // 账本版本号（乐观锁）
	CreatedAt     time.Time `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt     time.Time `gorm:"index" json:"updated_at"`                                  // 更新时间
}

// TableName 指定表名
func (Promoter) TableName() string {
	return "promoters"
}
