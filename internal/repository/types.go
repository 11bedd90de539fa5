package repository

import "github.com/shopspring/decimal"

// PromoterListFilter 查询推广员列表的过滤条件
type PromoterListFilter struct {
	Page     int
	PageSize int
	Search   string
	Tier     string
	Status   string
}

// CommissionListFilter 查询佣金记录的过滤条件
type CommissionListFilter struct {
	Page       int
	PageSize   int
	PromoterID uint
	Status     string
	Kind       string
	OrderRef   string
}

// WithdrawalListFilter 查询提现申请列表的过滤条件
type WithdrawalListFilter struct {
	Page       int
	PageSize   int
	PromoterID uint
	Status     string
	Search     string
	Ordering   string
}

// PromoterLedgerAggregate 推广员账本聚合结果
type PromoterLedgerAggregate struct {
	Earned    decimal.Decimal
	Pending   decimal.Decimal
	Withdrawn decimal.Decimal
	Locked    decimal.Decimal
}
