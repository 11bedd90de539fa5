package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/dujiao-next/ledger/internal/constants"
	"github.com/dujiao-next/ledger/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WithdrawalRepository 提现申请数据访问接口
type WithdrawalRepository interface {
	WithTx(tx *gorm.DB) WithdrawalRepository
	WithContext(ctx context.Context) WithdrawalRepository

	Create(req *models.WithdrawalRequest) error
	GetByID(id uint) (*models.WithdrawalRequest, error)
	GetByIDForUpdate(id uint) (*models.WithdrawalRequest, error)
	UpdateStatusFrom(id uint, fromStatus string, updates map[string]interface{}) (int64, error)
	SumByPromoter(promoterID uint, statuses []string) (decimal.Decimal, error)
	CountByPromoter(promoterID uint, statuses []string) (int64, error)
	List(filter WithdrawalListFilter) ([]models.WithdrawalRequest, int64, error)
	ListRecent(promoterID uint, limit int) ([]models.WithdrawalRequest, error)

	CreateEvent(event *models.WithdrawalEvent) error
	ListEvents(withdrawalID uint) ([]models.WithdrawalEvent, error)
}

// GormWithdrawalRepository GORM 提现申请仓储
type GormWithdrawalRepository struct {
	db *gorm.DB
}

// NewWithdrawalRepository 创建提现申请仓储
func NewWithdrawalRepository(db *gorm.DB) *GormWithdrawalRepository {
	return &GormWithdrawalRepository{db: db}
}

// WithTx 绑定事务
func (r *GormWithdrawalRepository) WithTx(tx *gorm.DB) WithdrawalRepository {
	if tx == nil {
		return r
	}
	return &GormWithdrawalRepository{db: tx}
}

// WithContext 绑定上下文
func (r *GormWithdrawalRepository) WithContext(ctx context.Context) WithdrawalRepository {
	if ctx == nil {
		return r
	}
	return &GormWithdrawalRepository{db: r.db.WithContext(ctx)}
}

// Create 创建提现申请
func (r *GormWithdrawalRepository) Create(req *models.WithdrawalRequest) error {
	return r.db.Create(req).Error
}

// GetByID 按ID查询提现申请
func (r *GormWithdrawalRepository) GetByID(id uint) (*models.WithdrawalRequest, error) {
	if id == 0 {
		return nil, nil
	}
	var row models.WithdrawalRequest
	if err := r.db.Preload("Promoter").First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetByIDForUpdate 按ID锁定查询提现申请
func (r *GormWithdrawalRepository) GetByIDForUpdate(id uint) (*models.WithdrawalRequest, error) {
	if id == 0 {
		return nil, nil
	}
	var row models.WithdrawalRequest
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// UpdateStatusFrom 仅当当前状态为 fromStatus 时更新，返回影响行数
func (r *GormWithdrawalRepository) UpdateStatusFrom(id uint, fromStatus string, updates map[string]interface{}) (int64, error) {
	if id == 0 || len(updates) == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// SumByPromoter 汇总指定状态的提现金额
func (r *GormWithdrawalRepository) SumByPromoter(promoterID uint, statuses []string) (decimal.Decimal, error) {
	if promoterID == 0 || len(statuses) == 0 {
		return decimal.Zero, nil
	}
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.WithdrawalRequest{}).
		Where("promoter_id = ? AND status IN ?", promoterID, statuses).
		Select("COALESCE(SUM(amount), 0) AS total").
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(models.MoneyScale), nil
}

// CountByPromoter 统计指定状态的提现申请数
func (r *GormWithdrawalRepository) CountByPromoter(promoterID uint, statuses []string) (int64, error) {
	if promoterID == 0 || len(statuses) == 0 {
		return 0, nil
	}
	var total int64
	if err := r.db.Model(&models.WithdrawalRequest{}).
		Where("promoter_id = ? AND status IN ?", promoterID, statuses).
		Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// List 查询提现申请列表
func (r *GormWithdrawalRepository) List(filter WithdrawalListFilter) ([]models.WithdrawalRequest, int64, error) {
	query := r.db.Model(&models.WithdrawalRequest{}).Preload("Promoter")
	if filter.PromoterID != 0 {
		query = query.Where("withdrawal_requests.promoter_id = ?", filter.PromoterID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("withdrawal_requests.status = ?", status)
	}
	if keyword := strings.TrimSpace(filter.Search); keyword != "" {
		condition, argCount := buildLikeCondition(r.db, []string{"p.display_name", "p.email"})
		query = query.
			Joins("LEFT JOIN promoters p ON p.id = withdrawal_requests.promoter_id").
			Where(condition, repeatLikeArgs("%"+keyword+"%", argCount)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	var rows []models.WithdrawalRequest
	if err := query.Order(withdrawalOrderClause(filter.Ordering)).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// withdrawalOrderClause 将排序参数映射为 SQL 排序子句，id 作为稳定次序
func withdrawalOrderClause(ordering string) string {
	switch strings.TrimSpace(ordering) {
	case constants.WithdrawOrderingRequestedAtAsc:
		return "withdrawal_requests.requested_at asc, withdrawal_requests.id asc"
	case constants.WithdrawOrderingAmountAsc:
		return "withdrawal_requests.amount asc, withdrawal_requests.id asc"
	case constants.WithdrawOrderingAmountDesc:
		return "withdrawal_requests.amount desc, withdrawal_requests.id desc"
	default:
		return "withdrawal_requests.requested_at desc, withdrawal_requests.id desc"
	}
}

// ListRecent 查询推广员最近的提现申请
func (r *GormWithdrawalRepository) ListRecent(promoterID uint, limit int) ([]models.WithdrawalRequest, error) {
	if promoterID == 0 {
		return []models.WithdrawalRequest{}, nil
	}
	if limit <= 0 {
		limit = 5
	}
	var rows []models.WithdrawalRequest
	if err := r.db.Where("promoter_id = ?", promoterID).
		Order(withdrawalOrderClause(constants.WithdrawOrderingRequestedAtDesc)).
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateEvent 写入提现状态流转审计记录
func (r *GormWithdrawalRepository) CreateEvent(event *models.WithdrawalEvent) error {
	return r.db.Create(event).Error
}

// ListEvents 查询提现申请的流转记录
func (r *GormWithdrawalRepository) ListEvents(withdrawalID uint) ([]models.WithdrawalEvent, error) {
	if withdrawalID == 0 {
		return []models.WithdrawalEvent{}, nil
	}
	var rows []models.WithdrawalEvent
	if err := r.db.Where("withdrawal_id = ?", withdrawalID).
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
