package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dujiao-next/ledger/internal/constants"
	"github.com/dujiao-next/ledger/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommissionRepository 佣金账本数据访问接口
type CommissionRepository interface {
	WithTx(tx *gorm.DB) CommissionRepository
	WithContext(ctx context.Context) CommissionRepository

	Create(entry *models.CommissionEntry) error
	GetByID(id uint) (*models.CommissionEntry, error)
	GetByIDForUpdate(id uint) (*models.CommissionEntry, error)
	GetByOrderRef(promoterID uint, orderRef, kind string) (*models.CommissionEntry, error)
	ListByOrderRef(orderRef string, statuses []string) ([]models.CommissionEntry, error)
	ListReversalRequested(promoterID uint) ([]models.CommissionEntry, error)
	ListReversalRequestedPromoterIDs() ([]uint, error)
	UpdateStatusFrom(id uint, fromStatus string, updates map[string]interface{}) (int64, error)
	MarkDueCredited(before, now time.Time) (int64, error)
	SumByPromoter(promoterID uint, statuses []string) (decimal.Decimal, error)
	List(filter CommissionListFilter) ([]models.CommissionEntry, int64, error)
	ListRecent(promoterID uint, limit int) ([]models.CommissionEntry, error)
}

// GormCommissionRepository GORM 佣金账本仓储
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository 创建佣金账本仓储
func NewCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommissionRepository) WithTx(tx *gorm.DB) CommissionRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionRepository{db: tx}
}

// WithContext 绑定上下文
func (r *GormCommissionRepository) WithContext(ctx context.Context) CommissionRepository {
	if ctx == nil {
		return r
	}
	return &GormCommissionRepository{db: r.db.WithContext(ctx)}
}

// Create 创建佣金记录
func (r *GormCommissionRepository) Create(entry *models.CommissionEntry) error {
	return r.db.Create(entry).Error
}

// GetByID 按ID查询佣金记录
func (r *GormCommissionRepository) GetByID(id uint) (*models.CommissionEntry, error) {
	if id == 0 {
		return nil, nil
	}
	var entry models.CommissionEntry
	if err := r.db.Preload("Promoter").First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// GetByIDForUpdate 按ID锁定佣金记录
func (r *GormCommissionRepository) GetByIDForUpdate(id uint) (*models.CommissionEntry, error) {
	if id == 0 {
		return nil, nil
	}
	var entry models.CommissionEntry
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// GetByOrderRef 按推广员、订单与佣金类型查询
func (r *GormCommissionRepository) GetByOrderRef(promoterID uint, orderRef, kind string) (*models.CommissionEntry, error) {
	ref := strings.TrimSpace(orderRef)
	if promoterID == 0 || ref == "" {
		return nil, nil
	}
	var entry models.CommissionEntry
	if err := r.db.Where("promoter_id = ? AND order_ref = ? AND kind = ?", promoterID, ref, kind).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// ListByOrderRef 按订单查询佣金记录
func (r *GormCommissionRepository) ListByOrderRef(orderRef string, statuses []string) ([]models.CommissionEntry, error) {
	ref := strings.TrimSpace(orderRef)
	if ref == "" {
		return []models.CommissionEntry{}, nil
	}
	query := r.db.Model(&models.CommissionEntry{}).Where("order_ref = ?", ref)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var rows []models.CommissionEntry
	if err := query.Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListReversalRequested 查询已登记冲正请求、仍为入账状态的佣金，按请求先后排序
func (r *GormCommissionRepository) ListReversalRequested(promoterID uint) ([]models.CommissionEntry, error) {
	if promoterID == 0 {
		return []models.CommissionEntry{}, nil
	}
	var rows []models.CommissionEntry
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("promoter_id = ? AND status = ? AND reversal_requested_at IS NOT NULL", promoterID, constants.CommissionStatusCredited).
		Order("reversal_requested_at asc, id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListReversalRequestedPromoterIDs 查询存在待执行冲正请求的推广员
func (r *GormCommissionRepository) ListReversalRequestedPromoterIDs() ([]uint, error) {
	var ids []uint
	if err := r.db.Model(&models.CommissionEntry{}).
		Where("status = ? AND reversal_requested_at IS NOT NULL", constants.CommissionStatusCredited).
		Distinct().
		Order("promoter_id asc").
		Pluck("promoter_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// UpdateStatusFrom 仅当当前状态为 fromStatus 时更新，返回影响行数
func (r *GormCommissionRepository) UpdateStatusFrom(id uint, fromStatus string, updates map[string]interface{}) (int64, error) {
	if id == 0 || len(updates) == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.CommissionEntry{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// MarkDueCredited 批量将到期的待确认佣金入账
func (r *GormCommissionRepository) MarkDueCredited(before, now time.Time) (int64, error) {
	result := r.db.Model(&models.CommissionEntry{}).
		Where("status = ? AND confirm_at IS NOT NULL AND confirm_at <= ?", constants.CommissionStatusPending, before).
		Updates(map[string]interface{}{
			"status":      constants.CommissionStatusCredited,
			"credited_at": now,
			"updated_at":  now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// SumByPromoter 汇总指定状态的佣金金额
func (r *GormCommissionRepository) SumByPromoter(promoterID uint, statuses []string) (decimal.Decimal, error) {
	if promoterID == 0 || len(statuses) == 0 {
		return decimal.Zero, nil
	}
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.CommissionEntry{}).
		Where("promoter_id = ? AND status IN ?", promoterID, statuses).
		Select("COALESCE(SUM(amount), 0) AS total").
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(models.MoneyScale), nil
}

// List 查询佣金记录
func (r *GormCommissionRepository) List(filter CommissionListFilter) ([]models.CommissionEntry, int64, error) {
	query := r.db.Model(&models.CommissionEntry{}).Preload("Promoter")
	if filter.PromoterID != 0 {
		query = query.Where("commission_entries.promoter_id = ?", filter.PromoterID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("commission_entries.status = ?", status)
	}
	if kind := strings.TrimSpace(filter.Kind); kind != "" {
		query = query.Where("commission_entries.kind = ?", kind)
	}
	if ref := strings.TrimSpace(filter.OrderRef); ref != "" {
		query = query.Where("commission_entries.order_ref = ?", ref)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	var rows []models.CommissionEntry
	if err := query.Order("commission_entries.id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListRecent 查询推广员最近的佣金记录
func (r *GormCommissionRepository) ListRecent(promoterID uint, limit int) ([]models.CommissionEntry, error) {
	if promoterID == 0 {
		return []models.CommissionEntry{}, nil
	}
	if limit <= 0 {
		limit = 5
	}
	var rows []models.CommissionEntry
	if err := r.db.Where("promoter_id = ?", promoterID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
