package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dujiao-next/ledger/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PromoterRepository 推广员数据访问接口
type PromoterRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) PromoterRepository
	WithContext(ctx context.Context) PromoterRepository

	Create(promoter *models.Promoter) error
	GetByID(id uint) (*models.Promoter, error)
	GetByIDForUpdate(id uint) (*models.Promoter, error)
	GetByEmail(email string) (*models.Promoter, error)
	List(filter PromoterListFilter) ([]models.Promoter, int64, error)
	UpdateStatus(id uint, status string, updatedAt time.Time) error
	CompareAndBumpLedgerVersion(id uint, expected int64) (bool, error)
	BumpLedgerVersion(id uint) error
}

// GormPromoterRepository GORM 推广员仓储
type GormPromoterRepository struct {
	db *gorm.DB
}

// NewPromoterRepository 创建推广员仓储
func NewPromoterRepository(db *gorm.DB) *GormPromoterRepository {
	return &GormPromoterRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPromoterRepository) WithTx(tx *gorm.DB) PromoterRepository {
	if tx == nil {
		return r
	}
	return &GormPromoterRepository{db: tx}
}

// WithContext 绑定上下文
func (r *GormPromoterRepository) WithContext(ctx context.Context) PromoterRepository {
	if ctx == nil {
		return r
	}
	return &GormPromoterRepository{db: r.db.WithContext(ctx)}
}

// Transaction 执行事务
func (r *GormPromoterRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建推广员
func (r *GormPromoterRepository) Create(promoter *models.Promoter) error {
	return r.db.Create(promoter).Error
}

// GetByID 按ID获取推广员
func (r *GormPromoterRepository) GetByID(id uint) (*models.Promoter, error) {
	if id == 0 {
		return nil, nil
	}
	var promoter models.Promoter
	if err := r.db.First(&promoter, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &promoter, nil
}

// GetByIDForUpdate 按ID锁定推广员行
func (r *GormPromoterRepository) GetByIDForUpdate(id uint) (*models.Promoter, error) {
	if id == 0 {
		return nil, nil
	}
	var promoter models.Promoter
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&promoter, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &promoter, nil
}

// GetByEmail 按邮箱获取推广员
func (r *GormPromoterRepository) GetByEmail(email string) (*models.Promoter, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, nil
	}
	var promoter models.Promoter
	if err := r.db.Where("email = ?", normalized).First(&promoter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &promoter, nil
}

// List 查询推广员列表
func (r *GormPromoterRepository) List(filter PromoterListFilter) ([]models.Promoter, int64, error) {
	query := r.db.Model(&models.Promoter{})
	if tier := strings.TrimSpace(filter.Tier); tier != "" {
		query = query.Where("promoters.tier = ?", tier)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("promoters.status = ?", status)
	}
	if keyword := strings.TrimSpace(filter.Search); keyword != "" {
		condition, argCount := buildLikeCondition(r.db, []string{"promoters.display_name", "promoters.email"})
		query = query.Where(condition, repeatLikeArgs("%"+keyword+"%", argCount)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = query.Scopes(paginate(filter.Page, filter.PageSize))

	var rows []models.Promoter
	if err := query.Order("promoters.id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// UpdateStatus 更新推广员状态
func (r *GormPromoterRepository) UpdateStatus(id uint, status string, updatedAt time.Time) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Promoter{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     strings.TrimSpace(status),
			"updated_at": updatedAt,
		}).Error
}

// CompareAndBumpLedgerVersion 仅当账本版本号等于 expected 时递增，返回是否成功
func (r *GormPromoterRepository) CompareAndBumpLedgerVersion(id uint, expected int64) (bool, error) {
	if id == 0 {
		return false, nil
	}
	result := r.db.Model(&models.Promoter{}).
		Where("id = ? AND ledger_version = ?", id, expected).
		UpdateColumn("ledger_version", gorm.Expr("ledger_version + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// BumpLedgerVersion 无条件递增账本版本号
func (r *GormPromoterRepository) BumpLedgerVersion(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Model(&models.Promoter{}).
		Where("id = ?", id).
		UpdateColumn("ledger_version", gorm.Expr("ledger_version + 1")).Error
}
