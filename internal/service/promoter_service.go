package service

import (
	"context"
	"strings"
	"time"

	"github.com/dujiao-next/ledger/internal/cache"
	"github.com/dujiao-next/ledger/internal/constants"
	"github.com/dujiao-next/ledger/internal/logger"
	"github.com/dujiao-next/ledger/internal/models"
	"github.com/dujiao-next/ledger/internal/repository"
)

// CreatePromoterInput 创建推广员输入
type CreatePromoterInput struct {
	DisplayName string
	Email       string
	Tier        string
}

// PromoterListQuery 推广员列表查询
type PromoterListQuery struct {
	Page     int
	PageSize int
	Search   string
	Tier     string
	Status   string
}

// PromoterService 推广员档案服务
type PromoterService struct {
	repo repository.PromoterRepository
}

// NewPromoterService 创建推广员档案服务
func NewPromoterService(repo repository.PromoterRepository) *PromoterService {
	return &PromoterService{repo: repo}
}

// Create 创建推广员档案
func (s *PromoterService) Create(ctx context.Context, input CreatePromoterInput) (*models.Promoter, error) {
	name := strings.TrimSpace(input.DisplayName)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" || email == "" {
		return nil, ErrBadRequest
	}
	if !strings.Contains(email, "@") || len(email) > 255 {
		return nil, ErrBadRequest
	}
	tier := strings.ToLower(strings.TrimSpace(input.Tier))
	if tier == "" {
		tier = constants.PromoterTierUnpaid
	}
	if tier != constants.PromoterTierPaid && tier != constants.PromoterTierUnpaid {
		return nil, ErrPromoterTierInvalid
	}

	repo := s.repo.WithContext(ctx)
	existing, err := repo.GetByEmail(email)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	if existing != nil {
		return nil, ErrPromoterExists
	}
	now := time.Now()
	promoter := &models.Promoter{
		DisplayName: name,
		Email:       email,
		Tier:        tier,
		Status:      constants.PromoterStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.Create(promoter); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrPromoterExists
		}
		return nil, wrapStorageErr(err)
	}
	logger.FromContext(ctx).Infow("promoter_created", "promoter_id", promoter.ID, "tier", promoter.Tier)
	return promoter, nil
}

// Get 查询推广员档案
func (s *PromoterService) Get(ctx context.Context, id uint) (*models.Promoter, error) {
	promoter, err := s.repo.WithContext(ctx).GetByID(id)
	if err != nil {
		return nil, wrapStorageErr(err)
	}
	if promoter == nil {
		return nil, ErrPromoterNotFound
	}
	return promoter, nil
}

// List 查询推广员列表
func (s *PromoterService) List(ctx context.Context, query PromoterListQuery) ([]models.Promoter, int64, error) {
	var (
		rows  []models.Promoter
		total int64
	)
	err := retryRead(func() error {
		var err error
		rows, total, err = s.repo.WithContext(ctx).List(repository.PromoterListFilter{
			Page:     query.Page,
			PageSize: query.PageSize,
			Search:   query.Search,
			Tier:     query.Tier,
			Status:   query.Status,
		})
		return wrapStorageErr(err)
	})
	return rows, total, err
}

// UpdateStatus 启用或停用推广员，停用后不可再发起提现
func (s *PromoterService) UpdateStatus(ctx context.Context, id uint, rawStatus string) (*models.Promoter, error) {
	status := strings.ToLower(strings.TrimSpace(rawStatus))
	if status != constants.PromoterStatusActive && status != constants.PromoterStatusDisabled {
		return nil, ErrPromoterStatusInvalid
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.WithContext(ctx).UpdateStatus(id, status, time.Now()); err != nil {
		return nil, wrapStorageErr(err)
	}
	if err := cache.DelPromoterState(ctx, id); err != nil {
		logger.FromContext(ctx).Warnw("promoter_state_cache_del_failed", "promoter_id", id, "error", err)
	}
	logger.FromContext(ctx).Infow("promoter_status_updated", "promoter_id", id, "status", status)
	return s.Get(ctx, id)
}
