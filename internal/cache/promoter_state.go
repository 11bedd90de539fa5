package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dujiao-next/ledger/internal/models"
)

const promoterStateCacheTTL = 10 * time.Minute

// PromoterState 推广员鉴权快照，仅用于服务端 Redis 缓存
type PromoterState struct {
	PromoterID uint   `json:"promoter_id"`
	Status     string `json:"status"`
	UpdatedAt  int64  `json:"updated_at"`
}

func promoterStateKey(promoterID uint) string {
	return fmt.Sprintf("auth:promoter:%d", promoterID)
}

// BuildPromoterState 从推广员模型构建快照
func BuildPromoterState(promoter *models.Promoter) *PromoterState {
	if promoter == nil {
		return nil
	}
	return &PromoterState{
		PromoterID: promoter.ID,
		Status:     promoter.Status,
		UpdatedAt:  time.Now().Unix(),
	}
}

// GetPromoterState 获取推广员快照
func GetPromoterState(ctx context.Context, promoterID uint) (*PromoterState, bool, error) {
	if promoterID == 0 {
		return nil, false, nil
	}
	var state PromoterState
	hit, err := GetJSON(ctx, promoterStateKey(promoterID), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetPromoterState 写入推广员快照
func SetPromoterState(ctx context.Context, state *PromoterState) error {
	if state == nil || state.PromoterID == 0 {
		return nil
	}
	return SetJSON(ctx, promoterStateKey(state.PromoterID), state, promoterStateCacheTTL)
}

// DelPromoterState 删除推广员快照
func DelPromoterState(ctx context.Context, promoterID uint) error {
	if promoterID == 0 {
		return nil
	}
	return Del(ctx, promoterStateKey(promoterID))
}
