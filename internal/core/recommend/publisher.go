package recommend

import (
	"context"
	"time"

	"illineats/internal/infrastructure/store"
	"illineats/internal/pkg/common"
)

// Publisher 以 (userId, type) 覆寫推薦結果
type Publisher struct {
	store store.Store
	now   func() time.Time
}

func NewPublisher(s store.Store) *Publisher {
	return &Publisher{store: s, now: time.Now}
}

// Publish 寫入失敗時直接回傳錯誤，不重試
func (p *Publisher) Publish(ctx context.Context, userID, recType string, foodIDs []string) (*common.Recommendation, error) {
	rec := &common.Recommendation{
		UserID:    userID,
		Type:      recType,
		FoodIDs:   append([]string{}, foodIDs...),
		CreatedAt: p.now().UTC(),
	}
	if _, err := p.store.UpsertRecommendation(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
