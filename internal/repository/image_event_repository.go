package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"photoshelf/internal/model"
)

type ImageEventRepository struct {
	db *gorm.DB
}

func NewImageEventRepository(db *gorm.DB) *ImageEventRepository {
	return &ImageEventRepository{db: db}
}

// Create stores the event. A redelivered event with a known EventID is a no-op.
func (r *ImageEventRepository) Create(ctx context.Context, event *model.ImageEvent) error {
	var existing int64
	if err := r.db.WithContext(ctx).Model(&model.ImageEvent{}).Where("event_id = ?", event.EventID).Count(&existing).Error; err != nil {
		return fmt.Errorf("check image event failed: %w", err)
	}
	if existing > 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return fmt.Errorf("create image event failed: %w", err)
	}
	return nil
}

func (r *ImageEventRepository) ListByUserID(ctx context.Context, userID uint, limit int) ([]model.ImageEvent, error) {
	switch {
	case limit <= 0:
		limit = 50
	case limit > 200:
		limit = 200
	}

	var events []model.ImageEvent
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("occurred_at DESC, id DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list image events failed: %w", err)
	}
	return events, nil
}
