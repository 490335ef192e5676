package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"photoshelf/internal/model"
)

type ImageRepository struct {
	db *gorm.DB
}

func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

func (r *ImageRepository) Create(ctx context.Context, image *model.Image) (uint, error) {
	if err := r.db.WithContext(ctx).Create(image).Error; err != nil {
		return 0, fmt.Errorf("create image failed: %w", err)
	}
	return image.ID, nil
}

func (r *ImageRepository) ListByUserID(ctx context.Context, userID uint) ([]model.Image, error) {
	var images []model.Image
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&images).Error; err != nil {
		return nil, fmt.Errorf("list images failed: %w", err)
	}
	return images, nil
}

func (r *ImageRepository) GetByIDAndUserID(ctx context.Context, id, userID uint) (*model.Image, error) {
	var image model.Image
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&image).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get image failed: %w", err)
	}
	return &image, nil
}

// DeleteByIDAndUserID removes the image only when userID owns it.
func (r *ImageRepository) DeleteByIDAndUserID(ctx context.Context, id, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.Image{})
	if res.Error != nil {
		return false, fmt.Errorf("delete image failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
