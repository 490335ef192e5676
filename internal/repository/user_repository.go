package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"photoshelf/internal/model"
)

var (
	ErrDuplicateEmail = errors.New("email already registered")
	ErrUserNotFound   = errors.New("user not found")
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create user failed: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user by email failed: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user by id failed: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) GetQuota(ctx context.Context, id uint) (model.Quota, error) {
	var quota model.Quota
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Select("photos_uploaded AS uploaded, photos_remaining AS remaining").
		Where("id = ?", id).
		Limit(1).
		Scan(&quota)
	if res.Error != nil {
		return model.Quota{}, fmt.Errorf("query quota failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.Quota{}, ErrUserNotFound
	}
	return quota, nil
}

// AdjustQuota shifts both counters in one statement. It does not check bounds.
func (r *UserRepository) AdjustQuota(ctx context.Context, id uint, deltaUploaded, deltaRemaining int) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"photos_uploaded":  gorm.Expr("photos_uploaded + ?", deltaUploaded),
			"photos_remaining": gorm.Expr("photos_remaining + ?", deltaRemaining),
		})
	if res.Error != nil {
		return fmt.Errorf("adjust quota failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ConsumeQuota moves one unit from remaining to uploaded if any is left and
// reports whether it did.
func (r *UserRepository) ConsumeQuota(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND photos_remaining > 0", id).
		Updates(map[string]interface{}{
			"photos_uploaded":  gorm.Expr("photos_uploaded + 1"),
			"photos_remaining": gorm.Expr("photos_remaining - 1"),
		})
	if res.Error != nil {
		return false, fmt.Errorf("consume quota failed: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
