// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"photoshelf/internal/model"
	"photoshelf/internal/platform/database"
)

// NewDB returns a migrated in-memory SQLite database private to the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.New(context.Background(), "sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Image{}, &model.ImageEvent{}))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// CreateUser inserts a user with the given remaining quota and password.
func CreateUser(t testing.TB, db *gorm.DB, email, password string, remaining int) *model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &model.User{
		Name:            "Test User",
		Email:           email,
		PasswordHash:    string(hash),
		PhotosRemaining: remaining,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func CountImages(t testing.TB, db *gorm.DB, userID uint) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(&model.Image{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}
