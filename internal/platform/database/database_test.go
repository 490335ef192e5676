package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLiteInMemory(t *testing.T) {
	db, err := New(context.Background(), "sqlite", "file::memory:")
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestNewUnsupportedDriver(t *testing.T) {
	_, err := New(context.Background(), "oracle", "")
	assert.ErrorContains(t, err, "unsupported database driver")
}
