package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type txRecord struct {
	ID   uint
	Name string
}

func setupTxDB(t *testing.T) *gorm.DB {
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(&txRecord{}))
	return conn
}

func TestWithTransaction(t *testing.T) {
	conn := setupTxDB(t)

	t.Run("Commits on success", func(t *testing.T) {
		err := WithTransaction(conn, func(tx *gorm.DB) error {
			return tx.Create(&txRecord{Name: "kept"}).Error
		})
		assert.NoError(t, err)

		var count int64
		conn.Model(&txRecord{}).Where("name = ?", "kept").Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := WithTransaction(conn, func(tx *gorm.DB) error {
			if err := tx.Create(&txRecord{Name: "discarded"}).Error; err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		var count int64
		conn.Model(&txRecord{}).Where("name = ?", "discarded").Count(&count)
		assert.Equal(t, int64(0), count)
	})

	t.Run("Rolls back on panic", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = WithTransaction(conn, func(tx *gorm.DB) error {
				tx.Create(&txRecord{Name: "panicked"})
				panic("unexpected")
			})
		})

		var count int64
		conn.Model(&txRecord{}).Where("name = ?", "panicked").Count(&count)
		assert.Equal(t, int64(0), count)
	})
}

func TestAutoMigrateRequiresInitialize(t *testing.T) {
	previous := DB
	DB = nil
	defer func() { DB = previous }()

	err := AutoMigrate(&txRecord{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database not initialized")
}
