package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"questforge/backend/internal/database"
	"questforge/backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database migrated to the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the shared-cache memory database alive for the
	// whole test.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	identity := NewIdentityService(db)
	user, err := identity.Register(context.Background(), username, username+"@example.com", "password123")
	require.NoError(t, err)
	return user
}

func createAdventure(t *testing.T, db *gorm.DB, gameMasterID uint, title string) *models.Adventure {
	t.Helper()
	adventures := NewAdventureService(db, 0)
	adventure, err := adventures.Create(context.Background(), gameMasterID, title)
	require.NoError(t, err)
	return adventure
}
