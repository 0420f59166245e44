package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRun_AutoMigratesSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:migration_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Run(db))
	for _, table := range []string{"usage_records", "usage_events", "entitlements", "api_keys"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	// idempotent
	require.NoError(t, Run(db))
}

func TestEmbeddedMigrationsCoverEveryTable(t *testing.T) {
	up, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/000001_init.up.sql")
	require.NoError(t, err)
	for _, table := range []string{"usage_records", "usage_events", "entitlements", "api_keys"} {
		assert.Contains(t, string(up), "CREATE TABLE IF NOT EXISTS "+table)
	}

	down, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/000001_init.down.sql")
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(down), "DROP TABLE"))
}

func TestRun_NilHandle(t *testing.T) {
	assert.Error(t, Run(nil))
	assert.Error(t, RunMigrations(nil))
}
