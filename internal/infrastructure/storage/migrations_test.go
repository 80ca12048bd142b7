package storage

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// expectedMigrationCount is the number of migrations we expect to have
// Update this when adding new migrations
const expectedMigrationCount = 5

// TestMigrations_FreshDatabase tests running migrations on a fresh database
func TestMigrations_FreshDatabase(t *testing.T) {
	tmpDB := createTempDB(t)
	defer os.Remove(tmpDB)

	store, err := NewStorage(tmpDB)
	require.NoError(t, err)
	defer store.Close()

	var maxVersion, applied int
	err = store.db.QueryRow("SELECT MAX(version_id) FROM goose_db_version WHERE is_applied = 1").Scan(&maxVersion)
	require.NoError(t, err)
	assert.Equal(t, expectedMigrationCount, maxVersion)

	err = store.db.QueryRow("SELECT COUNT(*) FROM goose_db_version WHERE is_applied = 1 AND version_id > 0").Scan(&applied)
	require.NoError(t, err)
	assert.Equal(t, expectedMigrationCount, applied)
}

// TestMigrations_Idempotency tests that migrations can be run multiple times
func TestMigrations_Idempotency(t *testing.T) {
	tmpDB := createTempDB(t)
	defer os.Remove(tmpDB)

	store, err := NewStorage(tmpDB)
	require.NoError(t, err)
	store.Close()

	// Second open must not re-apply anything
	store, err = NewStorage(tmpDB)
	require.NoError(t, err)
	defer store.Close()

	var applied int
	err = store.db.QueryRow("SELECT COUNT(*) FROM goose_db_version WHERE is_applied = 1 AND version_id > 0").Scan(&applied)
	require.NoError(t, err)
	assert.Equal(t, expectedMigrationCount, applied, "Should still have exactly %d migrations", expectedMigrationCount)
}

// TestMigrations_Schema tests that the correct schema is created
func TestMigrations_Schema(t *testing.T) {
	tmpDB := createTempDB(t)
	defer os.Remove(tmpDB)

	store, err := NewStorage(tmpDB)
	require.NoError(t, err)
	defer store.Close()

	tables := []string{
		"charges", "splits", "orders", "order_items", "match_links",
		"categorization_records", "categories", "sync_state", "sync_runs", "api_calls",
	}
	for _, table := range tables {
		err = store.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(new(int))
		assert.NoError(t, err, "%s table should exist", table)
	}
}

// TestMigrations_ForeignKeyConstraints tests that foreign keys are enforced
func TestMigrations_ForeignKeyConstraints(t *testing.T) {
	tmpDB := createTempDB(t)
	defer os.Remove(tmpDB)

	store, err := NewStorage(tmpDB)
	require.NoError(t, err)
	defer store.Close()

	var fkEnabled int
	err = store.db.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled)
	require.NoError(t, err)
	assert.Equal(t, 1, fkEnabled, "Foreign keys should be enabled")

	// A split of a charge that does not exist
	_, err = store.db.Exec(`
		INSERT INTO splits (id, charge_id, position, amount, category_id)
		VALUES ('s1', 'missing', 0, -100, 'cat')
	`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FOREIGN KEY constraint failed")
}

// TestMigrations_StatusCheck tests that unknown sync statuses are rejected
func TestMigrations_StatusCheck(t *testing.T) {
	tmpDB := createTempDB(t)
	defer os.Remove(tmpDB)

	store, err := NewStorage(tmpDB)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.db.Exec(`
		INSERT INTO charges (id, amount, charge_date, status, modified_at, pulled_at)
		VALUES ('c1', -100, '2024-03-10', 'archived', '', '')
	`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHECK constraint failed")
}

func createTempDB(t *testing.T) string {
	tmpFile, err := os.CreateTemp("", "test_*.db")
	require.NoError(t, err)
	tmpFile.Close()
	return tmpFile.Name()
}
