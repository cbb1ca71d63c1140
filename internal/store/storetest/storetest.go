// Package storetest provides an isolated, migrated database for tests.
package storetest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/erpledger/erpledger/internal/config"
	"github.com/erpledger/erpledger/internal/store"
)

// New opens a private in-memory sqlite database with every table migrated.
// The database is closed when the test ends.
func New(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := store.Open(config.DatabaseConfig{Driver: "sqlite"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(db) })
	return db
}
