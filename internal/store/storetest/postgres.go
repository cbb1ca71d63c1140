//go:build integration

package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	container "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/erpledger/erpledger/internal/config"
	"github.com/erpledger/erpledger/internal/store"
)

// NewPostgres starts a throwaway postgres container and opens it through
// store.Open. The container is terminated when the test ends.
func NewPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	const (
		dbName     = "erpledger"
		dbUser     = "postgres"
		dbPassword = "postgres"
	)

	pg, err := container.Run(ctx,
		"postgres:16-alpine",
		container.WithDatabase(dbName),
		container.WithUsername(dbUser),
		container.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort("5432/tcp"),
			)))
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pg.Terminate(context.Background()); err != nil {
			t.Logf("terminating postgres container: %v", err)
		}
	})

	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	db, err := store.Open(config.DatabaseConfig{
		Driver:   "postgres",
		Name:     dbName,
		Host:     host,
		Port:     port.Port(),
		Username: dbUser,
		Password: dbPassword,
		SSLMode:  "disable",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(db) })
	return db
}
