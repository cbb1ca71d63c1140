// Package store owns the relational persistence of the accounting core:
// connection setup for postgres and sqlite, table models, migrations and
// transaction helpers.
package store

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/erpledger/erpledger/internal/config"
)

// Open connects to the database described by cnf and applies migrations.
func Open(cnf config.DatabaseConfig) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cnf.Driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(PostgresDSN(cnf)), gormConfig())
	case "sqlite", "":
		db, err = openSqlite(cnf.Name)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cnf.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cnf.Driver, err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// PostgresDSN builds a key/value connection string.
func PostgresDSN(cnf config.DatabaseConfig) string {
	sslMode := cnf.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		cnf.Username, cnf.Password, cnf.Host, cnf.Port, cnf.Name, sslMode,
	)
}

func openSqlite(name string) (*gorm.DB, error) {
	dsn := "file::memory:"
	if name != "" {
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000", name)
	}
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}

	// sqlite allows one writer; a single connection keeps an in-memory
	// database alive and serializes transactions.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&AccountRecord{},
		&EntryRecord{},
		&LineRecord{},
		&AssetRecord{},
		&DepreciationRecord{},
	); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transact runs fn in a database transaction bound to ctx. The transaction
// commits when fn returns nil and rolls back otherwise.
func Transact(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

// ForUpdate locks the selected rows until the transaction ends on drivers
// that support row locks. sqlite serializes writers and needs no clause.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
