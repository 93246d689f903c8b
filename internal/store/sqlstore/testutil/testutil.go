// Package testutil provides the shared Postgres handle sqlstore's
// integration tests run against. Tests are skipped, not failed, when no
// test database is configured.
package testutil

import (
	"errors"
	"os"
	"sync"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/fenwick-labs/jobengine/internal/store/sqlstore"
)

var errMissingDSN = errors.New("missing TEST_POSTGRES_DSN")

var (
	dbOnce sync.Once
	db     *gorm.DB
	dbErr  error
)

// DB returns a migrated *gorm.DB connected to TEST_POSTGRES_DSN, opened once
// per test binary run. Tests call this and get skipped automatically if the
// env var isn't set.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dbOnce.Do(func() {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			dbErr = errMissingDSN
			return
		}

		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			Logger: gormLogger.Default.LogMode(gormLogger.Silent),
		})
		if err != nil {
			dbErr = err
			return
		}
		if err := sqlstore.AutoMigrate(db); err != nil {
			dbErr = err
			return
		}
	})

	if errors.Is(dbErr, errMissingDSN) {
		tb.Skip("set TEST_POSTGRES_DSN to run sqlstore integration tests")
	}
	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}
	return db
}

// Truncate clears every table sqlstore owns so tests start from a clean
// slate without needing a transaction per test.
func Truncate(tb testing.TB, db *gorm.DB) {
	tb.Helper()
	require := func(err error) {
		if err != nil {
			tb.Fatalf("truncate: %v", err)
		}
	}
	require(db.Exec(`TRUNCATE TABLE job_run RESTART IDENTITY CASCADE`).Error)
	require(db.Exec(`TRUNCATE TABLE worker_liveness RESTART IDENTITY CASCADE`).Error)
}
