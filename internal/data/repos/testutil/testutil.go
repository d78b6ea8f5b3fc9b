package testutil

import (
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/ielts-backend/internal/data/db"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var (
	dbOnce sync.Once
	tdb    *gorm.DB
	dbErr  error

	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB returns a migrated database shared by the package's tests. It uses
// Postgres when TEST_POSTGRES_DSN is set and in-memory SQLite otherwise.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dbOnce.Do(func() {
		cfg := &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
			NowFunc:                                  func() time.Time { return time.Now().UTC() },
		}
		var dialector gorm.Dialector
		if dsn := os.Getenv("TEST_POSTGRES_DSN"); dsn != "" {
			dialector = postgres.Open(dsn)
		} else {
			dialector = sqlite.Open(fmt.Sprintf("file:ielts_test_%d?mode=memory&cache=shared", os.Getpid()))
		}
		tdb, dbErr = gorm.Open(dialector, cfg)
		if dbErr != nil {
			return
		}
		if dialector.Name() == "sqlite" {
			sqlDB, err := tdb.DB()
			if err != nil {
				dbErr = err
				return
			}
			sqlDB.SetMaxOpenConns(1)
		}
		dbErr = db.AutoMigrateAll(tdb)
	})
	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}
	return tdb
}

// Tx opens a transaction that is rolled back when the test ends.
func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}
