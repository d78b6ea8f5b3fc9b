package db

import (
	"fmt"

	types "github.com/yungbote/ielts-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if db.Dialector.Name() == "postgres" {
		return EnsurePostgresIndexes(db)
	}
	return nil
}

// EnsurePostgresIndexes adds partial indexes AutoMigrate cannot express.
func EnsurePostgresIndexes(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{
			"idx_learning_path_one_active",
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_learning_path_one_active
			ON learning_path(user_id) WHERE status = 'active' AND deleted_at IS NULL;`,
		},
		{
			"idx_job_run_runnable",
			`CREATE INDEX IF NOT EXISTS idx_job_run_runnable
			ON job_run(status, created_at) WHERE deleted_at IS NULL;`,
		},
		{
			"idx_recommendation_open",
			`CREATE INDEX IF NOT EXISTS idx_recommendation_open
			ON recommendation(user_id, priority DESC) WHERE status = 'open' AND deleted_at IS NULL;`,
		},
	}
	for _, s := range stmts {
		if err := db.Exec(s.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}
