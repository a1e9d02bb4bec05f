// Package db persists job run history. Persistence is optional: when
// no DSN is configured Init returns a nil *Store, and every Store
// method is nil-safe, so the pipeline never depends on the database.
package db

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/arencloud/iris/internal/config"
	"github.com/arencloud/iris/internal/models"
)

type Store struct {
	db *gorm.DB
}

func Init(cfg *config.Config, logger *zap.Logger) (*Store, error) {
	if cfg.DBDsn == "" {
		logger.Info("run history disabled, no DATABASE_URL configured")
		return nil, nil
	}
	var gormLevel gormlogger.LogLevel
	switch {
	case logger.Core().Enabled(zapcore.DebugLevel):
		gormLevel = gormlogger.Info // SQL traces at debug level
	case logger.Core().Enabled(zapcore.InfoLevel):
		gormLevel = gormlogger.Warn
	default:
		gormLevel = gormlogger.Error
	}
	gdb, err := gorm.Open(postgres.Open(cfg.DBDsn), &gorm.Config{Logger: newGormLogger(logger, gormLevel)})
	if err != nil {
		return nil, err
	}
	if err := gdb.AutoMigrate(&models.JobRun{}); err != nil {
		return nil, err
	}
	logger.Info("run history enabled", zap.String("driver", "postgres"))
	return &Store{db: gdb}, nil
}

// StartRun records a run in "running" state and returns the row so the
// caller can finish it later.
func (s *Store) StartRun(accountID, role string, pairs int) (*models.JobRun, error) {
	if s == nil {
		return nil, nil
	}
	run := &models.JobRun{
		AccountID: accountID,
		Role:      role,
		Pairs:     pairs,
		Status:    "running",
		StartedAt: time.Now().UTC(),
	}
	if err := s.db.Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// FinishRun stamps the outcome onto a row created by StartRun.
func (s *Store) FinishRun(run *models.JobRun, runErr error) error {
	if s == nil || run == nil {
		return nil
	}
	now := time.Now().UTC()
	run.FinishedAt = &now
	if runErr != nil {
		run.Status = "failed"
		run.Error = runErr.Error()
	} else {
		run.Status = "succeeded"
	}
	return s.db.Save(run).Error
}

// RecentRuns returns up to n runs, newest first.
func (s *Store) RecentRuns(n int) ([]models.JobRun, error) {
	if s == nil {
		return nil, nil
	}
	var runs []models.JobRun
	err := s.db.Order("started_at desc").Limit(n).Find(&runs).Error
	return runs, err
}
