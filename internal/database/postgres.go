package database

import (
	"context"
	"fmt"
	"time"

	"github.com/davrot/todolist/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PostgresOptions tunes the connection pool behind GORM.
type PostgresOptions struct {
	MaxOpenConns int
	MaxIdleConns int
	Timeout      time.Duration
}

// ConnectPostgres opens a GORM handle over the pgx driver and pings it.
func ConnectPostgres(ctx context.Context, dsn string, opts PostgresOptions) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: newGormLogger()})
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return db, nil
}

// newGormLogger routes GORM's SQL logging through the service logger,
// following LOG_LEVEL: SQL statements only at debug. GORM writes every line
// through one writer, so lines carry the lowest level GORM is set to emit.
func newGormLogger() gormlogger.Interface {
	lvl, at := gormlogger.Warn, logger.LevelWarn
	switch logger.CurrentLevel() {
	case logger.LevelDebug:
		lvl, at = gormlogger.Info, logger.LevelDebug
	case logger.LevelError, logger.LevelFatal:
		lvl, at = gormlogger.Error, logger.LevelError
	}
	return gormlogger.New(logger.Named("gorm").At(at), gormlogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  lvl,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
