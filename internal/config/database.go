package config

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const maxConnectAttempts = 5

// ConnectDatabase opens the MySQL store, retrying with backoff while the
// server comes up.
func ConnectDatabase(ctx context.Context, cfg DBConfig, lg *logrus.Logger) (*gorm.DB, error) {
	var attempt int
	for {
		attempt++
		db, err := gorm.Open(mysql.Open(cfg.DSN()), gormConfig(os.Stderr))
		if err == nil {
			tunePool(db, cfg)
			if pluginErr := db.Use(otelgorm.NewPlugin()); pluginErr != nil {
				LogError(lg, "config", "ConnectDatabase", "install otelgorm plugin", nil, pluginErr)
			}
			lg.WithFields(logrus.Fields{"module": "config", "attempt": attempt}).Info("connected to database")
			return db, nil
		}
		if attempt >= maxConnectAttempts {
			return nil, err
		}

		sleep := time.Second * time.Duration(1<<attempt)
		LogError(lg, "config", "ConnectDatabase", "connect database", map[string]any{"attempt": attempt, "retry_in": sleep.String()}, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
}

func tunePool(db *gorm.DB, cfg DBConfig) {
	sqlDB, err := db.DB()
	if err != nil || sqlDB == nil {
		return
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// gormConfig logs SQL errors to out. Lookup misses are expected results and
// stay silent.
func gormConfig(out io.Writer) *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(
			log.New(out, "\r\n", log.LstdFlags),
			logger.Config{
				Colorful:                  false,
				LogLevel:                  logger.Error,
				SlowThreshold:             time.Second,
				IgnoreRecordNotFoundError: true,
			},
		),
		TranslateError: true,
	}
}
