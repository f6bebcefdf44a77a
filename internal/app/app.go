// Package app builds the shared runtime pieces both binaries start from.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"medsbuddy/internal/auth"
	"medsbuddy/internal/cache"
	"medsbuddy/internal/config"
	"medsbuddy/internal/repository"
	"medsbuddy/internal/repository/memory"
	"medsbuddy/internal/repository/sqlite"
	"medsbuddy/internal/service"
)

// NewLogger returns a logrus logger configured by cfg.Log.
func NewLogger(cfg config.Config) (*logrus.Logger, error) {
	logger := logrus.New()

	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.Log.Format)
	}

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	logger.SetLevel(level)
	return logger, nil
}

// Repositories groups the storage capabilities selected by database.driver.
type Repositories struct {
	Users          repository.UserRepository
	Medications    repository.MedicationRepository
	MedicationLogs repository.MedicationLogRepository

	closers []func() error
}

func (r *Repositories) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OpenRepositories opens the configured store and applies pending migrations.
func OpenRepositories(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (*Repositories, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage; data is lost on exit")
		store := memory.New()
		return &Repositories{
			Users:          store.Users(),
			Medications:    store.Medications(),
			MedicationLogs: store.MedicationLogs(),
		}, nil
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := sqlite.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		logger.WithField("path", cfg.Database.Path).Info("sqlite database ready")
		return &Repositories{
			Users:          sqlite.NewUserRepository(db),
			Medications:    sqlite.NewMedicationRepository(db),
			MedicationLogs: sqlite.NewMedicationLogRepository(db),
			closers:        []func() error{db.Close},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// NewReportCache connects to Redis when cache.redisurl is set and falls back
// to a no-op cache otherwise.
func NewReportCache(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (cache.Cache, func() error, error) {
	if strings.TrimSpace(cfg.Cache.RedisURL) == "" {
		return cache.Nop{}, func() error { return nil }, nil
	}
	rc, err := cache.NewRedis(ctx, cfg.Cache.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info("adherence reports cached in redis")
	return rc, rc.Close, nil
}

// Services holds the use cases built over a set of repositories.
type Services struct {
	Users       service.UserService
	Medications service.MedicationService
}

func NewServices(cfg config.Config, repos *Repositories, reports cache.Cache, logger logrus.FieldLogger) Services {
	return Services{
		Users: service.NewUserService(repos.Users, auth.NewHasher(cfg.Auth.BcryptCost)),
		Medications: service.NewMedicationService(
			repos.Medications,
			repos.MedicationLogs,
			reports,
			logger,
			service.WithReportTTL(cfg.Cache.TTL),
		),
	}
}
