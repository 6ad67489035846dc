package storage

import (
	"context"
	"errors"
	"fmt"

	"strangerly/backend/internal/config"
	"strangerly/backend/internal/logger"
	"strangerly/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNoBackend is returned when an operation needs durable storage that was
// not configured.
var ErrNoBackend = errors.New("no storage backend configured")

// Backend is the narrow save/load contract the history store relies on.
type Backend interface {
	SaveMessage(ctx context.Context, msg models.Message) error
	// RecentMessages returns at most limit messages of room, oldest first.
	RecentMessages(ctx context.Context, room string, limit int) ([]models.Message, error)
}

// ReportSink persists abuse reports.
type ReportSink interface {
	SaveReport(ctx context.Context, report *models.Report) error
}

// Stores bundles whatever durable backends the configuration enabled.
// Any field may be nil.
type Stores struct {
	History Backend
	Reports ReportSink
	Gorm    *GormStore
	Redis   *RedisStore
}

// Open connects the backends named by cfg. "none" yields an empty Stores.
func Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	s := &Stores{}

	switch cfg.History.Backend {
	case "none":
		return s, nil
	case "postgres", "sqlite":
		g, err := openGorm(cfg.History.Backend, cfg.Database)
		if err != nil {
			return nil, err
		}
		s.Gorm = g
		s.History = g
		s.Reports = g
	case "redis":
		r, err := NewRedisStore(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		s.Redis = r
		s.History = r
		if cfg.Database.URL != "" {
			g, err := openGorm("postgres", cfg.Database)
			if err != nil {
				r.Close()
				return nil, err
			}
			s.Gorm = g
			s.Reports = g
		}
	default:
		return nil, fmt.Errorf("unsupported history backend: %s", cfg.History.Backend)
	}

	return s, nil
}

// OpenDatabase connects the relational store: postgres when database.url is
// set, the sqlite file otherwise.
func OpenDatabase(cfg *config.Config) (*GormStore, error) {
	if cfg.Database.URL != "" {
		return openGorm("postgres", cfg.Database)
	}
	return openGorm("sqlite", cfg.Database)
}

func openGorm(driver string, cfg config.DatabaseConfig) (*GormStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		if cfg.URL == "" {
			return nil, fmt.Errorf("postgres backend needs database.url")
		}
		dialector = postgres.Open(cfg.URL)
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	store := NewGormStore(db)
	if err := store.Migrate(); err != nil {
		return nil, err
	}
	logger.L().Info().Str("driver", driver).Msg("database connected, migrations complete")
	return store, nil
}

// Close releases every opened connection.
func (s *Stores) Close() {
	if s.Gorm != nil {
		if err := s.Gorm.Close(); err != nil {
			logger.L().Warn().Err(err).Msg("failed to close database")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			logger.L().Warn().Err(err).Msg("failed to close redis")
		}
	}
}
