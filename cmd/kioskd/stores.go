package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/dreschagin/ddc-kiosk/internal/application/port"
	"github.com/dreschagin/ddc-kiosk/internal/domain/repository"
	"github.com/dreschagin/ddc-kiosk/internal/infrastructure/cache/memory"
	redisCache "github.com/dreschagin/ddc-kiosk/internal/infrastructure/cache/redis"
	"github.com/dreschagin/ddc-kiosk/internal/infrastructure/capture"
	dynamodbRepo "github.com/dreschagin/ddc-kiosk/internal/infrastructure/persistence/dynamodb"
	memrepo "github.com/dreschagin/ddc-kiosk/internal/infrastructure/persistence/memory"
	"github.com/dreschagin/ddc-kiosk/internal/infrastructure/persistence/postgres"
	"github.com/dreschagin/ddc-kiosk/internal/infrastructure/persistence/sqlite"
	s3storage "github.com/dreschagin/ddc-kiosk/internal/infrastructure/storage/s3"
	"github.com/dreschagin/ddc-kiosk/pkg/config"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"

	_ "github.com/lib/pq"
)

const (
	driverMemory   = "memory"
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
	driverDynamo   = "dynamodb"
	driverRedis    = "redis"
)

// stores: выбранные конфигурацией хранилища киоска
type stores struct {
	presets  repository.PresetRepository
	gallery  repository.GalleryRepository
	settings port.Cache
	storage  port.ScreenshotStorage

	closers []io.Closer
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i].Close()
	}
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stores, error) {
	s := &stores{}

	var (
		gormDB *gorm.DB
		pgDB   *sql.DB
	)
	needs := func(driver string) bool {
		return cfg.Presets.Driver == driver || cfg.Gallery.Driver == driver
	}

	if needs(driverSQLite) {
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			s.closers = append(s.closers, sqlDB)
		}
		gormDB = db
		log.Info("SQLite opened", "path", cfg.SQLite.Path)
	}

	if needs(driverPostgres) {
		db, err := sql.Open("postgres", cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s.closers = append(s.closers, db)

		// Настраиваем connection pool
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

		if err := db.PingContext(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			s.Close()
			return nil, err
		}
		pgDB = db
		log.Info("Database connected successfully")
	}

	switch cfg.Presets.Driver {
	case driverMemory:
		s.presets = memrepo.NewPresetRepository()
	case driverSQLite:
		s.presets = sqlite.NewPresetRepository(gormDB)
	case driverPostgres:
		s.presets = postgres.NewPostgresPresetRepository(pgDB)
	default:
		s.Close()
		return nil, fmt.Errorf("unknown presets driver %q", cfg.Presets.Driver)
	}

	switch cfg.Gallery.Driver {
	case driverMemory:
		s.gallery = memrepo.NewGalleryRepository()
	case driverSQLite:
		s.gallery = sqlite.NewGalleryRepository(gormDB)
	case driverPostgres:
		s.gallery = postgres.NewPostgresGalleryRepository(pgDB)
	case driverDynamo:
		repo, err := dynamodbRepo.NewGalleryRepository(ctx, dynamodbRepo.Config{
			TableName:       cfg.Dynamo.TableName,
			KioskID:         cfg.Server.KioskID,
			Region:          cfg.Dynamo.Region,
			Endpoint:        cfg.Dynamo.Endpoint,
			AccessKeyID:     cfg.Dynamo.AccessKeyID,
			SecretAccessKey: cfg.Dynamo.SecretAccessKey,
			StrongReads:     cfg.Dynamo.StrongReads,
		})
		if err != nil {
			s.Close()
			return nil, err
		}
		s.gallery = repo
	default:
		s.Close()
		return nil, fmt.Errorf("unknown gallery driver %q", cfg.Gallery.Driver)
	}

	switch cfg.Settings.Driver {
	case driverMemory:
		s.settings = memory.New()
	case driverRedis:
		cache, err := redisCache.NewRedisCache(redisCache.Options{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			KioskID:      cfg.Server.KioskID,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			// Настройки не критичны: киоск работает и без Redis
			log.Warn("Redis unavailable, settings kept in memory", "error", err.Error())
			s.settings = memory.New()
		} else {
			s.closers = append(s.closers, cache)
			s.settings = cache
		}
	default:
		s.Close()
		return nil, fmt.Errorf("unknown settings driver %q", cfg.Settings.Driver)
	}

	if cfg.S3.Enabled {
		storage, err := s3storage.NewScreenshotStorage(ctx, s3storage.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			URLMode:         s3storage.URLMode(cfg.S3.URLMode),
			PresignedTTL:    cfg.S3.PresignedTTL,
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to initialize screenshot storage: %w", err)
		}
		s.storage = storage
	} else {
		log.Info("S3 archive disabled, screenshots stay in the local gallery only")
	}

	log.Info("Storage ready",
		"presets", cfg.Presets.Driver,
		"gallery", cfg.Gallery.Driver,
		"settings", cfg.Settings.Driver,
		"s3", cfg.S3.Enabled)
	return s, nil
}

// captureStrategies собирает цепочку техник в фиксированном порядке,
// исключая отключенные конфигурацией
func captureStrategies(cfg config.CaptureConfig, renderer capture.PageRenderer) []port.CaptureStrategy {
	all := []port.CaptureStrategy{
		capture.NewDirectReadStrategy(renderer, cfg.RenderTimeout),
		capture.NewContainerRenderStrategy(renderer, cfg.RenderTimeout),
	}
	if cfg.ScreenShareEnabled {
		all = append(all, capture.NewScreenShareStrategy(capture.NewDisplaySource(true, 0), cfg.ScreenShareTimeout))
	}
	all = append(all, capture.NewCanvasDrawStrategy(nil, cfg.ImagePaths, cfg.ImageTimeout))

	disabled := lo.Map(cfg.DisabledStrategies, func(name string, _ int) string {
		return strings.ToLower(strings.TrimSpace(name))
	})
	return lo.Reject(all, func(s port.CaptureStrategy, _ int) bool {
		return lo.Contains(disabled, s.Name())
	})
}
