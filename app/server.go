package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"geoabsensi/internal/attendance"
	"geoabsensi/internal/config"
	"geoabsensi/internal/db"
	"geoabsensi/internal/logger"
	"geoabsensi/internal/util"
)

type Server struct {
	Config  *config.Config
	DB      *sql.DB
	Redis   *goredis.Client // nil when REDIS_ADDR is empty
	Log     *zap.Logger
	Handler http.Handler
}

// NewFromEnv wires config, logger, database, the optional redis guard and
// the router.
func NewFromEnv() (*Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	var (
		rdb   *goredis.Client
		guard *attendance.RedisWindowGuard
	)
	if cfg.Redis.Addr != "" {
		rdb = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			// redis opsional: tanpa redis cek duplikat tetap jalan lewat DB
			log.Warn("redis unavailable, duplicate guard disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = rdb.Close()
			rdb = nil
		} else {
			guard = attendance.NewRedisWindowGuard(rdb)
		}
	}

	return &Server{
		Config: cfg,
		DB:     sqlDB,
		Redis:  rdb,
		Log:    log,
		Handler: NewHandler(HandlerDeps{
			DB:         sqlDB,
			Tokens:     util.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL),
			RefreshTTL: cfg.Auth.RefreshTokenTTL,
			Log:        log,
			Guard:      guard,
		}),
	}, nil
}

// Close releases the database and redis connections and flushes the logger.
func (s *Server) Close() error {
	var firstErr error
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			firstErr = err
		}
	}
	if err := s.DB.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	_ = s.Log.Sync()
	return firstErr
}
