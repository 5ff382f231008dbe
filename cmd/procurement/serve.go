package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/config"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/middleware"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/handler"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/repository"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/service"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/shared/storage"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "run AutoMigrate before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, zapLogger, err := bootstrap()
	if err != nil {
		return err
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting procurement service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := initDatabase(cfg.Database, cfg.Server.Mode)
	if err != nil {
		zapLogger.Error("Failed to connect to database", zap.Error(err))
		return err
	}
	if autoMigrate {
		if err := repository.AutoMigrate(db); err != nil {
			return err
		}
	}

	rdb := initRedis(ctx, cfg.Redis, zapLogger)
	if rdb != nil {
		defer rdb.Close()
	}

	deps := service.Deps{
		Repos:  repository.NewRepositories(db),
		Redis:  rdb,
		Config: cfg,
		Logger: zapLogger,
	}
	if store := initStorage(ctx, cfg.MinIO, zapLogger); store != nil {
		deps.Store = store
	}
	services := service.NewServices(deps)
	handlers := handler.NewHandlers(services, zapLogger)

	if err := handler.RegisterValidators(); err != nil {
		return fmt.Errorf("register validators: %w", err)
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerSystemRoutes(router, db, rdb)
	handler.RegisterRoutes(router, handlers, cfg.JWT.Secret)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			zapLogger.Error("Failed to start server", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	zapLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}
	zapLogger.Info("Server exited")
	return nil
}

// initRedis 未启用或连接失败时返回 nil，刷新令牌退化为无状态，缓存关闭
func initRedis(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) *redis.Client {
	if !cfg.Enabled {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redis unavailable, continuing without cache", zap.String("addr", cfg.Addr()), zap.Error(err))
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func initStorage(ctx context.Context, cfg config.MinIOConfig, log *zap.Logger) *storage.MinIOStore {
	if cfg.Endpoint == "" {
		log.Info("MinIO not configured, attachments disabled")
		return nil
	}
	store, err := storage.NewMinIOStore(ctx, cfg)
	if err != nil {
		log.Warn("MinIO unavailable, attachments disabled", zap.String("endpoint", cfg.Endpoint), zap.Error(err))
		return nil
	}
	return store
}

func registerSystemRoutes(r *gin.Engine, db *gorm.DB, rdb *redis.Client) {
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		checks := gin.H{"database": "ok"}
		status := http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			checks["database"] = "down"
			status = http.StatusServiceUnavailable
		}
		if rdb != nil {
			checks["redis"] = "ok"
			if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
				checks["redis"] = "down"
			}
		}
		state := "ok"
		if status != http.StatusOK {
			state = "unavailable"
		}
		c.JSON(status, gin.H{"status": state, "checks": checks})
	})
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})
}
