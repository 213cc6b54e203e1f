package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"projectcomments/internal/config"
	"projectcomments/internal/database"
	"projectcomments/internal/domain/attachment"
	"projectcomments/internal/domain/comment"
	"projectcomments/internal/domain/composer"
	"projectcomments/internal/domain/resource"
	"projectcomments/internal/i18n"
	"projectcomments/internal/logging"
	"projectcomments/internal/middleware"
	"projectcomments/internal/pkg/cache"
	jwtsvc "projectcomments/internal/pkg/jwt"
	"projectcomments/internal/pkg/response"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		Path:       cfg.LogPath,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, &comment.Comment{}, &resource.Resource{}); err != nil {
		return err
	}

	rc := cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	commentCache := cache.New(rc, logger)
	if commentCache.Enabled() {
		if err := commentCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, comment lists will not be cached", zap.Error(err))
		}
	}

	r, registry, err := newRouter(cfg, db, commentCache, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return registry.Run(gctx, cfg.SweepInterval)
	})
	g.Go(func() error {
		return sweepTempFiles(gctx, cfg, logger)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newRouter wires the services and returns the HTTP router plus the composer
// registry whose sweeper the caller runs.
func newRouter(cfg *config.Config, db *gorm.DB, commentCache *cache.Cache, logger *zap.Logger) (*gin.Engine, *composer.Registry, error) {
	bundle, err := i18n.NewBundle(cfg.DefaultLocale)
	if err != nil {
		return nil, nil, err
	}
	jwt := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	commentService := comment.NewService(comment.NewRepository(db), commentCache, logger, cfg.CommentCacheTTL)
	resourceService := resource.NewService(resource.NewRepository(db), cfg.StorageDir, logger)
	persister := attachment.NewPersister(resourceService,
		attachment.Bounds{Width: cfg.ImageMaxWidth, Height: cfg.ImageMaxHeight}, logger)

	hub := composer.NewHub(cfg.AllowedOrigins, logger)
	registry := composer.NewRegistry(composer.Deps{
		Comments:     commentService,
		Attachments:  persister,
		Messages:     bundle,
		Emitter:      hub,
		Logger:       logger,
		PollInterval: cfg.PollInterval,
		UploadPoll:   cfg.UploadPollInterval,
	}, commentService, cfg.ComposerIdleTTL)
	receiver := composer.NewReceiver(cfg.TempDir, cfg.MaxUploadSize, logger)

	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.Locale(bundle))

	r.GET("/health", healthHandler(db, commentCache))

	v1 := r.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(middleware.JWTAuth(jwt))
	{
		uploadLimiter := middleware.NewRateLimiter(cfg.UploadRatePerMinute)
		composer.RegisterRoutes(protected, composer.NewHandler(registry, receiver, hub, logger), uploadLimiter.Middleware())
		comment.RegisterRoutes(protected, comment.NewHandler(commentService))
		resource.RegisterRoutes(protected, resource.NewHandler(resourceService))
	}
	return r, registry, nil
}

func sweepTempFiles(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.SweepInterval <= 0 {
		return nil
	}
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			n, err := composer.CleanupTempDir(cfg.TempDir, cfg.TempFileTTL, now)
			if err != nil {
				logger.Warn("temp sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("stale upload temp files removed", zap.Int("count", n))
			}
		}
	}
}

func healthHandler(db *gorm.DB, c *cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		status := gin.H{"status": "ok", "database": "ok", "cache": "disabled"}
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx.Request.Context()) != nil {
			status["status"] = "degraded"
			status["database"] = "unreachable"
		}
		if c.Enabled() {
			status["cache"] = "ok"
			if err := c.Ping(ctx.Request.Context()); err != nil {
				status["cache"] = "unreachable"
			}
		}
		response.OK(ctx, status)
	}
}
