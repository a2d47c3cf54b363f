package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	configs "github.com/Payphone-Digital/accounts/config"
	"github.com/Payphone-Digital/accounts/internal/handler"
	"github.com/Payphone-Digital/accounts/internal/middleware"
	"github.com/Payphone-Digital/accounts/internal/repository"
	"github.com/Payphone-Digital/accounts/internal/router"
	"github.com/Payphone-Digital/accounts/internal/service"
	"github.com/Payphone-Digital/accounts/pkg/circuit"
	"github.com/Payphone-Digital/accounts/pkg/database"
	"github.com/Payphone-Digital/accounts/pkg/logger"
	"github.com/Payphone-Digital/accounts/pkg/metrics"
	"github.com/Payphone-Digital/accounts/pkg/redis"
	"github.com/Payphone-Digital/accounts/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	config, err := configs.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	// Initialize Zap logger
	if err := logger.InitLogger(config); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.GetLogger().Info("Application starting",
		zap.String("app_name", config.App.Name),
		zap.String("environment", config.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		logger.GetLogger().Fatal("Failed to register metrics", zap.Error(err))
	}

	db, err := database.NewPostgresDB(ctx, config)
	if err != nil {
		logger.GetLogger().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	userRepo := repository.NewUserRepository(db, config.Database.QueryTimeout)

	// Profile cache is optional; without redis every read goes to the database.
	var redisClient *redis.Client
	if config.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, config.Redis)
		if err != nil {
			logger.GetLogger().Warn("Redis unavailable, profile cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
		}
	}

	s3Client, err := storage.NewS3Client(ctx, config.Storage)
	if err != nil {
		logger.GetLogger().Fatal("Failed to create object storage client", zap.Error(err))
	}
	uploadBreaker := circuit.NewBreaker("media-upload", circuit.Config{
		FailureThreshold: config.Upload.BreakerFailures,
		Cooldown:         config.Upload.BreakerCooldown,
		ProbeSuccesses:   1,
		MaxProbes:        1,
		CallTimeout:      config.Upload.Timeout,
	}, logger.GetLogger(), circuit.WithStateListener(func(name string, _, to circuit.State) {
		m.BreakerState(name, int(to))
	}))
	uploader := storage.NewS3Uploader(s3Client, config.Storage, uploadBreaker, m.ObserveUpload)

	jwtService := service.NewJWTService(config.JWT)
	deps := service.UserServiceDeps{
		Store:                  userRepo,
		Tokens:                 jwtService,
		Hasher:                 service.NewBcryptHasher(bcrypt.DefaultCost),
		Media:                  uploader,
		Metrics:                m,
		RevokeOnPasswordChange: config.Session.RevokeOnPasswordChange,
	}
	var redisPinger handler.Pinger
	if redisClient != nil {
		deps.Cache = service.NewCacheService(redisClient, config.Redis.ProfileTTL, m)
		redisPinger = redisClient
	}
	userService := service.NewUserService(deps)

	engine := router.NewRouter(
		handler.NewUserHandler(userService, config),
		handler.NewAuthHandler(userService, config),
		handler.NewHealthHandler(handler.PingFunc(func(ctx context.Context) error {
			return database.Ping(ctx, db)
		}), redisPinger),

		middleware.NewJWTMiddleware(jwtService),
		m,
		config,
	).SetupRoutes()

	go purgeExpiredSessions(ctx, userService, config.Session.CleanupInterval)

	server := &http.Server{
		Addr:              ":" + config.App.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.GetLogger().Info("Server starting",
			zap.String("port", config.App.Port),
			zap.String("host", "0.0.0.0"),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.GetLogger().Fatal("Failed to start server",
				zap.Error(err),
				zap.String("port", config.App.Port),
			)
		}
	}()

	<-ctx.Done()
	logger.GetLogger().Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.GetLogger().Error("Server forced to shutdown", zap.Error(err))
	}
	logger.GetLogger().Info("Server exited")
}

// purgeExpiredSessions clears expired refresh tokens every interval until ctx ends.
func purgeExpiredSessions(ctx context.Context, users *service.UserService, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := users.PurgeExpiredRefreshTokens(ctx)
			if err != nil {
				logger.GetLogger().Error("Failed to purge expired refresh tokens", zap.Error(err))
				continue
			}
			logger.GetLogger().Info("Expired refresh tokens purged", zap.Int64("count", n))
		}
	}
}
