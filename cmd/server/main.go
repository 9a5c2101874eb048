// Package main runs the seminar platform HTTP server with the live check-in board and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-seminar/backend/config"
	"github.com/aura-seminar/backend/internal/access"
	"github.com/aura-seminar/backend/internal/attendance"
	"github.com/aura-seminar/backend/internal/auth"
	"github.com/aura-seminar/backend/internal/credentials"
	"github.com/aura-seminar/backend/internal/enrollments"
	"github.com/aura-seminar/backend/internal/middleware"
	"github.com/aura-seminar/backend/internal/models"
	"github.com/aura-seminar/backend/internal/notifications"
	"github.com/aura-seminar/backend/internal/realtime"
	"github.com/aura-seminar/backend/internal/seminars"
	"github.com/aura-seminar/backend/internal/sessions"
	"github.com/aura-seminar/backend/internal/users"
	"github.com/aura-seminar/backend/pkg/database"
	"github.com/aura-seminar/backend/pkg/queue"
	"github.com/aura-seminar/backend/pkg/redis"
	"github.com/aura-seminar/backend/pkg/response"
	"github.com/aura-seminar/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	loc, err := time.LoadLocation(cfg.Server.TimeZone)
	if err != nil {
		logger.Fatal("load time zone", zap.String("zone", cfg.Server.TimeZone), zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{
		AppName:         "seminar-api",
		MaxConns:        int32(cfg.Database.MaxConns),
		ConnectAttempts: cfg.Database.ConnectAttempts,
		RetryDelay:      2 * time.Second,
	}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Exports are unavailable without S3; everything else still works.
	var exporter attendance.ExportUploader
	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ExportsBucket:        cfg.AWS.ExportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			exporter = s3Client
		}
	}

		redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Repositories
	userRepo := auth.NewRepository(pool)
	seminarRepo := seminars.NewRepository(pool)
	sessionRepo := sessions.NewRepository(pool)
	enrollmentRepo := enrollments.NewRepository(pool)
	attendanceRepo := attendance.NewRepository(pool)
	notificationRepo := notifications.NewRepository(pool)
	checker := access.NewChecker(seminarRepo)

	tokens := auth.NewTokenService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpireHours)*time.Hour)
	authn := auth.NewAuthenticator(tokens, userRepo)

	// Notifications go through the worker queue, or straight to the inbox when no worker runs.
	var sink notifications.Sink = notifications.NewInboxSink(notificationRepo)
	if cfg.Notification.Queue {
		sink = notifications.NewQueueSink(queue.NewQueue(rdb.Client, logger))
	}
	dispatcher := notifications.NewDispatcher(sink, cfg.Notification.Timeout, logger)

	authHandler := auth.NewHandler(userRepo, tokens, logger)
	userHandler := users.NewHandler(users.NewService(userRepo, dispatcher, logger))
	seminarHandler := seminars.NewHandler(seminarRepo, checker, logger)
	aggregator := seminars.NewAggregator(sessionRepo, seminarRepo, loc, logger)
	sessionHandler := sessions.NewHandler(sessions.NewService(sessionRepo, checker, aggregator, logger))
	enrollmentHandler := enrollments.NewHandler(enrollments.NewService(enrollmentRepo, seminarRepo, dispatcher, logger))
	credentialHandler := credentials.NewHandler(credentials.NewService(sessionRepo, seminarRepo, enrollmentRepo, attendanceRepo, credentials.Options{
		TTL:           cfg.Credential.TTL,
		PublicBaseURL: cfg.Server.PublicBaseURL,
		Publisher:     hub,
		Logger:        logger,
	}))
	attendanceHandler := attendance.NewHandler(attendance.NewService(attendanceRepo, sessionRepo, seminarRepo, enrollmentRepo, userRepo, exporter, logger))
	notificationHandler := notifications.NewHandler(notificationRepo, enrollmentRepo, dispatcher, checker, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	managers := middleware.RequireRole(models.RoleOrganizer, models.RoleAdmin)
	verifyLimit := middleware.RateLimit(rdb, cfg.RateLimit.VerifyLimit, cfg.RateLimit.VerifyWindow)

	api := router.Group("")
	api.Use(middleware.JWT(authn))
	{
		// Users (admin only)
		api.GET("/users", middleware.RequireRole(models.RoleAdmin), userHandler.List)
		api.PATCH("/users/:id/role", middleware.RequireRole(models.RoleAdmin), userHandler.ChangeRole)

		// Seminars
		api.GET("/seminars", seminarHandler.List)
		api.POST("/seminars", managers, seminarHandler.Create)
		api.GET("/seminars/:id", seminarHandler.GetByID)
		api.PATCH("/seminars/:id", managers, seminarHandler.Update)
		api.DELETE("/seminars/:id", managers, seminarHandler.Delete)

		// Sessions
		api.GET("/seminars/:id/sessions", sessionHandler.List)
		api.POST("/seminars/:id/sessions", managers, sessionHandler.Create)
		api.GET("/sessions/:id", sessionHandler.Get)
		api.PATCH("/sessions/:id", managers, sessionHandler.Update)
		api.DELETE("/sessions/:id", managers, sessionHandler.Delete)

		// Enrollments
		api.POST("/seminars/:id/enrollments", enrollmentHandler.Request)
		api.GET("/seminars/:id/enrollments", managers, enrollmentHandler.List)
		api.GET("/seminars/:id/enrollments/stats", enrollmentHandler.Stats)
		api.POST("/enrollments/decide", managers, enrollmentHandler.Decide)
		api.POST("/enrollments/:id/cancel", enrollmentHandler.Cancel)

		// Credentials; ":verify" arrives here as "/verify" via CustomMethods
		api.POST("/sessions/:id/credential", managers, credentialHandler.Issue)
		api.PUT("/sessions/:id/credential/verify", verifyLimit, credentialHandler.VerifySession)
		api.PUT("/seminars/:id/credential/verify", verifyLimit, credentialHandler.VerifySeminar)

		// Attendance
		api.POST("/sessions/:id/attendance", managers, attendanceHandler.Set)
		api.GET("/sessions/:id/attendance", managers, attendanceHandler.List)
		api.POST("/seminars/:id/attendance/export", managers, attendanceHandler.Export)

		// Notifications
		api.POST("/seminars/:id/announcements", managers, notificationHandler.Announce)
		api.GET("/notifications", notificationHandler.List)
		api.PATCH("/notifications/:id/read", notificationHandler.MarkRead)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws/sessions/:id", realtime.ServeWs(hub, realtime.NewGuard(sessionRepo, seminarRepo), authn.Authenticate, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      middleware.CustomMethods(router, "verify"),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.Bool("notification_queue", cfg.Notification.Queue))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	dispatcher.Close()
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
