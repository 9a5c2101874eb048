// Package main runs the background worker: queued notification delivery and session reminders.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-seminar/backend/config"
	"github.com/aura-seminar/backend/internal/enrollments"
	"github.com/aura-seminar/backend/internal/notifications"
	"github.com/aura-seminar/backend/internal/reminders"
	"github.com/aura-seminar/backend/internal/seminars"
	"github.com/aura-seminar/backend/internal/sessions"
	"github.com/aura-seminar/backend/internal/worker"
	"github.com/aura-seminar/backend/pkg/database"
	"github.com/aura-seminar/backend/pkg/queue"
	"github.com/aura-seminar/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{
		AppName:         "seminar-worker",
		MaxConns:        int32(cfg.Database.MaxConns),
		ConnectAttempts: cfg.Database.ConnectAttempts,
		RetryDelay:      2 * time.Second,
	}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	inbox := notifications.NewInboxSink(notifications.NewRepository(pool))
	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewNotificationProcessor(inbox, jobQueue, logger)

	// Reminders are produced here, so they go straight to the inbox.
	dispatcher := notifications.NewDispatcher(inbox, cfg.Notification.Timeout, logger)
	sweeper := reminders.NewSweeper(
		sessions.NewRepository(pool),
		seminars.NewRepository(pool),
		enrollments.NewRepository(pool),
		dispatcher,
		cfg.Reminder.Lead,
		logger,
	)
	scheduler := cron.New()
	if _, err := sweeper.Schedule(scheduler, cfg.Reminder.Cron, time.Minute); err != nil {
		logger.Fatal("schedule reminders", zap.String("spec", cfg.Reminder.Cron), zap.Error(err))
	}
	scheduler.Start()

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		processor.Run(workerCtx)
	}()
	logger.Info("worker started", zap.String("reminder_cron", cfg.Reminder.Cron), zap.Duration("reminder_lead", cfg.Reminder.Lead))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	<-scheduler.Stop().Done()
	<-done
	dispatcher.Close()
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
