package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"yamdb/internal/api"
	"yamdb/internal/config"
	"yamdb/internal/mailer"
	"yamdb/internal/model"
	"yamdb/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// 初始化配置
	cfg, err := config.ParseConfig()
	if err != nil {
		logrus.WithError(err).Error("Failed to parse config")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Error("invalid config")
		os.Exit(1)
	}

	// 初始化logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(level)

	repo, err := model.InitRepository(&cfg)
	if err != nil {
		logger.WithError(err).Error("failed to initialise repository")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := model.SeedSuperuser(ctx, repo, cfg); err != nil {
		logger.WithError(err).Warn("failed to seed superuser")
	}

	// 邮件投递
	sender, err := mailer.NewSender(mailer.SenderOptions{
		Backend:      cfg.MailBackend,
		SMTPHost:     cfg.SMTPHost,
		SMTPPort:     cfg.SMTPPort,
		SMTPUsername: cfg.SMTPUsername,
		SMTPPassword: cfg.SMTPPassword,
		Logger:       logger,
	})
	if err != nil {
		logger.WithError(err).Error("failed to initialise mail sender")
		os.Exit(1)
	}
	queue, err := newMailQueue(cfg)
	if err != nil {
		logger.WithError(err).Error("failed to initialise mail queue")
		os.Exit(1)
	}
	dispatcher := mailer.NewDispatcher(queue, sender, logger, mailer.DispatcherConfig{Workers: cfg.MailWorkers})
	dispatcher.Start(ctx)

	// 定时清理过期确认码
	jobs := scheduler.New(repo, cfg.ConfirmationPurgeSchedule)
	if err := jobs.Start(); err != nil {
		logger.WithError(err).Error("failed to start scheduler")
		os.Exit(1)
	}

	httpHandler, err := api.NewHTTPHandler(cfg, repo, dispatcher, logger)
	if err != nil {
		logger.WithError(err).Error("failed to initialise http handler")
		os.Exit(1)
	}

	// 设置Gin模式
	gin.SetMode(cfg.GinMode)
	r := gin.New()

	// 添加中间件
	r.Use(api.RequestIDMiddleware())
	r.Use(api.LoggingMiddleware(logger))
	r.Use(CORSMiddleware())
	r.Use(gin.Recovery())

	httpHandler.RegisterRoutes(r)

	serverHost := fmt.Sprintf("0.0.0.0:%s", cfg.HTTPPort)
	logger.WithField("host", serverHost).Info("服务器启动")
	// 创建HTTP服务器
	httpServer := &http.Server{
		Addr:         serverHost,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("服务器启动失败")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("服务器关闭中")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http server shutdown failed")
	}
	jobs.Stop()
	dispatcher.Stop()
	if err := queue.Close(); err != nil {
		logger.WithError(err).Warn("failed to close mail queue")
	}
}

func newMailQueue(cfg config.Config) (mailer.Queue, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.MailQueue)) {
	case "", "memory":
		return mailer.NewMemoryQueue(256), nil
	case "redis":
		return mailer.NewRedisQueue(mailer.RedisQueueOptions{
			URL: cfg.RedisURL,
			Key: cfg.RedisQueueKey,
		})
	default:
		return nil, fmt.Errorf("unsupported mail queue %q", cfg.MailQueue)
	}
}

// CORSMiddleware CORS跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
