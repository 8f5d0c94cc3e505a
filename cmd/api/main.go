package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SergeiKhy/tinylink/internal/config"
	"github.com/SergeiKhy/tinylink/internal/handler"
	"github.com/SergeiKhy/tinylink/internal/repository"
	"github.com/SergeiKhy/tinylink/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Загрузка конфига
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	logger := newLogger(cfg.App)
	defer logger.Sync()

	if !cfg.App.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Подключение к хранилищу ссылок
	linkRepo, closeDB, err := repository.OpenLinkRepository(context.Background(), cfg.DB)
	if err != nil {
		logger.Fatal("Failed to open database", zap.String("driver", cfg.DB.Driver), zap.Error(err))
	}
	defer closeDB()
	logger.Info("Database ready", zap.String("driver", cfg.DB.Driver))

	// Получатели событий: Redis, если настроен
	var sinks []service.EventSink
	if cfg.Redis.Enabled() {
		redis, err := repository.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redis.Close()
		sinks = append(sinks, repository.NewEventRepository(redis, cfg.Events.Channel))
		logger.Info("Connected to Redis", zap.String("channel", cfg.Events.Channel))
	}

	dispatcher := service.NewEventDispatcher(sinks, logger)
	dispatcher.Start()
	defer dispatcher.Stop()

	linkService := service.NewLinkService(linkRepo, dispatcher, logger)
	resolver := service.NewResolver(linkService, logger)

	router := handler.NewRouter(linkService, resolver, cfg.App.BaseURL, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger(cfg config.AppConfig) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	return logger
}
