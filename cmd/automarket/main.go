// Package main запускает HTTP-сервер сервиса автомаркет.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/automarket-system/internal/cache"
	"github.com/mmeshcher/automarket-system/internal/config"
	"github.com/mmeshcher/automarket-system/internal/events"
	"github.com/mmeshcher/automarket-system/internal/handler"
	"github.com/mmeshcher/automarket-system/internal/middleware"
	"github.com/mmeshcher/automarket-system/internal/repository"
	"github.com/mmeshcher/automarket-system/internal/service"
	"github.com/mmeshcher/automarket-system/internal/userdir"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	var userdirClient *userdir.Client
	if cfg.UserDirectoryAddress != "" {
		userdirClient = userdir.NewClient(cfg.UserDirectoryAddress)
	}

	var publisher *events.Publisher
	if cfg.AMQPAddress != "" {
		publisher, err = events.NewPublisher(cfg.AMQPAddress)
		if err != nil {
			sugar.Warnw("event publisher disabled", "error", err.Error())
			publisher = nil
		}
	}

	var listings *cache.Listings
	if cfg.RedisAddress != "" {
		listings, err = cache.NewListings(cfg.RedisAddress)
		if err != nil {
			sugar.Warnw("listing cache disabled", "error", err.Error())
			listings = nil
		}
	}

	svc := service.NewService(repo, userdirClient, publisher, listings, logger)
	defer svc.Close()

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret)
	h := handler.NewHandler(svc, logger, authMiddleware)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting automarket server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
