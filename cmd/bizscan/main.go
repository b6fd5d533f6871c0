// Package main запускает HTTP-сервер сервиса bizscan.
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

	"github.com/mmeshcher/bizscan-system/internal/analyzer"
	"github.com/mmeshcher/bizscan-system/internal/config"
	"github.com/mmeshcher/bizscan-system/internal/handler"
	"github.com/mmeshcher/bizscan-system/internal/middleware"
	"github.com/mmeshcher/bizscan-system/internal/payment"
	"github.com/mmeshcher/bizscan-system/internal/repository"
	"github.com/mmeshcher/bizscan-system/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	couponCode := service.NormalizeCode(cfg.CouponCode)

	var ledger service.Ledger
	if cfg.DatabaseURI != "" {
		pgLedger, err := repository.NewPostgresLedger(cfg.DatabaseURI, couponCode, cfg.CouponMaxUses)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		ledger = pgLedger
	} else {
		sugar.Infow("database URI is empty, coupon counter is in-memory")
		ledger = repository.NewMemoryLedger(cfg.CouponMaxUses)
	}

	var paymentClient *payment.Client
	if cfg.PaymentAddress != "" {
		paymentClient = payment.NewClient(cfg.PaymentAddress, cfg.PaymentKeyID, cfg.PaymentKeySecret)
	}

	var analyzerClient *analyzer.Client
	if cfg.AnalyzerAddress != "" {
		analyzerClient = analyzer.NewClient(cfg.AnalyzerAddress)
	}

	svc := service.NewService(ledger, paymentClient, analyzerClient, couponCode, cfg.PaymentKeySecret)
	defer svc.Close()

	grants := middleware.NewGrantMiddleware("bizscan-secret")
	h := handler.NewHandler(svc, logger, grants)

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
		sugar.Infow("starting bizscan server", "addr", cfg.RunAddress)
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
