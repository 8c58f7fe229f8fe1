package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-shop-payments/internal/config"
	"github.com/ariefcatur/go-shop-payments/internal/logx"
	"github.com/ariefcatur/go-shop-payments/internal/mockgateway"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logx.New(cfg.Env, "mock-payment-gateway")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	sim := mockgateway.NewSimulator(cfg.Mock, log)
	srv := &http.Server{
		Addr:              cfg.Mock.HTTPAddr,
		Handler:           mockgateway.NewHandler(sim, log).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("mock gateway listening",
			zap.String("addr", cfg.Mock.HTTPAddr),
			zap.String("webhook_url", cfg.Mock.WebhookURL),
			zap.Duration("delay", cfg.Mock.Delay),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Mock.Delay+5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	if err := sim.Shutdown(ctx); err != nil {
		log.Warn("pending callbacks dropped", zap.Error(err))
	}
}
