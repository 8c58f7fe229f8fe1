package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-shop-payments/internal/archive"
	"github.com/ariefcatur/go-shop-payments/internal/cart"
	"github.com/ariefcatur/go-shop-payments/internal/catalog"
	"github.com/ariefcatur/go-shop-payments/internal/config"
	"github.com/ariefcatur/go-shop-payments/internal/httpx"
	kafkax "github.com/ariefcatur/go-shop-payments/internal/kafka"
	"github.com/ariefcatur/go-shop-payments/internal/logx"
	"github.com/ariefcatur/go-shop-payments/internal/orders"
	"github.com/ariefcatur/go-shop-payments/internal/payments"
	"github.com/ariefcatur/go-shop-payments/internal/postgres"
	"github.com/ariefcatur/go-shop-payments/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logx.New(cfg.Env, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer; topic is chosen per message
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start(ctx)

	// Mongo webhook archive is optional
	var arc httpx.Archiver
	mc, mdb, err := archive.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Warn("webhook archive disabled", zap.Error(err))
	} else {
		defer func() { _ = mc.Disconnect(context.Background()) }()
		arc = archive.New(mdb)
	}

	gateway, err := newGateway(cfg.Payment)
	if err != nil {
		log.Fatal("payment gateway", zap.Error(err))
	}

	tx := &postgres.TxRunner{DB: db}
	productRepo := &catalog.Repo{DB: db}
	paymentRepo := &payments.Repo{DB: db}

	catalogSvc := catalog.NewService(productRepo, log)
	cartSvc := cart.NewService(&cart.Repo{DB: db}, productRepo, log)
	ordersSvc := orders.NewService(orders.Deps{
		Tx:          tx,
		Store:       &orders.Repo{DB: db},
		Cart:        cartSvc,
		Stock:       catalogSvc,
		Payments:    paymentRepo,
		Cache:       &redisx.StatusCache{RDB: rdb},
		Events:      prod,
		ServiceName: cfg.ServiceName,
		Log:         log,
	})
	paymentsSvc := payments.NewService(payments.Deps{
		Tx:          tx,
		Store:       paymentRepo,
		Orders:      ordersSvc,
		Gateway:     gateway,
		Signer:      payments.NewSigner(cfg.Payment.KeySecret),
		Events:      prod,
		KeyID:       cfg.Payment.KeyID,
		Currency:    cfg.Payment.Currency,
		ServiceName: cfg.ServiceName,
		Log:         log,
	})

	router := httpx.NewRouter(log)
	httpx.NewHandler(httpx.Deps{
		Catalog:        catalogSvc,
		Cart:           cartSvc,
		Orders:         ordersSvc,
		Payments:       paymentsSvc,
		Dedup:          &redisx.Deduper{RDB: rdb, Scope: "razorpay-webhook"},
		Archive:        arc,
		WebhookSigner:  payments.NewSigner(cfg.Payment.WebhookSecret),
		VerifyWebhooks: cfg.Payment.WebhookSecret != "",
		MockWebhooks:   cfg.Payment.Mode == config.ModeMock,
		KeyID:          cfg.Payment.KeyID,
		Log:            log,
	}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("payment_mode", cfg.Payment.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()
	prod.WaitClosed()
}

func newGateway(cfg config.PaymentConfig) (payments.Gateway, error) {
	switch cfg.Mode {
	case config.ModeMock:
		return payments.NewMockClient(cfg.MockBaseURL), nil
	case config.ModeRazorpay:
		if cfg.KeyID == "" || cfg.KeySecret == "" {
			return nil, errors.New("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required in razorpay mode")
		}
		return payments.NewRazorpayClient(cfg.BaseURL, cfg.KeyID, cfg.KeySecret), nil
	default:
		return nil, errors.New("unknown PAYMENT_MODE " + cfg.Mode)
	}
}
