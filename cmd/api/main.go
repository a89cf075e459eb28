package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/safar/storefront/internal/admin"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/cache"
	"github.com/safar/storefront/internal/catalog"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/events"
	"github.com/safar/storefront/internal/httpapi"
	"github.com/safar/storefront/internal/logger"
	"github.com/safar/storefront/internal/order"
	"github.com/safar/storefront/internal/pricing"
	"go.uber.org/zap"
)

type publisher interface {
	order.EventPublisher
	admin.EventPublisher
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.App.Environment, cfg.App.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	log := logger.Get()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatal("Connect to database", zap.Error(err))
	}
	defer db.Close()

	log.Info("Connected to database successfully")

	carts, err := cache.NewRedisAdapter(cfg.Redis.URL)
	if err != nil {
		log.Fatal("Configure redis", zap.Error(err))
	}
	defer carts.Close()

	var pub publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		pub = events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		log.Info("Publishing order events",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}
	defer func() {
		if err := pub.Close(); err != nil {
			log.Warn("Close event publisher", zap.Error(err))
		}
	}()

	policy := pricing.Policy{
		FreeShippingThreshold: cfg.Pricing.FreeShippingThreshold,
		ShippingFee:           cfg.Pricing.ShippingFee,
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Orders:  order.NewService(db, policy, pub),
		Catalog: catalog.NewService(db),
		Admin:   admin.NewService(db, pub),
		Carts:   carts,
		Auth:    auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Checks: map[string]httpapi.HealthCheck{
			"postgres": db.PingContext,
			"redis":    carts.Ping,
		},
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("port", cfg.Server.Port))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", zap.Error(err))
		}
	case sig := <-shutdown:
		log.Info("Shutting down", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error("Graceful shutdown failed", zap.Error(err))
			server.Close()
		}
	}

	log.Info("Server stopped")
}
