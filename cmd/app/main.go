// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kids-content-billing/internal/config"
	"kids-content-billing/internal/domain/model"
	"kids-content-billing/internal/infra/api"
	pg "kids-content-billing/internal/infra/db/postgres"
	"kids-content-billing/internal/infra/logging"
	"kids-content-billing/internal/infra/metrics"
	"kids-content-billing/internal/infra/payment"
	red "kids-content-billing/internal/infra/redis"
	"kids-content-billing/internal/infra/sched"
	"kids-content-billing/internal/infra/security"
	"kids-content-billing/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, verbose)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, int32(cfg.Database.MaxConns))
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	orderRepo := pg.NewOrderRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	userRepo := pg.NewUserRepoCacheDecorator(pg.NewUserRepo(pool), redisClient)
	eventRepo := pg.NewProcessedEventRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Payment gateway client ----
	tokens, err := security.NewM2MTokenService(cfg.M2M.Secret, cfg.M2M.TTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("m2m tokens")
	}
	gateway, err := payment.NewClient(
		cfg.Payment.BaseURL,
		cfg.Payment.AppID,
		cfg.M2M.ServiceName,
		cfg.M2M.PaymentAudience,
		tokens,
		cfg.Payment.Timeout,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("payment client")
	}

	// ---- Plan catalog ----
	catalog, err := model.NewPlanCatalog(
		model.RemotePlanIDs{Monthly: cfg.Plans.MonthlyRemoteID, Yearly: cfg.Plans.YearlyRemoteID},
		cfg.Plans.MonthlyPrice,
		cfg.Plans.YearlyPrice,
		cfg.Plans.Currency,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("plan catalog")
	}

	// ---- Use cases ----
	orderUC := usecase.NewOrderUseCase(orderRepo, gateway, txManager, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, userRepo, catalog, gateway, txManager, logger)
	planUC := usecase.NewPlanUseCase(catalog, gateway, logger)
	callbackUC := usecase.NewCallbackUseCase(orderRepo, subRepo, userRepo, eventRepo, locker, cfg.Redis.LockTTL, txManager, logger)

	// ---- HTTP server ----
	srv := api.NewServer(
		orderUC, subUC, planUC, callbackUC,
		tokens,
		cfg.M2M.PaymentAudience, // issuer expected on inbound callback tokens
		cfg.M2M.ServiceName,
		cfg.Payment.WebhookSecret,
		cfg.Server.RequestTimeout,
		logger,
	)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server")
		}
	}()

	// ---- Marker retention (6h sweep, 30d retention) ----
	purgeWorker := sched.NewMarkerPurgeWorker(0, 0, eventRepo, logger)
	go func() { _ = purgeWorker.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
