package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/RizzWan-Codes/homedoctor.ai/api"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/config"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/handler"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/logging"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/middleware"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/pricing"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/repository"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/service"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/service/billing"
)

const responsePurgeInterval = time.Hour

func main() {
	if err := run(); err != nil {
		slog.Error("api exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.Init("homedoctor-api", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := repository.Migrate(cfg.MigrationsPath, cfg.DatabaseURL); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	db, err := repository.NewPostgresDB(connectCtx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	cancel()
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	defer db.Close()

	accountRepo := repository.NewAccountRepository(db)
	eventRepo := repository.NewBalanceEventRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	responses := repository.NewResponseStore(db)

	prices, err := pricing.NewService(cfg.CoinUnit, cfg.MaxTopUpCoins, cfg.PricePerCoin, cfg.Currency)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	// The coordinator bounds each call itself; the client timeout only
	// catches a provider that ignores the context.
	llm := service.NewLLMClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.ProviderTimeout+5*time.Second)
	gateway := service.NewPaymentGateway(cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret)

	coordinator := billing.NewCoordinator(accountRepo, eventRepo, orderRepo, gateway, prices, billing.Options{
		DebitMaxAttempts:            cfg.DebitMaxAttempts,
		ProviderTimeout:             cfg.ProviderTimeout,
		CompensationTimeout:         cfg.CompensationTimeout,
		CompensationMaxAttempts:     cfg.CompensationMaxAttempts,
		CompensationInitialInterval: cfg.CompensationInterval,
		CompensationMaxInterval:     cfg.CompensationMaxInterval,
		KeySecret:                   cfg.RazorpayKeySecret,
	})

	consultations := service.NewConsultationService(coordinator, llm, cfg.ConsultationCost, cfg.ConsultationModel, cfg.ConsultationMaxTokens)
	insights := service.NewInsightsService(llm, cfg.InsightsModel, cfg.InsightsMaxTokens, cfg.TrendMaxTokens)
	accounts := service.NewAccountService(accountRepo, eventRepo)

	authHandler := handler.NewAuthHandler(accountRepo, cfg.JWTSecret, cfg.JWTExpiry)
	accountHandler := handler.NewAccountHandler(accounts)
	consultationHandler := handler.NewConsultationHandler(consultations)
	insightsHandler := handler.NewInsightsHandler(insights)
	topUpHandler := handler.NewTopUpHandler(coordinator, cfg.RazorpayKeyID)
	healthHandler := handler.NewHealthHandler(db)

	authed := middleware.Auth(cfg.JWTSecret)
	idempotent := middleware.Idempotency(responses, cfg.IdempotencyTTL)
	charged := func(h http.Handler) http.Handler { return authed(idempotent(h)) }

	mux := http.NewServeMux()
	mux.Handle("/api/v1/auth/login", handler.Only(authHandler.Login, http.MethodPost))
	mux.Handle("/api/v1/me", authed(handler.Only(accountHandler.Me, http.MethodGet)))
	mux.Handle("/api/v1/me/balance-events", authed(handler.Only(accountHandler.BalanceEvents, http.MethodGet)))
	mux.Handle("/api/v1/consultations", charged(handler.Only(consultationHandler.Create, http.MethodPost)))
	mux.Handle("/api/v1/insights", authed(handler.Only(insightsHandler.Insights, http.MethodPost)))
	mux.Handle("/api/v1/trends", authed(handler.Only(insightsHandler.Trends, http.MethodPost)))
	mux.Handle("/api/v1/topups", charged(handler.Only(topUpHandler.Create, http.MethodPost)))
	mux.Handle("/api/v1/topups/verify", charged(handler.Only(topUpHandler.Verify, http.MethodPost)))
	mux.Handle("/health", handler.Only(healthHandler.Liveness, http.MethodGet))
	mux.Handle("/health/ready", handler.Only(healthHandler.Readiness, http.MethodGet))
	mux.Handle("/docs", handler.Only(handler.ServeDocs(), http.MethodGet))
	mux.Handle("/docs/openapi.yaml", handler.Only(handler.ServeSpec(api.Spec), http.MethodGet))
	mux.HandleFunc("/", handler.NotFound)

	var root http.Handler = mux
	root = middleware.Recovery(root)
	root = middleware.Logging(logger)(root)
	root = middleware.Tracing(root)
	root = otelhttp.NewHandler(root, "homedoctor-api")

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.ProviderTimeout + cfg.CompensationTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if len(cfg.KafkaBrokers) > 0 {
		publisher := service.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		relay := service.NewEventRelay(db, eventRepo, publisher, logger.With("component", "event_relay"), cfg.EventRelayInterval)
		g.Go(func() error {
			relay.Start(gctx)
			return publisher.Close()
		})
	} else {
		slog.Info("event relay disabled: no kafka brokers configured")
	}

	g.Go(func() error {
		purgeResponses(gctx, responses)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}

func purgeResponses(ctx context.Context, store *repository.ResponseStore) {
	ticker := time.NewTicker(responsePurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Purge(ctx, time.Now())
			if err != nil {
				slog.Error("stored response purge failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("expired stored responses purged", "deleted", n)
			}
		}
	}
}
