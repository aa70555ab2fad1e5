package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nexora/nexora-bfa-go/internal/config"
	"github.com/nexora/nexora-bfa-go/internal/handler"
	"github.com/nexora/nexora-bfa-go/internal/infra/blockchain"
	"github.com/nexora/nexora-bfa-go/internal/infra/client"
	"github.com/nexora/nexora-bfa-go/internal/infra/observability"
	"github.com/nexora/nexora-bfa-go/internal/infra/resilience"
	"github.com/nexora/nexora-bfa-go/internal/infra/store"
	"github.com/nexora/nexora-bfa-go/internal/port"
	"github.com/nexora/nexora-bfa-go/internal/progress"
	"github.com/nexora/nexora-bfa-go/internal/service"
	"github.com/nexora/nexora-bfa-go/internal/session"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("nexora_api_url", cfg.NexoraAPIURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.String("session_store", cfg.SessionStore),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Bool("loans_enabled", cfg.EthRPCURL != ""),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "nexora-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Session store ---
	startCtx, startCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer startCancel()

	kv, storeCheck, closeStore, err := openStore(startCtx, cfg)
	if err != nil {
		logger.Fatal("failed to open session store", zap.String("store", cfg.SessionStore), zap.Error(err))
	}
	defer closeStore()

	// --- Nexora backend client ---
	cb := resilience.NewCircuitBreaker("nexora-api",
		resilience.WithSuccessClassifier(client.IsBreakerSuccess),
		resilience.WithStateLogger(logger),
	)
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	nexora := client.NewNexoraClient(httpClient, cfg.NexoraAPIURL, cb, metrics, logger,
		client.WithRefreshPath(cfg.RefreshPath),
		client.WithMaxUploadBytes(cfg.MaxUploadBytes),
	)

	// --- Loan contract (optional) ---
	var (
		contract  port.LoanContract
		loanCheck handler.HealthCheck
	)
	loanCheck.Name = "loan_contract"
	if cfg.EthRPCURL != "" {
		eth, err := ethclient.DialContext(startCtx, cfg.EthRPCURL)
		if err != nil {
			logger.Fatal("failed to dial ethereum rpc", zap.Error(err))
		}
		defer eth.Close()

		gw, err := blockchain.NewGateway(eth, cfg.LoanContractAddress, cfg.LoanSignerKey, resilience.Config{
			MaxRetries:     cfg.ReceiptPollRetries,
			InitialBackoff: cfg.ReceiptPollBackoff,
		}, logger)
		if err != nil {
			logger.Fatal("failed to bind loan contract", zap.Error(err))
		}
		contract = gw
		loanCheck.Check = func(ctx context.Context) error {
			_, err := gw.LoanCount(ctx)
			return err
		}
		logger.Info("loan contract bound",
			zap.String("address", gw.Address()),
			zap.Bool("signing", gw.CanSign()),
		)
	} else {
		logger.Warn("loan service: ETH_RPC_URL not configured, loan routes unavailable")
	}

	// --- Services ---
	sessions := session.NewManager(kv, nexora, cfg.SessionTTL, metrics, logger)
	defer sessions.Close()

	tracker := progress.NewTracker(cfg.SessionTTL)
	defer tracker.Close()

	reconciler := service.NewScoreReconciler(
		nexora,
		nexora,
		nexora,
		tracker,
		resilience.NewBulkhead(cfg.MaxConcurrency),
		metrics,
		logger,
	)

	svc := handler.Services{
		Sessions:       sessions,
		Auth:           service.NewAuthService(nexora, logger),
		Reconciler:     reconciler,
		Invoices:       service.NewInvoiceService(nexora, reconciler, logger),
		Business:       service.NewBusinessService(nexora, logger),
		Tracker:        tracker,
		MaxUploadBytes: cfg.MaxUploadBytes,
		AllowedOrigins: cfg.AllowedOrigins,
		Checks: []handler.HealthCheck{
			{Name: "session_store", Check: storeCheck},
			loanCheck,
		},
	}
	if contract != nil {
		svc.Loans = service.NewLoanService(contract, cfg.MaxConcurrency, logger)
	}

	// --- Router ---
	router := handler.NewRouter(svc, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.HTTPTimeout*3 + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// openStore opens the configured session store. The returned check probes
// it for /healthz.
func openStore(ctx context.Context, cfg *config.Config) (port.KVStore, func(context.Context) error, func(), error) {
	alive := func(context.Context) error { return nil }

	switch cfg.SessionStore {
	case config.StoreFile:
		fs, err := store.NewFileStore(cfg.SessionFile, cfg.SessionEncryptionKey)
		if err != nil {
			return nil, nil, nil, err
		}
		return fs, alive, func() {}, nil
	case config.StorePostgres:
		pool, err := store.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		pg := store.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, nil, err
		}
		return pg, pg.Ping, pg.Close, nil
	default:
		mem := store.NewMemoryStore(0)
		return mem, alive, mem.Close, nil
	}
}
