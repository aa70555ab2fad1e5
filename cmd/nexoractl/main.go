package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nexora/nexora-bfa-go/internal/cli"
	"github.com/nexora/nexora-bfa-go/internal/config"
	"github.com/nexora/nexora-bfa-go/internal/infra/blockchain"
	"github.com/nexora/nexora-bfa-go/internal/infra/client"
	"github.com/nexora/nexora-bfa-go/internal/infra/observability"
	"github.com/nexora/nexora-bfa-go/internal/infra/resilience"
	"github.com/nexora/nexora-bfa-go/internal/infra/store"
	"github.com/nexora/nexora-bfa-go/internal/progress"
	"github.com/nexora/nexora-bfa-go/internal/service"
	"github.com/nexora/nexora-bfa-go/internal/session"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], open, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// open wires the services against the session stored in SESSION_FILE.
func open(ctx context.Context) (*cli.Env, error) {
	cfg := config.Load()

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "error"
	}
	logger := observability.NewLogger(level)
	metrics := observability.NewMetrics()

	if cfg.SessionEncryptionKey == "" {
		return nil, errors.New("SESSION_ENCRYPTION_KEY is not set; create one with 'nexoractl keygen'")
	}
	fileStore, err := store.NewFileStore(cfg.SessionFile, cfg.SessionEncryptionKey)
	if err != nil {
		return nil, err
	}

	cb := resilience.NewCircuitBreaker("nexora-api", resilience.WithSuccessClassifier(client.IsBreakerSuccess))
	nexora := client.NewNexoraClient(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.NexoraAPIURL, cb, metrics, logger,
		client.WithRefreshPath(cfg.RefreshPath),
		client.WithMaxUploadBytes(cfg.MaxUploadBytes),
	)

	sess := session.New("cli", fileStore, nexora, metrics, logger)
	if err := sess.Restore(ctx); err != nil {
		return nil, err
	}

	tracker := progress.NewTracker(0)
	reconciler := service.NewScoreReconciler(nexora, nexora, nexora, tracker, resilience.NewBulkhead(1), metrics, logger)

	env := &cli.Env{
		Session:    sess,
		Auth:       service.NewAuthService(nexora, logger),
		Reconciler: reconciler,
		Invoices:   service.NewInvoiceService(nexora, reconciler, logger),
		Business:   service.NewBusinessService(nexora, logger),
	}
	closers := []func(){tracker.Close, func() { _ = logger.Sync() }}

	if cfg.EthRPCURL != "" {
		eth, err := ethclient.DialContext(ctx, cfg.EthRPCURL)
		if err != nil {
			return nil, fmt.Errorf("dial ethereum rpc: %w", err)
		}
		closers = append(closers, eth.Close)
		gw, err := blockchain.NewGateway(eth, cfg.LoanContractAddress, cfg.LoanSignerKey, resilience.Config{
			MaxRetries:     cfg.ReceiptPollRetries,
			InitialBackoff: cfg.ReceiptPollBackoff,
		}, logger)
		if err != nil {
			return nil, err
		}
		env.Loans = service.NewLoanService(gw, cfg.MaxConcurrency, logger)
		logger.Debug("loan contract bound", zap.String("address", gw.Address()), zap.Bool("signing", gw.CanSign()))
	}

	env.Close = func() {
		for _, c := range closers {
			c()
		}
	}
	return env, nil
}
