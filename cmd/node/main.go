package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeffreyhu16/nexchange/params"
	"github.com/jeffreyhu16/nexchange/pkg/api"
	"github.com/jeffreyhu16/nexchange/pkg/exchange"
	"github.com/jeffreyhu16/nexchange/pkg/storage"
	"github.com/jeffreyhu16/nexchange/pkg/token"
	"github.com/jeffreyhu16/nexchange/pkg/util"
)

// custodySeed derives the address the exchange pools deposits under.
// Token holders approve this address before depositing.
const custodySeed = "nexchange:custody"

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile)

	// ---- Tokens: the external asset collaborators ----
	registry := token.NewRegistry()
	supply := token.Ether(1_000_000)
	registry.Register(token.New("Nexus Pool", "NXP", supply, params.DeployerAddress, logger))
	registry.Register(token.New("Mock Ether", "mETH", supply, params.DeployerAddress, logger))
	registry.Register(token.New("Mock Dai", "mDAI", supply, params.DeployerAddress, logger))

	custody := token.DeriveAddress(custodySeed)
	bridge := token.NewBridge(registry, custody)
	sugar.Infow("custody_account", "address", custody.Hex())

	// ---- Exchange core ----
	store, err := storage.Open(cfg.Node.DataDir)
	if err != nil {
		sugar.Fatalw("storage_open_failed", "dir", cfg.Node.DataDir, "err", err)
	}
	defer store.Close()

	feeRate, err := exchange.FeeRateFromPercent(cfg.Exchange.FeeRatePercent)
	if err != nil {
		sugar.Fatalw("bad_fee_rate", "percent", cfg.Exchange.FeeRatePercent, "err", err)
	}

	x, err := exchange.New(cfg.Exchange.FeeAccount, feeRate, bridge, store, util.RealClock{}, logger)
	if err != nil {
		sugar.Fatalw("exchange_init_failed", "err", err)
	}

	// ---- API ----
	server := api.NewServer(x, registry, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Node.ListenAddr)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	case <-ctx.Done():
		sugar.Info("shutting down")
		// Let in-flight operations drain before the store closes.
		time.Sleep(200 * time.Millisecond)
	}
}
