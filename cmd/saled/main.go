package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salechain/config"
	"salechain/core/events"
	"salechain/gateway"
	"salechain/native/referral"
	"salechain/native/sale"
	"salechain/observability/logging"
	"salechain/storage"
)

// logEmitter forwards engine events to the structured log so operators can
// follow deposits and settlements without an indexer.
type logEmitter struct {
	log *slog.Logger
}

func (e logEmitter) Emit(evt events.Event) {
	if evt == nil {
		return
	}
	e.log.Info("event", "type", evt.EventType(), "payload", evt)
}

func main() {
	configPath := flag.String("config", "./saled.toml", "path to the TOML configuration file")
	flag.Parse()

	log := logging.Setup("saled", os.Getenv("SALED_ENV"))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		log.Error("failed to open database", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	admins, err := cfg.AdminAddresses()
	if err != nil {
		log.Error("invalid admin allow-list", "error", err)
		os.Exit(1)
	}
	treasury, err := cfg.TreasuryAddress()
	if err != nil {
		log.Error("invalid treasury address", "error", err)
		os.Exit(1)
	}
	priceFeed, err := cfg.PriceFeedAddress()
	if err != nil {
		log.Error("invalid price feed address", "error", err)
		os.Exit(1)
	}
	stables, err := cfg.StableAssetList()
	if err != nil {
		log.Error("invalid stable asset list", "error", err)
		os.Exit(1)
	}

	ledger := sale.NewLedger(db)
	emitter := logEmitter{log: log}

	oracle := sale.NewStalenessGuard(
		sale.NewFixedOracle(cfg.OracleFixedPrice, cfg.OracleFixedExpo),
		time.Duration(cfg.OracleMaxAgeSecs)*time.Second,
	)

	saleEngine := sale.NewEngine()
	saleEngine.SetState(ledger)
	saleEngine.SetEmitter(emitter)
	saleEngine.SetOracle(oracle)
	saleEngine.SetAdmins(admins)
	saleEngine.SetTreasury(treasury)
	saleEngine.SetPriceFeed(priceFeed)

	referralEngine := referral.NewEngine()
	referralEngine.SetState(ledger)
	referralEngine.SetEmitter(emitter)
	referralEngine.SetAdmins(admins)

	server := gateway.New(saleEngine, referralEngine, stables, log)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("saled listening", "addr", cfg.ListenAddress)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
	log.Info("saled stopped")
}
