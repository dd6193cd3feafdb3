package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"synthmint/config"
	"synthmint/gateway/middleware"
	"synthmint/gateway/routes"
	"synthmint/native/bank"
	"synthmint/native/mint"
	"synthmint/native/oracle"
	"synthmint/native/reward"
	"synthmint/observability/logging"
	"synthmint/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.toml", "path to mintd config")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup("mintd", cfg.Environment, logging.ParseLevel(cfg.LogLevel))

	if err := run(cfg, cfgPath, logger); err != nil {
		logger.Error("mintd exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, cfgPath string, logger *slog.Logger) error {
	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()

	moduleAddr, _ := config.ParseAddress(cfg.Mint.ModuleAddress)
	feeCollector, _ := config.ParseAddress(cfg.Mint.FeeCollector)
	rewardOwner, _ := config.ParseAddress(cfg.Reward.Owner)
	rewardToken, _ := config.ParseAddress(cfg.Reward.RewardToken)
	rewardAddr, _ := config.ParseAddress(cfg.Reward.Address)

	priceOracle := oracle.NewOracle()
	registry := oracle.NewRegistry()
	vault := bank.NewLedger()
	engine := mint.NewEngine(mint.Params{
		MinCollateralRatioBps:     cfg.Mint.MinCollateralRatioBps,
		RewardEligibilityRatioBps: cfg.Mint.RewardEligibilityRatioBps,
		MintFeeBps:                cfg.Mint.MintFeeBps,
	}, priceOracle, registry, vault, moduleAddr, feeCollector)
	distributor := reward.NewDistributor(reward.Config{
		Owner:           rewardOwner,
		RewardToken:     rewardToken,
		Address:         rewardAddr,
		EpochDuration:   time.Duration(cfg.Reward.EpochSeconds) * time.Second,
		MinPushInterval: time.Duration(cfg.Reward.PushIntervalSeconds) * time.Second,
	}, engine.RewardView(), vault, engine.StateLock(), nil)
	engine.SetWeightObserver(distributor)

	genesisPath := cfg.GenesisPath
	if genesisPath != "" && !filepath.IsAbs(genesisPath) {
		genesisPath = filepath.Join(filepath.Dir(cfgPath), genesisPath)
	}
	if err := seedState(db, genesisPath, registry, priceOracle, vault, rewardAddr, rewardToken, logger); err != nil {
		return err
	}

	mintStore := mint.NewStore(db)
	rewardStore := reward.NewStore(db)
	bankStore := bank.NewStore(db)
	if err := mintStore.Load(engine); err != nil {
		return fmt.Errorf("restore ledgers: %w", err)
	}
	if err := rewardStore.Load(distributor); err != nil {
		return fmt.Errorf("restore reward state: %w", err)
	}
	if err := bankStore.Load(vault); err != nil {
		return fmt.Errorf("restore bank state: %w", err)
	}

	persist := func() error {
		if err := mintStore.Save(engine); err != nil {
			return err
		}
		if err := rewardStore.Save(distributor); err != nil {
			return err
		}
		return bankStore.Save(vault)
	}

	router := routes.NewRouter(routes.Deps{
		Engine:      engine,
		Distributor: distributor,
		Oracle:      priceOracle,
		Log:         logger,
		RateLimit: middleware.RateLimit{
			RequestsPerMinute: cfg.Gateway.RequestsPerMinute,
			Burst:             cfg.Gateway.Burst,
		},
		MaxBodyBytes: cfg.Gateway.MaxBodyBytes,
		Persist:      persist,
	})

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("mintd listening", "address", cfg.ListenAddress)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", "error", err)
		}
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve gateway: %w", err)
		}
	}

	if err := persist(); err != nil {
		return fmt.Errorf("final state snapshot: %w", err)
	}
	logger.Info("mintd stopped")
	return nil
}
