package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"safepool/config"
	"safepool/core/events"
	"safepool/crypto"
	"safepool/native/assets"
	"safepool/native/escrow"
	"safepool/native/pool"
	"safepool/observability/logging"
	"safepool/rpc"
	"safepool/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("SAFEPOOL_ENV"))
	logger := logging.Setup("poold", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	if env == "" {
		env = cfg.Environment
	}

	var db storage.Database
	if cfg.Ephemeral {
		db = storage.NewMemDB()
	} else {
		ldb, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			logger.Error("failed to open database", slog.String("dir", cfg.DataDir), slog.Any("error", err))
			os.Exit(1)
		}
		db = ldb
	}
	defer db.Close()

	poolAddr, err := config.ParseAddress(cfg.PoolAddress)
	if err != nil {
		logger.Error("invalid pool address", slog.Any("error", err))
		os.Exit(1)
	}
	vaultAddr, err := config.ParseAddress(cfg.VaultAddress)
	if err != nil {
		logger.Error("invalid vault address", slog.Any("error", err))
		os.Exit(1)
	}
	ownerAddr, err := config.ParseAddress(cfg.OwnerAddress)
	if err != nil {
		logger.Error("invalid owner address", slog.Any("error", err))
		os.Exit(1)
	}

	domain := crypto.TypedDomain{
		Name:              cfg.DomainName,
		Version:           cfg.DomainVersion,
		ChainID:           cfg.ChainID,
		VerifyingContract: poolAddr,
	}

	registry, tokenLedger, tokenAsset, err := buildLedgers(cfg, db)
	if err != nil {
		logger.Error("failed to build asset ledgers", slog.Any("error", err))
		os.Exit(1)
	}

	emitter := &events.LogEmitter{Log: logger}

	poolEngine := pool.NewEngine(tokenLedger, poolAddr, domain)
	poolEngine.SetState(pool.NewStore(db))
	poolEngine.SetEmitter(emitter)
	// Withdrawal maturity counts in seconds on a standalone node; there is
	// no block height to follow.
	poolEngine.SetHeightFunc(func() uint64 { return uint64(time.Now().Unix()) })

	if err := seedEntities(poolEngine, ownerAddr, tokenAsset); err != nil {
		logger.Error("failed to seed pool entities", slog.Any("error", err))
		os.Exit(1)
	}

	escrowEngine := escrow.NewEngine(registry, vaultAddr, domain)
	escrowEngine.SetState(escrow.NewStore(db))
	escrowEngine.SetEmitter(emitter)
	if strings.TrimSpace(cfg.FeeCollector) != "" {
		collector, err := config.ParseAddress(cfg.FeeCollector)
		if err != nil {
			logger.Error("invalid fee collector", slog.Any("error", err))
			os.Exit(1)
		}
		escrowEngine.SetFeeCollector(collector)
	}

	server := rpc.NewServer(poolEngine, escrowEngine, logger)
	server.SetLedgers(registry)
	if cfg.Ephemeral || env == "dev" || env == "local" {
		logger.Warn("faucet enabled, do not expose this node publicly")
		server.RegisterFaucet()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if strings.TrimSpace(cfg.MetricsAddress) != "" {
		go serveMetrics(ctx, logger, cfg.MetricsAddress)
	}

	if err := server.Start(ctx, cfg.RPCAddress); err != nil {
		logger.Error("rpc server failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// buildLedgers wires the configured asset ids to database-backed ledgers and
// returns the registry plus the pool token ledger. When no TokenAsset is
// configured the pool custody runs against the native value ledger.
func buildLedgers(cfg *config.Config, db storage.Database) (*assets.Registry, assets.Fungible, assets.AssetID, error) {
	native := assets.NewStoreFungible(db, assets.NativeAsset)
	registry := assets.NewRegistry(native)

	for _, entry := range cfg.ERC20Assets {
		id, err := config.ParseAddress(entry)
		if err != nil {
			return nil, nil, assets.AssetID{}, fmt.Errorf("ERC20 asset %q: %w", entry, err)
		}
		registry.RegisterFungible(id, assets.NewStoreFungible(db, id))
	}
	for _, entry := range cfg.NFTAssets {
		id, err := config.ParseAddress(entry)
		if err != nil {
			return nil, nil, assets.AssetID{}, fmt.Errorf("NFT asset %q: %w", entry, err)
		}
		registry.RegisterNFT(id, assets.NewStoreNFT(db, id))
	}
	for _, entry := range cfg.MultiTokenAssets {
		id, err := config.ParseAddress(entry)
		if err != nil {
			return nil, nil, assets.AssetID{}, fmt.Errorf("multi-token asset %q: %w", entry, err)
		}
		registry.RegisterMultiToken(id, assets.NewStoreMultiToken(db, id))
	}

	if strings.TrimSpace(cfg.TokenAsset) == "" {
		return registry, native, assets.NativeAsset, nil
	}
	tokenAsset, err := config.ParseAddress(cfg.TokenAsset)
	if err != nil {
		return nil, nil, assets.AssetID{}, fmt.Errorf("token asset: %w", err)
	}
	id := assets.AssetID(tokenAsset)
	ledger, err := registry.Fungible(id)
	if err != nil {
		// The pool token does not need to appear in ERC20Assets; bind a
		// ledger for it on demand.
		fresh := assets.NewStoreFungible(db, id)
		registry.RegisterFungible(id, fresh)
		return registry, fresh, id, nil
	}
	return registry, ledger, id, nil
}

// seedEntities initialises owner and token bindings on first boot and leaves
// an already-initialised pool untouched.
func seedEntities(engine *pool.Engine, owner [20]byte, token assets.AssetID) error {
	entities, err := engine.Entities()
	if err != nil {
		return err
	}
	if entities.Owner != ([20]byte{}) {
		return nil
	}
	return engine.InitEntities(owner, token)
}

func serveMetrics(ctx context.Context, logger *slog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server failed", slog.Any("error", err))
	}
}
