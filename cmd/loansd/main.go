package main

import (
	"flag"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nftloans/config"
	"nftloans/core/events"
	"nftloans/core/state"
	"nftloans/explorer"
	"nftloans/observability/logging"
	"nftloans/rpc"
	"nftloans/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("NFTLOANS_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		logging.Setup("loansd", env, "").Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if env == "" {
		env = cfg.Environment
	}
	logger := logging.Setup("loansd", env, cfg.LogFile)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "loans"))
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	if strings.TrimSpace(cfg.GenesisFile) != "" {
		if err := state.LoadGenesis(manager, cfg.GenesisFile); err != nil {
			logger.Error("failed to load genesis", "error", err)
			os.Exit(1)
		}
		logger.Info("genesis applied", "file", cfg.GenesisFile)
	}

	var emitter events.Emitter = events.NoopEmitter{}
	if strings.TrimSpace(cfg.IndexFile) != "" {
		indexer, err := explorer.Open(cfg.IndexFile, logger)
		if err != nil {
			logger.Error("failed to open event index", "error", err)
			os.Exit(1)
		}
		emitter = indexer
		logger.Info("event index enabled", "file", cfg.IndexFile)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("starting metrics server", "addr", cfg.MetricsAddress)
		if err := http.ListenAndServe(cfg.MetricsAddress, mux); err != nil {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	server := rpc.NewServer(manager, emitter, logger)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("rpc server stopped", "error", err)
		os.Exit(1)
	}
}
