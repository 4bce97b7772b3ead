package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"stakeledger/config"
	"stakeledger/core/state"
	"stakeledger/native/staking"
	"stakeledger/observability/logging"
	"stakeledger/rpc"
	"stakeledger/storage"

	"github.com/ethereum/go-ethereum/common"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	env := strings.TrimSpace(os.Getenv("STAKELEDGER_ENV"))
	if env == "" {
		env = cfg.Env
	}
	logger := logging.Setup("stakeledgerd", env)

	var db storage.Database
	if cfg.InMemory {
		db = storage.NewMemDB()
	} else {
		ldb, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			panic(fmt.Sprintf("Failed to open database: %v", err))
		}
		db = ldb
	}
	defer db.Close()

	manager := state.NewManager(db)
	engine := staking.NewEngine()
	engine.SetState(manager)
	if err := engine.SetParams(cfg.Params()); err != nil {
		logger.Error("Invalid staking parameters", slog.Any("error", err))
		os.Exit(1)
	}

	if _, ok, err := manager.StakingPoolGet(); err != nil {
		logger.Error("Failed to read pool state", slog.Any("error", err))
		os.Exit(1)
	} else if !ok {
		authority := strings.TrimSpace(cfg.Authority)
		if authority == "" {
			logger.Error("Pool not initialised and no Authority configured")
			os.Exit(1)
		}
		if !common.IsHexAddress(authority) {
			logger.Error("Invalid Authority address", slog.String("authority", authority))
			os.Exit(1)
		}
		if _, err := engine.InitializePool(common.HexToAddress(authority)); err != nil {
			logger.Error("Failed to initialise pool", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Initialised staking pool", slog.String("authority", authority))
	}

	server := rpc.NewServer(engine)
	logger.Info("Starting staking ledger RPC", slog.String("addr", cfg.RPCAddress))
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
