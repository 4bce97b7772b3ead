package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"stakeledger/native/staking"
)

type Config struct {
	RPCAddress    string `toml:"RPCAddress"`
	DataDir       string `toml:"DataDir"`
	Env           string `toml:"Env"`
	Authority     string `toml:"Authority"`
	InMemory      bool   `toml:"InMemory,omitempty"`
	LockDays      uint64 `toml:"LockDays"`
	MaxBonusBps   uint64 `toml:"MaxBonusBps"`
	PenaltyBps    uint64 `toml:"PenaltyBps"`
	UnstakeFeeBps uint64 `toml:"UnstakeFeeBps"`
}

// Load loads the configuration from the given path, creating and persisting a
// default file when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = ":8080"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./stakeledger-data"
	}
	if c.LockDays == 0 {
		c.LockDays = 30
	}
	if c.MaxBonusBps == 0 {
		c.MaxBonusBps = 12_000
	}
}

// Validate rejects configurations whose curve parameters the ledger would
// refuse at runtime.
func (c *Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Params maps the configured schedule onto the ledger parameter set.
func (c *Config) Params() staking.Params {
	return staking.Params{
		OptimalLockSeconds:  c.LockDays * 24 * 60 * 60,
		MaxMultiplierBps:    c.MaxBonusBps,
		EarlyExitPenaltyBps: c.PenaltyBps,
		UnstakeFeeBps:       c.UnstakeFeeBps,
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:    ":8080",
		DataDir:       "./stakeledger-data",
		Env:           "local",
		LockDays:      30,
		MaxBonusBps:   12_000,
		PenaltyBps:    500,
		UnstakeFeeBps: 50,
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
