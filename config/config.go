package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the daemon's TOML configuration.
type Config struct {
	ListenAddress   string `toml:"ListenAddress"`
	DataDir         string `toml:"DataDir"`
	AuditDriver     string `toml:"AuditDriver"`
	AuditDSN        string `toml:"AuditDSN"`
	LogLevel        string `toml:"LogLevel"`
	LogFile         string `toml:"LogFile"`
	AccrualInterval string `toml:"AccrualInterval"`

	Economics Economics `toml:"Economics"`
}

// Economics holds the token and reward parameters applied at startup.
type Economics struct {
	Symbol                 string           `toml:"Symbol"`
	Name                   string           `toml:"Name"`
	TotalSupply            string           `toml:"TotalSupply"`
	CirculatingSupply      string           `toml:"CirculatingSupply"`
	StakingRatePerSecond   string           `toml:"StakingRatePerSecond"`
	LiquidityRatePerSecond string           `toml:"LiquidityRatePerSecond"`
	StakingFeeShareBps     uint32           `toml:"StakingFeeShareBps"`
	LiquidityFeeShareBps   uint32           `toml:"LiquidityFeeShareBps"`
	BurnFeeShareBps        uint32           `toml:"BurnFeeShareBps"`
	TreasuryFeeShareBps    uint32           `toml:"TreasuryFeeShareBps"`
	MinProposalPower       string           `toml:"MinProposalPower"`
	QuorumRequired         string           `toml:"QuorumRequired"`
	LockMultipliers        []LockMultiplier `toml:"LockMultipliers"`
	Pools                  []Pool           `toml:"Pools"`
}

// LockMultiplier maps a minimum lock duration to a reward multiplier in
// basis points of 1.00x.
type LockMultiplier struct {
	MinLockDays   uint32 `toml:"MinLockDays"`
	MultiplierBps uint32 `toml:"MultiplierBps"`
}

// Pool names a staking or liquidity pool offered at startup.
type Pool struct {
	ID   string `toml:"ID"`
	Name string `toml:"Name"`
}

// Load loads the configuration from the given path. A missing file is
// populated with defaults and written back so operators get a template to
// edit.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file exists yet.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./cgift-data"
	}
	if strings.TrimSpace(cfg.AuditDriver) == "" {
		cfg.AuditDriver = "sqlite"
	}
	if strings.TrimSpace(cfg.AuditDSN) == "" {
		cfg.AuditDSN = filepath.Join(cfg.DataDir, "audit.db")
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	if strings.TrimSpace(cfg.AccrualInterval) == "" {
		cfg.AccrualInterval = "60s"
	}

	eco := &cfg.Economics
	if strings.TrimSpace(eco.Symbol) == "" {
		eco.Symbol = "CGIFT"
	}
	if strings.TrimSpace(eco.Name) == "" {
		eco.Name = "CeleGift Token"
	}
	if strings.TrimSpace(eco.TotalSupply) == "" {
		eco.TotalSupply = "1000000000"
	}
	if strings.TrimSpace(eco.CirculatingSupply) == "" {
		eco.CirculatingSupply = "500000000"
	}
	if strings.TrimSpace(eco.StakingRatePerSecond) == "" {
		eco.StakingRatePerSecond = "0.000034722"
	}
	if strings.TrimSpace(eco.LiquidityRatePerSecond) == "" {
		eco.LiquidityRatePerSecond = "0.000023148"
	}
	if eco.StakingFeeShareBps == 0 && eco.LiquidityFeeShareBps == 0 &&
		eco.BurnFeeShareBps == 0 && eco.TreasuryFeeShareBps == 0 {
		eco.StakingFeeShareBps = 4000
		eco.LiquidityFeeShareBps = 3000
		eco.BurnFeeShareBps = 2000
		eco.TreasuryFeeShareBps = 1000
	}
	if strings.TrimSpace(eco.MinProposalPower) == "" {
		eco.MinProposalPower = "1000"
	}
	if strings.TrimSpace(eco.QuorumRequired) == "" {
		eco.QuorumRequired = "10000"
	}
	if len(eco.LockMultipliers) == 0 {
		eco.LockMultipliers = []LockMultiplier{
			{MinLockDays: 90, MultiplierBps: 20000},
			{MinLockDays: 30, MultiplierBps: 15000},
			{MinLockDays: 0, MultiplierBps: 10000},
		}
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
