// Package config loads and validates the mintd node configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// Config is the top-level TOML configuration of mintd.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	GenesisPath   string `toml:"GenesisPath"`
	LogLevel      string `toml:"LogLevel"`
	Environment   string `toml:"Environment"`

	Mint    MintConfig    `toml:"mint"`
	Reward  RewardConfig  `toml:"reward"`
	Gateway GatewayConfig `toml:"gateway"`
}

// MintConfig carries the engine parameters. Ratios are basis points.
type MintConfig struct {
	MinCollateralRatioBps     uint64 `toml:"MinCollateralRatioBps"`
	RewardEligibilityRatioBps uint64 `toml:"RewardEligibilityRatioBps"`
	MintFeeBps                uint64 `toml:"MintFeeBps"`
	ModuleAddress             string `toml:"ModuleAddress"`
	FeeCollector              string `toml:"FeeCollector"`
}

// RewardConfig carries the distributor parameters.
type RewardConfig struct {
	Owner               string `toml:"Owner"`
	RewardToken         string `toml:"RewardToken"`
	Address             string `toml:"Address"`
	EpochSeconds        uint64 `toml:"EpochSeconds"`
	PushIntervalSeconds uint64 `toml:"PushIntervalSeconds"`
}

// GatewayConfig carries the HTTP surface limits.
type GatewayConfig struct {
	RequestsPerMinute float64 `toml:"RequestsPerMinute"`
	Burst             int     `toml:"Burst"`
	MaxBodyBytes      int64   `toml:"MaxBodyBytes"`
}

// Load reads, normalizes and validates a configuration file.
func Load(path string) (Config, error) {
	var cfg Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Normalize fills defaults for everything the file leaves unset.
func (c *Config) Normalize() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "data"
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = "info"
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "dev"
	}
	if c.Mint.MinCollateralRatioBps == 0 {
		c.Mint.MinCollateralRatioBps = 30_000
	}
	if c.Mint.RewardEligibilityRatioBps == 0 {
		c.Mint.RewardEligibilityRatioBps = 50_000
	}
	if c.Reward.EpochSeconds == 0 {
		c.Reward.EpochSeconds = 86_400
	}
	if c.Reward.PushIntervalSeconds == 0 {
		c.Reward.PushIntervalSeconds = 3_600
	}
	if c.Gateway.RequestsPerMinute <= 0 {
		c.Gateway.RequestsPerMinute = 600
	}
	if c.Gateway.Burst <= 0 {
		c.Gateway.Burst = 50
	}
	if c.Gateway.MaxBodyBytes <= 0 {
		c.Gateway.MaxBodyBytes = 1 << 16
	}
}

// Validate rejects configurations the daemon cannot safely run with.
func (c *Config) Validate() error {
	if c.Mint.RewardEligibilityRatioBps < c.Mint.MinCollateralRatioBps {
		return fmt.Errorf("config: reward eligibility ratio %d below minimum collateral ratio %d",
			c.Mint.RewardEligibilityRatioBps, c.Mint.MinCollateralRatioBps)
	}
	if c.Mint.MintFeeBps >= 10_000 {
		return fmt.Errorf("config: mint fee %d bps must stay below 10000", c.Mint.MintFeeBps)
	}
	if c.Reward.PushIntervalSeconds > c.Reward.EpochSeconds {
		return fmt.Errorf("config: push interval %ds exceeds epoch %ds",
			c.Reward.PushIntervalSeconds, c.Reward.EpochSeconds)
	}
	for name, addr := range map[string]string{
		"mint.ModuleAddress": c.Mint.ModuleAddress,
		"mint.FeeCollector":  c.Mint.FeeCollector,
		"reward.Owner":       c.Reward.Owner,
		"reward.RewardToken": c.Reward.RewardToken,
		"reward.Address":     c.Reward.Address,
	} {
		if _, err := ParseAddress(addr); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	return nil
}

// ParseAddress parses a 0x-prefixed hex address.
func ParseAddress(raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return common.Address{}, fmt.Errorf("address missing")
	}
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(trimmed), nil
}
