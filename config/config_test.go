package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const validConfig = `
ListenAddress = "127.0.0.1:9000"

[mint]
MintFeeBps = 50
ModuleAddress = "0x00000000000000000000000000000000000000a1"
FeeCollector = "0x00000000000000000000000000000000000000a2"

[reward]
Owner = "0x00000000000000000000000000000000000000d1"
RewardToken = "0x00000000000000000000000000000000000000d3"
Address = "0x00000000000000000000000000000000000000d2"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.toml", validConfig))
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:9000", cfg.ListenAddress)
	require.Equal(t, "data", cfg.DataDir)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, uint64(30_000), cfg.Mint.MinCollateralRatioBps)
	require.Equal(t, uint64(50_000), cfg.Mint.RewardEligibilityRatioBps)
	require.Equal(t, uint64(50), cfg.Mint.MintFeeBps)
	require.Equal(t, uint64(86_400), cfg.Reward.EpochSeconds)
	require.Equal(t, uint64(3_600), cfg.Reward.PushIntervalSeconds)
	require.Equal(t, float64(600), cfg.Gateway.RequestsPerMinute)
}

func TestValidateRejectsBadRatios(t *testing.T) {
	cfg, err := Load(writeFile(t, "config.toml", validConfig))
	require.NoError(t, err)

	cfg.Mint.RewardEligibilityRatioBps = 20_000
	require.Error(t, cfg.Validate())

	cfg, _ = Load(writeFile(t, "config2.toml", validConfig))
	cfg.Mint.MintFeeBps = 10_000
	require.Error(t, cfg.Validate())

	cfg, _ = Load(writeFile(t, "config3.toml", validConfig))
	cfg.Reward.PushIntervalSeconds = cfg.Reward.EpochSeconds + 1
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsBadAddresses(t *testing.T) {
	_, err := Load(writeFile(t, "config.toml", `
[mint]
ModuleAddress = "not-an-address"
FeeCollector = "0x00000000000000000000000000000000000000a2"
[reward]
Owner = "0x00000000000000000000000000000000000000d1"
RewardToken = "0x00000000000000000000000000000000000000d3"
Address = "0x00000000000000000000000000000000000000d2"
`))
	require.Error(t, err)

	_, err = Load(writeFile(t, "config2.toml", `
[mint]
ModuleAddress = "0x00000000000000000000000000000000000000a1"
FeeCollector = "0x00000000000000000000000000000000000000a2"
[reward]
Owner = ""
RewardToken = "0x00000000000000000000000000000000000000d3"
Address = "0x00000000000000000000000000000000000000d2"
`))
	require.Error(t, err)
}

const validGenesis = `
tokens:
  - address: "0x0000000000000000000000000000000000000c01"
    symbol: WLQD
    decimals: 18
    collateral: true
    price: "100000000"
    priceDecimals: 8
  - address: "0x0000000000000000000000000000000000000c02"
    symbol: sUSD
    decimals: 18
    mintable: true
    price: "100000000"
    priceDecimals: 8
accounts:
  - address: "0x0000000000000000000000000000000000000b01"
    balances:
      "0x0000000000000000000000000000000000000c01": "1500000000000000000"
rewardPot: "1000000000000000000"
`

func TestLoadGenesis(t *testing.T) {
	gen, err := LoadGenesis(writeFile(t, "genesis.yaml", validGenesis))
	require.NoError(t, err)
	require.Len(t, gen.Tokens, 2)
	require.Len(t, gen.Accounts, 1)
	require.Equal(t, "WLQD", gen.Tokens[0].Symbol)
	require.True(t, gen.Tokens[0].Collateral)

	pot, err := ParseAmount(gen.RewardPot)
	require.NoError(t, err)
	require.Equal(t, "1000000000000000000", pot.String())
}

func TestGenesisValidation(t *testing.T) {
	_, err := LoadGenesis(writeFile(t, "genesis.yaml", `
tokens:
  - address: "bogus"
    symbol: X
`))
	require.Error(t, err)

	_, err = LoadGenesis(writeFile(t, "genesis2.yaml", `
tokens:
  - address: "0x0000000000000000000000000000000000000c01"
    symbol: WLQD
accounts:
  - address: "0x0000000000000000000000000000000000000b01"
    balances:
      "0x0000000000000000000000000000000000000c99": "10"
`))
	require.Error(t, err)

	_, err = LoadGenesis(writeFile(t, "genesis3.yaml", `
tokens:
  - address: "0x0000000000000000000000000000000000000c01"
    symbol: WLQD
rewardPot: "-5"
`))
	require.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	_, err := ParseAmount("abc")
	require.Error(t, err)
	_, err = ParseAmount("-1")
	require.Error(t, err)
	v, err := ParseAmount("0")
	require.NoError(t, err)
	require.Zero(t, v.Sign())
}
