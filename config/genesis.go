package config

import (
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Genesis is the YAML seed state the daemon applies on first start: the
// token set, initial prices, initial account balances and the reward pot.
type Genesis struct {
	Tokens   []GenesisToken   `yaml:"tokens"`
	Accounts []GenesisAccount `yaml:"accounts"`
	// RewardPot is minted to the distributor address, in reward token units.
	RewardPot string `yaml:"rewardPot"`
}

type GenesisToken struct {
	Address    string `yaml:"address"`
	Symbol     string `yaml:"symbol"`
	Decimals   uint8  `yaml:"decimals"`
	Collateral bool   `yaml:"collateral"`
	Mintable   bool   `yaml:"mintable"`
	// Price is the initial oracle price as a decimal integer string.
	Price         string `yaml:"price"`
	PriceDecimals uint8  `yaml:"priceDecimals"`
}

type GenesisAccount struct {
	Address  string            `yaml:"address"`
	Balances map[string]string `yaml:"balances"`
}

// LoadGenesis reads and validates a genesis file.
func LoadGenesis(path string) (Genesis, error) {
	var gen Genesis
	raw, err := os.ReadFile(path)
	if err != nil {
		return gen, fmt.Errorf("config: read genesis %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &gen); err != nil {
		return gen, fmt.Errorf("config: parse genesis %s: %w", path, err)
	}
	if err := gen.Validate(); err != nil {
		return gen, err
	}
	return gen, nil
}

func (g Genesis) Validate() error {
	seen := make(map[common.Address]bool, len(g.Tokens))
	for _, tok := range g.Tokens {
		addr, err := ParseAddress(tok.Address)
		if err != nil {
			return fmt.Errorf("config: genesis token %q: %w", tok.Symbol, err)
		}
		if seen[addr] {
			return fmt.Errorf("config: genesis token %s listed twice", tok.Address)
		}
		seen[addr] = true
		if tok.Price != "" {
			if _, err := ParseAmount(tok.Price); err != nil {
				return fmt.Errorf("config: genesis token %s price: %w", tok.Symbol, err)
			}
		}
	}
	for _, acct := range g.Accounts {
		if _, err := ParseAddress(acct.Address); err != nil {
			return fmt.Errorf("config: genesis account: %w", err)
		}
		for token, amount := range acct.Balances {
			addr, err := ParseAddress(token)
			if err != nil {
				return fmt.Errorf("config: genesis balance token: %w", err)
			}
			if !seen[addr] {
				return fmt.Errorf("config: genesis balance references unknown token %s", token)
			}
			if _, err := ParseAmount(amount); err != nil {
				return fmt.Errorf("config: genesis balance for %s: %w", acct.Address, err)
			}
		}
	}
	if g.RewardPot != "" {
		if _, err := ParseAmount(g.RewardPot); err != nil {
			return fmt.Errorf("config: genesis rewardPot: %w", err)
		}
	}
	return nil
}

// ParseAmount parses a non-negative decimal integer string.
func ParseAmount(raw string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", raw)
	}
	return value, nil
}
