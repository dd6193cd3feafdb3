package main

import (
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"synthmint/config"
	"synthmint/native/bank"
	"synthmint/native/mint"
	"synthmint/native/oracle"
	"synthmint/storage"
)

// genesisAppliedKey marks that seed balances were minted, so restarts never
// double-fund accounts.
var genesisAppliedKey = []byte("genesis/applied")

// seedState registers tokens and initial prices on every start and applies
// the genesis balances exactly once.
func seedState(db storage.Database, path string, registry *oracle.Registry, priceOracle *oracle.Oracle, vault *bank.Ledger, rewardAddr, rewardToken common.Address, logger *slog.Logger) error {
	if path == "" {
		logger.Warn("no genesis file configured, starting with an empty token set")
		return nil
	}
	gen, err := config.LoadGenesis(path)
	if err != nil {
		return err
	}

	for _, tok := range gen.Tokens {
		addr, _ := config.ParseAddress(tok.Address)
		if err := registry.Register(mint.Token{
			Address:    addr,
			Symbol:     tok.Symbol,
			Decimals:   tok.Decimals,
			Collateral: tok.Collateral,
			Mintable:   tok.Mintable,
		}); err != nil {
			return fmt.Errorf("register token %s: %w", tok.Symbol, err)
		}
		if tok.Price != "" {
			price, _ := config.ParseAmount(tok.Price)
			if err := priceOracle.SetPrice(addr, price, tok.PriceDecimals); err != nil {
				return fmt.Errorf("seed price for %s: %w", tok.Symbol, err)
			}
		}
	}

	applied, err := db.Has(genesisAppliedKey)
	if err != nil {
		return fmt.Errorf("check genesis marker: %w", err)
	}
	if applied {
		return nil
	}

	for _, acct := range gen.Accounts {
		addr, _ := config.ParseAddress(acct.Address)
		for token, amount := range acct.Balances {
			tokenAddr, _ := config.ParseAddress(token)
			value, _ := config.ParseAmount(amount)
			if value.Sign() == 0 {
				continue
			}
			if err := vault.Mint(tokenAddr, addr, value); err != nil {
				return fmt.Errorf("seed balance for %s: %w", acct.Address, err)
			}
		}
	}
	if gen.RewardPot != "" {
		pot, _ := config.ParseAmount(gen.RewardPot)
		if pot.Sign() > 0 {
			if err := vault.Mint(rewardToken, rewardAddr, pot); err != nil {
				return fmt.Errorf("seed reward pot: %w", err)
			}
		}
	}
	if err := db.Put(genesisAppliedKey, []byte{1}); err != nil {
		return fmt.Errorf("write genesis marker: %w", err)
	}
	logger.Info("genesis state applied", "tokens", len(gen.Tokens), "accounts", len(gen.Accounts))
	return nil
}
