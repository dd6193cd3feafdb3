package mint

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Token carries the static metadata the pools consult before accepting a
// balance change. Metadata is registered once and never mutated afterwards.
type Token struct {
	Address    common.Address
	Symbol     string
	Decimals   uint8
	Collateral bool
	Mintable   bool
}

// PriceOracle resolves the current price of a token. A zero price means the
// token has no usable value right now; it is not an error.
type PriceOracle interface {
	Price(token common.Address) (value *big.Int, decimals uint8)
}

// TokenRegistry resolves token metadata. The second return is false for
// tokens the protocol does not know about.
type TokenRegistry interface {
	Metadata(token common.Address) (Token, bool)
}

// TokenVault is the custody boundary the engine moves tokens through. Any
// error aborts the enclosing operation with no ledger mutation.
type TokenVault interface {
	// TransferFrom moves owner's tokens using spender's allowance.
	TransferFrom(token, owner, spender, to common.Address, amount *big.Int) error
	Transfer(token, from, to common.Address, amount *big.Int) error
	Mint(token, to common.Address, amount *big.Int) error
	// BurnFrom destroys owner's tokens using spender's allowance.
	BurnFrom(token, owner, spender common.Address, amount *big.Int) error
	BalanceOf(token, account common.Address) *big.Int
}

// WeightObserver is notified before an account's debt balance changes so the
// reward distributor can checkpoint accrual under the old weight.
type WeightObserver interface {
	NoteWeightChange(account common.Address)
}

// Params are the protocol-level knobs of the engine, ratios in basis points.
type Params struct {
	// MinCollateralRatioBps is the floor every position must keep after a
	// mint or withdrawal, e.g. 30000 for 300%.
	MinCollateralRatioBps uint64
	// RewardEligibilityRatioBps is the stricter floor a position must keep
	// to accrue rewards, e.g. 50000 for 500%.
	RewardEligibilityRatioBps uint64
	// MintFeeBps is charged on every mint, e.g. 50 for 0.5%.
	MintFeeBps uint64
}

// DefaultParams mirror the protocol's launch configuration.
func DefaultParams() Params {
	return Params{
		MinCollateralRatioBps:     30_000,
		RewardEligibilityRatioBps: 50_000,
		MintFeeBps:                50,
	}
}
