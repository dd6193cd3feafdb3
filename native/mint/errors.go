package mint

import "errors"

var (
	ErrInvalidAmount       = errors.New("mint: non-zero amount expected")
	ErrUnknownToken        = errors.New("mint: token not registered")
	ErrTokenNotEligible    = errors.New("mint: token not eligible for the pool")
	ErrTokenNoValue        = errors.New("mint: token has no value")
	ErrMintingProhibited   = errors.New("mint: minting of the token prohibited")
	ErrAmountTooLow        = errors.New("mint: amount too low")
	ErrInsufficientBalance = errors.New("mint: insufficient balance")

	// ErrInsufficientCollateralBalance rejects withdrawals exceeding the
	// caller's collateral balance of the token.
	ErrInsufficientCollateralBalance = errors.New("mint: insufficient collateral balance")
	// ErrInsufficientDebtOutstanding rejects repayments exceeding the
	// caller's outstanding debt of the token.
	ErrInsufficientDebtOutstanding = errors.New("mint: insufficient debt outstanding")
	// ErrCollateralRatioBroken rejects withdrawals that would leave the
	// position below the minimum collateralization ratio.
	ErrCollateralRatioBroken = errors.New("mint: insufficient collateral value remains")
	// ErrInsufficientCollateralValue rejects mints that would push the
	// position below the minimum collateralization ratio.
	ErrInsufficientCollateralValue = errors.New("mint: insufficient collateral value")
)
