package mint

import "math/big"

// valueDecimals is the common fixed-point scale every token balance is
// normalized to before values are compared or aggregated.
const valueDecimals = 18

// ratioDenominator expresses collateralization ratios in basis points, so a
// ratio of 300% is carried as 30_000.
const ratioDenominator = 10_000

var (
	bigZero     = big.NewInt(0)
	bigOne      = big.NewInt(1)
	basisPoints = big.NewInt(ratioDenominator)
)

func pow10(n int) *big.Int {
	if n <= 0 {
		return new(big.Int).Set(bigOne)
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func ceilDiv(num, den *big.Int) *big.Int {
	if den == nil || den.Sign() == 0 {
		return big.NewInt(0)
	}
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, bigOne)
	}
	return q
}

// valueOfAmount normalizes a raw token amount to the common 18-decimal value
// scale: amount * price / 10^(tokenDecimals + priceDecimals - 18). The debt
// pool values balances rounding up, the collateral pool rounding down, so a
// rounding mode is threaded through explicitly.
func valueOfAmount(amount, price *big.Int, tokenDecimals, priceDecimals uint8, roundUp bool) *big.Int {
	if amount == nil || amount.Sign() <= 0 || price == nil || price.Sign() <= 0 {
		return big.NewInt(0)
	}
	exp := int(tokenDecimals) + int(priceDecimals) - valueDecimals
	num := new(big.Int).Mul(amount, price)
	if exp <= 0 {
		// Scaling up is exact, no rounding applies.
		return num.Mul(num, pow10(-exp))
	}
	den := pow10(exp)
	if roundUp {
		return ceilDiv(num, den)
	}
	return num.Quo(num, den)
}

// amountForValueDown returns the largest raw amount whose round-up value does
// not exceed the target. Used for mint and withdraw boundaries, which must
// never overshoot the safe amount.
func amountForValueDown(value, price *big.Int, tokenDecimals, priceDecimals uint8) *big.Int {
	if value == nil || value.Sign() <= 0 || price == nil || price.Sign() <= 0 {
		return big.NewInt(0)
	}
	num, den := amountConversion(value, price, tokenDecimals, priceDecimals)
	return num.Quo(num, den)
}

// amountForValueUp returns the smallest raw amount whose round-down value
// reaches the target. Used for the minimum-deposit boundary, which must never
// undershoot the required top-up.
func amountForValueUp(value, price *big.Int, tokenDecimals, priceDecimals uint8) *big.Int {
	if value == nil || value.Sign() <= 0 {
		return big.NewInt(0)
	}
	if price == nil || price.Sign() <= 0 {
		return big.NewInt(0)
	}
	num, den := amountConversion(value, price, tokenDecimals, priceDecimals)
	return ceilDiv(num, den)
}

func amountConversion(value, price *big.Int, tokenDecimals, priceDecimals uint8) (num, den *big.Int) {
	exp := int(tokenDecimals) + int(priceDecimals) - valueDecimals
	num = new(big.Int).Set(value)
	den = new(big.Int).Set(price)
	if exp >= 0 {
		num.Mul(num, pow10(exp))
	} else {
		den.Mul(den, pow10(-exp))
	}
	return num, den
}

// ratioSatisfied reports whether collateral backs debt at or above the given
// basis-point floor. Zero debt is always satisfied.
func ratioSatisfied(collateralValue, debtValue *big.Int, floorBps uint64) bool {
	if debtValue == nil || debtValue.Sign() == 0 {
		return true
	}
	if collateralValue == nil || collateralValue.Sign() <= 0 {
		return false
	}
	lhs := new(big.Int).Mul(collateralValue, basisPoints)
	rhs := new(big.Int).Mul(debtValue, new(big.Int).SetUint64(floorBps))
	return lhs.Cmp(rhs) >= 0
}

// mintFee computes the minting fee for the requested amount, rounding up so
// the protocol never under-collects.
func mintFee(amount *big.Int, feeBps uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 || feeBps == 0 {
		return big.NewInt(0)
	}
	num := new(big.Int).Mul(amount, new(big.Int).SetUint64(feeBps))
	return ceilDiv(num, basisPoints)
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
