package mint

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Engine is the collateral and debt manager. Accounts deposit collateral
// tokens, mint debt tokens against them and must keep the value of their
// collateral above the configured multiple of the value of their debt at all
// times. Every mutating operation is atomic: it either completes fully or
// leaves both pools untouched.
type Engine struct {
	mu sync.Mutex

	params       Params
	oracle       PriceOracle
	registry     TokenRegistry
	vault        TokenVault
	moduleAddr   common.Address
	feeCollector common.Address

	collateral *Ledger
	debt       *Ledger

	emitter Emitter
}

// Normalize fills zero-valued knobs with the protocol defaults.
func (p Params) Normalize() Params {
	def := DefaultParams()
	if p.MinCollateralRatioBps == 0 {
		p.MinCollateralRatioBps = def.MinCollateralRatioBps
	}
	if p.RewardEligibilityRatioBps == 0 {
		p.RewardEligibilityRatioBps = def.RewardEligibilityRatioBps
	}
	return p
}

// NewEngine wires the engine over its collaborators. The module address is
// the custody account collateral sits in; the fee collector receives the
// minting fee.
func NewEngine(params Params, oracle PriceOracle, registry TokenRegistry, vault TokenVault, moduleAddr, feeCollector common.Address) *Engine {
	params = params.Normalize()
	return &Engine{
		params:       params,
		oracle:       oracle,
		registry:     registry,
		vault:        vault,
		moduleAddr:   moduleAddr,
		feeCollector: feeCollector,
		collateral:   NewLedger(CollateralRole, oracle, registry),
		debt:         NewLedger(DebtRole, oracle, registry),
	}
}

// StateLock exposes the mutex serializing every engine operation. The reward
// distributor shares it so cross-module operations stay atomic.
func (e *Engine) StateLock() *sync.Mutex { return &e.mu }

// SetWeightObserver wires the reward distributor checkpoint hook into the
// debt pool.
func (e *Engine) SetWeightObserver(obs WeightObserver) {
	e.debt.SetObserver(obs)
}

// SetEmitter wires an optional event sink notified after successful
// operations.
func (e *Engine) SetEmitter(emitter Emitter) {
	e.emitter = emitter
}

func (e *Engine) Params() Params { return e.params }

func (e *Engine) emit(evt Event) {
	if e.emitter != nil {
		e.emitter.Emit(evt)
	}
}

// Deposit moves amount of token from the account into the collateral pool.
func (e *Engine) Deposit(account, token common.Address, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.depositLocked(account, token, amount)
}

func (e *Engine) depositLocked(account, token common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	tok, ok := e.registry.Metadata(token)
	if !ok {
		return ErrUnknownToken
	}
	if !tok.Collateral {
		return ErrTokenNotEligible
	}
	if err := e.vault.TransferFrom(token, account, e.moduleAddr, e.moduleAddr, amount); err != nil {
		return err
	}
	if price, _ := e.oracle.Price(token); price == nil || price.Sign() <= 0 {
		// Custody errors take precedence over the value check, so the pull
		// runs first. The module holds the tokens now; the return transfer
		// cannot fail.
		e.vault.Transfer(token, e.moduleAddr, account, amount)
		return ErrTokenNoValue
	}
	// Cannot fail after the eligibility checks above.
	if err := e.collateral.Increase(account, token, amount); err != nil {
		return err
	}
	e.emit(depositEvent(account, token, amount))
	return nil
}

// Withdraw moves amount of token from the collateral pool back to the
// account, provided the position stays at or above the minimum ratio.
func (e *Engine) Withdraw(account, token common.Address, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.withdrawLocked(account, token, amount)
}

func (e *Engine) withdrawLocked(account, token common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if _, ok := e.registry.Metadata(token); !ok {
		return ErrUnknownToken
	}
	bal := e.collateral.Balance(account, token)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientCollateralBalance
	}
	if !e.collateralCanDecreaseLocked(account, token, amount, e.params.MinCollateralRatioBps) {
		return ErrCollateralRatioBroken
	}
	if err := e.vault.Transfer(token, e.moduleAddr, account, amount); err != nil {
		return err
	}
	if err := e.collateral.Decrease(account, token, amount); err != nil {
		return err
	}
	e.emit(withdrawEvent(account, token, amount))
	return nil
}

// Mint records amount of token as new debt and mints the tokens, net of the
// minting fee, to the account. The fee share goes to the fee collector while
// the debt is recorded for the full amount.
func (e *Engine) Mint(account, token common.Address, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mintLocked(account, token, amount)
}

func (e *Engine) mintLocked(account, token common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	tok, ok := e.registry.Metadata(token)
	if !ok {
		return ErrUnknownToken
	}
	if !tok.Mintable {
		return ErrMintingProhibited
	}
	if price, _ := e.oracle.Price(token); price == nil || price.Sign() <= 0 {
		return ErrTokenNoValue
	}
	// The collateral check covers the full requested amount and runs before
	// the fee split, so a request past the boundary always reports the
	// ratio violation, even when the fee would consume it whole.
	if !e.debtCanIncreaseLocked(account, token, amount, e.params.MinCollateralRatioBps) {
		return ErrInsufficientCollateralValue
	}
	fee := mintFee(amount, e.params.MintFeeBps)
	net := new(big.Int).Sub(amount, fee)
	if net.Sign() <= 0 {
		return ErrAmountTooLow
	}
	if err := e.debt.Increase(account, token, amount); err != nil {
		return err
	}
	if fee.Sign() > 0 {
		if err := e.vault.Mint(token, e.feeCollector, fee); err != nil {
			e.debt.Decrease(account, token, amount)
			return err
		}
	}
	if err := e.vault.Mint(token, account, net); err != nil {
		if fee.Sign() > 0 {
			e.vault.BurnFrom(token, e.feeCollector, e.feeCollector, fee)
		}
		e.debt.Decrease(account, token, amount)
		return err
	}
	e.emit(mintEvent(account, token, amount, fee))
	return nil
}

// Repay burns amount of token from the account and clears the matching debt.
// No ratio check applies; repaying only ever improves a position.
func (e *Engine) Repay(account, token common.Address, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.repayLocked(account, token, amount)
}

func (e *Engine) repayLocked(account, token common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if _, ok := e.registry.Metadata(token); !ok {
		return ErrUnknownToken
	}
	bal := e.debt.Balance(account, token)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientDebtOutstanding
	}
	if err := e.vault.BurnFrom(token, account, e.moduleAddr, amount); err != nil {
		return err
	}
	if err := e.debt.Decrease(account, token, amount); err != nil {
		return err
	}
	e.emit(repayEvent(account, token, amount))
	return nil
}

// TryDeposit reports success instead of returning an error.
func (e *Engine) TryDeposit(account, token common.Address, amount *big.Int) bool {
	return e.Deposit(account, token, amount) == nil
}

func (e *Engine) TryWithdraw(account, token common.Address, amount *big.Int) bool {
	return e.Withdraw(account, token, amount) == nil
}

func (e *Engine) TryMint(account, token common.Address, amount *big.Int) bool {
	return e.Mint(account, token, amount) == nil
}

func (e *Engine) TryRepay(account, token common.Address, amount *big.Int) bool {
	return e.Repay(account, token, amount) == nil
}

// CollateralCanDecrease probes whether removing amount of token would keep
// the position at or above the given ratio floor.
func (e *Engine) CollateralCanDecrease(account, token common.Address, amount *big.Int, ratioBps uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if amount == nil || amount.Sign() < 0 {
		return false
	}
	if e.collateral.Balance(account, token).Cmp(amount) < 0 {
		return false
	}
	return e.collateralCanDecreaseLocked(account, token, amount, ratioBps)
}

func (e *Engine) collateralCanDecreaseLocked(account, token common.Address, amount *big.Int, ratioBps uint64) bool {
	debtValue := e.debt.TotalOf(account)
	if debtValue.Sign() == 0 {
		return true
	}
	bal := e.collateral.Balance(account, token)
	after := new(big.Int).Sub(bal, amount)
	collateralValue := e.collateral.TotalOf(account)
	collateralValue.Sub(collateralValue, e.collateral.TokenValue(token, bal))
	collateralValue.Add(collateralValue, e.collateral.TokenValue(token, after))
	return ratioSatisfied(collateralValue, debtValue, ratioBps)
}

// DebtCanIncrease probes whether adding amount of token to the debt pool
// would keep the position at or above the given ratio floor.
func (e *Engine) DebtCanIncrease(account, token common.Address, amount *big.Int, ratioBps uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if amount == nil || amount.Sign() < 0 {
		return false
	}
	return e.debtCanIncreaseLocked(account, token, amount, ratioBps)
}

func (e *Engine) debtCanIncreaseLocked(account, token common.Address, amount *big.Int, ratioBps uint64) bool {
	bal := e.debt.Balance(account, token)
	after := new(big.Int).Add(bal, amount)
	debtValue := e.debt.TotalOf(account)
	debtValue.Sub(debtValue, e.debt.TokenValue(token, bal))
	debtValue.Add(debtValue, e.debt.TokenValue(token, after))
	return ratioSatisfied(e.collateral.TotalOf(account), debtValue, ratioBps)
}

// MaxToMint returns the largest amount of token the account could mint while
// keeping its position at or above the given ratio floor. The result is
// conservative: minting it succeeds, minting one unit more fails.
func (e *Engine) MaxToMint(account, token common.Address, ratioBps uint64) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxToMintLocked(account, token, ratioBps)
}

func (e *Engine) maxToMintLocked(account, token common.Address, ratioBps uint64) *big.Int {
	tok, ok := e.registry.Metadata(token)
	if !ok || !tok.Mintable || ratioBps == 0 {
		return big.NewInt(0)
	}
	price, priceDecimals := e.oracle.Price(token)
	if price == nil || price.Sign() <= 0 {
		return big.NewInt(0)
	}
	collateralValue := e.collateral.TotalOf(account)
	limit := new(big.Int).Mul(collateralValue, basisPoints)
	limit.Quo(limit, new(big.Int).SetUint64(ratioBps))

	bal := e.debt.Balance(account, token)
	debtOther := e.debt.TotalOf(account)
	debtOther.Sub(debtOther, e.debt.TokenValue(token, bal))
	if limit.Cmp(debtOther) <= 0 {
		return big.NewInt(0)
	}
	// Largest post-mint balance of this token whose round-up value still
	// fits under the limit.
	headroom := new(big.Int).Sub(limit, debtOther)
	maxBalance := amountForValueDown(headroom, price, tok.Decimals, priceDecimals)
	max := maxBalance.Sub(maxBalance, bal)
	if max.Sign() < 0 {
		return big.NewInt(0)
	}
	return max
}

// MaxToWithdraw returns the largest amount of token the account could
// withdraw while keeping its position at or above the given ratio floor.
func (e *Engine) MaxToWithdraw(account, token common.Address, ratioBps uint64) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxToWithdrawLocked(account, token, ratioBps)
}

func (e *Engine) maxToWithdrawLocked(account, token common.Address, ratioBps uint64) *big.Int {
	tok, ok := e.registry.Metadata(token)
	if !ok {
		return big.NewInt(0)
	}
	bal := e.collateral.Balance(account, token)
	debtValue := e.debt.TotalOf(account)
	if debtValue.Sign() == 0 {
		return bal
	}
	required := ceilDiv(new(big.Int).Mul(debtValue, new(big.Int).SetUint64(ratioBps)), basisPoints)
	collateralOther := e.collateral.TotalOf(account)
	collateralOther.Sub(collateralOther, e.collateral.TokenValue(token, bal))
	if collateralOther.Cmp(required) >= 0 {
		return bal
	}
	// Smallest remaining balance of this token whose round-down value still
	// covers the shortfall.
	shortfall := new(big.Int).Sub(required, collateralOther)
	price, priceDecimals := e.oracle.Price(token)
	if price == nil || price.Sign() <= 0 {
		return big.NewInt(0)
	}
	minBalance := amountForValueUp(shortfall, price, tok.Decimals, priceDecimals)
	max := new(big.Int).Sub(bal, minBalance)
	if max.Sign() < 0 {
		return big.NewInt(0)
	}
	return max
}

// MinToDeposit returns the smallest top-up of token that would lift the
// position to the given ratio floor, or zero if it already satisfies it.
// A token without a price can never lift the ratio; the query returns zero
// for it even when the position is short.
func (e *Engine) MinToDeposit(account, token common.Address, ratioBps uint64) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.minToDepositLocked(account, token, ratioBps)
}

func (e *Engine) minToDepositLocked(account, token common.Address, ratioBps uint64) *big.Int {
	tok, ok := e.registry.Metadata(token)
	if !ok || !tok.Collateral {
		return big.NewInt(0)
	}
	debtValue := e.debt.TotalOf(account)
	if debtValue.Sign() == 0 {
		return big.NewInt(0)
	}
	required := ceilDiv(new(big.Int).Mul(debtValue, new(big.Int).SetUint64(ratioBps)), basisPoints)
	collateralValue := e.collateral.TotalOf(account)
	if collateralValue.Cmp(required) >= 0 {
		return big.NewInt(0)
	}
	price, priceDecimals := e.oracle.Price(token)
	if price == nil || price.Sign() <= 0 {
		return big.NewInt(0)
	}
	bal := e.collateral.Balance(account, token)
	// Value this token's post-deposit balance must reach.
	needed := new(big.Int).Sub(required, collateralValue)
	needed.Add(needed, e.collateral.TokenValue(token, bal))
	minBalance := amountForValueUp(needed, price, tok.Decimals, priceDecimals)
	min := minBalance.Sub(minBalance, bal)
	if min.Sign() < 0 {
		return big.NewInt(0)
	}
	return min
}

// MintMax mints the largest safe amount of token against the configured
// minimum ratio and returns it.
func (e *Engine) MintMax(account, token common.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	amount := e.maxToMintLocked(account, token, e.params.MinCollateralRatioBps)
	if amount.Sign() == 0 {
		return nil, ErrInvalidAmount
	}
	if err := e.mintLocked(account, token, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// WithdrawMax withdraws the largest safe amount of token against the
// configured minimum ratio and returns it.
func (e *Engine) WithdrawMax(account, token common.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	amount := e.maxToWithdrawLocked(account, token, e.params.MinCollateralRatioBps)
	if amount.Sign() == 0 {
		return nil, ErrInvalidAmount
	}
	if err := e.withdrawLocked(account, token, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// RepayMax repays the account's full outstanding debt of token and returns
// the amount repaid.
func (e *Engine) RepayMax(account, token common.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	amount := e.debt.Balance(account, token)
	if amount.Sign() == 0 {
		return nil, ErrInvalidAmount
	}
	if err := e.repayLocked(account, token, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// CollateralBalance returns the account's raw collateral balance of token.
func (e *Engine) CollateralBalance(account, token common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.collateral.Balance(account, token)
}

// DebtBalance returns the account's raw debt balance of token.
func (e *Engine) DebtBalance(account, token common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.debt.Balance(account, token)
}

// CollateralValueOf returns the combined value of the account's collateral.
func (e *Engine) CollateralValueOf(account common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.collateral.TotalOf(account)
}

// DebtValueOf returns the combined value of the account's debt.
func (e *Engine) DebtValueOf(account common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.debt.TotalOf(account)
}

// CollateralTotal returns the combined value of the collateral pool.
func (e *Engine) CollateralTotal() *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.collateral.Total()
}

// DebtTotal returns the combined value of the debt pool.
func (e *Engine) DebtTotal() *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.debt.Total()
}

// RatioBps returns the account's current collateralization ratio in basis
// points. The second return is false when the account has no debt and the
// ratio is undefined.
func (e *Engine) RatioBps(account common.Address) (*big.Int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ratioBpsLocked(account)
}

func (e *Engine) ratioBpsLocked(account common.Address) (*big.Int, bool) {
	debtValue := e.debt.TotalOf(account)
	if debtValue.Sign() == 0 {
		return nil, false
	}
	ratio := new(big.Int).Mul(e.collateral.TotalOf(account), basisPoints)
	return ratio.Quo(ratio, debtValue), true
}

// IsRewardEligible reports whether the account's position clears the reward
// eligibility floor. Accounts without debt are trivially eligible and carry
// zero weight.
func (e *Engine) IsRewardEligible(account common.Address) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ratioAtLeastLocked(account, e.params.RewardEligibilityRatioBps)
}

// CanClaimReward reports whether the account's position clears the minimum
// collateralization floor, the weaker gate applied at payout time.
func (e *Engine) CanClaimReward(account common.Address) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ratioAtLeastLocked(account, e.params.MinCollateralRatioBps)
}

func (e *Engine) ratioAtLeastLocked(account common.Address, floorBps uint64) bool {
	return ratioSatisfied(e.collateral.TotalOf(account), e.debt.TotalOf(account), floorBps)
}

// RewardView is the read surface the reward distributor works against. Its
// methods do not lock; the caller must hold the engine's StateLock.
type RewardView struct {
	e *Engine
}

func (e *Engine) RewardView() RewardView { return RewardView{e: e} }

// WeightOf returns the account's debt value, its reward weight.
func (v RewardView) WeightOf(account common.Address) *big.Int {
	return v.e.debt.TotalOf(account)
}

// EligibleWeight sums the debt value of every account currently clearing the
// reward eligibility floor.
func (v RewardView) EligibleWeight() *big.Int {
	total := big.NewInt(0)
	for _, account := range v.e.debt.Accounts() {
		if v.e.ratioAtLeastLocked(account, v.e.params.RewardEligibilityRatioBps) {
			total.Add(total, v.e.debt.TotalOf(account))
		}
	}
	return total
}

// IsEligible reports whether the account clears the reward eligibility floor.
func (v RewardView) IsEligible(account common.Address) bool {
	return v.e.ratioAtLeastLocked(account, v.e.params.RewardEligibilityRatioBps)
}

// CanPayout reports whether the account clears the minimum collateralization
// floor required to receive a claim.
func (v RewardView) CanPayout(account common.Address) bool {
	return v.e.ratioAtLeastLocked(account, v.e.params.MinCollateralRatioBps)
}
