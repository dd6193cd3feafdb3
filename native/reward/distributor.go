package reward

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// accumulatorScale is the fixed-point correction carried by the per-weight
// accumulator so integer division keeps enough precision.
var accumulatorScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Clock supplies the current time. Injected so tests can drive the epoch
// machinery deterministically.
type Clock func() time.Time

// Config are the distributor knobs. Durations are whole seconds.
type Config struct {
	// Owner is the only address allowed to change the target rate.
	Owner common.Address
	// RewardToken is the token rewards are paid in.
	RewardToken common.Address
	// Address is the custody account the reward pot sits in.
	Address common.Address
	// EpochDuration is the decay horizon of the unlock rate.
	EpochDuration time.Duration
	// MinPushInterval is the minimum spacing between pushes.
	MinPushInterval time.Duration
}

// Normalize fills zero-valued knobs with the protocol defaults.
func (c Config) Normalize() Config {
	if c.EpochDuration <= 0 {
		c.EpochDuration = 24 * time.Hour
	}
	if c.MinPushInterval <= 0 {
		c.MinPushInterval = time.Hour
	}
	return c
}

// PositionBook is the read surface the distributor consults for reward
// weights and ratio gates. The engine's RewardView satisfies it; calls
// happen with the shared state lock held.
type PositionBook interface {
	// WeightOf returns the account's reward weight, its debt value.
	WeightOf(account common.Address) *big.Int
	// EligibleWeight sums the weight of every currently eligible account.
	EligibleWeight() *big.Int
	// IsEligible gates accrual on the reward eligibility ratio floor.
	IsEligible(account common.Address) bool
	// CanPayout gates claims on the minimum collateralization floor.
	CanPayout(account common.Address) bool
}

// TokenVault is the slice of the custody boundary the distributor needs.
type TokenVault interface {
	Transfer(token, from, to common.Address, amount *big.Int) error
	BalanceOf(token, account common.Address) *big.Int
}

type accountState struct {
	// accPaid is the accumulator value the account last settled against.
	accPaid *big.Int
	// stash is settled, claimable reward.
	stash *big.Int
}

// Distributor drips the reward pot to debt holders proportionally to their
// weight. The unlock rate decays toward an owner-set target over each epoch;
// a push both advances the accumulator and re-anchors the epoch window.
//
// The distributor shares the engine's state lock so reward accounting and
// position changes serialize as one writer.
type Distributor struct {
	mu    *sync.Mutex
	clock Clock
	cfg   Config
	book  PositionBook
	vault TokenVault

	// rate is the current unlock rate in reward token units per second.
	rate *big.Int
	// targetRate is the rate the epoch decay converges toward.
	targetRate *big.Int
	// epochEnd caps accrual until the next push, unix seconds.
	epochEnd int64
	// lastPush throttles pushes, unix seconds. Zero means never pushed.
	lastPush int64
	// lastUpdate is the accumulator timestamp, unix seconds.
	lastUpdate int64
	// accumulator is reward-per-weight scaled by accumulatorScale.
	accumulator *big.Int

	accounts map[common.Address]*accountState
}

// NewDistributor wires the distributor over the position book and vault.
// The lock must be the engine's StateLock; a nil clock means wall time.
func NewDistributor(cfg Config, book PositionBook, vault TokenVault, lock *sync.Mutex, clock Clock) *Distributor {
	if clock == nil {
		clock = time.Now
	}
	return &Distributor{
		mu:          lock,
		clock:       clock,
		cfg:         cfg.Normalize(),
		book:        book,
		vault:       vault,
		rate:        big.NewInt(0),
		targetRate:  big.NewInt(0),
		accumulator: big.NewInt(0),
		accounts:    make(map[common.Address]*accountState),
	}
}

func (d *Distributor) Config() Config { return d.cfg }

func (d *Distributor) account(addr common.Address) *accountState {
	st, ok := d.accounts[addr]
	if !ok {
		st = &accountState{accPaid: big.NewInt(0), stash: big.NewInt(0)}
		d.accounts[addr] = st
	}
	return st
}

// pendingDeltaLocked computes the accumulator growth between lastUpdate and
// min(now, epochEnd) under the current rate, without mutating anything. The
// second return is the timestamp the accumulator would advance to.
func (d *Distributor) pendingDeltaLocked(now int64) (*big.Int, int64) {
	target := now
	if d.epochEnd > 0 && d.epochEnd < target {
		target = d.epochEnd
	}
	if target <= d.lastUpdate {
		return big.NewInt(0), d.lastUpdate
	}
	if d.lastUpdate == 0 || d.rate.Sign() <= 0 {
		return big.NewInt(0), target
	}
	weight := d.book.EligibleWeight()
	if weight.Sign() <= 0 {
		// Nobody is eligible; rewards for the interval stay locked.
		return big.NewInt(0), target
	}
	elapsed := big.NewInt(target - d.lastUpdate)
	delta := new(big.Int).Mul(elapsed, d.rate)
	delta.Mul(delta, accumulatorScale)
	delta.Quo(delta, weight)
	return delta, target
}

func (d *Distributor) advanceLocked(now int64) {
	delta, target := d.pendingDeltaLocked(now)
	d.accumulator.Add(d.accumulator, delta)
	d.lastUpdate = target
}

// settleLocked folds the account's share of accumulator growth into its
// stash. Accrual only lands while the account clears the eligibility floor;
// the checkpoint fast-forwards either way so missed intervals never pay out
// retroactively.
func (d *Distributor) settleLocked(addr common.Address) {
	st := d.account(addr)
	if d.accumulator.Cmp(st.accPaid) <= 0 {
		return
	}
	if d.book.IsEligible(addr) {
		gain := new(big.Int).Sub(d.accumulator, st.accPaid)
		gain.Mul(gain, d.book.WeightOf(addr))
		gain.Quo(gain, accumulatorScale)
		st.stash.Add(st.stash, gain)
	}
	st.accPaid.Set(d.accumulator)
}

// NoteWeightChange checkpoints the account before its debt balance changes.
// Called from the engine with the state lock already held; it must not lock.
func (d *Distributor) NoteWeightChange(addr common.Address) {
	d.advanceLocked(d.clock().Unix())
	d.settleLocked(addr)
}

// UpdateGlobal advances the accumulator to the current time, capped by the
// epoch end.
func (d *Distributor) UpdateGlobal() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.advanceLocked(d.clock().Unix())
}

// UpdateAccount settles the account's checkpoint. Anyone may call it for any
// account.
func (d *Distributor) UpdateAccount(addr common.Address) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.advanceLocked(d.clock().Unix())
	d.settleLocked(addr)
}

// UpdateRate sets a new target rate the epoch decay converges toward. Only
// the owner may call it; the accumulator is brought current first so the new
// target never applies retroactively.
func (d *Distributor) UpdateRate(caller common.Address, target *big.Int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if caller != d.cfg.Owner {
		return ErrNotOwner
	}
	if target == nil || target.Sign() <= 0 {
		return ErrInvalidRewardRate
	}
	d.advanceLocked(d.clock().Unix())
	d.targetRate = new(big.Int).Set(target)
	return nil
}

// Push advances the unlock rate one decay step toward the target and opens a
// fresh epoch window. The first push only anchors the window. Every check
// runs before any state changes, so a failed push leaves the distributor
// untouched.
func (d *Distributor) Push() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.clock().Unix()
	epochSeconds := int64(d.cfg.EpochDuration / time.Second)
	if d.lastPush == 0 {
		d.lastPush = now
		d.lastUpdate = now
		d.epochEnd = now + epochSeconds
		return nil
	}
	elapsed := now - d.lastPush
	if elapsed < int64(d.cfg.MinPushInterval/time.Second) {
		return ErrTooEarly
	}
	// rate += (target - rate) * elapsed / epochDuration
	step := new(big.Int).Sub(d.targetRate, d.rate)
	step.Mul(step, big.NewInt(elapsed))
	step.Quo(step, big.NewInt(epochSeconds))
	newRate := new(big.Int).Add(d.rate, step)

	unlocked := new(big.Int).Mul(newRate, big.NewInt(elapsed))
	if unlocked.Sign() == 0 {
		return ErrNoRewardsUnlocked
	}
	need := new(big.Int).Mul(newRate, big.NewInt(epochSeconds))
	pot := d.vault.BalanceOf(d.cfg.RewardToken, d.cfg.Address)
	if pot.Cmp(need) < 0 {
		return ErrRewardsDepleted
	}

	d.advanceLocked(now)
	d.rate = newRate
	d.lastPush = now
	d.lastUpdate = now
	d.epochEnd = now + epochSeconds
	return nil
}

// Earned returns the account's claimable reward as of now without mutating
// any state: the settled stash plus the share of pending accumulator growth
// the account would receive if settled right now.
func (d *Distributor) Earned(addr common.Address) *big.Int {
	d.mu.Lock()
	defer d.mu.Unlock()
	delta, _ := d.pendingDeltaLocked(d.clock().Unix())
	acc := new(big.Int).Add(d.accumulator, delta)
	total := big.NewInt(0)
	if st, ok := d.accounts[addr]; ok {
		total.Add(total, st.stash)
		acc.Sub(acc, st.accPaid)
	}
	if acc.Sign() > 0 && d.book.IsEligible(addr) {
		gain := acc.Mul(acc, d.book.WeightOf(addr))
		gain.Quo(gain, accumulatorScale)
		total.Add(total, gain)
	}
	return total
}

// Claim settles and pays out the account's stash. Earning requires the
// eligibility floor, but paying out only requires the weaker minimum
// collateralization floor.
func (d *Distributor) Claim(addr common.Address) (*big.Int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.advanceLocked(d.clock().Unix())
	d.settleLocked(addr)
	st := d.account(addr)
	if st.stash.Sign() == 0 {
		return nil, ErrNoRewardsEarned
	}
	if !d.book.CanPayout(addr) {
		return nil, ErrClaimRejected
	}
	amount := new(big.Int).Set(st.stash)
	if err := d.vault.Transfer(d.cfg.RewardToken, d.cfg.Address, addr, amount); err != nil {
		return nil, err
	}
	st.stash.SetInt64(0)
	return amount, nil
}

// Rate returns the current unlock rate per second.
func (d *Distributor) Rate() *big.Int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return new(big.Int).Set(d.rate)
}

// TargetRate returns the rate the decay converges toward.
func (d *Distributor) TargetRate() *big.Int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return new(big.Int).Set(d.targetRate)
}

// EpochEnd returns the unix second accrual is capped at until the next push,
// or zero before the first push.
func (d *Distributor) EpochEnd() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.epochEnd
}

// LastPush returns the unix second of the last push, or zero.
func (d *Distributor) LastPush() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastPush
}
