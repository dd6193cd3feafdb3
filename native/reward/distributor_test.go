package reward_test

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"synthmint/native/bank"
	"synthmint/native/reward"
	"synthmint/storage"
)

var (
	owner     = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	distAddr  = common.HexToAddress("0x00000000000000000000000000000000000000d2")
	rwdToken  = common.HexToAddress("0x00000000000000000000000000000000000000d3")
	acctAlice = common.HexToAddress("0x0000000000000000000000000000000000000e01")
	acctBob   = common.HexToAddress("0x0000000000000000000000000000000000000e02")
)

// targetRate is the canonical "1 token over two days" drip used across the
// epoch tests: floor(1e18 / 172800).
var targetRate = big.NewInt(5_787_037_037_037)

// pushedRate is what one hour of decay from zero toward targetRate yields:
// floor(targetRate * 3600 / 86400).
var pushedRate = big.NewInt(241_126_543_209)

type fakeBook struct {
	weights      map[common.Address]*big.Int
	ineligible   map[common.Address]bool
	payoutDenied map[common.Address]bool
}

func newFakeBook() *fakeBook {
	return &fakeBook{
		weights:      make(map[common.Address]*big.Int),
		ineligible:   make(map[common.Address]bool),
		payoutDenied: make(map[common.Address]bool),
	}
}

func (b *fakeBook) WeightOf(account common.Address) *big.Int {
	if w, ok := b.weights[account]; ok {
		return new(big.Int).Set(w)
	}
	return big.NewInt(0)
}

func (b *fakeBook) EligibleWeight() *big.Int {
	total := big.NewInt(0)
	for account, w := range b.weights {
		if !b.ineligible[account] {
			total.Add(total, w)
		}
	}
	return total
}

func (b *fakeBook) IsEligible(account common.Address) bool { return !b.ineligible[account] }
func (b *fakeBook) CanPayout(account common.Address) bool  { return !b.payoutDenied[account] }

type testClock struct {
	now int64
}

func (c *testClock) Now() time.Time    { return time.Unix(c.now, 0) }
func (c *testClock) advance(sec int64) { c.now += sec }

type rewardFixture struct {
	t     *testing.T
	clock *testClock
	book  *fakeBook
	vault *bank.Ledger
	dist  *reward.Distributor
}

func newRewardFixture(t *testing.T, pot *big.Int) *rewardFixture {
	t.Helper()
	clock := &testClock{now: 1_000_000}
	book := newFakeBook()
	vault := bank.NewLedger()
	if pot != nil && pot.Sign() > 0 {
		require.NoError(t, vault.Mint(rwdToken, distAddr, pot))
	}
	dist := reward.NewDistributor(reward.Config{
		Owner:           owner,
		RewardToken:     rwdToken,
		Address:         distAddr,
		EpochDuration:   24 * time.Hour,
		MinPushInterval: time.Hour,
	}, book, vault, &sync.Mutex{}, clock.Now)
	return &rewardFixture{t: t, clock: clock, book: book, vault: vault, dist: dist}
}

// prime performs the initial anchoring push, sets the target rate and runs
// one decay step, leaving the distributor unlocking at pushedRate.
func (f *rewardFixture) prime() {
	f.t.Helper()
	require.NoError(f.t, f.dist.Push())
	require.NoError(f.t, f.dist.UpdateRate(owner, targetRate))
	f.clock.advance(3600)
	require.NoError(f.t, f.dist.Push())
	require.Equal(f.t, pushedRate, f.dist.Rate())
}

func TestFirstPushAnchorsEpoch(t *testing.T) {
	f := newRewardFixture(t, big.NewInt(1e18))

	require.NoError(t, f.dist.Push())
	require.Zero(t, f.dist.Rate().Sign())
	require.Equal(t, f.clock.now, f.dist.LastPush())
	require.Equal(t, f.clock.now+86_400, f.dist.EpochEnd())

	require.ErrorIs(t, f.dist.Push(), reward.ErrTooEarly)
}

func TestPushDecaysTowardTarget(t *testing.T) {
	f := newRewardFixture(t, big.NewInt(1e18))
	f.prime()
	require.Equal(t, f.clock.now+86_400, f.dist.EpochEnd())
	require.Equal(t, targetRate, f.dist.TargetRate())

	// Each further step closes part of the remaining gap without ever
	// crossing the target.
	prev := f.dist.Rate()
	for i := 0; i < 5; i++ {
		f.clock.advance(3600)
		require.NoError(t, f.dist.Push())
		rate := f.dist.Rate()
		require.True(t, rate.Cmp(prev) > 0)
		require.True(t, rate.Cmp(targetRate) < 0)
		prev = rate
	}
}

func TestUpdateRateGuards(t *testing.T) {
	f := newRewardFixture(t, big.NewInt(1e18))
	require.ErrorIs(t, f.dist.UpdateRate(acctAlice, targetRate), reward.ErrNotOwner)
	require.ErrorIs(t, f.dist.UpdateRate(owner, nil), reward.ErrInvalidRewardRate)
	require.ErrorIs(t, f.dist.UpdateRate(owner, big.NewInt(0)), reward.ErrInvalidRewardRate)
	require.NoError(t, f.dist.UpdateRate(owner, targetRate))
}

func TestPushWithZeroTargetUnlocksNothing(t *testing.T) {
	f := newRewardFixture(t, big.NewInt(1e18))
	require.NoError(t, f.dist.Push())
	f.clock.advance(3600)
	require.ErrorIs(t, f.dist.Push(), reward.ErrNoRewardsUnlocked)
}

func TestPushRejectsDepletedPot(t *testing.T) {
	f := newRewardFixture(t, nil)
	require.NoError(t, f.dist.Push())
	require.NoError(t, f.dist.UpdateRate(owner, targetRate))
	anchor := f.dist.LastPush()
	f.clock.advance(3600)

	require.ErrorIs(t, f.dist.Push(), reward.ErrRewardsDepleted)
	// A failed push leaves the window untouched.
	require.Zero(t, f.dist.Rate().Sign())
	require.Equal(t, anchor, f.dist.LastPush())

	// Funding the pot lets the same push through.
	require.NoError(t, f.vault.Mint(rwdToken, distAddr, big.NewInt(1e18)))
	require.NoError(t, f.dist.Push())
	require.Equal(t, pushedRate, f.dist.Rate())
}

func TestAccrualSingleAccount(t *testing.T) {
	f := newRewardFixture(t, big.NewInt(1e18))
	f.book.weights[acctAlice] = big.NewInt(1e18)
	f.prime()

	f.clock.advance(600)
	want := new(big.Int).Mul(big.NewInt(600), pushedRate)
	require.Equal(t, want, f.dist.Earned(acctAlice))

	// Earned is pure; asking twice changes nothing.
	require.Equal(t, want, f.dist.Earned(acctAlice))

	// Settling moves it into the stash without changing the total.
	f.dist.UpdateAccount(acctAlice)
	require.Equal(t, want, f.dist.Earned(acctAlice))
}

func TestAccrualSplitsByWeight(t *testing.T) {
	f := newRewardFixture(t, big.NewInt(1e18))
	f.book.weights[acctAlice] = new(big.Int).Mul(big.NewInt(3), big.NewInt(1e18))
	f.book.weights[acctBob] = big.NewInt(1e18)
	f.prime()

	f.clock.advance(600)
	// 600 s of unlock split 3:1.
	unlocked := new(big.Int).Mul(big.NewInt(600), pushedRate)
	quarter := new(big.Int).Quo(unlocked, big.NewInt(4))
	require.Equal(t, quarter, f.dist.Earned(acctBob))
	require.Equal(t, new(big.Int).Mul(quarter, big.NewInt(3)), f.dist.Earned(acctAlice))
}

func TestIneligibleAccountAccruesNothing(t *testing.T) {
	f := newRewardFixture(t, big.NewInt(1e18))
	f.book.weights[acctAlice] = big.NewInt(1e18)
	f.book.weights[acctBob] = big.NewInt(1e18)
	f.book.ineligible[acctBob] = true
	f.prime()

	f.clock.advance(600)
	unlocked := new(big.Int).Mul(big.NewInt(600), pushedRate)
	require.Equal(t, unlocked, f.dist.Earned(acctAlice))
	require.Zero(t, f.dist.Earned(acctBob).Sign())

	// Regaining eligibility only earns from the checkpoint onward.
	f.dist.UpdateAccount(acctBob)
	f.book.ineligible[acctBob] = false
	f.clock.advance(600)
	half := new(big.Int).Quo(unlocked, big.NewInt(2))
	require.Equal(t, half, f.dist.Earned(acctBob))
}

func TestAccrualCappedByEpochEnd(t *testing.T) {
	f := newRewardFixture(t, big.NewInt(1e18))
	f.book.weights[acctAlice] = big.NewInt(1e18)
	f.prime()

	// Far past the epoch end, accrual stops at the cap.
	f.clock.advance(86_400 + 5_000)
	want := new(big.Int).Mul(big.NewInt(86_400), pushedRate)
	require.Equal(t, want, f.dist.Earned(acctAlice))
}

func TestZeroEligibleWeightFreezesAccumulator(t *testing.T) {
	f := newRewardFixture(t, big.NewInt(1e18))
	f.book.weights[acctAlice] = big.NewInt(1e18)
	f.prime()

	f.clock.advance(600)
	earned := new(big.Int).Mul(big.NewInt(600), pushedRate)

	// Checkpoint the account, then drop its weight. With nobody eligible
	// the accumulator freezes and the stash stays exact.
	f.dist.NoteWeightChange(acctAlice)
	f.book.weights[acctAlice] = big.NewInt(0)
	f.clock.advance(600)
	require.Equal(t, earned, f.dist.Earned(acctAlice))
}

func TestClaim(t *testing.T) {
	f := newRewardFixture(t, big.NewInt(1e18))
	f.book.weights[acctAlice] = big.NewInt(1e18)
	f.prime()

	_, err := f.dist.Claim(acctBob)
	require.ErrorIs(t, err, reward.ErrNoRewardsEarned)

	f.clock.advance(600)
	want := new(big.Int).Mul(big.NewInt(600), pushedRate)

	// An undercollateralized position earns but cannot collect.
	f.book.payoutDenied[acctAlice] = true
	_, err = f.dist.Claim(acctAlice)
	require.ErrorIs(t, err, reward.ErrClaimRejected)
	require.Equal(t, want, f.dist.Earned(acctAlice))

	f.book.payoutDenied[acctAlice] = false
	paid, err := f.dist.Claim(acctAlice)
	require.NoError(t, err)
	require.Equal(t, want, paid)
	require.Equal(t, want, f.vault.BalanceOf(rwdToken, acctAlice))
	require.Zero(t, f.dist.Earned(acctAlice).Sign())

	_, err = f.dist.Claim(acctAlice)
	require.ErrorIs(t, err, reward.ErrNoRewardsEarned)
}

func TestStoreRoundTrip(t *testing.T) {
	f := newRewardFixture(t, big.NewInt(1e18))
	f.book.weights[acctAlice] = big.NewInt(1e18)
	f.prime()
	f.clock.advance(600)
	f.dist.UpdateAccount(acctAlice)

	db := storage.NewMemDB()
	store := reward.NewStore(db)
	require.NoError(t, store.Save(f.dist))

	restored := reward.NewDistributor(f.dist.Config(), f.book, f.vault, &sync.Mutex{}, f.clock.Now)
	require.NoError(t, store.Load(restored))

	require.Equal(t, f.dist.Rate(), restored.Rate())
	require.Equal(t, f.dist.TargetRate(), restored.TargetRate())
	require.Equal(t, f.dist.EpochEnd(), restored.EpochEnd())
	require.Equal(t, f.dist.LastPush(), restored.LastPush())
	require.Equal(t, f.dist.Earned(acctAlice), restored.Earned(acctAlice))
}
