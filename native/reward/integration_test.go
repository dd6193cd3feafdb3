package reward_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"synthmint/native/bank"
	"synthmint/native/mint"
	"synthmint/native/oracle"
	"synthmint/native/reward"
)

// priceOne is 1.0 with 8 price decimals.
var priceOne = big.NewInt(100_000_000)

func wei(units int64, exp int) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
	return scale.Mul(big.NewInt(units), scale)
}

func TestEngineDistributorEndToEnd(t *testing.T) {
	moduleAddr := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	feeCollector := common.HexToAddress("0x00000000000000000000000000000000000000a2")
	wlqd := common.HexToAddress("0x0000000000000000000000000000000000000c01")
	susd := common.HexToAddress("0x0000000000000000000000000000000000000c02")

	o := oracle.NewOracle()
	r := oracle.NewRegistry()
	require.NoError(t, r.Register(mint.Token{Address: wlqd, Symbol: "WLQD", Decimals: 18, Collateral: true}))
	require.NoError(t, r.Register(mint.Token{Address: susd, Symbol: "sUSD", Decimals: 18, Mintable: true}))
	require.NoError(t, o.SetPrice(wlqd, priceOne, 8))
	require.NoError(t, o.SetPrice(susd, priceOne, 8))

	vault := bank.NewLedger()
	engine := mint.NewEngine(mint.Params{
		MinCollateralRatioBps:     30_000,
		RewardEligibilityRatioBps: 50_000,
		MintFeeBps:                50,
	}, o, r, vault, moduleAddr, feeCollector)

	clock := &testClock{now: 1_000_000}
	dist := reward.NewDistributor(reward.Config{
		Owner:           owner,
		RewardToken:     rwdToken,
		Address:         distAddr,
		EpochDuration:   24 * time.Hour,
		MinPushInterval: time.Hour,
	}, engine.RewardView(), vault, engine.StateLock(), clock.Now)
	engine.SetWeightObserver(dist)
	require.NoError(t, vault.Mint(rwdToken, distAddr, big.NewInt(1e18)))

	// Alice opens a position sitting exactly on the 500% reward floor.
	require.NoError(t, vault.Mint(wlqd, acctAlice, wei(25, 17)))
	require.NoError(t, vault.Approve(wlqd, acctAlice, moduleAddr, wei(25, 17)))
	require.NoError(t, engine.Deposit(acctAlice, wlqd, wei(25, 17)))
	require.NoError(t, engine.Mint(acctAlice, susd, wei(5, 17)))
	require.True(t, engine.IsRewardEligible(acctAlice))

	require.NoError(t, dist.Push())
	require.NoError(t, dist.UpdateRate(owner, targetRate))
	clock.advance(3600)
	require.NoError(t, dist.Push())
	require.Equal(t, pushedRate, dist.Rate())

	clock.advance(600)
	want := new(big.Int).Mul(big.NewInt(600), pushedRate)
	require.Equal(t, want, dist.Earned(acctAlice))

	// Minting settles the stash under the old weight before the debt moves,
	// and the extra debt drops the position below the reward floor.
	require.NoError(t, engine.Mint(acctAlice, susd, big.NewInt(2)))
	require.False(t, engine.IsRewardEligible(acctAlice))

	// Earning has stopped, but the earlier stash stays claimable while the
	// position clears the 300% payout floor.
	clock.advance(600)
	require.Equal(t, want, dist.Earned(acctAlice))
	require.True(t, engine.CanClaimReward(acctAlice))
	paid, err := dist.Claim(acctAlice)
	require.NoError(t, err)
	require.Equal(t, want, paid)
	require.Equal(t, want, vault.BalanceOf(rwdToken, acctAlice))
}
