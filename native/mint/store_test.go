package mint_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"synthmint/native/mint"
	"synthmint/storage"
)

func TestStoreRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.deposit(alice, wei(15, 17))
	f.deposit(bob, wei(9, 17))
	require.NoError(t, f.engine.Mint(alice, susd, wei(5, 17)))
	require.NoError(t, f.engine.Mint(bob, susd, wei(1, 17)))

	db := storage.NewMemDB()
	store := mint.NewStore(db)
	require.NoError(t, store.Save(f.engine))

	restored := mint.NewEngine(f.engine.Params(), f.oracle, f.registry, f.vault, moduleAddr, feeCollector)
	require.NoError(t, store.Load(restored))

	require.Equal(t, wei(15, 17), restored.CollateralBalance(alice, wlqd))
	require.Equal(t, wei(9, 17), restored.CollateralBalance(bob, wlqd))
	require.Equal(t, wei(5, 17), restored.DebtBalance(alice, susd))
	require.Equal(t, wei(1, 17), restored.DebtBalance(bob, susd))
	require.Equal(t, f.engine.CollateralTotal(), restored.CollateralTotal())
	require.Equal(t, f.engine.DebtTotal(), restored.DebtTotal())
	require.Equal(t, f.engine.DebtValueOf(alice), restored.DebtValueOf(alice))
}

func TestStoreSaveIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.deposit(alice, wei(15, 17))
	require.NoError(t, f.engine.Mint(alice, susd, wei(5, 17)))

	db := storage.NewMemDB()
	store := mint.NewStore(db)
	require.NoError(t, store.Save(f.engine))

	// Mutate and re-save over the same keys.
	require.NoError(t, f.vault.Approve(susd, alice, moduleAddr, wei(2, 17)))
	require.NoError(t, f.engine.Repay(alice, susd, wei(2, 17)))
	require.NoError(t, store.Save(f.engine))

	restored := mint.NewEngine(f.engine.Params(), f.oracle, f.registry, f.vault, moduleAddr, feeCollector)
	require.NoError(t, store.Load(restored))
	require.Equal(t, wei(3, 17), restored.DebtBalance(alice, susd))
}
