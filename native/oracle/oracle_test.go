package oracle

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"synthmint/native/mint"
)

var token = common.HexToAddress("0x0000000000000000000000000000000000000c01")

func TestOraclePrices(t *testing.T) {
	o := NewOracle()

	// Unknown tokens report zero, not an error.
	value, decimals := o.Price(token)
	require.Zero(t, value.Sign())
	require.Zero(t, decimals)

	require.ErrorIs(t, o.SetPrice(token, nil, 8), ErrInvalidPrice)
	require.ErrorIs(t, o.SetPrice(token, big.NewInt(-1), 8), ErrInvalidPrice)

	require.NoError(t, o.SetPrice(token, big.NewInt(12_345_678), 8))
	value, decimals = o.Price(token)
	require.Equal(t, big.NewInt(12_345_678), value)
	require.Equal(t, uint8(8), decimals)

	// Zero marks the token as worthless.
	require.NoError(t, o.SetPrice(token, big.NewInt(0), 8))
	value, _ = o.Price(token)
	require.Zero(t, value.Sign())
}

func TestRegistryIsImmutable(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Metadata(token)
	require.False(t, ok)

	tok := mint.Token{Address: token, Symbol: "WLQD", Decimals: 18, Collateral: true}
	require.NoError(t, r.Register(tok))
	require.ErrorIs(t, r.Register(tok), ErrTokenExists)

	got, ok := r.Metadata(token)
	require.True(t, ok)
	require.Equal(t, tok, got)
	require.Len(t, r.Tokens(), 1)
}
