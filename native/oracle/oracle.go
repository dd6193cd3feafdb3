// Package oracle provides the in-process price source and token registry the
// engine consults. Prices are pushed by an operator; metadata is registered
// once at startup and immutable afterwards.
package oracle

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"synthmint/native/mint"
)

var (
	ErrTokenExists  = errors.New("oracle: token already registered")
	ErrInvalidPrice = errors.New("oracle: negative price")
)

type pricePoint struct {
	value    *big.Int
	decimals uint8
}

// Oracle is a settable price source. A token without a pushed price reports
// zero, which the engine treats as "no value".
type Oracle struct {
	mu     sync.RWMutex
	prices map[common.Address]pricePoint
}

func NewOracle() *Oracle {
	return &Oracle{prices: make(map[common.Address]pricePoint)}
}

// SetPrice records the latest price of a token. A zero value marks the token
// as having no usable value.
func (o *Oracle) SetPrice(token common.Address, value *big.Int, decimals uint8) error {
	if value == nil || value.Sign() < 0 {
		return ErrInvalidPrice
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[token] = pricePoint{value: new(big.Int).Set(value), decimals: decimals}
	return nil
}

// Price implements mint.PriceOracle.
func (o *Oracle) Price(token common.Address) (*big.Int, uint8) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	point, ok := o.prices[token]
	if !ok {
		return big.NewInt(0), 0
	}
	return new(big.Int).Set(point.value), point.decimals
}

// Registry holds the static token metadata.
type Registry struct {
	mu     sync.RWMutex
	tokens map[common.Address]mint.Token
}

func NewRegistry() *Registry {
	return &Registry{tokens: make(map[common.Address]mint.Token)}
}

// Register adds a token. Metadata cannot be changed once registered.
func (r *Registry) Register(tok mint.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[tok.Address]; ok {
		return ErrTokenExists
	}
	r.tokens[tok.Address] = tok
	return nil
}

// Metadata implements mint.TokenRegistry.
func (r *Registry) Metadata(token common.Address) (mint.Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tok, ok := r.tokens[token]
	return tok, ok
}

// Tokens returns every registered token.
func (r *Registry) Tokens() []mint.Token {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mint.Token, 0, len(r.tokens))
	for _, tok := range r.tokens {
		out = append(out, tok)
	}
	return out
}
