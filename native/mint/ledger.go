package mint

import (
	"bytes"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// LedgerRole selects which pool a Ledger instance backs. The role decides
// which metadata flag admits a token and which way balance values round.
type LedgerRole int

const (
	// CollateralRole admits collateral-eligible tokens and values balances
	// rounding down, so collateral is never overstated.
	CollateralRole LedgerRole = iota
	// DebtRole admits mintable tokens and values balances rounding up, so
	// debt is never understated.
	DebtRole
)

// Ledger tracks per-account, per-token raw balances for one pool and values
// them through the oracle. It is not safe for concurrent use; the engine
// serializes access.
type Ledger struct {
	role     LedgerRole
	oracle   PriceOracle
	registry TokenRegistry

	balances map[common.Address]map[common.Address]*big.Int
	totals   map[common.Address]*big.Int

	observer WeightObserver
}

func NewLedger(role LedgerRole, oracle PriceOracle, registry TokenRegistry) *Ledger {
	return &Ledger{
		role:     role,
		oracle:   oracle,
		registry: registry,
		balances: make(map[common.Address]map[common.Address]*big.Int),
		totals:   make(map[common.Address]*big.Int),
	}
}

// SetObserver wires the reward distributor checkpoint hook. Only the debt
// ledger carries an observer.
func (l *Ledger) SetObserver(obs WeightObserver) {
	l.observer = obs
}

func (l *Ledger) roundUp() bool { return l.role == DebtRole }

func (l *Ledger) admits(tok Token) bool {
	if l.role == DebtRole {
		return tok.Mintable
	}
	return tok.Collateral
}

// Increase adds amount to the account's balance of token. The token must be
// registered and carry the pool's eligibility flag.
func (l *Ledger) Increase(account, token common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	tok, ok := l.registry.Metadata(token)
	if !ok {
		return ErrUnknownToken
	}
	if !l.admits(tok) {
		return ErrTokenNotEligible
	}
	l.notifyWeightChange(account)
	l.balanceRef(account, token).Add(l.balanceRef(account, token), amount)
	l.totalRef(token).Add(l.totalRef(token), amount)
	return nil
}

// Decrease removes amount from the account's balance of token.
func (l *Ledger) Decrease(account, token common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	bal := l.Balance(account, token)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	l.notifyWeightChange(account)
	ref := l.balanceRef(account, token)
	ref.Sub(ref, amount)
	total := l.totalRef(token)
	total.Sub(total, amount)
	return nil
}

func (l *Ledger) notifyWeightChange(account common.Address) {
	if l.observer != nil {
		l.observer.NoteWeightChange(account)
	}
}

func (l *Ledger) balanceRef(account, token common.Address) *big.Int {
	tokens, ok := l.balances[account]
	if !ok {
		tokens = make(map[common.Address]*big.Int)
		l.balances[account] = tokens
	}
	bal, ok := tokens[token]
	if !ok {
		bal = big.NewInt(0)
		tokens[token] = bal
	}
	return bal
}

func (l *Ledger) totalRef(token common.Address) *big.Int {
	total, ok := l.totals[token]
	if !ok {
		total = big.NewInt(0)
		l.totals[token] = total
	}
	return total
}

// Balance returns a copy of the account's raw balance of token.
func (l *Ledger) Balance(account, token common.Address) *big.Int {
	if tokens, ok := l.balances[account]; ok {
		if bal, ok := tokens[token]; ok {
			return copyBig(bal)
		}
	}
	return big.NewInt(0)
}

// TokenBalance returns a copy of the aggregate raw balance of token across
// all accounts.
func (l *Ledger) TokenBalance(token common.Address) *big.Int {
	if total, ok := l.totals[token]; ok {
		return copyBig(total)
	}
	return big.NewInt(0)
}

// TokenValue normalizes a raw amount of token to the common value scale using
// the pool's rounding direction.
func (l *Ledger) TokenValue(token common.Address, amount *big.Int) *big.Int {
	price, priceDecimals := l.oracle.Price(token)
	tok, ok := l.registry.Metadata(token)
	if !ok {
		return big.NewInt(0)
	}
	return valueOfAmount(amount, price, tok.Decimals, priceDecimals, l.roundUp())
}

// TotalOf returns the combined value of the account's balances.
func (l *Ledger) TotalOf(account common.Address) *big.Int {
	total := big.NewInt(0)
	tokens, ok := l.balances[account]
	if !ok {
		return total
	}
	for _, token := range sortedTokens(tokens) {
		total.Add(total, l.TokenValue(token, tokens[token]))
	}
	return total
}

// Total returns the combined value of the pool. Each token's aggregate
// balance is valued once, so the result can diverge from the per-account sum
// by up to one value unit per token.
func (l *Ledger) Total() *big.Int {
	total := big.NewInt(0)
	for _, token := range sortedTokens(l.totals) {
		total.Add(total, l.TokenValue(token, l.totals[token]))
	}
	return total
}

// Accounts lists every account that has ever held a balance in the pool, in
// deterministic order.
func (l *Ledger) Accounts() []common.Address {
	return sortedTokens(l.balances)
}

// Tokens lists every token the pool has ever held, in deterministic order.
func (l *Ledger) Tokens() []common.Address {
	return sortedTokens(l.totals)
}

func sortedTokens[V any](m map[common.Address]V) []common.Address {
	keys := make([]common.Address, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})
	return keys
}
