// Package bank is the in-process token custody backing the protocol: plain
// balances and allowances per token, with mint and burn reserved for the
// protocol modules holding a reference to the ledger.
package bank

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidAmount         = errors.New("bank: non-zero amount expected")
	ErrInsufficientBalance   = errors.New("bank: insufficient token balance")
	ErrInsufficientAllowance = errors.New("bank: insufficient allowance")
)

// Ledger tracks balances and allowances for every token. Safe for concurrent
// use.
type Ledger struct {
	mu         sync.RWMutex
	balances   map[common.Address]map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]map[common.Address]*big.Int
}

func NewLedger() *Ledger {
	return &Ledger{
		balances:   make(map[common.Address]map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]map[common.Address]*big.Int),
	}
}

func (l *Ledger) balanceRef(token, account common.Address) *big.Int {
	accounts, ok := l.balances[token]
	if !ok {
		accounts = make(map[common.Address]*big.Int)
		l.balances[token] = accounts
	}
	bal, ok := accounts[account]
	if !ok {
		bal = big.NewInt(0)
		accounts[account] = bal
	}
	return bal
}

func (l *Ledger) allowanceRef(token, owner, spender common.Address) *big.Int {
	owners, ok := l.allowances[token]
	if !ok {
		owners = make(map[common.Address]map[common.Address]*big.Int)
		l.allowances[token] = owners
	}
	spenders, ok := owners[owner]
	if !ok {
		spenders = make(map[common.Address]*big.Int)
		owners[owner] = spenders
	}
	allowance, ok := spenders[spender]
	if !ok {
		allowance = big.NewInt(0)
		spenders[spender] = allowance
	}
	return allowance
}

// BalanceOf returns a copy of the account's balance of token.
func (l *Ledger) BalanceOf(token, account common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if accounts, ok := l.balances[token]; ok {
		if bal, ok := accounts[account]; ok {
			return new(big.Int).Set(bal)
		}
	}
	return big.NewInt(0)
}

// Allowance returns a copy of the amount spender may move from owner.
func (l *Ledger) Allowance(token, owner, spender common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if owners, ok := l.allowances[token]; ok {
		if spenders, ok := owners[owner]; ok {
			if allowance, ok := spenders[spender]; ok {
				return new(big.Int).Set(allowance)
			}
		}
	}
	return big.NewInt(0)
}

// Approve sets spender's allowance over owner's tokens. A zero amount
// revokes it.
func (l *Ledger) Approve(token, owner, spender common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.allowanceRef(token, owner, spender).Set(amount)
	return nil
}

// Mint creates amount of token in the account.
func (l *Ledger) Mint(token, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.balanceRef(token, to)
	bal.Add(bal, amount)
	return nil
}

// Transfer moves amount of token between accounts.
func (l *Ledger) Transfer(token, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(token, from, to, amount)
}

// TransferFrom moves owner's tokens to the destination, consuming spender's
// allowance. All checks run before any mutation so a failure leaves both the
// balance and the allowance intact.
func (l *Ledger) TransferFrom(token, owner, spender, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	allowance, err := l.checkAllowance(token, owner, spender, amount)
	if err != nil {
		return err
	}
	bal := l.balanceRef(token, owner)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if allowance != nil {
		allowance.Sub(allowance, amount)
	}
	bal.Sub(bal, amount)
	dst := l.balanceRef(token, to)
	dst.Add(dst, amount)
	return nil
}

// BurnFrom destroys owner's tokens, consuming spender's allowance.
func (l *Ledger) BurnFrom(token, owner, spender common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	allowance, err := l.checkAllowance(token, owner, spender, amount)
	if err != nil {
		return err
	}
	bal := l.balanceRef(token, owner)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if allowance != nil {
		allowance.Sub(allowance, amount)
	}
	bal.Sub(bal, amount)
	return nil
}

// checkAllowance verifies spender may move amount of owner's tokens and
// returns the allowance to deduct from, or nil when owner spends directly.
func (l *Ledger) checkAllowance(token, owner, spender common.Address, amount *big.Int) (*big.Int, error) {
	if owner == spender {
		return nil, nil
	}
	allowance := l.allowanceRef(token, owner, spender)
	if allowance.Cmp(amount) < 0 {
		return nil, ErrInsufficientAllowance
	}
	return allowance, nil
}

func (l *Ledger) move(token, from, to common.Address, amount *big.Int) error {
	bal := l.balanceRef(token, from)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	bal.Sub(bal, amount)
	dst := l.balanceRef(token, to)
	dst.Add(dst, amount)
	return nil
}
