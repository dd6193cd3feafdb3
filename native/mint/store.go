package mint

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"synthmint/storage"
)

var (
	collateralPrefix = []byte("mint/collateral/")
	debtPrefix       = []byte("mint/debt/")
)

// Store persists ledger balances as rlp-encoded amounts keyed by pool,
// account and token.
type Store struct {
	db storage.Database
}

func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

// Save writes a consistent snapshot of both pools.
func (s *Store) Save(e *Engine) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := s.saveLedger(collateralPrefix, e.collateral); err != nil {
		return err
	}
	return s.saveLedger(debtPrefix, e.debt)
}

func (s *Store) saveLedger(prefix []byte, l *Ledger) error {
	for _, account := range l.Accounts() {
		for token, balance := range l.balances[account] {
			payload, err := rlp.EncodeToBytes(balance)
			if err != nil {
				return fmt.Errorf("mint: encode balance: %w", err)
			}
			if err := s.db.Put(ledgerKey(prefix, account, token), payload); err != nil {
				return fmt.Errorf("mint: persist balance: %w", err)
			}
		}
	}
	return nil
}

// Load restores both pools into a freshly constructed engine.
func (s *Store) Load(e *Engine) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := s.loadLedger(collateralPrefix, e.collateral); err != nil {
		return err
	}
	return s.loadLedger(debtPrefix, e.debt)
}

func (s *Store) loadLedger(prefix []byte, l *Ledger) error {
	var iterErr error
	err := s.db.IteratePrefix(prefix, func(key, value []byte) bool {
		account, token, err := splitLedgerKey(prefix, key)
		if err != nil {
			iterErr = err
			return false
		}
		amount := new(big.Int)
		if err := rlp.DecodeBytes(value, amount); err != nil {
			iterErr = fmt.Errorf("mint: decode balance: %w", err)
			return false
		}
		if amount.Sign() == 0 {
			return true
		}
		l.balanceRef(account, token).Set(amount)
		total := l.totalRef(token)
		total.Add(total, amount)
		return true
	})
	if err != nil {
		return err
	}
	return iterErr
}

func ledgerKey(prefix []byte, account, token common.Address) []byte {
	key := make([]byte, 0, len(prefix)+2*common.AddressLength)
	key = append(key, prefix...)
	key = append(key, account.Bytes()...)
	key = append(key, token.Bytes()...)
	return key
}

func splitLedgerKey(prefix, key []byte) (account, token common.Address, err error) {
	rest := key[len(prefix):]
	if len(rest) != 2*common.AddressLength {
		return common.Address{}, common.Address{}, fmt.Errorf("mint: malformed ledger key %x", key)
	}
	copy(account[:], rest[:common.AddressLength])
	copy(token[:], rest[common.AddressLength:])
	return account, token, nil
}
