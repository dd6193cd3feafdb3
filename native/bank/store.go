package bank

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"synthmint/storage"
)

var (
	balancePrefix   = []byte("bank/balance/")
	allowancePrefix = []byte("bank/allowance/")
)

// Store persists token balances and allowances as rlp-encoded amounts.
type Store struct {
	db storage.Database
}

func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

func (s *Store) Save(l *Ledger) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for token, accounts := range l.balances {
		for account, balance := range accounts {
			key := joinKey(balancePrefix, token[:], account[:])
			if err := s.put(key, balance); err != nil {
				return err
			}
		}
	}
	for token, owners := range l.allowances {
		for owner, spenders := range owners {
			for spender, allowance := range spenders {
				key := joinKey(allowancePrefix, token[:], owner[:], spender[:])
				if err := s.put(key, allowance); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (s *Store) put(key []byte, amount *big.Int) error {
	payload, err := rlp.EncodeToBytes(amount)
	if err != nil {
		return fmt.Errorf("bank: encode amount: %w", err)
	}
	if err := s.db.Put(key, payload); err != nil {
		return fmt.Errorf("bank: persist amount: %w", err)
	}
	return nil
}

func (s *Store) Load(l *Ledger) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := s.iterate(balancePrefix, 2, func(addrs []common.Address, amount *big.Int) {
		l.balanceRef(addrs[0], addrs[1]).Set(amount)
	})
	if err != nil {
		return err
	}
	return s.iterate(allowancePrefix, 3, func(addrs []common.Address, amount *big.Int) {
		l.allowanceRef(addrs[0], addrs[1], addrs[2]).Set(amount)
	})
}

func (s *Store) iterate(prefix []byte, parts int, apply func([]common.Address, *big.Int)) error {
	var iterErr error
	err := s.db.IteratePrefix(prefix, func(key, value []byte) bool {
		rest := key[len(prefix):]
		if len(rest) != parts*common.AddressLength {
			iterErr = fmt.Errorf("bank: malformed key %x", key)
			return false
		}
		addrs := make([]common.Address, parts)
		for i := range addrs {
			copy(addrs[i][:], rest[i*common.AddressLength:])
		}
		amount := new(big.Int)
		if err := rlp.DecodeBytes(value, amount); err != nil {
			iterErr = fmt.Errorf("bank: decode amount: %w", err)
			return false
		}
		apply(addrs, amount)
		return true
	})
	if err != nil {
		return err
	}
	return iterErr
}

func joinKey(prefix []byte, parts ...[]byte) []byte {
	key := append([]byte(nil), prefix...)
	for _, part := range parts {
		key = append(key, part...)
	}
	return key
}
