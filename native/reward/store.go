package reward

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"synthmint/storage"
)

var stateKey = []byte("reward/state")

type storedAccount struct {
	Account common.Address
	AccPaid *big.Int
	Stash   *big.Int
}

type storedState struct {
	Rate        *big.Int
	TargetRate  *big.Int
	Accumulator *big.Int
	EpochEnd    uint64
	LastPush    uint64
	LastUpdate  uint64
	Accounts    []storedAccount
}

// Store persists the distributor state as a single rlp-encoded record.
type Store struct {
	db storage.Database
}

func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

func (s *Store) Save(d *Distributor) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	state := storedState{
		Rate:        d.rate,
		TargetRate:  d.targetRate,
		Accumulator: d.accumulator,
		EpochEnd:    uint64(d.epochEnd),
		LastPush:    uint64(d.lastPush),
		LastUpdate:  uint64(d.lastUpdate),
	}
	for _, addr := range sortedAccounts(d.accounts) {
		st := d.accounts[addr]
		state.Accounts = append(state.Accounts, storedAccount{
			Account: addr,
			AccPaid: st.accPaid,
			Stash:   st.stash,
		})
	}
	payload, err := rlp.EncodeToBytes(state)
	if err != nil {
		return fmt.Errorf("reward: encode state: %w", err)
	}
	if err := s.db.Put(stateKey, payload); err != nil {
		return fmt.Errorf("reward: persist state: %w", err)
	}
	return nil
}

// Load restores a previously saved snapshot. A missing record leaves the
// distributor at its zero state.
func (s *Store) Load(d *Distributor) error {
	payload, err := s.db.Get(stateKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var state storedState
	if err := rlp.DecodeBytes(payload, &state); err != nil {
		return fmt.Errorf("reward: decode state: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rate = bigOrZero(state.Rate)
	d.targetRate = bigOrZero(state.TargetRate)
	d.accumulator = bigOrZero(state.Accumulator)
	d.epochEnd = int64(state.EpochEnd)
	d.lastPush = int64(state.LastPush)
	d.lastUpdate = int64(state.LastUpdate)
	d.accounts = make(map[common.Address]*accountState, len(state.Accounts))
	for _, entry := range state.Accounts {
		d.accounts[entry.Account] = &accountState{
			accPaid: bigOrZero(entry.AccPaid),
			stash:   bigOrZero(entry.Stash),
		}
	}
	return nil
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func sortedAccounts(m map[common.Address]*accountState) []common.Address {
	keys := make([]common.Address, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && lessAddress(keys[j], keys[j-1]); j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

func lessAddress(a, b common.Address) bool {
	return a.Cmp(b) < 0
}
