package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"stakeledger/native/staking"
	"stakeledger/storage"
)

var (
	poolKey     = []byte("staking/pool")
	acctPrefix  = []byte("staking/acct/")
	vaultDomain = []byte("stakeledger/vault/")
)

// Manager maps the staking ledger's logical records onto a key-value store:
// one pool record under a fixed key and one account record per owner under a
// shared prefix. Records are JSON-encoded; account keys embed the hex owner
// so a prefix scan yields a deterministic listing.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func acctKey(owner [20]byte) []byte {
	buf := make([]byte, len(acctPrefix)+hex.EncodedLen(len(owner)))
	copy(buf, acctPrefix)
	hex.Encode(buf[len(acctPrefix):], owner[:])
	return buf
}

// VaultKey derives the opaque custody key for a named vault. The derivation
// mirrors program-derived addressing: custody layers resolve it to whatever
// account or table backs the vault, and the ledger never interprets it.
func VaultKey(vault string) [32]byte {
	return ethcrypto.Keccak256Hash(vaultDomain, []byte(vault))
}

// StakingPoolGet loads the singleton pool record. The boolean reports whether
// the pool has been initialised.
func (m *Manager) StakingPoolGet() (*staking.StakingPool, bool, error) {
	data, err := m.db.Get(poolKey)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	pool := new(staking.StakingPool)
	if err := json.Unmarshal(data, pool); err != nil {
		return nil, false, fmt.Errorf("state: decode pool: %w", err)
	}
	return pool.Normalize(), true, nil
}

// StakingPoolPut persists the pool record.
func (m *Manager) StakingPoolPut(pool *staking.StakingPool) error {
	if pool == nil {
		return fmt.Errorf("state: nil pool")
	}
	data, err := json.Marshal(pool)
	if err != nil {
		return fmt.Errorf("state: encode pool: %w", err)
	}
	return m.db.Put(poolKey, data)
}

// StakeAccountGet loads the stake account for an owner.
func (m *Manager) StakeAccountGet(owner [20]byte) (*staking.UserStakeAccount, bool, error) {
	data, err := m.db.Get(acctKey(owner))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	account := new(staking.UserStakeAccount)
	if err := json.Unmarshal(data, account); err != nil {
		return nil, false, fmt.Errorf("state: decode account: %w", err)
	}
	return account.Normalize(), true, nil
}

// StakeAccountPut persists a stake account record. Fully exited accounts stay
// stored: the terminal penalty record remains available for audit.
func (m *Manager) StakeAccountPut(account *staking.UserStakeAccount) error {
	if account == nil {
		return fmt.Errorf("state: nil account")
	}
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("state: encode account: %w", err)
	}
	return m.db.Put(acctKey(account.Owner), data)
}

// StakeAccountsActive returns every account currently holding stake, in key
// order.
func (m *Manager) StakeAccountsActive() ([]*staking.UserStakeAccount, error) {
	keys, err := m.db.KeysWithPrefix(acctPrefix)
	if err != nil {
		return nil, err
	}
	accounts := make([]*staking.UserStakeAccount, 0, len(keys))
	for _, key := range keys {
		data, err := m.db.Get(key)
		if err != nil {
			return nil, err
		}
		account := new(staking.UserStakeAccount)
		if err := json.Unmarshal(data, account); err != nil {
			return nil, fmt.Errorf("state: decode account: %w", err)
		}
		if !account.IsActive {
			continue
		}
		accounts = append(accounts, account.Normalize())
	}
	return accounts, nil
}
