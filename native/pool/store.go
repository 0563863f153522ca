package pool

import (
	"encoding/json"
	"fmt"

	"safepool/core/types"
	"safepool/storage"
)

var (
	accountKeyPrefix = []byte("pool/account/")
	issueKeyPrefix   = []byte("pool/issue/")
	supplyKey        = []byte("pool/supply")
	limitsKey        = []byte("pool/limits")
	entitiesKey      = []byte("pool/entities")
)

func accountKey(addr [20]byte) []byte {
	buf := make([]byte, len(accountKeyPrefix)+len(addr))
	copy(buf, accountKeyPrefix)
	copy(buf[len(accountKeyPrefix):], addr[:])
	return buf
}

func issueKey(addr [20]byte) []byte {
	buf := make([]byte, len(issueKeyPrefix)+len(addr))
	copy(buf, issueKeyPrefix)
	copy(buf[len(issueKeyPrefix):], addr[:])
	return buf
}

// Store persists pool state in a key-value database using JSON codecs. It
// implements the engine's state interface.
type Store struct {
	db storage.Database
}

// NewStore wraps a database in a pool state store.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

func (s *Store) getJSON(key []byte, out any) (bool, error) {
	raw, err := s.db.Get(key)
	if err != nil {
		if storage.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("pool store: decode %q: %w", key, err)
	}
	return true, nil
}

func (s *Store) putJSON(key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("pool store: encode %q: %w", key, err)
	}
	return s.db.Put(key, raw)
}

// PoolAccount loads an account, returning a zeroed record when absent.
func (s *Store) PoolAccount(addr [20]byte) (*types.Account, error) {
	acc := types.NewAccount()
	if _, err := s.getJSON(accountKey(addr), acc); err != nil {
		return nil, err
	}
	return acc.Normalize(), nil
}

// PutPoolAccount stores an account record.
func (s *Store) PutPoolAccount(addr [20]byte, account *types.Account) error {
	return s.putJSON(accountKey(addr), account.Normalize())
}

// PoolSupply loads the supply singleton, zeroed when absent.
func (s *Store) PoolSupply() (*types.Supply, error) {
	supply := types.NewSupply()
	if _, err := s.getJSON(supplyKey, supply); err != nil {
		return nil, err
	}
	return supply.Normalize(), nil
}

// PutPoolSupply stores the supply singleton.
func (s *Store) PutPoolSupply(supply *types.Supply) error {
	return s.putJSON(supplyKey, supply.Normalize())
}

// PoolLimits loads the limits singleton, defaulted when absent.
func (s *Store) PoolLimits() (*Limits, error) {
	limits := NewLimits()
	if _, err := s.getJSON(limitsKey, limits); err != nil {
		return nil, err
	}
	return limits.Normalize(), nil
}

// PutPoolLimits stores the limits singleton.
func (s *Store) PutPoolLimits(limits *Limits) error {
	return s.putJSON(limitsKey, limits.Normalize())
}

// PoolEntities loads the entities singleton.
func (s *Store) PoolEntities() (*Entities, error) {
	entities := &Entities{}
	if _, err := s.getJSON(entitiesKey, entities); err != nil {
		return nil, err
	}
	return entities, nil
}

// PutPoolEntities stores the entities singleton.
func (s *Store) PutPoolEntities(entities *Entities) error {
	if entities == nil {
		entities = &Entities{}
	}
	return s.putJSON(entitiesKey, entities)
}

// IssueGet loads the outstanding grant for a recipient.
func (s *Store) IssueGet(recipient [20]byte) (*IssueRecord, bool, error) {
	record := &IssueRecord{}
	ok, err := s.getJSON(issueKey(recipient), record)
	if err != nil || !ok {
		return nil, false, err
	}
	return record.Clone(), true, nil
}

// IssuePut stores the outstanding grant for a recipient.
func (s *Store) IssuePut(recipient [20]byte, record *IssueRecord) error {
	if record == nil {
		return fmt.Errorf("pool store: nil issue record")
	}
	return s.putJSON(issueKey(recipient), record)
}

// IssueDelete removes the outstanding grant for a recipient.
func (s *Store) IssueDelete(recipient [20]byte) error {
	return s.db.Delete(issueKey(recipient))
}
