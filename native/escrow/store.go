package escrow

import (
	"encoding/json"
	"fmt"

	"safepool/storage"
)

var (
	requestKeyPrefix = []byte("escrow/req/")
	hiddenKeyPrefix  = []byte("escrow/hidden/")
)

func requestKey(id [32]byte) []byte {
	buf := make([]byte, len(requestKeyPrefix)+len(id))
	copy(buf, requestKeyPrefix)
	copy(buf[len(requestKeyPrefix):], id[:])
	return buf
}

func hiddenKey(id [32]byte) []byte {
	buf := make([]byte, len(hiddenKeyPrefix)+len(id))
	copy(buf, hiddenKeyPrefix)
	copy(buf[len(hiddenKeyPrefix):], id[:])
	return buf
}

// Store persists escrow requests and hidden deposits in a key-value database
// using JSON codecs. It implements the engine's state interface.
type Store struct {
	db storage.Database
}

// NewStore wraps a database in an escrow state store.
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
		return false, fmt.Errorf("escrow store: decode %q: %w", key, err)
	}
	return true, nil
}

func (s *Store) putJSON(key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("escrow store: encode %q: %w", key, err)
	}
	return s.db.Put(key, raw)
}

func (s *Store) EscrowGet(id [32]byte) (*Request, bool, error) {
	req := new(Request)
	ok, err := s.getJSON(requestKey(id), req)
	if err != nil || !ok {
		return nil, false, err
	}
	return req, true, nil
}

func (s *Store) EscrowPut(req *Request) error {
	if req == nil {
		return fmt.Errorf("escrow store: nil request")
	}
	return s.putJSON(requestKey(req.ID), req)
}

func (s *Store) EscrowDelete(id [32]byte) error {
	return s.db.Delete(requestKey(id))
}

func (s *Store) HiddenGet(id [32]byte) (*HiddenDeposit, bool, error) {
	dep := new(HiddenDeposit)
	ok, err := s.getJSON(hiddenKey(id), dep)
	if err != nil || !ok {
		return nil, false, err
	}
	return dep, true, nil
}

func (s *Store) HiddenPut(dep *HiddenDeposit) error {
	if dep == nil {
		return fmt.Errorf("escrow store: nil deposit")
	}
	return s.putJSON(hiddenKey(dep.ID), dep)
}

func (s *Store) HiddenDelete(id [32]byte) error {
	return s.db.Delete(hiddenKey(id))
}
