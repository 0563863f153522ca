package assets

import (
	"fmt"
	"math/big"
	"sync"

	"safepool/storage"
)

// StoreFungible is a database-backed fungible ledger. Each instance is bound
// to one asset id; the zero id carries the native value ledger. Amounts are
// persisted as decimal strings and a missing key reads as zero.
type StoreFungible struct {
	mu     sync.Mutex
	db     storage.Database
	prefix string
}

// NewStoreFungible binds a fungible ledger for the given asset to db.
func NewStoreFungible(db storage.Database, id AssetID) *StoreFungible {
	return &StoreFungible{db: db, prefix: fmt.Sprintf("assets/fungible/%x/", id[:])}
}

func getAmount(db storage.Database, key string) (*big.Int, error) {
	raw, err := db.Get([]byte(key))
	if err != nil {
		if storage.IsNotFound(err) {
			return big.NewInt(0), nil
		}
		return nil, err
	}
	amt, ok := new(big.Int).SetString(string(raw), 10)
	if !ok {
		return nil, fmt.Errorf("assets store: corrupt amount at %q", key)
	}
	return amt, nil
}

func putAmount(db storage.Database, key string, amt *big.Int) error {
	if amt == nil || amt.Sign() == 0 {
		return db.Delete([]byte(key))
	}
	return db.Put([]byte(key), []byte(amt.String()))
}

func (l *StoreFungible) balanceKey(addr [20]byte) string {
	return fmt.Sprintf("%sbal/%x", l.prefix, addr[:])
}

func (l *StoreFungible) allowanceKey(owner, spender [20]byte) string {
	return fmt.Sprintf("%sallow/%x/%x", l.prefix, owner[:], spender[:])
}

// Mint credits value to addr. Genesis and faucet helper.
func (l *StoreFungible) Mint(addr [20]byte, value *big.Int) error {
	amt := cloneAmount(value)
	if amt.Sign() <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	current, err := getAmount(l.db, l.balanceKey(addr))
	if err != nil {
		return err
	}
	return putAmount(l.db, l.balanceKey(addr), current.Add(current, amt))
}

func (l *StoreFungible) BalanceOf(addr [20]byte) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal, err := getAmount(l.db, l.balanceKey(addr))
	if err != nil {
		return big.NewInt(0)
	}
	return bal
}

func (l *StoreFungible) transferLocked(from, to [20]byte, value *big.Int) error {
	amt := cloneAmount(value)
	if amt.Sign() < 0 {
		return ErrNegativeAmount
	}
	if amt.Sign() == 0 {
		return nil
	}
	fromBal, err := getAmount(l.db, l.balanceKey(from))
	if err != nil {
		return err
	}
	if fromBal.Cmp(amt) < 0 {
		return ErrInsufficientBalance
	}
	toBal, err := getAmount(l.db, l.balanceKey(to))
	if err != nil {
		return err
	}
	if err := putAmount(l.db, l.balanceKey(from), fromBal.Sub(fromBal, amt)); err != nil {
		return err
	}
	return putAmount(l.db, l.balanceKey(to), toBal.Add(toBal, amt))
}

func (l *StoreFungible) Transfer(from, to [20]byte, value *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferLocked(from, to, value)
}

func (l *StoreFungible) TransferFrom(spender, from, to [20]byte, value *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	amt := cloneAmount(value)
	if amt.Sign() < 0 {
		return ErrNegativeAmount
	}
	if spender == from {
		return l.transferLocked(from, to, amt)
	}
	allowed, err := getAmount(l.db, l.allowanceKey(from, spender))
	if err != nil {
		return err
	}
	if allowed.Cmp(amt) < 0 {
		return ErrInsufficientAllowance
	}
	if err := l.transferLocked(from, to, amt); err != nil {
		return err
	}
	return putAmount(l.db, l.allowanceKey(from, spender), allowed.Sub(allowed, amt))
}

func (l *StoreFungible) Approve(owner, spender [20]byte, value *big.Int) error {
	amt := cloneAmount(value)
	if amt.Sign() < 0 {
		return ErrNegativeAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return putAmount(l.db, l.allowanceKey(owner, spender), amt)
}

func (l *StoreFungible) Allowance(owner, spender [20]byte) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	allowed, err := getAmount(l.db, l.allowanceKey(owner, spender))
	if err != nil {
		return big.NewInt(0)
	}
	return allowed
}

// StoreNFT is a database-backed ERC-721-shaped ledger.
type StoreNFT struct {
	mu     sync.Mutex
	db     storage.Database
	prefix string
}

// NewStoreNFT binds an NFT ledger for the given asset to db.
func NewStoreNFT(db storage.Database, id AssetID) *StoreNFT {
	return &StoreNFT{db: db, prefix: fmt.Sprintf("assets/nft/%x/", id[:])}
}

func (l *StoreNFT) ownerKey(tokenID *big.Int) string {
	return fmt.Sprintf("%sowner/%s", l.prefix, nftKey(tokenID))
}

func (l *StoreNFT) approvalKey(tokenID *big.Int) string {
	return fmt.Sprintf("%sapprove/%s", l.prefix, nftKey(tokenID))
}

func getAddress(db storage.Database, key string) ([20]byte, bool, error) {
	var out [20]byte
	raw, err := db.Get([]byte(key))
	if err != nil {
		if storage.IsNotFound(err) {
			return out, false, nil
		}
		return out, false, err
	}
	if len(raw) != len(out) {
		return out, false, fmt.Errorf("assets store: corrupt address at %q", key)
	}
	copy(out[:], raw)
	return out, true, nil
}

// Mint assigns tokenID to addr, overwriting any previous owner.
func (l *StoreNFT) Mint(addr [20]byte, tokenID *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.Put([]byte(l.ownerKey(tokenID)), addr[:])
}

func (l *StoreNFT) OwnerOf(tokenID *big.Int) ([20]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	owner, ok, err := getAddress(l.db, l.ownerKey(tokenID))
	if err != nil {
		return [20]byte{}, err
	}
	if !ok {
		return [20]byte{}, ErrUnknownToken
	}
	return owner, nil
}

func (l *StoreNFT) Approve(owner, spender [20]byte, tokenID *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	current, ok, err := getAddress(l.db, l.ownerKey(tokenID))
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownToken
	}
	if current != owner {
		return ErrNotOwner
	}
	return l.db.Put([]byte(l.approvalKey(tokenID)), spender[:])
}

func (l *StoreNFT) TransferFrom(spender, from, to [20]byte, tokenID *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	owner, ok, err := getAddress(l.db, l.ownerKey(tokenID))
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownToken
	}
	if owner != from {
		return ErrNotOwner
	}
	if spender != from {
		approved, _, err := getAddress(l.db, l.approvalKey(tokenID))
		if err != nil {
			return err
		}
		if approved != spender {
			return ErrNotApproved
		}
	}
	if err := l.db.Put([]byte(l.ownerKey(tokenID)), to[:]); err != nil {
		return err
	}
	return l.db.Delete([]byte(l.approvalKey(tokenID)))
}

// StoreMultiToken is a database-backed ERC-1155-shaped ledger.
type StoreMultiToken struct {
	mu     sync.Mutex
	db     storage.Database
	prefix string
}

// NewStoreMultiToken binds a multi-token ledger for the given asset to db.
func NewStoreMultiToken(db storage.Database, id AssetID) *StoreMultiToken {
	return &StoreMultiToken{db: db, prefix: fmt.Sprintf("assets/multi/%x/", id[:])}
}

func (l *StoreMultiToken) balanceKey(addr [20]byte, id *big.Int) string {
	return fmt.Sprintf("%sbal/%x/%s", l.prefix, addr[:], nftKey(id))
}

func (l *StoreMultiToken) operatorKey(owner, operator [20]byte) string {
	return fmt.Sprintf("%sop/%x/%x", l.prefix, owner[:], operator[:])
}

// Mint credits value of token id to addr.
func (l *StoreMultiToken) Mint(addr [20]byte, id, value *big.Int) error {
	amt := cloneAmount(value)
	if amt.Sign() <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	current, err := getAmount(l.db, l.balanceKey(addr, id))
	if err != nil {
		return err
	}
	return putAmount(l.db, l.balanceKey(addr, id), current.Add(current, amt))
}

func (l *StoreMultiToken) BalanceOf(addr [20]byte, id *big.Int) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal, err := getAmount(l.db, l.balanceKey(addr, id))
	if err != nil {
		return big.NewInt(0)
	}
	return bal
}

func (l *StoreMultiToken) SetApprovalForAll(owner, operator [20]byte, approved bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := []byte(l.operatorKey(owner, operator))
	if approved {
		_ = l.db.Put(key, []byte{1})
		return
	}
	_ = l.db.Delete(key)
}

func (l *StoreMultiToken) IsApprovedForAll(owner, operator [20]byte) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.approvedLocked(owner, operator)
}

func (l *StoreMultiToken) approvedLocked(owner, operator [20]byte) bool {
	ok, err := l.db.Has([]byte(l.operatorKey(owner, operator)))
	return err == nil && ok
}

func (l *StoreMultiToken) authorizedLocked(operator, from [20]byte) bool {
	return operator == from || l.approvedLocked(from, operator)
}

func (l *StoreMultiToken) transferOneLocked(from, to [20]byte, id, value *big.Int) error {
	amt := cloneAmount(value)
	if amt.Sign() < 0 {
		return ErrNegativeAmount
	}
	if amt.Sign() == 0 {
		return nil
	}
	fromBal, err := getAmount(l.db, l.balanceKey(from, id))
	if err != nil {
		return err
	}
	if fromBal.Cmp(amt) < 0 {
		return ErrInsufficientBalance
	}
	toBal, err := getAmount(l.db, l.balanceKey(to, id))
	if err != nil {
		return err
	}
	if err := putAmount(l.db, l.balanceKey(from, id), fromBal.Sub(fromBal, amt)); err != nil {
		return err
	}
	return putAmount(l.db, l.balanceKey(to, id), toBal.Add(toBal, amt))
}

func (l *StoreMultiToken) SafeTransferFrom(operator, from, to [20]byte, id, value *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.authorizedLocked(operator, from) {
		return ErrNotApproved
	}
	return l.transferOneLocked(from, to, id, value)
}

func (l *StoreMultiToken) SafeBatchTransferFrom(operator, from, to [20]byte, ids, values []*big.Int) error {
	if len(ids) != len(values) {
		return ErrLengthMismatch
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.authorizedLocked(operator, from) {
		return ErrNotApproved
	}
	// Sum the required amount per id before mutating so a short balance
	// fails the batch without a partial transfer.
	required := make(map[string]*big.Int)
	order := make([]*big.Int, 0, len(ids))
	for i := range ids {
		amt := cloneAmount(values[i])
		if amt.Sign() < 0 {
			return ErrNegativeAmount
		}
		key := nftKey(ids[i])
		if _, ok := required[key]; !ok {
			order = append(order, ids[i])
		}
		total := cloneAmount(required[key])
		required[key] = total.Add(total, amt)
	}
	for _, id := range order {
		fromBal, err := getAmount(l.db, l.balanceKey(from, id))
		if err != nil {
			return err
		}
		if fromBal.Cmp(required[nftKey(id)]) < 0 {
			return ErrInsufficientBalance
		}
	}
	for i := range ids {
		if err := l.transferOneLocked(from, to, ids[i], values[i]); err != nil {
			return err
		}
	}
	return nil
}
