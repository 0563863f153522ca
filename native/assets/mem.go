package assets

import (
	"math/big"
	"sync"
)

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// MemFungible is an in-memory fungible ledger with ERC-20 allowance
// semantics. It backs both the native value leg and test tokens.
type MemFungible struct {
	mu         sync.RWMutex
	balances   map[[20]byte]*big.Int
	allowances map[[20]byte]map[[20]byte]*big.Int
}

func NewMemFungible() *MemFungible {
	return &MemFungible{
		balances:   make(map[[20]byte]*big.Int),
		allowances: make(map[[20]byte]map[[20]byte]*big.Int),
	}
}

// Mint credits value to addr out of thin air. Test and genesis helper.
func (l *MemFungible) Mint(addr [20]byte, value *big.Int) error {
	amt := cloneAmount(value)
	if amt.Sign() <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	current, ok := l.balances[addr]
	if !ok {
		current = big.NewInt(0)
	}
	l.balances[addr] = new(big.Int).Add(current, amt)
	return nil
}

func (l *MemFungible) BalanceOf(addr [20]byte) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneAmount(l.balances[addr])
}

func (l *MemFungible) transferLocked(from, to [20]byte, value *big.Int) error {
	amt := cloneAmount(value)
	if amt.Sign() < 0 {
		return ErrNegativeAmount
	}
	if amt.Sign() == 0 {
		return nil
	}
	fromBal := cloneAmount(l.balances[from])
	if fromBal.Cmp(amt) < 0 {
		return ErrInsufficientBalance
	}
	l.balances[from] = fromBal.Sub(fromBal, amt)
	toBal := cloneAmount(l.balances[to])
	l.balances[to] = toBal.Add(toBal, amt)
	return nil
}

func (l *MemFungible) Transfer(from, to [20]byte, value *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferLocked(from, to, value)
}

func (l *MemFungible) TransferFrom(spender, from, to [20]byte, value *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	amt := cloneAmount(value)
	if amt.Sign() < 0 {
		return ErrNegativeAmount
	}
	if spender != from {
		allowed := big.NewInt(0)
		if owner, ok := l.allowances[from]; ok {
			allowed = cloneAmount(owner[spender])
		}
		if allowed.Cmp(amt) < 0 {
			return ErrInsufficientAllowance
		}
		if err := l.transferLocked(from, to, amt); err != nil {
			return err
		}
		l.allowances[from][spender] = allowed.Sub(allowed, amt)
		return nil
	}
	return l.transferLocked(from, to, amt)
}

func (l *MemFungible) Approve(owner, spender [20]byte, value *big.Int) error {
	amt := cloneAmount(value)
	if amt.Sign() < 0 {
		return ErrNegativeAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.allowances[owner]; !ok {
		l.allowances[owner] = make(map[[20]byte]*big.Int)
	}
	l.allowances[owner][spender] = amt
	return nil
}

func (l *MemFungible) Allowance(owner, spender [20]byte) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if byOwner, ok := l.allowances[owner]; ok {
		return cloneAmount(byOwner[spender])
	}
	return big.NewInt(0)
}

// MemNFT is an in-memory ERC-721-shaped ledger.
type MemNFT struct {
	mu        sync.RWMutex
	owners    map[string][20]byte
	approvals map[string][20]byte
}

func NewMemNFT() *MemNFT {
	return &MemNFT{
		owners:    make(map[string][20]byte),
		approvals: make(map[string][20]byte),
	}
}

func nftKey(tokenID *big.Int) string {
	if tokenID == nil {
		return ""
	}
	return tokenID.String()
}

// Mint assigns a fresh token id to addr.
func (l *MemNFT) Mint(addr [20]byte, tokenID *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.owners[nftKey(tokenID)] = addr
	return nil
}

func (l *MemNFT) OwnerOf(tokenID *big.Int) ([20]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	owner, ok := l.owners[nftKey(tokenID)]
	if !ok {
		return [20]byte{}, ErrUnknownToken
	}
	return owner, nil
}

func (l *MemNFT) Approve(owner, spender [20]byte, tokenID *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := nftKey(tokenID)
	current, ok := l.owners[key]
	if !ok {
		return ErrUnknownToken
	}
	if current != owner {
		return ErrNotOwner
	}
	l.approvals[key] = spender
	return nil
}

func (l *MemNFT) TransferFrom(spender, from, to [20]byte, tokenID *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := nftKey(tokenID)
	owner, ok := l.owners[key]
	if !ok {
		return ErrUnknownToken
	}
	if owner != from {
		return ErrNotOwner
	}
	if spender != from && l.approvals[key] != spender {
		return ErrNotApproved
	}
	l.owners[key] = to
	delete(l.approvals, key)
	return nil
}

// MemMultiToken is an in-memory ERC-1155-shaped ledger.
type MemMultiToken struct {
	mu        sync.RWMutex
	balances  map[[20]byte]map[string]*big.Int
	operators map[[20]byte]map[[20]byte]bool
}

func NewMemMultiToken() *MemMultiToken {
	return &MemMultiToken{
		balances:  make(map[[20]byte]map[string]*big.Int),
		operators: make(map[[20]byte]map[[20]byte]bool),
	}
}

// Mint credits value of token id to addr.
func (l *MemMultiToken) Mint(addr [20]byte, id, value *big.Int) error {
	amt := cloneAmount(value)
	if amt.Sign() <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.balances[addr]; !ok {
		l.balances[addr] = make(map[string]*big.Int)
	}
	key := nftKey(id)
	current := cloneAmount(l.balances[addr][key])
	l.balances[addr][key] = current.Add(current, amt)
	return nil
}

func (l *MemMultiToken) BalanceOf(addr [20]byte, id *big.Int) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if byAddr, ok := l.balances[addr]; ok {
		return cloneAmount(byAddr[nftKey(id)])
	}
	return big.NewInt(0)
}

func (l *MemMultiToken) SetApprovalForAll(owner, operator [20]byte, approved bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.operators[owner]; !ok {
		l.operators[owner] = make(map[[20]byte]bool)
	}
	l.operators[owner][operator] = approved
}

func (l *MemMultiToken) IsApprovedForAll(owner, operator [20]byte) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if byOwner, ok := l.operators[owner]; ok {
		return byOwner[operator]
	}
	return false
}

func (l *MemMultiToken) transferOneLocked(from, to [20]byte, id, value *big.Int) error {
	amt := cloneAmount(value)
	if amt.Sign() < 0 {
		return ErrNegativeAmount
	}
	if amt.Sign() == 0 {
		return nil
	}
	key := nftKey(id)
	fromBal := big.NewInt(0)
	if byAddr, ok := l.balances[from]; ok {
		fromBal = cloneAmount(byAddr[key])
	}
	if fromBal.Cmp(amt) < 0 {
		return ErrInsufficientBalance
	}
	l.balances[from][key] = fromBal.Sub(fromBal, amt)
	if _, ok := l.balances[to]; !ok {
		l.balances[to] = make(map[string]*big.Int)
	}
	toBal := cloneAmount(l.balances[to][key])
	l.balances[to][key] = toBal.Add(toBal, amt)
	return nil
}

func (l *MemMultiToken) authorizedLocked(operator, from [20]byte) bool {
	if operator == from {
		return true
	}
	if byOwner, ok := l.operators[from]; ok {
		return byOwner[operator]
	}
	return false
}

func (l *MemMultiToken) SafeTransferFrom(operator, from, to [20]byte, id, value *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.authorizedLocked(operator, from) {
		return ErrNotApproved
	}
	return l.transferOneLocked(from, to, id, value)
}

func (l *MemMultiToken) SafeBatchTransferFrom(operator, from, to [20]byte, ids, values []*big.Int) error {
	if len(ids) != len(values) {
		return ErrLengthMismatch
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.authorizedLocked(operator, from) {
		return ErrNotApproved
	}
	// Validate the whole batch before mutating so a failed batch leaves no
	// partial transfer behind. Required amounts are summed per id to handle
	// repeated ids within one batch.
	required := make(map[string]*big.Int)
	for i := range ids {
		amt := cloneAmount(values[i])
		if amt.Sign() < 0 {
			return ErrNegativeAmount
		}
		key := nftKey(ids[i])
		total := cloneAmount(required[key])
		required[key] = total.Add(total, amt)
	}
	for key, amt := range required {
		fromBal := big.NewInt(0)
		if byAddr, ok := l.balances[from]; ok {
			fromBal = cloneAmount(byAddr[key])
		}
		if fromBal.Cmp(amt) < 0 {
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
