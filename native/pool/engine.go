package pool

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"safepool/core/events"
	"safepool/core/types"
	"safepool/crypto"
	"safepool/native/assets"
)

var (
	errNilState = errors.New("pool engine: state not configured")
	errNilToken = errors.New("pool engine: token ledger not configured")

	ErrNotOwner            = errors.New("pool engine: caller is not the owner")
	ErrNotAdmin            = errors.New("pool engine: caller is not owner or manager")
	ErrInvalidEntity       = errors.New("pool engine: entity address must differ from pool and token")
	ErrDelayOutOfRange     = errors.New("pool engine: release delay exceeds maximum")
	ErrIssueTooLarge       = errors.New("pool engine: value exceeds max tokens per issue")
	ErrNoIssueRecord       = errors.New("pool engine: no pending issuance for recipient")
	ErrSecretMismatch      = errors.New("pool engine: secret does not match stored hash")
	ErrValueMismatch       = errors.New("pool engine: value does not match pending issuance")
	ErrInvalidSignature    = errors.New("pool engine: invalid signature")
	ErrInsufficientBalance = errors.New("pool engine: insufficient spendable balance")
	ErrExceedsAvailable    = errors.New("pool engine: amount exceeds available supply")
	ErrResyncBounds        = errors.New("pool engine: new total outside [minimum, owned] range")
	ErrNoWithdrawal        = errors.New("pool engine: no withdrawal requested")
	ErrWithdrawalNotReady  = errors.New("pool engine: withdrawal delay not elapsed")
	ErrAmountNotPositive   = errors.New("pool engine: amount must be positive")
	ErrWalletNotSet        = errors.New("pool engine: wallet not configured")
)

type engineState interface {
	PoolAccount(addr [20]byte) (*types.Account, error)
	PutPoolAccount(addr [20]byte, account *types.Account) error
	PoolSupply() (*types.Supply, error)
	PutPoolSupply(*types.Supply) error
	PoolLimits() (*Limits, error)
	PutPoolLimits(*Limits) error
	PoolEntities() (*Entities, error)
	PutPoolEntities(*Entities) error
	IssueGet(recipient [20]byte) (*IssueRecord, bool, error)
	IssuePut(recipient [20]byte, record *IssueRecord) error
	IssueDelete(recipient [20]byte) error
}

// Engine implements the custodial pool state machine: supply accounting,
// hash-locked issuance, signed payments, delayed withdrawals and admin
// transfers. Caller identity is always an explicit argument; the transport
// layer resolves it before reaching the engine.
type Engine struct {
	state    engineState
	token    assets.Fungible
	poolAddr [20]byte
	domain   crypto.TypedDomain
	uid      [32]byte
	emitter  events.Emitter
	nowFn    func() int64
	heightFn func() uint64
	entropy  entropyFn
}

// NewEngine creates a pool engine bound to a token ledger and pool custody
// address. The typed-data domain doubles as the source of the pool uid mixed
// into personal-mode messages.
func NewEngine(token assets.Fungible, poolAddr [20]byte, domain crypto.TypedDomain) *Engine {
	return &Engine{
		token:    token,
		poolAddr: poolAddr,
		domain:   domain,
		uid:      domain.Separator(),
		emitter:  events.NoopEmitter{},
		nowFn:    func() int64 { return time.Now().Unix() },
		heightFn: func() uint64 { return 0 },
		entropy:  cryptoEntropy,
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the clock, primarily for deterministic tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetHeightFunc configures the block-height source used for withdrawal
// maturity.
func (e *Engine) SetHeightFunc(height func() uint64) {
	if height == nil {
		e.heightFn = func() uint64 { return 0 }
		return
	}
	e.heightFn = height
}

// SetEntropy overrides the nonce salt source, for deterministic tests.
func (e *Engine) SetEntropy(entropy entropyFn) {
	if entropy == nil {
		e.entropy = cryptoEntropy
		return
	}
	e.entropy = entropy
}

// UID returns the pool's domain separator.
func (e *Engine) UID() [32]byte { return e.uid }

// Domain returns the pool's typed-data domain.
func (e *Engine) Domain() crypto.TypedDomain { return e.domain }

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.token == nil {
		return errNilToken
	}
	return nil
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func (e *Engine) loadAccount(addr [20]byte) (*types.Account, error) {
	acc, err := e.state.PoolAccount(addr)
	if err != nil {
		return nil, err
	}
	return acc.Clone(), nil
}

func (e *Engine) loadSupply() (*types.Supply, error) {
	supply, err := e.state.PoolSupply()
	if err != nil {
		return nil, err
	}
	return supply.Clone(), nil
}

func (e *Engine) loadEntities() (*Entities, error) {
	entities, err := e.state.PoolEntities()
	if err != nil {
		return nil, err
	}
	if entities == nil {
		return &Entities{}, nil
	}
	return entities.Clone(), nil
}

func (e *Engine) requireOwner(caller [20]byte) (*Entities, error) {
	entities, err := e.loadEntities()
	if err != nil {
		return nil, err
	}
	if caller != entities.Owner {
		return nil, ErrNotOwner
	}
	return entities, nil
}

func (e *Engine) requireAdmin(caller [20]byte) (*Entities, error) {
	entities, err := e.loadEntities()
	if err != nil {
		return nil, err
	}
	if caller != entities.Owner && (entities.Manager == [20]byte{} || caller != entities.Manager) {
		return nil, ErrNotAdmin
	}
	return entities, nil
}

// ensureNonce initialises the account nonce if it has never been set.
// Returns true when the nonce changed.
func (e *Engine) ensureNonce(acc *types.Account) (bool, error) {
	if !acc.Nonce.IsZero() {
		return false, nil
	}
	nonce, err := initialNonce(e.entropy, e.nowFn())
	if err != nil {
		return false, err
	}
	acc.Nonce = nonce
	return true, nil
}

// OwnedTokens returns the pool's external token balance.
func (e *Engine) OwnedTokens() (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.token.BalanceOf(e.poolAddr), nil
}

// ResyncTotalSupply moves the claimed total toward the external balance. The
// new total must stay within [minimum, owned]; this is how tokens sent to the
// pool outside depositTokens become usable.
func (e *Engine) ResyncTotalSupply(caller [20]byte, newTotal *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, err := e.requireAdmin(caller); err != nil {
		return err
	}
	supply, err := e.loadSupply()
	if err != nil {
		return err
	}
	total := cloneBigInt(newTotal)
	owned := e.token.BalanceOf(e.poolAddr)
	if total.Cmp(supply.Minimum) < 0 || total.Cmp(owned) > 0 {
		return ErrResyncBounds
	}
	supply.Total = total
	if err := e.state.PutPoolSupply(supply); err != nil {
		return err
	}
	e.emit(supplyResynced{Total: total, Owned: owned})
	return nil
}

// AvailableSupply returns the admin-transferable surplus.
func (e *Engine) AvailableSupply() (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	supply, err := e.loadSupply()
	if err != nil {
		return nil, err
	}
	return supply.Available(), nil
}

// DepositTokens pulls an approved amount from the holder into pool custody
// and credits the holder's confirmed balance.
func (e *Engine) DepositTokens(caller [20]byte, value *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	amount := cloneBigInt(value)
	if amount.Sign() <= 0 {
		return ErrAmountNotPositive
	}
	acc, err := e.loadAccount(caller)
	if err != nil {
		return err
	}
	supply, err := e.loadSupply()
	if err != nil {
		return err
	}
	if err := e.token.TransferFrom(e.poolAddr, caller, e.poolAddr, amount); err != nil {
		return err
	}
	acc.Balance.Add(acc.Balance, amount)
	if _, err := e.ensureNonce(acc); err != nil {
		return err
	}
	supply.Minimum.Add(supply.Minimum, amount)
	supply.Total.Add(supply.Total, amount)
	if err := e.state.PutPoolAccount(caller, acc); err != nil {
		return err
	}
	if err := e.state.PutPoolSupply(supply); err != nil {
		return err
	}
	e.emit(tokensDeposited{Account: caller, Value: amount})
	return nil
}

// IssueTokens records (or overwrites) a hash-locked grant for the recipient.
// A zero value clears any existing grant. Supply pending tracking is adjusted
// by delta so pool capacity is never double-allocated.
func (e *Engine) IssueTokens(caller, recipient [20]byte, value *big.Int, secretHash [32]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, err := e.requireAdmin(caller); err != nil {
		return err
	}
	amount := cloneBigInt(value)
	if amount.Sign() < 0 {
		return ErrAmountNotPositive
	}
	limits, err := e.state.PoolLimits()
	if err != nil {
		return err
	}
	limits = limits.Normalize()
	if amount.Cmp(limits.MaxTokensPerIssue) > 0 {
		return ErrIssueTooLarge
	}
	supply, err := e.loadSupply()
	if err != nil {
		return err
	}
	acc, err := e.loadAccount(recipient)
	if err != nil {
		return err
	}
	previous := big.NewInt(0)
	if existing, ok, err := e.state.IssueGet(recipient); err != nil {
		return err
	} else if ok {
		previous = cloneBigInt(existing.Value)
	}
	// delta may be negative when the new grant is smaller.
	delta := new(big.Int).Sub(amount, previous)
	supply.Pending.Add(supply.Pending, delta)
	committed := new(big.Int).Add(supply.Minimum, supply.Pending)
	if committed.Cmp(supply.Total) > 0 {
		return ErrExceedsAvailable
	}
	acc.Pending.Add(acc.Pending, delta)
	if amount.Sign() == 0 {
		if err := e.state.IssueDelete(recipient); err != nil {
			return err
		}
	} else {
		record := &IssueRecord{Value: amount, SecretHash: secretHash}
		if err := e.state.IssuePut(recipient, record); err != nil {
			return err
		}
	}
	if err := e.state.PutPoolAccount(recipient, acc); err != nil {
		return err
	}
	if err := e.state.PutPoolSupply(supply); err != nil {
		return err
	}
	e.emit(tokensIssued{Recipient: recipient, Value: amount, SecretHash: secretHash})
	return nil
}

func (e *Engine) acceptTokens(recipient [20]byte, value *big.Int, secret []byte) error {
	record, ok, err := e.state.IssueGet(recipient)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoIssueRecord
	}
	var secretHash [32]byte
	copy(secretHash[:], ethcrypto.Keccak256(secret))
	if secretHash != record.SecretHash {
		return ErrSecretMismatch
	}
	amount := cloneBigInt(value)
	if record.Value == nil || amount.Cmp(record.Value) != 0 {
		return ErrValueMismatch
	}
	acc, err := e.loadAccount(recipient)
	if err != nil {
		return err
	}
	supply, err := e.loadSupply()
	if err != nil {
		return err
	}
	acc.Balance.Add(acc.Balance, amount)
	acc.Pending.Sub(acc.Pending, amount)
	if acc.Pending.Sign() < 0 {
		acc.Pending = big.NewInt(0)
	}
	if _, err := e.ensureNonce(acc); err != nil {
		return err
	}
	supply.Pending.Sub(supply.Pending, amount)
	supply.Minimum.Add(supply.Minimum, amount)
	if err := e.state.IssueDelete(recipient); err != nil {
		return err
	}
	if err := e.state.PutPoolAccount(recipient, acc); err != nil {
		return err
	}
	if err := e.state.PutPoolSupply(supply); err != nil {
		return err
	}
	e.emit(tokensAccepted{Recipient: recipient, Value: amount})
	return nil
}

// AcceptTokens lets the recipient claim an issued grant by presenting the
// secret matching the stored hash.
func (e *Engine) AcceptTokens(caller [20]byte, value *big.Int, secret []byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	return e.acceptTokens(caller, value, secret)
}

// GenerateAcceptTokensMessage builds the personal-mode payload the recipient
// signs for admin-executed acceptance.
func (e *Engine) GenerateAcceptTokensMessage(recipient [20]byte, value *big.Int, secretHash [32]byte) []byte {
	return AcceptTokensMessage(e.uid, recipient, value, secretHash)
}

// ValidateAcceptTokens verifies an acceptance signature without mutating
// state.
func (e *Engine) ValidateAcceptTokens(recipient [20]byte, value *big.Int, secretHash [32]byte, mode crypto.SignatureMode, sig []byte) error {
	var input []byte
	switch mode {
	case crypto.SignatureModeTypedData:
		digest := AcceptTokensTypedDigest(e.domain, recipient, value, secretHash)
		input = digest[:]
	default:
		input = e.GenerateAcceptTokensMessage(recipient, value, secretHash)
	}
	if err := crypto.VerifySigner(mode, input, sig, recipient); err != nil {
		return ErrInvalidSignature
	}
	return nil
}

// ExecuteAcceptTokens performs acceptance on behalf of the recipient, who
// authorised it by signing the acceptance message. Only admins may execute.
func (e *Engine) ExecuteAcceptTokens(caller, recipient [20]byte, value *big.Int, secret []byte, mode crypto.SignatureMode, sig []byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, err := e.requireAdmin(caller); err != nil {
		return err
	}
	var secretHash [32]byte
	copy(secretHash[:], ethcrypto.Keccak256(secret))
	if err := e.ValidateAcceptTokens(recipient, value, secretHash, mode, sig); err != nil {
		return err
	}
	return e.acceptTokens(recipient, value, secret)
}

// GeneratePaymentMessage builds the personal-mode payment payload embedding
// the account's current nonce. Fails if the account cannot cover the value.
func (e *Engine) GeneratePaymentMessage(from [20]byte, value *big.Int) ([]byte, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	acc, err := e.loadAccount(from)
	if err != nil {
		return nil, err
	}
	amount := cloneBigInt(value)
	if acc.Spendable().Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}
	return PaymentMessage(e.uid, from, amount, acc.Nonce), nil
}

// ValidatePayment verifies a payment signature against the account's current
// nonce without executing it.
func (e *Engine) ValidatePayment(from [20]byte, value *big.Int, mode crypto.SignatureMode, sig []byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	acc, err := e.loadAccount(from)
	if err != nil {
		return err
	}
	if acc.Nonce.IsZero() {
		return ErrInvalidSignature
	}
	var input []byte
	switch mode {
	case crypto.SignatureModeTypedData:
		digest := PaymentTypedDigest(e.domain, from, value, acc.Nonce)
		input = digest[:]
	default:
		input = PaymentMessage(e.uid, from, cloneBigInt(value), acc.Nonce)
	}
	if err := crypto.VerifySigner(mode, input, sig, from); err != nil {
		return ErrInvalidSignature
	}
	return nil
}

// ExecutePayment settles a signed payment: the payer's balance is reduced,
// the value returns to the pool's admin-transferable surplus, and the nonce
// advances so the signature can never be replayed.
func (e *Engine) ExecutePayment(caller, from [20]byte, value *big.Int, mode crypto.SignatureMode, sig []byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, err := e.requireAdmin(caller); err != nil {
		return err
	}
	amount := cloneBigInt(value)
	if amount.Sign() <= 0 {
		return ErrAmountNotPositive
	}
	acc, err := e.loadAccount(from)
	if err != nil {
		return err
	}
	if acc.Spendable().Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if err := e.ValidatePayment(from, amount, mode, sig); err != nil {
		return err
	}
	supply, err := e.loadSupply()
	if err != nil {
		return err
	}
	acc.Balance.Sub(acc.Balance, amount)
	supply.Minimum.Sub(supply.Minimum, amount)
	nonce, err := advanceNonce(acc.Nonce, e.entropy, e.nowFn())
	if err != nil {
		return err
	}
	acc.Nonce = nonce
	if err := e.state.PutPoolAccount(from, acc); err != nil {
		return err
	}
	if err := e.state.PutPoolSupply(supply); err != nil {
		return err
	}
	e.emit(paymentExecuted{From: from, Value: amount})
	return nil
}

// RequestWithdrawal reserves part of the caller's balance for release after
// the configured delay. A new request overwrites any previous one.
func (e *Engine) RequestWithdrawal(caller [20]byte, value *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	amount := cloneBigInt(value)
	if amount.Sign() <= 0 {
		return ErrAmountNotPositive
	}
	acc, err := e.loadAccount(caller)
	if err != nil {
		return err
	}
	withdrawable := new(big.Int).Sub(acc.Balance, acc.Pending)
	if withdrawable.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	limits, err := e.state.PoolLimits()
	if err != nil {
		return err
	}
	limits = limits.Normalize()
	acc.WithdrawalAmount = amount
	acc.WithdrawalReadyAt = e.heightFn() + limits.ReleaseDelay
	if err := e.state.PutPoolAccount(caller, acc); err != nil {
		return err
	}
	e.emit(withdrawalRequested{Account: caller, Value: amount, ReadyAt: acc.WithdrawalReadyAt})
	return nil
}

// CancelWithdrawal clears any outstanding withdrawal request.
func (e *Engine) CancelWithdrawal(caller [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	acc, err := e.loadAccount(caller)
	if err != nil {
		return err
	}
	acc.WithdrawalAmount = big.NewInt(0)
	acc.WithdrawalReadyAt = 0
	if err := e.state.PutPoolAccount(caller, acc); err != nil {
		return err
	}
	e.emit(withdrawalCancelled{Account: caller})
	return nil
}

// WithdrawTokens releases a matured withdrawal back to the holder's external
// token balance.
func (e *Engine) WithdrawTokens(caller [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	acc, err := e.loadAccount(caller)
	if err != nil {
		return err
	}
	amount := cloneBigInt(acc.WithdrawalAmount)
	if amount.Sign() == 0 {
		return ErrNoWithdrawal
	}
	if e.heightFn() < acc.WithdrawalReadyAt {
		return ErrWithdrawalNotReady
	}
	supply, err := e.loadSupply()
	if err != nil {
		return err
	}
	if err := e.token.Transfer(e.poolAddr, caller, amount); err != nil {
		return err
	}
	acc.Balance.Sub(acc.Balance, amount)
	acc.WithdrawalAmount = big.NewInt(0)
	acc.WithdrawalReadyAt = 0
	supply.Minimum.Sub(supply.Minimum, amount)
	supply.Total.Sub(supply.Total, amount)
	if err := e.state.PutPoolAccount(caller, acc); err != nil {
		return err
	}
	if err := e.state.PutPoolSupply(supply); err != nil {
		return err
	}
	e.emit(withdrawalExecuted{Account: caller, Value: amount})
	return nil
}

// TransferTokens moves part of the available surplus out of the pool to the
// configured wallet.
func (e *Engine) TransferTokens(caller [20]byte, value *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	entities, err := e.requireAdmin(caller)
	if err != nil {
		return err
	}
	if entities.Wallet == ([20]byte{}) {
		return ErrWalletNotSet
	}
	amount := cloneBigInt(value)
	if amount.Sign() <= 0 {
		return ErrAmountNotPositive
	}
	supply, err := e.loadSupply()
	if err != nil {
		return err
	}
	if amount.Cmp(supply.Available()) > 0 {
		return ErrExceedsAvailable
	}
	if err := e.token.Transfer(e.poolAddr, entities.Wallet, amount); err != nil {
		return err
	}
	supply.Total.Sub(supply.Total, amount)
	if err := e.state.PutPoolSupply(supply); err != nil {
		return err
	}
	e.emit(tokensTransferred{Wallet: entities.Wallet, Value: amount})
	return nil
}

// DistributeTokens credits an account's confirmed balance out of the pool's
// already-owned idle tokens.
func (e *Engine) DistributeTokens(caller, recipient [20]byte, value *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, err := e.requireAdmin(caller); err != nil {
		return err
	}
	amount := cloneBigInt(value)
	if amount.Sign() <= 0 {
		return ErrAmountNotPositive
	}
	supply, err := e.loadSupply()
	if err != nil {
		return err
	}
	if amount.Cmp(supply.Available()) > 0 {
		return ErrExceedsAvailable
	}
	acc, err := e.loadAccount(recipient)
	if err != nil {
		return err
	}
	acc.Balance.Add(acc.Balance, amount)
	if _, err := e.ensureNonce(acc); err != nil {
		return err
	}
	supply.Minimum.Add(supply.Minimum, amount)
	if err := e.state.PutPoolAccount(recipient, acc); err != nil {
		return err
	}
	if err := e.state.PutPoolSupply(supply); err != nil {
		return err
	}
	e.emit(tokensDistributed{Recipient: recipient, Value: amount})
	return nil
}

func (e *Engine) validEntity(entities *Entities, addr [20]byte) bool {
	if addr == e.poolAddr {
		return false
	}
	return !bytes.Equal(addr[:], entities.Token[:])
}

// SetManager replaces the secondary admin. Owner only.
func (e *Engine) SetManager(caller, manager [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	entities, err := e.requireOwner(caller)
	if err != nil {
		return err
	}
	if !e.validEntity(entities, manager) {
		return ErrInvalidEntity
	}
	entities.Manager = manager
	if err := e.state.PutPoolEntities(entities); err != nil {
		return err
	}
	e.emit(entitiesUpdated{Field: "manager", Value: manager})
	return nil
}

// SetWallet replaces the sink for admin-transferred tokens. Owner only.
func (e *Engine) SetWallet(caller, wallet [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	entities, err := e.requireOwner(caller)
	if err != nil {
		return err
	}
	if !e.validEntity(entities, wallet) {
		return ErrInvalidEntity
	}
	entities.Wallet = wallet
	if err := e.state.PutPoolEntities(entities); err != nil {
		return err
	}
	e.emit(entitiesUpdated{Field: "wallet", Value: wallet})
	return nil
}

// SetReleaseDelay updates the withdrawal maturity delay, in blocks. Owner
// only, bounded by MaxReleaseDelay.
func (e *Engine) SetReleaseDelay(caller [20]byte, delay uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, err := e.requireOwner(caller); err != nil {
		return err
	}
	if delay > MaxReleaseDelay {
		return ErrDelayOutOfRange
	}
	limits, err := e.state.PoolLimits()
	if err != nil {
		return err
	}
	limits = limits.Normalize().Clone()
	limits.ReleaseDelay = delay
	if err := e.state.PutPoolLimits(limits); err != nil {
		return err
	}
	e.emit(limitsUpdated{Field: "releaseDelay"})
	return nil
}

// SetMaxTokensPerIssue updates the per-issuance cap. Owner only.
func (e *Engine) SetMaxTokensPerIssue(caller [20]byte, max *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if _, err := e.requireOwner(caller); err != nil {
		return err
	}
	amount := cloneBigInt(max)
	if amount.Sign() < 0 {
		return ErrAmountNotPositive
	}
	limits, err := e.state.PoolLimits()
	if err != nil {
		return err
	}
	limits = limits.Normalize().Clone()
	limits.MaxTokensPerIssue = amount
	if err := e.state.PutPoolLimits(limits); err != nil {
		return err
	}
	e.emit(limitsUpdated{Field: "maxTokensPerIssue"})
	return nil
}

// Account returns the stored account plus the holder's external token
// balance.
func (e *Engine) Account(addr [20]byte) (*AccountView, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	acc, err := e.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	return &AccountView{
		Address:         addr,
		Account:         acc,
		ExternalBalance: e.token.BalanceOf(addr),
	}, nil
}

// Supply returns the supply singleton with derived fields.
func (e *Engine) Supply() (*SupplyView, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	supply, err := e.loadSupply()
	if err != nil {
		return nil, err
	}
	return &SupplyView{
		Total:     supply.Total,
		Minimum:   supply.Minimum,
		Pending:   supply.Pending,
		Available: supply.Available(),
		Owned:     e.token.BalanceOf(e.poolAddr),
	}, nil
}

// Limits returns the current limits configuration.
func (e *Engine) Limits() (*Limits, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	limits, err := e.state.PoolLimits()
	if err != nil {
		return nil, err
	}
	return limits.Normalize().Clone(), nil
}

// Entities returns the current entities configuration.
func (e *Engine) Entities() (*Entities, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.loadEntities()
}

// InitEntities seeds the owner and token bindings. It may only run once, when
// no owner has been recorded yet.
func (e *Engine) InitEntities(owner [20]byte, token assets.AssetID) error {
	if err := e.ready(); err != nil {
		return err
	}
	entities, err := e.loadEntities()
	if err != nil {
		return err
	}
	if entities.Owner != ([20]byte{}) {
		return fmt.Errorf("pool engine: entities already initialised")
	}
	entities.Owner = owner
	entities.Token = token
	return e.state.PutPoolEntities(entities)
}
