package types

import "math/big"

// NonceSize is the width of the packed payment nonce in bytes (192 bits).
const NonceSize = 24

// Nonce is the packed anti-replay value embedded in signed payment messages.
// Layout (big endian): counter, salt, timestamp tag. A zero nonce means the
// account has never been initialised.
type Nonce [NonceSize]byte

// IsZero reports whether the nonce has never been initialised.
func (n Nonce) IsZero() bool {
	return n == Nonce{}
}

// Account holds the pool-side bookkeeping for a single participant. Balance is
// confirmed spendable credit; Pending is issued-but-unaccepted value unlockable
// by secret; the withdrawal fields track a single outstanding release request.
type Account struct {
	Balance           *big.Int `json:"balance"`
	Pending           *big.Int `json:"pending"`
	WithdrawalAmount  *big.Int `json:"withdrawalAmount"`
	WithdrawalReadyAt uint64   `json:"withdrawalReadyAt"`
	Nonce             Nonce    `json:"nonce"`
}

// NewAccount returns an account with all balances set to zero.
func NewAccount() *Account {
	return &Account{
		Balance:          big.NewInt(0),
		Pending:          big.NewInt(0),
		WithdrawalAmount: big.NewInt(0),
	}
}

// Normalize replaces nil balance fields with zero values so callers can use
// the account without nil checks. Returns the receiver for chaining.
func (a *Account) Normalize() *Account {
	if a == nil {
		return NewAccount()
	}
	if a.Balance == nil {
		a.Balance = big.NewInt(0)
	}
	if a.Pending == nil {
		a.Pending = big.NewInt(0)
	}
	if a.WithdrawalAmount == nil {
		a.WithdrawalAmount = big.NewInt(0)
	}
	return a
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return NewAccount()
	}
	clone := &Account{
		WithdrawalReadyAt: a.WithdrawalReadyAt,
		Nonce:             a.Nonce,
		Balance:           big.NewInt(0),
		Pending:           big.NewInt(0),
		WithdrawalAmount:  big.NewInt(0),
	}
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	}
	if a.Pending != nil {
		clone.Pending = new(big.Int).Set(a.Pending)
	}
	if a.WithdrawalAmount != nil {
		clone.WithdrawalAmount = new(big.Int).Set(a.WithdrawalAmount)
	}
	return clone
}

// Spendable returns the balance usable for payments: confirmed balance minus
// pending value and the outstanding withdrawal reservation. Pending value is
// never spendable.
func (a *Account) Spendable() *big.Int {
	acc := a.Clone()
	avail := new(big.Int).Sub(acc.Balance, acc.Pending)
	return avail.Sub(avail, acc.WithdrawalAmount)
}
