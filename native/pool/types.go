package pool

import (
	"math/big"

	"safepool/core/types"
	"safepool/native/assets"
)

// MaxReleaseDelay caps the configurable withdrawal release delay, in blocks.
const MaxReleaseDelay uint64 = 11_520

// DefaultReleaseDelay is the withdrawal delay applied until the owner
// configures one.
const DefaultReleaseDelay uint64 = 240

// DefaultMaxTokensPerIssue bounds a single issuance until configured.
var DefaultMaxTokensPerIssue = big.NewInt(10_000)

// Limits is the owner-tunable configuration singleton.
type Limits struct {
	ReleaseDelay      uint64   `json:"releaseDelay"`
	MaxTokensPerIssue *big.Int `json:"maxTokensPerIssue"`
}

// NewLimits returns the default limits applied to a fresh pool.
func NewLimits() *Limits {
	return &Limits{
		ReleaseDelay:      DefaultReleaseDelay,
		MaxTokensPerIssue: new(big.Int).Set(DefaultMaxTokensPerIssue),
	}
}

// Normalize replaces nil fields with defaults.
func (l *Limits) Normalize() *Limits {
	if l == nil {
		return NewLimits()
	}
	if l.MaxTokensPerIssue == nil {
		l.MaxTokensPerIssue = new(big.Int).Set(DefaultMaxTokensPerIssue)
	}
	return l
}

// Clone returns a deep copy of the limits.
func (l *Limits) Clone() *Limits {
	if l == nil {
		return NewLimits()
	}
	clone := &Limits{ReleaseDelay: l.ReleaseDelay, MaxTokensPerIssue: big.NewInt(0)}
	if l.MaxTokensPerIssue != nil {
		clone.MaxTokensPerIssue = new(big.Int).Set(l.MaxTokensPerIssue)
	}
	return clone
}

// Entities names the fixed parties of the pool. Owner and Token are immutable
// after initialisation; Manager and Wallet are owner-replaceable.
type Entities struct {
	Owner   [20]byte       `json:"owner"`
	Token   assets.AssetID `json:"token"`
	Manager [20]byte       `json:"manager"`
	Wallet  [20]byte       `json:"wallet"`
}

// Clone returns a copy of the entities record.
func (e *Entities) Clone() *Entities {
	if e == nil {
		return &Entities{}
	}
	clone := *e
	return &clone
}

// IssueRecord is an outstanding hash-locked grant. At most one exists per
// recipient; re-issuing overwrites it.
type IssueRecord struct {
	Value      *big.Int `json:"value"`
	SecretHash [32]byte `json:"secretHash"`
}

// Clone returns a deep copy of the record.
func (r *IssueRecord) Clone() *IssueRecord {
	if r == nil {
		return nil
	}
	clone := &IssueRecord{SecretHash: r.SecretHash, Value: big.NewInt(0)}
	if r.Value != nil {
		clone.Value = new(big.Int).Set(r.Value)
	}
	return clone
}

// AccountView is the read model returned by the account query: the stored
// account plus the holder's external token balance.
type AccountView struct {
	Address         [20]byte       `json:"address"`
	Account         *types.Account `json:"account"`
	ExternalBalance *big.Int       `json:"externalBalance"`
}

// SupplyView is the read model returned by the supply query.
type SupplyView struct {
	Total     *big.Int `json:"total"`
	Minimum   *big.Int `json:"minimum"`
	Pending   *big.Int `json:"pending"`
	Available *big.Int `json:"available"`
	Owned     *big.Int `json:"owned"`
}
