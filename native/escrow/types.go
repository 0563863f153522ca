package escrow

import (
	"errors"
	"math/big"

	"safepool/native/assets"
)

// LegKind tags how one side of a request moves value.
type LegKind uint8

const (
	LegNative LegKind = iota
	LegERC20
	LegERC721
	LegERC1155
	LegERC1155Batch
)

// Valid reports whether the kind is within the supported range.
func (k LegKind) Valid() bool {
	return k <= LegERC1155Batch
}

func (k LegKind) String() string {
	switch k {
	case LegNative:
		return "native"
	case LegERC20:
		return "erc20"
	case LegERC721:
		return "erc721"
	case LegERC1155:
		return "erc1155"
	case LegERC1155Batch:
		return "erc1155batch"
	}
	return "unknown"
}

var (
	ErrInvalidLeg       = errors.New("escrow: invalid leg definition")
	ErrZeroTokenID      = errors.New("escrow: token id zero is reserved")
	ErrLengthMismatch   = errors.New("escrow: token ids and values length mismatch")
	ErrNegativeValue    = errors.New("escrow: negative value")
	ErrSelfTransfer     = errors.New("escrow: depositor and recipient must differ")
	ErrSameAsset        = errors.New("escrow: both legs use the same asset")
	ErrDuplicateRequest = errors.New("escrow: identical request already exists")
	ErrNotFound         = errors.New("escrow: request not found")
	ErrTermsMismatch    = errors.New("escrow: terms do not match stored request")
	ErrWrongSecret      = errors.New("escrow: secret does not match hash")
	ErrUnauthorized     = errors.New("escrow: caller not a party to the request")
	ErrNotYetAvailable  = errors.New("escrow: request not yet collectable")
	ErrNotExpired       = errors.New("escrow: request not expired")
	ErrNotTimed         = errors.New("escrow: request carries no expiry")
	ErrHiddenValue      = errors.New("escrow: revealed terms do not match locked value")
)

// Leg describes one side of a transfer or swap. Value carries the native or
// fungible amount, or the token id for an ERC-721 leg. TokenID carries the
// ERC-1155 token id; TokenIDs/Values the batch form. Fees are always
// denominated in native value.
type Leg struct {
	Kind     LegKind        `json:"kind"`
	Asset    assets.AssetID `json:"asset"`
	Value    *big.Int       `json:"value"`
	TokenID  *big.Int       `json:"tokenId,omitempty"`
	TokenIDs []*big.Int     `json:"tokenIds,omitempty"`
	Values   []*big.Int     `json:"values,omitempty"`
	Fees     *big.Int       `json:"fees"`
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func cloneAmounts(vs []*big.Int) []*big.Int {
	if vs == nil {
		return nil
	}
	out := make([]*big.Int, len(vs))
	for i, v := range vs {
		out[i] = cloneAmount(v)
	}
	return out
}

// Clone returns a deep copy of the leg.
func (l *Leg) Clone() *Leg {
	if l == nil {
		return nil
	}
	return &Leg{
		Kind:     l.Kind,
		Asset:    l.Asset,
		Value:    cloneAmount(l.Value),
		TokenID:  cloneAmount(l.TokenID),
		TokenIDs: cloneAmounts(l.TokenIDs),
		Values:   cloneAmounts(l.Values),
		Fees:     cloneAmount(l.Fees),
	}
}

// Sanitize validates the leg per its kind and returns a normalised copy.
func (l *Leg) Sanitize() (*Leg, error) {
	if l == nil {
		return nil, ErrInvalidLeg
	}
	leg := l.Clone()
	if !leg.Kind.Valid() {
		return nil, ErrInvalidLeg
	}
	if leg.Fees.Sign() < 0 {
		return nil, ErrNegativeValue
	}
	switch leg.Kind {
	case LegNative:
		if !leg.Asset.IsNative() {
			return nil, ErrInvalidLeg
		}
		if leg.Value.Sign() < 0 {
			return nil, ErrNegativeValue
		}
	case LegERC20:
		if leg.Asset.IsNative() {
			return nil, ErrInvalidLeg
		}
		if leg.Value.Sign() < 0 {
			return nil, ErrNegativeValue
		}
	case LegERC721:
		if leg.Asset.IsNative() {
			return nil, ErrInvalidLeg
		}
		// Token id zero marks "no NFT" in the wire format and is rejected.
		if leg.Value.Sign() == 0 {
			return nil, ErrZeroTokenID
		}
	case LegERC1155:
		if leg.Asset.IsNative() {
			return nil, ErrInvalidLeg
		}
		if leg.Value.Sign() < 0 || leg.TokenID.Sign() < 0 {
			return nil, ErrNegativeValue
		}
	case LegERC1155Batch:
		if leg.Asset.IsNative() {
			return nil, ErrInvalidLeg
		}
		if len(leg.TokenIDs) == 0 || len(leg.TokenIDs) != len(leg.Values) {
			return nil, ErrLengthMismatch
		}
		for i := range leg.TokenIDs {
			if leg.TokenIDs[i].Sign() < 0 || leg.Values[i].Sign() < 0 {
				return nil, ErrNegativeValue
			}
		}
	}
	return leg, nil
}

// fungibleLike reports whether the leg moves interchangeable units of a
// single asset, the cases where a same-asset swap is meaningless.
func (l *Leg) fungibleLike() bool {
	return l != nil && (l.Kind == LegNative || l.Kind == LegERC20)
}

// RequestKind separates one-sided transfers from two-sided swaps.
type RequestKind uint8

const (
	KindTransfer RequestKind = iota
	KindSwap
)

func (k RequestKind) String() string {
	if k == KindSwap {
		return "swap"
	}
	return "transfer"
}

// Timing carries the optional schedule of a timed request. AvailableAt gates
// collection; ExpiresAt enables AutoRetrieve, which pays AutoRetrieveFees to
// whoever triggers it.
type Timing struct {
	AvailableAt      int64    `json:"availableAt"`
	ExpiresAt        int64    `json:"expiresAt"`
	AutoRetrieveFees *big.Int `json:"autoRetrieveFees"`
}

// Clone returns a deep copy of the timing.
func (t *Timing) Clone() *Timing {
	if t == nil {
		return nil
	}
	return &Timing{
		AvailableAt:      t.AvailableAt,
		ExpiresAt:        t.ExpiresAt,
		AutoRetrieveFees: cloneAmount(t.AutoRetrieveFees),
	}
}

// Request is a live escrow record. The id is the keccak256 hash of every
// economic term, so identical terms between the same parties collide and the
// duplicate deposit is rejected.
type Request struct {
	ID         [32]byte    `json:"id"`
	Kind       RequestKind `json:"kind"`
	From       [20]byte    `json:"from"`
	To         [20]byte    `json:"to"`
	Leg0       *Leg        `json:"leg0"`
	Leg1       *Leg        `json:"leg1,omitempty"`
	SecretHash [32]byte    `json:"secretHash"`
	Timing     *Timing     `json:"timing,omitempty"`
	CreatedAt  int64       `json:"createdAt"`
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	return &Request{
		ID:         r.ID,
		Kind:       r.Kind,
		From:       r.From,
		To:         r.To,
		Leg0:       r.Leg0.Clone(),
		Leg1:       r.Leg1.Clone(),
		SecretHash: r.SecretHash,
		Timing:     r.Timing.Clone(),
		CreatedAt:  r.CreatedAt,
	}
}

// HiddenDeposit records a commitment-only deposit: the id is a caller-chosen
// 32-byte commitment and only the locked native value is public. The full
// terms surface at reveal time and are checked against the commitment.
type HiddenDeposit struct {
	ID        [32]byte `json:"id"`
	From      [20]byte `json:"from"`
	Value     *big.Int `json:"value"`
	Timing    *Timing  `json:"timing,omitempty"`
	CreatedAt int64    `json:"createdAt"`
}

// Clone returns a deep copy of the hidden deposit.
func (h *HiddenDeposit) Clone() *HiddenDeposit {
	if h == nil {
		return nil
	}
	return &HiddenDeposit{
		ID:        h.ID,
		From:      h.From,
		Value:     cloneAmount(h.Value),
		Timing:    h.Timing.Clone(),
		CreatedAt: h.CreatedAt,
	}
}
