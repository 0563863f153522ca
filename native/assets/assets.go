package assets

import (
	"errors"
	"math/big"
)

// AssetID identifies an asset ledger. The zero value denotes the native value
// ledger (the ether-equivalent leg of a swap).
type AssetID [20]byte

// NativeAsset is the reserved id of the native value ledger.
var NativeAsset = AssetID{}

// IsNative reports whether the id denotes the native value ledger.
func (a AssetID) IsNative() bool { return a == NativeAsset }

var (
	ErrInsufficientBalance   = errors.New("assets: insufficient balance")
	ErrInsufficientAllowance = errors.New("assets: insufficient allowance")
	ErrNotOwner              = errors.New("assets: caller does not own token")
	ErrNotApproved           = errors.New("assets: transfer not approved")
	ErrUnknownAsset          = errors.New("assets: unknown asset")
	ErrUnknownToken          = errors.New("assets: unknown token id")
	ErrLengthMismatch        = errors.New("assets: ids and values length mismatch")
	ErrNegativeAmount        = errors.New("assets: negative amount")
)

// Fungible is the ERC-20-shaped capability the engines consume. All transfers
// name the acting party explicitly; there is no implicit message sender.
type Fungible interface {
	BalanceOf(addr [20]byte) *big.Int
	Transfer(from, to [20]byte, value *big.Int) error
	TransferFrom(spender, from, to [20]byte, value *big.Int) error
	Approve(owner, spender [20]byte, value *big.Int) error
	Allowance(owner, spender [20]byte) *big.Int
}

// FungibleMinter is implemented by fungible ledgers that can create supply.
// The node exposes it through the faucet in development environments only.
type FungibleMinter interface {
	Mint(addr [20]byte, value *big.Int) error
}

// NFTMinter is implemented by NFT ledgers that can create tokens.
type NFTMinter interface {
	Mint(addr [20]byte, tokenID *big.Int) error
}

// MultiTokenMinter is implemented by multi-token ledgers that can create
// supply of a token id.
type MultiTokenMinter interface {
	Mint(addr [20]byte, id, value *big.Int) error
}

// NFT is the ERC-721-shaped capability: unique token ids with per-token
// approvals.
type NFT interface {
	OwnerOf(tokenID *big.Int) ([20]byte, error)
	TransferFrom(spender, from, to [20]byte, tokenID *big.Int) error
	Approve(owner, spender [20]byte, tokenID *big.Int) error
}

// MultiToken is the ERC-1155-shaped capability: fungible balances per token
// id with operator approvals and batch transfers.
type MultiToken interface {
	BalanceOf(addr [20]byte, id *big.Int) *big.Int
	SafeTransferFrom(operator, from, to [20]byte, id, value *big.Int) error
	SafeBatchTransferFrom(operator, from, to [20]byte, ids, values []*big.Int) error
	SetApprovalForAll(owner, operator [20]byte, approved bool)
	IsApprovedForAll(owner, operator [20]byte) bool
}

// Registry resolves asset ids to ledgers. The node registers its configured
// ledgers here; engine tests register in-memory ones.
type Registry struct {
	native     Fungible
	fungibles  map[AssetID]Fungible
	nfts       map[AssetID]NFT
	multiToken map[AssetID]MultiToken
}

// NewRegistry creates a registry with the supplied native value ledger.
func NewRegistry(native Fungible) *Registry {
	return &Registry{
		native:     native,
		fungibles:  make(map[AssetID]Fungible),
		nfts:       make(map[AssetID]NFT),
		multiToken: make(map[AssetID]MultiToken),
	}
}

// RegisterFungible binds a fungible ledger to an asset id.
func (r *Registry) RegisterFungible(id AssetID, ledger Fungible) {
	if r == nil || id.IsNative() || ledger == nil {
		return
	}
	r.fungibles[id] = ledger
}

// RegisterNFT binds an NFT ledger to an asset id.
func (r *Registry) RegisterNFT(id AssetID, ledger NFT) {
	if r == nil || id.IsNative() || ledger == nil {
		return
	}
	r.nfts[id] = ledger
}

// RegisterMultiToken binds a multi-token ledger to an asset id.
func (r *Registry) RegisterMultiToken(id AssetID, ledger MultiToken) {
	if r == nil || id.IsNative() || ledger == nil {
		return
	}
	r.multiToken[id] = ledger
}

// Native returns the native value ledger.
func (r *Registry) Native() Fungible {
	if r == nil {
		return nil
	}
	return r.native
}

// Fungible resolves a fungible ledger; the native asset id resolves to the
// native value ledger.
func (r *Registry) Fungible(id AssetID) (Fungible, error) {
	if r == nil {
		return nil, ErrUnknownAsset
	}
	if id.IsNative() {
		if r.native == nil {
			return nil, ErrUnknownAsset
		}
		return r.native, nil
	}
	ledger, ok := r.fungibles[id]
	if !ok {
		return nil, ErrUnknownAsset
	}
	return ledger, nil
}

// NFT resolves an NFT ledger.
func (r *Registry) NFT(id AssetID) (NFT, error) {
	if r == nil {
		return nil, ErrUnknownAsset
	}
	ledger, ok := r.nfts[id]
	if !ok {
		return nil, ErrUnknownAsset
	}
	return ledger, nil
}

// MultiToken resolves a multi-token ledger.
func (r *Registry) MultiToken(id AssetID) (MultiToken, error) {
	if r == nil {
		return nil, ErrUnknownAsset
	}
	ledger, ok := r.multiToken[id]
	if !ok {
		return nil, ErrUnknownAsset
	}
	return ledger, nil
}
