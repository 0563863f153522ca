package rpc

import (
	"encoding/json"
	"errors"

	"safepool/native/assets"
)

var errLedgersNotConfigured = errors.New("asset ledgers not configured")

func assetErr(err error) *RPCError {
	return &RPCError{Code: codeServerError, Message: err.Error()}
}

// SetLedgers exposes the asset registry over the asset_* methods. Without it
// the methods stay unregistered and only the engine surfaces are served.
func (s *Server) SetLedgers(registry *assets.Registry) {
	if registry == nil {
		return
	}
	s.ledgers = registry
	s.handlers["asset_balance"] = s.assetBalance
	s.handlers["asset_transfer"] = s.assetTransfer
	s.handlers["asset_approve"] = s.assetApprove
	s.handlers["asset_allowance"] = s.assetAllowance
	s.handlers["asset_nftOwner"] = s.assetNFTOwner
	s.handlers["asset_nftApprove"] = s.assetNFTApprove
	s.handlers["asset_multiBalance"] = s.assetMultiBalance
	s.handlers["asset_setApprovalForAll"] = s.assetSetApprovalForAll
}

// RegisterFaucet enables unauthenticated minting. Development environments
// only; the daemon never wires it in production.
func (s *Server) RegisterFaucet() {
	s.handlers["asset_mint"] = s.assetMint
}

type assetAccountParams struct {
	Asset   string `json:"asset,omitempty"`
	Address string `json:"address"`
	TokenID string `json:"tokenId,omitempty"`
}

func (s *Server) assetBalance(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[assetAccountParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	asset, err := parseAsset(p.Asset)
	if err != nil {
		return nil, invalidParams(err)
	}
	addr, err := parseAddress(p.Address)
	if err != nil {
		return nil, invalidParams(err)
	}
	ledger, err := s.ledgers.Fungible(asset)
	if err != nil {
		return nil, assetErr(err)
	}
	return map[string]any{"balance": ledger.BalanceOf(addr).String()}, nil
}

type assetTransferParams struct {
	Caller string `json:"caller"`
	Asset  string `json:"asset,omitempty"`
	To     string `json:"to"`
	Value  string `json:"value"`
}

func (s *Server) assetTransfer(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[assetTransferParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(p.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	asset, err := parseAsset(p.Asset)
	if err != nil {
		return nil, invalidParams(err)
	}
	to, err := parseAddress(p.To)
	if err != nil {
		return nil, invalidParams(err)
	}
	value, err := parseAmount(p.Value)
	if err != nil {
		return nil, invalidParams(err)
	}
	ledger, err := s.ledgers.Fungible(asset)
	if err != nil {
		return nil, assetErr(err)
	}
	if err := ledger.Transfer(caller, to, value); err != nil {
		return nil, assetErr(err)
	}
	return map[string]any{"ok": true}, nil
}

type assetApproveParams struct {
	Caller  string `json:"caller"`
	Asset   string `json:"asset,omitempty"`
	Spender string `json:"spender"`
	Value   string `json:"value,omitempty"`
	TokenID string `json:"tokenId,omitempty"`
}

func (s *Server) assetApprove(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[assetApproveParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(p.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	asset, err := parseAsset(p.Asset)
	if err != nil {
		return nil, invalidParams(err)
	}
	spender, err := parseAddress(p.Spender)
	if err != nil {
		return nil, invalidParams(err)
	}
	value, err := parseAmount(p.Value)
	if err != nil {
		return nil, invalidParams(err)
	}
	ledger, err := s.ledgers.Fungible(asset)
	if err != nil {
		return nil, assetErr(err)
	}
	if err := ledger.Approve(caller, spender, value); err != nil {
		return nil, assetErr(err)
	}
	return map[string]any{"ok": true}, nil
}

type allowanceParams struct {
	Asset   string `json:"asset,omitempty"`
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
}

func (s *Server) assetAllowance(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[allowanceParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	asset, err := parseAsset(p.Asset)
	if err != nil {
		return nil, invalidParams(err)
	}
	owner, err := parseAddress(p.Owner)
	if err != nil {
		return nil, invalidParams(err)
	}
	spender, err := parseAddress(p.Spender)
	if err != nil {
		return nil, invalidParams(err)
	}
	ledger, err := s.ledgers.Fungible(asset)
	if err != nil {
		return nil, assetErr(err)
	}
	return map[string]any{"allowance": ledger.Allowance(owner, spender).String()}, nil
}

func (s *Server) assetNFTOwner(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[assetAccountParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	asset, err := parseAsset(p.Asset)
	if err != nil {
		return nil, invalidParams(err)
	}
	tokenID, err := parseAmount(p.TokenID)
	if err != nil {
		return nil, invalidParams(err)
	}
	ledger, err := s.ledgers.NFT(asset)
	if err != nil {
		return nil, assetErr(err)
	}
	owner, err := ledger.OwnerOf(tokenID)
	if err != nil {
		return nil, assetErr(err)
	}
	return map[string]any{"owner": formatAddress(owner)}, nil
}

func (s *Server) assetNFTApprove(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[assetApproveParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(p.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	asset, err := parseAsset(p.Asset)
	if err != nil {
		return nil, invalidParams(err)
	}
	spender, err := parseAddress(p.Spender)
	if err != nil {
		return nil, invalidParams(err)
	}
	tokenID, err := parseAmount(p.TokenID)
	if err != nil {
		return nil, invalidParams(err)
	}
	ledger, err := s.ledgers.NFT(asset)
	if err != nil {
		return nil, assetErr(err)
	}
	if err := ledger.Approve(caller, spender, tokenID); err != nil {
		return nil, assetErr(err)
	}
	return map[string]any{"ok": true}, nil
}

func (s *Server) assetMultiBalance(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[assetAccountParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	asset, err := parseAsset(p.Asset)
	if err != nil {
		return nil, invalidParams(err)
	}
	addr, err := parseAddress(p.Address)
	if err != nil {
		return nil, invalidParams(err)
	}
	tokenID, err := parseAmount(p.TokenID)
	if err != nil {
		return nil, invalidParams(err)
	}
	ledger, err := s.ledgers.MultiToken(asset)
	if err != nil {
		return nil, assetErr(err)
	}
	return map[string]any{"balance": ledger.BalanceOf(addr, tokenID).String()}, nil
}

type operatorParams struct {
	Caller   string `json:"caller"`
	Asset    string `json:"asset"`
	Operator string `json:"operator"`
	Approved bool   `json:"approved"`
}

func (s *Server) assetSetApprovalForAll(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[operatorParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(p.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	asset, err := parseAsset(p.Asset)
	if err != nil {
		return nil, invalidParams(err)
	}
	operator, err := parseAddress(p.Operator)
	if err != nil {
		return nil, invalidParams(err)
	}
	ledger, err := s.ledgers.MultiToken(asset)
	if err != nil {
		return nil, assetErr(err)
	}
	ledger.SetApprovalForAll(caller, operator, p.Approved)
	return map[string]any{"ok": true}, nil
}

type mintParams struct {
	Asset   string `json:"asset,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Address string `json:"address"`
	Value   string `json:"value,omitempty"`
	TokenID string `json:"tokenId,omitempty"`
}

func (s *Server) assetMint(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[mintParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if s.ledgers == nil {
		return nil, assetErr(errLedgersNotConfigured)
	}
	asset, err := parseAsset(p.Asset)
	if err != nil {
		return nil, invalidParams(err)
	}
	addr, err := parseAddress(p.Address)
	if err != nil {
		return nil, invalidParams(err)
	}
	value, err := parseAmount(p.Value)
	if err != nil {
		return nil, invalidParams(err)
	}
	tokenID, err := parseAmount(p.TokenID)
	if err != nil {
		return nil, invalidParams(err)
	}
	switch p.Kind {
	case "", "native", "erc20":
		ledger, err := s.ledgers.Fungible(asset)
		if err != nil {
			return nil, assetErr(err)
		}
		minter, ok := ledger.(assets.FungibleMinter)
		if !ok {
			return nil, assetErr(errors.New("ledger cannot mint"))
		}
		if err := minter.Mint(addr, value); err != nil {
			return nil, assetErr(err)
		}
	case "erc721":
		ledger, err := s.ledgers.NFT(asset)
		if err != nil {
			return nil, assetErr(err)
		}
		minter, ok := ledger.(assets.NFTMinter)
		if !ok {
			return nil, assetErr(errors.New("ledger cannot mint"))
		}
		if err := minter.Mint(addr, tokenID); err != nil {
			return nil, assetErr(err)
		}
	case "erc1155":
		ledger, err := s.ledgers.MultiToken(asset)
		if err != nil {
			return nil, assetErr(err)
		}
		minter, ok := ledger.(assets.MultiTokenMinter)
		if !ok {
			return nil, assetErr(errors.New("ledger cannot mint"))
		}
		if err := minter.Mint(addr, tokenID, value); err != nil {
			return nil, assetErr(err)
		}
	default:
		return nil, invalidParams(errors.New("unknown mint kind"))
	}
	return map[string]any{"ok": true}, nil
}
