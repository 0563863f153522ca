package rpc

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"safepool/crypto"
	"safepool/native/assets"
	"safepool/native/escrow"
)

// Wire encodings: addresses, asset ids, hashes and secrets are hex strings
// (0x prefix optional); token amounts are decimal strings to avoid JSON
// number precision loss.

func parseHex(s string, want int) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	if want > 0 && len(raw) != want {
		return nil, fmt.Errorf("expected %d bytes, got %d", want, len(raw))
	}
	return raw, nil
}

func parseAddress(s string) ([20]byte, error) {
	var out [20]byte
	raw, err := parseHex(s, 20)
	if err != nil {
		return out, err
	}
	copy(out[:], raw)
	return out, nil
}

func parseAsset(s string) (assets.AssetID, error) {
	var out assets.AssetID
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	raw, err := parseHex(s, 20)
	if err != nil {
		return out, err
	}
	copy(out[:], raw)
	return out, nil
}

func parseHash(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := parseHex(s, 32)
	if err != nil {
		return out, err
	}
	copy(out[:], raw)
	return out, nil
}

func parseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal amount %q", s)
	}
	return v, nil
}

func parseAmounts(ss []string) ([]*big.Int, error) {
	out := make([]*big.Int, len(ss))
	for i, s := range ss {
		v, err := parseAmount(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseSignatureMode(s string) (crypto.SignatureMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "personal":
		return crypto.SignatureModePersonal, nil
	case "typed", "typeddata", "eip712":
		return crypto.SignatureModeTypedData, nil
	}
	return 0, fmt.Errorf("unknown signature mode %q", s)
}

func formatAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func formatHash(h [32]byte) string {
	return "0x" + hex.EncodeToString(h[:])
}

// legParam is the wire form of an escrow leg.
type legParam struct {
	Kind     string   `json:"kind"`
	Asset    string   `json:"asset,omitempty"`
	Value    string   `json:"value,omitempty"`
	TokenID  string   `json:"tokenId,omitempty"`
	TokenIDs []string `json:"tokenIds,omitempty"`
	Values   []string `json:"values,omitempty"`
	Fees     string   `json:"fees,omitempty"`
}

func (p *legParam) toLeg() (*escrow.Leg, error) {
	if p == nil {
		return nil, fmt.Errorf("leg required")
	}
	asset, err := parseAsset(p.Asset)
	if err != nil {
		return nil, fmt.Errorf("leg asset: %w", err)
	}
	fees, err := parseAmount(p.Fees)
	if err != nil {
		return nil, fmt.Errorf("leg fees: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(p.Kind)) {
	case "", "native":
		value, err := parseAmount(p.Value)
		if err != nil {
			return nil, err
		}
		return escrow.NativeLeg(value, fees), nil
	case "erc20":
		value, err := parseAmount(p.Value)
		if err != nil {
			return nil, err
		}
		return escrow.ERC20Leg(asset, value, fees), nil
	case "erc721":
		tokenID, err := parseAmount(p.TokenID)
		if err != nil {
			return nil, err
		}
		return escrow.ERC721Leg(asset, tokenID, fees), nil
	case "erc1155":
		tokenID, err := parseAmount(p.TokenID)
		if err != nil {
			return nil, err
		}
		value, err := parseAmount(p.Value)
		if err != nil {
			return nil, err
		}
		return escrow.ERC1155Leg(asset, tokenID, value, fees), nil
	case "erc1155batch":
		tokenIDs, err := parseAmounts(p.TokenIDs)
		if err != nil {
			return nil, err
		}
		values, err := parseAmounts(p.Values)
		if err != nil {
			return nil, err
		}
		return escrow.ERC1155BatchLeg(asset, tokenIDs, values, fees), nil
	}
	return nil, fmt.Errorf("unknown leg kind %q", p.Kind)
}

// timingParam is the wire form of the optional timed-escrow window.
type timingParam struct {
	AvailableAt      int64  `json:"availableAt"`
	ExpiresAt        int64  `json:"expiresAt"`
	AutoRetrieveFees string `json:"autoRetrieveFees,omitempty"`
}

func (p *timingParam) toTiming() (*escrow.Timing, error) {
	if p == nil {
		return nil, nil
	}
	fees, err := parseAmount(p.AutoRetrieveFees)
	if err != nil {
		return nil, fmt.Errorf("autoRetrieveFees: %w", err)
	}
	return &escrow.Timing{
		AvailableAt:      p.AvailableAt,
		ExpiresAt:        p.ExpiresAt,
		AutoRetrieveFees: fees,
	}, nil
}
