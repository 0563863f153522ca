package escrow

import (
	"math/big"

	"safepool/native/assets"
)

// Leg constructors. The engine core is written against Leg values; these
// wrappers exist so call sites and RPC handlers read like the protocol they
// implement.

// NativeLeg describes a native-value leg.
func NativeLeg(value, fees *big.Int) *Leg {
	return &Leg{Kind: LegNative, Value: cloneAmount(value), Fees: cloneAmount(fees)}
}

// ERC20Leg describes a fungible-token leg. Fees stay native-denominated.
func ERC20Leg(asset assets.AssetID, value, fees *big.Int) *Leg {
	return &Leg{Kind: LegERC20, Asset: asset, Value: cloneAmount(value), Fees: cloneAmount(fees)}
}

// ERC721Leg describes a single-NFT leg. The token id rides in Value.
func ERC721Leg(asset assets.AssetID, tokenID, fees *big.Int) *Leg {
	return &Leg{Kind: LegERC721, Asset: asset, Value: cloneAmount(tokenID), Fees: cloneAmount(fees)}
}

// ERC1155Leg describes a single-id multi-token leg.
func ERC1155Leg(asset assets.AssetID, tokenID, value, fees *big.Int) *Leg {
	return &Leg{
		Kind:    LegERC1155,
		Asset:   asset,
		TokenID: cloneAmount(tokenID),
		Value:   cloneAmount(value),
		Fees:    cloneAmount(fees),
	}
}

// ERC1155BatchLeg describes a multi-id multi-token leg with parallel id and
// value arrays.
func ERC1155BatchLeg(asset assets.AssetID, tokenIDs, values []*big.Int, fees *big.Int) *Leg {
	return &Leg{
		Kind:     LegERC1155Batch,
		Asset:    asset,
		TokenIDs: cloneAmounts(tokenIDs),
		Values:   cloneAmounts(values),
		Fees:     cloneAmount(fees),
	}
}

// --- native value transfers ---

func (e *Engine) DepositValue(caller, to [20]byte, value, fees *big.Int, secretHash [32]byte) ([32]byte, error) {
	return e.Deposit(caller, to, NativeLeg(value, fees), secretHash, nil)
}

func (e *Engine) TimedDepositValue(caller, to [20]byte, value, fees *big.Int, secretHash [32]byte, timing Timing) ([32]byte, error) {
	return e.Deposit(caller, to, NativeLeg(value, fees), secretHash, &timing)
}

func (e *Engine) RetrieveValue(caller, to [20]byte, value, fees *big.Int, secretHash [32]byte, timing *Timing) error {
	return e.Retrieve(caller, to, NativeLeg(value, fees), secretHash, timing)
}

func (e *Engine) CollectValue(caller, from, to [20]byte, value, fees *big.Int, secretHash [32]byte, secret []byte, timing *Timing) error {
	return e.Collect(caller, from, to, NativeLeg(value, fees), secretHash, secret, timing)
}

func (e *Engine) AutoRetrieveValue(caller, from, to [20]byte, value, fees *big.Int, secretHash [32]byte, timing Timing) error {
	return e.AutoRetrieve(caller, from, to, NativeLeg(value, fees), secretHash, &timing)
}

// --- ERC-20 transfers ---

func (e *Engine) DepositERC20(caller, to [20]byte, asset assets.AssetID, value, fees *big.Int, secretHash [32]byte) ([32]byte, error) {
	return e.Deposit(caller, to, ERC20Leg(asset, value, fees), secretHash, nil)
}

func (e *Engine) TimedDepositERC20(caller, to [20]byte, asset assets.AssetID, value, fees *big.Int, secretHash [32]byte, timing Timing) ([32]byte, error) {
	return e.Deposit(caller, to, ERC20Leg(asset, value, fees), secretHash, &timing)
}

func (e *Engine) RetrieveERC20(caller, to [20]byte, asset assets.AssetID, value, fees *big.Int, secretHash [32]byte, timing *Timing) error {
	return e.Retrieve(caller, to, ERC20Leg(asset, value, fees), secretHash, timing)
}

func (e *Engine) CollectERC20(caller, from, to [20]byte, asset assets.AssetID, value, fees *big.Int, secretHash [32]byte, secret []byte, timing *Timing) error {
	return e.Collect(caller, from, to, ERC20Leg(asset, value, fees), secretHash, secret, timing)
}

func (e *Engine) AutoRetrieveERC20(caller, from, to [20]byte, asset assets.AssetID, value, fees *big.Int, secretHash [32]byte, timing Timing) error {
	return e.AutoRetrieve(caller, from, to, ERC20Leg(asset, value, fees), secretHash, &timing)
}

// --- ERC-721 transfers ---

func (e *Engine) DepositERC721(caller, to [20]byte, asset assets.AssetID, tokenID, fees *big.Int, secretHash [32]byte) ([32]byte, error) {
	return e.Deposit(caller, to, ERC721Leg(asset, tokenID, fees), secretHash, nil)
}

func (e *Engine) TimedDepositERC721(caller, to [20]byte, asset assets.AssetID, tokenID, fees *big.Int, secretHash [32]byte, timing Timing) ([32]byte, error) {
	return e.Deposit(caller, to, ERC721Leg(asset, tokenID, fees), secretHash, &timing)
}

func (e *Engine) RetrieveERC721(caller, to [20]byte, asset assets.AssetID, tokenID, fees *big.Int, secretHash [32]byte, timing *Timing) error {
	return e.Retrieve(caller, to, ERC721Leg(asset, tokenID, fees), secretHash, timing)
}

func (e *Engine) CollectERC721(caller, from, to [20]byte, asset assets.AssetID, tokenID, fees *big.Int, secretHash [32]byte, secret []byte, timing *Timing) error {
	return e.Collect(caller, from, to, ERC721Leg(asset, tokenID, fees), secretHash, secret, timing)
}

func (e *Engine) AutoRetrieveERC721(caller, from, to [20]byte, asset assets.AssetID, tokenID, fees *big.Int, secretHash [32]byte, timing Timing) error {
	return e.AutoRetrieve(caller, from, to, ERC721Leg(asset, tokenID, fees), secretHash, &timing)
}

// --- fungible and NFT swaps ---

func (e *Engine) SwapDepositValueToERC20(caller, to [20]byte, value0, fees0 *big.Int, asset1 assets.AssetID, value1, fees1 *big.Int, secretHash [32]byte, timing *Timing) ([32]byte, error) {
	return e.SwapDeposit(caller, to, NativeLeg(value0, fees0), ERC20Leg(asset1, value1, fees1), secretHash, timing)
}

func (e *Engine) SwapValueToERC20(caller, from [20]byte, value0, fees0 *big.Int, asset1 assets.AssetID, value1, fees1 *big.Int, secretHash [32]byte, secret []byte, timing *Timing) error {
	return e.Swap(caller, from, NativeLeg(value0, fees0), ERC20Leg(asset1, value1, fees1), secretHash, secret, timing)
}

func (e *Engine) SwapDepositERC20ToValue(caller, to [20]byte, asset0 assets.AssetID, value0, fees0 *big.Int, value1, fees1 *big.Int, secretHash [32]byte, timing *Timing) ([32]byte, error) {
	return e.SwapDeposit(caller, to, ERC20Leg(asset0, value0, fees0), NativeLeg(value1, fees1), secretHash, timing)
}

func (e *Engine) SwapERC20ToValue(caller, from [20]byte, asset0 assets.AssetID, value0, fees0 *big.Int, value1, fees1 *big.Int, secretHash [32]byte, secret []byte, timing *Timing) error {
	return e.Swap(caller, from, ERC20Leg(asset0, value0, fees0), NativeLeg(value1, fees1), secretHash, secret, timing)
}

func (e *Engine) SwapDepositERC20(caller, to [20]byte, asset0 assets.AssetID, value0, fees0 *big.Int, asset1 assets.AssetID, value1, fees1 *big.Int, secretHash [32]byte, timing *Timing) ([32]byte, error) {
	return e.SwapDeposit(caller, to, ERC20Leg(asset0, value0, fees0), ERC20Leg(asset1, value1, fees1), secretHash, timing)
}

func (e *Engine) SwapERC20(caller, from [20]byte, asset0 assets.AssetID, value0, fees0 *big.Int, asset1 assets.AssetID, value1, fees1 *big.Int, secretHash [32]byte, secret []byte, timing *Timing) error {
	return e.Swap(caller, from, ERC20Leg(asset0, value0, fees0), ERC20Leg(asset1, value1, fees1), secretHash, secret, timing)
}

func (e *Engine) SwapDepositERC721ToValue(caller, to [20]byte, asset0 assets.AssetID, tokenID0, fees0 *big.Int, value1, fees1 *big.Int, secretHash [32]byte, timing *Timing) ([32]byte, error) {
	return e.SwapDeposit(caller, to, ERC721Leg(asset0, tokenID0, fees0), NativeLeg(value1, fees1), secretHash, timing)
}

func (e *Engine) SwapERC721ToValue(caller, from [20]byte, asset0 assets.AssetID, tokenID0, fees0 *big.Int, value1, fees1 *big.Int, secretHash [32]byte, secret []byte, timing *Timing) error {
	return e.Swap(caller, from, ERC721Leg(asset0, tokenID0, fees0), NativeLeg(value1, fees1), secretHash, secret, timing)
}

func (e *Engine) SwapDepositValueToERC721(caller, to [20]byte, value0, fees0 *big.Int, asset1 assets.AssetID, tokenID1, fees1 *big.Int, secretHash [32]byte, timing *Timing) ([32]byte, error) {
	return e.SwapDeposit(caller, to, NativeLeg(value0, fees0), ERC721Leg(asset1, tokenID1, fees1), secretHash, timing)
}

func (e *Engine) SwapValueToERC721(caller, from [20]byte, value0, fees0 *big.Int, asset1 assets.AssetID, tokenID1, fees1 *big.Int, secretHash [32]byte, secret []byte, timing *Timing) error {
	return e.Swap(caller, from, NativeLeg(value0, fees0), ERC721Leg(asset1, tokenID1, fees1), secretHash, secret, timing)
}
