package escrow

import (
	"math/big"

	"safepool/crypto"
	"safepool/native/assets"
)

// ERC-1155 entrypoints. Single-id legs carry tokenID/value pairs; batch legs
// carry parallel tokenIDs[]/values[] arrays validated for equal length.

// --- single-id transfers ---

func (e *Engine) DepositERC1155(caller, to [20]byte, asset assets.AssetID, tokenID, value, fees *big.Int, secretHash [32]byte) ([32]byte, error) {
	return e.Deposit(caller, to, ERC1155Leg(asset, tokenID, value, fees), secretHash, nil)
}

func (e *Engine) TimedDepositERC1155(caller, to [20]byte, asset assets.AssetID, tokenID, value, fees *big.Int, secretHash [32]byte, timing Timing) ([32]byte, error) {
	return e.Deposit(caller, to, ERC1155Leg(asset, tokenID, value, fees), secretHash, &timing)
}

func (e *Engine) RetrieveERC1155(caller, to [20]byte, asset assets.AssetID, tokenID, value, fees *big.Int, secretHash [32]byte, timing *Timing) error {
	return e.Retrieve(caller, to, ERC1155Leg(asset, tokenID, value, fees), secretHash, timing)
}

func (e *Engine) CollectERC1155(caller, from, to [20]byte, asset assets.AssetID, tokenID, value, fees *big.Int, secretHash [32]byte, secret []byte, timing *Timing) error {
	return e.Collect(caller, from, to, ERC1155Leg(asset, tokenID, value, fees), secretHash, secret, timing)
}

func (e *Engine) AutoRetrieveERC1155(caller, from, to [20]byte, asset assets.AssetID, tokenID, value, fees *big.Int, secretHash [32]byte, timing Timing) error {
	return e.AutoRetrieve(caller, from, to, ERC1155Leg(asset, tokenID, value, fees), secretHash, &timing)
}

// --- batch transfers ---

func (e *Engine) DepositBatchERC1155(caller, to [20]byte, asset assets.AssetID, tokenIDs, values []*big.Int, fees *big.Int, secretHash [32]byte) ([32]byte, error) {
	return e.Deposit(caller, to, ERC1155BatchLeg(asset, tokenIDs, values, fees), secretHash, nil)
}

func (e *Engine) TimedDepositBatchERC1155(caller, to [20]byte, asset assets.AssetID, tokenIDs, values []*big.Int, fees *big.Int, secretHash [32]byte, timing Timing) ([32]byte, error) {
	return e.Deposit(caller, to, ERC1155BatchLeg(asset, tokenIDs, values, fees), secretHash, &timing)
}

func (e *Engine) RetrieveBatchERC1155(caller, to [20]byte, asset assets.AssetID, tokenIDs, values []*big.Int, fees *big.Int, secretHash [32]byte, timing *Timing) error {
	return e.Retrieve(caller, to, ERC1155BatchLeg(asset, tokenIDs, values, fees), secretHash, timing)
}

func (e *Engine) CollectBatchERC1155(caller, from, to [20]byte, asset assets.AssetID, tokenIDs, values []*big.Int, fees *big.Int, secretHash [32]byte, secret []byte, timing *Timing) error {
	return e.Collect(caller, from, to, ERC1155BatchLeg(asset, tokenIDs, values, fees), secretHash, secret, timing)
}

func (e *Engine) AutoRetrieveBatchERC1155(caller, from, to [20]byte, asset assets.AssetID, tokenIDs, values []*big.Int, fees *big.Int, secretHash [32]byte, timing Timing) error {
	return e.AutoRetrieve(caller, from, to, ERC1155BatchLeg(asset, tokenIDs, values, fees), secretHash, &timing)
}

// --- hidden ERC-1155 transfers ---

// HiddenDepositERC1155Commitment computes the commitment a depositor locks
// native fees under for a later single-id reveal.
func HiddenDepositERC1155Commitment(from, to [20]byte, asset assets.AssetID, tokenID, value, fees *big.Int, secretHash [32]byte) [32]byte {
	leg, err := ERC1155Leg(asset, tokenID, value, fees).Sanitize()
	if err != nil {
		return [32]byte{}
	}
	return HiddenCommitment(from, to, leg, secretHash)
}

func (e *Engine) HiddenCollectERC1155(caller, from, to [20]byte, asset assets.AssetID, tokenID, value, fees *big.Int, secretHash [32]byte, secret []byte, mode crypto.SignatureMode, sig []byte) error {
	return e.HiddenCollect(caller, from, to, ERC1155Leg(asset, tokenID, value, fees), secretHash, secret, mode, sig)
}

func (e *Engine) HiddenCollectBatchERC1155(caller, from, to [20]byte, asset assets.AssetID, tokenIDs, values []*big.Int, fees *big.Int, secretHash [32]byte, secret []byte, mode crypto.SignatureMode, sig []byte) error {
	return e.HiddenCollect(caller, from, to, ERC1155BatchLeg(asset, tokenIDs, values, fees), secretHash, secret, mode, sig)
}

// --- cross-asset swaps involving ERC-1155 ---

func (e *Engine) SwapDepositERC20ToERC1155(caller, to [20]byte, asset0 assets.AssetID, value0, fees0 *big.Int, asset1 assets.AssetID, tokenID1, value1, fees1 *big.Int, secretHash [32]byte, timing *Timing) ([32]byte, error) {
	return e.SwapDeposit(caller, to, ERC20Leg(asset0, value0, fees0), ERC1155Leg(asset1, tokenID1, value1, fees1), secretHash, timing)
}

func (e *Engine) SwapERC20ToERC1155(caller, from [20]byte, asset0 assets.AssetID, value0, fees0 *big.Int, asset1 assets.AssetID, tokenID1, value1, fees1 *big.Int, secretHash [32]byte, secret []byte, timing *Timing) error {
	return e.Swap(caller, from, ERC20Leg(asset0, value0, fees0), ERC1155Leg(asset1, tokenID1, value1, fees1), secretHash, secret, timing)
}

func (e *Engine) SwapDepositERC1155ToERC20(caller, to [20]byte, asset0 assets.AssetID, tokenID0, value0, fees0 *big.Int, asset1 assets.AssetID, value1, fees1 *big.Int, secretHash [32]byte, timing *Timing) ([32]byte, error) {
	return e.SwapDeposit(caller, to, ERC1155Leg(asset0, tokenID0, value0, fees0), ERC20Leg(asset1, value1, fees1), secretHash, timing)
}

func (e *Engine) SwapERC1155ToERC20(caller, from [20]byte, asset0 assets.AssetID, tokenID0, value0, fees0 *big.Int, asset1 assets.AssetID, value1, fees1 *big.Int, secretHash [32]byte, secret []byte, timing *Timing) error {
	return e.Swap(caller, from, ERC1155Leg(asset0, tokenID0, value0, fees0), ERC20Leg(asset1, value1, fees1), secretHash, secret, timing)
}

func (e *Engine) SwapDepositERC1155(caller, to [20]byte, asset0 assets.AssetID, tokenID0, value0, fees0 *big.Int, asset1 assets.AssetID, tokenID1, value1, fees1 *big.Int, secretHash [32]byte, timing *Timing) ([32]byte, error) {
	return e.SwapDeposit(caller, to, ERC1155Leg(asset0, tokenID0, value0, fees0), ERC1155Leg(asset1, tokenID1, value1, fees1), secretHash, timing)
}

func (e *Engine) SwapERC1155(caller, from [20]byte, asset0 assets.AssetID, tokenID0, value0, fees0 *big.Int, asset1 assets.AssetID, tokenID1, value1, fees1 *big.Int, secretHash [32]byte, secret []byte, timing *Timing) error {
	return e.Swap(caller, from, ERC1155Leg(asset0, tokenID0, value0, fees0), ERC1155Leg(asset1, tokenID1, value1, fees1), secretHash, secret, timing)
}

func (e *Engine) SwapDepositValueToERC1155(caller, to [20]byte, value0, fees0 *big.Int, asset1 assets.AssetID, tokenID1, value1, fees1 *big.Int, secretHash [32]byte, timing *Timing) ([32]byte, error) {
	return e.SwapDeposit(caller, to, NativeLeg(value0, fees0), ERC1155Leg(asset1, tokenID1, value1, fees1), secretHash, timing)
}

func (e *Engine) SwapValueToERC1155(caller, from [20]byte, value0, fees0 *big.Int, asset1 assets.AssetID, tokenID1, value1, fees1 *big.Int, secretHash [32]byte, secret []byte, timing *Timing) error {
	return e.Swap(caller, from, NativeLeg(value0, fees0), ERC1155Leg(asset1, tokenID1, value1, fees1), secretHash, secret, timing)
}

func (e *Engine) SwapDepositBatchERC1155(caller, to [20]byte, asset0 assets.AssetID, tokenIDs0, values0 []*big.Int, fees0 *big.Int, asset1 assets.AssetID, tokenIDs1, values1 []*big.Int, fees1 *big.Int, secretHash [32]byte, timing *Timing) ([32]byte, error) {
	return e.SwapDeposit(caller, to, ERC1155BatchLeg(asset0, tokenIDs0, values0, fees0), ERC1155BatchLeg(asset1, tokenIDs1, values1, fees1), secretHash, timing)
}

func (e *Engine) SwapBatchERC1155(caller, from [20]byte, asset0 assets.AssetID, tokenIDs0, values0 []*big.Int, fees0 *big.Int, asset1 assets.AssetID, tokenIDs1, values1 []*big.Int, fees1 *big.Int, secretHash [32]byte, secret []byte, timing *Timing) error {
	return e.Swap(caller, from, ERC1155BatchLeg(asset0, tokenIDs0, values0, fees0), ERC1155BatchLeg(asset1, tokenIDs1, values1, fees1), secretHash, secret, timing)
}
