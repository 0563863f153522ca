package escrow

import (
	"errors"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"safepool/crypto"
)

// Hidden deposits park native value under an opaque 32-byte commitment. The
// commitment binds the full terms of a future transfer or swap without
// revealing them on deposit; the terms are re-presented and checked at
// reveal time.

var hiddenCollectTypeHash = typeHash32(
	"HiddenCollect(address from,address to,uint256 value,uint256 fees,bytes32 secretHash)")

var hiddenCollectSelector = selector4(
	"hiddenCollect(address,address,uint256,uint256,bytes32)")

func typeHash32(sig string) [32]byte {
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256([]byte(sig)))
	return out
}

func selector4(sig string) [4]byte {
	var out [4]byte
	copy(out[:], ethcrypto.Keccak256([]byte(sig))[:4])
	return out
}

// HiddenCollectTypedDigest is the typed-data digest the depositor signs to
// authorise a third-party reveal of a hidden transfer.
func HiddenCollectTypedDigest(domain crypto.TypedDomain, from, to [20]byte, value, fees *big.Int, secretHash [32]byte) [32]byte {
	structHash := crypto.HashStruct(hiddenCollectTypeHash,
		crypto.AddressWord(from),
		crypto.AddressWord(to),
		crypto.Uint256Word(value),
		crypto.Uint256Word(fees),
		secretHash,
	)
	return crypto.TypedDigest(domain, structHash)
}

// HiddenCollectMessage is the personal-sign alternative to the typed-data
// digest. Layout: uid[32] || selector[4] || from[20] || to[20] ||
// value[32] || fees[32] || secretHash[32].
func HiddenCollectMessage(uid [32]byte, from, to [20]byte, value, fees *big.Int, secretHash [32]byte) []byte {
	msg := make([]byte, 0, 172)
	msg = append(msg, uid[:]...)
	msg = append(msg, hiddenCollectSelector[:]...)
	msg = append(msg, from[:]...)
	msg = append(msg, to[:]...)
	valueWord := crypto.Uint256Word(value)
	msg = append(msg, valueWord[:]...)
	feesWord := crypto.Uint256Word(fees)
	msg = append(msg, feesWord[:]...)
	msg = append(msg, secretHash[:]...)
	return msg
}

// hiddenCollectInput builds the signature input for the requested mode:
// the typed-data digest, or the raw personal-sign message.
func (e *Engine) hiddenCollectInput(mode crypto.SignatureMode, from, to [20]byte, leg *Leg, secretHash [32]byte) []byte {
	if mode == crypto.SignatureModeTypedData {
		digest := HiddenCollectTypedDigest(e.domain, from, to, leg.Value, leg.Fees, secretHash)
		return digest[:]
	}
	return HiddenCollectMessage(e.uid, from, to, leg.Value, leg.Fees, secretHash)
}

// HiddenDepositValue locks native value from the caller under the given
// commitment. Nothing about the eventual recipient or terms is recorded.
func (e *Engine) HiddenDepositValue(caller [20]byte, commitment [32]byte, value *big.Int, timing *Timing) error {
	if err := e.ready(); err != nil {
		return err
	}
	if value == nil || value.Sign() <= 0 {
		return ErrHiddenValue
	}
	if timing != nil {
		if timing.AutoRetrieveFees.Sign() < 0 {
			return ErrNegativeValue
		}
		if timing.AutoRetrieveFees.Cmp(value) > 0 {
			return ErrFeesTooHigh
		}
	}
	if _, ok, err := e.state.HiddenGet(commitment); err != nil {
		return err
	} else if ok {
		return ErrDuplicateRequest
	}
	if err := e.ledgers.Native().Transfer(caller, e.vault, value); err != nil {
		return err
	}
	var t *Timing
	if timing != nil {
		t = timing.Clone()
	}
	dep := &HiddenDeposit{
		ID:        commitment,
		From:      caller,
		Value:     cloneAmount(value),
		Timing:    t,
		CreatedAt: e.now(),
	}
	if err := e.state.HiddenPut(dep); err != nil {
		return err
	}
	e.emit(hiddenDeposited{Deposit: dep})
	return nil
}

// HiddenRetrieveValue cancels a hidden deposit, returning the locked value
// to the depositor. Only the depositor may cancel.
func (e *Engine) HiddenRetrieveValue(caller [20]byte, commitment [32]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	dep, ok, err := e.state.HiddenGet(commitment)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if dep.From != caller {
		return ErrUnauthorized
	}
	if err := e.ledgers.Native().Transfer(e.vault, dep.From, dep.Value); err != nil {
		return err
	}
	if err := e.state.HiddenDelete(commitment); err != nil {
		return err
	}
	e.emit(hiddenRetrieved{Deposit: dep})
	return nil
}

// HiddenAutoRetrieve refunds an expired timed hidden deposit. Anyone may
// trigger it; the incentive fee is carved out of the locked value.
func (e *Engine) HiddenAutoRetrieve(caller [20]byte, commitment [32]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	dep, ok, err := e.state.HiddenGet(commitment)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if dep.Timing == nil {
		return ErrNotTimed
	}
	if e.now() <= dep.Timing.ExpiresAt {
		return ErrNotExpired
	}
	refund := cloneAmount(dep.Value)
	reward := cloneAmount(dep.Timing.AutoRetrieveFees)
	if reward.Sign() > 0 {
		refund.Sub(refund, reward)
		if err := e.ledgers.Native().Transfer(e.vault, caller, reward); err != nil {
			return err
		}
	}
	if refund.Sign() > 0 {
		if err := e.ledgers.Native().Transfer(e.vault, dep.From, refund); err != nil {
			return err
		}
	}
	if err := e.state.HiddenDelete(commitment); err != nil {
		return err
	}
	e.emit(hiddenRetrieved{Deposit: dep})
	return nil
}

func (e *Engine) loadHidden(commitment [32]byte, from [20]byte) (*HiddenDeposit, error) {
	dep, ok, err := e.state.HiddenGet(commitment)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if dep.From != from {
		return nil, ErrTermsMismatch
	}
	return dep, nil
}

// HiddenCollect reveals and settles a hidden transfer. The presented terms
// must hash to the stored commitment, the deposit must cover the native
// portion of the leg exactly, the secret must match, and the depositor's
// signature must authorise the reveal. Token legs are pulled from the
// depositor at reveal time.
func (e *Engine) HiddenCollect(caller, from, to [20]byte, leg *Leg, secretHash [32]byte, secret []byte, mode crypto.SignatureMode, sig []byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	sanitized, err := leg.Sanitize()
	if err != nil {
		return err
	}
	commitment := HiddenCommitment(from, to, sanitized, secretHash)
	dep, err := e.loadHidden(commitment, from)
	if err != nil {
		return err
	}
	if dep.Timing != nil && e.now() < dep.Timing.AvailableAt {
		return ErrNotYetAvailable
	}
	if dep.Value.Cmp(nativePortion(sanitized)) != 0 {
		return ErrTermsMismatch
	}
	if !secretMatches(secret, secretHash) {
		return ErrWrongSecret
	}
	input := e.hiddenCollectInput(mode, from, to, sanitized, secretHash)
	if err := crypto.VerifySigner(mode, input, sig, from); err != nil {
		return ErrInvalidSignature
	}
	if sanitized.Kind != LegNative {
		// Non-native value was never escrowed; pull it from the
		// depositor now that the terms are public.
		if err := e.moveValue(sanitized, from, e.vault); err != nil {
			return err
		}
	}
	if err := e.releaseLeg(sanitized, to); err != nil {
		return err
	}
	if err := e.state.HiddenDelete(commitment); err != nil {
		return err
	}
	e.emit(hiddenCollected{Deposit: dep, To: to, Caller: caller})
	return nil
}

// HiddenSwapDeposit opens a hidden swap with the commitment over both legs.
func (e *Engine) HiddenSwapDeposit(caller [20]byte, commitment [32]byte, value *big.Int, timing *Timing) error {
	return e.HiddenDepositValue(caller, commitment, value, timing)
}

// HiddenSwapRetrieve cancels a hidden swap deposit.
func (e *Engine) HiddenSwapRetrieve(caller [20]byte, commitment [32]byte) error {
	return e.HiddenRetrieveValue(caller, commitment)
}

// HiddenSwap reveals a hidden swap and settles it atomically. The caller is
// the counterparty: it locks leg1, the depositor's leg0 is pulled against
// the revealed commitment, and both legs settle in opposite directions.
func (e *Engine) HiddenSwap(caller, from [20]byte, leg0, leg1 *Leg, secretHash [32]byte, secret []byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	sanitized0, err := leg0.Sanitize()
	if err != nil {
		return err
	}
	sanitized1, err := leg1.Sanitize()
	if err != nil {
		return err
	}
	if err := validateSwapLegs(sanitized0, sanitized1); err != nil {
		return err
	}
	commitment := HiddenSwapCommitment(from, caller, sanitized0, sanitized1, secretHash)
	dep, err := e.loadHidden(commitment, from)
	if err != nil {
		return err
	}
	if dep.Timing != nil && e.now() < dep.Timing.AvailableAt {
		return ErrNotYetAvailable
	}
	if dep.Value.Cmp(nativePortion(sanitized0)) != 0 {
		return ErrTermsMismatch
	}
	if !secretMatches(secret, secretHash) {
		return ErrWrongSecret
	}
	if err := e.lockLeg(caller, sanitized1); err != nil {
		return err
	}
	if sanitized0.Kind != LegNative {
		// The depositor's token was never escrowed; pull it now. If the
		// pull fails, return the counterparty's leg so the deposit stays
		// retrievable as recorded.
		if err := e.moveValue(sanitized0, from, e.vault); err != nil {
			if undoErr := e.refundLeg(sanitized1, caller, caller, nil); undoErr != nil {
				return errors.Join(err, undoErr)
			}
			return err
		}
	}
	if err := e.releaseLeg(sanitized0, caller); err != nil {
		return err
	}
	if err := e.releaseLeg(sanitized1, from); err != nil {
		return err
	}
	if err := e.state.HiddenDelete(commitment); err != nil {
		return err
	}
	e.emit(hiddenSwapExecuted{Deposit: dep, To: caller})
	return nil
}

// Hidden returns a stored hidden deposit by commitment.
func (e *Engine) Hidden(commitment [32]byte) (*HiddenDeposit, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	dep, ok, err := e.state.HiddenGet(commitment)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return dep.Clone(), nil
}
