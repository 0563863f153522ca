package escrow

import (
	"errors"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"safepool/core/events"
	"safepool/crypto"
	"safepool/native/assets"
)

var (
	errNilState   = errors.New("escrow engine: state not configured")
	errNilLedgers = errors.New("escrow engine: asset ledgers not configured")

	ErrFeesTooHigh      = errors.New("escrow engine: auto-retrieve fees exceed deposit fees")
	ErrInvalidSignature = errors.New("escrow engine: invalid signature")
)

type engineState interface {
	EscrowGet(id [32]byte) (*Request, bool, error)
	EscrowPut(*Request) error
	EscrowDelete(id [32]byte) error
	HiddenGet(id [32]byte) (*HiddenDeposit, bool, error)
	HiddenPut(*HiddenDeposit) error
	HiddenDelete(id [32]byte) error
}

type ledgerResolver interface {
	Native() assets.Fungible
	Fungible(assets.AssetID) (assets.Fungible, error)
	NFT(assets.AssetID) (assets.NFT, error)
	MultiToken(assets.AssetID) (assets.MultiToken, error)
}

// Engine implements the hash-locked transfer and atomic-swap protocol.
// Escrowed value sits at the vault address on the underlying ledgers; the
// engine is the only mover of vault funds. Caller identity is explicit on
// every operation.
type Engine struct {
	state        engineState
	ledgers      ledgerResolver
	vault        [20]byte
	feeCollector [20]byte
	domain       crypto.TypedDomain
	uid          [32]byte
	emitter      events.Emitter
	nowFn        func() int64
}

// NewEngine creates an escrow engine with custody at vault.
func NewEngine(ledgers ledgerResolver, vault [20]byte, domain crypto.TypedDomain) *Engine {
	return &Engine{
		ledgers:      ledgers,
		vault:        vault,
		feeCollector: vault,
		domain:       domain,
		uid:          domain.Separator(),
		emitter:      events.NoopEmitter{},
		nowFn:        func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetFeeCollector configures the recipient of collection fees. It defaults to
// the vault address itself.
func (e *Engine) SetFeeCollector(addr [20]byte) { e.feeCollector = addr }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Domain returns the engine's typed-data domain.
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
	if e.ledgers == nil || e.ledgers.Native() == nil {
		return errNilLedgers
	}
	return nil
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func secretMatches(secret []byte, secretHash [32]byte) bool {
	var hashed [32]byte
	copy(hashed[:], ethcrypto.Keccak256(secret))
	return hashed == secretHash
}

// nativePortion is the native value a leg locks: amount plus fees for a
// native leg, fees only otherwise.
func nativePortion(leg *Leg) *big.Int {
	total := cloneAmount(leg.Fees)
	if leg.Kind == LegNative {
		total.Add(total, leg.Value)
	}
	return total
}

// moveValue moves the non-fee portion of a leg between two parties. The
// vault acts as operator for token pulls, so depositors must have approved
// it beforehand.
func (e *Engine) moveValue(leg *Leg, from, to [20]byte) error {
	switch leg.Kind {
	case LegNative:
		return e.ledgers.Native().Transfer(from, to, leg.Value)
	case LegERC20:
		ledger, err := e.ledgers.Fungible(leg.Asset)
		if err != nil {
			return err
		}
		if from == e.vault {
			return ledger.Transfer(from, to, leg.Value)
		}
		return ledger.TransferFrom(e.vault, from, to, leg.Value)
	case LegERC721:
		ledger, err := e.ledgers.NFT(leg.Asset)
		if err != nil {
			return err
		}
		return ledger.TransferFrom(e.vault, from, to, leg.Value)
	case LegERC1155:
		ledger, err := e.ledgers.MultiToken(leg.Asset)
		if err != nil {
			return err
		}
		return ledger.SafeTransferFrom(e.vault, from, to, leg.TokenID, leg.Value)
	case LegERC1155Batch:
		ledger, err := e.ledgers.MultiToken(leg.Asset)
		if err != nil {
			return err
		}
		return ledger.SafeBatchTransferFrom(e.vault, from, to, leg.TokenIDs, leg.Values)
	}
	return ErrInvalidLeg
}

// lockLeg pulls a leg's value and native fees from the depositor into vault
// custody. The native portion moves first; if the token pull then fails it is
// returned, so a failed lock leaves nothing with the vault.
func (e *Engine) lockLeg(from [20]byte, leg *Leg) error {
	native := nativePortion(leg)
	if native.Sign() > 0 {
		if err := e.ledgers.Native().Transfer(from, e.vault, native); err != nil {
			return err
		}
	}
	if leg.Kind == LegNative {
		return nil
	}
	if err := e.moveValue(leg, from, e.vault); err != nil {
		if native.Sign() > 0 {
			if undoErr := e.ledgers.Native().Transfer(e.vault, from, native); undoErr != nil {
				return errors.Join(err, undoErr)
			}
		}
		return err
	}
	return nil
}

// releaseLeg pays a leg's value to the recipient and its fees to the fee
// collector.
func (e *Engine) releaseLeg(leg *Leg, to [20]byte) error {
	if err := e.moveValue(leg, e.vault, to); err != nil {
		return err
	}
	fees := cloneAmount(leg.Fees)
	if fees.Sign() == 0 {
		return nil
	}
	return e.ledgers.Native().Transfer(e.vault, e.feeCollector, fees)
}

// refundLeg returns a leg (value and fees) from the vault to the depositor.
// A positive incentive carves that much out of the fees for the triggering
// caller.
func (e *Engine) refundLeg(leg *Leg, from, caller [20]byte, incentive *big.Int) error {
	if err := e.moveValue(leg, e.vault, from); err != nil {
		return err
	}
	fees := cloneAmount(leg.Fees)
	reward := cloneAmount(incentive)
	if reward.Sign() > 0 {
		fees.Sub(fees, reward)
		if err := e.ledgers.Native().Transfer(e.vault, caller, reward); err != nil {
			return err
		}
	}
	if fees.Sign() > 0 {
		return e.ledgers.Native().Transfer(e.vault, from, fees)
	}
	return nil
}

func sanitizeTiming(leg *Leg, timing *Timing) (*Timing, error) {
	if timing == nil {
		return nil, nil
	}
	t := timing.Clone()
	if t.AutoRetrieveFees.Sign() < 0 {
		return nil, ErrNegativeValue
	}
	if t.AutoRetrieveFees.Cmp(leg.Fees) > 0 {
		return nil, ErrFeesTooHigh
	}
	return t, nil
}

// --- one-sided transfers ---

// Deposit locks leg value from the caller under a hash lock in favour of to.
func (e *Engine) Deposit(caller, to [20]byte, leg *Leg, secretHash [32]byte, timing *Timing) ([32]byte, error) {
	var id [32]byte
	if err := e.ready(); err != nil {
		return id, err
	}
	if caller == to {
		return id, ErrSelfTransfer
	}
	sanitized, err := leg.Sanitize()
	if err != nil {
		return id, err
	}
	t, err := sanitizeTiming(sanitized, timing)
	if err != nil {
		return id, err
	}
	id = RequestID(KindTransfer, caller, to, sanitized, nil, secretHash, t)
	if _, ok, err := e.state.EscrowGet(id); err != nil {
		return id, err
	} else if ok {
		return id, ErrDuplicateRequest
	}
	if err := e.lockLeg(caller, sanitized); err != nil {
		return id, err
	}
	req := &Request{
		ID:         id,
		Kind:       KindTransfer,
		From:       caller,
		To:         to,
		Leg0:       sanitized,
		SecretHash: secretHash,
		Timing:     t,
		CreatedAt:  e.now(),
	}
	if err := e.state.EscrowPut(req); err != nil {
		return id, err
	}
	e.emit(requestDeposited{Request: req})
	return id, nil
}

// Retrieve is the depositor's unilateral cancel: the exact original terms
// must be re-presented, no secret needed.
func (e *Engine) Retrieve(caller, to [20]byte, leg *Leg, secretHash [32]byte, timing *Timing) error {
	if err := e.ready(); err != nil {
		return err
	}
	sanitized, err := leg.Sanitize()
	if err != nil {
		return err
	}
	t, err := sanitizeTiming(sanitized, timing)
	if err != nil {
		return err
	}
	id := RequestID(KindTransfer, caller, to, sanitized, nil, secretHash, t)
	req, ok, err := e.state.EscrowGet(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if req.From != caller {
		return ErrUnauthorized
	}
	if err := e.refundLeg(req.Leg0, req.From, caller, nil); err != nil {
		return err
	}
	if err := e.state.EscrowDelete(id); err != nil {
		return err
	}
	e.emit(requestRetrieved{Request: req})
	return nil
}

// Collect settles a transfer in favour of the recipient on presentation of
// the secret. Anyone holding the secret may trigger it; proceeds always go
// to the stored recipient.
func (e *Engine) Collect(caller, from, to [20]byte, leg *Leg, secretHash [32]byte, secret []byte, timing *Timing) error {
	if err := e.ready(); err != nil {
		return err
	}
	sanitized, err := leg.Sanitize()
	if err != nil {
		return err
	}
	t, err := sanitizeTiming(sanitized, timing)
	if err != nil {
		return err
	}
	id := RequestID(KindTransfer, from, to, sanitized, nil, secretHash, t)
	req, ok, err := e.state.EscrowGet(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if req.Timing != nil && e.now() < req.Timing.AvailableAt {
		return ErrNotYetAvailable
	}
	if !secretMatches(secret, req.SecretHash) {
		return ErrWrongSecret
	}
	if err := e.releaseLeg(req.Leg0, req.To); err != nil {
		return err
	}
	if err := e.state.EscrowDelete(id); err != nil {
		return err
	}
	e.emit(requestCollected{Request: req, Caller: caller})
	return nil
}

// AutoRetrieve returns an expired timed deposit to the depositor. Anyone may
// trigger it; the configured incentive fee pays the caller.
func (e *Engine) AutoRetrieve(caller, from, to [20]byte, leg *Leg, secretHash [32]byte, timing *Timing) error {
	if err := e.ready(); err != nil {
		return err
	}
	sanitized, err := leg.Sanitize()
	if err != nil {
		return err
	}
	t, err := sanitizeTiming(sanitized, timing)
	if err != nil {
		return err
	}
	if t == nil {
		return ErrNotTimed
	}
	id := RequestID(KindTransfer, from, to, sanitized, nil, secretHash, t)
	req, ok, err := e.state.EscrowGet(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if req.Timing == nil {
		return ErrNotTimed
	}
	if e.now() <= req.Timing.ExpiresAt {
		return ErrNotExpired
	}
	if err := e.refundLeg(req.Leg0, req.From, caller, req.Timing.AutoRetrieveFees); err != nil {
		return err
	}
	if err := e.state.EscrowDelete(id); err != nil {
		return err
	}
	e.emit(requestAutoRetrieved{Request: req, Caller: caller})
	return nil
}

// --- two-sided swaps ---

func validateSwapLegs(leg0, leg1 *Leg) error {
	if leg0.fungibleLike() && leg1.fungibleLike() && leg0.Asset == leg1.Asset {
		return ErrSameAsset
	}
	return nil
}

// SwapDeposit opens a swap: the caller locks leg0 (plus fees) against a hash
// lock; the counterparty later locks leg1 within Swap itself.
func (e *Engine) SwapDeposit(caller, to [20]byte, leg0, leg1 *Leg, secretHash [32]byte, timing *Timing) ([32]byte, error) {
	var id [32]byte
	if err := e.ready(); err != nil {
		return id, err
	}
	if caller == to {
		return id, ErrSelfTransfer
	}
	sanitized0, err := leg0.Sanitize()
	if err != nil {
		return id, err
	}
	sanitized1, err := leg1.Sanitize()
	if err != nil {
		return id, err
	}
	if err := validateSwapLegs(sanitized0, sanitized1); err != nil {
		return id, err
	}
	t, err := sanitizeTiming(sanitized0, timing)
	if err != nil {
		return id, err
	}
	id = RequestID(KindSwap, caller, to, sanitized0, sanitized1, secretHash, t)
	if _, ok, err := e.state.EscrowGet(id); err != nil {
		return id, err
	} else if ok {
		return id, ErrDuplicateRequest
	}
	if err := e.lockLeg(caller, sanitized0); err != nil {
		return id, err
	}
	req := &Request{
		ID:         id,
		Kind:       KindSwap,
		From:       caller,
		To:         to,
		Leg0:       sanitized0,
		Leg1:       sanitized1,
		SecretHash: secretHash,
		Timing:     t,
		CreatedAt:  e.now(),
	}
	if err := e.state.EscrowPut(req); err != nil {
		return id, err
	}
	e.emit(swapDeposited{Request: req})
	return id, nil
}

func (e *Engine) loadSwap(from, to [20]byte, leg0, leg1 *Leg, secretHash [32]byte, timing *Timing) (*Request, *Timing, error) {
	sanitized0, err := leg0.Sanitize()
	if err != nil {
		return nil, nil, err
	}
	sanitized1, err := leg1.Sanitize()
	if err != nil {
		return nil, nil, err
	}
	if err := validateSwapLegs(sanitized0, sanitized1); err != nil {
		return nil, nil, err
	}
	t, err := sanitizeTiming(sanitized0, timing)
	if err != nil {
		return nil, nil, err
	}
	id := RequestID(KindSwap, from, to, sanitized0, sanitized1, secretHash, t)
	req, ok, err := e.state.EscrowGet(id)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrNotFound
	}
	return req, t, nil
}

// SwapRetrieve is the depositor's cancel path for an open swap.
func (e *Engine) SwapRetrieve(caller, to [20]byte, leg0, leg1 *Leg, secretHash [32]byte, timing *Timing) error {
	if err := e.ready(); err != nil {
		return err
	}
	req, _, err := e.loadSwap(caller, to, leg0, leg1, secretHash, timing)
	if err != nil {
		return err
	}
	if req.From != caller {
		return ErrUnauthorized
	}
	if err := e.refundLeg(req.Leg0, req.From, caller, nil); err != nil {
		return err
	}
	if err := e.state.EscrowDelete(req.ID); err != nil {
		return err
	}
	e.emit(swapRetrieved{Request: req})
	return nil
}

// Reject lets the counterparty decline an open swap, refunding the
// depositor.
func (e *Engine) Reject(caller, from [20]byte, leg0, leg1 *Leg, secretHash [32]byte, timing *Timing) error {
	if err := e.ready(); err != nil {
		return err
	}
	req, _, err := e.loadSwap(from, caller, leg0, leg1, secretHash, timing)
	if err != nil {
		return err
	}
	if req.To != caller {
		return ErrUnauthorized
	}
	if err := e.refundLeg(req.Leg0, req.From, caller, nil); err != nil {
		return err
	}
	if err := e.state.EscrowDelete(req.ID); err != nil {
		return err
	}
	e.emit(swapRejected{Request: req})
	return nil
}

// Swap settles an open swap atomically: the counterparty locks leg1,
// presents the secret, and both legs are released in opposite directions.
func (e *Engine) Swap(caller, from [20]byte, leg0, leg1 *Leg, secretHash [32]byte, secret []byte, timing *Timing) error {
	if err := e.ready(); err != nil {
		return err
	}
	req, _, err := e.loadSwap(from, caller, leg0, leg1, secretHash, timing)
	if err != nil {
		return err
	}
	if req.To != caller {
		return ErrUnauthorized
	}
	if req.Timing != nil && e.now() < req.Timing.AvailableAt {
		return ErrNotYetAvailable
	}
	if !secretMatches(secret, req.SecretHash) {
		return ErrWrongSecret
	}
	if err := e.lockLeg(caller, req.Leg1); err != nil {
		return err
	}
	if err := e.releaseLeg(req.Leg0, req.To); err != nil {
		return err
	}
	if err := e.releaseLeg(req.Leg1, req.From); err != nil {
		return err
	}
	if err := e.state.EscrowDelete(req.ID); err != nil {
		return err
	}
	e.emit(swapExecuted{Request: req})
	return nil
}

// AutoSwapRetrieve returns an expired timed swap deposit to the depositor,
// paying the incentive fee to the caller.
func (e *Engine) AutoSwapRetrieve(caller, from, to [20]byte, leg0, leg1 *Leg, secretHash [32]byte, timing *Timing) error {
	if err := e.ready(); err != nil {
		return err
	}
	if timing == nil {
		return ErrNotTimed
	}
	req, _, err := e.loadSwap(from, to, leg0, leg1, secretHash, timing)
	if err != nil {
		return err
	}
	if req.Timing == nil {
		return ErrNotTimed
	}
	if e.now() <= req.Timing.ExpiresAt {
		return ErrNotExpired
	}
	if err := e.refundLeg(req.Leg0, req.From, caller, req.Timing.AutoRetrieveFees); err != nil {
		return err
	}
	if err := e.state.EscrowDelete(req.ID); err != nil {
		return err
	}
	e.emit(requestAutoRetrieved{Request: req, Caller: caller})
	return nil
}

// Request returns a stored request by id.
func (e *Engine) Request(id [32]byte) (*Request, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	req, ok, err := e.state.EscrowGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return req.Clone(), nil
}
