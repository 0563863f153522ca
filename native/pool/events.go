package pool

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"safepool/core/types"
)

const (
	EventTypeDeposited           = "pool.deposited"
	EventTypeIssued              = "pool.issued"
	EventTypeAccepted            = "pool.accepted"
	EventTypePayment             = "pool.payment.executed"
	EventTypeWithdrawalRequested = "pool.withdrawal.requested"
	EventTypeWithdrawalCancelled = "pool.withdrawal.cancelled"
	EventTypeWithdrawalExecuted  = "pool.withdrawal.executed"
	EventTypeTransferred         = "pool.transferred"
	EventTypeDistributed         = "pool.distributed"
	EventTypeResynced            = "pool.supply.resynced"
	EventTypeEntitiesUpdated     = "pool.entities.updated"
	EventTypeLimitsUpdated       = "pool.limits.updated"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func addrHex(addr [20]byte) string {
	return hex.EncodeToString(addr[:])
}

type tokensDeposited struct {
	Account [20]byte
	Value   *big.Int
}

func (tokensDeposited) EventType() string { return EventTypeDeposited }

func (e tokensDeposited) Event() *types.Event {
	return &types.Event{Type: EventTypeDeposited, Attributes: map[string]string{
		"account": addrHex(e.Account),
		"value":   formatAmount(e.Value),
	}}
}

type tokensIssued struct {
	Recipient  [20]byte
	Value      *big.Int
	SecretHash [32]byte
}

func (tokensIssued) EventType() string { return EventTypeIssued }

func (e tokensIssued) Event() *types.Event {
	return &types.Event{Type: EventTypeIssued, Attributes: map[string]string{
		"recipient":  addrHex(e.Recipient),
		"value":      formatAmount(e.Value),
		"secretHash": hex.EncodeToString(e.SecretHash[:]),
	}}
}

type tokensAccepted struct {
	Recipient [20]byte
	Value     *big.Int
}

func (tokensAccepted) EventType() string { return EventTypeAccepted }

func (e tokensAccepted) Event() *types.Event {
	return &types.Event{Type: EventTypeAccepted, Attributes: map[string]string{
		"recipient": addrHex(e.Recipient),
		"value":     formatAmount(e.Value),
	}}
}

type paymentExecuted struct {
	From  [20]byte
	Value *big.Int
}

func (paymentExecuted) EventType() string { return EventTypePayment }

func (e paymentExecuted) Event() *types.Event {
	return &types.Event{Type: EventTypePayment, Attributes: map[string]string{
		"from":  addrHex(e.From),
		"value": formatAmount(e.Value),
	}}
}

type withdrawalRequested struct {
	Account [20]byte
	Value   *big.Int
	ReadyAt uint64
}

func (withdrawalRequested) EventType() string { return EventTypeWithdrawalRequested }

func (e withdrawalRequested) Event() *types.Event {
	return &types.Event{Type: EventTypeWithdrawalRequested, Attributes: map[string]string{
		"account": addrHex(e.Account),
		"value":   formatAmount(e.Value),
		"readyAt": strconv.FormatUint(e.ReadyAt, 10),
	}}
}

type withdrawalCancelled struct {
	Account [20]byte
}

func (withdrawalCancelled) EventType() string { return EventTypeWithdrawalCancelled }

func (e withdrawalCancelled) Event() *types.Event {
	return &types.Event{Type: EventTypeWithdrawalCancelled, Attributes: map[string]string{
		"account": addrHex(e.Account),
	}}
}

type withdrawalExecuted struct {
	Account [20]byte
	Value   *big.Int
}

func (withdrawalExecuted) EventType() string { return EventTypeWithdrawalExecuted }

func (e withdrawalExecuted) Event() *types.Event {
	return &types.Event{Type: EventTypeWithdrawalExecuted, Attributes: map[string]string{
		"account": addrHex(e.Account),
		"value":   formatAmount(e.Value),
	}}
}

type tokensTransferred struct {
	Wallet [20]byte
	Value  *big.Int
}

func (tokensTransferred) EventType() string { return EventTypeTransferred }

func (e tokensTransferred) Event() *types.Event {
	return &types.Event{Type: EventTypeTransferred, Attributes: map[string]string{
		"wallet": addrHex(e.Wallet),
		"value":  formatAmount(e.Value),
	}}
}

type tokensDistributed struct {
	Recipient [20]byte
	Value     *big.Int
}

func (tokensDistributed) EventType() string { return EventTypeDistributed }

func (e tokensDistributed) Event() *types.Event {
	return &types.Event{Type: EventTypeDistributed, Attributes: map[string]string{
		"recipient": addrHex(e.Recipient),
		"value":     formatAmount(e.Value),
	}}
}

type supplyResynced struct {
	Total *big.Int
	Owned *big.Int
}

func (supplyResynced) EventType() string { return EventTypeResynced }

func (e supplyResynced) Event() *types.Event {
	return &types.Event{Type: EventTypeResynced, Attributes: map[string]string{
		"total": formatAmount(e.Total),
		"owned": formatAmount(e.Owned),
	}}
}

type entitiesUpdated struct {
	Field string
	Value [20]byte
}

func (entitiesUpdated) EventType() string { return EventTypeEntitiesUpdated }

func (e entitiesUpdated) Event() *types.Event {
	return &types.Event{Type: EventTypeEntitiesUpdated, Attributes: map[string]string{
		"field": e.Field,
		"value": addrHex(e.Value),
	}}
}

type limitsUpdated struct {
	Field string
}

func (limitsUpdated) EventType() string { return EventTypeLimitsUpdated }

func (e limitsUpdated) Event() *types.Event {
	return &types.Event{Type: EventTypeLimitsUpdated, Attributes: map[string]string{
		"field": e.Field,
	}}
}
