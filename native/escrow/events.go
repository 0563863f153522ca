package escrow

import (
	"encoding/hex"

	"safepool/core/types"
)

const (
	EventTypeDeposited      = "escrow.deposited"
	EventTypeRetrieved      = "escrow.retrieved"
	EventTypeCollected      = "escrow.collected"
	EventTypeAutoRetrieved  = "escrow.auto_retrieved"
	EventTypeSwapDeposited  = "escrow.swap.deposited"
	EventTypeSwapRetrieved  = "escrow.swap.retrieved"
	EventTypeSwapRejected   = "escrow.swap.rejected"
	EventTypeSwapped        = "escrow.swap.executed"
	EventTypeHiddenDeposit  = "escrow.hidden.deposited"
	EventTypeHiddenRetrieve = "escrow.hidden.retrieved"
	EventTypeHiddenCollect  = "escrow.hidden.collected"
	EventTypeHiddenSwapped  = "escrow.hidden.swap.executed"
)

func addrHex(addr [20]byte) string {
	return hex.EncodeToString(addr[:])
}

func idHex(id [32]byte) string {
	return hex.EncodeToString(id[:])
}

func requestAttributes(req *Request) map[string]string {
	attrs := map[string]string{
		"id":   idHex(req.ID),
		"from": addrHex(req.From),
		"to":   addrHex(req.To),
	}
	if req.Leg0 != nil {
		attrs["value"] = req.Leg0.Value.String()
		attrs["fees"] = req.Leg0.Fees.String()
	}
	return attrs
}

type requestDeposited struct {
	Request *Request
}

func (requestDeposited) EventType() string { return EventTypeDeposited }

func (e requestDeposited) Event() *types.Event {
	return &types.Event{Type: EventTypeDeposited, Attributes: requestAttributes(e.Request)}
}

type requestRetrieved struct {
	Request *Request
}

func (requestRetrieved) EventType() string { return EventTypeRetrieved }

func (e requestRetrieved) Event() *types.Event {
	return &types.Event{Type: EventTypeRetrieved, Attributes: requestAttributes(e.Request)}
}

type requestCollected struct {
	Request *Request
	Caller  [20]byte
}

func (requestCollected) EventType() string { return EventTypeCollected }

func (e requestCollected) Event() *types.Event {
	attrs := requestAttributes(e.Request)
	attrs["caller"] = addrHex(e.Caller)
	return &types.Event{Type: EventTypeCollected, Attributes: attrs}
}

type requestAutoRetrieved struct {
	Request *Request
	Caller  [20]byte
}

func (requestAutoRetrieved) EventType() string { return EventTypeAutoRetrieved }

func (e requestAutoRetrieved) Event() *types.Event {
	attrs := requestAttributes(e.Request)
	attrs["caller"] = addrHex(e.Caller)
	return &types.Event{Type: EventTypeAutoRetrieved, Attributes: attrs}
}

type swapDeposited struct {
	Request *Request
}

func (swapDeposited) EventType() string { return EventTypeSwapDeposited }

func (e swapDeposited) Event() *types.Event {
	return &types.Event{Type: EventTypeSwapDeposited, Attributes: requestAttributes(e.Request)}
}

type swapRetrieved struct {
	Request *Request
}

func (swapRetrieved) EventType() string { return EventTypeSwapRetrieved }

func (e swapRetrieved) Event() *types.Event {
	return &types.Event{Type: EventTypeSwapRetrieved, Attributes: requestAttributes(e.Request)}
}

type swapRejected struct {
	Request *Request
}

func (swapRejected) EventType() string { return EventTypeSwapRejected }

func (e swapRejected) Event() *types.Event {
	return &types.Event{Type: EventTypeSwapRejected, Attributes: requestAttributes(e.Request)}
}

type swapExecuted struct {
	Request *Request
}

func (swapExecuted) EventType() string { return EventTypeSwapped }

func (e swapExecuted) Event() *types.Event {
	return &types.Event{Type: EventTypeSwapped, Attributes: requestAttributes(e.Request)}
}

type hiddenDeposited struct {
	Deposit *HiddenDeposit
}

func (hiddenDeposited) EventType() string { return EventTypeHiddenDeposit }

func (e hiddenDeposited) Event() *types.Event {
	return &types.Event{Type: EventTypeHiddenDeposit, Attributes: map[string]string{
		"id":    idHex(e.Deposit.ID),
		"from":  addrHex(e.Deposit.From),
		"value": e.Deposit.Value.String(),
	}}
}

type hiddenRetrieved struct {
	Deposit *HiddenDeposit
}

func (hiddenRetrieved) EventType() string { return EventTypeHiddenRetrieve }

func (e hiddenRetrieved) Event() *types.Event {
	return &types.Event{Type: EventTypeHiddenRetrieve, Attributes: map[string]string{
		"id":    idHex(e.Deposit.ID),
		"from":  addrHex(e.Deposit.From),
		"value": e.Deposit.Value.String(),
	}}
}

type hiddenCollected struct {
	Deposit *HiddenDeposit
	To      [20]byte
	Caller  [20]byte
}

func (hiddenCollected) EventType() string { return EventTypeHiddenCollect }

func (e hiddenCollected) Event() *types.Event {
	return &types.Event{Type: EventTypeHiddenCollect, Attributes: map[string]string{
		"id":     idHex(e.Deposit.ID),
		"from":   addrHex(e.Deposit.From),
		"to":     addrHex(e.To),
		"caller": addrHex(e.Caller),
		"value":  e.Deposit.Value.String(),
	}}
}

type hiddenSwapExecuted struct {
	Deposit *HiddenDeposit
	To      [20]byte
}

func (hiddenSwapExecuted) EventType() string { return EventTypeHiddenSwapped }

func (e hiddenSwapExecuted) Event() *types.Event {
	return &types.Event{Type: EventTypeHiddenSwapped, Attributes: map[string]string{
		"id":    idHex(e.Deposit.ID),
		"from":  addrHex(e.Deposit.From),
		"to":    addrHex(e.To),
		"value": e.Deposit.Value.String(),
	}}
}
