package rpc

import (
	"encoding/json"

	"safepool/native/escrow"
)

func escrowErr(err error) *RPCError {
	return &RPCError{Code: codeEscrowError, Message: err.Error()}
}

func (s *Server) registerEscrowHandlers() {
	s.handlers["escrow_deposit"] = s.escrowDeposit
	s.handlers["escrow_retrieve"] = s.escrowRetrieve
	s.handlers["escrow_collect"] = s.escrowCollect
	s.handlers["escrow_autoRetrieve"] = s.escrowAutoRetrieve
	s.handlers["escrow_swapDeposit"] = s.escrowSwapDeposit
	s.handlers["escrow_swapRetrieve"] = s.escrowSwapRetrieve
	s.handlers["escrow_reject"] = s.escrowReject
	s.handlers["escrow_swap"] = s.escrowSwap
	s.handlers["escrow_autoSwapRetrieve"] = s.escrowAutoSwapRetrieve
	s.handlers["escrow_hiddenDeposit"] = s.escrowHiddenDeposit
	s.handlers["escrow_hiddenRetrieve"] = s.escrowHiddenRetrieve
	s.handlers["escrow_hiddenAutoRetrieve"] = s.escrowHiddenAutoRetrieve
	s.handlers["escrow_hiddenCollect"] = s.escrowHiddenCollect
	s.handlers["escrow_hiddenSwap"] = s.escrowHiddenSwap
	s.handlers["escrow_request"] = s.escrowRequest
	s.handlers["escrow_hidden"] = s.escrowHidden
	s.handlers["escrow_requestId"] = s.escrowRequestID
	s.handlers["escrow_hiddenCommitment"] = s.escrowHiddenCommitment
}

// transferParams is the shared wire form of the one-sided transfer family.
type transferParams struct {
	Caller     string       `json:"caller"`
	From       string       `json:"from,omitempty"`
	To         string       `json:"to"`
	Leg        *legParam    `json:"leg"`
	SecretHash string       `json:"secretHash"`
	Secret     string       `json:"secret,omitempty"`
	Timing     *timingParam `json:"timing,omitempty"`
}

type decodedTransfer struct {
	caller     [20]byte
	from       [20]byte
	to         [20]byte
	leg        *escrow.Leg
	secretHash [32]byte
	secret     []byte
	timing     *escrow.Timing
}

func (s *Server) decodeTransfer(raw json.RawMessage) (*decodedTransfer, *RPCError) {
	p, rpcErr := decodeParams[transferParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	out := &decodedTransfer{}
	var err error
	if out.caller, err = parseAddress(p.Caller); err != nil {
		return nil, invalidParams(err)
	}
	if p.From != "" {
		if out.from, err = parseAddress(p.From); err != nil {
			return nil, invalidParams(err)
		}
	}
	if out.to, err = parseAddress(p.To); err != nil {
		return nil, invalidParams(err)
	}
	if out.leg, err = p.Leg.toLeg(); err != nil {
		return nil, invalidParams(err)
	}
	if out.secretHash, err = parseHash(p.SecretHash); err != nil {
		return nil, invalidParams(err)
	}
	if p.Secret != "" {
		if out.secret, err = parseHex(p.Secret, 0); err != nil {
			return nil, invalidParams(err)
		}
	}
	if out.timing, err = p.Timing.toTiming(); err != nil {
		return nil, invalidParams(err)
	}
	return out, nil
}

func (s *Server) escrowDeposit(raw json.RawMessage) (any, *RPCError) {
	d, rpcErr := s.decodeTransfer(raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, err := s.escrow.Deposit(d.caller, d.to, d.leg, d.secretHash, d.timing)
	if err != nil {
		return nil, escrowErr(err)
	}
	s.metrics.ObserveEscrowOp("deposit")
	s.metrics.EscrowOpened()
	return map[string]any{"id": formatHash(id)}, nil
}

func (s *Server) escrowRetrieve(raw json.RawMessage) (any, *RPCError) {
	d, rpcErr := s.decodeTransfer(raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.escrow.Retrieve(d.caller, d.to, d.leg, d.secretHash, d.timing); err != nil {
		return nil, escrowErr(err)
	}
	s.metrics.ObserveEscrowOp("retrieve")
	s.metrics.EscrowClosed()
	return map[string]any{"ok": true}, nil
}

func (s *Server) escrowCollect(raw json.RawMessage) (any, *RPCError) {
	d, rpcErr := s.decodeTransfer(raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.escrow.Collect(d.caller, d.from, d.to, d.leg, d.secretHash, d.secret, d.timing); err != nil {
		return nil, escrowErr(err)
	}
	s.metrics.ObserveEscrowOp("collect")
	s.metrics.EscrowClosed()
	return map[string]any{"ok": true}, nil
}

func (s *Server) escrowAutoRetrieve(raw json.RawMessage) (any, *RPCError) {
	d, rpcErr := s.decodeTransfer(raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.escrow.AutoRetrieve(d.caller, d.from, d.to, d.leg, d.secretHash, d.timing); err != nil {
		return nil, escrowErr(err)
	}
	s.metrics.ObserveEscrowOp("autoRetrieve")
	s.metrics.EscrowClosed()
	return map[string]any{"ok": true}, nil
}

// swapParams is the shared wire form of the two-sided swap family.
type swapParams struct {
	Caller     string       `json:"caller"`
	From       string       `json:"from,omitempty"`
	To         string       `json:"to,omitempty"`
	Leg0       *legParam    `json:"leg0"`
	Leg1       *legParam    `json:"leg1"`
	SecretHash string       `json:"secretHash"`
	Secret     string       `json:"secret,omitempty"`
	Timing     *timingParam `json:"timing,omitempty"`
}

type decodedSwap struct {
	caller     [20]byte
	from       [20]byte
	to         [20]byte
	leg0       *escrow.Leg
	leg1       *escrow.Leg
	secretHash [32]byte
	secret     []byte
	timing     *escrow.Timing
}

func (s *Server) decodeSwap(raw json.RawMessage) (*decodedSwap, *RPCError) {
	p, rpcErr := decodeParams[swapParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	out := &decodedSwap{}
	var err error
	if out.caller, err = parseAddress(p.Caller); err != nil {
		return nil, invalidParams(err)
	}
	if p.From != "" {
		if out.from, err = parseAddress(p.From); err != nil {
			return nil, invalidParams(err)
		}
	}
	if p.To != "" {
		if out.to, err = parseAddress(p.To); err != nil {
			return nil, invalidParams(err)
		}
	}
	if out.leg0, err = p.Leg0.toLeg(); err != nil {
		return nil, invalidParams(err)
	}
	if out.leg1, err = p.Leg1.toLeg(); err != nil {
		return nil, invalidParams(err)
	}
	if out.secretHash, err = parseHash(p.SecretHash); err != nil {
		return nil, invalidParams(err)
	}
	if p.Secret != "" {
		if out.secret, err = parseHex(p.Secret, 0); err != nil {
			return nil, invalidParams(err)
		}
	}
	if out.timing, err = p.Timing.toTiming(); err != nil {
		return nil, invalidParams(err)
	}
	return out, nil
}

func (s *Server) escrowSwapDeposit(raw json.RawMessage) (any, *RPCError) {
	d, rpcErr := s.decodeSwap(raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, err := s.escrow.SwapDeposit(d.caller, d.to, d.leg0, d.leg1, d.secretHash, d.timing)
	if err != nil {
		return nil, escrowErr(err)
	}
	s.metrics.ObserveEscrowOp("swapDeposit")
	s.metrics.EscrowOpened()
	return map[string]any{"id": formatHash(id)}, nil
}

func (s *Server) escrowSwapRetrieve(raw json.RawMessage) (any, *RPCError) {
	d, rpcErr := s.decodeSwap(raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.escrow.SwapRetrieve(d.caller, d.to, d.leg0, d.leg1, d.secretHash, d.timing); err != nil {
		return nil, escrowErr(err)
	}
	s.metrics.ObserveEscrowOp("swapRetrieve")
	s.metrics.EscrowClosed()
	return map[string]any{"ok": true}, nil
}

func (s *Server) escrowReject(raw json.RawMessage) (any, *RPCError) {
	d, rpcErr := s.decodeSwap(raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.escrow.Reject(d.caller, d.from, d.leg0, d.leg1, d.secretHash, d.timing); err != nil {
		return nil, escrowErr(err)
	}
	s.metrics.ObserveEscrowOp("reject")
	s.metrics.EscrowClosed()
	return map[string]any{"ok": true}, nil
}

func (s *Server) escrowSwap(raw json.RawMessage) (any, *RPCError) {
	d, rpcErr := s.decodeSwap(raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.escrow.Swap(d.caller, d.from, d.leg0, d.leg1, d.secretHash, d.secret, d.timing); err != nil {
		return nil, escrowErr(err)
	}
	s.metrics.ObserveEscrowOp("swap")
	s.metrics.EscrowClosed()
	return map[string]any{"ok": true}, nil
}

func (s *Server) escrowAutoSwapRetrieve(raw json.RawMessage) (any, *RPCError) {
	d, rpcErr := s.decodeSwap(raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.escrow.AutoSwapRetrieve(d.caller, d.from, d.to, d.leg0, d.leg1, d.secretHash, d.timing); err != nil {
		return nil, escrowErr(err)
	}
	s.metrics.ObserveEscrowOp("autoSwapRetrieve")
	s.metrics.EscrowClosed()
	return map[string]any{"ok": true}, nil
}

type hiddenDepositParams struct {
	Caller     string       `json:"caller"`
	Commitment string       `json:"commitment"`
	Value      string       `json:"value"`
	Timing     *timingParam `json:"timing,omitempty"`
}

func (s *Server) escrowHiddenDeposit(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[hiddenDepositParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(p.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	commitment, err := parseHash(p.Commitment)
	if err != nil {
		return nil, invalidParams(err)
	}
	value, err := parseAmount(p.Value)
	if err != nil {
		return nil, invalidParams(err)
	}
	timing, err := p.Timing.toTiming()
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.escrow.HiddenDepositValue(caller, commitment, value, timing); err != nil {
		return nil, escrowErr(err)
	}
	s.metrics.ObserveEscrowOp("hiddenDeposit")
	return map[string]any{"ok": true}, nil
}

type hiddenRefParams struct {
	Caller     string `json:"caller"`
	Commitment string `json:"commitment"`
}

func (s *Server) escrowHiddenRetrieve(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[hiddenRefParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(p.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	commitment, err := parseHash(p.Commitment)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.escrow.HiddenRetrieveValue(caller, commitment); err != nil {
		return nil, escrowErr(err)
	}
	s.metrics.ObserveEscrowOp("hiddenRetrieve")
	return map[string]any{"ok": true}, nil
}

func (s *Server) escrowHiddenAutoRetrieve(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[hiddenRefParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(p.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	commitment, err := parseHash(p.Commitment)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.escrow.HiddenAutoRetrieve(caller, commitment); err != nil {
		return nil, escrowErr(err)
	}
	s.metrics.ObserveEscrowOp("hiddenAutoRetrieve")
	return map[string]any{"ok": true}, nil
}

type hiddenCollectParams struct {
	Caller     string    `json:"caller"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Leg        *legParam `json:"leg"`
	SecretHash string    `json:"secretHash"`
	Secret     string    `json:"secret"`
	Mode       string    `json:"mode,omitempty"`
	Signature  string    `json:"signature"`
}

func (s *Server) escrowHiddenCollect(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[hiddenCollectParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(p.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	from, err := parseAddress(p.From)
	if err != nil {
		return nil, invalidParams(err)
	}
	to, err := parseAddress(p.To)
	if err != nil {
		return nil, invalidParams(err)
	}
	leg, err := p.Leg.toLeg()
	if err != nil {
		return nil, invalidParams(err)
	}
	secretHash, err := parseHash(p.SecretHash)
	if err != nil {
		return nil, invalidParams(err)
	}
	secret, err := parseHex(p.Secret, 0)
	if err != nil {
		return nil, invalidParams(err)
	}
	mode, err := parseSignatureMode(p.Mode)
	if err != nil {
		return nil, invalidParams(err)
	}
	sig, err := parseHex(p.Signature, 0)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.escrow.HiddenCollect(caller, from, to, leg, secretHash, secret, mode, sig); err != nil {
		return nil, escrowErr(err)
	}
	s.metrics.ObserveEscrowOp("hiddenCollect")
	return map[string]any{"ok": true}, nil
}

func (s *Server) escrowHiddenSwap(raw json.RawMessage) (any, *RPCError) {
	d, rpcErr := s.decodeSwap(raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.escrow.HiddenSwap(d.caller, d.from, d.leg0, d.leg1, d.secretHash, d.secret); err != nil {
		return nil, escrowErr(err)
	}
	s.metrics.ObserveEscrowOp("hiddenSwap")
	return map[string]any{"ok": true}, nil
}

type idParams struct {
	ID string `json:"id"`
}

func formatLeg(leg *escrow.Leg) map[string]any {
	if leg == nil {
		return nil
	}
	out := map[string]any{
		"kind":  leg.Kind.String(),
		"asset": formatAddress(leg.Asset),
		"value": leg.Value.String(),
		"fees":  leg.Fees.String(),
	}
	if leg.TokenID != nil && leg.TokenID.Sign() != 0 {
		out["tokenId"] = leg.TokenID.String()
	}
	if len(leg.TokenIDs) > 0 {
		ids := make([]string, len(leg.TokenIDs))
		values := make([]string, len(leg.Values))
		for i := range leg.TokenIDs {
			ids[i] = leg.TokenIDs[i].String()
			values[i] = leg.Values[i].String()
		}
		out["tokenIds"] = ids
		out["values"] = values
	}
	return out
}

func (s *Server) escrowRequest(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[idParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, err := parseHash(p.ID)
	if err != nil {
		return nil, invalidParams(err)
	}
	req, err := s.escrow.Request(id)
	if err != nil {
		return nil, escrowErr(err)
	}
	result := map[string]any{
		"id":         formatHash(req.ID),
		"kind":       req.Kind.String(),
		"from":       formatAddress(req.From),
		"to":         formatAddress(req.To),
		"leg0":       formatLeg(req.Leg0),
		"secretHash": formatHash(req.SecretHash),
		"createdAt":  req.CreatedAt,
	}
	if req.Leg1 != nil {
		result["leg1"] = formatLeg(req.Leg1)
	}
	if req.Timing != nil {
		result["timing"] = map[string]any{
			"availableAt":      req.Timing.AvailableAt,
			"expiresAt":        req.Timing.ExpiresAt,
			"autoRetrieveFees": req.Timing.AutoRetrieveFees.String(),
		}
	}
	return result, nil
}

func (s *Server) escrowHidden(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[idParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, err := parseHash(p.ID)
	if err != nil {
		return nil, invalidParams(err)
	}
	dep, err := s.escrow.Hidden(id)
	if err != nil {
		return nil, escrowErr(err)
	}
	return map[string]any{
		"id":        formatHash(dep.ID),
		"from":      formatAddress(dep.From),
		"value":     dep.Value.String(),
		"createdAt": dep.CreatedAt,
	}, nil
}

type requestIDParams struct {
	From       string       `json:"from"`
	To         string       `json:"to"`
	Leg0       *legParam    `json:"leg0"`
	Leg1       *legParam    `json:"leg1,omitempty"`
	SecretHash string       `json:"secretHash"`
	Timing     *timingParam `json:"timing,omitempty"`
}

func (s *Server) escrowRequestID(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[requestIDParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	from, err := parseAddress(p.From)
	if err != nil {
		return nil, invalidParams(err)
	}
	to, err := parseAddress(p.To)
	if err != nil {
		return nil, invalidParams(err)
	}
	leg0, err := p.Leg0.toLeg()
	if err != nil {
		return nil, invalidParams(err)
	}
	var leg1 *escrow.Leg
	if p.Leg1 != nil {
		if leg1, err = p.Leg1.toLeg(); err != nil {
			return nil, invalidParams(err)
		}
	}
	secretHash, err := parseHash(p.SecretHash)
	if err != nil {
		return nil, invalidParams(err)
	}
	timing, err := p.Timing.toTiming()
	if err != nil {
		return nil, invalidParams(err)
	}
	kind := escrow.KindTransfer
	if leg1 != nil {
		kind = escrow.KindSwap
	}
	id := escrow.RequestID(kind, from, to, leg0, leg1, secretHash, timing)
	return map[string]any{"id": formatHash(id)}, nil
}

func (s *Server) escrowHiddenCommitment(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[requestIDParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	from, err := parseAddress(p.From)
	if err != nil {
		return nil, invalidParams(err)
	}
	to, err := parseAddress(p.To)
	if err != nil {
		return nil, invalidParams(err)
	}
	leg0, err := p.Leg0.toLeg()
	if err != nil {
		return nil, invalidParams(err)
	}
	secretHash, err := parseHash(p.SecretHash)
	if err != nil {
		return nil, invalidParams(err)
	}
	if p.Leg1 != nil {
		leg1, err := p.Leg1.toLeg()
		if err != nil {
			return nil, invalidParams(err)
		}
		id := escrow.HiddenSwapCommitment(from, to, leg0, leg1, secretHash)
		return map[string]any{"commitment": formatHash(id)}, nil
	}
	id := escrow.HiddenCommitment(from, to, leg0, secretHash)
	return map[string]any{"commitment": formatHash(id)}, nil
}
