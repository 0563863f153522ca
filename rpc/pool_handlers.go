package rpc

import (
	"encoding/hex"
	"encoding/json"
)

func poolErr(err error) *RPCError {
	return &RPCError{Code: codePoolError, Message: err.Error()}
}

func (s *Server) registerPoolHandlers() {
	s.handlers["pool_deposit"] = s.poolDeposit
	s.handlers["pool_issue"] = s.poolIssue
	s.handlers["pool_accept"] = s.poolAccept
	s.handlers["pool_executeAccept"] = s.poolExecuteAccept
	s.handlers["pool_generatePaymentMessage"] = s.poolGeneratePaymentMessage
	s.handlers["pool_validatePayment"] = s.poolValidatePayment
	s.handlers["pool_executePayment"] = s.poolExecutePayment
	s.handlers["pool_requestWithdrawal"] = s.poolRequestWithdrawal
	s.handlers["pool_cancelWithdrawal"] = s.poolCancelWithdrawal
	s.handlers["pool_withdraw"] = s.poolWithdraw
	s.handlers["pool_transfer"] = s.poolTransfer
	s.handlers["pool_distribute"] = s.poolDistribute
	s.handlers["pool_resyncTotalSupply"] = s.poolResync
	s.handlers["pool_setManager"] = s.poolSetManager
	s.handlers["pool_setWallet"] = s.poolSetWallet
	s.handlers["pool_setReleaseDelay"] = s.poolSetReleaseDelay
	s.handlers["pool_setMaxTokensPerIssue"] = s.poolSetMaxTokensPerIssue
	s.handlers["pool_account"] = s.poolAccount
	s.handlers["pool_supply"] = s.poolSupply
	s.handlers["pool_limits"] = s.poolLimits
	s.handlers["pool_entities"] = s.poolEntities
	s.handlers["pool_availableSupply"] = s.poolAvailableSupply
	s.handlers["pool_ownedTokens"] = s.poolOwnedTokens
}

type accountValueParams struct {
	Caller string `json:"caller"`
	Value  string `json:"value"`
}

func (s *Server) poolDeposit(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[accountValueParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(p.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	value, err := parseAmount(p.Value)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.pool.DepositTokens(caller, value); err != nil {
		return nil, poolErr(err)
	}
	s.metrics.ObservePoolOp("deposit", nil)
	return map[string]any{"ok": true}, nil
}

type issueParams struct {
	Caller     string `json:"caller"`
	Recipient  string `json:"recipient"`
	Value      string `json:"value"`
	SecretHash string `json:"secretHash"`
}

func (s *Server) poolIssue(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[issueParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(p.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	recipient, err := parseAddress(p.Recipient)
	if err != nil {
		return nil, invalidParams(err)
	}
	value, err := parseAmount(p.Value)
	if err != nil {
		return nil, invalidParams(err)
	}
	var hash [32]byte
	if p.SecretHash != "" {
		if hash, err = parseHash(p.SecretHash); err != nil {
			return nil, invalidParams(err)
		}
	}
	if err := s.pool.IssueTokens(caller, recipient, value, hash); err != nil {
		return nil, poolErr(err)
	}
	s.metrics.ObservePoolOp("issue", nil)
	return map[string]any{"ok": true}, nil
}

type acceptParams struct {
	Caller string `json:"caller"`
	Value  string `json:"value"`
	Secret string `json:"secret"`
}

func (s *Server) poolAccept(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[acceptParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(p.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	secret, err := parseHex(p.Secret, 0)
	if err != nil {
		return nil, invalidParams(err)
	}
	value, err := parseAmount(p.Value)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.pool.AcceptTokens(caller, value, secret); err != nil {
		return nil, poolErr(err)
	}
	s.metrics.ObservePoolOp("accept", nil)
	return map[string]any{"ok": true}, nil
}

type executeAcceptParams struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
	Value     string `json:"value"`
	Secret    string `json:"secret"`
	Mode      string `json:"mode,omitempty"`
	Signature string `json:"signature"`
}

func (s *Server) poolExecuteAccept(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[executeAcceptParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(p.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	recipient, err := parseAddress(p.Recipient)
	if err != nil {
		return nil, invalidParams(err)
	}
	value, err := parseAmount(p.Value)
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
	if err := s.pool.ExecuteAcceptTokens(caller, recipient, value, secret, mode, sig); err != nil {
		return nil, poolErr(err)
	}
	s.metrics.ObservePoolOp("executeAccept", nil)
	return map[string]any{"ok": true}, nil
}

type paymentMessageParams struct {
	From  string `json:"from"`
	Value string `json:"value"`
}

func (s *Server) poolGeneratePaymentMessage(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[paymentMessageParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	from, err := parseAddress(p.From)
	if err != nil {
		return nil, invalidParams(err)
	}
	value, err := parseAmount(p.Value)
	if err != nil {
		return nil, invalidParams(err)
	}
	msg, err := s.pool.GeneratePaymentMessage(from, value)
	if err != nil {
		return nil, poolErr(err)
	}
	return map[string]any{"message": "0x" + hex.EncodeToString(msg)}, nil
}

type paymentParams struct {
	Caller    string `json:"caller,omitempty"`
	From      string `json:"from"`
	Value     string `json:"value"`
	Mode      string `json:"mode,omitempty"`
	Signature string `json:"signature"`
}

func (s *Server) decodePayment(raw json.RawMessage) (*paymentParams, [20]byte, [20]byte, *RPCError) {
	var zero [20]byte
	p, rpcErr := decodeParams[paymentParams](raw)
	if rpcErr != nil {
		return nil, zero, zero, rpcErr
	}
	var caller [20]byte
	var err error
	if p.Caller != "" {
		if caller, err = parseAddress(p.Caller); err != nil {
			return nil, zero, zero, invalidParams(err)
		}
	}
	from, err := parseAddress(p.From)
	if err != nil {
		return nil, zero, zero, invalidParams(err)
	}
	return p, caller, from, nil
}

func (s *Server) poolValidatePayment(raw json.RawMessage) (any, *RPCError) {
	p, _, from, rpcErr := s.decodePayment(raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	value, err := parseAmount(p.Value)
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
	if err := s.pool.ValidatePayment(from, value, mode, sig); err != nil {
		return nil, poolErr(err)
	}
	return map[string]any{"valid": true}, nil
}

func (s *Server) poolExecutePayment(raw json.RawMessage) (any, *RPCError) {
	p, caller, from, rpcErr := s.decodePayment(raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	value, err := parseAmount(p.Value)
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
	if err := s.pool.ExecutePayment(caller, from, value, mode, sig); err != nil {
		return nil, poolErr(err)
	}
	s.metrics.ObservePoolOp("executePayment", nil)
	return map[string]any{"ok": true}, nil
}

func (s *Server) poolRequestWithdrawal(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[accountValueParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(p.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	value, err := parseAmount(p.Value)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.pool.RequestWithdrawal(caller, value); err != nil {
		return nil, poolErr(err)
	}
	return map[string]any{"ok": true}, nil
}

type callerParams struct {
	Caller string `json:"caller"`
}

func (s *Server) poolCancelWithdrawal(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[callerParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(p.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.pool.CancelWithdrawal(caller); err != nil {
		return nil, poolErr(err)
	}
	return map[string]any{"ok": true}, nil
}

func (s *Server) poolWithdraw(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[callerParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(p.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.pool.WithdrawTokens(caller); err != nil {
		return nil, poolErr(err)
	}
	s.metrics.ObservePoolOp("withdraw", nil)
	return map[string]any{"ok": true}, nil
}

func (s *Server) poolTransfer(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[accountValueParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(p.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	value, err := parseAmount(p.Value)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.pool.TransferTokens(caller, value); err != nil {
		return nil, poolErr(err)
	}
	s.metrics.ObservePoolOp("transfer", nil)
	return map[string]any{"ok": true}, nil
}

type distributeParams struct {
	Caller    string `json:"caller"`
	Recipient string `json:"recipient"`
	Value     string `json:"value"`
}

func (s *Server) poolDistribute(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[distributeParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(p.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	recipient, err := parseAddress(p.Recipient)
	if err != nil {
		return nil, invalidParams(err)
	}
	value, err := parseAmount(p.Value)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.pool.DistributeTokens(caller, recipient, value); err != nil {
		return nil, poolErr(err)
	}
	s.metrics.ObservePoolOp("distribute", nil)
	return map[string]any{"ok": true}, nil
}

func (s *Server) poolResync(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[accountValueParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(p.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	value, err := parseAmount(p.Value)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.pool.ResyncTotalSupply(caller, value); err != nil {
		return nil, poolErr(err)
	}
	return map[string]any{"ok": true}, nil
}

type entityParams struct {
	Caller  string `json:"caller"`
	Address string `json:"address"`
}

func (s *Server) poolSetManager(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[entityParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(p.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	addr, err := parseAddress(p.Address)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.pool.SetManager(caller, addr); err != nil {
		return nil, poolErr(err)
	}
	return map[string]any{"ok": true}, nil
}

func (s *Server) poolSetWallet(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[entityParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(p.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	addr, err := parseAddress(p.Address)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.pool.SetWallet(caller, addr); err != nil {
		return nil, poolErr(err)
	}
	return map[string]any{"ok": true}, nil
}

type delayParams struct {
	Caller string `json:"caller"`
	Delay  uint64 `json:"delay"`
}

func (s *Server) poolSetReleaseDelay(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[delayParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(p.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.pool.SetReleaseDelay(caller, p.Delay); err != nil {
		return nil, poolErr(err)
	}
	return map[string]any{"ok": true}, nil
}

func (s *Server) poolSetMaxTokensPerIssue(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[accountValueParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	caller, err := parseAddress(p.Caller)
	if err != nil {
		return nil, invalidParams(err)
	}
	value, err := parseAmount(p.Value)
	if err != nil {
		return nil, invalidParams(err)
	}
	if err := s.pool.SetMaxTokensPerIssue(caller, value); err != nil {
		return nil, poolErr(err)
	}
	return map[string]any{"ok": true}, nil
}

type addressParams struct {
	Address string `json:"address"`
}

func (s *Server) poolAccount(raw json.RawMessage) (any, *RPCError) {
	p, rpcErr := decodeParams[addressParams](raw)
	if rpcErr != nil {
		return nil, rpcErr
	}
	addr, err := parseAddress(p.Address)
	if err != nil {
		return nil, invalidParams(err)
	}
	view, err := s.pool.Account(addr)
	if err != nil {
		return nil, poolErr(err)
	}
	return map[string]any{
		"address":           formatAddress(addr),
		"balance":           view.Account.Balance.String(),
		"pending":           view.Account.Pending.String(),
		"withdrawalAmount":  view.Account.WithdrawalAmount.String(),
		"withdrawalReadyAt": view.Account.WithdrawalReadyAt,
		"externalBalance":   view.ExternalBalance.String(),
		"nonce":             "0x" + hex.EncodeToString(view.Account.Nonce[:]),
	}, nil
}

func (s *Server) poolSupply(json.RawMessage) (any, *RPCError) {
	view, err := s.pool.Supply()
	if err != nil {
		return nil, poolErr(err)
	}
	return map[string]any{
		"total":     view.Total.String(),
		"minimum":   view.Minimum.String(),
		"pending":   view.Pending.String(),
		"available": view.Available.String(),
		"owned":     view.Owned.String(),
	}, nil
}

func (s *Server) poolLimits(json.RawMessage) (any, *RPCError) {
	limits, err := s.pool.Limits()
	if err != nil {
		return nil, poolErr(err)
	}
	return map[string]any{
		"releaseDelay":      limits.ReleaseDelay,
		"maxTokensPerIssue": limits.MaxTokensPerIssue.String(),
	}, nil
}

func (s *Server) poolEntities(json.RawMessage) (any, *RPCError) {
	entities, err := s.pool.Entities()
	if err != nil {
		return nil, poolErr(err)
	}
	return map[string]any{
		"owner":   formatAddress(entities.Owner),
		"token":   "0x" + hex.EncodeToString(entities.Token[:]),
		"manager": formatAddress(entities.Manager),
		"wallet":  formatAddress(entities.Wallet),
	}, nil
}

func (s *Server) poolAvailableSupply(json.RawMessage) (any, *RPCError) {
	avail, err := s.pool.AvailableSupply()
	if err != nil {
		return nil, poolErr(err)
	}
	return map[string]any{"available": avail.String()}, nil
}

func (s *Server) poolOwnedTokens(json.RawMessage) (any, *RPCError) {
	owned, err := s.pool.OwnedTokens()
	if err != nil {
		return nil, poolErr(err)
	}
	return map[string]any{"owned": owned.String()}, nil
}
