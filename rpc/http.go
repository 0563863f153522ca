package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"safepool/native/assets"
	"safepool/native/escrow"
	"safepool/native/pool"
	"safepool/observability/metrics"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codePoolError      = -32100
	codeEscrowError    = -32200
)

// Server exposes the pool and escrow engines over JSON-RPC 2.0. State
// mutations are serialized behind a single mutex; engine reads share it too
// since the engines themselves are not synchronized.
type Server struct {
	mu      sync.Mutex
	pool    *pool.Engine
	escrow  *escrow.Engine
	ledgers *assets.Registry
	log     *slog.Logger
	metrics *metrics.NodeMetrics

	handlers map[string]handlerFunc

	httpSrv *http.Server
}

type handlerFunc func(params json.RawMessage) (any, *RPCError)

// NewServer wires the engines into an RPC server.
func NewServer(poolEngine *pool.Engine, escrowEngine *escrow.Engine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		pool:    poolEngine,
		escrow:  escrowEngine,
		log:     log,
		metrics: metrics.Node(),
	}
	s.handlers = map[string]handlerFunc{}
	s.registerPoolHandlers()
	s.registerEscrowHandlers()
	return s
}

// Start serves RPC on addr until the context is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("rpc server listening", "addr", addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type RPCResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func rpcError(code int, message string) *RPCError {
	return &RPCError{Code: code, Message: message}
}

func invalidParams(err error) *RPCError {
	return &RPCError{Code: codeInvalidParams, Message: "invalid params", Data: err.Error()}
}

func writeResponse(w http.ResponseWriter, status int, resp RPCResponse) {
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeResponse(w, http.StatusMethodNotAllowed, RPCResponse{
			JSONRPC: jsonRPCVersion,
			Error:   rpcError(codeInvalidRequest, "POST required"),
		})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	req := &RPCRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeResponse(w, http.StatusBadRequest, RPCResponse{
			JSONRPC: jsonRPCVersion,
			Error:   &RPCError{Code: codeParseError, Message: "invalid JSON payload", Data: err.Error()},
		})
		return
	}
	if req.JSONRPC != jsonRPCVersion {
		writeResponse(w, http.StatusBadRequest, RPCResponse{
			JSONRPC: jsonRPCVersion, ID: req.ID,
			Error: rpcError(codeInvalidRequest, "unsupported jsonrpc version"),
		})
		return
	}
	method := strings.TrimSpace(req.Method)
	handler, ok := s.handlers[method]
	if !ok {
		writeResponse(w, http.StatusNotFound, RPCResponse{
			JSONRPC: jsonRPCVersion, ID: req.ID,
			Error: rpcError(codeMethodNotFound, fmt.Sprintf("unknown method %s", method)),
		})
		return
	}

	started := time.Now()
	s.mu.Lock()
	result, rpcErr := handler(req.Params)
	s.mu.Unlock()
	elapsed := time.Since(started)

	if rpcErr != nil {
		s.metrics.ObserveRPC(method, "error", elapsed)
		s.log.Warn("rpc call failed", "method", method, "code", rpcErr.Code, "message", rpcErr.Message)
		writeResponse(w, http.StatusOK, RPCResponse{JSONRPC: jsonRPCVersion, ID: req.ID, Error: rpcErr})
		return
	}
	s.metrics.ObserveRPC(method, "ok", elapsed)
	writeResponse(w, http.StatusOK, RPCResponse{JSONRPC: jsonRPCVersion, ID: req.ID, Result: result})
}

func decodeParams[T any](raw json.RawMessage) (*T, *RPCError) {
	params := new(T)
	if len(raw) == 0 {
		return params, nil
	}
	// Accept both a bare object and the single-element positional form.
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, invalidParams(err)
		}
		if len(list) == 0 {
			return params, nil
		}
		raw = list[0]
	}
	if err := json.Unmarshal(raw, params); err != nil {
		return nil, invalidParams(err)
	}
	return params, nil
}
