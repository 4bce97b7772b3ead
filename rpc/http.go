package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stakeledger/native/staking"
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
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeLedgerError    = -32050
)

// TokenEnv names the environment variable carrying the bearer token that
// guards admin methods.
const TokenEnv = "STAKELEDGER_RPC_TOKEN"

// Server exposes the staking ledger as a JSON-RPC 2.0 endpoint. Admin methods
// require a bearer token; everything else is open.
type Server struct {
	engine    *staking.Engine
	authToken string
}

// NewServer creates a server bound to the provided engine. The admin token is
// read from the environment so deployments never place it in config files.
func NewServer(engine *staking.Engine) *Server {
	return &Server{
		engine:    engine,
		authToken: strings.TrimSpace(os.Getenv(TokenEnv)),
	}
}

// SetAuthToken overrides the admin bearer token. Primarily for tests.
func (s *Server) SetAuthToken(token string) { s.authToken = token }

// Router assembles the HTTP surface: the RPC endpoint plus health and
// metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/rpc", s.handle)
	return r
}

// Start serves the router on addr and blocks.
func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.Router())
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// handle is the main request handler that routes to specific method handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = "request body too large"
		}
		writeError(w, status, nil, codeInvalidRequest, message, nil)
		return
	}

	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON request", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported JSON-RPC version", nil)
		return
	}

	switch req.Method {
	case "staking_getPool":
		s.handleGetPool(w, r, &req)
	case "staking_getUserStake":
		s.handleGetUserStake(w, r, &req)
	case "staking_stake":
		s.handleStake(w, r, &req)
	case "staking_unstake":
		s.handleUnstake(w, r, &req)
	case "staking_claimRewards":
		s.handleClaimRewards(w, r, &req)
	case "staking_initializePool":
		s.handleInitializePool(w, r, &req)
	case "staking_startDistribution":
		s.handleStartDistribution(w, r, &req)
	case "staking_stopDistribution":
		s.handleStopDistribution(w, r, &req)
	case "staking_endDistribution":
		s.handleEndDistribution(w, r, &req)
	case "staking_depositSolRewards":
		s.handleDepositSolRewards(w, r, &req)
	case "staking_depositSplRewards":
		s.handleDepositSplRewards(w, r, &req)
	case "staking_closeEpoch":
		s.handleCloseEpoch(w, r, &req)
	case "staking_adminWithdrawSol":
		s.handleAdminWithdrawSol(w, r, &req)
	case "staking_adminWithdrawSpl":
		s.handleAdminWithdrawSpl(w, r, &req)
	case "staking_adminWithdrawStake":
		s.handleAdminWithdrawStake(w, r, &req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
	}
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

// writeLedgerError maps the ledger's typed failures onto JSON-RPC errors.
// Authorization failures stay opaque end to end.
func writeLedgerError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, staking.ErrUnauthorized):
		writeError(w, http.StatusForbidden, id, codeUnauthorized, staking.ErrUnauthorized.Error(), nil)
	case errors.Is(err, staking.ErrAlreadyInitialized),
		errors.Is(err, staking.ErrPoolNotFound),
		errors.Is(err, staking.ErrInvalidAmount),
		errors.Is(err, staking.ErrInsufficientStake),
		errors.Is(err, staking.ErrInsufficientVaultBalance),
		errors.Is(err, staking.ErrNothingToClaim),
		errors.Is(err, staking.ErrDistributionNotActive),
		errors.Is(err, staking.ErrDistributionActive),
		errors.Is(err, staking.ErrDistributionEnded),
		errors.Is(err, staking.ErrSequenceMismatch),
		errors.Is(err, staking.ErrUnderflow):
		writeError(w, http.StatusConflict, id, codeLedgerError, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, "internal error", nil)
	}
}
