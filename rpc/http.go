package rpc

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"nftloans/core/events"
	"nftloans/core/state"
	"nftloans/observability"
	"nftloans/rpc/modules"
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
)

// Server exposes the loans module over a JSON-RPC 2.0 envelope. The five
// lifecycle mutations require the bearer token from NFTLOANS_RPC_TOKEN;
// queries stay open.
type Server struct {
	loans     *modules.LoansModule
	authToken string
	log       *slog.Logger
}

func NewServer(mgr *state.Manager, emitter events.Emitter, log *slog.Logger) *Server {
	token := strings.TrimSpace(os.Getenv("NFTLOANS_RPC_TOKEN"))
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		loans:     modules.NewLoansModule(mgr, emitter),
		authToken: token,
		log:       log,
	}
}

// Handler returns the configured HTTP router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/", s.handle)
	return r
}

// Start begins serving JSON-RPC traffic on the provided address.
func (s *Server) Start(addr string) error {
	s.log.Info("starting JSON-RPC server", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
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

func (s *Server) authorized(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	return header == "Bearer "+s.authToken
}

func mutatingMethod(method string) bool {
	switch method {
	case "loans_initialize", "loans_createOrder", "loans_cancelOrder", "loans_fundOrder", "loans_repayOrder", "loans_liquidateOrder":
		return true
	default:
		return false
	}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	start := time.Now()
	requestID := chimw.GetReqID(r.Context())
	if requestID == "" {
		requestID = uuid.NewString()
	}

	// Rejected envelopes are recorded too, so error rates include requests
	// that never reached a handler.
	method := "unknown"
	finish := func(rpcErr *RPCError) {
		outcome := "ok"
		if rpcErr != nil {
			outcome = "error"
			observability.ModuleMetrics().ObserveError(method, strconv.Itoa(rpcErr.Code))
			s.log.Warn("rpc request failed", "method", method, "requestId", requestID, "error", rpcErr.Message)
		}
		observability.ModuleMetrics().ObserveRequest(method, outcome, time.Since(start))
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "failed to read request body", nil)
		finish(&RPCError{Code: codeParseError, Message: "failed to read request body"})
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", nil)
		finish(&RPCError{Code: codeParseError, Message: "invalid JSON payload"})
		return
	}
	if req.Method != "" {
		method = req.Method
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", nil)
		finish(&RPCError{Code: codeInvalidRequest, Message: "unsupported jsonrpc version"})
		return
	}
	if mutatingMethod(req.Method) && !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, "unauthorized", nil)
		finish(&RPCError{Code: codeUnauthorized, Message: "unauthorized"})
		return
	}

	finish(s.dispatch(w, &req))
}

// dispatch routes the request to its handler and reports the error, if any,
// for observability. Handlers write the HTTP response themselves.
func (s *Server) dispatch(w http.ResponseWriter, req *RPCRequest) *RPCError {
	switch req.Method {
	case "loans_initialize":
		return s.handleLoansInitialize(w, req)
	case "loans_createOrder":
		return s.handleLoansCreateOrder(w, req)
	case "loans_cancelOrder":
		return s.handleLoansCancelOrder(w, req)
	case "loans_fundOrder":
		return s.handleLoansFundOrder(w, req)
	case "loans_repayOrder":
		return s.handleLoansRepayOrder(w, req)
	case "loans_liquidateOrder":
		return s.handleLoansLiquidateOrder(w, req)
	case "loans_getMarket":
		return s.handleLoansGetMarket(w, req)
	case "loans_getOrder":
		return s.handleLoansGetOrder(w, req)
	case "loans_getBalance":
		return s.handleLoansGetBalance(w, req)
	default:
		rpcErr := &RPCError{Code: codeMethodNotFound, Message: fmt.Sprintf("method %q not found", req.Method)}
		writeError(w, http.StatusNotFound, req.ID, rpcErr.Code, rpcErr.Message, nil)
		return rpcErr
	}
}
