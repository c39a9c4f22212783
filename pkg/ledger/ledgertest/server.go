// Package ledgertest provides an in-memory ledger that speaks the JSON-RPC
// dialect of pkg/ledger, for tests.
package ledgertest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/forgestack/forge/pkg/identity"
	"github.com/forgestack/forge/pkg/ledger"
	"github.com/go-playground/validator/v10"
)

// JSON-RPC error codes used by the fake.
const (
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeUnhealthy      = -32005
	CodeRejected       = -32002
)

// LoaderID owns every program the fake ledger creates.
var LoaderID = identity.Derive([]byte("forge-ledgertest-loader"))

// Server is a fake ledger. Programs are assembled from submitted chunks and
// become executable accounts when the final chunk arrives.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	slot      uint64
	accounts  map[identity.Identity]*ledger.Account
	pending   map[identity.Identity][]byte
	calls     map[string]int
	submitted []ledger.SubmitRequest

	reject      string
	queryError  string
	unhealthy   bool
	echo        *identity.Identity
	dropOnChunk int

	validator *validator.Validate
}

// NewServer starts a fake ledger. Close it when done.
func NewServer() *Server {
	s := &Server{
		slot:      1,
		accounts:  make(map[identity.Identity]*ledger.Account),
		pending:   make(map[identity.Identity][]byte),
		calls:     make(map[string]int),
		validator: validator.New(),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Endpoint is the URL clients should dial.
func (s *Server) Endpoint() string {
	return s.URL
}

// RejectSubmissions makes every submitProgram call fail with message.
func (s *Server) RejectSubmissions(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject = message
}

// FailQueries makes every getAccountInfo call fail with message.
func (s *Server) FailQueries(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryError = message
}

// SetUnhealthy makes getHealth report an error.
func (s *Server) SetUnhealthy(unhealthy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unhealthy = unhealthy
}

// EchoIdentity makes acknowledgements carry id instead of the submitted one.
func (s *Server) EchoIdentity(id identity.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.echo = &id
}

// DropConnectionOnChunk hijacks and closes the connection of the n-th
// submitProgram call (1-based).
func (s *Server) DropConnectionOnChunk(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropOnChunk = n
}

// SetAccount stores an account directly.
func (s *Server) SetAccount(id identity.Identity, account ledger.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[id] = &account
}

// Account returns a copy of the account at id.
func (s *Server) Account(id identity.Identity) (ledger.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return ledger.Account{}, false
	}
	return *account, true
}

// Calls returns how many times method was invoked.
func (s *Server) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// Submitted returns the accepted submitProgram requests in arrival order.
func (s *Server) Submitted() []ledger.SubmitRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ledger.SubmitRequest(nil), s.submitted...)
}

// Slot is the current slot. It advances when a program is finalized.
func (s *Server) Slot() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slot
}

// RentExempt is the balance the fake assigns to a program of size bytes.
func RentExempt(size int) uint64 {
	return uint64(128+size) * 6960
}

type request struct {
	JSONRPC string          `json:"jsonrpc" validate:"eq=2.0"`
	ID      json.RawMessage `json:"id" validate:"required"`
	Method  string          `json:"method" validate:"required"`
	Params  json.RawMessage `json:"params"`
}

type response struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      json.RawMessage  `json:"id"`
	Result  interface{}      `json:"result,omitempty"`
	Error   *ledger.RPCError `json:"error,omitempty"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONResponse(w, nil, nil, &ledger.RPCError{Code: CodeInvalidRequest, Message: "invalid request body"})
		return
	}
	if err := s.validator.Struct(req); err != nil {
		s.writeJSONResponse(w, req.ID, nil, &ledger.RPCError{Code: CodeInvalidRequest, Message: fmt.Sprintf("validation failed: %v", err)})
		return
	}

	s.mu.Lock()
	s.calls[req.Method]++
	drop := req.Method == ledger.MethodSubmitProgram && s.dropOnChunk == s.calls[req.Method]
	s.mu.Unlock()

	if drop {
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				conn.Close()
				return
			}
		}
		panic(http.ErrAbortHandler)
	}

	var (
		result interface{}
		rpcErr *ledger.RPCError
	)
	switch req.Method {
	case ledger.MethodGetHealth:
		result, rpcErr = s.handleHealth()
	case ledger.MethodGetAccountInfo:
		result, rpcErr = s.handleGetAccountInfo(req.Params)
	case ledger.MethodSubmitProgram:
		result, rpcErr = s.handleSubmitProgram(req.Params)
	default:
		rpcErr = &ledger.RPCError{Code: CodeMethodNotFound, Message: "Method not found"}
	}

	s.writeJSONResponse(w, req.ID, result, rpcErr)
}

func (s *Server) handleHealth() (interface{}, *ledger.RPCError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unhealthy {
		return nil, &ledger.RPCError{Code: CodeUnhealthy, Message: "Node is unhealthy"}
	}
	return ledger.HealthOK, nil
}

func (s *Server) handleGetAccountInfo(raw json.RawMessage) (interface{}, *ledger.RPCError) {
	var params []json.RawMessage
	if err := json.Unmarshal(raw, &params); err != nil || len(params) == 0 {
		return nil, &ledger.RPCError{Code: CodeInvalidParams, Message: "expected [address, config]"}
	}
	var id identity.Identity
	if err := json.Unmarshal(params[0], &id); err != nil {
		return nil, &ledger.RPCError{Code: CodeInvalidParams, Message: fmt.Sprintf("Invalid param: %v", err)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queryError != "" {
		return nil, &ledger.RPCError{Code: CodeRejected, Message: s.queryError}
	}

	type rpcContext struct {
		Slot uint64 `json:"slot"`
	}
	result := struct {
		Context rpcContext      `json:"context"`
		Value   *ledger.Account `json:"value"`
	}{Context: rpcContext{Slot: s.slot}}

	if account, ok := s.accounts[id]; ok {
		copied := *account
		result.Value = &copied
	}
	return result, nil
}

func (s *Server) handleSubmitProgram(raw json.RawMessage) (interface{}, *ledger.RPCError) {
	var req ledger.SubmitRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, &ledger.RPCError{Code: CodeInvalidParams, Message: fmt.Sprintf("Invalid params: %v", err)}
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, &ledger.RPCError{Code: CodeInvalidParams, Message: fmt.Sprintf("validation failed: %v", err)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reject != "" {
		return nil, &ledger.RPCError{Code: CodeRejected, Message: s.reject}
	}
	if _, exists := s.accounts[req.ProgramID]; exists {
		return nil, &ledger.RPCError{Code: CodeRejected, Message: fmt.Sprintf("account %s already in use", req.ProgramID)}
	}

	buf := s.pending[req.ProgramID]
	if req.Offset != uint64(len(buf)) {
		return nil, &ledger.RPCError{
			Code:    CodeRejected,
			Message: fmt.Sprintf("unexpected offset %d, expected %d", req.Offset, len(buf)),
		}
	}
	buf = append(buf, req.Data...)
	s.submitted = append(s.submitted, req)

	if req.Final {
		delete(s.pending, req.ProgramID)
		s.slot++
		s.accounts[req.ProgramID] = &ledger.Account{
			Lamports:   RentExempt(len(buf)),
			Owner:      LoaderID,
			Executable: true,
			Data:       buf,
		}
	} else {
		s.pending[req.ProgramID] = buf
	}

	ack := ledger.SubmitResponse{ProgramID: req.ProgramID, Received: uint64(len(buf))}
	if s.echo != nil {
		ack.ProgramID = *s.echo
	}
	return ack, nil
}

func (s *Server) writeJSONResponse(w http.ResponseWriter, id json.RawMessage, result interface{}, rpcErr *ledger.RPCError) {
	if id == nil {
		id = json.RawMessage("null")
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
		Error:   rpcErr,
	})
}
