package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when the endpoint answers with something
// that is not a valid JSON-RPC response for the call.
var ErrMalformedResponse = errors.New("malformed ledger response")

// TransportError means the request never produced a JSON-RPC answer: the
// endpoint was unreachable, the connection broke, or HTTP itself failed.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("cannot reach %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RPCError is an error object returned by the ledger.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("ledger error %d: %s", e.Code, e.Message)
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsRPC reports whether err is an error returned by the ledger itself.
func IsRPC(err error) bool {
	var re *RPCError
	return errors.As(err, &re)
}
