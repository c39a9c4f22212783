package ledger

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/forgestack/forge/pkg/identity"
)

// JSON-RPC method names understood by the ledger.
const (
	MethodGetHealth      = "getHealth"
	MethodGetAccountInfo = "getAccountInfo"
	MethodSubmitProgram  = "submitProgram"
)

// HealthOK is the getHealth result of a node that accepts requests.
const HealthOK = "ok"

// Account is the on-ledger state of an address.
type Account struct {
	Lamports   uint64            `json:"lamports"`
	Owner      identity.Identity `json:"owner"`
	Executable bool              `json:"executable"`
	Data       AccountData       `json:"data"`
	RentEpoch  uint64            `json:"rentEpoch"`
}

// AccountData is account data in the ledger's ["<base64>", "base64"] form.
type AccountData []byte

func (d AccountData) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{base64.StdEncoding.EncodeToString(d), "base64"})
}

func (d *AccountData) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("account data: %w", err)
	}
	if len(pair) != 2 || pair[1] != "base64" {
		return fmt.Errorf("account data: unsupported encoding %v", pair)
	}
	raw, err := base64.StdEncoding.DecodeString(pair[0])
	if err != nil {
		return fmt.Errorf("account data: %w", err)
	}
	*d = raw
	return nil
}

// AccountInfo is the result of getAccountInfo. Account is nil when nothing
// exists at the queried address.
type AccountInfo struct {
	Slot    uint64
	Account *Account
}

type rpcContext struct {
	Slot uint64 `json:"slot"`
}

type accountInfoResult struct {
	Context *rpcContext `json:"context"`
	Value   *Account    `json:"value"`
}

type accountInfoConfig struct {
	Encoding string `json:"encoding"`
}

// SubmitRequest carries one chunk of program bytecode. Data is base64 on the
// wire. The chunk with Final set completes the program.
type SubmitRequest struct {
	ProgramID identity.Identity  `json:"programId" validate:"required"`
	Offset    uint64             `json:"offset"`
	Data      []byte             `json:"data" validate:"required,min=1"`
	Final     bool               `json:"final"`
	Payer     *identity.Identity `json:"payer,omitempty"`
}

// SubmitResponse acknowledges a chunk. Received is the number of bytes the
// ledger holds for the program after the chunk.
type SubmitResponse struct {
	ProgramID identity.Identity `json:"programId"`
	Received  uint64            `json:"received"`
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}
