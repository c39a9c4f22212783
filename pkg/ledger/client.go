package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/forgestack/forge/pkg/identity"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const jsonRPCVersion = "2.0"

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 16 << 20

// Client talks to one ledger endpoint.
type Client interface {
	Endpoint() string
	GetHealth(ctx context.Context) error
	GetAccountInfo(ctx context.Context, id identity.Identity) (*AccountInfo, error)
	SubmitProgram(ctx context.Context, req SubmitRequest) (*SubmitResponse, error)
}

// Dialer opens clients. Dialing only validates the endpoint; nothing is sent
// until the first call.
type Dialer interface {
	Dial(endpoint string) (Client, error)
}

// Options for creating ledger clients
type Options struct {
	// HTTPClient overrides the client used for requests.
	HTTPClient *http.Client

	// Timeout applies to each request when HTTPClient is nil. Zero means no
	// timeout beyond the caller's context.
	Timeout time.Duration

	Logger *zap.Logger
}

type dialer struct {
	opts Options
}

// NewDialer returns a Dialer that creates HTTP JSON-RPC clients.
func NewDialer(opts Options) Dialer {
	return &dialer{opts: opts}
}

func (d *dialer) Dial(endpoint string) (Client, error) {
	return Dial(endpoint, d.opts)
}

// clientImpl is the HTTP implementation of Client
type clientImpl struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
	validator  *validator.Validate
}

// Dial creates a client for endpoint, which must be an absolute http or
// https URL.
func Dial(endpoint string, opts Options) (Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("unsupported endpoint URL %q", endpoint)}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &clientImpl{
		endpoint:   endpoint,
		httpClient: httpClient,
		logger:     logger.With(zap.String("endpoint", endpoint)),
		validator:  validator.New(),
	}, nil
}

func (c *clientImpl) Endpoint() string {
	return c.endpoint
}

// GetHealth returns nil when the node reports itself healthy.
func (c *clientImpl) GetHealth(ctx context.Context) error {
	var health string
	if err := c.call(ctx, MethodGetHealth, nil, &health); err != nil {
		return err
	}
	if health != HealthOK {
		return fmt.Errorf("%w: health is %q", ErrMalformedResponse, health)
	}
	return nil
}

// GetAccountInfo fetches the account at id. A missing account is not an
// error: the result has a nil Account.
func (c *clientImpl) GetAccountInfo(ctx context.Context, id identity.Identity) (*AccountInfo, error) {
	params := []interface{}{id, accountInfoConfig{Encoding: "base64"}}

	var result accountInfoResult
	if err := c.call(ctx, MethodGetAccountInfo, params, &result); err != nil {
		return nil, err
	}
	if result.Context == nil {
		return nil, fmt.Errorf("%w: missing context", ErrMalformedResponse)
	}

	return &AccountInfo{
		Slot:    result.Context.Slot,
		Account: result.Value,
	}, nil
}

// SubmitProgram sends one chunk of program bytecode.
func (c *clientImpl) SubmitProgram(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	if err := c.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid submission: %w", err)
	}

	var resp SubmitResponse
	if err := c.call(ctx, MethodSubmitProgram, req, &resp); err != nil {
		return nil, err
	}
	if resp.ProgramID.IsZero() {
		return nil, fmt.Errorf("%w: acknowledgement without program id", ErrMalformedResponse)
	}
	return &resp, nil
}

// call performs one JSON-RPC round trip and decodes the result into out.
func (c *clientImpl) call(ctx context.Context, method string, params, out interface{}) error {
	id := uuid.NewString()
	body, err := json.Marshal(rpcRequest{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Endpoint: c.endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("ledger request failed", zap.String("method", method), zap.Error(err))
		return &TransportError{Endpoint: c.endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &TransportError{Endpoint: c.endpoint, Err: err}
	}

	c.logger.Debug("ledger request",
		zap.String("method", method),
		zap.String("id", id),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	var rpcResp rpcResponse
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &TransportError{
				Endpoint: c.endpoint,
				Err:      fmt.Errorf("request failed (status code %d): %s", resp.StatusCode, bytes.TrimSpace(data)),
			}
		}
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if resp.StatusCode != http.StatusOK {
		return &TransportError{
			Endpoint: c.endpoint,
			Err:      fmt.Errorf("request failed (status code %d)", resp.StatusCode),
		}
	}

	var echoed string
	if err := json.Unmarshal(rpcResp.ID, &echoed); err != nil || echoed != id {
		return fmt.Errorf("%w: response id %s does not match request", ErrMalformedResponse, rpcResp.ID)
	}
	if len(rpcResp.Result) == 0 {
		return fmt.Errorf("%w: no result", ErrMalformedResponse)
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return nil
}
