package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forgestack/forge/pkg/builders"
	forgeerrors "github.com/forgestack/forge/pkg/errors"
	"github.com/forgestack/forge/pkg/identity"
	"github.com/forgestack/forge/pkg/ledger"
	"go.uber.org/zap"
)

// DefaultChunkSize keeps each submission inside a single ledger packet.
const DefaultChunkSize = 1012

// Options configures a Deployer.
type Options struct {
	Dialer ledger.Dialer

	// ChunkSize is the largest slice of bytecode sent per submission.
	ChunkSize int

	// Payer is forwarded to the ledger unchanged when set.
	Payer *identity.Identity

	Logger *zap.Logger
}

// DefaultOptions returns a new Options with default values.
func DefaultOptions() *Options {
	return &Options{
		Dialer:    ledger.NewDialer(ledger.Options{}),
		ChunkSize: DefaultChunkSize,
		Logger:    zap.NewNop(),
	}
}

// WithDialer sets how ledger endpoints are reached.
func (o *Options) WithDialer(d ledger.Dialer) *Options {
	o.Dialer = d
	return o
}

// WithChunkSize sets the submission chunk size.
func (o *Options) WithChunkSize(size int) *Options {
	o.ChunkSize = size
	return o
}

// WithPayer sets the account that pays for the deployment.
func (o *Options) WithPayer(payer identity.Identity) *Options {
	o.Payer = &payer
	return o
}

// WithLogger sets the logger.
func (o *Options) WithLogger(logger *zap.Logger) *Options {
	o.Logger = logger
	return o
}

// Deployer submits build artifacts to a ledger.
type Deployer struct {
	opts *Options
}

func NewDeployer(opts *Options) *Deployer {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Dialer == nil {
		opts.Dialer = ledger.NewDialer(ledger.Options{Logger: opts.Logger})
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Deployer{opts: opts}
}

// Deploy submits the artifact's bytecode to the ledger at endpoint and
// returns the artifact's identity once the ledger has acknowledged the whole
// program. Nothing is retried.
func (d *Deployer) Deploy(ctx context.Context, artifact *builders.BuildArtifact, endpoint string) (identity.Identity, error) {
	if artifact == nil {
		return identity.Zero, errors.New("deploy: nil artifact")
	}

	id := artifact.Identity()
	logger := d.opts.Logger.With(zap.Stringer("identity", id), zap.String("endpoint", endpoint))
	start := time.Now()

	client, err := d.opts.Dialer.Dial(endpoint)
	if err != nil {
		return identity.Zero, connectionFailure(id, endpoint, err)
	}

	if err := client.GetHealth(ctx); err != nil {
		logger.Warn("ledger health check failed", zap.Error(err))
		return identity.Zero, connectionFailure(id, endpoint, err)
	}

	chunks := Chunks(artifact.Bytecode(), d.opts.ChunkSize)
	logger.Debug("submitting program", zap.Int("size", artifact.Size()), zap.Int("chunks", len(chunks)))

	var offset uint64
	for i, chunk := range chunks {
		req := ledger.SubmitRequest{
			ProgramID: id,
			Offset:    offset,
			Data:      chunk,
			Final:     i == len(chunks)-1,
			Payer:     d.opts.Payer,
		}

		ack, err := client.SubmitProgram(ctx, req)
		if err != nil {
			logger.Warn("submission failed", zap.Int("chunk", i), zap.Error(err))
			if ledger.IsTransport(err) {
				return identity.Zero, connectionFailure(id, endpoint, err)
			}
			return identity.Zero, forgeerrors.Wrap(forgeerrors.DomainDeploy, forgeerrors.CodeSubmissionRejected,
				fmt.Sprintf("ledger rejected chunk %d of %d", i+1, len(chunks)), err).
				WithIdentity(id).WithEndpoint(endpoint)
		}

		offset += uint64(len(chunk))

		if req.Final && ack.ProgramID != id {
			return identity.Zero, forgeerrors.New(forgeerrors.DomainDeploy, forgeerrors.CodeSubmissionRejected,
				fmt.Sprintf("ledger acknowledged a different program %s", ack.ProgramID)).
				WithIdentity(id).WithEndpoint(endpoint)
		}
	}

	logger.Info("program deployed",
		zap.Int("size", artifact.Size()),
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", time.Since(start)))

	return id, nil
}

// Chunks splits data into consecutive slices of at most size bytes.
func Chunks(data []byte, size int) [][]byte {
	if size <= 0 {
		size = DefaultChunkSize
	}
	chunks := make([][]byte, 0, (len(data)+size-1)/size)
	for len(data) > 0 {
		n := min(size, len(data))
		chunks = append(chunks, data[:n])
		data = data[n:]
	}
	return chunks
}

func connectionFailure(id identity.Identity, endpoint string, err error) error {
	return forgeerrors.Wrap(forgeerrors.DomainDeploy, forgeerrors.CodeConnectionFailure,
		"cannot reach ledger endpoint", err).WithIdentity(id).WithEndpoint(endpoint)
}
