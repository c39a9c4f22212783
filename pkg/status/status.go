package status

import (
	"context"

	forgeerrors "github.com/forgestack/forge/pkg/errors"
	"github.com/forgestack/forge/pkg/identity"
	"github.com/forgestack/forge/pkg/ledger"
	"go.uber.org/zap"
)

// DeploymentStatus is a snapshot of a program's on-ledger state. Slot and
// Balance are nil exactly when Deployed is false.
type DeploymentStatus struct {
	Deployed bool    `json:"deployed" yaml:"deployed"`
	Slot     *uint64 `json:"slot" yaml:"slot"`
	Balance  *uint64 `json:"balance" yaml:"balance"`
}

// NotDeployed is the status of an identity with no account on the ledger.
func NotDeployed() DeploymentStatus {
	return DeploymentStatus{}
}

// Resolver queries deployment state. It keeps no state between calls.
type Resolver struct {
	dialer ledger.Dialer
	logger *zap.Logger
}

func NewResolver(dialer ledger.Dialer, logger *zap.Logger) *Resolver {
	if dialer == nil {
		dialer = ledger.NewDialer(ledger.Options{Logger: logger})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{dialer: dialer, logger: logger}
}

// Status reports whether id is deployed on the ledger at endpoint. An
// unreachable endpoint or a failed query is an error, never "not deployed".
func (r *Resolver) Status(ctx context.Context, id identity.Identity, endpoint string) (DeploymentStatus, error) {
	client, err := r.dialer.Dial(endpoint)
	if err != nil {
		return DeploymentStatus{}, forgeerrors.Wrap(forgeerrors.DomainStatus, forgeerrors.CodeConnectionFailure,
			"cannot reach ledger endpoint", err).WithIdentity(id).WithEndpoint(endpoint)
	}

	info, err := client.GetAccountInfo(ctx, id)
	if err != nil {
		r.logger.Debug("account query failed",
			zap.Stringer("identity", id),
			zap.String("endpoint", endpoint),
			zap.Error(err))
		if ledger.IsTransport(err) {
			return DeploymentStatus{}, forgeerrors.Wrap(forgeerrors.DomainStatus, forgeerrors.CodeConnectionFailure,
				"cannot reach ledger endpoint", err).WithIdentity(id).WithEndpoint(endpoint)
		}
		return DeploymentStatus{}, forgeerrors.Wrap(forgeerrors.DomainStatus, forgeerrors.CodeQueryFailure,
			"account query failed", err).WithIdentity(id).WithEndpoint(endpoint)
	}

	if info.Account == nil {
		return NotDeployed(), nil
	}

	slot := info.Slot
	balance := info.Account.Lamports
	return DeploymentStatus{
		Deployed: true,
		Slot:     &slot,
		Balance:  &balance,
	}, nil
}
