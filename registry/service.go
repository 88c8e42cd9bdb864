// Package registry manages the set of relayer addresses whose signatures
// count toward the relay quorum.
package registry

import (
	"context"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/bftrelay/id"
	"github.com/xraph/bftrelay/internal/entity"
)

// Service provides relayer set operations.
// It does not enforce access control; callers gate mutations.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new registry service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Add registers addr as a relayer on behalf of by.
func (svc *Service) Add(ctx context.Context, addr, by common.Address) (*Relayer, error) {
	r := &Relayer{
		Entity:  entity.New(),
		ID:      id.NewRelayerID(),
		Address: addr,
		AddedBy: by,
	}
	if err := svc.store.AddRelayer(ctx, r); err != nil {
		return nil, err
	}

	svc.logger.DebugContext(ctx, "relayer added",
		"relayer", addr.Hex(),
		"relayer_id", r.ID.String(),
	)
	return r, nil
}

// Remove deregisters addr.
func (svc *Service) Remove(ctx context.Context, addr common.Address) error {
	if err := svc.store.RemoveRelayer(ctx, addr); err != nil {
		return err
	}
	svc.logger.DebugContext(ctx, "relayer removed", "relayer", addr.Hex())
	return nil
}

// Get returns the membership record for addr.
func (svc *Service) Get(ctx context.Context, addr common.Address) (*Relayer, error) {
	return svc.store.GetRelayer(ctx, addr)
}

// IsRelayer reports whether addr is a member.
func (svc *Service) IsRelayer(ctx context.Context, addr common.Address) (bool, error) {
	return svc.store.IsRelayer(ctx, addr)
}

// List returns members, oldest first.
func (svc *Service) List(ctx context.Context, opts ListOpts) ([]*Relayer, error) {
	return svc.store.ListRelayers(ctx, opts)
}

// Count returns the number of members.
func (svc *Service) Count(ctx context.Context) (int, error) {
	return svc.store.CountRelayers(ctx)
}

// Threshold derives the current quorum from the live member count.
func (svc *Service) Threshold(ctx context.Context) (int, error) {
	n, err := svc.store.CountRelayers(ctx)
	if err != nil {
		return 0, err
	}
	return Threshold(n), nil
}
