// Package access decides who may run privileged operations.
package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/models"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/repository"
)

// Gate combines the configured master identity with the stored privileged flag.
type Gate struct {
	log    *slog.Logger
	store  repository.TechnicianStore
	master int64
}

// NewGate creates a Gate. A zero master disables the master identity.
func NewGate(log *slog.Logger, store repository.TechnicianStore, master int64) *Gate {
	return &Gate{log: log, store: store, master: master}
}

// IsMaster reports whether externalID is the configured master.
func (g *Gate) IsMaster(externalID int64) bool {
	return g.master != 0 && externalID == g.master
}

// IsPrivileged reports whether externalID may run privileged operations.
// The master is privileged even without a technician record.
func (g *Gate) IsPrivileged(ctx context.Context, externalID int64) (bool, error) {
	if g.IsMaster(externalID) {
		return true, nil
	}

	technician, err := g.store.GetTechnician(ctx, externalID)
	if err != nil {
		if errors.Is(err, models.ErrNotRegistered) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check privileges: %w", err)
	}
	return technician.IsPrivileged, nil
}

// Require returns ErrUnauthorized unless actorID is privileged.
func (g *Gate) Require(ctx context.Context, actorID int64) error {
	ok, err := g.IsPrivileged(ctx, actorID)
	if err != nil {
		return err
	}
	if !ok {
		g.log.InfoContext(ctx, "Access denied", "user", actorID)
		return models.ErrUnauthorized
	}
	return nil
}

// CheckProtected returns ErrProtectedIdentity when targetID is the master.
func (g *Gate) CheckProtected(targetID int64) error {
	if g.IsMaster(targetID) {
		return models.ErrProtectedIdentity
	}
	return nil
}

// Grant marks targetID as privileged.
func (g *Gate) Grant(ctx context.Context, actorID, targetID int64) error {
	if err := g.Require(ctx, actorID); err != nil {
		return err
	}
	if err := g.store.SetPrivileged(ctx, targetID, true); err != nil {
		return fmt.Errorf("failed to grant privileges: %w", err)
	}

	g.log.InfoContext(ctx, "Privileges granted", "actor", actorID, "user", targetID)
	return nil
}

// Revoke clears the privileged flag of targetID. The master cannot be revoked.
func (g *Gate) Revoke(ctx context.Context, actorID, targetID int64) error {
	if err := g.Require(ctx, actorID); err != nil {
		return err
	}
	if err := g.CheckProtected(targetID); err != nil {
		return err
	}
	if err := g.store.SetPrivileged(ctx, targetID, false); err != nil {
		return fmt.Errorf("failed to revoke privileges: %w", err)
	}

	g.log.InfoContext(ctx, "Privileges revoked", "actor", actorID, "user", targetID)
	return nil
}
