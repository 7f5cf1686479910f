package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/models"
)

// GetTechnician retrieves the technician linked to the Telegram ID.
// It returns models.ErrNotRegistered when no row exists.
func (r *Repository) GetTechnician(ctx context.Context, externalID int64) (models.Technician, error) {
	var technician models.Technician

	err := r.db.QueryRow(ctx, SelectTechnicianSQL, externalID).Scan(
		&technician.ExternalID,
		&technician.Login,
		&technician.Name,
		&technician.Area,
		&technician.Phone,
		&technician.IsPrivileged,
		&technician.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Technician{}, models.ErrNotRegistered
		}
		return models.Technician{}, fmt.Errorf("failed to get technician: %w", err)
	}

	return technician, nil
}

// CreateTechnician inserts the technician. Unique violations are translated into
// models.ErrTechnicianExists (same Telegram ID) or models.ErrDuplicateLogin (same login).
func (r *Repository) CreateTechnician(ctx context.Context, technician models.Technician) error {
	_, err := r.db.Exec(ctx, InsertTechnicianSQL,
		technician.ExternalID,
		technician.Login,
		technician.Name,
		technician.Area,
		technician.Phone,
		technician.IsPrivileged,
		technician.CreatedAt,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			switch constraint {
			case constraintTechniciansLogin:
				return models.ErrDuplicateLogin
			case constraintTechniciansPK:
				return models.ErrTechnicianExists
			}
		}
		return fmt.Errorf("failed to insert technician: %w", err)
	}

	return nil
}

// LoginTaken reports whether another technician already uses the login.
func (r *Repository) LoginTaken(ctx context.Context, login string, externalID int64) (bool, error) {
	var exists bool

	if err := r.db.QueryRow(ctx, LoginTakenSQL, login, externalID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check login: %w", err)
	}

	return exists, nil
}

// SetPrivileged updates the privileged flag. It returns models.ErrNotRegistered when no row was touched.
func (r *Repository) SetPrivileged(ctx context.Context, externalID int64, privileged bool) error {
	cmdTag, err := r.db.Exec(ctx, UpdatePrivilegedSQL, externalID, privileged)
	if err != nil {
		return fmt.Errorf("failed to update technician %d: %w", externalID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotRegistered
	}

	return nil
}

// DeleteTechnician removes the technician row by Telegram ID.
func (r *Repository) DeleteTechnician(ctx context.Context, externalID int64) error {
	cmdTag, err := r.db.Exec(ctx, DeleteTechnicianSQL, externalID)
	if err != nil {
		return fmt.Errorf("failed to delete technician %d: %w", externalID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotRegistered
	}

	return nil
}

// PurgeTechnician deletes the technician and all of their occurrences inside one transaction,
// so readers never observe a partial purge. When neither a technician nor any occurrence
// existed the transaction is rolled back and models.ErrNotRegistered is returned.
func (r *Repository) PurgeTechnician(ctx context.Context, externalID int64) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	occTag, err := tx.Exec(ctx, DeleteOccurrencesByOwnerSQL, externalID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete occurrences of %d: %w", externalID, err)
	}

	techTag, err := tx.Exec(ctx, DeleteTechnicianSQL, externalID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete technician %d: %w", externalID, err)
	}

	if techTag.RowsAffected() == 0 && occTag.RowsAffected() == 0 {
		return 0, models.ErrNotRegistered
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit purge: %w", err)
	}

	return int(occTag.RowsAffected()), nil
}
