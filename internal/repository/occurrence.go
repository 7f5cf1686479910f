package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/models"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOccurrence(row rowScanner) (models.Occurrence, error) {
	var (
		occurrence models.Occurrence
		category   string
		status     string
	)

	err := row.Scan(
		&occurrence.ID,
		&occurrence.OwnerID,
		&occurrence.Contract,
		&category,
		&status,
		&occurrence.CreatedAt,
		&occurrence.UpdatedAt,
		&occurrence.UpdatedBy,
		&occurrence.Notes,
		&occurrence.Location,
		&occurrence.Urgency,
	)
	if err != nil {
		return models.Occurrence{}, err
	}

	occurrence.Category = models.Category(category)
	occurrence.Status = models.Status(status)

	return occurrence, nil
}

// InsertOccurrence appends the occurrence. A primary key violation means the generated id
// collided and is reported as models.ErrOccurrenceIDExists so the caller can retry.
func (r *Repository) InsertOccurrence(ctx context.Context, occurrence models.Occurrence) error {
	_, err := r.db.Exec(ctx, InsertOccurrenceSQL,
		occurrence.ID,
		occurrence.OwnerID,
		occurrence.Contract,
		string(occurrence.Category),
		string(occurrence.Status),
		occurrence.CreatedAt,
		occurrence.UpdatedAt,
		occurrence.UpdatedBy,
		occurrence.Notes,
		occurrence.Location,
		occurrence.Urgency,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok && constraint == constraintOccurrencesPK {
			return models.ErrOccurrenceIDExists
		}
		return fmt.Errorf("failed to insert occurrence: %w", err)
	}

	return nil
}

// GetOccurrence returns a single occurrence by id.
func (r *Repository) GetOccurrence(ctx context.Context, id string) (models.Occurrence, error) {
	occurrence, err := scanOccurrence(r.db.QueryRow(ctx, SelectOccurrenceSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Occurrence{}, models.ErrNotFound
		}
		return models.Occurrence{}, fmt.Errorf("failed to get occurrence %s: %w", id, err)
	}

	return occurrence, nil
}

// ListOccurrencesByOwner returns the owner's occurrences since the given time, newest first.
func (r *Repository) ListOccurrencesByOwner(
	ctx context.Context, ownerID int64, since time.Time,
) ([]models.Occurrence, error) {
	return r.queryOccurrences(ctx, SelectOccurrencesByOwnerSQL, ownerID, since)
}

// ListOccurrencesByContract returns the occurrences registered for the contract in insertion order.
func (r *Repository) ListOccurrencesByContract(ctx context.Context, contract string) ([]models.Occurrence, error) {
	return r.queryOccurrences(ctx, SelectOccurrencesByContractSQL, contract)
}

// ListOccurrencesByStatus returns occurrences in the given status, oldest first.
func (r *Repository) ListOccurrencesByStatus(
	ctx context.Context, status models.Status,
) ([]models.Occurrence, error) {
	return r.queryOccurrences(ctx, SelectOccurrencesByStatusSQL, string(status))
}

// ListOccurrences returns every stored occurrence.
func (r *Repository) ListOccurrences(ctx context.Context) ([]models.Occurrence, error) {
	return r.queryOccurrences(ctx, SelectOccurrencesSQL)
}

// UpdateOccurrenceStatus performs a compare-and-set of the status column. When no row matched
// it distinguishes an unknown id (models.ErrNotFound) from a concurrent change (models.ErrStatusConflict).
func (r *Repository) UpdateOccurrenceStatus(
	ctx context.Context,
	id string,
	from, to models.Status,
	actorID int64,
	at time.Time,
) (models.Occurrence, error) {
	occurrence, err := scanOccurrence(
		r.db.QueryRow(ctx, UpdateOccurrenceStatusSQL, id, string(from), string(to), at, actorID),
	)
	if err == nil {
		return occurrence, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Occurrence{}, fmt.Errorf("failed to update occurrence %s: %w", id, err)
	}

	if _, err = r.GetOccurrence(ctx, id); err != nil {
		return models.Occurrence{}, err
	}

	return models.Occurrence{}, models.ErrStatusConflict
}

func (r *Repository) queryOccurrences(ctx context.Context, query string, args ...any) ([]models.Occurrence, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query occurrences: %w", err)
	}
	defer rows.Close()

	var occurrences []models.Occurrence
	for rows.Next() {
		occurrence, errScan := scanOccurrence(rows)
		if errScan != nil {
			return nil, fmt.Errorf("failed to scan occurrence row: %w", errScan)
		}
		occurrences = append(occurrences, occurrence)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return occurrences, nil
}
