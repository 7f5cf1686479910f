package repository_test

import (
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/models"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var occurrenceColumns = []string{
	"id", "owner_id", "contract", "category", "status",
	"created_at", "updated_at", "updated_by", "notes", "location", "urgency",
}

func sampleOccurrence() models.Occurrence {
	createdAt := time.Date(2025, 7, 18, 10, 15, 0, 0, time.UTC)
	return models.Occurrence{
		ID:        "1A9B7F3C",
		OwnerID:   12345,
		Contract:  "123456789",
		Category:  models.CategoryRedeExterna,
		Status:    models.StatusPending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func occurrenceRow(rows *pgxmock.Rows, o models.Occurrence) *pgxmock.Rows {
	return rows.AddRow(
		o.ID, o.OwnerID, o.Contract, string(o.Category), string(o.Status),
		o.CreatedAt, o.UpdatedAt, o.UpdatedBy, o.Notes, o.Location, o.Urgency,
	)
}

func TestInsertOccurrence(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	occurrence := sampleOccurrence()
	args := []any{
		occurrence.ID, occurrence.OwnerID, occurrence.Contract, "rede_externa", "pending",
		occurrence.CreatedAt, occurrence.UpdatedAt, int64(0), "", "", "",
	}

	t.Run("error - id collision", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		repo := repository.NewRepository(mock)

		mock.ExpectExec(repository.InsertOccurrenceSQL).
			WithArgs(args...).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "occurrences_pkey"})

		require.ErrorIs(t, repo.InsertOccurrence(ctx, occurrence), models.ErrOccurrenceIDExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - insert failed", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		repo := repository.NewRepository(mock)

		mock.ExpectExec(repository.InsertOccurrenceSQL).WithArgs(args...).WillReturnError(assert.AnError)

		err := repo.InsertOccurrence(ctx, occurrence)

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to insert occurrence")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		repo := repository.NewRepository(mock)

		mock.ExpectExec(repository.InsertOccurrenceSQL).
			WithArgs(args...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.InsertOccurrence(ctx, occurrence))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetOccurrence(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	occurrence := sampleOccurrence()

	t.Run("error - not found", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		repo := repository.NewRepository(mock)

		mock.ExpectQuery(repository.SelectOccurrenceSQL).WithArgs("NOPE").WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetOccurrence(ctx, "NOPE")

		require.ErrorIs(t, err, models.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		repo := repository.NewRepository(mock)

		mock.ExpectQuery(repository.SelectOccurrenceSQL).
			WithArgs(occurrence.ID).
			WillReturnRows(occurrenceRow(pgxmock.NewRows(occurrenceColumns), occurrence))

		got, err := repo.GetOccurrence(ctx, occurrence.ID)

		require.NoError(t, err)
		assert.Equal(t, occurrence, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListOccurrencesByOwner(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	since := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	t.Run("error - query failed", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		repo := repository.NewRepository(mock)

		mock.ExpectQuery(repository.SelectOccurrencesByOwnerSQL).
			WithArgs(int64(12345), since).
			WillReturnError(assert.AnError)

		_, err := repo.ListOccurrencesByOwner(ctx, 12345, since)

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to query occurrences")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - scan failed", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		repo := repository.NewRepository(mock)

		mock.ExpectQuery(repository.SelectOccurrencesByOwnerSQL).
			WithArgs(int64(12345), since).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("ONLY-ID"))

		_, err := repo.ListOccurrencesByOwner(ctx, 12345, since)

		require.ErrorContains(t, err, "failed to scan occurrence row")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		repo := repository.NewRepository(mock)

		first := sampleOccurrence()
		second := sampleOccurrence()
		second.ID = "X8M4K7P9"
		second.Category = models.CategoryNapGpon

		rows := occurrenceRow(occurrenceRow(pgxmock.NewRows(occurrenceColumns), second), first)
		mock.ExpectQuery(repository.SelectOccurrencesByOwnerSQL).WithArgs(int64(12345), since).WillReturnRows(rows)

		got, err := repo.ListOccurrencesByOwner(ctx, 12345, since)

		require.NoError(t, err)
		assert.Equal(t, []models.Occurrence{second, first}, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListOccurrencesByContractAndStatus(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	occurrence := sampleOccurrence()

	t.Run("by contract", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		repo := repository.NewRepository(mock)

		mock.ExpectQuery(repository.SelectOccurrencesByContractSQL).
			WithArgs(occurrence.Contract).
			WillReturnRows(occurrenceRow(pgxmock.NewRows(occurrenceColumns), occurrence))

		got, err := repo.ListOccurrencesByContract(ctx, occurrence.Contract)

		require.NoError(t, err)
		assert.Equal(t, []models.Occurrence{occurrence}, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("by status", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		repo := repository.NewRepository(mock)

		mock.ExpectQuery(repository.SelectOccurrencesByStatusSQL).
			WithArgs("pending").
			WillReturnRows(occurrenceRow(pgxmock.NewRows(occurrenceColumns), occurrence))

		got, err := repo.ListOccurrencesByStatus(ctx, models.StatusPending)

		require.NoError(t, err)
		assert.Equal(t, []models.Occurrence{occurrence}, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("all - empty", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		repo := repository.NewRepository(mock)

		mock.ExpectQuery(repository.SelectOccurrencesSQL).WillReturnRows(pgxmock.NewRows(occurrenceColumns))

		got, err := repo.ListOccurrences(ctx)

		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateOccurrenceStatus(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	occurrence := sampleOccurrence()
	actorID := int64(999)
	at := occurrence.CreatedAt.Add(time.Hour)

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		repo := repository.NewRepository(mock)

		updated := occurrence
		updated.Status = models.StatusResolved
		updated.UpdatedAt = at
		updated.UpdatedBy = actorID

		mock.ExpectQuery(repository.UpdateOccurrenceStatusSQL).
			WithArgs(occurrence.ID, "pending", "resolved", at, actorID).
			WillReturnRows(occurrenceRow(pgxmock.NewRows(occurrenceColumns), updated))

		got, err := repo.UpdateOccurrenceStatus(
			ctx, occurrence.ID, models.StatusPending, models.StatusResolved, actorID, at,
		)

		require.NoError(t, err)
		assert.Equal(t, updated, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - status changed concurrently", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		repo := repository.NewRepository(mock)

		mock.ExpectQuery(repository.UpdateOccurrenceStatusSQL).
			WithArgs(occurrence.ID, "pending", "resolved", at, actorID).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery(repository.SelectOccurrenceSQL).
			WithArgs(occurrence.ID).
			WillReturnRows(occurrenceRow(pgxmock.NewRows(occurrenceColumns), occurrence))

		_, err := repo.UpdateOccurrenceStatus(
			ctx, occurrence.ID, models.StatusPending, models.StatusResolved, actorID, at,
		)

		require.ErrorIs(t, err, models.ErrStatusConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - not found", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		repo := repository.NewRepository(mock)

		mock.ExpectQuery(repository.UpdateOccurrenceStatusSQL).
			WithArgs("NOPE", "pending", "resolved", at, actorID).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery(repository.SelectOccurrenceSQL).WithArgs("NOPE").WillReturnError(pgx.ErrNoRows)

		_, err := repo.UpdateOccurrenceStatus(ctx, "NOPE", models.StatusPending, models.StatusResolved, actorID, at)

		require.ErrorIs(t, err, models.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
