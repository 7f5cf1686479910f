package repository

import (
	"context"
	"time"

	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/models"
)

// TechnicianStore is the identity store: technicians keyed by Telegram ID with a unique login.
type TechnicianStore interface {
	// GetTechnician returns the technician linked to the Telegram ID or models.ErrNotRegistered.
	GetTechnician(ctx context.Context, externalID int64) (models.Technician, error)
	// CreateTechnician inserts a new technician. It fails with models.ErrTechnicianExists when the
	// Telegram ID is taken and with models.ErrDuplicateLogin when the login is taken.
	CreateTechnician(ctx context.Context, technician models.Technician) error
	// LoginTaken reports whether a technician other than externalID already uses login.
	LoginTaken(ctx context.Context, login string, externalID int64) (bool, error)
	// SetPrivileged updates the privileged flag of a registered technician.
	SetPrivileged(ctx context.Context, externalID int64, privileged bool) error
	// DeleteTechnician removes the technician record and leaves their occurrences untouched.
	DeleteTechnician(ctx context.Context, externalID int64) error
	// PurgeTechnician removes the technician and every occurrence they own in one step.
	// It returns the number of removed occurrences.
	PurgeTechnician(ctx context.Context, externalID int64) (int, error)
}

// OccurrenceStore is the ticket store: occurrences keyed by id, indexed by owner, contract and status.
type OccurrenceStore interface {
	// InsertOccurrence appends an occurrence or fails with models.ErrOccurrenceIDExists.
	InsertOccurrence(ctx context.Context, occurrence models.Occurrence) error
	// GetOccurrence returns the occurrence with the id or models.ErrNotFound.
	GetOccurrence(ctx context.Context, id string) (models.Occurrence, error)
	// ListOccurrencesByOwner returns the owner's occurrences created at or after since, newest first.
	// A zero since means all time.
	ListOccurrencesByOwner(ctx context.Context, ownerID int64, since time.Time) ([]models.Occurrence, error)
	// ListOccurrencesByContract returns occurrences of the contract in insertion order.
	ListOccurrencesByContract(ctx context.Context, contract string) ([]models.Occurrence, error)
	// ListOccurrencesByStatus returns occurrences in the status, oldest first.
	ListOccurrencesByStatus(ctx context.Context, status models.Status) ([]models.Occurrence, error)
	// ListOccurrences returns every occurrence in insertion order.
	ListOccurrences(ctx context.Context) ([]models.Occurrence, error)
	// UpdateOccurrenceStatus moves the occurrence from one status to another. It fails with
	// models.ErrNotFound for unknown ids and models.ErrStatusConflict when the stored status is not from.
	UpdateOccurrenceStatus(
		ctx context.Context, id string, from, to models.Status, actorID int64, at time.Time,
	) (models.Occurrence, error)
}

// Store groups both collections plus a liveness check used by the health endpoint.
type Store interface {
	TechnicianStore
	OccurrenceStore
	Ping(ctx context.Context) error
}

// Repository is the PostgreSQL implementation of Store.
type Repository struct {
	db Database
}

// NewRepository creates a new instance of Repository with the provided Database.
// It returns a pointer to the newly created Repository.
func NewRepository(db Database) *Repository {
	return &Repository{db: db}
}

// Ping checks that the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

var (
	_ Store = (*Repository)(nil)
	_ Store = (*Memory)(nil)
)
