// Package ticket implements the occurrence lifecycle: opening, listing, status changes,
// owner purges and reports.
package ticket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/access"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/i18n"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/metrics"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/models"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/repository"
)

// DefaultMaxAttempts bounds id generation retries on collision.
const DefaultMaxAttempts = 5

// NewOccurrence is the input for Create.
type NewOccurrence struct {
	OwnerID  int64
	Category models.Category
	Contract string
	Notes    string
	Urgency  string
}

// Manager applies the occurrence rules on top of a Store.
type Manager struct {
	log         *slog.Logger
	store       repository.Store
	gate        *access.Gate
	metrics     *metrics.Metrics
	localizer   *i18n.Localizer
	reports     ReportCache
	newID       func() string
	now         func() time.Time
	maxAttempts int
}

// ReportCache is the part of the report cache the Manager needs.
type ReportCache interface {
	Get(ctx context.Context, lang string) ([]byte, bool)
	Set(ctx context.Context, lang string, data []byte)
	Invalidate(ctx context.Context, langs ...string)
}

// Option configures a Manager.
type Option func(*Manager)

// WithIDSource replaces the random occurrence id source.
func WithIDSource(newID func() string) Option {
	return func(m *Manager) { m.newID = newID }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithMaxAttempts sets how many ids are tried before ErrStoreExhausted.
func WithMaxAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// WithReportCache enables report caching.
func WithReportCache(reports ReportCache) Option {
	return func(m *Manager) { m.reports = reports }
}

// NewManager creates a Manager.
func NewManager(
	log *slog.Logger,
	store repository.Store,
	gate *access.Gate,
	metrics *metrics.Metrics,
	localizer *i18n.Localizer,
	opts ...Option,
) *Manager {
	manager := &Manager{
		log:         log,
		store:       store,
		gate:        gate,
		metrics:     metrics,
		localizer:   localizer,
		newID:       NewID,
		now:         time.Now,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(manager)
	}
	return manager
}

// NewID returns 8 uppercase hex characters taken from a random UUID.
func NewID() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

// Create opens a pending occurrence for a registered technician.
func (m *Manager) Create(ctx context.Context, input NewOccurrence) (models.Occurrence, error) {
	if !input.Category.Valid() {
		return models.Occurrence{}, models.ErrInvalidCategory
	}
	if _, err := m.store.GetTechnician(ctx, input.OwnerID); err != nil {
		return models.Occurrence{}, fmt.Errorf("failed to resolve owner: %w", err)
	}

	now := m.now()
	occurrence := models.Occurrence{
		OwnerID:   input.OwnerID,
		Contract:  strings.TrimSpace(input.Contract),
		Category:  input.Category,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Notes:     input.Notes,
		Urgency:   input.Urgency,
	}

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		occurrence.ID = m.newID()

		start := time.Now()
		err := m.store.InsertOccurrence(ctx, occurrence)
		m.observe("insert_occurrence", start)
		if err == nil {
			m.metrics.OccurrencesCreated.WithLabelValues(string(occurrence.Category)).Inc()
			m.invalidateReports(ctx)
			m.log.InfoContext(ctx, "Occurrence created",
				"id", occurrence.ID, "user", occurrence.OwnerID, "category", occurrence.Category)
			return occurrence, nil
		}
		if !errors.Is(err, models.ErrOccurrenceIDExists) {
			return models.Occurrence{}, fmt.Errorf("failed to create occurrence: %w", err)
		}
		m.log.WarnContext(ctx, "Occurrence id collision", "id", occurrence.ID, "attempt", attempt)
	}

	return models.Occurrence{}, models.ErrStoreExhausted
}

// Get returns one occurrence. Only privileged actors may look up arbitrary ids.
func (m *Manager) Get(ctx context.Context, id string, actorID int64) (models.Occurrence, error) {
	if err := m.gate.Require(ctx, actorID); err != nil {
		return models.Occurrence{}, err
	}
	occurrence, err := m.store.GetOccurrence(ctx, normalizeID(id))
	if err != nil {
		return models.Occurrence{}, fmt.Errorf("failed to get occurrence: %w", err)
	}
	return occurrence, nil
}

// ListByOwner returns the owner's occurrences, newest first. A zero window means all-time.
func (m *Manager) ListByOwner(ctx context.Context, ownerID int64, window time.Duration) ([]models.Occurrence, error) {
	if _, err := m.store.GetTechnician(ctx, ownerID); err != nil {
		return nil, fmt.Errorf("failed to resolve owner: %w", err)
	}

	var since time.Time
	if window > 0 {
		since = m.now().Add(-window)
	}

	start := time.Now()
	occurrences, err := m.store.ListOccurrencesByOwner(ctx, ownerID, since)
	m.observe("list_by_owner", start)
	if err != nil {
		return nil, fmt.Errorf("failed to list occurrences: %w", err)
	}
	return occurrences, nil
}

// ListByContract returns the occurrences with exactly this contract in insertion order.
func (m *Manager) ListByContract(ctx context.Context, contract string) ([]models.Occurrence, error) {
	start := time.Now()
	occurrences, err := m.store.ListOccurrencesByContract(ctx, strings.TrimSpace(contract))
	m.observe("list_by_contract", start)
	if err != nil {
		return nil, fmt.Errorf("failed to list occurrences: %w", err)
	}
	return occurrences, nil
}

// ListPending returns the pending occurrences, oldest first.
func (m *Manager) ListPending(ctx context.Context, actorID int64) ([]models.Occurrence, error) {
	if err := m.gate.Require(ctx, actorID); err != nil {
		return nil, err
	}

	start := time.Now()
	occurrences, err := m.store.ListOccurrencesByStatus(ctx, models.StatusPending)
	m.observe("list_pending", start)
	if err != nil {
		return nil, fmt.Errorf("failed to list occurrences: %w", err)
	}
	return occurrences, nil
}

// SetStatus moves an occurrence to status on behalf of a privileged actor.
func (m *Manager) SetStatus(
	ctx context.Context,
	id string,
	status models.Status,
	actorID int64,
) (models.Occurrence, error) {
	if err := m.gate.Require(ctx, actorID); err != nil {
		return models.Occurrence{}, err
	}

	current, err := m.store.GetOccurrence(ctx, normalizeID(id))
	if err != nil {
		return models.Occurrence{}, fmt.Errorf("failed to get occurrence: %w", err)
	}
	if !current.Status.CanTransitionTo(status) {
		return models.Occurrence{}, fmt.Errorf("%w: %s -> %s", models.ErrIllegalTransition, current.Status, status)
	}

	start := time.Now()
	updated, err := m.store.UpdateOccurrenceStatus(ctx, current.ID, current.Status, status, actorID, m.now())
	m.observe("update_status", start)
	if err != nil {
		if errors.Is(err, models.ErrStatusConflict) {
			// another actor moved it first; pending is the only non-terminal status
			return models.Occurrence{}, fmt.Errorf("%w: changed concurrently", models.ErrIllegalTransition)
		}
		return models.Occurrence{}, fmt.Errorf("failed to update occurrence status: %w", err)
	}

	m.metrics.StatusChanges.WithLabelValues(string(status)).Inc()
	m.invalidateReports(ctx)
	m.log.InfoContext(ctx, "Occurrence status changed", "id", updated.ID, "status", status, "actor", actorID)
	return updated, nil
}

// PurgeOwner removes a technician together with all their occurrences and returns
// how many occurrences were removed.
func (m *Manager) PurgeOwner(ctx context.Context, ownerID, actorID int64) (int, error) {
	if err := m.gate.Require(ctx, actorID); err != nil {
		return 0, err
	}
	if err := m.gate.CheckProtected(ownerID); err != nil {
		return 0, err
	}

	start := time.Now()
	removed, err := m.store.PurgeTechnician(ctx, ownerID)
	m.observe("purge_technician", start)
	if err != nil {
		return 0, fmt.Errorf("failed to purge technician: %w", err)
	}

	m.invalidateReports(ctx)
	m.log.InfoContext(ctx, "Technician purged", "user", ownerID, "occurrences", removed, "actor", actorID)
	return removed, nil
}

func (m *Manager) observe(queryType string, start time.Time) {
	m.metrics.DBQueryDuration.WithLabelValues(queryType).Observe(time.Since(start).Seconds())
}

func (m *Manager) invalidateReports(ctx context.Context) {
	if m.reports != nil {
		m.reports.Invalidate(ctx, i18n.Languages()...)
	}
}

func normalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
