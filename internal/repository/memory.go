package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/models"
)

// Memory is an in-process Store. Reads share a read lock; every write, including the
// multi-record purge, runs under the write lock so it is observed atomically.
type Memory struct {
	mu          sync.RWMutex
	technicians map[int64]models.Technician
	logins      map[string]int64
	occurrences map[string]models.Occurrence
	order       []string // occurrence ids in insertion order
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		technicians: make(map[int64]models.Technician),
		logins:      make(map[string]int64),
		occurrences: make(map[string]models.Occurrence),
	}
}

// Ping always succeeds.
func (m *Memory) Ping(_ context.Context) error {
	return nil
}

func (m *Memory) GetTechnician(_ context.Context, externalID int64) (models.Technician, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	technician, ok := m.technicians[externalID]
	if !ok {
		return models.Technician{}, models.ErrNotRegistered
	}
	return technician, nil
}

func (m *Memory) CreateTechnician(_ context.Context, technician models.Technician) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.technicians[technician.ExternalID]; ok {
		return models.ErrTechnicianExists
	}
	if _, ok := m.logins[technician.Login]; ok {
		return models.ErrDuplicateLogin
	}

	m.technicians[technician.ExternalID] = technician
	m.logins[technician.Login] = technician.ExternalID
	return nil
}

func (m *Memory) LoginTaken(_ context.Context, login string, externalID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	owner, ok := m.logins[login]
	return ok && owner != externalID, nil
}

func (m *Memory) SetPrivileged(_ context.Context, externalID int64, privileged bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	technician, ok := m.technicians[externalID]
	if !ok {
		return models.ErrNotRegistered
	}
	technician.IsPrivileged = privileged
	m.technicians[externalID] = technician
	return nil
}

func (m *Memory) DeleteTechnician(_ context.Context, externalID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.deleteTechnicianLocked(externalID) {
		return models.ErrNotRegistered
	}
	return nil
}

func (m *Memory) PurgeTechnician(_ context.Context, externalID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	kept := m.order[:0]
	for _, id := range m.order {
		if m.occurrences[id].OwnerID == externalID {
			delete(m.occurrences, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept

	if !m.deleteTechnicianLocked(externalID) && removed == 0 {
		return 0, models.ErrNotRegistered
	}
	return removed, nil
}

func (m *Memory) deleteTechnicianLocked(externalID int64) bool {
	technician, ok := m.technicians[externalID]
	if !ok {
		return false
	}
	delete(m.logins, technician.Login)
	delete(m.technicians, externalID)
	return true
}

func (m *Memory) InsertOccurrence(_ context.Context, occurrence models.Occurrence) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.occurrences[occurrence.ID]; ok {
		return models.ErrOccurrenceIDExists
	}
	m.occurrences[occurrence.ID] = occurrence
	m.order = append(m.order, occurrence.ID)
	return nil
}

func (m *Memory) GetOccurrence(_ context.Context, id string) (models.Occurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	occurrence, ok := m.occurrences[id]
	if !ok {
		return models.Occurrence{}, models.ErrNotFound
	}
	return occurrence, nil
}

func (m *Memory) ListOccurrencesByOwner(
	_ context.Context, ownerID int64, since time.Time,
) ([]models.Occurrence, error) {
	occurrences := m.filter(func(o models.Occurrence) bool {
		return o.OwnerID == ownerID && !o.CreatedAt.Before(since)
	})

	// reverse first so equal timestamps keep newest-inserted first after the stable sort
	for i, j := 0, len(occurrences)-1; i < j; i, j = i+1, j-1 {
		occurrences[i], occurrences[j] = occurrences[j], occurrences[i]
	}
	sort.SliceStable(occurrences, func(i, j int) bool {
		return occurrences[i].CreatedAt.After(occurrences[j].CreatedAt)
	})
	return occurrences, nil
}

func (m *Memory) ListOccurrencesByContract(_ context.Context, contract string) ([]models.Occurrence, error) {
	return m.filter(func(o models.Occurrence) bool { return o.Contract == contract }), nil
}

func (m *Memory) ListOccurrencesByStatus(_ context.Context, status models.Status) ([]models.Occurrence, error) {
	occurrences := m.filter(func(o models.Occurrence) bool { return o.Status == status })
	sort.SliceStable(occurrences, func(i, j int) bool {
		return occurrences[i].CreatedAt.Before(occurrences[j].CreatedAt)
	})
	return occurrences, nil
}

func (m *Memory) ListOccurrences(_ context.Context) ([]models.Occurrence, error) {
	return m.filter(func(models.Occurrence) bool { return true }), nil
}

func (m *Memory) UpdateOccurrenceStatus(
	_ context.Context,
	id string,
	from, to models.Status,
	actorID int64,
	at time.Time,
) (models.Occurrence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	occurrence, ok := m.occurrences[id]
	if !ok {
		return models.Occurrence{}, models.ErrNotFound
	}
	if occurrence.Status != from {
		return models.Occurrence{}, models.ErrStatusConflict
	}

	occurrence.Status = to
	occurrence.UpdatedAt = at
	occurrence.UpdatedBy = actorID
	m.occurrences[id] = occurrence
	return occurrence, nil
}

func (m *Memory) filter(keep func(models.Occurrence) bool) []models.Occurrence {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var occurrences []models.Occurrence
	for _, id := range m.order {
		if occurrence := m.occurrences[id]; keep(occurrence) {
			occurrences = append(occurrences, occurrence)
		}
	}
	return occurrences
}
