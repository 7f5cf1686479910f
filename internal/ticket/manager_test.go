package ticket_test

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/access"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/i18n"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/metrics"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/models"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/report"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/repository"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/ticket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const (
	master     = int64(1)
	technician = int64(100)
	other      = int64(200)
)

var baseTime = time.Date(2025, 7, 18, 12, 0, 0, 0, time.UTC)

type fixture struct {
	manager *ticket.Manager
	store   *repository.Memory
	metrics *metrics.Metrics
	now     time.Time
}

func newFixture(t *testing.T, opts ...ticket.Option) *fixture {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	store := repository.NewMemory()
	require.NoError(t, store.CreateTechnician(t.Context(),
		models.Technician{ExternalID: technician, Login: "A1", Name: "JOÃO SILVA"}))
	require.NoError(t, store.CreateTechnician(t.Context(), models.Technician{ExternalID: other, Login: "B2"}))

	localizer, err := i18n.NewLocalizer()
	require.NoError(t, err)

	f := &fixture{store: store, metrics: metrics.NewMetrics(prometheus.NewRegistry()), now: baseTime}
	opts = append([]ticket.Option{ticket.WithClock(func() time.Time { return f.now })}, opts...)
	f.manager = ticket.NewManager(log, store, access.NewGate(log, store, master), f.metrics, localizer, opts...)
	return f
}

func (f *fixture) create(t *testing.T, owner int64, category models.Category, contract string) models.Occurrence {
	t.Helper()
	occurrence, err := f.manager.Create(t.Context(),
		ticket.NewOccurrence{OwnerID: owner, Category: category, Contract: contract})
	require.NoError(t, err)
	return occurrence
}

func TestNewID(t *testing.T) {
	t.Parallel()
	id := ticket.NewID()

	assert.Regexp(t, `^[0-9A-F]{8}$`, id)
	assert.NotEqual(t, id, ticket.NewID())
}

func TestManager_Create(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := t.Context()

	_, err := f.manager.Create(ctx, ticket.NewOccurrence{OwnerID: 999, Category: models.CategoryEletrica})
	require.ErrorIs(t, err, models.ErrNotRegistered)

	_, err = f.manager.Create(ctx, ticket.NewOccurrence{OwnerID: technician, Category: "hidraulica"})
	require.ErrorIs(t, err, models.ErrInvalidCategory)

	occurrence := f.create(t, technician, models.CategoryEletrica, " 123456 ")
	assert.Regexp(t, `^[0-9A-F]{8}$`, occurrence.ID)
	assert.Equal(t, models.StatusPending, occurrence.Status)
	assert.Equal(t, "123456", occurrence.Contract)
	assert.Equal(t, baseTime, occurrence.CreatedAt)
	assert.Equal(t, int64(0), occurrence.UpdatedBy)

	owned, err := f.manager.ListByOwner(ctx, technician, 0)
	require.NoError(t, err)
	assert.Equal(t, []models.Occurrence{occurrence}, owned)

	byContract, err := f.manager.ListByContract(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, []models.Occurrence{occurrence}, byContract)

	byContract, err = f.manager.ListByContract(ctx, "12345")
	require.NoError(t, err)
	assert.Empty(t, byContract, "contract match is exact")

	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.OccurrencesCreated.WithLabelValues("eletrica")), 0)
}

func TestManager_CreateRetriesOnCollision(t *testing.T) {
	t.Parallel()
	var (
		mu  sync.Mutex
		ids = []string{"AAAA0001", "AAAA0001", "AAAA0001", "AAAA0002"}
	)
	source := func() string {
		mu.Lock()
		defer mu.Unlock()
		id := ids[0]
		if len(ids) > 1 {
			ids = ids[1:]
		}
		return id
	}
	f := newFixture(t, ticket.WithIDSource(source), ticket.WithMaxAttempts(3))

	first := f.create(t, technician, models.CategoryEletrica, "")
	assert.Equal(t, "AAAA0001", first.ID)

	second := f.create(t, technician, models.CategoryEletrica, "")
	assert.Equal(t, "AAAA0002", second.ID, "two collisions then a fresh id")

	_, err := f.manager.Create(t.Context(), ticket.NewOccurrence{OwnerID: technician, Category: models.CategorySeguranca})
	require.ErrorIs(t, err, models.ErrStoreExhausted)
}

func TestManager_ConcurrentCreateKeepsIDsUnique(t *testing.T) {
	t.Parallel()
	var (
		mu   sync.Mutex
		next int
	)
	// ids repeat every 40 calls so concurrent creations collide and retry
	source := func() string {
		mu.Lock()
		defer mu.Unlock()
		next++
		return fmt.Sprintf("%08X", next%40)
	}
	f := newFixture(t, ticket.WithIDSource(source), ticket.WithMaxAttempts(200))

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.manager.Create(context.Background(),
				ticket.NewOccurrence{OwnerID: technician, Category: models.CategoryManutencao})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := f.store.ListOccurrences(t.Context())
	require.NoError(t, err)
	seen := make(map[string]bool)
	for _, occurrence := range all {
		assert.False(t, seen[occurrence.ID], "duplicate id %s", occurrence.ID)
		seen[occurrence.ID] = true
	}
	assert.Len(t, all, 20)
}

func TestManager_ListByOwnerWindow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	old := f.create(t, technician, models.CategoryEletrica, "1111")
	f.now = baseTime.Add(40 * 24 * time.Hour)
	recent := f.create(t, technician, models.CategoryConectividade, "2222")
	f.create(t, other, models.CategoryConectividade, "2222")

	window, err := f.manager.ListByOwner(t.Context(), technician, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []models.Occurrence{recent}, window)

	all, err := f.manager.ListByOwner(t.Context(), technician, 0)
	require.NoError(t, err)
	assert.Equal(t, []models.Occurrence{recent, old}, all)

	_, err = f.manager.ListByOwner(t.Context(), 999, 0)
	require.ErrorIs(t, err, models.ErrNotRegistered)
}

func TestManager_SetStatus(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := t.Context()
	occurrence := f.create(t, technician, models.CategoryEletrica, "123")

	_, err := f.manager.SetStatus(ctx, occurrence.ID, models.StatusResolved, technician)
	require.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = f.manager.SetStatus(ctx, "FFFFFFFF", models.StatusResolved, master)
	require.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.manager.SetStatus(ctx, occurrence.ID, models.StatusPending, master)
	require.ErrorIs(t, err, models.ErrIllegalTransition, "same status is not a transition")

	f.now = baseTime.Add(time.Hour)
	updated, err := f.manager.SetStatus(ctx, occurrence.ID, models.StatusResolved, master)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, updated.Status)
	assert.Equal(t, master, updated.UpdatedBy)
	assert.Equal(t, baseTime.Add(time.Hour), updated.UpdatedAt)

	for _, next := range []models.Status{models.StatusPending, models.StatusDismissed, models.StatusResolved} {
		_, err = f.manager.SetStatus(ctx, occurrence.ID, next, master)
		require.ErrorIs(t, err, models.ErrIllegalTransition, "resolved -> %s", next)
	}

	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.StatusChanges.WithLabelValues("resolved")), 0)
}

func TestManager_SetStatusByStoredPrivilege(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	occurrence := f.create(t, technician, models.CategoryEletrica, "")
	require.NoError(t, f.store.SetPrivileged(t.Context(), other, true))

	updated, err := f.manager.SetStatus(t.Context(), " "+strings.ToLower(occurrence.ID), models.StatusDismissed, other)
	require.NoError(t, err)
	assert.Equal(t, occurrence.ID, updated.ID)
	assert.Equal(t, models.StatusDismissed, updated.Status)
}

func TestManager_ConcurrentSetStatus(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	occurrence := f.create(t, technician, models.CategoryEletrica, "")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded []models.Status
	)
	for _, next := range []models.Status{models.StatusResolved, models.StatusDismissed} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.manager.SetStatus(context.Background(), occurrence.ID, next, master); err == nil {
				mu.Lock()
				succeeded = append(succeeded, next)
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, models.ErrIllegalTransition)
			}
		}()
	}
	wg.Wait()

	require.Len(t, succeeded, 1)
	stored, err := f.store.GetOccurrence(t.Context(), occurrence.ID)
	require.NoError(t, err)
	assert.Equal(t, succeeded[0], stored.Status)
}

func TestManager_PurgeOwner(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := t.Context()
	f.create(t, technician, models.CategoryEletrica, "1")
	f.create(t, technician, models.CategoryEletrica, "2")
	kept := f.create(t, other, models.CategoryEletrica, "1")

	_, err := f.manager.PurgeOwner(ctx, technician, other)
	require.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = f.manager.PurgeOwner(ctx, master, master)
	require.ErrorIs(t, err, models.ErrProtectedIdentity)

	removed, err := f.manager.PurgeOwner(ctx, technician, master)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = f.store.GetTechnician(ctx, technician)
	require.ErrorIs(t, err, models.ErrNotRegistered)

	remaining, err := f.manager.ListByContract(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, []models.Occurrence{kept}, remaining)

	_, err = f.manager.PurgeOwner(ctx, technician, master)
	require.ErrorIs(t, err, models.ErrNotRegistered)
}

type memoryReports struct {
	mu          sync.Mutex
	data        map[string][]byte
	invalidated int
}

func (r *memoryReports) Get(_ context.Context, lang string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.data[lang]
	return data, ok
}

func (r *memoryReports) Set(_ context.Context, lang string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[lang] = data
}

func (r *memoryReports) Invalidate(_ context.Context, langs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, lang := range langs {
		delete(r.data, lang)
	}
	r.invalidated++
}

func TestManager_Report(t *testing.T) {
	t.Parallel()
	reports := &memoryReports{data: make(map[string][]byte)}
	f := newFixture(t, ticket.WithReportCache(reports))
	ctx := t.Context()

	_, err := f.manager.Report(ctx, master, "pt")
	require.ErrorIs(t, err, report.ErrNoOccurrences)

	_, err = f.manager.Report(ctx, technician, "pt")
	require.ErrorIs(t, err, models.ErrUnauthorized)

	first := f.create(t, technician, models.CategoryEletrica, "123456")
	f.create(t, other, models.CategoryNapGpon, "")
	assert.Equal(t, 2, reports.invalidated)

	data, err := f.manager.Report(ctx, master, "pt")
	require.NoError(t, err)

	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer workbook.Close()

	assert.Equal(t, []string{"Elétrica", "NAP-GPON"}, workbook.GetSheetList())
	id, err := workbook.GetCellValue("Elétrica", "A2")
	require.NoError(t, err)
	assert.Equal(t, first.ID, id)
	owner, err := workbook.GetCellValue("Elétrica", "C2")
	require.NoError(t, err)
	assert.Equal(t, "A1 - JOÃO SILVA", owner)
	status, err := workbook.GetCellValue("Elétrica", "E2")
	require.NoError(t, err)
	assert.Equal(t, "Em análise", status)
	contract, err := workbook.GetCellValue("NAP-GPON", "D2")
	require.NoError(t, err)
	assert.Equal(t, "não informado", contract)

	cached, ok := reports.Get(ctx, "pt")
	require.True(t, ok)
	assert.Equal(t, data, cached)

	reports.Set(ctx, "pt", []byte("cached"))
	data, err = f.manager.Report(ctx, master, "pt")
	require.NoError(t, err)
	assert.Equal(t, []byte("cached"), data)
}
