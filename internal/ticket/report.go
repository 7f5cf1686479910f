package ticket

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/models"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/report"
)

// Report returns an xlsx workbook with every occurrence, one sheet per category,
// labelled in lang. It returns report.ErrNoOccurrences when the store is empty.
func (m *Manager) Report(ctx context.Context, actorID int64, lang string) ([]byte, error) {
	if err := m.gate.Require(ctx, actorID); err != nil {
		return nil, err
	}

	if m.reports != nil {
		if cached, ok := m.reports.Get(ctx, lang); ok {
			m.log.InfoContext(ctx, "Report found in cache", "user", actorID, "lang", lang)
			return cached, nil
		}
	}

	m.log.InfoContext(ctx, "Report not found in cache, generating a new one", "user", actorID, "lang", lang)
	startTime := time.Now()

	queryStart := time.Now()
	occurrences, err := m.store.ListOccurrences(ctx)
	m.observe("list_occurrences", queryStart)
	if err != nil {
		return nil, fmt.Errorf("failed to list occurrences: %w", err)
	}

	rows, err := m.reportRows(ctx, occurrences, lang)
	if err != nil {
		return nil, err
	}

	buffer, err := report.GenerateExcelReport(m.reportHeaders(lang), rows)
	m.metrics.ReportGeneration.WithLabelValues(lang).Observe(time.Since(startTime).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to generate report: %w", err)
	}

	data := buffer.Bytes()
	if m.reports != nil {
		m.reports.Set(ctx, lang, data)
	}
	return data, nil
}

func (m *Manager) reportHeaders(lang string) []string {
	keys := []string{"id", "created", "technician", "contract", "status", "updated", "notes"}
	headers := make([]string, 0, len(keys))
	for _, key := range keys {
		headers = append(headers, m.localizer.Get(lang, "report.header."+key))
	}
	return headers
}

func (m *Manager) reportRows(ctx context.Context, occurrences []models.Occurrence, lang string) ([]report.ExcelRow, error) {
	owners := make(map[int64]string)
	rows := make([]report.ExcelRow, 0, len(occurrences))

	for _, occurrence := range occurrences {
		owner, ok := owners[occurrence.OwnerID]
		if !ok {
			technician, err := m.store.GetTechnician(ctx, occurrence.OwnerID)
			switch {
			case err == nil:
				owner = technician.Login + " - " + technician.Name
			case errors.Is(err, models.ErrNotRegistered):
				owner = strconv.FormatInt(occurrence.OwnerID, 10)
			default:
				return nil, fmt.Errorf("failed to resolve owner: %w", err)
			}
			owners[occurrence.OwnerID] = owner
		}

		contract := occurrence.Contract
		if contract == "" {
			contract = m.localizer.Get(lang, "occurrence.no_contract")
		}

		rows = append(rows, report.ExcelRow{
			ID:           occurrence.ID,
			Sheet:        m.localizer.Get(lang, "label.category."+string(occurrence.Category)),
			CreationDate: occurrence.CreatedAt,
			Technician:   owner,
			Contract:     contract,
			Status:       m.localizer.Get(lang, "label.status."+string(occurrence.Status)),
			UpdatedAt:    occurrence.UpdatedAt,
			Notes:        occurrence.Notes,
		})
	}
	return rows, nil
}
