package conversation

import (
	"context"
	"errors"
	"strings"

	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/models"
)

const dateLayout = "02/01/2006 15:04"

// errorKeys maps domain errors to reply keys, checked in order.
var errorKeys = []struct {
	err error
	key string
}{
	{models.ErrNotRegistered, "error.not_registered"},
	{models.ErrNotFound, "error.not_found"},
	{models.ErrIllegalTransition, "error.illegal_transition"},
	{models.ErrUnauthorized, "error.unauthorized"},
	{models.ErrProtectedIdentity, "error.protected"},
	{models.ErrDuplicateLogin, "error.duplicate_login"},
	{models.ErrStoreExhausted, "error.store_exhausted"},
	{models.ErrInvalidCategory, "error.invalid_category"},
}

func (r *Router) text(key string) Response {
	return Response{Text: r.localizer.Get(r.cfg.Language, key)}
}

func (r *Router) textWith(key string, data map[string]any) Response {
	return Response{Text: r.localizer.GetWithData(r.cfg.Language, key, data)}
}

// fail renders err for the user. Unknown errors are logged and reported as internal.
func (r *Router) fail(ctx context.Context, userID int64, err error) Response {
	for _, known := range errorKeys {
		if errors.Is(err, known.err) {
			r.log.InfoContext(ctx, "Operation rejected", "user", userID, "reason", err)
			return r.text(known.key)
		}
	}

	r.log.ErrorContext(ctx, "Operation failed", "user", userID, "error", err)
	return r.text("error.internal")
}

// failTarget is fail for operations on another technician, where a missing record is the target's.
func (r *Router) failTarget(ctx context.Context, userID int64, err error) Response {
	if errors.Is(err, models.ErrNotRegistered) {
		return r.text("error.target_not_registered")
	}
	return r.fail(ctx, userID, err)
}

func (r *Router) categoryLabel(category models.Category) string {
	return r.localizer.Get(r.cfg.Language, "label.category."+string(category))
}

func (r *Router) statusLabel(status models.Status) string {
	return r.localizer.Get(r.cfg.Language, "label.status."+string(status))
}

func (r *Router) contractLabel(contract string) string {
	if contract == "" {
		return r.localizer.Get(r.cfg.Language, "occurrence.no_contract")
	}
	return contract
}

// occurrenceList renders header and at most limit occurrences, one per line.
func (r *Router) occurrenceList(header string, occurrences []models.Occurrence, limit int) string {
	var builder strings.Builder
	builder.WriteString(header)

	for i, occurrence := range occurrences {
		if i == limit {
			builder.WriteString("\n")
			builder.WriteString(r.localizer.GetWithData(r.cfg.Language, "history.truncated",
				map[string]any{"count": len(occurrences) - limit}))
			break
		}
		builder.WriteString("\n")
		builder.WriteString(r.localizer.GetWithData(r.cfg.Language, "occurrence.line", map[string]any{
			"id":       occurrence.ID,
			"category": r.categoryLabel(occurrence.Category),
			"contract": r.contractLabel(occurrence.Contract),
			"status":   r.statusLabel(occurrence.Status),
			"date":     occurrence.CreatedAt.Format(dateLayout),
		}))
	}
	return builder.String()
}
