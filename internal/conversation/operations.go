package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/models"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/registration"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/report"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/ticket"
)

const (
	pendingLimit = 50
	xlsxMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (r *Router) greet(ctx context.Context, userID int64) Response {
	technician, err := r.store.GetTechnician(ctx, userID)
	switch {
	case err == nil:
		return r.textWith("welcome.registered", map[string]any{"name": technician.Name})
	case errors.Is(err, models.ErrNotRegistered):
		return r.text("welcome.unregistered")
	default:
		return r.fail(ctx, userID, err)
	}
}

func (r *Router) help(ctx context.Context, userID int64) Response {
	text := r.localizer.Get(r.cfg.Language, "help.text")

	privileged, err := r.gate.IsPrivileged(ctx, userID)
	if err != nil {
		r.log.WarnContext(ctx, "Failed to check privileges for help", "user", userID, "error", err)
	}
	if privileged {
		text += "\n\n" + r.localizer.Get(r.cfg.Language, "help.privileged")
	}
	return Response{Text: text}
}

func (r *Router) login(ctx context.Context, userID int64, code string) Response {
	step, err := r.machine.Begin(ctx, userID, code)
	if err != nil {
		if step.Session.Stage != "" {
			return r.sessionPrompt(step.Session, "error.internal")
		}
		return r.fail(ctx, userID, err)
	}
	return r.registrationResponse(step)
}

func (r *Router) continueRegistration(ctx context.Context, userID int64, input string) Response {
	step, err := r.machine.Handle(ctx, userID, input)
	if err != nil {
		if errors.Is(err, registration.ErrNoSession) {
			return r.text("registration.expired")
		}
		r.log.ErrorContext(ctx, "Registration step failed", "user", userID, "error", err)
		return r.sessionPrompt(step.Session, "error.internal")
	}
	return r.registrationResponse(step)
}

func (r *Router) registrationResponse(step registration.Step) Response {
	switch step.Outcome {
	case registration.OutcomeAlreadyRegistered:
		return r.text("login.already_registered")
	case registration.OutcomeCommitted:
		r.metrics.NewTechnicians.Inc()
		return r.textWith("registration.committed", map[string]any{"name": step.Technician.Name})
	case registration.OutcomeCancelled:
		return r.text("registration.cancelled")
	case registration.OutcomeLoginTaken:
		return r.sessionPrompt(step.Session, "registration.login_taken")
	case registration.OutcomeReprompt:
		return r.sessionPrompt(step.Session, "registration.reprompt")
	case registration.OutcomeAdvanced, registration.OutcomeConfirm:
	}
	return r.sessionPrompt(step.Session, "")
}

// sessionPrompt renders the question of the session's stage, preceded by the notice key if set.
func (r *Router) sessionPrompt(session registration.Session, notice string) Response {
	var response Response
	switch session.Stage {
	case registration.AwaitingLogin:
		response = r.text("registration.ask_login")
	case registration.AwaitingName:
		response = r.text("registration.ask_name")
	case registration.AwaitingArea:
		response = r.text("registration.ask_area")
	case registration.AwaitingPhone:
		response = r.text("registration.ask_phone")
	case registration.AwaitingConfirmation:
		response = r.textWith("registration.confirm", map[string]any{
			"login": session.Pending.Login,
			"name":  session.Pending.Name,
			"area":  session.Pending.Area,
			"phone": session.Pending.Phone,
		})
		response.Choices = []Choice{
			{Label: r.localizer.Get(r.cfg.Language, "button.confirm"), Token: registration.ConfirmToken},
			{Label: r.localizer.Get(r.cfg.Language, "button.cancel"), Token: registration.CancelToken},
		}
	case registration.Committed, registration.Cancelled:
	}

	if notice != "" {
		prefix := r.localizer.Get(r.cfg.Language, notice)
		if response.Text == "" {
			response.Text = prefix
		} else {
			response.Text = prefix + "\n\n" + response.Text
		}
	}
	return response
}

func (r *Router) logout(ctx context.Context, userID int64) Response {
	if err := r.gate.CheckProtected(userID); err != nil {
		return r.fail(ctx, userID, err)
	}
	if err := r.store.DeleteTechnician(ctx, userID); err != nil {
		return r.fail(ctx, userID, err)
	}

	r.log.InfoContext(ctx, "User logged out", "user", userID)
	return r.text("logout.done")
}

// openOccurrence creates an occurrence when the category is known. Otherwise it keeps the
// details as the user's draft and offers the categories as choices.
func (r *Router) openOccurrence(
	ctx context.Context, userID int64, category models.Category, contract string, extra details,
) Response {
	if !models.ValidContract(contract) {
		return r.invalidContract()
	}
	if category == models.CategoryNone {
		r.drafts.put(userID, contract, extra)
		return r.categoryChoices(contract)
	}

	occurrence, err := r.tickets.Create(ctx, ticket.NewOccurrence{
		OwnerID:  userID,
		Category: category,
		Contract: contract,
		Notes:    extra.notes,
		Urgency:  extra.urgency,
	})
	if err != nil {
		return r.fail(ctx, userID, err)
	}

	response := r.textWith("occurrence.created", map[string]any{
		"id":       occurrence.ID,
		"category": r.categoryLabel(occurrence.Category),
		"contract": r.contractLabel(occurrence.Contract),
		"status":   r.statusLabel(occurrence.Status),
	})
	if occurrence.Urgency == models.UrgencyUrgent {
		response.Text += "\n" + r.localizer.Get(r.cfg.Language, "occurrence.urgent")
	}
	return response
}

func (r *Router) invalidContract() Response {
	return r.textWith("contract.invalid", map[string]any{"max": models.MaxContractLength})
}

func (r *Router) categoryChoices(contract string) Response {
	response := r.text("occurrence.choose_category")
	if contract != "" {
		response = r.textWith("occurrence.choose_category_contract", map[string]any{"contract": contract})
	}

	for _, category := range models.Categories() {
		token := categoryTokenPrefix + string(category)
		if contract != "" {
			token += ":" + contract
		}
		response.Choices = append(response.Choices, Choice{Label: r.categoryLabel(category), Token: token})
	}
	return response
}

func (r *Router) history(ctx context.Context, userID int64, contract string) Response {
	if !models.ValidContract(contract) {
		return r.invalidContract()
	}

	window := r.cfg.HistoryWindow
	occurrences, err := r.tickets.ListByOwner(ctx, userID, window)
	if err != nil {
		return r.fail(ctx, userID, err)
	}

	if contract != "" {
		filtered := occurrences[:0:0]
		for _, occurrence := range occurrences {
			if occurrence.Contract == contract {
				filtered = append(filtered, occurrence)
			}
		}
		occurrences = filtered
	}

	if len(occurrences) == 0 {
		return r.text("history.empty")
	}

	header := r.localizer.Get(r.cfg.Language, "history.header_all")
	if window > 0 {
		header = r.localizer.GetWithData(r.cfg.Language, "history.header",
			map[string]any{"days": windowDays(window)})
	}
	return Response{Text: r.occurrenceList(header, occurrences, r.cfg.HistoryLimit)}
}

func (r *Router) statusByContract(ctx context.Context, userID int64, contract string) Response {
	if contract == "" {
		return r.text("status.usage")
	}
	if !models.ValidContract(contract) {
		return r.invalidContract()
	}
	if _, err := r.store.GetTechnician(ctx, userID); err != nil {
		return r.fail(ctx, userID, err)
	}

	occurrences, err := r.tickets.ListByContract(ctx, contract)
	if err != nil {
		return r.fail(ctx, userID, err)
	}
	if len(occurrences) == 0 {
		return r.textWith("status.empty", map[string]any{"contract": contract})
	}

	header := r.localizer.GetWithData(r.cfg.Language, "status.header", map[string]any{"contract": contract})
	return Response{Text: r.occurrenceList(header, occurrences, r.cfg.HistoryLimit)}
}

// windowDays renders a history window in whole days, rounding partial days up.
func windowDays(window time.Duration) int {
	const day = 24 * time.Hour
	return int((window + day - 1) / day)
}

func (r *Router) listPending(ctx context.Context, userID int64) Response {
	occurrences, err := r.tickets.ListPending(ctx, userID)
	if err != nil {
		return r.fail(ctx, userID, err)
	}
	if len(occurrences) == 0 {
		return r.text("master.empty")
	}

	header := r.localizer.GetWithData(r.cfg.Language, "master.header", map[string]any{"count": len(occurrences)})
	text := r.occurrenceList(header, occurrences, pendingLimit)
	return Response{Text: text + "\n\n" + r.localizer.Get(r.cfg.Language, "master.hint")}
}

// statusChoices offers the legal target statuses of one occurrence.
func (r *Router) statusChoices(ctx context.Context, userID int64, id string) Response {
	occurrence, err := r.tickets.Get(ctx, id, userID)
	if err != nil {
		return r.fail(ctx, userID, err)
	}
	if occurrence.Status.IsTerminal() {
		return r.fail(ctx, userID, fmt.Errorf("%w: %s is terminal", models.ErrIllegalTransition, occurrence.Status))
	}

	response := r.textWith("manage.choose", map[string]any{
		"id":       occurrence.ID,
		"category": r.categoryLabel(occurrence.Category),
		"contract": r.contractLabel(occurrence.Contract),
		"status":   r.statusLabel(occurrence.Status),
	})
	for _, next := range []models.Status{models.StatusResolved, models.StatusDismissed} {
		response.Choices = append(response.Choices, Choice{
			Label: r.statusLabel(next),
			Token: statusTokenPrefix + occurrence.ID + ":" + string(next),
		})
	}
	return response
}

func (r *Router) setStatus(ctx context.Context, userID int64, id string, status models.Status) Response {
	occurrence, err := r.tickets.SetStatus(ctx, id, status, userID)
	if err != nil {
		return r.fail(ctx, userID, err)
	}
	return r.textWith("manage.done", map[string]any{"id": occurrence.ID, "status": r.statusLabel(occurrence.Status)})
}

// resetSelf drops the caller's technician record and starts a new registration.
func (r *Router) resetSelf(ctx context.Context, userID int64) Response {
	if err := r.gate.CheckProtected(userID); err != nil {
		return r.fail(ctx, userID, err)
	}
	if err := r.store.DeleteTechnician(ctx, userID); err != nil && !errors.Is(err, models.ErrNotRegistered) {
		return r.fail(ctx, userID, err)
	}

	r.log.InfoContext(ctx, "Registration reset", "user", userID)
	return r.login(ctx, userID, "")
}

func (r *Router) resetTarget(ctx context.Context, userID, target int64) Response {
	if err := r.gate.Require(ctx, userID); err != nil {
		return r.fail(ctx, userID, err)
	}
	if err := r.gate.CheckProtected(target); err != nil {
		return r.fail(ctx, userID, err)
	}
	if err := r.store.DeleteTechnician(ctx, target); err != nil {
		return r.failTarget(ctx, userID, err)
	}
	r.machine.Abort(target)

	r.log.InfoContext(ctx, "Registration reset by administrator", "user", target, "actor", userID)
	return r.textWith("forcelogin.target_done", map[string]any{"id": target})
}

func (r *Router) removeUser(ctx context.Context, userID, target int64) Response {
	removed, err := r.tickets.PurgeOwner(ctx, target, userID)
	if err != nil {
		return r.failTarget(ctx, userID, err)
	}
	r.machine.Abort(target)
	return r.textWith("removeuser.done", map[string]any{"id": target, "count": removed})
}

func (r *Router) promote(ctx context.Context, userID, target int64) Response {
	if err := r.gate.Grant(ctx, userID, target); err != nil {
		return r.failTarget(ctx, userID, err)
	}
	return r.textWith("promote.done", map[string]any{"id": target})
}

func (r *Router) demote(ctx context.Context, userID, target int64) Response {
	if err := r.gate.Revoke(ctx, userID, target); err != nil {
		return r.failTarget(ctx, userID, err)
	}
	return r.textWith("demote.done", map[string]any{"id": target})
}

func (r *Router) report(ctx context.Context, userID int64) Response {
	data, err := r.tickets.Report(ctx, userID, r.cfg.Language)
	if err != nil {
		if errors.Is(err, report.ErrNoOccurrences) {
			return r.text("report.empty")
		}
		return r.fail(ctx, userID, err)
	}

	response := r.text("report.ready")
	response.Document = &Document{
		FileName: fmt.Sprintf("ocorrencias_%s.xlsx", time.Now().Format("2006-01-02")),
		MIME:     xlsxMIME,
		Data:     data,
	}
	return response
}
