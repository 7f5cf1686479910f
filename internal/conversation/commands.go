package conversation

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/intent"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/models"
)

type command struct {
	run  func(ctx context.Context, userID int64, args string) Response
	slow bool // uses the report deadline
}

func (c command) timeout(cfg Config) time.Duration {
	if c.slow {
		return cfg.ReportTimeout
	}
	return cfg.OperationTimeout
}

// commandTable is the one list of slash commands. Commands are case-sensitive.
func (r *Router) commandTable() map[string]command {
	return map[string]command{
		"/start": {run: func(ctx context.Context, userID int64, _ string) Response {
			return r.greet(ctx, userID)
		}},
		"/help": {run: func(ctx context.Context, userID int64, _ string) Response {
			return r.help(ctx, userID)
		}},
		"/login": {run: func(ctx context.Context, userID int64, args string) Response {
			return r.login(ctx, userID, firstField(args))
		}},
		"/logout": {run: func(ctx context.Context, userID int64, _ string) Response {
			return r.logout(ctx, userID)
		}},
		"/cancelar": {run: func(context.Context, int64, string) Response {
			return r.text("cancel.nothing")
		}},
		"/ocorrencia": {run: func(ctx context.Context, userID int64, args string) Response {
			contract, notes := splitFirst(args)
			return r.openOccurrence(ctx, userID, models.CategoryNone, contract,
				details{notes: notes, urgency: urgency(intent.IsUrgent(notes))})
		}},
		"/historico": {run: func(ctx context.Context, userID int64, args string) Response {
			return r.history(ctx, userID, firstField(args))
		}},
		"/status": {run: func(ctx context.Context, userID int64, args string) Response {
			return r.statusByContract(ctx, userID, firstField(args))
		}},
		"/master": {run: func(ctx context.Context, userID int64, _ string) Response {
			return r.listPending(ctx, userID)
		}},
		"/gerenciar": {run: r.manage},
		"/forcelogin": {run: r.forceLogin},
		"/removeuser": {run: func(ctx context.Context, userID int64, args string) Response {
			return r.withTarget("/removeuser", args, func(target int64) Response {
				return r.removeUser(ctx, userID, target)
			})
		}},
		"/promover": {run: func(ctx context.Context, userID int64, args string) Response {
			return r.withTarget("/promover", args, func(target int64) Response {
				return r.promote(ctx, userID, target)
			})
		}},
		"/rebaixar": {run: func(ctx context.Context, userID int64, args string) Response {
			return r.withTarget("/rebaixar", args, func(target int64) Response {
				return r.demote(ctx, userID, target)
			})
		}},
		"/relatorio": {slow: true, run: func(ctx context.Context, userID int64, _ string) Response {
			return r.report(ctx, userID)
		}},
	}
}

// manage handles "/gerenciar <id> [status]".
func (r *Router) manage(ctx context.Context, userID int64, args string) Response {
	fields := strings.Fields(args)
	switch len(fields) {
	case 0:
		return r.text("manage.usage")
	case 1:
		return r.statusChoices(ctx, userID, fields[0])
	}

	status, ok := parseStatusWord(fields[1])
	if !ok {
		return r.textWith("manage.bad_status", map[string]any{"status": fields[1]})
	}
	return r.setStatus(ctx, userID, fields[0], status)
}

// forceLogin handles "/forcelogin [identity]".
func (r *Router) forceLogin(ctx context.Context, userID int64, args string) Response {
	if strings.TrimSpace(args) == "" {
		return r.resetSelf(ctx, userID)
	}
	return r.withTarget("/forcelogin", args, func(target int64) Response {
		if target == userID {
			return r.resetSelf(ctx, userID)
		}
		return r.resetTarget(ctx, userID, target)
	})
}

func (r *Router) withTarget(name, args string, fn func(target int64) Response) Response {
	value := firstField(args)
	if value == "" {
		return r.textWith("admin.usage", map[string]any{"command": name})
	}
	target, err := strconv.ParseInt(value, 10, 64)
	if err != nil || target <= 0 {
		return r.textWith("admin.bad_identity", map[string]any{"value": value})
	}
	return fn(target)
}

// parseStatusWord accepts the Portuguese and English status names used by administrators.
func parseStatusWord(word string) (models.Status, bool) {
	switch intent.Fold(word) {
	case "resolvido", "atuado", "resolved":
		return models.StatusResolved, true
	case "devolutiva", "descartado", "dismissed":
		return models.StatusDismissed, true
	case "pendente", "pending":
		return models.StatusPending, true
	}
	return "", false
}

func firstField(args string) string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// splitFirst splits args into the first field and the trimmed rest of the line.
func splitFirst(args string) (string, string) {
	first := firstField(args)
	if first == "" {
		return "", ""
	}
	rest := strings.TrimPrefix(strings.TrimSpace(args), first)
	return first, strings.TrimSpace(rest)
}

func urgency(urgent bool) string {
	if urgent {
		return models.UrgencyUrgent
	}
	return ""
}
