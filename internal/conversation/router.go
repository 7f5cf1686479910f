// Package conversation routes chat messages and choice callbacks to registration,
// occurrence and administration operations and renders their replies.
package conversation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/access"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/i18n"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/intent"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/metrics"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/models"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/registration"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/repository"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/ticket"
)

// Defaults applied by NewRouter to zero Config fields.
const (
	DefaultHistoryWindow    = 30 * 24 * time.Hour
	DefaultHistoryLimit     = 10
	DefaultOperationTimeout = 3 * time.Second
	DefaultReportTimeout    = 30 * time.Second
)

// Choice token prefixes.
const (
	categoryTokenPrefix = "cat:"
	statusTokenPrefix   = "st:"
	registrationPrefix  = "reg:"
)

// Config tunes the Router.
type Config struct {
	Language         string        // reply language, i18n.DefaultLanguage when empty
	HistoryWindow    time.Duration // trailing window of /historico, negative for all-time
	HistoryLimit     int           // maximum entries listed by /historico and /status
	OperationTimeout time.Duration // store deadline for chat operations
	ReportTimeout    time.Duration // deadline for /relatorio
	Clock            func() time.Time
}

// Router is the single entry point for inbound chat events.
type Router struct {
	log       *slog.Logger
	machine   *registration.Machine
	tickets   *ticket.Manager
	gate      *access.Gate
	store     repository.TechnicianStore
	localizer *i18n.Localizer
	metrics   *metrics.Metrics
	cfg       Config
	locks     *keyedMutex
	drafts    *draftStore
	commands  map[string]command
}

// NewRouter wires a Router.
func NewRouter(
	log *slog.Logger,
	machine *registration.Machine,
	tickets *ticket.Manager,
	gate *access.Gate,
	store repository.TechnicianStore,
	localizer *i18n.Localizer,
	metrics *metrics.Metrics,
	cfg Config,
) *Router {
	if cfg.Language == "" {
		cfg.Language = i18n.DefaultLanguage
	}
	if cfg.HistoryWindow < 0 {
		cfg.HistoryWindow = 0
	} else if cfg.HistoryWindow == 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = DefaultOperationTimeout
	}
	if cfg.ReportTimeout <= 0 {
		cfg.ReportTimeout = DefaultReportTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	router := &Router{
		log:       log,
		machine:   machine,
		tickets:   tickets,
		gate:      gate,
		store:     store,
		localizer: localizer,
		metrics:   metrics,
		cfg:       cfg,
		locks:     newKeyedMutex(),
		drafts:    newDraftStore(cfg.Clock),
	}
	router.commands = router.commandTable()
	return router
}

// HandleMessage processes one text message. Messages of the same sender never run
// concurrently. Every outcome, errors included, is rendered into the Response.
func (r *Router) HandleMessage(ctx context.Context, msg Message) Response {
	unlock := r.locks.lock(msg.ExternalID)
	defer unlock()

	log := r.log.With(slog.String("op", "Router.HandleMessage"), slog.Int64("user", msg.ExternalID))
	text := strings.TrimSpace(msg.Text)

	if r.machine.Active(msg.ExternalID) {
		r.metrics.CommandReceived.WithLabelValues("registration").Inc()
		log.DebugContext(ctx, "Message forwarded to registration")
		return r.withTimeout(ctx, r.cfg.OperationTimeout, func(ctx context.Context) Response {
			return r.continueRegistration(ctx, msg.ExternalID, text)
		})
	}

	if name, args, ok := parseCommand(text); ok {
		if cmd, known := r.commands[name]; known {
			r.metrics.CommandReceived.WithLabelValues(name).Inc()
			log.InfoContext(ctx, "Command received", "command", name, "username", msg.Username)
			return r.withTimeout(ctx, cmd.timeout(r.cfg), func(ctx context.Context) Response {
				return cmd.run(ctx, msg.ExternalID, args)
			})
		}
	}

	result := intent.Classify(text)
	r.metrics.CommandReceived.WithLabelValues("intent:" + string(result.Intent)).Inc()
	log.DebugContext(ctx, "Message classified", "intent", result.Intent, "category", result.Category)
	return r.withTimeout(ctx, r.cfg.OperationTimeout, func(ctx context.Context) Response {
		return r.dispatchIntent(ctx, msg.ExternalID, text, result)
	})
}

// HandleChoice processes a selected choice with the same precedence as HandleMessage.
func (r *Router) HandleChoice(ctx context.Context, cb Callback) Response {
	unlock := r.locks.lock(cb.ExternalID)
	defer unlock()

	token := strings.TrimSpace(cb.Token)
	return r.withTimeout(ctx, r.cfg.OperationTimeout, func(ctx context.Context) Response {
		if session, ok := r.machine.Session(cb.ExternalID); ok {
			r.metrics.CommandReceived.WithLabelValues("registration").Inc()
			if token == registration.ConfirmToken || token == registration.CancelToken {
				return r.continueRegistration(ctx, cb.ExternalID, token)
			}
			return r.sessionPrompt(session, "registration.reprompt")
		}

		switch {
		case strings.HasPrefix(token, categoryTokenPrefix):
			r.metrics.CommandReceived.WithLabelValues("choice:category").Inc()
			category, contract, _ := strings.Cut(strings.TrimPrefix(token, categoryTokenPrefix), ":")
			return r.openOccurrence(ctx, cb.ExternalID, models.Category(category), contract,
				r.drafts.take(cb.ExternalID, contract))
		case strings.HasPrefix(token, statusTokenPrefix):
			r.metrics.CommandReceived.WithLabelValues("choice:status").Inc()
			id, status, _ := strings.Cut(strings.TrimPrefix(token, statusTokenPrefix), ":")
			if !models.Status(status).Valid() {
				return r.text("choice.unknown")
			}
			return r.setStatus(ctx, cb.ExternalID, id, models.Status(status))
		case strings.HasPrefix(token, registrationPrefix):
			return r.text("registration.expired")
		default:
			r.log.WarnContext(ctx, "Unknown choice token", "user", cb.ExternalID, "token", token)
			return r.text("choice.unknown")
		}
	})
}

// dispatchIntent maps a classified message to the operation its command would run.
// A new occurrence keeps the whole message as its notes.
func (r *Router) dispatchIntent(ctx context.Context, userID int64, text string, result intent.Result) Response {
	switch result.Intent {
	case intent.NewOccurrence:
		return r.openOccurrence(ctx, userID, result.Category, result.Contract,
			details{notes: text, urgency: urgency(result.Urgent)})
	case intent.QueryHistory:
		return r.history(ctx, userID, result.Contract)
	case intent.QueryStatus:
		return r.statusByContract(ctx, userID, result.Contract)
	case intent.Greeting:
		return r.greet(ctx, userID)
	case intent.Help:
		return r.help(ctx, userID)
	case intent.General:
	}
	return r.text("general.fallback")
}

func (r *Router) withTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) Response) Response {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

// parseCommand splits "/cmd@bot args" into "/cmd" and "args".
func parseCommand(text string) (string, string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}

	head, args, _ := strings.Cut(text, " ")
	if i := strings.IndexByte(head, '\n'); i >= 0 {
		args = head[i+1:] + " " + args
		head = head[:i]
	}
	name, _, _ := strings.Cut(head, "@")
	return name, strings.TrimSpace(args), true
}
