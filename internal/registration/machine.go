// Package registration drives the multi-step dialogue that registers a technician.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/models"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/repository"
)

// ErrNoSession is returned by Handle when the user has no live session.
var ErrNoSession = errors.New("no active registration session")

// Stage is a registration dialogue state.
type Stage string

const (
	AwaitingLogin        Stage = "awaiting_login"
	AwaitingName         Stage = "awaiting_name"
	AwaitingArea         Stage = "awaiting_area"
	AwaitingPhone        Stage = "awaiting_phone"
	AwaitingConfirmation Stage = "awaiting_confirmation"
	Committed            Stage = "committed"
	Cancelled            Stage = "cancelled"
)

// Outcome tells the caller what a step did.
type Outcome int

const (
	// OutcomeReprompt means the input was not accepted and the stage is unchanged.
	OutcomeReprompt Outcome = iota
	// OutcomeAdvanced means the input was stored and the session moved to its next stage.
	OutcomeAdvanced
	// OutcomeConfirm means the user confirmed and the pending technician should be committed.
	OutcomeConfirm
	// OutcomeLoginTaken means the login belongs to another technician; the session waits for a new one.
	OutcomeLoginTaken
	OutcomeCommitted
	OutcomeCancelled
	OutcomeAlreadyRegistered
)

// Input values with a fixed meaning inside a session.
const (
	CancelCommand = "/cancelar"
	ConfirmToken  = "reg:confirm"
	CancelToken   = "reg:cancel"
)

var (
	confirmWords = []string{"CONFIRMAR", "SIM"}
	cancelWords  = []string{"CANCELAR", "NAO", "NÃO"}
)

// Advance applies one input to the session. It is pure: persistence and login
// uniqueness checks are left to the caller.
func Advance(session Session, input string) (Session, Outcome) {
	text := strings.TrimSpace(input)

	if text == CancelCommand || text == CancelToken {
		session.Stage = Cancelled
		return session, OutcomeCancelled
	}
	if text == "" || strings.HasPrefix(text, "/") {
		return session, OutcomeReprompt
	}
	if text == ConfirmToken && session.Stage != AwaitingConfirmation {
		return session, OutcomeReprompt
	}

	switch session.Stage {
	case AwaitingLogin:
		session.Pending.Login = strings.ToUpper(text)
		session.Stage = AwaitingName
		if session.Rewound {
			session.Stage = AwaitingConfirmation
			session.Rewound = false
		}
	case AwaitingName:
		session.Pending.Name = strings.ToUpper(text)
		session.Stage = AwaitingArea
	case AwaitingArea:
		session.Pending.Area = strings.ToUpper(text)
		session.Stage = AwaitingPhone
	case AwaitingPhone:
		session.Pending.Phone = text
		session.Stage = AwaitingConfirmation
	case AwaitingConfirmation:
		switch {
		case text == ConfirmToken || oneOf(text, confirmWords):
			return session, OutcomeConfirm
		case oneOf(text, cancelWords):
			session.Stage = Cancelled
			return session, OutcomeCancelled
		default:
			return session, OutcomeReprompt
		}
	case Committed, Cancelled:
		return session, OutcomeReprompt
	}

	return session, OutcomeAdvanced
}

func oneOf(text string, words []string) bool {
	for _, word := range words {
		if strings.EqualFold(text, word) {
			return true
		}
	}
	return false
}

// Step is the result of feeding one input to the Machine.
type Step struct {
	Outcome    Outcome
	Session    Session           // session after the step; zero once it has ended
	Technician models.Technician // set when Outcome is OutcomeCommitted
}

// Machine owns the registration sessions and commits finished ones to the store.
type Machine struct {
	log      *slog.Logger
	sessions *SessionStore
	store    repository.TechnicianStore
	now      func() time.Time
}

// NewMachine creates a Machine. A nil now uses time.Now.
func NewMachine(
	log *slog.Logger,
	sessions *SessionStore,
	store repository.TechnicianStore,
	now func() time.Time,
) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{log: log, sessions: sessions, store: store, now: now}
}

// Active reports whether the user has a live session.
func (m *Machine) Active(externalID int64) bool {
	_, ok := m.sessions.Get(externalID)
	return ok
}

// Session returns the user's live session.
func (m *Machine) Session(externalID int64) (Session, bool) {
	return m.sessions.Get(externalID)
}

// Abort drops the user's session without a reply.
func (m *Machine) Abort(externalID int64) {
	m.sessions.Delete(externalID)
}

// Begin starts a session for an unregistered user. A non-empty code is taken as the login.
func (m *Machine) Begin(ctx context.Context, externalID int64, code string) (Step, error) {
	_, err := m.store.GetTechnician(ctx, externalID)
	switch {
	case err == nil:
		return Step{Outcome: OutcomeAlreadyRegistered}, nil
	case !errors.Is(err, models.ErrNotRegistered):
		return Step{}, fmt.Errorf("failed to check registration: %w", err)
	}

	session := m.sessions.Set(Session{ExternalID: externalID, Stage: AwaitingLogin})
	m.log.InfoContext(ctx, "Registration started", "user", externalID)

	if strings.TrimSpace(code) == "" {
		return Step{Outcome: OutcomeAdvanced, Session: session}, nil
	}
	return m.Handle(ctx, externalID, code)
}

// Handle feeds one message of the user into their session.
func (m *Machine) Handle(ctx context.Context, externalID int64, input string) (Step, error) {
	session, ok := m.sessions.Get(externalID)
	if !ok {
		return Step{}, ErrNoSession
	}

	next, outcome := Advance(session, input)
	switch outcome {
	case OutcomeCancelled:
		m.sessions.Delete(externalID)
		m.log.InfoContext(ctx, "Registration cancelled", "user", externalID)
		return Step{Outcome: OutcomeCancelled}, nil
	case OutcomeAdvanced:
		if session.Stage == AwaitingLogin {
			taken, err := m.store.LoginTaken(ctx, next.Pending.Login, externalID)
			if err != nil {
				return Step{Outcome: OutcomeReprompt, Session: m.sessions.Set(session)},
					fmt.Errorf("failed to check login: %w", err)
			}
			if taken {
				return Step{Outcome: OutcomeLoginTaken, Session: m.sessions.Set(session)}, nil
			}
		}
		return Step{Outcome: OutcomeAdvanced, Session: m.sessions.Set(next)}, nil
	case OutcomeConfirm:
		return m.commit(ctx, next)
	case OutcomeReprompt, OutcomeLoginTaken, OutcomeCommitted, OutcomeAlreadyRegistered:
	}

	return Step{Outcome: OutcomeReprompt, Session: m.sessions.Set(session)}, nil
}

func (m *Machine) commit(ctx context.Context, session Session) (Step, error) {
	technician := session.Pending
	technician.ExternalID = session.ExternalID
	technician.IsPrivileged = false
	technician.CreatedAt = m.now()

	err := m.store.CreateTechnician(ctx, technician)
	switch {
	case err == nil:
		m.sessions.Delete(session.ExternalID)
		m.log.InfoContext(ctx, "Technician registered", "user", session.ExternalID, "login", technician.Login)
		return Step{Outcome: OutcomeCommitted, Technician: technician}, nil
	case errors.Is(err, models.ErrDuplicateLogin):
		session.Stage = AwaitingLogin
		session.Pending.Login = ""
		session.Rewound = true
		return Step{Outcome: OutcomeLoginTaken, Session: m.sessions.Set(session)}, nil
	case errors.Is(err, models.ErrTechnicianExists):
		m.sessions.Delete(session.ExternalID)
		return Step{Outcome: OutcomeAlreadyRegistered}, nil
	default:
		m.log.ErrorContext(ctx, "Failed to commit registration", "user", session.ExternalID, "error", err)
		return Step{Outcome: OutcomeReprompt, Session: m.sessions.Set(session)},
			fmt.Errorf("failed to commit registration: %w", err)
	}
}
