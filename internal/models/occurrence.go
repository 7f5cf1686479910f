package models

import (
	"time"
	"unicode/utf8"
)

// Status is the lifecycle state of an occurrence.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDismissed Status = "dismissed"
	StatusResolved  Status = "resolved"
)

// IsTerminal reports whether no transition may leave the status.
func (s Status) IsTerminal() bool {
	return s == StatusDismissed || s == StatusResolved
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusDismissed, StatusResolved:
		return true
	}
	return false
}

// CanTransitionTo reports whether the change s -> next is allowed.
// Only pending may move, and only to one of the terminal statuses.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusPending && next.IsTerminal()
}

// Category is the closed set of occurrence types.
type Category string

const (
	CategoryNone          Category = ""
	CategoryNapGpon       Category = "nap_gpon"
	CategoryRedeExterna   Category = "rede_externa"
	CategoryEletrica      Category = "eletrica"
	CategoryConectividade Category = "conectividade"
	CategoryManutencao    Category = "manutencao"
	CategorySeguranca     Category = "seguranca"
)

// Categories lists every category in the order they are offered to technicians.
func Categories() []Category {
	return []Category{
		CategoryRedeExterna,
		CategoryNapGpon,
		CategoryEletrica,
		CategoryConectividade,
		CategoryManutencao,
		CategorySeguranca,
	}
}

// Valid reports whether c belongs to the closed category set.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Occurrence represents a tracked service request.
type Occurrence struct {
	ID        string    `json:"id"`                 // Short opaque identifier (8 uppercase hex characters)
	OwnerID   int64     `json:"owner_id"`           // ExternalID of the technician who opened it
	Contract  string    `json:"contract"`           // Customer contract, empty when not informed
	Category  Category  `json:"category"`           // Occurrence type
	Status    Status    `json:"status"`             // Lifecycle state
	CreatedAt time.Time `json:"created_at"`         // Creation timestamp
	UpdatedAt time.Time `json:"updated_at"`         // Last status change, equals CreatedAt until then
	UpdatedBy int64     `json:"updated_by"`         // Actor of the last status change, 0 if never changed
	Notes     string    `json:"notes,omitempty"`    // Free text supplied with the occurrence
	Location  string    `json:"location,omitempty"` // Optional location
	Urgency   string    `json:"urgency,omitempty"`  // Optional urgency marker
}

// MaxContractLength is the longest accepted contract in bytes. Longer contracts would not
// fit a category choice token in Telegram's 64-byte callback data.
const MaxContractLength = 32

// UrgencyUrgent is the Urgency of occurrences reported as urgent.
const UrgencyUrgent = "urgent"

// ValidContract reports whether contract may be stored or queried. The empty contract
// means "not informed" and is valid.
func ValidContract(contract string) bool {
	return len(contract) <= MaxContractLength && utf8.ValidString(contract)
}
