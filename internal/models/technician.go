package models

import "time"

// Technician represents a registered chat participant.
type Technician struct {
	ExternalID   int64     // Telegram user id, unique key
	Login        string    // Uppercased login code, unique across technicians
	Name         string    // Uppercased full name
	Area         string    // Uppercased working area
	Phone        string    // Phone number as typed by the technician
	IsPrivileged bool      // Whether the technician may manage occurrences and technicians
	CreatedAt    time.Time // Timestamp of the registration commit
}
