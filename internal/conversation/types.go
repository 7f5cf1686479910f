package conversation

import "time"

// Message is an inbound chat message.
type Message struct {
	ExternalID int64 // sender identity
	ChatID     int64
	Username   string
	Text       string
	Timestamp  time.Time
}

// Callback is an inbound choice selection.
type Callback struct {
	ExternalID int64
	ChatID     int64
	Username   string
	Token      string // token of the selected Choice
}

// Choice is an option offered to the user. Token is returned in a Callback when selected.
type Choice struct {
	Label string
	Token string
}

// Document is a file attached to a response.
type Document struct {
	FileName string
	MIME     string
	Data     []byte
}

// Response is the reply to one inbound event.
type Response struct {
	Text     string
	Choices  []Choice
	Document *Document
}
