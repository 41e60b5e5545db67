// Package alert fans security events out to notification channels.
package alert

import (
	"time"

	"github.com/google/uuid"

	"breachwatch/internal/common"
)

// Event is a security event raised after a positive verdict.
type Event struct {
	ID        uuid.UUID            `json:"id"`
	Type      common.AlertType     `json:"type"`
	Severity  common.SeverityLevel `json:"severity"`
	Payload   map[string]any       `json:"payload"`
	CreatedAt time.Time            `json:"created_at"`
	// Recipients are extra email recipients for this event only.
	Recipients []string `json:"recipients,omitempty"`
}

// NewEvent stamps an event with an ID, the severity for its type and the
// current time.
func NewEvent(typ common.AlertType, payload map[string]any) Event {
	if payload == nil {
		payload = map[string]any{}
	}
	return Event{
		ID:        uuid.New(),
		Type:      typ,
		Severity:  Severity(typ),
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}

// Field is one labelled value of a rendered alert.
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Message is an event rendered into channel-neutral parts.
type Message struct {
	ID              string
	Type            common.AlertType
	Severity        common.SeverityLevel
	Emoji           string
	Title           string
	Subject         string
	Description     string
	Fields          []Field
	Recommendations []string
	Recipients      []string
	Time            time.Time
}

// Render formats e for delivery.
func Render(e Event) Message {
	sev := e.Severity
	if sev == "" {
		sev = Severity(e.Type)
	}
	at := e.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return Message{
		ID:              e.ID.String(),
		Type:            e.Type,
		Severity:        sev,
		Emoji:           Emoji(e.Type),
		Title:           Title(e.Type),
		Subject:         Subject(e.Type),
		Description:     Description(e.Type),
		Fields:          Fields(e.Type, e.Payload),
		Recommendations: Recommendations(e.Type),
		Recipients:      e.Recipients,
		Time:            at,
	}
}
