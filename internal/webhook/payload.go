// Package webhook decodes WhatsApp Business webhook deliveries and
// classifies their messages into domain events.
package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/deepakmehta1/itt-whatsapp-functions/internal/domain"
)

// ErrNoChanges is returned for deliveries without an entry/change value.
var ErrNoChanges = errors.New("webhook: payload has no changes")

// Payload is the top-level webhook delivery.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry represents one business account entry.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change wraps a single change notification.
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue holds the message data.
type ChangeValue struct {
	MessagingProduct string    `json:"messaging_product"`
	Contacts         []Contact `json:"contacts,omitempty"`
	Messages         []Message `json:"messages,omitempty"`
}

// Contact is a WhatsApp contact.
type Contact struct {
	Profile ContactProfile `json:"profile"`
	WaID    string         `json:"wa_id"`
}

// ContactProfile has the display name.
type ContactProfile struct {
	Name string `json:"name"`
}

// Message represents an incoming WhatsApp message.
type Message struct {
	From      string         `json:"from"`
	ID        string         `json:"id"`
	Timestamp string         `json:"timestamp"`
	Type      string         `json:"type"`
	Text      *TextContent   `json:"text,omitempty"`
	Button    *ButtonContent `json:"button,omitempty"`
}

// TextContent holds a text message body.
type TextContent struct {
	Body string `json:"body"`
}

// ButtonContent holds a quick-reply button press.
type ButtonContent struct {
	Text    string `json:"text"`
	Payload string `json:"payload"`
}

// Decode parses a raw webhook body.
func Decode(body string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return Payload{}, fmt.Errorf("webhook: decode payload: %w", err)
	}
	return p, nil
}

// Value returns the first change value of the first entry; deliveries from
// the platform carry exactly one.
func (p Payload) Value() (ChangeValue, error) {
	if len(p.Entry) == 0 || len(p.Entry[0].Changes) == 0 {
		return ChangeValue{}, ErrNoChanges
	}
	return p.Entry[0].Changes[0].Value, nil
}

// Classify turns the messages of v into events. The first contact's profile
// name is the sender name for every message; texts starting with
// queryPrefix become query events.
func Classify(v ChangeValue, queryPrefix string) []domain.InboundEvent {
	var name string
	if len(v.Contacts) > 0 {
		name = v.Contacts[0].Profile.Name
	}

	events := make([]domain.InboundEvent, 0, len(v.Messages))
	for _, m := range v.Messages {
		ev := domain.InboundEvent{
			Kind:       domain.EventUnknown,
			From:       m.From,
			MessageID:  m.ID,
			Timestamp:  m.Timestamp,
			SenderName: name,
			RawType:    m.Type,
		}
		switch {
		case m.Type == "text" && m.Text != nil:
			if queryPrefix != "" && strings.HasPrefix(m.Text.Body, queryPrefix) {
				ev.Kind = domain.EventQuery
				ev.Query = strings.TrimPrefix(m.Text.Body, queryPrefix)
			} else {
				ev.Kind = domain.EventText
				ev.Text = m.Text.Body
			}
		case m.Type == "button" && m.Button != nil:
			ev.Kind = domain.EventButton
			ev.ButtonLabel = m.Button.Text
		}
		events = append(events, ev)
	}
	return events
}
