package domain

// EventKind tags the variant of an InboundEvent.
type EventKind string

const (
	EventText    EventKind = "text"
	EventButton  EventKind = "button"
	EventQuery   EventKind = "query"
	EventUnknown EventKind = "unknown"
)

// InboundEvent is one message taken from a webhook delivery. Text is set for
// text events, ButtonLabel for button events and Query for query events.
type InboundEvent struct {
	Kind        EventKind
	From        string
	MessageID   string
	Timestamp   string
	SenderName  string
	RawType     string
	Text        string
	ButtonLabel string
	Query       string
}

// Content returns the user-visible payload of the event.
func (e InboundEvent) Content() string {
	switch e.Kind {
	case EventText:
		return e.Text
	case EventButton:
		return e.ButtonLabel
	case EventQuery:
		return e.Query
	default:
		return ""
	}
}
