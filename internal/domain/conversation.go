package domain

import "errors"

// DateLayout is the calendar-date format used in conversation keys.
const DateLayout = "2006-01-02"

// ErrConversationExists is returned by stores when a conditional create finds
// a conversation already recorded for the same mobile and date.
var ErrConversationExists = errors.New("conversation already exists")

// Conversation is one user's chat session for a calendar day. It is keyed by
// (Mobile, CreatedDate) and its AccessToken never changes once written.
type Conversation struct {
	Mobile       string
	CreatedDate  string
	Name         string
	AccessToken  string
	Interactions []Interaction
}

// InteractionType identifies what the user did in a recorded interaction.
type InteractionType string

const (
	InteractionText   InteractionType = "text"
	InteractionButton InteractionType = "button"
)

// Interaction is a single recorded user action on a conversation. These are
// appended by consumers of the event queue, never by the request handlers.
type Interaction struct {
	DateTime string
	Type     InteractionType
	Content  string
}
