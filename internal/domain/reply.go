package domain

// ReplyKind tags the variant of an OutboundReply.
type ReplyKind string

const (
	ReplyText     ReplyKind = "text"
	ReplyTemplate ReplyKind = "template"
	ReplyDocument ReplyKind = "document"
)

// OutboundReply is a message to deliver to a WhatsApp user.
// ContextMessageID, when set, marks the reply as a response to that message.
type OutboundReply struct {
	Kind             ReplyKind
	To               string
	Text             string
	Template         string
	DocumentID       string
	Filename         string
	ContextMessageID string
}

// IsZero reports whether the reply carries no deliverable payload.
func (r OutboundReply) IsZero() bool {
	return r.Kind == ""
}
