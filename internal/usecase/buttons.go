package usecase

import "github.com/deepakmehta1/itt-whatsapp-functions/internal/domain"

// ButtonTable maps a quick-reply button label to the reply it triggers.
// The To field of each action is filled in per message.
type ButtonTable map[string]domain.OutboundReply

// DefaultButtons is the label table of the published WhatsApp templates.
// An entry with a zero action is a known label that sends nothing.
func DefaultButtons() ButtonTable {
	return ButtonTable{
		"Call a human?":     {Kind: domain.ReplyText, Text: "Ok. sure. I will ask my team to contact you, Thank you!"},
		"Explore trips?":    {Kind: domain.ReplyTemplate, Template: "trip_state_buttons"},
		"Himachal Trips":    {Kind: domain.ReplyTemplate, Template: "himachal_trips"},
		"Uttarakhand Trips": {},
		"Kasol Kheerganga": {
			Kind: domain.ReplyDocument, DocumentID: "637030961426757", Filename: "Kasol Kheerganga.pdf",
		},
		"Manali Solang Kasol": {
			Kind: domain.ReplyDocument, DocumentID: "500205981511357", Filename: "Manali Solang Kasol.pdf",
		},
	}
}

// Reply returns the reply for label addressed to to. ok is false for
// unknown labels and for labels without an action.
func (t ButtonTable) Reply(label, to string) (domain.OutboundReply, bool) {
	action, found := t[label]
	if !found || action.IsZero() {
		return domain.OutboundReply{}, false
	}
	action.To = to
	return action, true
}
