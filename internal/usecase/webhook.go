package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/deepakmehta1/itt-whatsapp-functions/internal/domain"
)

// FallbackReply is sent to the user whenever the chat backend cannot answer.
const FallbackReply = "Services are currently down, please try again after sometime."

type Communicator interface {
	Communicate(ctx context.Context, in CommunicateInput) (CommunicateOutput, error)
}

type ConversationReader interface {
	GetConversation(ctx context.Context, mobile, date string) (*domain.Conversation, error)
}

type Messenger interface {
	Send(ctx context.Context, reply domain.OutboundReply) error
}

type EventPublisher interface {
	Publish(ctx context.Context, ev domain.InboundEvent) error
}

// QuerySource tells where a lookup command came from.
type QuerySource string

const (
	QuerySourceWeb      QuerySource = "web"
	QuerySourceWhatsApp QuerySource = "whatsapp"
)

// QueryRequest is a lookup command. ReplyTo and ReplyToMessageID are used
// only for WhatsApp-originated queries.
type QueryRequest struct {
	Command          string
	Source           QuerySource
	ReplyTo          string
	ReplyToMessageID string
}

type QueryResult struct {
	Mobile   string   `json:"mobile"`
	Messages []string `json:"messages"`
}

// WebhookService acts on the messages of one webhook delivery.
type WebhookService struct {
	conversations Communicator
	store         ConversationReader
	messenger     Messenger
	publisher     EventPublisher
	buttons       ButtonTable
	countryPrefix string
}

type WebhookOption func(*WebhookService)

// WithPublisher forwards every handled text and button event to p.
func WithPublisher(p EventPublisher) WebhookOption {
	return func(s *WebhookService) {
		s.publisher = p
	}
}

func WithButtons(t ButtonTable) WebhookOption {
	return func(s *WebhookService) {
		s.buttons = t
	}
}

// WithCountryPrefix sets the dialling prefix removed from sender numbers
// before they reach the chat backend.
func WithCountryPrefix(prefix string) WebhookOption {
	return func(s *WebhookService) {
		s.countryPrefix = strings.TrimSpace(prefix)
	}
}

func NewWebhookService(c Communicator, store ConversationReader, m Messenger, opts ...WebhookOption) (*WebhookService, error) {
	if c == nil {
		return nil, errors.New("usecase: communicator must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: conversation reader must not be nil")
	}
	if m == nil {
		return nil, errors.New("usecase: messenger must not be nil")
	}
	s := &WebhookService{
		conversations: c,
		store:         store,
		messenger:     m,
		buttons:       DefaultButtons(),
		countryPrefix: "91",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// HandleEvents processes events in order. A query or an unsupported message
// type ends processing of the delivery. Failures are logged, never returned:
// the platform must always get an acknowledgement.
func (s *WebhookService) HandleEvents(ctx context.Context, events []domain.InboundEvent) {
	for _, ev := range events {
		logger := slog.With("message_id", ev.MessageID, "type", ev.RawType)

		switch ev.Kind {
		case domain.EventQuery:
			_, err := s.Query(ctx, QueryRequest{
				Command:          ev.Query,
				Source:           QuerySourceWhatsApp,
				ReplyTo:          ev.From,
				ReplyToMessageID: ev.MessageID,
			})
			if err != nil {
				logger.WarnContext(ctx, "query from whatsapp failed", "err", err)
			}
			return
		case domain.EventText:
			s.handleText(ctx, ev)
		case domain.EventButton:
			s.handleButton(ctx, ev)
		case domain.EventUnknown:
			logger.InfoContext(ctx, "ignoring unsupported message type")
			return
		}
		s.publish(ctx, ev)
	}
}

func (s *WebhookService) handleText(ctx context.Context, ev domain.InboundEvent) {
	mobile := s.localNumber(ev.From)
	name := ev.SenderName
	if name == "" {
		name = mobile
	}

	text := FallbackReply
	out, err := s.conversations.Communicate(ctx, CommunicateInput{Mobile: mobile, Name: name, Text: ev.Text})
	switch {
	case err != nil:
		slog.ErrorContext(ctx, "conversation failed", "mobile", mobile, "err", err)
	case strings.TrimSpace(out.Content) == "":
		slog.WarnContext(ctx, "chat backend returned empty content", "mobile", mobile)
	default:
		text = out.Content
	}
	s.reply(ctx, domain.OutboundReply{Kind: domain.ReplyText, To: ev.From, Text: text})
}

func (s *WebhookService) handleButton(ctx context.Context, ev domain.InboundEvent) {
	reply, ok := s.buttons.Reply(ev.ButtonLabel, ev.From)
	if !ok {
		slog.WarnContext(ctx, "no action for button", "label", ev.ButtonLabel)
		return
	}
	s.reply(ctx, reply)
}

// Query looks up the interactions recorded for the filter's mobile and date.
// WhatsApp-originated queries are also answered to the requesting user.
func (s *WebhookService) Query(ctx context.Context, req QueryRequest) (QueryResult, error) {
	filter, err := ParseQuery(req.Command)
	if err != nil {
		return QueryResult{}, newError(ErrorInvalidInput, "invalid_query", err)
	}

	conv, err := s.store.GetConversation(ctx, filter.Mobile, filter.Date)
	if err != nil {
		return QueryResult{}, newError(ErrorInternal, "conversation_lookup_failed", err)
	}

	result := QueryResult{Mobile: filter.Mobile, Messages: []string{noDataMessage}}
	if conv != nil {
		result.Messages = RenderInteractions(conv.Interactions)
	}

	if req.Source == QuerySourceWhatsApp {
		text := strings.Join(result.Messages, "\n")
		if text == "" {
			text = noDataMessage
		}
		s.reply(ctx, domain.OutboundReply{
			Kind:             domain.ReplyText,
			To:               req.ReplyTo,
			Text:             text,
			ContextMessageID: req.ReplyToMessageID,
		})
	}
	return result, nil
}

func (s *WebhookService) reply(ctx context.Context, reply domain.OutboundReply) {
	if err := s.messenger.Send(ctx, reply); err != nil {
		slog.ErrorContext(ctx, "failed to send whatsapp reply", "kind", reply.Kind, "err", err)
	}
}

func (s *WebhookService) publish(ctx context.Context, ev domain.InboundEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		slog.WarnContext(ctx, "failed to publish event", "message_id", ev.MessageID, "err", err)
	}
}

// localNumber strips the configured country prefix from a WhatsApp id.
func (s *WebhookService) localNumber(waID string) string {
	return stripCountryPrefix(waID, s.countryPrefix)
}
