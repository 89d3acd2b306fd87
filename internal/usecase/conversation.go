package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/deepakmehta1/itt-whatsapp-functions/internal/domain"
)

// ChatBackend is the remote chat service reached over HTTP or through the
// chat-interface function.
type ChatBackend interface {
	Login(ctx context.Context, mobile, name string) (string, error)
	StartChat(ctx context.Context, accessToken string) (string, error)
	SendChat(ctx context.Context, accessToken, message string) (string, error)
}

// ConversationStore persists one conversation per mobile per day.
// GetConversation returns nil, nil when nothing is recorded.
type ConversationStore interface {
	GetConversation(ctx context.Context, mobile, date string) (*domain.Conversation, error)
	CreateConversation(ctx context.Context, conv domain.Conversation) error
}

type CommunicateInput struct {
	Mobile string
	Name   string
	Text   string
}

type CommunicateOutput struct {
	Content string
}

// ConversationService relays a user's message to the chat backend, starting
// a new backend session the first time the user writes on a given day.
type ConversationService struct {
	chat     ChatBackend
	store    ConversationStore
	location *time.Location
	now      func() time.Time
}

func NewConversationService(chat ChatBackend, store ConversationStore, location *time.Location) (*ConversationService, error) {
	if chat == nil {
		return nil, errors.New("usecase: chat backend must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: conversation store must not be nil")
	}
	if location == nil {
		location = time.UTC
	}
	return &ConversationService{
		chat:     chat,
		store:    store,
		location: location,
		now:      time.Now,
	}, nil
}

// Today returns the conversation date for the current instant.
func (s *ConversationService) Today() string {
	return s.now().In(s.location).Format(domain.DateLayout)
}

// Communicate returns the backend's reply to in.Text. A failed store lookup
// is treated like a missing conversation. No step is retried; failures are
// returned as *Error with one of the Reason* constants.
func (s *ConversationService) Communicate(ctx context.Context, in CommunicateInput) (CommunicateOutput, error) {
	mobile := strings.TrimSpace(in.Mobile)
	if mobile == "" {
		return CommunicateOutput{}, newError(ErrorInvalidInput, "empty_mobile", nil)
	}
	today := s.Today()
	logger := slog.With("mobile", mobile, "date", today)

	conv, err := s.store.GetConversation(ctx, mobile, today)
	if err != nil {
		logger.WarnContext(ctx, "conversation lookup failed, starting new conversation", "err", err)
		conv = nil
	}
	if conv != nil {
		return s.send(ctx, conv.AccessToken, in.Text)
	}

	logger.InfoContext(ctx, "no conversation for today, logging in")
	token, err := s.chat.Login(ctx, mobile, in.Name)
	if err != nil {
		return CommunicateOutput{}, newError(ErrorUpstream, ReasonLoginFailed, err)
	}

	err = s.store.CreateConversation(ctx, domain.Conversation{
		Mobile:      mobile,
		CreatedDate: today,
		Name:        in.Name,
		AccessToken: token,
	})
	if errors.Is(err, domain.ErrConversationExists) {
		// A concurrent invocation created today's conversation first; its
		// session wins and ours is abandoned.
		existing, getErr := s.store.GetConversation(ctx, mobile, today)
		if getErr != nil || existing == nil {
			return CommunicateOutput{}, newError(ErrorInternal, ReasonConversationCreationFailed, errors.Join(err, getErr))
		}
		logger.InfoContext(ctx, "conversation created concurrently, reusing it")
		return s.send(ctx, existing.AccessToken, in.Text)
	}
	if err != nil {
		return CommunicateOutput{}, newError(ErrorInternal, ReasonConversationCreationFailed, err)
	}

	content, err := s.chat.StartChat(ctx, token)
	if err != nil {
		return CommunicateOutput{}, newError(ErrorUpstream, ReasonStartChatFailed, err)
	}
	return CommunicateOutput{Content: content}, nil
}

func (s *ConversationService) send(ctx context.Context, token, text string) (CommunicateOutput, error) {
	content, err := s.chat.SendChat(ctx, token, text)
	if err != nil {
		return CommunicateOutput{}, newError(ErrorUpstream, ReasonSendChatFailed, err)
	}
	return CommunicateOutput{Content: content}, nil
}
