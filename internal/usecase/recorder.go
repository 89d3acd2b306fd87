package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/deepakmehta1/itt-whatsapp-functions/internal/domain"
)

const interactionTimeLayout = "2006-01-02 15:04:05"

type InteractionAppender interface {
	AppendInteraction(ctx context.Context, mobile, date string, in domain.Interaction) error
}

// InteractionRecorder writes handled events straight into the conversation
// history. It stands in for the event queue consumer when no queue is
// configured.
type InteractionRecorder struct {
	store         InteractionAppender
	location      *time.Location
	countryPrefix string
	now           func() time.Time
}

func NewInteractionRecorder(store InteractionAppender, location *time.Location, countryPrefix string) (*InteractionRecorder, error) {
	if store == nil {
		return nil, errors.New("usecase: interaction store must not be nil")
	}
	if location == nil {
		location = time.UTC
	}
	return &InteractionRecorder{
		store:         store,
		location:      location,
		countryPrefix: strings.TrimSpace(countryPrefix),
		now:           time.Now,
	}, nil
}

// Publish appends ev to the sender's conversation for the day the message
// was sent. Only text and button events are recorded.
func (r *InteractionRecorder) Publish(ctx context.Context, ev domain.InboundEvent) error {
	var typ domain.InteractionType
	switch ev.Kind {
	case domain.EventText:
		typ = domain.InteractionText
	case domain.EventButton:
		typ = domain.InteractionButton
	default:
		return nil
	}

	at := r.now()
	if secs, err := strconv.ParseInt(ev.Timestamp, 10, 64); err == nil {
		at = time.Unix(secs, 0)
	}
	at = at.In(r.location)

	mobile := stripCountryPrefix(ev.From, r.countryPrefix)
	err := r.store.AppendInteraction(ctx, mobile, at.Format(domain.DateLayout), domain.Interaction{
		DateTime: at.Format(interactionTimeLayout),
		Type:     typ,
		Content:  ev.Content(),
	})
	if err != nil {
		return fmt.Errorf("usecase: record interaction: %w", err)
	}
	return nil
}

// stripCountryPrefix removes prefix from a WhatsApp id that is longer than
// the prefix itself.
func stripCountryPrefix(waID, prefix string) string {
	if prefix == "" || len(waID) <= len(prefix) {
		return waID
	}
	return strings.TrimPrefix(waID, prefix)
}
