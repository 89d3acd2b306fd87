package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/deepakmehta1/itt-whatsapp-functions/internal/domain"
)

const (
	queryOpen  = "filter("
	queryClose = ")"

	noDataMessage = "No data found, try with different inputs"
)

var (
	ErrMalformedQuery    = errors.New("query must have the form filter(key:value,...)")
	ErrMissingQueryField = errors.New("query is missing a required field")
)

// Filter is a parsed lookup command.
type Filter struct {
	Mobile string
	Date   string
}

// ParseQuery parses "filter(mobile:<m>,date:<d>)". Unknown keys and entries
// without a colon are ignored; a repeated key keeps its last value.
func ParseQuery(command string) (Filter, error) {
	command = strings.TrimSpace(command)
	if !strings.HasPrefix(command, queryOpen) || !strings.HasSuffix(command, queryClose) {
		return Filter{}, ErrMalformedQuery
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(command, queryOpen), queryClose)

	var f Filter
	for _, entry := range strings.Split(inner, ",") {
		key, value, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "mobile":
			f.Mobile = strings.TrimSpace(value)
		case "date":
			f.Date = strings.TrimSpace(value)
		}
	}

	if f.Mobile == "" {
		return Filter{}, fmt.Errorf("%w: mobile", ErrMissingQueryField)
	}
	if f.Date == "" {
		return Filter{}, fmt.Errorf("%w: date", ErrMissingQueryField)
	}
	return f, nil
}

// RenderInteractions formats each text or button interaction as one line.
// Other interaction types are skipped.
func RenderInteractions(interactions []domain.Interaction) []string {
	lines := make([]string, 0, len(interactions))
	for _, in := range interactions {
		var verb string
		switch in.Type {
		case domain.InteractionText:
			verb = "sent text"
		case domain.InteractionButton:
			verb = "pressed button"
		default:
			continue
		}
		lines = append(lines, fmt.Sprintf("%s : User %s - %s", in.DateTime, verb, in.Content))
	}
	return lines
}
