// Package chatops defines the event contract of the chat-interface function:
// the operations it accepts and the response envelope it returns.
package chatops

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Method names accepted in the "method" field of an invocation event.
type Method string

const (
	MethodLogin     Method = "login_for_whatsapp"
	MethodStartChat Method = "start_chat"
	MethodSendChat  Method = "send_chat"
)

var (
	ErrMissingMethod = errors.New("missing required field: method")
	ErrUnknownMethod = errors.New("invalid method")
	ErrMissingField  = errors.New("missing required field")
)

// Request is the wire form of an invocation event.
type Request struct {
	Method      Method `json:"method"`
	Mobile      string `json:"mobile,omitempty"`
	Name        string `json:"name,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Operation is one of Login, StartChat or SendChat.
type Operation interface {
	Method() Method
	request() Request
}

type Login struct {
	Mobile string
	Name   string
}

type StartChat struct {
	AccessToken string
}

type SendChat struct {
	AccessToken string
	Message     string
}

func (Login) Method() Method     { return MethodLogin }
func (StartChat) Method() Method { return MethodStartChat }
func (SendChat) Method() Method  { return MethodSendChat }

func (o Login) request() Request {
	return Request{Method: MethodLogin, Mobile: o.Mobile, Name: o.Name}
}

func (o StartChat) request() Request {
	return Request{Method: MethodStartChat, AccessToken: o.AccessToken}
}

func (o SendChat) request() Request {
	return Request{Method: MethodSendChat, AccessToken: o.AccessToken, Message: o.Message}
}

// Encode returns the wire form of op.
func Encode(op Operation) Request {
	return op.request()
}

// Methods lists every supported method.
func Methods() []Method {
	return []Method{MethodLogin, MethodStartChat, MethodSendChat}
}

// Decode parses an invocation event into a typed Operation. Validation
// failures wrap ErrMissingMethod, ErrUnknownMethod or ErrMissingField.
func Decode(raw []byte) (Operation, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("chatops: decode event: %w", err)
	}
	return req.Operation()
}

// Operation validates r and converts it into its typed variant.
func (r Request) Operation() (Operation, error) {
	switch r.Method {
	case "":
		return nil, ErrMissingMethod
	case MethodLogin:
		if missing := missingFields(field{"mobile", r.Mobile}, field{"name", r.Name}); missing != "" {
			return nil, fmt.Errorf("%w for login: %s", ErrMissingField, missing)
		}
		return Login{Mobile: r.Mobile, Name: r.Name}, nil
	case MethodStartChat:
		if missing := missingFields(field{"access_token", r.AccessToken}); missing != "" {
			return nil, fmt.Errorf("%w for start_chat: %s", ErrMissingField, missing)
		}
		return StartChat{AccessToken: r.AccessToken}, nil
	case MethodSendChat:
		if missing := missingFields(field{"access_token", r.AccessToken}, field{"message", r.Message}); missing != "" {
			return nil, fmt.Errorf("%w for send_chat: %s", ErrMissingField, missing)
		}
		return SendChat{AccessToken: r.AccessToken, Message: r.Message}, nil
	default:
		names := make([]string, 0, 3)
		for _, m := range Methods() {
			names = append(names, string(m))
		}
		return nil, fmt.Errorf("%w: %s. Valid methods are: %s", ErrUnknownMethod, r.Method, strings.Join(names, ", "))
	}
}

type field struct {
	name  string
	value string
}

// missingFields returns the comma-joined names of blank fields.
func missingFields(fields ...field) string {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return strings.Join(missing, ", ")
}
