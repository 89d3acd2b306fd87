package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deepakmehta1/itt-whatsapp-functions/internal/domain"
)

// recorder captures decoded request bodies in arrival order.
type recorder struct {
	mu       sync.Mutex
	requests []map[string]any
	status   int
}

func (rec *recorder) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v19.0/12345/messages", r.URL.Path)
		require.Equal(t, "Bearer wa-token", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		rec.mu.Lock()
		rec.requests = append(rec.requests, body)
		n := len(rec.requests)
		rec.mu.Unlock()

		if rec.status != 0 {
			w.WriteHeader(rec.status)
			_, _ = w.Write([]byte(`{"error":{"message":"bad"}}`))
			return
		}
		_, _ = fmt.Fprintf(w, `{"messaging_product":"whatsapp","messages":[{"id":"wamid.%d"}]}`, n)
	}
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient("v19.0", "12345", "wa-token",
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	require.NoError(t, err)
	return c
}

func TestNewClient_Validates(t *testing.T) {
	_, err := NewClient("", "1", "t")
	require.ErrorContains(t, err, "version")
	_, err = NewClient("v19.0", " ", "t")
	require.ErrorContains(t, err, "phone number id")
	_, err = NewClient("v19.0", "1", "")
	require.ErrorContains(t, err, "token")
}

func TestMessagesURL_Default(t *testing.T) {
	c, err := NewClient("v19.0", "12345", "t")
	require.NoError(t, err)
	require.Equal(t, "https://graph.facebook.com/v19.0/12345/messages", c.messagesURL())
}

func TestSendText(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	id, err := newTestClient(t, srv).SendText(context.Background(), "919998887777", "Welcome!", "")
	require.NoError(t, err)
	require.Equal(t, "wamid.1", id)

	require.Len(t, rec.requests, 1)
	got := rec.requests[0]
	require.Equal(t, "whatsapp", got["messaging_product"])
	require.Equal(t, "919998887777", got["to"])
	require.Equal(t, "text", got["type"])
	require.Equal(t, map[string]any{"preview_url": false, "body": "Welcome!"}, got["text"])
	require.NotContains(t, got, "context")
}

func TestSendTemplate_WithContext(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	_, err := newTestClient(t, srv).SendTemplate(context.Background(), "919998887777", "trip_state_buttons", "wamid.in")
	require.NoError(t, err)
	got := rec.requests[0]
	require.Equal(t, "template", got["type"])
	require.Equal(t, map[string]any{"name": "trip_state_buttons", "language": map[string]any{"code": "en"}}, got["template"])
	require.Equal(t, map[string]any{"message_id": "wamid.in"}, got["context"])
}

func TestSendDocument_ChainsFollowUpTemplate(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	id, err := newTestClient(t, srv).SendDocument(context.Background(), "919998887777", "637030961426757", "Kasol Kheerganga.pdf")
	require.NoError(t, err)
	require.Equal(t, "wamid.1", id)

	require.Len(t, rec.requests, 2)
	require.Equal(t, "document", rec.requests[0]["type"])
	require.Equal(t, map[string]any{"id": "637030961426757", "filename": "Kasol Kheerganga.pdf"}, rec.requests[0]["document"])

	follow := rec.requests[1]
	require.Equal(t, "template", follow["type"])
	require.Equal(t, "interested_trip1", follow["template"].(map[string]any)["name"])
	require.Equal(t, map[string]any{"message_id": "wamid.1"}, follow["context"])
}

func TestSendDocument_CustomFollowUp(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	c, err := NewClient("v19.0", "12345", "wa-token", WithBaseURL(srv.URL), WithFollowUpTemplate("brochure_followup"))
	require.NoError(t, err)
	_, err = c.SendDocument(context.Background(), "91", "doc", "f.pdf")
	require.NoError(t, err)
	require.Equal(t, "brochure_followup", rec.requests[1]["template"].(map[string]any)["name"])
}

func TestSendDocument_FailureSkipsFollowUp(t *testing.T) {
	rec := &recorder{status: http.StatusBadRequest}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	_, err := newTestClient(t, srv).SendDocument(context.Background(), "91", "doc", "f.pdf")
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadRequest, statusErr.HTTPStatusCode())
	require.Len(t, rec.requests, 1)
}

func TestSend_DispatchesByKind(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()
	c := newTestClient(t, srv)

	require.NoError(t, c.Send(context.Background(), domain.OutboundReply{Kind: domain.ReplyText, To: "91", Text: "hi"}))
	require.NoError(t, c.Send(context.Background(), domain.OutboundReply{Kind: domain.ReplyTemplate, To: "91", Template: "himachal_trips"}))
	require.NoError(t, c.Send(context.Background(), domain.OutboundReply{Kind: domain.ReplyDocument, To: "91", DocumentID: "d", Filename: "f.pdf"}))
	require.Len(t, rec.requests, 4)

	err := c.Send(context.Background(), domain.OutboundReply{To: "91"})
	require.ErrorContains(t, err, "unsupported reply kind")
}

func TestSend_EmptyRecipient(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	_, err := newTestClient(t, srv).SendText(context.Background(), "", "hi", "")
	require.ErrorContains(t, err, "recipient")
	require.Empty(t, rec.requests)
}

func TestSendText_NilHTTPClientUsesDefault(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	c, err := NewClient("v19.0", "12345", "wa-token", WithBaseURL(srv.URL), WithHTTPClient(nil))
	require.NoError(t, err)

	id, err := c.SendText(context.Background(), "919998887777", "hi", "")
	require.NoError(t, err)
	require.Equal(t, "wamid.1", id)
}
