package chatbackend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSecrets struct {
	token string
	calls int
}

func (f *fakeSecrets) SecretToken(_ context.Context) string {
	f.calls++
	return f.token
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(
		&fakeSecrets{token: "shh"},
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	require.NoError(t, err)
	return c
}

func TestNewClient_NilSecrets(t *testing.T) {
	_, err := NewClient(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "nil")
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(&fakeSecrets{})
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080", c.baseURL)
	require.Equal(t, "http://localhost:8080/v2/chat/start", c.url(startPath))
}

func TestURL_TrimsTrailingSlash(t *testing.T) {
	c, err := NewClient(&fakeSecrets{}, WithBaseURL("https://chat.example.com/"))
	require.NoError(t, err)
	require.Equal(t, "https://chat.example.com/v2/chat/message", c.url(messagePath))
}

func TestLogin_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, loginPath, r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var got loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		require.Equal(t, loginRequest{Mobile: "9998887777", Name: "Asha", SecretToken: "shh"}, got)
		_, _ = w.Write([]byte(`{"accessToken":"tok-1"}`))
	}))
	defer srv.Close()

	token, err := newTestClient(t, srv).Login(context.Background(), "9998887777", "Asha")
	require.NoError(t, err)
	require.Equal(t, "tok-1", token)
}

func TestLogin_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad secret"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Login(context.Background(), "1", "n")
	require.Error(t, err)
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusUnauthorized, statusErr.HTTPStatusCode())
	require.Contains(t, statusErr.Body, "bad secret")
}

func TestLogin_OnlyExact200IsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"accessToken":"tok-1"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Login(context.Background(), "1", "n")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected status 201")
}

func TestLogin_MissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Login(context.Background(), "1", "n")
	require.ErrorContains(t, err, "no access token")
}

func TestStartChat_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, startPath, r.URL.Path)
		require.Equal(t, "tok-1", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.Empty(t, body)
		_, _ = w.Write([]byte(`{"response":"{\"content\":\"Welcome!\"}"}`))
	}))
	defer srv.Close()

	content, err := newTestClient(t, srv).StartChat(context.Background(), "tok-1")
	require.NoError(t, err)
	require.Equal(t, "Welcome!", content)
}

func TestSendChat_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, messagePath, r.URL.Path)
		require.Equal(t, "tok-1", r.Header.Get("Authorization"))
		var got messageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		require.Equal(t, "Hello", got.Message)
		_, _ = w.Write([]byte(`{"response":"{\"content\":\"Hi there\"}"}`))
	}))
	defer srv.Close()

	content, err := newTestClient(t, srv).SendChat(context.Background(), "tok-1", "Hello")
	require.NoError(t, err)
	require.Equal(t, "Hi there", content)
}

func TestSendChat_EmptyResponseField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	content, err := newTestClient(t, srv).SendChat(context.Background(), "tok-1", "Hello")
	require.NoError(t, err)
	require.Empty(t, content)
}

func TestSendChat_MalformedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"not json"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).SendChat(context.Background(), "tok-1", "Hello")
	require.ErrorContains(t, err, "decode chat content")
}

func TestSendChat_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).SendChat(context.Background(), "tok-1", "Hello")
	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, 500, statusErr.StatusCode)
}

func TestStartChat_NetworkError(t *testing.T) {
	c, err := NewClient(&fakeSecrets{}, WithBaseURL("http://127.0.0.1:1"), WithHTTPClient(&http.Client{Timeout: 100 * time.Millisecond}))
	require.NoError(t, err)
	_, err = c.StartChat(context.Background(), "tok-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "start chat failed")
}

func TestStartChat_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}
	_, err := c.StartChat(context.Background(), "tok-1")
	require.Error(t, err)
}
