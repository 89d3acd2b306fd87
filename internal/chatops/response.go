package chatops

import (
	"encoding/json"
	"fmt"
)

// Response is the Lambda proxy-style envelope returned by the chat-interface
// function. Body holds a JSON-encoded Body or ErrorBody.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body"`
}

// Body is the decoded response body. Data is set on success; Details and
// Error describe a failed backend call.
type Body struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *Data  `json:"data,omitempty"`
	Details string `json:"details,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Data carries the result of a successful operation.
type Data struct {
	StatusCode  int    `json:"statusCode"`
	AccessToken string `json:"accessToken,omitempty"`
	Content     string `json:"content,omitempty"`
}

// NewResponse encodes body into a Response with the given status.
func NewResponse(status int, body any) Response {
	raw, err := json.Marshal(body)
	if err != nil {
		raw = []byte(fmt.Sprintf(`{"message":%q}`, err.Error()))
	}
	return Response{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(raw),
	}
}

// DecodeBody parses the JSON body carried by r.
func (r Response) DecodeBody() (Body, error) {
	var b Body
	if err := json.Unmarshal([]byte(r.Body), &b); err != nil {
		return Body{}, fmt.Errorf("chatops: decode response body: %w", err)
	}
	return b, nil
}
