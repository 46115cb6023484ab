// Package chat is the client side of the gateway: an HTTP client for the
// streaming chat endpoint and a session controller that turns the
// concatenated-JSON response into rendered assistant turns.
//
// FILES:
//   - client.go:  HTTP client for POST /v1/chat
//   - session.go: Conversation state and the per-turn streaming loop
//   - tokens.go:  Local token estimation for the prompt view
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/halcyonai/chat-gateway/internal/inference"
)

// Client talks to the gateway's chat endpoint.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// NewClient creates a gateway client. The token is sent as a bearer token on
// every request. The default HTTP client has no timeout: responses stream for
// as long as the model generates.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// StreamTurn posts the full conversation history and returns the raw
// response body. The body carries concatenated JSON values; callers frame it
// with streamjson.Decoder. The caller owns closing the returned body.
func (c *Client) StreamTurn(ctx context.Context, history []inference.Message) (io.ReadCloser, error) {
	payload, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("marshaling history: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		if msg := gjson.GetBytes(body, "error").String(); msg != "" {
			return nil, fmt.Errorf("gateway rejected request (status %d): %s", resp.StatusCode, msg)
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	return resp.Body, nil
}
