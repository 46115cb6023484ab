package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/halcyonai/chat-gateway/internal/inference"
	"github.com/halcyonai/chat-gateway/internal/streamjson"
)

// ErrTurnInFlight is returned when SendTurn is called while an earlier turn
// is still streaming.
var ErrTurnInFlight = errors.New("a turn is already in flight")

// StreamError is an error the gateway reported in-band, after the response
// status was already committed.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return e.Message
}

// Session holds one conversation with the gateway. At most one turn streams
// at a time; SendTurn rejects overlapping calls instead of queueing them.
type Session struct {
	client *Client

	// OnDelta, when set, is invoked for each text fragment as it arrives,
	// before the fragment is folded into the assistant turn.
	OnDelta func(text string)

	mu       sync.Mutex
	history  []inference.Message
	inFlight bool
}

// NewSession creates an empty conversation against the given client.
func NewSession(client *Client) *Session {
	return &Session{client: client}
}

// History returns a copy of the committed conversation turns.
func (s *Session) History() []inference.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]inference.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Reset drops all conversation state.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// SendTurn appends the user's text to the conversation, streams the
// assistant's reply, and commits it to history. The user turn is appended
// before the request goes out and stays in history whether or not the turn
// succeeds, so a retry resends it.
//
// If the stream fails partway, the partial text is returned for display but
// no assistant turn is committed: a truncated reply must not become context
// for later turns.
func (s *Session) SendTurn(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return "", ErrTurnInFlight
	}
	s.inFlight = true
	s.history = append(s.history, inference.Message{
		Role:    inference.RoleUser,
		Content: []inference.ContentBlock{{Text: text}},
	})
	outbound := make([]inference.Message, len(s.history))
	copy(outbound, s.history)
	s.mu.Unlock()

	reply, err := s.streamReply(ctx, outbound)

	s.mu.Lock()
	s.inFlight = false
	if err == nil && reply != "" {
		s.history = append(s.history, inference.Message{
			Role:    inference.RoleAssistant,
			Content: []inference.ContentBlock{{Text: reply}},
		})
	}
	s.mu.Unlock()

	return reply, err
}

// streamReply runs one request and accumulates delta text until the stream
// ends or an in-band error value arrives.
func (s *Session) streamReply(ctx context.Context, history []inference.Message) (string, error) {
	body, err := s.client.StreamTurn(ctx, history)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var reply strings.Builder
	dec := streamjson.NewDecoder(body)
	for {
		value, err := dec.Next()
		if err == io.EOF {
			return reply.String(), nil
		}
		if err != nil {
			return reply.String(), fmt.Errorf("reading stream: %w", err)
		}

		// An error value terminates the turn; nothing follows it.
		if msg := gjson.GetBytes(value, "error"); msg.Exists() {
			return reply.String(), &StreamError{Message: msg.String()}
		}

		if delta := gjson.GetBytes(value, "contentBlockDelta.delta.text"); delta.Exists() {
			text := delta.String()
			if s.OnDelta != nil {
				s.OnDelta(text)
			}
			reply.WriteString(text)
		}
		// Other event shapes (messageStart, contentBlockStop, messageStop)
		// carry no text and are skipped.
	}
}
