// Package inference opens streaming sessions against the upstream model
// provider and normalizes its events.
//
// DESIGN: Provider events are modeled as a closed sum type with exhaustive
// switching rather than an object with optional fields probed by presence.
// The provider embeds errors inside well-formed stream messages instead of
// failing the call, so every event must be classified before it can be
// treated as content; the sum type makes it impossible to forward an
// error-shaped event as content by accident.
package inference

import (
	"context"
	"errors"
)

// ErrAccessDenied is returned when the provider rejects opening a session
// for permission reasons. The message is safe to show to callers.
var ErrAccessDenied = errors.New("Access denied to AWS Bedrock - Please ensure the model is enabled in the AWS Bedrock console.")

// TokenUsage is the token accounting the provider reports once per session.
type TokenUsage struct {
	InputTokens  uint64
	OutputTokens uint64
	TotalTokens  uint64
}

// Event is one normalized provider stream event.
//
// Variants: Content (forwardable), Metadata (captured, never forwarded).
// Terminal provider errors are not Events; they surface from Stream.Next as
// *UpstreamError.
type Event interface {
	isEvent()
}

// Content is a forwardable event, already stripped of internal fields and
// encoded as the caller-visible JSON envelope.
type Content struct {
	Payload []byte
}

func (Content) isEvent() {}

// Metadata carries the session's final token usage. It must never reach the
// caller: it includes provider-internal accounting.
type Metadata struct {
	Usage TokenUsage
}

func (Metadata) isEvent() {}

// ErrorKind classifies the provider's four embedded error variants.
type ErrorKind string

const (
	KindInternal    ErrorKind = "internalServerException"
	KindModelStream ErrorKind = "modelStreamErrorException"
	KindValidation  ErrorKind = "validationException"
	KindThrottling  ErrorKind = "throttlingException"
)

// UpstreamError is a provider error embedded in the stream. It terminates
// the event sequence; the provider's message text is preserved verbatim.
type UpstreamError struct {
	Kind    ErrorKind
	Message string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// Stream is one open provider session. Next blocks for the next event and
// returns io.EOF when the provider closes the stream normally, or an
// *UpstreamError for an embedded terminal error.
type Stream interface {
	Next(ctx context.Context) (Event, error)
	Close() error
}

// Opener opens provider sessions. The gateway holds a single Opener for the
// process and passes it into the handler explicitly so tests can substitute
// a fake.
type Opener interface {
	Open(ctx context.Context, history []Message) (Stream, error)
}
