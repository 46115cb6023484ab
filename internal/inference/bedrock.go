package inference

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/tidwall/sjson"
)

// Bedrock opens ConverseStream sessions against AWS Bedrock. The client is
// constructed once per process and shared across requests.
type Bedrock struct {
	client   *bedrockruntime.Client
	modelID  string
	preamble string
}

// NewBedrock creates a session opener for the given model.
func NewBedrock(client *bedrockruntime.Client, modelID, systemPreamble string) *Bedrock {
	return &Bedrock{client: client, modelID: modelID, preamble: systemPreamble}
}

// Open starts one streaming call carrying the fixed system instruction and
// the full turn history. A permission failure opening the session maps to
// ErrAccessDenied; it is an earlier failure class than the provider's
// mid-stream terminal errors.
func (b *Bedrock) Open(ctx context.Context, history []Message) (Stream, error) {
	out, err := b.client.ConverseStream(ctx, &bedrockruntime.ConverseStreamInput{
		ModelId: aws.String(b.modelID),
		System: []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: b.preamble},
		},
		Messages: toProviderMessages(history),
	})
	if err != nil {
		var denied *brtypes.AccessDeniedException
		if errors.As(err, &denied) {
			return nil, ErrAccessDenied
		}
		return nil, fmt.Errorf("inference: open stream: %w", err)
	}
	return &bedrockStream{inner: out.GetStream()}, nil
}

func toProviderMessages(history []Message) []brtypes.Message {
	msgs := make([]brtypes.Message, 0, len(history))
	for _, m := range history {
		role := brtypes.ConversationRoleUser
		if m.Role == RoleAssistant {
			role = brtypes.ConversationRoleAssistant
		}
		content := make([]brtypes.ContentBlock, 0, len(m.Content))
		for _, c := range m.Content {
			content = append(content, &brtypes.ContentBlockMemberText{Value: c.Text})
		}
		msgs = append(msgs, brtypes.Message{Role: role, Content: content})
	}
	return msgs
}

type bedrockStream struct {
	inner *bedrockruntime.ConverseStreamEventStream
}

// Next pulls provider events until one is representable, translating the SDK
// union exhaustively. When the event channel closes, the stream's deferred
// error is classified: the four provider-embedded variants become
// *UpstreamError with the provider's message preserved verbatim; a clean
// close is io.EOF.
func (s *bedrockStream) Next(ctx context.Context) (Event, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case raw, ok := <-s.inner.Events():
			if !ok {
				if err := s.inner.Err(); err != nil {
					return nil, classifyStreamErr(err)
				}
				return nil, io.EOF
			}
			if ev, ok := translateEvent(raw); ok {
				return ev, nil
			}
			// Unknown union member: drop, never forward.
		}
	}
}

func (s *bedrockStream) Close() error {
	return s.inner.Close()
}

// translateEvent maps one SDK stream event to the normalized sum type and
// builds the caller-visible envelope for forwardable events.
func translateEvent(raw brtypes.ConverseStreamOutput) (Event, bool) {
	switch v := raw.(type) {
	case *brtypes.ConverseStreamOutputMemberMessageStart:
		payload, _ := sjson.SetBytes([]byte(`{}`), "messageStart.role", string(v.Value.Role))
		return Content{Payload: payload}, true

	case *brtypes.ConverseStreamOutputMemberContentBlockStart:
		payload, _ := sjson.SetBytes([]byte(`{}`), "contentBlockStart.contentBlockIndex", aws.ToInt32(v.Value.ContentBlockIndex))
		return Content{Payload: payload}, true

	case *brtypes.ConverseStreamOutputMemberContentBlockDelta:
		text, ok := v.Value.Delta.(*brtypes.ContentBlockDeltaMemberText)
		if !ok {
			return nil, false
		}
		payload, _ := sjson.SetBytes([]byte(`{}`), "contentBlockDelta.contentBlockIndex", aws.ToInt32(v.Value.ContentBlockIndex))
		payload, _ = sjson.SetBytes(payload, "contentBlockDelta.delta.text", text.Value)
		return Content{Payload: payload}, true

	case *brtypes.ConverseStreamOutputMemberContentBlockStop:
		payload, _ := sjson.SetBytes([]byte(`{}`), "contentBlockStop.contentBlockIndex", aws.ToInt32(v.Value.ContentBlockIndex))
		return Content{Payload: payload}, true

	case *brtypes.ConverseStreamOutputMemberMessageStop:
		payload, _ := sjson.SetBytes([]byte(`{}`), "messageStop.stopReason", string(v.Value.StopReason))
		return Content{Payload: payload}, true

	case *brtypes.ConverseStreamOutputMemberMetadata:
		usage := TokenUsage{}
		if u := v.Value.Usage; u != nil {
			usage.InputTokens = uint64(aws.ToInt32(u.InputTokens))
			usage.OutputTokens = uint64(aws.ToInt32(u.OutputTokens))
			usage.TotalTokens = uint64(aws.ToInt32(u.TotalTokens))
		}
		return Metadata{Usage: usage}, true

	default:
		return nil, false
	}
}

func classifyStreamErr(err error) error {
	var (
		internalErr    *brtypes.InternalServerException
		modelStreamErr *brtypes.ModelStreamErrorException
		validationErr  *brtypes.ValidationException
		throttlingErr  *brtypes.ThrottlingException
	)
	switch {
	case errors.As(err, &internalErr):
		return &UpstreamError{Kind: KindInternal, Message: aws.ToString(internalErr.Message)}
	case errors.As(err, &modelStreamErr):
		return &UpstreamError{Kind: KindModelStream, Message: aws.ToString(modelStreamErr.Message)}
	case errors.As(err, &validationErr):
		return &UpstreamError{Kind: KindValidation, Message: aws.ToString(validationErr.Message)}
	case errors.As(err, &throttlingErr):
		return &UpstreamError{Kind: KindThrottling, Message: aws.ToString(throttlingErr.Message)}
	}
	return fmt.Errorf("inference: stream: %w", err)
}
