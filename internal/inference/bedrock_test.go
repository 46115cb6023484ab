package inference

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestTranslateEvent_ContentBlockDelta(t *testing.T) {
	ev, ok := translateEvent(&brtypes.ConverseStreamOutputMemberContentBlockDelta{
		Value: brtypes.ContentBlockDeltaEvent{
			ContentBlockIndex: aws.Int32(0),
			Delta:             &brtypes.ContentBlockDeltaMemberText{Value: "Hello"},
		},
	})
	require.True(t, ok)

	content, isContent := ev.(Content)
	require.True(t, isContent)
	assert.Equal(t, "Hello", gjson.GetBytes(content.Payload, "contentBlockDelta.delta.text").String())
	assert.True(t, gjson.GetBytes(content.Payload, "contentBlockDelta.contentBlockIndex").Exists())
}

func TestTranslateEvent_MessageStart(t *testing.T) {
	ev, ok := translateEvent(&brtypes.ConverseStreamOutputMemberMessageStart{
		Value: brtypes.MessageStartEvent{Role: brtypes.ConversationRoleAssistant},
	})
	require.True(t, ok)

	content := ev.(Content)
	assert.Equal(t, "assistant", gjson.GetBytes(content.Payload, "messageStart.role").String())
}

func TestTranslateEvent_MetadataIsNotContent(t *testing.T) {
	ev, ok := translateEvent(&brtypes.ConverseStreamOutputMemberMetadata{
		Value: brtypes.ConverseStreamMetadataEvent{
			Usage: &brtypes.TokenUsage{
				InputTokens:  aws.Int32(3),
				OutputTokens: aws.Int32(2),
				TotalTokens:  aws.Int32(5),
			},
		},
	})
	require.True(t, ok)

	meta, isMeta := ev.(Metadata)
	require.True(t, isMeta)
	assert.Equal(t, uint64(3), meta.Usage.InputTokens)
	assert.Equal(t, uint64(2), meta.Usage.OutputTokens)
	assert.Equal(t, uint64(5), meta.Usage.TotalTokens)
}

func TestClassifyStreamErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ErrorKind
	}{
		{"internal", &brtypes.InternalServerException{Message: aws.String("boom")}, KindInternal},
		{"model stream", &brtypes.ModelStreamErrorException{Message: aws.String("bad model")}, KindModelStream},
		{"validation", &brtypes.ValidationException{Message: aws.String("bad input")}, KindValidation},
		{"throttling", &brtypes.ThrottlingException{Message: aws.String("slow down")}, KindThrottling},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := classifyStreamErr(tt.err)

			var up *UpstreamError
			require.ErrorAs(t, classified, &up)
			assert.Equal(t, tt.kind, up.Kind)
			// The provider message survives verbatim.
			assert.Equal(t, classified.Error(), up.Message)
		})
	}
}

func TestClassifyStreamErr_UnknownErrorPassesThrough(t *testing.T) {
	cause := errors.New("connection reset")
	classified := classifyStreamErr(cause)

	var up *UpstreamError
	assert.False(t, errors.As(classified, &up))
	assert.ErrorIs(t, classified, cause)
}
