package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHistory_Valid(t *testing.T) {
	body := []byte(`[
		{"role": "user", "content": [{"text": "hi"}]},
		{"role": "assistant", "content": [{"text": "hello"}, {"text": "again"}]}
	]`)

	history, err := ParseHistory(body)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, "hi", history[0].Content[0].Text)
	require.Len(t, history[1].Content, 2)
	assert.Equal(t, "again", history[1].Content[1].Text)
}

func TestParseHistory_EmptyArray(t *testing.T) {
	history, err := ParseHistory([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestParseHistory_BadJSON(t *testing.T) {
	_, err := ParseHistory([]byte(`{"role": "user"`))
	assert.ErrorIs(t, err, ErrBadJSON)
}

func TestParseHistory_FieldPaths(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantPath string
	}{
		{
			name:     "not an array",
			body:     `{"role": "user"}`,
			wantPath: "messages",
		},
		{
			name:     "item not an object",
			body:     `["hi"]`,
			wantPath: "messages.0",
		},
		{
			name:     "bad role",
			body:     `[{"role": "system", "content": [{"text": "x"}]}]`,
			wantPath: "messages.0.role",
		},
		{
			name:     "missing content",
			body:     `[{"role": "user"}]`,
			wantPath: "messages.0.content",
		},
		{
			name:     "content block not object",
			body:     `[{"role": "user", "content": ["x"]}]`,
			wantPath: "messages.0.content.0",
		},
		{
			name:     "text not a string",
			body:     `[{"role": "user", "content": [{"text": 5}]}]`,
			wantPath: "messages.0.content.0.text",
		},
		{
			name:     "second message offends",
			body:     `[{"role": "user", "content": [{"text": "ok"}]}, {"role": "user", "content": [{}]}]`,
			wantPath: "messages.1.content.0.text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHistory([]byte(tt.body))
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantPath, verr.Path)
			assert.Contains(t, verr.Error(), "Invalid value at '"+tt.wantPath+"'")
		})
	}
}
