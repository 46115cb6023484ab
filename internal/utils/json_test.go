package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalNoEscape(t *testing.T) {
	out, err := MarshalNoEscape(map[string]string{"text": "<b>&</b>"})
	require.NoError(t, err)
	assert.Equal(t, `{"text":"<b>&</b>"}`, string(out))
}

func TestErrorValue(t *testing.T) {
	assert.Equal(t, `{"error":"Too many requests"}`, string(ErrorValue("Too many requests")))
	// Quotes in the message stay valid JSON.
	assert.Equal(t, `{"error":"bad \"input\""}`, string(ErrorValue(`bad "input"`)))
}
