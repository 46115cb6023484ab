package utils

import (
	"bytes"
	"encoding/json"
)

// MarshalNoEscape is json.Marshal with HTML escaping off. Error text that
// the gateway puts in response bodies can contain '<' and '&' from model
// output; those must reach the client as written, not as <.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Encode appends a newline that json.Marshal would not.
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// ErrorValue builds the {"error": msg} JSON value the gateway emits both as
// pre-commit response bodies and as in-stream terminal values.
func ErrorValue(msg string) []byte {
	payload, err := MarshalNoEscape(map[string]string{"error": msg})
	if err != nil {
		// map[string]string cannot fail to marshal; keep the contract total.
		return []byte(`{"error":"Internal Error"}`)
	}
	return payload
}
