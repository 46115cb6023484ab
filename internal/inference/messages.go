package inference

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// Conversation roles accepted from callers.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ContentBlock is one piece of a turn. Only text blocks are supported.
type ContentBlock struct {
	Text string `json:"text"`
}

// Message is one conversation turn as sent by the caller. The provider is
// stateless across calls, so the full turn history arrives on every request.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ValidationError names the first offending field of a rejected request
// body. The path uses dotted form, e.g. "messages.0.content.1.text".
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Invalid value at '%s': %s", e.Path, e.Reason)
}

// ErrBadJSON is returned when the request body is not parseable JSON at all.
var ErrBadJSON = &ValidationError{Path: "messages", Reason: "Invalid JSON format in the request body"}

// ParseHistory validates the raw request body as a JSON array of turns and
// converts it. Validation stops at the first offending field.
func ParseHistory(body []byte) ([]Message, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrBadJSON
	}

	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, &ValidationError{Path: "messages", Reason: "Expected array"}
	}

	items := root.Array()
	history := make([]Message, 0, len(items))
	for i, item := range items {
		path := fmt.Sprintf("messages.%d", i)
		if !item.IsObject() {
			return nil, &ValidationError{Path: path, Reason: "Expected object"}
		}

		role := item.Get("role")
		switch role.String() {
		case RoleUser, RoleAssistant:
		default:
			return nil, &ValidationError{
				Path:   path + ".role",
				Reason: fmt.Sprintf("Invalid enum value. Expected 'user' | 'assistant', received '%s'", role.String()),
			}
		}

		content := item.Get("content")
		if !content.IsArray() {
			return nil, &ValidationError{Path: path + ".content", Reason: "Expected array"}
		}

		msg := Message{Role: role.String()}
		for j, block := range content.Array() {
			blockPath := fmt.Sprintf("%s.content.%d", path, j)
			if !block.IsObject() {
				return nil, &ValidationError{Path: blockPath, Reason: "Expected object"}
			}
			text := block.Get("text")
			if text.Type != gjson.String {
				return nil, &ValidationError{Path: blockPath + ".text", Reason: "Expected string"}
			}
			msg.Content = append(msg.Content, ContentBlock{Text: text.String()})
		}
		history = append(history, msg)
	}
	return history, nil
}
