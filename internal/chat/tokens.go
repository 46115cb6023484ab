package chat

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/halcyonai/chat-gateway/internal/inference"
)

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// EstimateTokens counts the tokens the conversation history will consume,
// using the cl100k_base encoding. The count is an estimate: the provider's
// own tokenizer and message framing differ slightly, and the real charge
// comes back in stream metadata. Falls back to a bytes/4 heuristic if the
// encoding cannot be loaded.
func EstimateTokens(history []inference.Message) int {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})

	total := 0
	for _, msg := range history {
		for _, block := range msg.Content {
			if encoding != nil {
				total += len(encoding.Encode(block.Text, nil, nil))
			} else {
				total += len(block.Text) / 4
			}
		}
		// Rough per-message framing overhead.
		total += 4
	}
	return total
}
