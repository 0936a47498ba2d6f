package llm

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter handles accurate token counting per model. Counts feed the
// LLM metrics and the sub-agent output envelope check.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
	model    string
	mu       sync.RWMutex
}

var (
	// Cache encodings to avoid repeated initialization
	encodingCache = make(map[string]*tiktoken.Tiktoken)
	cacheMu       sync.RWMutex
)

// NewTokenCounter creates a counter for a specific model. Unknown models
// fall back to the cl100k_base encoding, which keeps counts approximate but
// usable for reasoning models tiktoken has no table for.
func NewTokenCounter(model string) (*TokenCounter, error) {
	cacheMu.RLock()
	cached, exists := encodingCache[model]
	cacheMu.RUnlock()

	if exists {
		return &TokenCounter{
			encoding: cached,
			model:    model,
		}, nil
	}

	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("failed to get encoding: %w", err)
		}
	}

	cacheMu.Lock()
	encodingCache[model] = encoding
	cacheMu.Unlock()

	return &TokenCounter{
		encoding: encoding,
		model:    model,
	}, nil
}

// Count returns the token count for text. A counter without an encoding
// falls back to a rough four-characters-per-token estimate.
func (tc *TokenCounter) Count(text string) int {
	if tc == nil || tc.encoding == nil {
		return len(text) / 4
	}

	tc.mu.RLock()
	defer tc.mu.RUnlock()

	tokens := tc.encoding.Encode(text, nil, nil)
	return len(tokens)
}

// CountMessages counts tokens in a message list including per-message role
// overhead, following OpenAI's published counting format.
func (tc *TokenCounter) CountMessages(messages []Message) int {
	if tc == nil || tc.encoding == nil {
		total := 3
		for _, msg := range messages {
			total += 3 + len(msg.Role)/4 + len(msg.Content)/4
		}
		return total
	}

	tc.mu.RLock()
	defer tc.mu.RUnlock()

	// <|start|>role|message<|end|>
	tokensPerMessage := 3

	totalTokens := 0
	for _, msg := range messages {
		totalTokens += tokensPerMessage
		totalTokens += len(tc.encoding.Encode(msg.Role, nil, nil))
		totalTokens += len(tc.encoding.Encode(msg.Content, nil, nil))
	}

	// Every reply is primed with <|start|>assistant<|message|>
	totalTokens += 3

	return totalTokens
}

// Model returns the model name this counter is configured for.
func (tc *TokenCounter) Model() string {
	return tc.model
}
