package polish

import (
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts tokens with tiktoken and falls back to a
// character heuristic when the encoding cannot be loaded (offline).
type TokenCounter struct {
	mu      sync.Mutex
	encoder *tiktoken.Tiktoken
}

var (
	defaultCounter     *TokenCounter
	defaultCounterOnce sync.Once
)

// DefaultCounter returns a shared cl100k_base counter.
func DefaultCounter() *TokenCounter {
	defaultCounterOnce.Do(func() {
		defaultCounter = NewTokenCounter("cl100k_base")
	})
	return defaultCounter
}

// NewTokenCounter loads encoding; a load failure selects the heuristic.
func NewTokenCounter(encoding string) *TokenCounter {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return &TokenCounter{}
	}
	return &TokenCounter{encoder: enc}
}

// Precise reports whether tiktoken is in use.
func (c *TokenCounter) Precise() bool { return c.encoder != nil }

// Count returns the token count of text.
func (c *TokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c.encoder == nil {
		return heuristicCount(text)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.encoder.Encode(text, nil, nil))
}

// roughly four characters per token for English text
func heuristicCount(text string) int {
	n := len([]rune(text))/4 + 1
	return n
}
