package usecase

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenBudget truncates stage inputs so a single oversized retrieval cannot
// blow past the model's context window.
type TokenBudget struct {
	encoding *tiktoken.Tiktoken
	limit    int
}

// NewTokenBudget creates a budget of limit tokens using the cl100k_base
// encoding.
func NewTokenBudget(limit int) (*TokenBudget, error) {
	encoding, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
	if err != nil {
		return nil, fmt.Errorf("load token encoding: %w", err)
	}
	return &TokenBudget{encoding: encoding, limit: limit}, nil
}

// Truncate returns text cut to the token limit. Text within budget is
// returned unchanged. A nil budget disables truncation.
func (t *TokenBudget) Truncate(text string) string {
	if t == nil || t.limit <= 0 {
		return text
	}
	tokens := t.encoding.Encode(text, nil, nil)
	if len(tokens) <= t.limit {
		return text
	}
	return t.encoding.Decode(tokens[:t.limit])
}

// Count returns the token count of text, or its length in runes for a nil
// budget.
func (t *TokenBudget) Count(text string) int {
	if t == nil {
		return len([]rune(text))
	}
	return len(t.encoding.Encode(text, nil, nil))
}
