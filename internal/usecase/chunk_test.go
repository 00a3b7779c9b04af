package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTextShortInput(t *testing.T) {
	chunks := SplitText("short text", 600, 200)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])
}

func TestSplitTextEmpty(t *testing.T) {
	assert.Nil(t, SplitText("", 600, 200))
	assert.Nil(t, SplitText("   \n  ", 600, 200))
}

func TestSplitTextRespectsSizeAndCoversInput(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("The quick brown fox jumps over the lazy dog. ")
	}
	text := strings.TrimSpace(sb.String())

	chunks := SplitText(text, 200, 50)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 260, "chunk %d well over size", i)
		assert.NotEmpty(t, chunk)
	}

	// Every word of the input appears in some chunk.
	joined := strings.Join(chunks, " ")
	for _, word := range strings.Fields(text) {
		assert.Contains(t, joined, word)
	}
}

func TestSplitTextOverlap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		sb.WriteString("word")
		sb.WriteString(" ")
	}
	chunks := SplitText(strings.TrimSpace(sb.String()), 60, 20)
	require.Greater(t, len(chunks), 1)

	// Adjacent chunks share trailing/leading content.
	for i := 1; i < len(chunks); i++ {
		head := strings.Fields(chunks[i])[0]
		assert.Contains(t, chunks[i-1], head)
	}
}

func TestSplitTextPrefersParagraphBoundaries(t *testing.T) {
	text := "First paragraph here.\n\nSecond paragraph here.\n\nThird paragraph here."
	chunks := SplitText(text, 30, 0)
	require.GreaterOrEqual(t, len(chunks), 3)
	assert.Equal(t, "First paragraph here.", chunks[0])
}

func TestSplitTextZeroSize(t *testing.T) {
	assert.Nil(t, SplitText("anything", 0, 0))
}

func TestTokenBudgetNilPassthrough(t *testing.T) {
	var budget *TokenBudget
	assert.Equal(t, "unchanged", budget.Truncate("unchanged"))
	assert.Equal(t, 9, budget.Count("unchanged"))
}
