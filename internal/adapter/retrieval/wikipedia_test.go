package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factscout/internal/domain"
)

// fakeBrowser returns canned script results keyed by nothing; the last call's
// inputs are recorded for assertions.
type fakeBrowser struct {
	result  string
	err     error
	lastURL string
}

func (f *fakeBrowser) Extract(_ context.Context, url, _, _ string) (string, error) {
	f.lastURL = url
	return f.result, f.err
}

func (f *fakeBrowser) Close() error { return nil }
func (f *fakeBrowser) Name() string { return "fake" }

func jsonString(t *testing.T, s string) string {
	t.Helper()
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	return string(raw)
}

func TestArticleTitle(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"nelson mandela", "Nelson_Mandela"},
		{"  alan   turing ", "Alan_Turing"},
		{"CSS", "Css"},
		{"go (programming language)", "Go_(programming_language)"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, articleTitle(tt.topic), "topic %q", tt.topic)
	}
}

func TestCleanArticleText(t *testing.T) {
	in := "Alan Turing[1] was a mathematician.[2][note 3]  He worked\n at Bletchley."
	want := "Alan Turing was a mathematician. He worked at Bletchley."
	assert.Equal(t, want, cleanArticleText(in))
}

func TestWikipediaFetch(t *testing.T) {
	browser := &fakeBrowser{
		result: jsonString(t, "Nelson Mandela[1] was a South African anti-apartheid activist."),
	}
	r := NewWikipediaRetriever(browser, "", slog.Default())

	result, err := r.Fetch(context.Background(), "nelson mandela")
	require.NoError(t, err)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Nelson_Mandela", browser.lastURL)
	assert.Equal(t, domain.ResultText, result.Kind)
	assert.Equal(t, "Nelson Mandela was a South African anti-apartheid activist.", result.Text)
	assert.Equal(t, "Encyclopedia: Nelson Mandela", result.Label)
}

func TestWikipediaFetchNoArticle(t *testing.T) {
	browser := &fakeBrowser{result: jsonString(t, "")}
	r := NewWikipediaRetriever(browser, "", slog.Default())

	result, err := r.Fetch(context.Background(), "xyzzy nonexistent")
	require.NoError(t, err)
	assert.Equal(t, domain.ResultText, result.Kind)
	assert.Contains(t, result.Text, "No encyclopedia article found")
}

func TestWikipediaFetchBrowserError(t *testing.T) {
	browser := &fakeBrowser{err: errors.New("tab crashed")}
	r := NewWikipediaRetriever(browser, "", slog.Default())

	_, err := r.Fetch(context.Background(), "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRetrievalFailed)
}

func TestWikipediaFetchEmptyTopic(t *testing.T) {
	r := NewWikipediaRetriever(&fakeBrowser{}, "", slog.Default())

	result, err := r.Fetch(context.Background(), "   ")
	require.NoError(t, err)
	assert.Contains(t, result.Text, "No encyclopedia topic")
}

func TestWikipediaSchema(t *testing.T) {
	r := NewWikipediaRetriever(&fakeBrowser{}, "", slog.Default())
	schema := r.Schema()
	assert.Equal(t, EncyclopediaName, schema.Name)
	assert.True(t, json.Valid(schema.Parameters))
}
