package retrieval

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factscout/internal/domain"
)

func TestNormalizeHandle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"@ElonMusk", "elonmusk"},
		{"  elon musk ", "elonmusk"},
		{"NASA", "nasa"},
		{"@ nasa", "nasa"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeHandle(tt.in), "input %q", tt.in)
	}
}

func TestExtractHandle(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"elonmusk", "elonmusk"},
		{"@NASA", "nasa"},
		{"tweets from elonmusk 3 hours ago", "elonmusk"},
		{"show me the latest posts by @nasa", "nasa"},
		{"what did sama post today", "sama"},
		{"latest tweets", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractHandle(tt.topic), "topic %q", tt.topic)
	}
}

func TestParseRecencyWindow(t *testing.T) {
	tests := []struct {
		topic      string
		wantWindow time.Duration
		wantOK     bool
	}{
		{"tweets from elonmusk 3 hours ago", 3 * time.Hour, true},
		{"posts from the last 45 minutes", 45 * time.Minute, true},
		{"2 days ago", 48 * time.Hour, true},
		{"1 week", 7 * 24 * time.Hour, true},
		{"what did nasa post today?", 24 * time.Hour, true},
		{"posts from yesterday", 48 * time.Hour, true},
		{"tweets from elonmusk", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		window, ok := ParseRecencyWindow(tt.topic)
		assert.Equal(t, tt.wantOK, ok, "topic %q", tt.topic)
		assert.Equal(t, tt.wantWindow, window, "topic %q", tt.topic)
	}
}

func scrapedJSON(t *testing.T, posts []scrapedPost) string {
	t.Helper()
	raw, err := json.Marshal(posts)
	require.NoError(t, err)
	return string(raw)
}

func TestTwitterFetch(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	browser := &fakeBrowser{result: scrapedJSON(t, []scrapedPost{
		{
			Content: "Launch confirmed for Friday.",
			Name:    "NASA",
			Time:    "2h",
			ISO:     now.Add(-2 * time.Hour).Format(time.RFC3339),
			Images:  []string{"https://pbs.twimg.com/media/abc.jpg"},
		},
		{
			Content: "Throwback to last year's mission.",
			Name:    "NASA",
			Time:    "3d",
			ISO:     now.Add(-72 * time.Hour).Format(time.RFC3339),
		},
	})}

	r := NewTwitterRetriever(browser, "", slog.Default())
	r.now = func() time.Time { return now }

	result, err := r.Fetch(context.Background(), "@NASA")
	require.NoError(t, err)
	assert.Equal(t, "https://x.com/nasa", browser.lastURL)
	assert.Equal(t, domain.ResultPosts, result.Kind)
	require.Len(t, result.Posts, 2)
	assert.Equal(t, "Launch confirmed for Friday.", result.Posts[0].Text)
	assert.Equal(t, "NASA", result.Posts[0].Author)
	assert.Equal(t, "2h", result.Posts[0].Timestamp)
	assert.Equal(t, []string{"https://pbs.twimg.com/media/abc.jpg"}, result.Posts[0].ImageURLs)
}

func TestTwitterFetchRecencyWindowFiltersOldPosts(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	browser := &fakeBrowser{result: scrapedJSON(t, []scrapedPost{
		{Content: "fresh", Name: "NASA", Time: "1h", ISO: now.Add(-time.Hour).Format(time.RFC3339)},
		{Content: "stale", Name: "NASA", Time: "5h", ISO: now.Add(-5 * time.Hour).Format(time.RFC3339)},
		{Content: "unparseable time kept", Name: "NASA", Time: "??", ISO: "not-a-time"},
	})}

	r := NewTwitterRetriever(browser, "", slog.Default())
	r.now = func() time.Time { return now }

	result, err := r.Fetch(context.Background(), "tweets from nasa 3 hours ago")
	require.NoError(t, err)
	require.Len(t, result.Posts, 2)
	assert.Equal(t, "fresh", result.Posts[0].Text)
	assert.Equal(t, "unparseable time kept", result.Posts[1].Text)
}

func TestTwitterFetchNoPosts(t *testing.T) {
	browser := &fakeBrowser{result: "[]"}
	r := NewTwitterRetriever(browser, "", slog.Default())

	result, err := r.Fetch(context.Background(), "ghosttown")
	require.NoError(t, err)
	assert.Equal(t, domain.ResultPosts, result.Kind)
	assert.Empty(t, result.Posts)
	assert.Equal(t, "no content found for @ghosttown", result.Label)
	assert.True(t, result.Empty())
}

func TestTwitterFetchNoHandle(t *testing.T) {
	r := NewTwitterRetriever(&fakeBrowser{}, "", slog.Default())

	result, err := r.Fetch(context.Background(), "latest tweets")
	require.NoError(t, err)
	assert.Equal(t, domain.ResultText, result.Kind)
	assert.Contains(t, result.Text, "No profile handle")
}
