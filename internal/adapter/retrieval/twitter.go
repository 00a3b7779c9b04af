package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"factscout/internal/domain"
)

// SocialProfileName is the tool name the router exposes for profile posts.
const SocialProfileName = "social_profile"

const socialProfileDescription = "Fetch recent posts from a social-media profile. " +
	"Use when the question asks about someone's posts, updates, or timeline."

// profileExtractJS collects the visible timeline posts. Profile avatars and
// inline emoji images are noise, not content, so they are filtered out here.
const profileExtractJS = `JSON.stringify(Array.from(document.querySelectorAll('article')).map(a => {
	const textEl = a.querySelector('div[data-testid="tweetText"]');
	const nameEl = a.querySelector('div[data-testid="User-Name"] span');
	const timeEl = a.querySelector('time');
	const images = Array.from(a.querySelectorAll('img'))
		.map(img => img.src)
		.filter(src => src && !src.includes('profile_images') && !src.includes('emoji'));
	return {
		content: textEl ? textEl.textContent.trim() : '',
		name: nameEl ? nameEl.textContent.trim() : '',
		time: timeEl ? timeEl.textContent.trim() : '',
		iso: timeEl ? (timeEl.getAttribute('datetime') || '') : '',
		images: images
	};
}).filter(t => t.content))`

// scrapedPost is the wire shape produced by profileExtractJS. The iso field
// carries the absolute post time used for recency filtering; the relative
// time string is what surfaces to the caller.
type scrapedPost struct {
	Content string   `json:"content"`
	Name    string   `json:"name"`
	Time    string   `json:"time"`
	ISO     string   `json:"iso"`
	Images  []string `json:"images"`
}

var (
	// relativeWindowPattern matches "3 hours ago", "45 minutes", "2 days ago".
	relativeWindowPattern = regexp.MustCompile(`(?i)\b(\d+)\s*(minute|hour|day|week)s?\b(\s+ago)?`)
	// atHandlePattern matches an explicit @handle mention.
	atHandlePattern = regexp.MustCompile(`@(\w+)`)
	// prepositionHandlePattern matches the handle after from/by/of.
	prepositionHandlePattern = regexp.MustCompile(`(?i)\b(?:from|by|of)\s+@?(\w+)`)
)

// recencyWords maps lexical recency markers to a lookback window.
var recencyWords = map[string]time.Duration{
	"today":     24 * time.Hour,
	"yesterday": 48 * time.Hour,
	"latest":    24 * time.Hour,
	"recent":    24 * time.Hour,
	"recently":  24 * time.Hour,
	"morning":   24 * time.Hour,
	"tonight":   24 * time.Hour,
	"evening":   24 * time.Hour,
}

// handleNoiseWords are query tokens that can never be the profile handle.
var handleNoiseWords = map[string]bool{
	"tweet": true, "tweets": true, "post": true, "posts": true,
	"update": true, "updates": true, "timeline": true, "profile": true,
	"handle": true, "what": true, "show": true, "get": true, "find": true,
	"me": true, "the": true, "a": true, "an": true, "is": true, "are": true,
	"said": true, "on": true, "from": true, "by": true, "of": true,
	"latest": true, "recent": true, "recently": true, "today": true,
	"yesterday": true, "last": true, "ago": true, "morning": true,
	"tonight": true, "evening": true, "minute": true, "minutes": true,
	"hour": true, "hours": true, "day": true, "days": true,
	"week": true, "weeks": true, "twitter": true, "x": true,
}

// TwitterRetriever fetches timeline posts from a Twitter/X profile.
type TwitterRetriever struct {
	browser Browser
	baseURL string
	logger  *slog.Logger
	now     func() time.Time
}

var _ domain.Retriever = (*TwitterRetriever)(nil)

// NewTwitterRetriever creates a social-profile retriever over the given
// browser. baseURL defaults to https://x.com when empty.
func NewTwitterRetriever(browser Browser, baseURL string, logger *slog.Logger) *TwitterRetriever {
	if baseURL == "" {
		baseURL = "https://x.com"
	}
	return &TwitterRetriever{
		browser: browser,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		now:     time.Now,
	}
}

// Name implements domain.Retriever.
func (r *TwitterRetriever) Name() string { return SocialProfileName }

// Description implements domain.Retriever.
func (r *TwitterRetriever) Description() string { return socialProfileDescription }

// Schema implements domain.Retriever.
func (r *TwitterRetriever) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        SocialProfileName,
		Description: socialProfileDescription,
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {
					"type": "string",
					"description": "The profile handle, or the full question when it mentions a time frame"
				}
			},
			"required": ["query"],
			"additionalProperties": false
		}`),
	}
}

// Fetch implements domain.Retriever. The topic is either a bare handle or a
// full query; time-frame queries arrive verbatim and the recency window is
// parsed here, against the live clock, where it still means something.
func (r *TwitterRetriever) Fetch(ctx context.Context, topic string) (*domain.RetrievalResult, error) {
	handle := ExtractHandle(topic)
	if handle == "" {
		return domain.TextResult(
			"No profile handle could be derived from the query.",
			"profile lookup failed"), nil
	}
	window, hasWindow := ParseRecencyWindow(topic)

	url := r.baseURL + "/" + handle
	r.logger.Debug("fetching profile posts", "handle", handle, "url", url, "window", window)

	raw, err := r.browser.Extract(ctx, url, "article", profileExtractJS)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRetrievalFailed, err)
	}

	var scraped []scrapedPost
	if err := json.Unmarshal([]byte(raw), &scraped); err != nil {
		return nil, fmt.Errorf("%w: parse posts: %v", domain.ErrRetrievalFailed, err)
	}

	cutoff := r.now().Add(-window)
	posts := make([]domain.Post, 0, len(scraped))
	for _, sp := range scraped {
		if hasWindow && !withinWindow(sp.ISO, cutoff) {
			continue
		}
		posts = append(posts, domain.Post{
			Text:      sp.Content,
			Author:    sp.Name,
			Timestamp: sp.Time,
			ImageURLs: sp.Images,
		})
	}

	if len(posts) == 0 {
		return domain.PostsResult(nil, fmt.Sprintf("no content found for @%s", handle)), nil
	}
	return domain.PostsResult(posts, fmt.Sprintf("Recent posts from @%s", handle)), nil
}

// withinWindow reports whether the post time is at or after cutoff. Posts
// without a parseable absolute time are kept; dropping them would silently
// hide content over a formatting quirk.
func withinWindow(iso string, cutoff time.Time) bool {
	ts, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return true
	}
	return !ts.Before(cutoff)
}

// NormalizeHandle canonicalizes a profile handle: strip the @ marker, drop
// whitespace, lowercase.
func NormalizeHandle(handle string) string {
	handle = strings.TrimSpace(handle)
	handle = strings.TrimPrefix(handle, "@")
	handle = strings.ReplaceAll(handle, " ", "")
	return strings.ToLower(handle)
}

// ExtractHandle pulls the profile handle out of a topic string, which may be
// a bare handle or a whole natural-language query. Patterns are tried in
// order; the first match wins.
func ExtractHandle(topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ""
	}

	if m := atHandlePattern.FindStringSubmatch(topic); m != nil {
		return NormalizeHandle(m[1])
	}
	if m := prepositionHandlePattern.FindStringSubmatch(topic); m != nil {
		return NormalizeHandle(m[1])
	}

	fields := strings.Fields(topic)
	if len(fields) == 1 {
		return NormalizeHandle(fields[0])
	}

	// Last token that is neither filler vocabulary nor a number.
	for i := len(fields) - 1; i >= 0; i-- {
		word := strings.ToLower(strings.Trim(fields[i], "?.,!"))
		if handleNoiseWords[word] {
			continue
		}
		if _, err := strconv.Atoi(word); err == nil {
			continue
		}
		return NormalizeHandle(word)
	}
	return ""
}

// ParseRecencyWindow derives a lookback window from relative-time language in
// the topic. The second return is false when the topic carries no time frame.
func ParseRecencyWindow(topic string) (time.Duration, bool) {
	if m := relativeWindowPattern.FindStringSubmatch(topic); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			var unit time.Duration
			switch strings.ToLower(m[2]) {
			case "minute":
				unit = time.Minute
			case "hour":
				unit = time.Hour
			case "day":
				unit = 24 * time.Hour
			case "week":
				unit = 7 * 24 * time.Hour
			}
			return time.Duration(n) * unit, true
		}
	}

	for _, field := range strings.Fields(strings.ToLower(topic)) {
		word := strings.Trim(field, "?.,!")
		if window, ok := recencyWords[word]; ok {
			return window, true
		}
	}
	return 0, false
}
