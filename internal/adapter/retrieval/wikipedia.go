package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"factscout/internal/domain"
)

// EncyclopediaName is the tool name the router exposes for article lookup.
const EncyclopediaName = "encyclopedia"

const encyclopediaDescription = "Fetch the introduction of an encyclopedia article about a topic. " +
	"Use for general-knowledge questions about people, places, events, or concepts."

// encyclopediaExtractJS pulls the first substantial paragraph of the article
// body. Short lead-in paragraphs (coordinates, hatnotes) are skipped.
const encyclopediaExtractJS = `JSON.stringify((() => {
	const paras = document.querySelectorAll('div.mw-parser-output > p');
	for (const p of paras) {
		const text = p.textContent.trim();
		if (text.length > 50) return text;
	}
	return '';
})())`

// footnotePattern matches bracketed citation residue such as [12] or [note 3].
var footnotePattern = regexp.MustCompile(`\[[^\[\]]{0,20}\]`)

// WikipediaRetriever fetches article introductions from Wikipedia.
type WikipediaRetriever struct {
	browser Browser
	baseURL string
	logger  *slog.Logger
}

var _ domain.Retriever = (*WikipediaRetriever)(nil)

// NewWikipediaRetriever creates an encyclopedia retriever over the given
// browser. baseURL defaults to English Wikipedia when empty.
func NewWikipediaRetriever(browser Browser, baseURL string, logger *slog.Logger) *WikipediaRetriever {
	if baseURL == "" {
		baseURL = "https://en.wikipedia.org"
	}
	return &WikipediaRetriever{
		browser: browser,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Name implements domain.Retriever.
func (r *WikipediaRetriever) Name() string { return EncyclopediaName }

// Description implements domain.Retriever.
func (r *WikipediaRetriever) Description() string { return encyclopediaDescription }

// Schema implements domain.Retriever.
func (r *WikipediaRetriever) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        EncyclopediaName,
		Description: encyclopediaDescription,
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {
					"type": "string",
					"description": "The topic to look up, e.g. a person or event name"
				}
			},
			"required": ["query"],
			"additionalProperties": false
		}`),
	}
}

// Fetch implements domain.Retriever. A missing or empty article is a soft
// failure reported as text; only browser-level failures return an error.
func (r *WikipediaRetriever) Fetch(ctx context.Context, topic string) (*domain.RetrievalResult, error) {
	title := articleTitle(topic)
	if title == "" {
		return domain.TextResult(
			"No encyclopedia topic could be derived from the query.",
			"encyclopedia lookup failed"), nil
	}

	url := r.baseURL + "/wiki/" + title
	r.logger.Debug("fetching encyclopedia article", "title", title, "url", url)

	raw, err := r.browser.Extract(ctx, url, "div.mw-parser-output", encyclopediaExtractJS)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRetrievalFailed, err)
	}

	var paragraph string
	if jsonErr := json.Unmarshal([]byte(raw), &paragraph); jsonErr != nil {
		paragraph = raw
	}
	paragraph = cleanArticleText(paragraph)

	if paragraph == "" {
		return domain.TextResult(
			fmt.Sprintf("No encyclopedia article found for %q.", topic),
			"encyclopedia article not found"), nil
	}

	return domain.TextResult(paragraph, "Encyclopedia: "+strings.ReplaceAll(title, "_", " ")), nil
}

// articleTitle converts a free-text topic into Wikipedia's Title_Case URL
// form: lowercase, then each word capitalized, words joined with underscores.
func articleTitle(topic string) string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(topic)))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, "_")
}

// cleanArticleText strips citation markers and collapses whitespace.
func cleanArticleText(text string) string {
	text = footnotePattern.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}
