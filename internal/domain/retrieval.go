package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ToolSchema describes a retriever for the LLM function-calling protocol.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolCall represents an LLM's request to invoke a retriever.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ResultKind discriminates the two shapes a retrieval can produce.
type ResultKind string

const (
	// ResultText is prose content (an encyclopedia extract, an error
	// explanation, a direct model answer).
	ResultText ResultKind = "text"
	// ResultPosts is a structured list of social-profile posts.
	ResultPosts ResultKind = "posts"
)

// Post is a single social-profile post.
type Post struct {
	Text      string   `json:"content"`
	Author    string   `json:"name"`
	Timestamp string   `json:"time"`
	ImageURLs []string `json:"images"`
}

// RetrievalResult is the tagged outcome of a retriever invocation.
// Exactly one of Text or Posts is meaningful, selected by Kind.
// "Not found" is represented as a descriptive Text result, never an error.
type RetrievalResult struct {
	Kind  ResultKind `json:"kind"`
	Text  string     `json:"text,omitempty"`
	Posts []Post     `json:"posts,omitempty"`
	Label string     `json:"label"`
}

// TextResult builds a prose retrieval result.
func TextResult(text, label string) *RetrievalResult {
	return &RetrievalResult{Kind: ResultText, Text: text, Label: label}
}

// PostsResult builds a structured posts retrieval result.
func PostsResult(posts []Post, label string) *RetrievalResult {
	return &RetrievalResult{Kind: ResultPosts, Posts: posts, Label: label}
}

// Flatten renders the result as plain text suitable for pipeline input.
func (r *RetrievalResult) Flatten() string {
	switch r.Kind {
	case ResultPosts:
		if len(r.Posts) == 0 {
			return fmt.Sprintf("%s: no posts found", r.Label)
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s\n", r.Label)
		for _, p := range r.Posts {
			fmt.Fprintf(&sb, "- %s (%s): %s\n", p.Author, p.Timestamp, p.Text)
		}
		return sb.String()
	default:
		return r.Text
	}
}

// Empty reports whether the result carries no usable content.
func (r *RetrievalResult) Empty() bool {
	if r == nil {
		return true
	}
	if r.Kind == ResultPosts {
		return len(r.Posts) == 0
	}
	return strings.TrimSpace(r.Text) == ""
}

// Retriever fetches content for a topic from one named source.
type Retriever interface {
	Name() string
	Description() string
	Schema() ToolSchema
	// Fetch retrieves content for the topic. Soft failures (profile or page
	// not found, extraction failed) come back as a descriptive text result;
	// an error indicates unrecoverable infrastructure failure.
	Fetch(ctx context.Context, topic string) (*RetrievalResult, error)
}
