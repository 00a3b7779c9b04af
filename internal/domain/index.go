package domain

import (
	"context"
	"time"
)

// IndexRecord is one stored (vector, text, context) triple in the semantic index.
type IndexRecord struct {
	ID          string    `json:"id"`
	Vector      []float32 `json:"values"`
	Text        string    `json:"text"`
	ContextText string    `json:"context_text"`
	Source      string    `json:"source"`
	Title       string    `json:"title,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// IndexMatch pairs a record with its similarity score for one query.
type IndexMatch struct {
	Record IndexRecord `json:"record"`
	Score  float64     `json:"score"`
}

// SemanticIndex is a vector-similarity store used as a first-pass cache
// before live retrieval.
type SemanticIndex interface {
	// Upsert stores records, replacing any with matching IDs.
	Upsert(ctx context.Context, records []IndexRecord) error
	// Query returns the topK most similar records by descending score.
	// A non-empty titleFilter restricts matches to records with that title.
	Query(ctx context.Context, vector []float32, topK int, titleFilter string) ([]IndexMatch, error)
}
