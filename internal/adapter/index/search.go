package index

import (
	"math"
	"sort"
	"sync"

	"factscout/internal/domain"
)

// vecIndex is an in-memory vector index over the persisted records.
// Brute-force cosine similarity is fine at this scale; the corpus is scraped
// article chunks, not a web-scale index.
type vecIndex struct {
	mu      sync.RWMutex
	loaded  bool
	records map[string]domain.IndexRecord
}

func newVecIndex() *vecIndex {
	return &vecIndex{records: make(map[string]domain.IndexRecord)}
}

func (v *vecIndex) isLoaded() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loaded
}

// load replaces the index contents with records read from storage.
func (v *vecIndex) load(records []domain.IndexRecord) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.records = make(map[string]domain.IndexRecord, len(records))
	for _, rec := range records {
		v.records[rec.ID] = rec
	}
	v.loaded = true
}

// put adds or replaces records. Safe to call before load; the records are
// merged again when the full load happens.
func (v *vecIndex) put(records []domain.IndexRecord) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, rec := range records {
		v.records[rec.ID] = rec
	}
}

// search returns the topK records most similar to query by cosine similarity,
// best first. An empty titleFilter matches all records.
func (v *vecIndex) search(query []float32, topK int, titleFilter string) []domain.IndexMatch {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if topK <= 0 || len(query) == 0 {
		return nil
	}

	matches := make([]domain.IndexMatch, 0, len(v.records))
	for _, rec := range v.records {
		if titleFilter != "" && rec.Title != titleFilter {
			continue
		}
		score := cosineSimilarity(query, rec.Vector)
		matches = append(matches, domain.IndexMatch{Record: rec, Score: score})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Record.ID < matches[j].Record.ID
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
