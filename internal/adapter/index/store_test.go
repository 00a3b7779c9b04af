package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factscout/internal/domain"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	store, err := New(dbPath, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, dbPath
}

func record(id, title string, vec []float32) domain.IndexRecord {
	return domain.IndexRecord{
		ID:        id,
		Vector:    vec,
		Text:      "text for " + id,
		Source:    "wikipedia",
		Title:     title,
		Timestamp: time.Now().UTC(),
	}
}

func TestStoreUpsertAndQuery(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	err := store.Upsert(ctx, []domain.IndexRecord{
		record("a", "Alpha", []float32{1, 0, 0}),
		record("b", "Beta", []float32{0, 1, 0}),
		record("c", "Alpha", []float32{0.9, 0.1, 0}),
	})
	require.NoError(t, err)

	matches, err := store.Query(ctx, []float32{1, 0, 0}, 2, "")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].Record.ID)
	assert.Equal(t, "c", matches[1].Record.ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestStoreQueryTitleFilter(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	err := store.Upsert(ctx, []domain.IndexRecord{
		record("a", "Alpha", []float32{1, 0, 0}),
		record("b", "Beta", []float32{1, 0, 0}),
	})
	require.NoError(t, err)

	matches, err := store.Query(ctx, []float32{1, 0, 0}, 10, "Beta")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b", matches[0].Record.ID)
}

func TestStoreUpsertOverwrites(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []domain.IndexRecord{record("a", "Old", []float32{1, 0, 0})}))

	updated := record("a", "New", []float32{0, 1, 0})
	updated.Text = "updated text"
	require.NoError(t, store.Upsert(ctx, []domain.IndexRecord{updated}))

	matches, err := store.Query(ctx, []float32{0, 1, 0}, 1, "")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "New", matches[0].Record.Title)
	assert.Equal(t, "updated text", matches[0].Record.Text)
}

func TestStoreSurvivesReopen(t *testing.T) {
	store, dbPath := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []domain.IndexRecord{record("a", "Alpha", []float32{1, 0, 0})}))
	require.NoError(t, store.Close())

	reopened, err := New(dbPath, slog.Default())
	require.NoError(t, err)
	defer reopened.Close()

	matches, err := reopened.Query(ctx, []float32{1, 0, 0}, 5, "")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].Record.ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
}

func TestStoreEmptyUpsertAndQuery(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, nil))

	matches, err := store.Query(ctx, []float32{1, 0, 0}, 5, "")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Zero(t, cosineSimilarity(nil, nil))
}
