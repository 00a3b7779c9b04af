package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"factscout/internal/domain"
	"factscout/internal/infra/tracer"
	"factscout/internal/usecase/eventbus"
)

// IngestorConfig bounds chunking and embedding concurrency.
type IngestorConfig struct {
	ChunkSize    int
	ChunkOverlap int
	// BatchSize caps concurrent context-generation+embedding operations.
	// Each batch completes fully before the next starts.
	BatchSize int
}

// Ingestor persists retrieved documents into the semantic index so repeat
// queries are served from the index instead of a live scrape. Each chunk is
// stored with a model-written context blurb; the blurb, not the raw chunk,
// is what gets embedded.
type Ingestor struct {
	provider domain.LLMProvider
	embedder domain.EmbeddingProvider
	index    domain.SemanticIndex
	cfg      IngestorConfig
	bus      *eventbus.Bus
	logger   *slog.Logger
}

// NewIngestor creates an ingestor. Zero-valued config fields fall back to
// chunk 600/overlap 200/batch 4.
func NewIngestor(provider domain.LLMProvider, embedder domain.EmbeddingProvider, index domain.SemanticIndex, cfg IngestorConfig, bus *eventbus.Bus, logger *slog.Logger) *Ingestor {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 600
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = 200
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 4
	}
	return &Ingestor{
		provider: provider,
		embedder: embedder,
		index:    index,
		cfg:      cfg,
		bus:      bus,
		logger:   logger,
	}
}

// Ingest chunks fullText, generates a context blurb and embedding per chunk,
// and upserts the records under the given source and title. Individual chunk
// failures are logged and skipped; the call fails only when nothing could be
// indexed at all.
func (i *Ingestor) Ingest(ctx context.Context, fullText, source, title string) error {
	ctx, span := tracer.StartSpan(ctx, "Ingestor.Ingest",
		trace.WithAttributes(tracer.StringAttr("title", title)))
	defer span.End()

	chunks := SplitText(fullText, i.cfg.ChunkSize, i.cfg.ChunkOverlap)
	if len(chunks) == 0 {
		return nil
	}

	now := time.Now().UTC()
	records := make([]domain.IndexRecord, len(chunks))
	ok := make([]bool, len(chunks))

	for start := 0; start < len(chunks); start += i.cfg.BatchSize {
		end := start + i.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		var wg sync.WaitGroup
		for j := start; j < end; j++ {
			wg.Add(1)
			go func(j int) {
				defer wg.Done()
				record, err := i.buildRecord(ctx, chunks[j], fullText, source, title, now)
				if err != nil {
					i.logger.Warn("chunk ingest failed", "chunk", j, "error", err)
					return
				}
				records[j] = record
				ok[j] = true
			}(j)
		}
		wg.Wait()
	}

	upsert := records[:0:0]
	for j, record := range records {
		if ok[j] {
			upsert = append(upsert, record)
		}
	}
	if len(upsert) == 0 {
		err := fmt.Errorf("%w: no chunks indexed for %q", domain.ErrIndexUpsert, title)
		tracer.RecordError(span, err)
		return err
	}

	if err := i.index.Upsert(ctx, upsert); err != nil {
		tracer.RecordError(span, err)
		return err
	}

	i.bus.Emit(ctx, domain.EventIngestCompleted, map[string]any{
		"title":  title,
		"chunks": len(upsert),
	})
	i.logger.Info("document ingested", "title", title, "chunks", len(upsert), "skipped", len(chunks)-len(upsert))
	tracer.SetOK(span)
	return nil
}

func (i *Ingestor) buildRecord(ctx context.Context, chunk, fullText, source, title string, now time.Time) (domain.IndexRecord, error) {
	contextText, err := i.chunkContext(ctx, chunk, fullText)
	if err != nil {
		return domain.IndexRecord{}, err
	}

	vectors, err := i.embedder.Embed(ctx, []string{contextText})
	if err != nil {
		return domain.IndexRecord{}, err
	}
	if len(vectors) != 1 {
		return domain.IndexRecord{}, fmt.Errorf("%w: expected 1 vector, got %d", domain.ErrEmbeddingFailed, len(vectors))
	}

	return domain.IndexRecord{
		ID:          ulid.Make().String(),
		Vector:      vectors[0],
		Text:        chunk,
		ContextText: contextText,
		Source:      source,
		Title:       title,
		Timestamp:   now,
	}, nil
}

// chunkContext asks the model for a short blurb situating the chunk within
// the full document.
func (i *Ingestor) chunkContext(ctx context.Context, chunk, fullText string) (string, error) {
	resp, err := i.provider.Chat(ctx, domain.ChatRequest{
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: fmt.Sprintf(chunkContextPromptFormat, fullText, chunk)},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}
