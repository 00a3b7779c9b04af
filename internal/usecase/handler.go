package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"factscout/internal/domain"
	"factscout/internal/infra/tracer"
	"factscout/internal/usecase/eventbus"
)

// HandlerConfig tunes the semantic index lookup.
type HandlerConfig struct {
	TopK int
	// MinScore is the cosine similarity cutoff below which index matches are
	// treated as noise.
	MinScore float64
}

// HandlerDeps are the collaborators injected into the query handler.
type HandlerDeps struct {
	Provider   domain.LLMProvider
	Embedder   domain.EmbeddingProvider
	Index      domain.SemanticIndex
	Extractor  *Extractor
	Router     *Router
	Pipeline   *Pipeline
	Ingestor   *Ingestor
	Retrievers []domain.Retriever
	Bus        *eventbus.Bus
	Logger     *slog.Logger
}

// Handler orchestrates a query end to end: classify, try the semantic index,
// fall back to live retrieval, fall back to the model's own knowledge, and
// run whatever text came out through the processing pipeline.
type Handler struct {
	deps HandlerDeps
	cfg  HandlerConfig
}

// NewHandler creates the query handler. Zero-valued config fields fall back
// to topK 5 and min score 0.35.
func NewHandler(deps HandlerDeps, cfg HandlerConfig) *Handler {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = 0.35
	}
	return &Handler{deps: deps, cfg: cfg}
}

// Handle answers one query. Soft retrieval failures flow through the
// pipeline as text; hard failures return an error after an event is
// published.
func (h *Handler) Handle(ctx context.Context, query string) (*domain.Report, error) {
	ctx, span := tracer.StartSpan(ctx, "Handler.Handle")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		err := domain.NewDomainError("Handler.Handle", domain.ErrInvalidInput, "query must not be empty")
		tracer.RecordError(span, err)
		return nil, err
	}

	h.deps.Bus.Emit(ctx, domain.EventQueryReceived, map[string]string{"query": query})

	report, err := h.handle(ctx, query)
	if err != nil {
		h.deps.Bus.Emit(ctx, domain.EventQueryError, map[string]string{"error": err.Error()})
		tracer.RecordError(span, err)
		return nil, err
	}

	h.deps.Bus.Emit(ctx, domain.EventQueryCompleted, nil)
	tracer.SetOK(span)
	return report, nil
}

func (h *Handler) handle(ctx context.Context, query string) (*domain.Report, error) {
	ext := h.deps.Extractor.Extract(query)
	h.deps.Logger.Debug("query classified",
		"tool", string(ext.Tool), "argument", ext.Argument, "recency", ext.Recency)

	// Recency queries bypass the index: cached content cannot answer "what
	// happened 3 hours ago". The structured posts are analysis-ready, so the
	// pipeline is skipped too.
	if ext.Recency {
		route, err := h.deps.Router.Route(ctx, query, h.retrieversFor(ToolSocialProfile))
		if err != nil {
			return nil, err
		}
		if route.Retrieval != nil {
			return &domain.Report{Direct: route.Retrieval}, nil
		}
		return &domain.Report{Direct: domain.TextResult("No tool result", "router")}, nil
	}

	matches, err := h.queryIndex(ctx, query, ext.Argument)
	if err != nil {
		return nil, err
	}

	if len(matches) > 0 {
		h.deps.Bus.Emit(ctx, domain.EventIndexHit, map[string]any{"matches": len(matches)})
		decision, err := h.groundedAnswer(ctx, query, matches)
		if err != nil {
			return nil, err
		}
		if decision.Answered {
			workflow, err := h.deps.Pipeline.Process(ctx, decision.Text)
			if err != nil {
				return nil, err
			}
			return &domain.Report{OriginalResponse: decision.Text, Workflow: workflow}, nil
		}
		h.deps.Logger.Debug("indexed context refused, falling back to live retrieval")
	} else {
		h.deps.Bus.Emit(ctx, domain.EventIndexMiss, nil)
	}

	return h.liveFallback(ctx, query, ext)
}

// liveFallback is tiers two and three: the tool router, then (for queries
// that hit the domain keyword set) the model's own knowledge.
func (h *Handler) liveFallback(ctx context.Context, query string, ext Extraction) (*domain.Report, error) {
	retrievers := h.deps.Retrievers
	if ext.Tool == ToolSocialProfile {
		retrievers = h.retrieversFor(ToolSocialProfile)
	}

	route, err := h.deps.Router.Route(ctx, query, retrievers)
	if err != nil {
		return nil, err
	}

	if route.Retrieval.Empty() && ext.Keyword != "" {
		answer, err := h.expertAnswer(ctx, query)
		if err != nil {
			return nil, err
		}
		workflow, err := h.deps.Pipeline.Process(ctx, answer)
		if err != nil {
			return nil, err
		}
		return &domain.Report{OriginalResponse: answer, Workflow: workflow}, nil
	}

	toolText := "No tool result"
	if route.Retrieval != nil {
		toolText = route.Retrieval.Flatten()
		h.maybeIngest(ctx, route, ext)
	}

	// Degenerate "no information found" text still goes through the
	// pipeline; it reports the absence of activity rather than erroring.
	workflow, err := h.deps.Pipeline.Process(ctx, toolText)
	if err != nil {
		return nil, err
	}
	return &domain.Report{OriginalResponse: toolText, Workflow: workflow}, nil
}

// maybeIngest persists a successful encyclopedia retrieval so the next
// matching query is answered from the index. Best effort: failures are
// logged, never surfaced.
func (h *Handler) maybeIngest(ctx context.Context, route *RouteResult, ext Extraction) {
	if h.deps.Ingestor == nil || route.ToolName != string(ToolEncyclopedia) {
		return
	}
	if route.Retrieval.Kind != domain.ResultText || route.Retrieval.Empty() {
		return
	}
	if err := h.deps.Ingestor.Ingest(ctx, route.Retrieval.Text, "wikipedia", ext.Argument); err != nil {
		h.deps.Logger.Warn("retrieval ingest failed", "title", ext.Argument, "error", err)
	}
}

// queryIndex runs two similarity lookups, one for the raw query and one for
// the cleaned argument, then merges them de-duplicated by record ID, drops
// low-score matches, and keeps the top K.
func (h *Handler) queryIndex(ctx context.Context, query, argument string) ([]domain.IndexMatch, error) {
	texts := []string{query}
	if argument != "" && argument != query {
		texts = append(texts, argument)
	}

	vectors, err := h.deps.Embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var merged []domain.IndexMatch
	for _, vector := range vectors {
		matches, err := h.deps.Index.Query(ctx, vector, h.cfg.TopK, "")
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			if match.Score < h.cfg.MinScore || seen[match.Record.ID] {
				continue
			}
			seen[match.Record.ID] = true
			merged = append(merged, match)
		}
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > h.cfg.TopK {
		merged = merged[:h.cfg.TopK]
	}
	return merged, nil
}

// groundedAnswer asks the model to answer strictly from the retrieved
// context, then classifies the reply as an answer or a refusal.
func (h *Handler) groundedAnswer(ctx context.Context, query string, matches []domain.IndexMatch) (domain.ContextDecision, error) {
	var sb strings.Builder
	for _, match := range matches {
		if match.Record.ContextText != "" {
			sb.WriteString(match.Record.ContextText)
			sb.WriteString("\n")
		}
		sb.WriteString(match.Record.Text)
		sb.WriteString("\n\n")
	}

	resp, err := h.deps.Provider.Chat(ctx, domain.ChatRequest{
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: groundedAnswerSystemPrompt},
			{Role: domain.RoleUser, Content: fmt.Sprintf("Context:\n%s\nQuestion: %s", sb.String(), query)},
		},
	})
	if err != nil {
		return domain.ContextDecision{}, err
	}
	return ParseContextDecision(resp.Message.Content), nil
}

// expertAnswer is the third fallback tier: the model answers from its own
// knowledge as a domain expert.
func (h *Handler) expertAnswer(ctx context.Context, query string) (string, error) {
	resp, err := h.deps.Provider.Chat(ctx, domain.ChatRequest{
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: domainExpertSystemPrompt},
			{Role: domain.RoleUser, Content: query},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

func (h *Handler) retrieversFor(tool ToolKind) []domain.Retriever {
	var out []domain.Retriever
	for _, retriever := range h.deps.Retrievers {
		if retriever.Name() == string(tool) {
			out = append(out, retriever)
		}
	}
	return out
}

// ParseContextDecision classifies a grounded-answer reply. This is the only
// place the refusal sentinel is interpreted; everything downstream branches
// on the tag.
func ParseContextDecision(answer string) domain.ContextDecision {
	trimmed := strings.TrimSpace(answer)
	if strings.Contains(trimmed, refusalSentinel) {
		return domain.ContextDecision{Answered: false}
	}
	return domain.ContextDecision{Answered: true, Text: trimmed}
}
