package usecase

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factscout/internal/domain"
)

type handlerFixture struct {
	handler  *Handler
	provider *scriptedProvider
	embedder *fakeEmbedder
	index    *fakeIndex
	wiki     *fakeRetriever
	social   *fakeRetriever
}

func newHandlerFixture(t *testing.T, provider *scriptedProvider) *handlerFixture {
	t.Helper()
	bus := testBus(t)
	logger := slog.Default()

	embedder := &fakeEmbedder{}
	index := &fakeIndex{}
	wiki := &fakeRetriever{name: "encyclopedia", result: domain.TextResult("Article text.", "Encyclopedia: Topic")}
	social := &fakeRetriever{name: "social_profile", result: domain.PostsResult([]domain.Post{
		{Text: "hello", Author: "NASA", Timestamp: "2h"},
	}, "Recent posts from @nasa")}

	handler := NewHandler(HandlerDeps{
		Provider:   provider,
		Embedder:   embedder,
		Index:      index,
		Extractor:  NewExtractor(),
		Router:     NewRouter(provider, bus, logger),
		Pipeline:   NewPipeline(provider, nil, bus, logger),
		Retrievers: []domain.Retriever{wiki, social},
		Bus:        bus,
		Logger:     logger,
	}, HandlerConfig{})

	return &handlerFixture{
		handler:  handler,
		provider: provider,
		embedder: embedder,
		index:    index,
		wiki:     wiki,
		social:   social,
	}
}

func TestHandlerRejectsEmptyQuery(t *testing.T) {
	fx := newHandlerFixture(t, &scriptedProvider{})

	for _, query := range []string{"", "   ", "\n\t"} {
		_, err := fx.handler.Handle(context.Background(), query)
		require.Error(t, err, "query %q", query)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}

	// Rejected before any adapter, model, or index call.
	assert.Zero(t, fx.provider.callCount())
	assert.Zero(t, fx.embedder.callCount())
	assert.Zero(t, fx.index.queryCount())
	assert.Zero(t, fx.wiki.fetchCount())
	assert.Zero(t, fx.social.fetchCount())
}

func TestHandlerRecencyBypassesIndexAndPipeline(t *testing.T) {
	query := "tweets from elonmusk 3 hours ago"
	provider := &scriptedProvider{responses: []domain.ChatResponse{
		toolCallResponse(domain.ToolCall{ID: "1", Name: "social_profile", Arguments: queryArgs(query)}),
	}}
	fx := newHandlerFixture(t, provider)

	report, err := fx.handler.Handle(context.Background(), query)
	require.NoError(t, err)

	// The index was never consulted and the full original query reached the
	// adapter verbatim.
	assert.Zero(t, fx.index.queryCount())
	assert.Zero(t, fx.embedder.callCount())
	assert.Equal(t, []string{query}, fx.social.topics)
	assert.Zero(t, fx.wiki.fetchCount())

	// Direct result, no pipeline: one router model call only.
	require.NotNil(t, report.Direct)
	assert.Equal(t, domain.ResultPosts, report.Direct.Kind)
	assert.Nil(t, report.Workflow)
	assert.Equal(t, 1, provider.callCount())
}

func TestHandlerIndexHitAnswersFromContext(t *testing.T) {
	provider := &scriptedProvider{responses: []domain.ChatResponse{
		textResponse("Grounded answer from indexed text."),
		textResponse("monitor"), textResponse("summary"), textResponse("analysis"),
		textResponse("factcheck"), textResponse("final report"),
	}}
	fx := newHandlerFixture(t, provider)
	fx.index.matches = []domain.IndexMatch{
		{Record: domain.IndexRecord{ID: "a", Text: "indexed text", ContextText: "about the topic"}, Score: 0.9},
	}

	report, err := fx.handler.Handle(context.Background(), "who is alan turing")
	require.NoError(t, err)

	assert.Equal(t, "Grounded answer from indexed text.", report.OriginalResponse)
	require.NotNil(t, report.Workflow)
	assert.Equal(t, "final report", report.Workflow.FinalSummary)

	// No live retrieval happened.
	assert.Zero(t, fx.wiki.fetchCount())
	assert.Zero(t, fx.social.fetchCount())

	// Grounded answer + 5 pipeline stages.
	assert.Equal(t, 6, provider.callCount())
	assert.Contains(t, provider.requests[0].Messages[1].Content, "indexed text")
}

func TestHandlerLowScoreMatchesAreDiscarded(t *testing.T) {
	provider := &scriptedProvider{responses: []domain.ChatResponse{
		toolCallResponse(domain.ToolCall{ID: "1", Name: "encyclopedia", Arguments: queryArgs("alan turing")}),
		textResponse("monitor"), textResponse("summary"), textResponse("analysis"),
		textResponse("factcheck"), textResponse("final report"),
	}}
	fx := newHandlerFixture(t, provider)
	fx.index.matches = []domain.IndexMatch{
		{Record: domain.IndexRecord{ID: "a", Text: "noise"}, Score: 0.1},
	}

	report, err := fx.handler.Handle(context.Background(), "who is alan turing")
	require.NoError(t, err)

	// Low-score matches look like a miss, so the router ran.
	assert.Equal(t, 1, fx.wiki.fetchCount())
	require.NotNil(t, report.Workflow)
}

func TestHandlerRefusalFallsBackToRouter(t *testing.T) {
	provider := &scriptedProvider{responses: []domain.ChatResponse{
		textResponse("NO_RELEVANT_CONTEXT"),
		toolCallResponse(domain.ToolCall{ID: "1", Name: "encyclopedia", Arguments: queryArgs("alan turing")}),
		textResponse("monitor"), textResponse("summary"), textResponse("analysis"),
		textResponse("factcheck"), textResponse("final report"),
	}}
	fx := newHandlerFixture(t, provider)
	fx.index.matches = []domain.IndexMatch{
		{Record: domain.IndexRecord{ID: "a", Text: "irrelevant"}, Score: 0.8},
	}

	report, err := fx.handler.Handle(context.Background(), "who is alan turing")
	require.NoError(t, err)

	assert.Equal(t, 1, fx.wiki.fetchCount())
	assert.Equal(t, "Article text.", report.OriginalResponse)
	require.NotNil(t, report.Workflow)
}

func TestHandlerKeywordFallbackToModelKnowledge(t *testing.T) {
	// Index empty, tool returns nothing; the styling keyword fires so the
	// model answers from its own knowledge and the answer runs through all
	// five stages.
	provider := &scriptedProvider{responses: []domain.ChatResponse{
		toolCallResponse(domain.ToolCall{ID: "1", Name: "encyclopedia", Arguments: queryArgs("css flexbox")}),
		textResponse("Flexbox is a one-dimensional layout model."),
		textResponse("monitor"), textResponse("summary"), textResponse("analysis"),
		textResponse("factcheck"), textResponse("final report"),
	}}
	fx := newHandlerFixture(t, provider)
	fx.wiki.result = domain.TextResult("", "encyclopedia article not found")

	report, err := fx.handler.Handle(context.Background(), "What is CSS flexbox?")
	require.NoError(t, err)

	assert.Equal(t, "Flexbox is a one-dimensional layout model.", report.OriginalResponse)
	require.NotNil(t, report.Workflow)
	assert.Equal(t, "final report", report.Workflow.FinalSummary)

	// router + expert answer + 5 stages
	assert.Equal(t, 7, provider.callCount())
	assert.Contains(t, provider.requests[1].Messages[0].Content, "expert")
}

func TestHandlerEmptyToolResultStillRunsPipeline(t *testing.T) {
	provider := &scriptedProvider{responses: []domain.ChatResponse{
		toolCallResponse(domain.ToolCall{ID: "1", Name: "social_profile", Arguments: queryArgs("ghosttown")}),
		textResponse("monitor"), textResponse("summary"), textResponse("analysis"),
		textResponse("factcheck"), textResponse("no meaningful activity detected"),
	}}
	fx := newHandlerFixture(t, provider)
	fx.social.result = domain.PostsResult(nil, "no content found for @ghosttown")

	report, err := fx.handler.Handle(context.Background(), "posts from ghosttown")
	require.NoError(t, err)

	require.NotNil(t, report.Workflow)
	assert.Equal(t, "no meaningful activity detected", report.Workflow.FinalSummary)
	assert.Contains(t, report.OriginalResponse, "no content found")
}

func TestHandlerGeneralQueryNeverReachesProfileAdapter(t *testing.T) {
	provider := &scriptedProvider{responses: []domain.ChatResponse{
		toolCallResponse(domain.ToolCall{ID: "1", Name: "encyclopedia", Arguments: queryArgs("quantum computing")}),
		textResponse("monitor"), textResponse("summary"), textResponse("analysis"),
		textResponse("factcheck"), textResponse("final")},
	}
	fx := newHandlerFixture(t, provider)

	_, err := fx.handler.Handle(context.Background(), "what is quantum computing")
	require.NoError(t, err)
	assert.Zero(t, fx.social.fetchCount())
}

func TestHandlerIngestsEncyclopediaRetrieval(t *testing.T) {
	provider := &scriptedProvider{responses: []domain.ChatResponse{
		toolCallResponse(domain.ToolCall{ID: "1", Name: "encyclopedia", Arguments: queryArgs("alan turing")}),
	}}
	bus := testBus(t)
	logger := slog.Default()
	embedder := &fakeEmbedder{}
	index := &fakeIndex{}
	wiki := &fakeRetriever{name: "encyclopedia", result: domain.TextResult("Alan Turing was a mathematician.", "Encyclopedia: Alan Turing")}

	handler := NewHandler(HandlerDeps{
		Provider:  provider,
		Embedder:  embedder,
		Index:     index,
		Extractor: NewExtractor(),
		Router:    NewRouter(provider, bus, logger),
		Pipeline:  NewPipeline(provider, nil, bus, logger),
		Ingestor: NewIngestor(provider, embedder, index,
			IngestorConfig{ChunkSize: 600, ChunkOverlap: 200, BatchSize: 2}, bus, logger),
		Retrievers: []domain.Retriever{wiki},
		Bus:        bus,
		Logger:     logger,
	}, HandlerConfig{})

	report, err := handler.Handle(context.Background(), "who is alan turing")
	require.NoError(t, err)
	require.NotNil(t, report.Workflow)

	require.NotEmpty(t, index.upserted)
	record := index.upserted[0]
	assert.Equal(t, "wikipedia", record.Source)
	assert.Equal(t, "alan turing", record.Title)
	assert.NotEmpty(t, record.ID)
	assert.NotEmpty(t, record.ContextText)
}

func TestParseContextDecision(t *testing.T) {
	decision := ParseContextDecision("  A real answer. ")
	assert.True(t, decision.Answered)
	assert.Equal(t, "A real answer.", decision.Text)

	for _, refusal := range []string{
		"NO_RELEVANT_CONTEXT",
		"  NO_RELEVANT_CONTEXT  ",
		"I must say NO_RELEVANT_CONTEXT here.",
	} {
		decision := ParseContextDecision(refusal)
		assert.False(t, decision.Answered, "input %q", refusal)
		assert.Empty(t, decision.Text)
	}
}
