package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"factscout/internal/domain"
	"factscout/internal/usecase/eventbus"
)

// scriptedProvider returns canned chat responses in order and records every
// request it saw.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []domain.ChatResponse
	requests  []domain.ChatRequest
	err       error
}

func (p *scriptedProvider) Chat(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	if len(p.responses) == 0 {
		return &domain.ChatResponse{Message: domain.Message{
			Role:    domain.RoleAssistant,
			Content: fmt.Sprintf("canned response %d", len(p.requests)),
		}}, nil
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return &resp, nil
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func textResponse(content string) domain.ChatResponse {
	return domain.ChatResponse{Message: domain.Message{Role: domain.RoleAssistant, Content: content}}
}

func toolCallResponse(calls ...domain.ToolCall) domain.ChatResponse {
	return domain.ChatResponse{Message: domain.Message{Role: domain.RoleAssistant, ToolCalls: calls}}
}

func queryArgs(query string) json.RawMessage {
	raw, _ := json.Marshal(map[string]string{"query": query})
	return raw
}

// fakeRetriever is a scripted domain.Retriever recording fetch topics.
type fakeRetriever struct {
	mu     sync.Mutex
	name   string
	result *domain.RetrievalResult
	err    error
	topics []string
}

func (f *fakeRetriever) Name() string        { return f.name }
func (f *fakeRetriever) Description() string { return "fake " + f.name }

func (f *fakeRetriever) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        f.name,
		Description: f.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {"query": {"type": "string"}},
			"required": ["query"],
			"additionalProperties": false
		}`),
	}
}

func (f *fakeRetriever) Fetch(_ context.Context, topic string) (*domain.RetrievalResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeRetriever) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.topics)
}

// fakeEmbedder returns a fixed vector per input text.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return 3 }
func (f *fakeEmbedder) Name() string    { return "fake" }

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeIndex is an in-memory domain.SemanticIndex with scripted matches.
type fakeIndex struct {
	mu       sync.Mutex
	matches  []domain.IndexMatch
	queries  int
	upserted []domain.IndexRecord
}

func (f *fakeIndex) Upsert(_ context.Context, records []domain.IndexRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, records...)
	return nil
}

func (f *fakeIndex) Query(_ context.Context, _ []float32, _ int, _ string) ([]domain.IndexMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	return f.matches, nil
}

func (f *fakeIndex) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries
}

func testBus(t *testing.T) *eventbus.Bus {
	t.Helper()
	bus := eventbus.New(slog.Default())
	t.Cleanup(bus.Close)
	return bus
}
