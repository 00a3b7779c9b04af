package llm

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"factscout/internal/domain"
	"factscout/internal/infra/config"
)

var _ domain.LLMProvider = (*OllamaProvider)(nil)

// Ollama needs a generous timeout: model loading can dominate the first call.
const ollamaDefaultTimeout = 300 * time.Second

// OllamaProvider wraps OpenAIProvider to work with a local Ollama server.
// Ollama exposes an OpenAI-compatible endpoint at /v1, so chat is delegated
// to the inner OpenAI provider.
type OllamaProvider struct {
	inner *OpenAIProvider
}

// NewOllamaProvider creates an Ollama provider that delegates chat to
// OpenAIProvider via Ollama's OpenAI-compatible /v1 endpoint.
func NewOllamaProvider(cfg config.ProviderConfig, logger *slog.Logger) *OllamaProvider {
	ollamaCfg := cfg
	if ollamaCfg.Timeout == 0 {
		ollamaCfg.Timeout = ollamaDefaultTimeout
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	return &OllamaProvider{
		inner: &OpenAIProvider{
			name:        cfg.Name,
			model:       cfg.Model,
			baseURL:     baseURL + "/v1",
			temperature: cfg.Temperature,
			client:      NewHTTPClient(ollamaCfg),
			logger:      logger,
		},
	}
}

// Chat implements domain.LLMProvider.
func (p *OllamaProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	return p.inner.Chat(ctx, req)
}

// Name implements domain.LLMProvider.
func (p *OllamaProvider) Name() string { return p.inner.Name() }
