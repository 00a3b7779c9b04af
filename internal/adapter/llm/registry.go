package llm

import (
	"fmt"
	"log/slog"

	"factscout/internal/domain"
	"factscout/internal/infra/config"
)

// Build constructs the active LLM provider from config, wrapped with the
// circuit breaker. Unknown provider types are rejected at startup.
func Build(cfg config.LLMConfig, logger *slog.Logger) (domain.LLMProvider, error) {
	var active *config.ProviderConfig
	for i := range cfg.Providers {
		if cfg.Providers[i].Name == cfg.Provider {
			active = &cfg.Providers[i]
			break
		}
	}
	if active == nil {
		return nil, domain.NewDomainError("llm.Build", domain.ErrConfigLoad,
			fmt.Sprintf("provider %q not configured", cfg.Provider))
	}

	var provider domain.LLMProvider
	switch active.Type {
	case "openai":
		provider = NewOpenAIProvider(*active, logger)
	case "ollama":
		provider = NewOllamaProvider(*active, logger)
	default:
		return nil, domain.NewDomainError("llm.Build", domain.ErrConfigLoad,
			fmt.Sprintf("unknown provider type %q", active.Type))
	}

	return NewCircuitBreakerProvider(provider, cfg.Breaker, logger), nil
}
