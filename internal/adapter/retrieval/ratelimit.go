package retrieval

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"factscout/internal/domain"
)

// RateLimitedRetriever throttles live fetches against a source. Scraping a
// public site too fast gets the scraper blocked, which is worse than a
// rejected request.
type RateLimitedRetriever struct {
	inner   domain.Retriever
	limiter *rate.Limiter
}

var _ domain.Retriever = (*RateLimitedRetriever)(nil)

// NewRateLimitedRetriever wraps inner, allowing perMinute fetches per minute
// with the given burst.
func NewRateLimitedRetriever(inner domain.Retriever, perMinute, burst int) *RateLimitedRetriever {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedRetriever{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst),
	}
}

// Name implements domain.Retriever.
func (r *RateLimitedRetriever) Name() string { return r.inner.Name() }

// Description implements domain.Retriever.
func (r *RateLimitedRetriever) Description() string { return r.inner.Description() }

// Schema implements domain.Retriever.
func (r *RateLimitedRetriever) Schema() domain.ToolSchema { return r.inner.Schema() }

// Fetch implements domain.Retriever. Requests over the limit fail fast rather
// than queue; the handler has fallbacks for a failed live fetch.
func (r *RateLimitedRetriever) Fetch(ctx context.Context, topic string) (*domain.RetrievalResult, error) {
	if !r.limiter.Allow() {
		return nil, fmt.Errorf("%w: %s fetch throttled", domain.ErrRateLimit, r.inner.Name())
	}
	return r.inner.Fetch(ctx, topic)
}
