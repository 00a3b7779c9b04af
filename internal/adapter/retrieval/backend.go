package retrieval

import "context"

// Browser abstracts the headless-browser operations the retrievers need.
// Retrievers describe WHAT to pull out of a page; the backend owns navigation,
// session lifetime, and script execution.
type Browser interface {
	// Extract navigates to url, waits for waitSelector to become visible
	// (body readiness when empty), evaluates script in the page, and returns
	// the script's result. Scripts are expected to return a JSON string.
	Extract(ctx context.Context, url, waitSelector, script string) (string, error)
	// Close releases all browser resources.
	Close() error
	// Name returns the backend identifier (e.g. "chromedp").
	Name() string
}
