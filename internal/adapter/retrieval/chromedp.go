package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"factscout/internal/domain"
	"factscout/internal/infra/config"
)

// ChromeDPBrowser implements Browser using chromedp. A single tab is shared
// across retrievers; access is serialized through the mutex.
type ChromeDPBrowser struct {
	mu          sync.Mutex
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	timeout     time.Duration
	logger      *slog.Logger
}

var _ Browser = (*ChromeDPBrowser)(nil)

// NewChromeDPBrowser creates a browser backend using chromedp. When
// cfg.RemoteURL is set it attaches to a remote Chrome over CDP; otherwise it
// launches a local instance.
func NewChromeDPBrowser(cfg config.BrowserConfig, logger *slog.Logger) (*ChromeDPBrowser, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	b := &ChromeDPBrowser{
		timeout: cfg.Timeout,
		logger:  logger,
	}

	var allocCtx context.Context
	if cfg.RemoteURL != "" {
		allocCtx, b.allocCancel = chromedp.NewRemoteAllocator(
			context.Background(), cfg.RemoteURL,
		)
		logger.Info("chromedp connecting to remote browser", "url", cfg.RemoteURL)
	} else {
		// Copy default options to avoid mutating the package-level slice.
		opts := make([]chromedp.ExecAllocatorOption, len(chromedp.DefaultExecAllocatorOptions))
		copy(opts, chromedp.DefaultExecAllocatorOptions[:])
		opts = append(opts,
			chromedp.Flag("headless", cfg.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.WindowSize(1280, 720),
		)
		allocCtx, b.allocCancel = chromedp.NewExecAllocator(
			context.Background(), opts...,
		)
		logger.Info("chromedp launching local browser", "headless", cfg.Headless)
	}

	b.tabCtx, b.tabCancel = chromedp.NewContext(allocCtx)

	// Start the browser by running an empty action. The tab context itself
	// must not carry a deadline: chromedp binds the CDP session to the context
	// passed to the first Run, so canceling a derived context would kill the
	// session. The timeout is enforced on our side instead.
	startDone := make(chan error, 1)
	go func() { startDone <- chromedp.Run(b.tabCtx) }()
	select {
	case err := <-startDone:
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("%w: start browser: %v", domain.ErrBrowserSession, err)
		}
	case <-time.After(cfg.Timeout):
		b.Close()
		return nil, fmt.Errorf("%w: start browser: timed out after %v", domain.ErrBrowserSession, cfg.Timeout)
	}

	logger.Info("chromedp browser started")
	return b, nil
}

// Extract implements Browser.
func (b *ChromeDPBrowser) Extract(ctx context.Context, url, waitSelector, script string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tctx, cancel := context.WithTimeout(b.tabCtx, b.timeout)
	defer cancel()

	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	}
	if waitSelector != "" {
		actions = append(actions, chromedp.WaitVisible(waitSelector, chromedp.ByQuery))
	}

	var result string
	actions = append(actions, chromedp.Evaluate(script, &result))

	if err := chromedp.Run(tctx, actions...); err != nil {
		return "", fmt.Errorf("%w: extract %s: %v", domain.ErrBrowserSession, url, err)
	}
	return result, nil
}

// Close implements Browser.
func (b *ChromeDPBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tabCancel != nil {
		b.tabCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	b.logger.Info("chromedp browser closed")
	return nil
}

// Name implements Browser.
func (b *ChromeDPBrowser) Name() string { return "chromedp" }
