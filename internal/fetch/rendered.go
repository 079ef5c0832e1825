package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// RenderedFetcher drives headless Chrome for sites that only produce
// meaningful markup after client-side rendering. Exec allocators are
// pooled because spawning one per fetch dominates latency.
type RenderedFetcher struct {
	timeout    time.Duration
	retries    int
	retryDelay time.Duration
	logger     *zap.Logger
	ctxPool    sync.Pool
}

func NewRenderedFetcher(timeout time.Duration, retries int, retryDelay time.Duration, logger *zap.Logger) *RenderedFetcher {
	f := &RenderedFetcher{
		timeout:    timeout,
		retries:    retries,
		retryDelay: retryDelay,
		logger:     logger,
	}
	f.ctxPool.New = func() interface{} {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", ""),
			chromedp.Flag("disable-dev-shm-usage", ""),
			chromedp.UserAgent(randomUserAgent()),
		)
		allocCtx, _ := chromedp.NewExecAllocator(context.Background(), opts...)
		return allocCtx
	}
	return f
}

// Fetch renders the URL in headless Chrome and returns the document's
// outer HTML, with the same fixed-delay retry policy as the plain
// HTTP fetcher.
func (f *RenderedFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= f.retries; attempt++ {
		html, err := f.fetchOnce(rawURL)
		if err == nil {
			return html, nil
		}
		lastErr = err
		f.logger.Warn("rendered fetch attempt failed",
			zap.String("url", rawURL), zap.Int("attempt", attempt), zap.Error(err))

		if attempt < f.retries {
			select {
			case <-time.After(f.retryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "", fmt.Errorf("rendered fetch failed after %d attempts: %w", f.retries, lastErr)
}

func (f *RenderedFetcher) fetchOnce(rawURL string) (string, error) {
	allocCtx := f.ctxPool.Get().(context.Context)
	defer f.ctxPool.Put(allocCtx)

	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()
	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, f.timeout)
	defer cancelTimeout()

	var htmlContent string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &htmlContent),
	)
	if err != nil {
		return "", err
	}
	return htmlContent, nil
}
