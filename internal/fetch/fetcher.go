package fetch

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// userAgents are rotated across requests to stay polite with targets
// that throttle a single agent string.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

func randomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

// Fetcher downloads page HTML over plain HTTP with a fixed-delay retry
// policy. It never returns an error past its boundary: a failed fetch
// is reported through the returned error string so the pipeline can
// record it on the ScrapedSite.
type Fetcher struct {
	client     *http.Client
	retries    int
	retryDelay time.Duration
	logger     *zap.Logger
}

func NewFetcher(timeout time.Duration, retries int, retryDelay time.Duration, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client:     &http.Client{Timeout: timeout},
		retries:    retries,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// Fetch downloads the URL, retrying up to the configured count with a
// fixed delay between attempts. No backoff, no jitter.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= f.retries; attempt++ {
		html, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return html, nil
		}
		lastErr = err
		f.logger.Warn("fetch attempt failed",
			zap.String("url", rawURL), zap.Int("attempt", attempt), zap.Error(err))

		if attempt < f.retries {
			select {
			case <-time.After(f.retryDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
	return "", fmt.Errorf("fetch failed after %d attempts: %w", f.retries, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", randomUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("bad status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
