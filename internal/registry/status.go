package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"templateforge/internal/domain"
)

// crawlStatusTTL keeps finished crawl records readable for a while
// without growing the store forever.
const crawlStatusTTL = 24 * time.Hour

// CrawlStatuses tracks multi-page crawl state keyed by template id.
type CrawlStatuses struct {
	store Store
}

func NewCrawlStatuses(store Store) *CrawlStatuses {
	return &CrawlStatuses{store: store}
}

func (c *CrawlStatuses) key(templateID string) string {
	return fmt.Sprintf("crawl-status:%s", templateID)
}

func (c *CrawlStatuses) Get(ctx context.Context, templateID string) (*domain.CrawlStatus, error) {
	raw, err := c.store.Get(ctx, c.key(templateID))
	if err != nil {
		return nil, err
	}
	var status domain.CrawlStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("decoding crawl status: %w", err)
	}
	return &status, nil
}

func (c *CrawlStatuses) Set(ctx context.Context, templateID string, status *domain.CrawlStatus) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encoding crawl status: %w", err)
	}
	return c.store.Set(ctx, c.key(templateID), raw, crawlStatusTTL)
}

// ScrapeDedup marks recently scraped URLs so repeat submissions inside
// the dedup window are skipped unless forced.
type ScrapeDedup struct {
	store Store
	ttl   time.Duration
}

func NewScrapeDedup(store Store, ttl time.Duration) *ScrapeDedup {
	return &ScrapeDedup{store: store, ttl: ttl}
}

func (d *ScrapeDedup) Mark(ctx context.Context, url string) error {
	return d.store.Set(ctx, "scraped:"+url, []byte("1"), d.ttl)
}

func (d *ScrapeDedup) IsRecent(ctx context.Context, url string) (bool, error) {
	return d.store.Exists(ctx, "scraped:"+url)
}
