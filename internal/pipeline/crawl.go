package pipeline

import (
	"context"
	"fmt"
	"time"

	"templateforge/internal/domain"
	"templateforge/internal/extract"
	"templateforge/internal/monitoring"
	"templateforge/internal/registry"
	"templateforge/internal/storage"

	"go.uber.org/zap"
)

// CrawlDriver walks same-origin links breadth-first from a template's
// seed URL, bounded by a page count and depth ceiling. Pages are
// visited in discovery order; a visited set prevents revisits. Status
// lives in the crawl registry so a separate polling endpoint can read
// it while the crawl runs.
type CrawlDriver struct {
	fetcher    Fetcher
	persister  *storage.Persister
	statuses   *registry.CrawlStatuses
	pauses     *registry.Pauses
	pauseEvery int
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

func NewCrawlDriver(f Fetcher, p *storage.Persister, st *registry.CrawlStatuses, pauses *registry.Pauses, pauseEvery int, m *monitoring.Metrics, l *zap.Logger) *CrawlDriver {
	return &CrawlDriver{fetcher: f, persister: p, statuses: st, pauses: pauses, pauseEvery: pauseEvery, metrics: m, logger: l}
}

type crawlItem struct {
	url   string
	depth int
}

// Run crawls up to maxPages pages within maxDepth of the template's
// seed URL, accumulating page summaries into the template's content
// metadata. Designed to be launched fire-and-forget; callers poll the
// status registry for progress.
func (c *CrawlDriver) Run(ctx context.Context, templateID string, maxPages, maxDepth int) error {
	listed, err := c.persister.Get(ctx, templateID)
	if err != nil {
		return fmt.Errorf("loading template %s: %w", templateID, err)
	}
	template := listed.Template

	seedURL, _ := template.ContentData.Metadata["sourceUrl"].(string)
	if seedURL == "" {
		return fmt.Errorf("template %s has no source url to crawl", templateID)
	}

	status := &domain.CrawlStatus{
		Status:     domain.CrawlRunning,
		TotalPages: maxPages,
		Errors:     []string{},
		StartTime:  time.Now(),
	}
	c.updateStatus(ctx, templateID, status)

	visited := make(map[string]struct{})
	queue := []crawlItem{{url: seedURL, depth: 0}}
	var pages []map[string]any

	for len(queue) > 0 && status.PagesScraped < maxPages {
		if ctx.Err() != nil {
			status.Errors = append(status.Errors, ctx.Err().Error())
			break
		}

		item := queue[0]
		queue = queue[1:]
		if _, ok := visited[item.url]; ok {
			continue
		}
		visited[item.url] = struct{}{}

		status.CurrentURL = item.url
		c.updateStatus(ctx, templateID, status)

		html, err := c.fetcher.Fetch(ctx, item.url)
		if err != nil {
			status.Errors = append(status.Errors, fmt.Sprintf("%s: %v", item.url, err))
			c.metrics.IncErrorsTotal("crawl_fetch_failed")
			continue
		}

		site, err := extract.Extract(item.url, html)
		if err != nil {
			status.Errors = append(status.Errors, fmt.Sprintf("%s: %v", item.url, err))
			continue
		}

		if err := c.persister.PersistPageContent(ctx, template.Industry, site); err != nil {
			c.logger.Warn("crawl page content not persisted",
				zap.String("url", item.url), zap.Error(err))
		}

		pages = append(pages, map[string]any{
			"url":      item.url,
			"title":    site.Metadata.Title,
			"depth":    item.depth,
			"headings": len(site.TextContent.Headings),
		})
		status.PagesScraped++
		c.metrics.CrawlPages.Inc()
		c.updateStatus(ctx, templateID, status)

		if item.depth < maxDepth {
			for _, link := range extract.Links(html, item.url) {
				if _, ok := visited[link]; !ok {
					queue = append(queue, crawlItem{url: link, depth: item.depth + 1})
				}
			}
		}

		if c.pauseEvery > 0 && status.PagesScraped%c.pauseEvery == 0 && len(queue) > 0 && status.PagesScraped < maxPages {
			c.pauseCrawl(ctx, templateID, status)
		}
	}

	template.ContentData.Metadata["crawledPages"] = pages
	template.UpdatedAt = time.Now()
	if err := c.persister.SaveTemplate(ctx, template); err != nil {
		status.Status = domain.CrawlError
		status.Errors = append(status.Errors, err.Error())
		now := time.Now()
		status.EndTime = &now
		c.updateStatus(ctx, templateID, status)
		return err
	}

	status.Status = domain.CrawlCompleted
	status.CurrentURL = ""
	now := time.Now()
	status.EndTime = &now
	c.updateStatus(ctx, templateID, status)

	c.logger.Info("crawl completed",
		zap.String("templateId", templateID),
		zap.Int("pages", status.PagesScraped),
		zap.Int("errors", len(status.Errors)))
	return nil
}

// pauseCrawl publishes the pause key on the polled status so a client
// can release the crawl through the continue-scraping endpoint before
// the auto-resume timeout.
func (c *CrawlDriver) pauseCrawl(ctx context.Context, templateID string, status *domain.CrawlStatus) {
	key, err := c.pauses.Register(ctx)
	if err != nil {
		c.logger.Warn("could not register crawl pause", zap.Error(err))
		return
	}
	status.PauseKey = key
	c.updateStatus(ctx, templateID, status)
	c.logger.Info("crawl paused awaiting confirmation",
		zap.String("templateId", templateID), zap.String("pauseKey", key))

	c.pauses.Wait(ctx, key)

	status.PauseKey = ""
	c.updateStatus(ctx, templateID, status)
}

func (c *CrawlDriver) updateStatus(ctx context.Context, templateID string, status *domain.CrawlStatus) {
	if err := c.statuses.Set(ctx, templateID, status); err != nil {
		c.logger.Warn("failed to update crawl status", zap.String("templateId", templateID), zap.Error(err))
	}
}
