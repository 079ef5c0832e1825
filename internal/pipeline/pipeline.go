// Package pipeline orchestrates the scrape-rewrite-reimage-seo-verify
// sequence and the batch and crawl drivers around it.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"templateforge/internal/domain"
	"templateforge/internal/extract"
	"templateforge/internal/monitoring"
	"templateforge/internal/rewrite"
	"templateforge/internal/seo"
	"templateforge/internal/storage"
	"templateforge/internal/verify"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Fetcher is satisfied by both the plain and rendered fetchers.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// StageError ties a failure to the stage that produced it.
type StageError struct {
	Stage domain.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ProgressFunc receives one ProcessingStatus per stage transition.
// It is a side channel only; the pipeline never blocks on it failing.
type ProgressFunc func(domain.ProcessingStatus)

// Options configures one pipeline run.
type Options struct {
	Business        domain.BusinessInfo
	Category        string
	IsDesignQuality bool
	DesignCategory  string
	AwardSource     string
	Country         string
	State           string
	City            string
}

// Pipeline runs the full regeneration sequence for one site. Stage
// order is fixed: fetch, extract, rewrite, reimage, seo, verify,
// persist. Each stage derives a new HTML value from the previous one.
type Pipeline struct {
	fetcher   Fetcher
	rewriter  *rewrite.Rewriter
	reimager  *rewrite.Reimager
	persister *storage.Persister
	metrics   *monitoring.Metrics
	logger    *zap.Logger
}

func NewPipeline(f Fetcher, rw *rewrite.Rewriter, ri *rewrite.Reimager, p *storage.Persister, m *monitoring.Metrics, l *zap.Logger) *Pipeline {
	return &Pipeline{fetcher: f, rewriter: rw, reimager: ri, persister: p, metrics: m, logger: l}
}

// Run executes the pipeline for one URL. A fetch failure aborts this
// site only; rewrite and reimage failures are contained per node per
// their stage contracts. The returned result always carries the input
// URL so batch callers preserve ordering.
func (p *Pipeline) Run(ctx context.Context, url string, opts Options, progress ProgressFunc) domain.ScrapeItemResult {
	emit := func(stage domain.Stage, pct int, message, errMsg string) {
		if progress == nil {
			return
		}
		progress(domain.ProcessingStatus{
			URL:      url,
			Name:     opts.Business.Name,
			Industry: opts.Business.Industry,
			Stage:    stage,
			Progress: pct,
			Message:  message,
			Error:    errMsg,
		})
	}

	fail := func(stage domain.Stage, err error) domain.ScrapeItemResult {
		p.metrics.IncProcessed("failure")
		emit(domain.StageError, 100, "pipeline failed", err.Error())
		return domain.ScrapeItemResult{URL: url, Success: false, Error: (&StageError{Stage: stage, Err: err}).Error()}
	}

	// Fetch + extract.
	emit(domain.StageScraping, 5, "fetching "+url, "")
	start := time.Now()
	html, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		p.metrics.IncErrorsTotal("fetch_failed")
		return fail(domain.StageScraping, err)
	}

	site, err := extract.Extract(url, html)
	if err != nil {
		p.metrics.IncErrorsTotal("extract_failed")
		return fail(domain.StageScraping, err)
	}
	p.metrics.ObserveStage(string(domain.StageScraping), time.Since(start).Seconds())
	emit(domain.StageScraping, 20, "extracted page structure", "")

	if opts.Business.Name == "" {
		opts.Business.Name = site.CompanyName
	}

	metadata := map[string]any{
		"sourceUrl":    url,
		"designTokens": site.DesignTokens,
		"language":     site.Metadata.Language,
	}

	// Rewrite copy. Best-effort per text node.
	emit(domain.StageRewriting, 30, "rewriting content", "")
	start = time.Now()
	html, outcomes, err := p.rewriter.Rewrite(ctx, site.HTMLContent, site, opts.Business)
	if err != nil {
		p.logger.Warn("rewrite stage degraded, continuing with original html",
			zap.String("url", url), zap.Error(err))
		p.metrics.IncErrorsTotal("rewrite_failed")
		html = site.HTMLContent
	}
	p.metrics.ObserveStage(string(domain.StageRewriting), time.Since(start).Seconds())
	metadata["rewritten"] = true
	metadata["rewriteOutcomes"] = outcomes

	// Regenerate images. Progress counts attempts, not successes.
	emit(domain.StageReimaging, 50, "regenerating images", "")
	start = time.Now()
	html, replaced, err := p.reimager.Regenerate(ctx, html, opts.Business, func(attempted, total int) {
		pct := 50
		if total > 0 {
			pct = 50 + (20*attempted)/total
		}
		emit(domain.StageReimaging, pct, fmt.Sprintf("images %d/%d", attempted, total), "")
	})
	if err != nil {
		p.logger.Warn("reimage stage degraded", zap.String("url", url), zap.Error(err))
		p.metrics.IncErrorsTotal("reimage_failed")
	}
	p.metrics.ObserveStage(string(domain.StageReimaging), time.Since(start).Seconds())
	metadata["imagesRegenerated"] = replaced

	// SEO pass. Never fails.
	emit(domain.StageSEO, 75, "applying seo metadata", "")
	html = seo.Augment(html, opts.Business)
	metadata["seoEvaluated"] = true

	// Verify.
	emit(domain.StageVerifying, 85, "verifying output", "")
	checks := verify.Verify(html)
	metadata["verified"] = checks.Verified
	metadata["verificationChecks"] = checks

	template := &domain.Template{
		ID:                uuid.NewString(),
		Name:              opts.Business.Name,
		Brand:             opts.Business.Name,
		Industry:          opts.Business.Industry,
		Category:          opts.Category,
		ContentData:       domain.ContentData{HTML: html, Metadata: metadata},
		IsDesignQuality:   opts.IsDesignQuality,
		DesignCategory:    opts.DesignCategory,
		DesignAwardSource: opts.AwardSource,
		IsApproved:        false,
		IsActive:          false,
		LocationCountry:   opts.Country,
		LocationState:     opts.State,
		LocationCity:      opts.City,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}

	// Persist. The persister's file fallback means only a double
	// failure (db and disk) surfaces here.
	start = time.Now()
	if err := p.persister.Persist(ctx, template, site); err != nil {
		p.metrics.IncErrorsTotal("persist_failed")
		return fail(domain.StageVerifying, err)
	}
	p.metrics.ObserveStage("persist", time.Since(start).Seconds())

	p.metrics.IncProcessed("success")
	emit(domain.StageComplete, 100, "template created", "")
	return domain.ScrapeItemResult{URL: url, Success: true, Data: site, Template: template}
}
