package storage

import (
	"context"
	"errors"
	"fmt"

	"templateforge/internal/domain"

	"go.uber.org/zap"
)

// TemplateSource marks where a listed template was read from.
const (
	SourceDatabase = "database"
	SourceFile     = "file"
)

// ListedTemplate pairs a template with its storage origin.
type ListedTemplate struct {
	*domain.Template
	Source string `json:"source"`
}

// Persister writes pipeline output to Postgres, falling back to the
// file store when any database step fails. The fallback is a hard
// guarantee: a successfully scraped result must never be lost solely
// because the database is unreachable.
type Persister struct {
	pg     *PostgresStore // nil when running file-only
	files  *FileStore
	logger *zap.Logger

	// onFallback is called whenever a template lands in the file
	// store instead of Postgres. Wired to a metric counter.
	onFallback func()
}

func NewPersister(pg *PostgresStore, files *FileStore, logger *zap.Logger, onFallback func()) *Persister {
	if onFallback == nil {
		onFallback = func() {}
	}
	return &Persister{pg: pg, files: files, logger: logger, onFallback: onFallback}
}

// Persist resolves the template's Source row, stores the raw scrape,
// and upserts the template. Any database failure diverts the whole
// record to the file store.
func (p *Persister) Persist(ctx context.Context, t *domain.Template, site *domain.ScrapedSite) error {
	if p.pg == nil {
		return p.fallback(t, site, fmt.Errorf("database not configured"))
	}

	sourceID, err := p.pg.ResolveSource(ctx, t.Brand, site.URL, t.Industry)
	if err != nil {
		return p.fallback(t, site, err)
	}
	t.SourceID = sourceID

	if err := p.pg.SaveScrapedContent(ctx, sourceID, site); err != nil {
		return p.fallback(t, site, err)
	}
	if err := p.pg.UpsertTemplate(ctx, t); err != nil {
		return p.fallback(t, site, err)
	}
	return nil
}

func (p *Persister) fallback(t *domain.Template, site *domain.ScrapedSite, cause error) error {
	p.logger.Warn("database persist failed, falling back to file store",
		zap.String("templateId", t.ID), zap.Error(cause))
	p.onFallback()

	if err := p.files.Save(t, site); err != nil {
		return fmt.Errorf("file fallback after db error (%v): %w", cause, err)
	}
	return nil
}

// PersistPageContent stores one crawled page's raw content when the
// database is available. Crawl pages have no standalone template, so
// there is no file fallback here; the crawl's accumulated metadata is
// saved through SaveTemplate with the usual guarantee.
func (p *Persister) PersistPageContent(ctx context.Context, industry string, site *domain.ScrapedSite) error {
	if p.pg == nil {
		return nil
	}
	sourceID, err := p.pg.ResolveSource(ctx, site.CompanyName, site.URL, industry)
	if err != nil {
		return err
	}
	return p.pg.SaveScrapedContent(ctx, sourceID, site)
}

// SaveTemplate upserts a template without scrape material (admin
// edits, duplicates), with the same DB-then-file fallback.
func (p *Persister) SaveTemplate(ctx context.Context, t *domain.Template) error {
	if p.pg == nil {
		return p.fallback(t, nil, fmt.Errorf("database not configured"))
	}
	if err := p.pg.UpsertTemplate(ctx, t); err != nil {
		return p.fallback(t, nil, err)
	}
	return nil
}

// ListAll merges database and file-store templates. File rows are
// tagged source:"file"; when an id exists in both, the database row
// wins.
func (p *Persister) ListAll(ctx context.Context) ([]ListedTemplate, error) {
	var out []ListedTemplate
	inDB := make(map[string]struct{})

	if p.pg != nil {
		dbTemplates, err := p.pg.ListTemplates(ctx)
		if err != nil {
			p.logger.Warn("database listing failed, serving file store only", zap.Error(err))
		} else {
			for _, t := range dbTemplates {
				inDB[t.ID] = struct{}{}
				out = append(out, ListedTemplate{Template: t, Source: SourceDatabase})
			}
		}
	}

	fileTemplates, err := p.files.List()
	if err != nil {
		return nil, err
	}
	for _, t := range fileTemplates {
		if _, ok := inDB[t.ID]; ok {
			continue
		}
		out = append(out, ListedTemplate{Template: t, Source: SourceFile})
	}
	return out, nil
}

// Delete removes a template from both stores. It succeeds when the
// template existed in at least one of them.
func (p *Persister) Delete(ctx context.Context, id string) error {
	found := false

	if p.pg != nil {
		switch err := p.pg.DeleteTemplate(ctx, id); {
		case err == nil:
			found = true
		case errors.Is(err, ErrTemplateNotFound):
		default:
			p.logger.Warn("database delete failed", zap.String("id", id), zap.Error(err))
		}
	}

	if _, err := p.files.Load(id); err == nil {
		if err := p.files.Delete(id); err != nil {
			return err
		}
		found = true
	}

	if !found {
		return ErrTemplateNotFound
	}
	return nil
}

// Get reads one template, database first, then file store.
func (p *Persister) Get(ctx context.Context, id string) (*ListedTemplate, error) {
	if p.pg != nil {
		t, err := p.pg.GetTemplate(ctx, id)
		if err == nil {
			return &ListedTemplate{Template: t, Source: SourceDatabase}, nil
		}
		if !errors.Is(err, ErrTemplateNotFound) {
			p.logger.Warn("database get failed, trying file store", zap.String("id", id), zap.Error(err))
		}
	}
	t, err := p.files.Load(id)
	if err != nil {
		return nil, err
	}
	return &ListedTemplate{Template: t, Source: SourceFile}, nil
}
