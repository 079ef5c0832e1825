package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"templateforge/internal/domain"
)

// IndexEntry is one row of the index.json catalog. When the service
// runs file-only the catalog is the sole index over saved templates.
type IndexEntry struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Brand           string    `json:"brand"`
	Industry        string    `json:"industry"`
	LocationCountry string    `json:"locationCountry,omitempty"`
	LocationState   string    `json:"locationState,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	Filename        string    `json:"filename"`
}

// fileRecord is the on-disk shape of one saved template.
type fileRecord struct {
	Template *domain.Template `json:"template"`
	Scrape   *scrapeSummary   `json:"scrapeSummary,omitempty"`
}

type scrapeSummary struct {
	URL        string `json:"url"`
	Headings   int    `json:"headings"`
	Paragraphs int    `json:"paragraphs"`
	Images     int    `json:"images"`
}

// FileStore persists templates as {id}.json files plus an index.json
// catalog in a local directory. It is the fallback when Postgres is
// unreachable: a successfully scraped result is never lost solely
// because the database is down.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Save writes the template file and updates the catalog, replacing any
// existing catalog entry with the same id.
func (f *FileStore) Save(t *domain.Template, site *domain.ScrapedSite) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("creating template dir: %w", err)
	}

	record := fileRecord{Template: t}
	if site != nil {
		record.Scrape = &scrapeSummary{
			URL:        site.URL,
			Headings:   len(site.TextContent.Headings),
			Paragraphs: len(site.TextContent.Paragraphs),
			Images:     len(site.Images),
		}
	}

	filename := t.ID + ".json"
	raw, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding template %s: %w", t.ID, err)
	}
	if err := os.WriteFile(filepath.Join(f.dir, filename), raw, 0o644); err != nil {
		return fmt.Errorf("writing template file: %w", err)
	}

	return f.updateIndex(IndexEntry{
		ID:              t.ID,
		Name:            t.Name,
		Brand:           t.Brand,
		Industry:        t.Industry,
		LocationCountry: t.LocationCountry,
		LocationState:   t.LocationState,
		CreatedAt:       t.CreatedAt,
		Filename:        filename,
	})
}

func (f *FileStore) updateIndex(entry IndexEntry) error {
	entries, err := f.Index()
	if err != nil {
		return err
	}

	replaced := false
	for i, e := range entries {
		if e.ID == entry.ID {
			entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, entry)
	}

	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(f.dir, "index.json"), raw, 0o644); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

// Index reads the catalog; a missing file is an empty catalog.
func (f *FileStore) Index() ([]IndexEntry, error) {
	raw, err := os.ReadFile(filepath.Join(f.dir, "index.json"))
	if os.IsNotExist(err) {
		return []IndexEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	var entries []IndexEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decoding index: %w", err)
	}
	return entries, nil
}

// Load reads one saved template by id.
func (f *FileStore) Load(id string) (*domain.Template, error) {
	raw, err := os.ReadFile(filepath.Join(f.dir, id+".json"))
	if os.IsNotExist(err) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", id, err)
	}
	var record fileRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decoding template %s: %w", id, err)
	}
	if record.Template == nil {
		return nil, fmt.Errorf("template file %s has no template payload", id)
	}
	// Hand-edited or legacy files may carry "metadata": null; callers
	// write into this map, so it must never come back nil.
	if record.Template.ContentData.Metadata == nil {
		record.Template.ContentData.Metadata = map[string]any{}
	}
	return record.Template, nil
}

// List loads every cataloged template.
func (f *FileStore) List() ([]*domain.Template, error) {
	entries, err := f.Index()
	if err != nil {
		return nil, err
	}
	templates := make([]*domain.Template, 0, len(entries))
	for _, e := range entries {
		t, err := f.Load(e.ID)
		if err != nil {
			// A missing file with a live catalog entry is tolerated;
			// the entry is skipped rather than failing the listing.
			continue
		}
		templates = append(templates, t)
	}
	return templates, nil
}

// Delete removes a template file and its catalog entry.
func (f *FileStore) Delete(id string) error {
	if err := os.Remove(filepath.Join(f.dir, id+".json")); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting template file: %w", err)
	}
	entries, err := f.Index()
	if err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	raw, err := json.MarshalIndent(kept, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	return os.WriteFile(filepath.Join(f.dir, "index.json"), raw, 0o644)
}
