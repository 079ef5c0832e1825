package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"templateforge/internal/domain"

	"go.uber.org/zap"
)

func testTemplate(id, name string) *domain.Template {
	return &domain.Template{
		ID:       id,
		Name:     name,
		Brand:    name,
		Industry: "Plumbing",
		ContentData: domain.ContentData{
			HTML:     "<html><body>content</body></html>",
			Metadata: map[string]any{"sourceUrl": "https://example.com"},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	tmpl := testTemplate("tpl-1", "Acme")
	site := &domain.ScrapedSite{URL: "https://example.com"}

	if err := fs.Save(tmpl, site); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := fs.Load("tpl-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Name != "Acme" || loaded.ContentData.HTML != tmpl.ContentData.HTML {
		t.Errorf("loaded template differs: %+v", loaded)
	}

	entries, err := fs.Index()
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "tpl-1" || entries[0].Filename != "tpl-1.json" {
		t.Errorf("unexpected index entries: %+v", entries)
	}
}

func TestFileStoreIndexReplacesSameID(t *testing.T) {
	fs := NewFileStore(t.TempDir())

	if err := fs.Save(testTemplate("tpl-1", "Before"), nil); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := fs.Save(testTemplate("tpl-1", "After"), nil); err != nil {
		t.Fatalf("second save: %v", err)
	}

	entries, err := fs.Index()
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after re-save, got %d", len(entries))
	}
	if entries[0].Name != "After" {
		t.Errorf("entry not replaced: %+v", entries[0])
	}
}

func TestFileStoreLoadNormalizesNullMetadata(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStore(dir)

	raw := `{"template":{"id":"tpl-null","name":"Legacy","contentData":{"html":"<html></html>","metadata":null}}}`
	if err := os.WriteFile(filepath.Join(dir, "tpl-null.json"), []byte(raw), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	loaded, err := fs.Load("tpl-null")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ContentData.Metadata == nil {
		t.Fatal("metadata map is nil; writes into it would panic")
	}
	loaded.ContentData.Metadata["crawledPages"] = []any{}
}

func TestFileStoreDelete(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	if err := fs.Save(testTemplate("tpl-1", "Acme"), nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := fs.Delete("tpl-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := fs.Load("tpl-1"); err == nil {
		t.Error("expected load to fail after delete")
	}
	entries, _ := fs.Index()
	if len(entries) != 0 {
		t.Errorf("expected empty index, got %+v", entries)
	}
}

// TestPersisterFallbackRoundTrip covers the hard guarantee: with the
// database unavailable, a scraped result must land in the file store
// and be listed with source "file".
func TestPersisterFallbackRoundTrip(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	fallbacks := 0
	p := NewPersister(nil, fs, zap.NewNop(), func() { fallbacks++ })

	tmpl := testTemplate("tpl-fb", "Fallback Co")
	site := &domain.ScrapedSite{URL: "https://fallback.example.com"}

	if err := p.Persist(context.Background(), tmpl, site); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if fallbacks != 1 {
		t.Errorf("expected 1 fallback, got %d", fallbacks)
	}

	entries, err := fs.Index()
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "tpl-fb" {
		t.Fatalf("expected index entry for tpl-fb, got %+v", entries)
	}

	listed, err := p.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 listed template, got %d", len(listed))
	}
	if listed[0].Source != SourceFile {
		t.Errorf("expected source %q, got %q", SourceFile, listed[0].Source)
	}
	if listed[0].ID != "tpl-fb" {
		t.Errorf("listed id = %q", listed[0].ID)
	}
}

func TestPersisterDeleteFileOnly(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	p := NewPersister(nil, fs, zap.NewNop(), nil)

	if err := p.Persist(context.Background(), testTemplate("tpl-d", "Del"), &domain.ScrapedSite{URL: "https://d.example.com"}); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if err := p.Delete(context.Background(), "tpl-d"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := p.Delete(context.Background(), "tpl-d"); err != ErrTemplateNotFound {
		t.Errorf("expected ErrTemplateNotFound on second delete, got %v", err)
	}
}
