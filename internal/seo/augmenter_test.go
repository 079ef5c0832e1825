package seo

import (
	"strings"
	"testing"

	"templateforge/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

var biz = domain.BusinessInfo{
	Name:     "Acme Plumbing",
	Industry: "Plumbing",
	Location: "Austin, TX",
	Keywords: []string{"emergency plumber", "pipe repair"},
}

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing html: %v", err)
	}
	return doc
}

func TestAugmentInsertsMissingTags(t *testing.T) {
	html := `<html><head></head><body><img src="a.jpg"><p>hello</p></body></html>`
	out := Augment(html, biz)
	doc := parse(t, out)

	if doc.Find("title").Length() != 1 {
		t.Errorf("expected one title, got %d", doc.Find("title").Length())
	}
	if got := doc.Find("title").Text(); got != "Acme Plumbing | Plumbing" {
		t.Errorf("unexpected title %q", got)
	}
	for _, sel := range []string{
		`meta[name="description"]`,
		`meta[name="keywords"]`,
		`meta[property="og:title"]`,
		`meta[property="og:description"]`,
	} {
		if doc.Find(sel).Length() != 1 {
			t.Errorf("expected one %s, got %d", sel, doc.Find(sel).Length())
		}
	}
	if alt, _ := doc.Find("img").Attr("alt"); alt != "Acme Plumbing - Plumbing" {
		t.Errorf("expected default alt, got %q", alt)
	}
}

func TestAugmentIsIdempotent(t *testing.T) {
	html := `<html><head><title>Old</title></head><body><img src="a.jpg"></body></html>`
	once := Augment(html, biz)
	twice := Augment(once, biz)

	if once != twice {
		t.Errorf("second application changed output:\nfirst:  %s\nsecond: %s", once, twice)
	}

	doc := parse(t, twice)
	if n := doc.Find(`meta[name="description"]`).Length(); n != 1 {
		t.Errorf("expected 1 description meta after two runs, got %d", n)
	}
	if n := doc.Find(`meta[property="og:title"]`).Length(); n != 1 {
		t.Errorf("expected 1 og:title meta after two runs, got %d", n)
	}
	if n := doc.Find("title").Length(); n != 1 {
		t.Errorf("expected 1 title after two runs, got %d", n)
	}
}

func TestAugmentOverwritesTitleButNotMetas(t *testing.T) {
	html := `<html><head><title>Keep Me?</title>` +
		`<meta name="description" content="original description">` +
		`</head><body></body></html>`
	doc := parse(t, Augment(html, biz))

	// Title is always overwritten; existing metas are left alone.
	if got := doc.Find("title").Text(); got != "Acme Plumbing | Plumbing" {
		t.Errorf("title not overwritten, got %q", got)
	}
	if content, _ := doc.Find(`meta[name="description"]`).Attr("content"); content != "original description" {
		t.Errorf("existing description was replaced: %q", content)
	}
}

func TestAugmentKeepsExistingAlt(t *testing.T) {
	html := `<html><head></head><body><img src="a.jpg" alt="custom alt"></body></html>`
	doc := parse(t, Augment(html, biz))
	if alt, _ := doc.Find("img").Attr("alt"); alt != "custom alt" {
		t.Errorf("existing alt was replaced: %q", alt)
	}
}
