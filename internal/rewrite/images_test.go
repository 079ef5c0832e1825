package rewrite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"templateforge/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

type fakeImageProvider struct {
	calls   int
	failURL map[int]bool
}

func (f *fakeImageProvider) Name() string    { return "fake-images" }
func (f *fakeImageProvider) Available() bool { return true }

func (f *fakeImageProvider) Generate(ctx context.Context, prompt string) (string, error) {
	idx := f.calls
	f.calls++
	if f.failURL[idx] {
		return "", errors.New("generation failed")
	}
	return "https://cdn.example.com/generated.png", nil
}

func TestRegenerateSkipsDataURIs(t *testing.T) {
	html := `<html><body>` +
		`<img src="data:image/png;base64,AAAA" alt="inline">` +
		`<img src="https://example.com/a.jpg" alt="photo">` +
		`</body></html>`
	provider := &fakeImageProvider{}
	r := NewReimager(provider, zap.NewNop())

	out, replaced, err := r.Regenerate(context.Background(), html, domain.BusinessInfo{Name: "Acme", Industry: "Tools"}, nil)
	if err != nil {
		t.Fatalf("regenerate returned error: %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("expected 1 generation call, got %d", provider.calls)
	}
	if replaced != 1 {
		t.Errorf("expected 1 replaced image, got %d", replaced)
	}
	if !strings.Contains(out, "data:image/png;base64,AAAA") {
		t.Error("data URI image was modified")
	}
}

func TestRegenerateProgressCountsAttempts(t *testing.T) {
	html := `<html><body>` +
		`<img src="/a.jpg"><img src="/b.jpg"><img src="/c.jpg">` +
		`</body></html>`
	// Middle image fails; progress must still advance for it.
	provider := &fakeImageProvider{failURL: map[int]bool{1: true}}
	r := NewReimager(provider, zap.NewNop())

	var reports [][2]int
	out, replaced, err := r.Regenerate(context.Background(), html, domain.BusinessInfo{Name: "Acme", Industry: "Tools"},
		func(attempted, total int) {
			reports = append(reports, [2]int{attempted, total})
		})
	if err != nil {
		t.Fatalf("regenerate returned error: %v", err)
	}
	if replaced != 2 {
		t.Errorf("expected 2 replaced images, got %d", replaced)
	}

	want := [][2]int{{1, 3}, {2, 3}, {3, 3}}
	if len(reports) != len(want) {
		t.Fatalf("expected %d progress reports, got %d", len(want), len(reports))
	}
	for i, r := range reports {
		if r != want[i] {
			t.Errorf("report %d = %v, want %v", i, r, want[i])
		}
	}

	// The failed image keeps its original src.
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(out))
	src, _ := doc.Find("img").Eq(1).Attr("src")
	if src != "/b.jpg" {
		t.Errorf("failed image src changed: %q", src)
	}
}
