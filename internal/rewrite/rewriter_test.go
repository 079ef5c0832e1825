package rewrite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"templateforge/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// fakeProvider answers each call in order and can fail selected calls.
type fakeProvider struct {
	calls    int
	failCall map[int]bool // zero-based call index
}

func (f *fakeProvider) Name() string    { return "fake" }
func (f *fakeProvider) Available() bool { return true }

func (f *fakeProvider) Complete(ctx context.Context, prompt string) (string, error) {
	idx := f.calls
	f.calls++
	if f.failCall[idx] {
		return "", errors.New("provider unavailable")
	}
	return fmt.Sprintf("rewritten-%d", idx), nil
}

func testSite() (*domain.ScrapedSite, string) {
	html := `<html><head></head><body>` +
		`<h1>Original Heading</h1>` +
		`<p>First original paragraph with enough words.</p>` +
		`<p>Second original paragraph with enough words.</p>` +
		`<p>Third original paragraph with enough words.</p>` +
		`</body></html>`
	site := &domain.ScrapedSite{
		URL:         "https://example.com",
		HTMLContent: html,
		TextContent: domain.TextContent{
			Headings: []string{"Original Heading"},
			Paragraphs: []string{
				"First original paragraph with enough words.",
				"Second original paragraph with enough words.",
				"Third original paragraph with enough words.",
			},
		},
	}
	return site, html
}

func TestRewritePartialFailureContainment(t *testing.T) {
	site, html := testSite()
	// Call 0 is the headline; calls 1-3 are paragraphs 0-2. Fail
	// paragraph index 1.
	provider := &fakeProvider{failCall: map[int]bool{2: true}}
	r := NewRewriter(provider, zap.NewNop())

	out, outcomes, err := r.Rewrite(context.Background(), html, site, domain.BusinessInfo{Name: "Acme", Industry: "Tools"})
	if err != nil {
		t.Fatalf("rewrite returned error: %v", err)
	}

	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(out))
	paragraphs := doc.Find("p").Map(func(i int, s *goquery.Selection) string {
		return strings.TrimSpace(s.Text())
	})
	if len(paragraphs) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d", len(paragraphs))
	}
	if paragraphs[0] != "rewritten-1" {
		t.Errorf("paragraph 0 not rewritten: %q", paragraphs[0])
	}
	if paragraphs[1] != "Second original paragraph with enough words." {
		t.Errorf("failed paragraph 1 was changed: %q", paragraphs[1])
	}
	if paragraphs[2] != "rewritten-3" {
		t.Errorf("paragraph 2 not rewritten: %q", paragraphs[2])
	}

	if len(outcomes) != 4 {
		t.Fatalf("expected 4 outcomes, got %d", len(outcomes))
	}
	if outcomes[2].Rewritten || outcomes[2].Error == "" {
		t.Errorf("outcome for failed paragraph should record the error: %+v", outcomes[2])
	}
}

func TestRewriteTruncatesAtBudget(t *testing.T) {
	site, html := testSite()
	long := strings.Repeat("x", HeadlineBudget*2)

	r := NewRewriter(&longProvider{long}, zap.NewNop())
	out, _, err := r.Rewrite(context.Background(), html, site, domain.BusinessInfo{Name: "Acme", Industry: "Tools"})
	if err != nil {
		t.Fatalf("rewrite returned error: %v", err)
	}

	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(out))
	heading := strings.TrimSpace(doc.Find("h1").Text())
	if len([]rune(heading)) != HeadlineBudget {
		t.Errorf("expected headline cut to %d runes, got %d", HeadlineBudget, len([]rune(heading)))
	}
}

type longProvider struct{ reply string }

func (l *longProvider) Name() string    { return "long" }
func (l *longProvider) Available() bool { return true }
func (l *longProvider) Complete(ctx context.Context, prompt string) (string, error) {
	return l.reply, nil
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		budget int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly-10", 10, "exactly-10"},
		{"this gets cut off", 9, "this gets"},
		{"  padded  ", 10, "padded"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.budget); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.budget, got, tt.want)
		}
	}
}
