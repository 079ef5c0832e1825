// Package rewrite regenerates page copy and images through the AI
// providers. Both stages are best-effort per node: a failed call keeps
// the original content and the pipeline continues.
package rewrite

import (
	"context"
	"fmt"
	"strings"

	"templateforge/internal/ai"
	"templateforge/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Character budgets for rewritten copy. Output is hard-cut at the
// budget, which can sever a sentence; the cut is the contract, callers
// must not expect whole sentences near the limit.
const (
	HeadlineBudget  = 80
	ParagraphBudget = 400
)

const maxParagraphs = 3

// NodeOutcome records whether one text node was rewritten or kept.
type NodeOutcome struct {
	Index     int    `json:"index"`
	Kind      string `json:"kind"` // "heading" or "paragraph"
	Rewritten bool   `json:"rewritten"`
	Error     string `json:"error,omitempty"`
}

// Rewriter replaces a page's first heading and leading paragraphs with
// AI-paraphrased, keyword-infused copy.
type Rewriter struct {
	provider ai.TextProvider
	logger   *zap.Logger
}

func NewRewriter(provider ai.TextProvider, logger *zap.Logger) *Rewriter {
	return &Rewriter{provider: provider, logger: logger}
}

// Rewrite returns new HTML with rewritten copy plus the per-node
// outcomes. One provider call is made per node; a failed call leaves
// that node's original text unchanged and processing continues.
func (r *Rewriter) Rewrite(ctx context.Context, htmlContent string, site *domain.ScrapedSite, biz domain.BusinessInfo) (string, []NodeOutcome, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent, nil, fmt.Errorf("parsing html for rewrite: %w", err)
	}

	var outcomes []NodeOutcome

	if len(site.TextContent.Headings) > 0 {
		original := site.TextContent.Headings[0]
		outcome := NodeOutcome{Index: 0, Kind: "heading"}
		rewritten, err := r.provider.Complete(ctx, headlinePrompt(original, biz))
		if err != nil {
			outcome.Error = err.Error()
			r.logger.Warn("headline rewrite failed, keeping original", zap.Error(err))
		} else {
			replaceFirstMatchingText(doc, "h1, h2, h3, h4, h5, h6", original, truncate(rewritten, HeadlineBudget))
			outcome.Rewritten = true
		}
		outcomes = append(outcomes, outcome)
	}

	n := len(site.TextContent.Paragraphs)
	if n > maxParagraphs {
		n = maxParagraphs
	}
	for i := 0; i < n; i++ {
		original := site.TextContent.Paragraphs[i]
		outcome := NodeOutcome{Index: i, Kind: "paragraph"}
		rewritten, err := r.provider.Complete(ctx, paragraphPrompt(original, biz))
		if err != nil {
			outcome.Error = err.Error()
			r.logger.Warn("paragraph rewrite failed, keeping original",
				zap.Int("index", i), zap.Error(err))
		} else {
			replaceFirstMatchingText(doc, "p", original, truncate(rewritten, ParagraphBudget))
			outcome.Rewritten = true
		}
		outcomes = append(outcomes, outcome)
	}

	out, err := doc.Html()
	if err != nil {
		return htmlContent, outcomes, fmt.Errorf("serializing rewritten html: %w", err)
	}
	return out, outcomes, nil
}

func headlinePrompt(original string, biz domain.BusinessInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rewrite this website headline for %q, a business in the %s industry", biz.Name, biz.Industry)
	if biz.Location != "" {
		fmt.Fprintf(&b, " located in %s", biz.Location)
	}
	b.WriteString(". Keep it punchy and under 80 characters.")
	if len(biz.Keywords) > 0 {
		fmt.Fprintf(&b, " Naturally include these SEO keywords where possible: %s.", strings.Join(biz.Keywords, ", "))
	}
	fmt.Fprintf(&b, "\n\nOriginal headline: %s\n\nRespond with only the rewritten headline.", original)
	return b.String()
}

func paragraphPrompt(original string, biz domain.BusinessInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Paraphrase this website paragraph for %q (%s industry)", biz.Name, biz.Industry)
	if biz.Location != "" {
		fmt.Fprintf(&b, " in %s", biz.Location)
	}
	b.WriteString(", preserving its meaning and section role.")
	if len(biz.Keywords) > 0 {
		fmt.Fprintf(&b, " Work in these SEO keywords naturally: %s.", strings.Join(biz.Keywords, ", "))
	}
	fmt.Fprintf(&b, "\n\nOriginal paragraph: %s\n\nRespond with only the rewritten paragraph.", original)
	return b.String()
}

// replaceFirstMatchingText swaps the text of the first node in the
// selector whose trimmed text equals the original extracted text.
func replaceFirstMatchingText(doc *goquery.Document, selector, original, replacement string) {
	replaced := false
	doc.Find(selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Text()) == original {
			s.SetText(replacement)
			replaced = true
			return false
		}
		return true
	})
	if !replaced {
		// Extraction trims whitespace, so a miss here means the node
		// was restructured between stages; nothing safe to do.
		return
	}
}

// truncate hard-cuts text to the rune budget.
func truncate(s string, budget int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= budget {
		return s
	}
	return string(runes[:budget])
}
