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

// ImageProgress is invoked after every image attempt, successful or
// not; attempted/total is what progress percentages are computed from.
type ImageProgress func(attempted, total int)

// Reimager replaces non-data-URI <img> sources with AI-generated
// images. Failures are contained per image.
type Reimager struct {
	provider ai.ImageProvider
	logger   *zap.Logger
}

func NewReimager(provider ai.ImageProvider, logger *zap.Logger) *Reimager {
	return &Reimager{provider: provider, logger: logger}
}

// Regenerate walks every <img> with a non-data: src, requests a
// replacement, and substitutes the src on success. A failed generation
// leaves the original src untouched and the loop continues. Returns
// the new HTML and the count of successfully replaced images.
func (r *Reimager) Regenerate(ctx context.Context, htmlContent string, biz domain.BusinessInfo, progress ImageProgress) (string, int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent, 0, fmt.Errorf("parsing html for reimaging: %w", err)
	}

	var targets []*goquery.Selection
	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		src, exists := s.Attr("src")
		if exists && src != "" && !strings.HasPrefix(src, "data:") {
			targets = append(targets, s)
		}
	})

	total := len(targets)
	replaced := 0
	for i, s := range targets {
		alt, _ := s.Attr("alt")
		newURL, err := r.provider.Generate(ctx, imagePrompt(alt, biz))
		if err != nil {
			r.logger.Warn("image regeneration failed, keeping original",
				zap.Int("index", i), zap.Error(err))
		} else {
			s.SetAttr("src", newURL)
			if alt != "" {
				s.SetAttr("alt", alt+" - "+biz.Name)
			}
			replaced++
		}
		if progress != nil {
			progress(i+1, total)
		}
	}

	out, err := doc.Html()
	if err != nil {
		return htmlContent, replaced, fmt.Errorf("serializing reimaged html: %w", err)
	}
	return out, replaced, nil
}

func imagePrompt(alt string, biz domain.BusinessInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Professional website photo for %s, a %s business.", biz.Name, biz.Industry)
	if alt != "" {
		fmt.Fprintf(&b, " Subject: %s.", alt)
	}
	b.WriteString(" Clean, modern, high quality.")
	return b.String()
}
