package extract

import (
	"net/url"
	"regexp"
	"strings"

	"templateforge/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/abadojack/whatlanggo"
)

// minParagraphLen filters boilerplate fragments out of the paragraph
// list; shorter <p> nodes are usually nav or legal footers.
const minParagraphLen = 20

const maxColors = 12

var (
	hexColorRe = regexp.MustCompile(`#(?:[0-9a-fA-F]{3}){1,2}\b`)
	rgbColorRe = regexp.MustCompile(`rgba?\([^)]+\)`)
	fontRe     = regexp.MustCompile(`font-family\s*:\s*([^;}"]+)`)
)

// Extract parses fetched HTML into the normalized ScrapedSite record.
// Malformed or missing markup yields empty lists, never an error;
// downstream stages must tolerate zero-length inputs.
func Extract(rawURL, htmlContent string) (*domain.ScrapedSite, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	site := &domain.ScrapedSite{
		URL:         rawURL,
		CompanyName: companyNameFromURL(rawURL),
		HTMLContent: htmlContent,
		Images:      []domain.ImageRef{},
		TextContent: domain.TextContent{Headings: []string{}, Paragraphs: []string{}},
		DesignTokens: domain.DesignTokens{
			Colors:     []string{},
			Typography: map[string]string{},
		},
	}

	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(i int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			site.TextContent.Headings = append(site.TextContent.Headings, text)
		}
	})

	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); len(text) >= minParagraphLen {
			site.TextContent.Paragraphs = append(site.TextContent.Paragraphs, text)
		}
	})

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		src, exists := s.Attr("src")
		if !exists || src == "" {
			return
		}
		alt, _ := s.Attr("alt")
		site.Images = append(site.Images, domain.ImageRef{Src: src, Alt: alt})
	})

	var cssChunks []string
	doc.Find("style").Each(func(i int, s *goquery.Selection) {
		cssChunks = append(cssChunks, s.Text())
	})
	site.CSSContent = strings.Join(cssChunks, "\n")

	site.DesignTokens = extractDesignTokens(doc, site.CSSContent)

	site.Metadata.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if val, exists := doc.Find(`meta[name="description"]`).Attr("content"); exists {
		site.Metadata.Description = strings.TrimSpace(val)
	}
	site.Metadata.Language = detectLanguage(site, doc)

	return site, nil
}

// extractDesignTokens infers a color palette and font stack from
// inline styles and embedded stylesheets.
func extractDesignTokens(doc *goquery.Document, css string) domain.DesignTokens {
	tokens := domain.DesignTokens{
		Colors:     []string{},
		Typography: map[string]string{},
	}

	seen := make(map[string]struct{})
	addColors := func(text string) {
		for _, c := range hexColorRe.FindAllString(text, -1) {
			c = strings.ToLower(c)
			if _, ok := seen[c]; !ok && len(tokens.Colors) < maxColors {
				seen[c] = struct{}{}
				tokens.Colors = append(tokens.Colors, c)
			}
		}
		for _, c := range rgbColorRe.FindAllString(text, -1) {
			if _, ok := seen[c]; !ok && len(tokens.Colors) < maxColors {
				seen[c] = struct{}{}
				tokens.Colors = append(tokens.Colors, c)
			}
		}
	}

	addColors(css)
	doc.Find("[style]").Each(func(i int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		addColors(style)
		if m := fontRe.FindStringSubmatch(style); m != nil && tokens.Typography["body"] == "" {
			tokens.Typography["body"] = strings.TrimSpace(m[1])
		}
	})

	if m := fontRe.FindStringSubmatch(css); m != nil && tokens.Typography["body"] == "" {
		tokens.Typography["body"] = strings.TrimSpace(m[1])
	}

	return tokens
}

func detectLanguage(site *domain.ScrapedSite, doc *goquery.Document) string {
	var snippet string
	if len(site.TextContent.Paragraphs) > 0 {
		snippet = site.TextContent.Paragraphs[0]
	}
	text := strings.TrimSpace(site.Metadata.Title + " " + site.Metadata.Description + " " + snippet)
	if text == "" {
		return ""
	}
	info := whatlanggo.Detect(text)
	return info.Lang.Iso6393()
}

// companyNameFromURL derives a display name from the hostname, e.g.
// "https://www.acme-tools.com/about" -> "Acme Tools".
func companyNameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	if idx := strings.Index(host, "."); idx > 0 {
		host = host[:idx]
	}
	host = strings.NewReplacer("-", " ", "_", " ").Replace(host)
	words := strings.Fields(host)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
