// Package seo normalizes head-level SEO metadata on regenerated pages.
package seo

import (
	"fmt"
	"strings"

	"templateforge/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

// Augment inserts missing SEO tags and back-fills image alt text.
// The operation is idempotent: meta tags are only added when absent,
// so a second run is a no-op. The <title> is the one asymmetry — its
// text is always overwritten (and the element created if missing).
// Augment cannot fail on well-formed HTML; a parse error returns the
// input unchanged.
func Augment(htmlContent string, biz domain.BusinessInfo) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}

	head := doc.Find("head").First()
	if head.Length() == 0 {
		return htmlContent
	}

	title := fmt.Sprintf("%s | %s", biz.Name, biz.Industry)
	description := fmt.Sprintf("%s - professional %s services", biz.Name, strings.ToLower(biz.Industry))
	if biz.Location != "" {
		description += " in " + biz.Location
	}

	if t := doc.Find("title"); t.Length() > 0 {
		t.First().SetText(title)
	} else {
		head.AppendHtml("<title></title>")
		doc.Find("title").First().SetText(title)
	}

	ensureMeta(head, doc, `meta[name="description"]`, "name", "description", description)
	if len(biz.Keywords) > 0 {
		ensureMeta(head, doc, `meta[name="keywords"]`, "name", "keywords", strings.Join(biz.Keywords, ", "))
	}
	ensureMeta(head, doc, `meta[property="og:title"]`, "property", "og:title", title)
	ensureMeta(head, doc, `meta[property="og:description"]`, "property", "og:description", description)

	defaultAlt := biz.Name + " - " + biz.Industry
	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		if alt, exists := s.Attr("alt"); !exists || strings.TrimSpace(alt) == "" {
			s.SetAttr("alt", defaultAlt)
		}
	})

	out, err := doc.Html()
	if err != nil {
		return htmlContent
	}
	return out
}

// ensureMeta appends a meta tag only when no element matches selector.
func ensureMeta(head *goquery.Selection, doc *goquery.Document, selector, attr, key, content string) {
	if doc.Find(selector).Length() > 0 {
		return
	}
	head.AppendHtml(fmt.Sprintf(`<meta %s="%s" content="%s">`, attr, key, escapeAttr(content)))
}

func escapeAttr(s string) string {
	return strings.NewReplacer(`"`, "&quot;", "<", "&lt;", ">", "&gt;").Replace(s)
}
