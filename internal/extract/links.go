package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ignoredExtensions are asset links never worth crawling.
var ignoredExtensions = []string{
	".pdf", ".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico",
	".zip", ".rar", ".exe", ".mp3", ".mp4", ".avi", ".mov",
	".css", ".js", ".xml", ".json", ".gz", ".tar",
}

// Links returns the deduplicated same-origin links of a page, resolved
// against the base URL with fragments stripped. Discovery order is
// preserved so the crawl driver visits first-seen first.
func Links(htmlContent, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "javascript:") {
			return
		}

		lower := strings.ToLower(href)
		for _, ext := range ignoredExtensions {
			if strings.HasSuffix(lower, ext) {
				return
			}
		}

		resolved, err := base.Parse(href)
		if err != nil || (resolved.Scheme != "http" && resolved.Scheme != "https") {
			return
		}
		if resolved.Hostname() != base.Hostname() {
			return
		}
		resolved.Fragment = ""
		key := resolved.String()
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		links = append(links, key)
	})
	return links
}
