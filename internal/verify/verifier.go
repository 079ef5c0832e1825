// Package verify runs the final quality checks on regenerated HTML.
package verify

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// minContentLength is the floor for the visible-text check.
const minContentLength = 1000

// Checks are the individual verification results. Verified is the
// logical AND of the four checks; no score is computed here — the
// numeric score used by the review endpoints lives in Score.
type Checks struct {
	ContentLength  bool `json:"contentLength"`
	TitlePresent   bool `json:"titlePresent"`
	HasDescription bool `json:"hasDescription"`
	HasImages      bool `json:"hasImages"`
	Verified       bool `json:"verified"`
}

// Verify is a pure function of the final HTML; it has no side effects
// and cannot fail. Unparseable input fails every check.
func Verify(htmlContent string) Checks {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return Checks{}
	}

	text := strings.TrimSpace(doc.Find("body").Text())

	c := Checks{
		ContentLength:  len(text) > minContentLength,
		TitlePresent:   strings.TrimSpace(doc.Find("title").First().Text()) != "",
		HasDescription: doc.Find(`meta[name="description"]`).Length() > 0,
		HasImages:      doc.Find("img").Length() > 0,
	}
	c.Verified = c.ContentLength && c.TitlePresent && c.HasDescription && c.HasImages
	return c
}

// Score converts checks into the 0-100 review score: 25 points per
// passed check. The boolean gate above never consults this value.
func Score(c Checks) int {
	score := 0
	for _, ok := range []bool{c.ContentLength, c.TitlePresent, c.HasDescription, c.HasImages} {
		if ok {
			score += 25
		}
	}
	return score
}
