package domain

import "time"

// ScrapedSite holds the raw material pulled from one fetched page.
// It is built once by the extractor, immutable afterwards, and consumed
// by the rewriting stages. When Error is set the scrape failed and
// downstream stages must not proceed.
type ScrapedSite struct {
	URL          string       `json:"url"`
	CompanyName  string       `json:"companyName"`
	HTMLContent  string       `json:"htmlContent"`
	CSSContent   string       `json:"cssContent"`
	Images       []ImageRef   `json:"images"`
	TextContent  TextContent  `json:"textContent"`
	DesignTokens DesignTokens `json:"designTokens"`
	Metadata     PageMetadata `json:"metadata"`
	Error        string       `json:"error,omitempty"`
}

// ImageRef is one <img> reference found in a page.
type ImageRef struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// TextContent is the extracted textual structure of a page.
type TextContent struct {
	Headings   []string `json:"headings"`
	Paragraphs []string `json:"paragraphs"`
}

// DesignTokens are the visual traits inferred from a page's styling.
type DesignTokens struct {
	Colors     []string          `json:"colors"`
	Typography map[string]string `json:"typography"`
}

// PageMetadata is the head-level metadata of a fetched page.
type PageMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Language    string `json:"language,omitempty"`
}

// Template is the pipeline's output artifact. A template is visible to
// end users only when both IsApproved and IsActive are true.
type Template struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Brand             string      `json:"brand"`
	Industry          string      `json:"industry"`
	Category          string      `json:"category"`
	ContentData       ContentData `json:"contentData"`
	SourceID          string      `json:"sourceId,omitempty"`
	IsDesignQuality   bool        `json:"isDesignQuality"`
	DesignCategory    string      `json:"designCategory,omitempty"`
	DesignScore       float64     `json:"designScore,omitempty"`
	DesignAwardSource string      `json:"designAwardSource,omitempty"`
	IsApproved        bool        `json:"isApproved"`
	IsActive          bool        `json:"isActive"`
	LocationCountry   string      `json:"locationCountry,omitempty"`
	LocationState     string      `json:"locationState,omitempty"`
	LocationCity      string      `json:"locationCity,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

// ContentData carries the regenerated HTML plus the per-stage metadata
// accumulated as the template moves through the pipeline.
type ContentData struct {
	HTML     string         `json:"html"`
	Metadata map[string]any `json:"metadata"`
}

// Source is a deduplicated record of one company's canonical website
// URL. Created at most once per URL; later scrapes reuse the id.
type Source struct {
	ID          string    `json:"id"`
	CompanyName string    `json:"companyName"`
	WebsiteURL  string    `json:"websiteUrl"`
	Industry    string    `json:"industry"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Stage identifies one step of the scrape pipeline. Stages move
// strictly forward; there is no re-entry after a terminal stage.
type Stage string

const (
	StageScraping  Stage = "scraping"
	StageRewriting Stage = "rewriting"
	StageReimaging Stage = "reimaging"
	StageSEO       Stage = "seo"
	StageVerifying Stage = "verifying"
	StageComplete  Stage = "complete"
	StageError     Stage = "error"
)

// ProcessingStatus is emitted once per stage transition per site. It is
// transient and never persisted.
type ProcessingStatus struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Year     int    `json:"year,omitempty"`
	Industry string `json:"industry"`
	Stage    Stage  `json:"stage"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
	Error    string `json:"error,omitempty"`
}

// CrawlState is the lifecycle of a multi-page crawl.
type CrawlState string

const (
	CrawlIdle      CrawlState = "idle"
	CrawlRunning   CrawlState = "running"
	CrawlCompleted CrawlState = "completed"
	CrawlError     CrawlState = "error"
)

// CrawlStatus is the pollable state of one multi-page crawl, keyed by
// template id in the status registry. PauseKey is set while the crawl
// is paused awaiting confirmation; a client resumes it through the
// continue-scraping endpoint.
type CrawlStatus struct {
	Status       CrawlState `json:"status"`
	PagesScraped int        `json:"pagesScraped"`
	TotalPages   int        `json:"totalPages"`
	CurrentURL   string     `json:"currentUrl"`
	PauseKey     string     `json:"pauseKey,omitempty"`
	Errors       []string   `json:"errors"`
	StartTime    time.Time  `json:"startTime"`
	EndTime      *time.Time `json:"endTime,omitempty"`
}

// BusinessInfo is the caller-supplied context used to steer the
// rewriting and image stages.
type BusinessInfo struct {
	Name     string   `json:"name"`
	Industry string   `json:"industry"`
	Location string   `json:"location,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// ScrapeItemResult is the per-URL outcome of a batch scrape.
type ScrapeItemResult struct {
	URL      string       `json:"url"`
	Success  bool         `json:"success"`
	Data     *ScrapedSite `json:"data,omitempty"`
	Template *Template    `json:"template,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// BatchSummary is the terminal report of a batch run.
type BatchSummary struct {
	Processed    int `json:"processed"`
	SuccessCount int `json:"successCount"`
	FailCount    int `json:"failCount"`
}
