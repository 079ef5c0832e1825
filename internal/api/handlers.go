package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"templateforge/internal/domain"
	"templateforge/internal/pipeline"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ScrapeOptions tunes one scrape request.
type ScrapeOptions struct {
	Force    bool     `json:"force"`
	Keywords []string `json:"keywords,omitempty"`
	Location string   `json:"location,omitempty"`
}

// ScrapeRequest is the payload for the scrape endpoints.
type ScrapeRequest struct {
	URLs            []string       `json:"urls"`
	Industry        string         `json:"industry"`
	Options         *ScrapeOptions `json:"options,omitempty"`
	IsDesignQuality bool           `json:"isDesignQuality,omitempty"`
	DesignCategory  string         `json:"designCategory,omitempty"`
	AwardSource     string         `json:"awardSource,omitempty"`
	Country         string         `json:"country,omitempty"`
	State           string         `json:"state,omitempty"`
	City            string         `json:"city,omitempty"`
	StreamProgress  bool           `json:"streamProgress,omitempty"`
}

func (req *ScrapeRequest) validate() string {
	if len(req.URLs) == 0 {
		return "urls list cannot be empty"
	}
	if req.Industry == "" {
		return "industry is required"
	}
	for _, u := range req.URLs {
		if _, err := url.ParseRequestURI(u); err != nil {
			return "invalid URL in list: " + u
		}
	}
	return ""
}

func (req *ScrapeRequest) pipelineOptions() pipeline.Options {
	opts := pipeline.Options{
		Business: domain.BusinessInfo{
			Industry: req.Industry,
		},
		Category:        req.Industry,
		IsDesignQuality: req.IsDesignQuality,
		DesignCategory:  req.DesignCategory,
		AwardSource:     req.AwardSource,
		Country:         req.Country,
		State:           req.State,
		City:            req.City,
	}
	if req.Options != nil {
		opts.Business.Keywords = req.Options.Keywords
		opts.Business.Location = req.Options.Location
	}
	return opts
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		s.respondWithError(w, http.StatusBadRequest, msg)
		return
	}

	urls := s.filterRecent(r, req)

	// Detached from the request context: a disconnecting client must
	// not abandon sites still queued in the batch.
	ctx := context.WithoutCancel(r.Context())
	results, _ := s.batch.Run(ctx, urls, req.pipelineOptions(), nil)
	s.markScraped(ctx, results)

	s.respondWithJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleScrapeDesignQuality(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.IsDesignQuality = true
	if req.DesignCategory == "" {
		req.DesignCategory = req.Industry
	}
	if msg := req.validate(); msg != "" {
		s.respondWithError(w, http.StatusBadRequest, msg)
		return
	}

	wantsStream := req.StreamProgress ||
		strings.Contains(r.Header.Get("Accept"), "text/event-stream")

	urls := s.filterRecent(r, req)

	// As with handleScrape, the batch outlives a client disconnect;
	// only the event feed stops.
	ctx := context.WithoutCancel(r.Context())

	if !wantsStream {
		results, _ := s.batch.Run(ctx, urls, req.pipelineOptions(), nil)
		s.markScraped(ctx, results)
		s.respondWithJSON(w, http.StatusOK, map[string]any{"results": results})
		return
	}

	stream := newSSEWriter(w)
	if stream == nil {
		s.respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	stream.Send(pipeline.BatchEvent{Type: "connected"})

	results, _ := s.batch.Run(ctx, urls, req.pipelineOptions(), func(ev pipeline.BatchEvent) {
		stream.Send(ev)
	})
	s.markScraped(ctx, results)
	// The batch driver emits the terminal complete frame; returning
	// closes the stream.
}

func (s *Server) handleContinueScraping(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PauseKey string `json:"pauseKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PauseKey == "" {
		s.respondWithError(w, http.StatusBadRequest, "pauseKey is required")
		return
	}

	if !s.pauses.Resume(r.Context(), req.PauseKey) {
		s.respondWithError(w, http.StatusNotFound, "unknown or already resolved pause key")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]any{"success": true, "message": "scraping resumed"})
}

func (s *Server) handleCrawlMultipage(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "templateId")

	var req struct {
		MaxPages int `json:"maxPages"`
		MaxDepth int `json:"maxDepth"`
	}
	// An empty body means run with the defaults.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		s.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MaxPages <= 0 {
		req.MaxPages = 25
	}
	if req.MaxDepth <= 0 {
		req.MaxDepth = 2
	}

	if _, err := s.persister.Get(r.Context(), templateID); err != nil {
		s.respondWithError(w, http.StatusNotFound, "template not found")
		return
	}

	// Fire and forget. The crawl owns its own context; disconnecting
	// the initiating client does not stop it. Progress is polled via
	// the crawl-status endpoint.
	go func() {
		if err := s.crawler.Run(context.Background(), templateID, req.MaxPages, req.MaxDepth); err != nil {
			s.logger.Error("multi-page crawl failed",
				zap.String("templateId", templateID), zap.Error(err))
		}
	}()

	s.respondWithJSON(w, http.StatusAccepted, map[string]any{
		"success":    true,
		"message":    "crawl started",
		"templateId": templateID,
	})
}

func (s *Server) handleCrawlStatus(w http.ResponseWriter, r *http.Request) {
	templateID := chi.URLParam(r, "templateId")
	status, err := s.statuses.Get(r.Context(), templateID)
	if err != nil {
		s.respondWithError(w, http.StatusNotFound, "no crawl status for template")
		return
	}
	s.respondWithJSON(w, http.StatusOK, status)
}

// filterRecent drops URLs scraped inside the dedup window unless the
// request forces a re-scrape.
func (s *Server) filterRecent(r *http.Request, req ScrapeRequest) []string {
	if req.Options != nil && req.Options.Force {
		return req.URLs
	}
	urls := make([]string, 0, len(req.URLs))
	for _, u := range req.URLs {
		recent, err := s.dedup.IsRecent(r.Context(), u)
		if err != nil {
			s.logger.Warn("dedup check failed, scraping anyway", zap.String("url", u), zap.Error(err))
		}
		if recent {
			s.logger.Info("skipping recently scraped URL", zap.String("url", u))
			continue
		}
		urls = append(urls, u)
	}
	return urls
}

func (s *Server) markScraped(ctx context.Context, results []domain.ScrapeItemResult) {
	for _, res := range results {
		if !res.Success {
			continue
		}
		if err := s.dedup.Mark(ctx, res.URL); err != nil {
			s.logger.Warn("failed to mark URL as scraped", zap.String("url", res.URL), zap.Error(err))
		}
	}
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]any{"success": false, "error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
