package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/metrics", promhttp.Handler().(http.HandlerFunc))
	r.Get("/api/health", s.handleHealthCheck)

	r.Route("/api/admin", func(r chi.Router) {
		r.Route("/scraper", func(r chi.Router) {
			// Scrape endpoints stream for minutes; the timeout
			// middleware only wraps the short-lived routes below.
			r.Post("/scrape", s.handleScrape)
			r.Post("/scrape-design-quality", s.handleScrapeDesignQuality)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(30 * time.Second))
				r.Post("/continue-scraping", s.handleContinueScraping)
				r.Post("/crawl-multipage/{templateId}", s.handleCrawlMultipage)
				r.Get("/crawl-status/{templateId}", s.handleCrawlStatus)
			})
		})

		r.Route("/templates", func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Get("/", s.handleListTemplates)
			r.Post("/", s.handleCreateTemplate)
			r.Get("/{id}", s.handleGetTemplate)
			r.Put("/{id}", s.handleUpdateTemplate)
			r.Delete("/{id}", s.handleDeleteTemplate)
			r.Post("/{id}/approve", s.handleApproveTemplate)
			r.Post("/{id}/disapprove", s.handleDisapproveTemplate)
			r.Post("/{id}/duplicate", s.handleDuplicateTemplate)
			r.Post("/{id}/move-to-design", s.handleMoveToDesign)
		})
	})

	return r
}
