package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"templateforge/internal/ai"
	"templateforge/internal/domain"
	"templateforge/internal/monitoring"
	"templateforge/internal/registry"
	"templateforge/internal/rewrite"
	"templateforge/internal/storage"

	"go.uber.org/zap"
)

// Prometheus collectors register globally, so the test binary shares
// one Metrics instance.
var testMetrics = monitoring.NewMetrics()

// fakeFetcher serves canned HTML and fails configured URLs.
type fakeFetcher struct {
	pages map[string]string
	fail  map[string]bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if f.fail[url] {
		return "", fmt.Errorf("connection refused")
	}
	if page, ok := f.pages[url]; ok {
		return page, nil
	}
	return defaultPage, nil
}

var defaultPage = `<html><head><title>Site</title>` +
	`<meta name="description" content="d"></head>` +
	`<body><h1>Heading</h1>` +
	`<p>` + strings.Repeat("words and more words ", 60) + `</p>` +
	`<img src="/a.jpg" alt="photo"></body></html>`

// unavailable providers keep original content with no network calls.
func newTestPipeline(t *testing.T, fetcher Fetcher) (*Pipeline, *storage.Persister) {
	t.Helper()
	log := zap.NewNop()
	persister := storage.NewPersister(nil, storage.NewFileStore(t.TempDir()), log, nil)
	rewriter := rewrite.NewRewriter(ai.NewOpenAI("", "test-model"), log)
	reimager := rewrite.NewReimager(ai.NewLeonardo(""), log)
	return NewPipeline(fetcher, rewriter, reimager, persister, testMetrics, log), persister
}

func newTestBatch(t *testing.T, fetcher Fetcher, pauseEvery int, pauseTimeout time.Duration) *BatchDriver {
	t.Helper()
	pipe, _ := newTestPipeline(t, fetcher)
	pauses := registry.NewPauses(registry.NewMemory(), pauseTimeout)
	return NewBatchDriver(pipe, pauses, time.Millisecond, pauseEvery, zap.NewNop())
}

// TestBatchOrderPreservedWithFailure: a failure mid-batch neither
// aborts the run nor disturbs result ordering.
func TestBatchOrderPreservedWithFailure(t *testing.T) {
	urls := []string{
		"https://one.example.com",
		"https://two.example.com",
		"https://three.example.com",
	}
	fetcher := &fakeFetcher{fail: map[string]bool{urls[1]: true}}
	b := newTestBatch(t, fetcher, 0, time.Minute)

	results, summary := b.Run(context.Background(), urls, Options{
		Business: domain.BusinessInfo{Industry: "Retail"},
	}, nil)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.URL != urls[i] {
			t.Errorf("results[%d].URL = %q, want %q", i, r.URL, urls[i])
		}
	}
	if !results[0].Success || results[1].Success || !results[2].Success {
		t.Errorf("unexpected success pattern: %v %v %v",
			results[0].Success, results[1].Success, results[2].Success)
	}
	if results[1].Error == "" {
		t.Error("failed result missing error message")
	}

	if summary.Processed != 3 || summary.SuccessCount != 2 || summary.FailCount != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestBatchEmitsTerminalComplete(t *testing.T) {
	b := newTestBatch(t, &fakeFetcher{}, 0, time.Minute)

	var events []BatchEvent
	b.Run(context.Background(), []string{"https://one.example.com"}, Options{
		Business: domain.BusinessInfo{Industry: "Retail"},
	}, func(ev BatchEvent) {
		events = append(events, ev)
	})

	if len(events) == 0 {
		t.Fatal("no events emitted")
	}
	last := events[len(events)-1]
	if last.Type != "complete" || last.Summary == nil {
		t.Errorf("terminal event = %+v, want complete with summary", last)
	}
}

// TestBatchPausesAndAutoResumes: with 25 items and a batch size of 10
// the driver pauses after items 10 and 20; with no external resume it
// auto-resumes on timeout and still completes all 25.
func TestBatchPausesAndAutoResumes(t *testing.T) {
	urls := make([]string, 25)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://site-%02d.example.com", i)
	}
	b := newTestBatch(t, &fakeFetcher{}, 10, 50*time.Millisecond)

	var pauseKeys []string
	start := time.Now()
	results, summary := b.Run(context.Background(), urls, Options{
		Business: domain.BusinessInfo{Industry: "Retail"},
	}, func(ev BatchEvent) {
		if ev.Type == "batch-complete" && ev.PauseKey != "" {
			pauseKeys = append(pauseKeys, ev.PauseKey)
		}
	})

	if len(pauseKeys) != 2 {
		t.Fatalf("expected 2 pauses (after items 10 and 20), got %d", len(pauseKeys))
	}
	if len(results) != 25 || summary.Processed != 25 {
		t.Fatalf("expected all 25 processed, got %d results, summary %+v", len(results), summary)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("run finished in %v; both pause windows should have elapsed", elapsed)
	}
}

func TestBatchExplicitResume(t *testing.T) {
	urls := make([]string, 12)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://site-%02d.example.com", i)
	}

	pipe, _ := newTestPipeline(t, &fakeFetcher{})
	pauses := registry.NewPauses(registry.NewMemory(), 5*time.Second)
	b := NewBatchDriver(pipe, pauses, time.Millisecond, 10, zap.NewNop())

	resumed := make(chan struct{})
	results, _ := b.Run(context.Background(), urls, Options{
		Business: domain.BusinessInfo{Industry: "Retail"},
	}, func(ev BatchEvent) {
		if ev.Type == "batch-complete" && ev.PauseKey != "" {
			go func(key string) {
				if !pauses.Resume(context.Background(), key) {
					t.Error("resume failed for emitted pause key")
				}
				close(resumed)
			}(ev.PauseKey)
		}
	})

	select {
	case <-resumed:
	case <-time.After(time.Second):
		t.Error("pause was never resumed explicitly")
	}
	if len(results) != 12 {
		t.Errorf("expected 12 results, got %d", len(results))
	}
}
