package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"templateforge/internal/domain"
	"templateforge/internal/registry"
	"templateforge/internal/storage"

	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := zap.NewNop()
	persister := storage.NewPersister(nil, storage.NewFileStore(t.TempDir()), log, nil)
	store := registry.NewMemory()
	return NewServer(Deps{
		Persister: persister,
		Statuses:  registry.NewCrawlStatuses(store),
		Logger:    log,
	})
}

func doJSON(t *testing.T, s *Server, method, path string, body any) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	fields := map[string]json.RawMessage{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &fields); err != nil {
			t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, fields
}

func templateFromResponse(t *testing.T, fields map[string]json.RawMessage) domain.Template {
	t.Helper()
	var tmpl domain.Template
	if err := json.Unmarshal(fields["template"], &tmpl); err != nil {
		t.Fatalf("decoding template: %v", err)
	}
	return tmpl
}

// TestApprovalLifecycle: templates enter the queue unapproved even if
// the request claims otherwise, approve flips both visibility flags on
// together and disapprove flips both off.
func TestApprovalLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec, fields := doJSON(t, s, http.MethodPost, "/api/admin/templates", map[string]any{
		"name":       "Acme Plumbing",
		"industry":   "Plumbing",
		"isApproved": true,
		"isActive":   true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := templateFromResponse(t, fields)
	if created.IsApproved || created.IsActive {
		t.Errorf("new template must start unapproved and inactive, got %+v", created)
	}
	if created.ID == "" {
		t.Fatal("created template has no id")
	}

	rec, fields = doJSON(t, s, http.MethodPost, "/api/admin/templates/"+created.ID+"/approve", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve status = %d", rec.Code)
	}
	approved := templateFromResponse(t, fields)
	if !approved.IsApproved || !approved.IsActive {
		t.Errorf("approve must set both flags, got %+v", approved)
	}

	// The flags must survive a reload, not just appear in the response.
	rec, fields = doJSON(t, s, http.MethodGet, "/api/admin/templates/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	reloaded := templateFromResponse(t, fields)
	if !reloaded.IsApproved || !reloaded.IsActive {
		t.Errorf("approval not persisted: %+v", reloaded)
	}

	rec, fields = doJSON(t, s, http.MethodPost, "/api/admin/templates/"+created.ID+"/disapprove", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("disapprove status = %d", rec.Code)
	}
	disapproved := templateFromResponse(t, fields)
	if disapproved.IsApproved || disapproved.IsActive {
		t.Errorf("disapprove must clear both flags, got %+v", disapproved)
	}
}

// TestDuplicateResetsApproval: a copy of an approved template still
// starts unapproved and inactive.
func TestDuplicateResetsApproval(t *testing.T) {
	s := newTestServer(t)

	_, fields := doJSON(t, s, http.MethodPost, "/api/admin/templates", map[string]any{
		"name": "Original",
	})
	created := templateFromResponse(t, fields)

	doJSON(t, s, http.MethodPost, "/api/admin/templates/"+created.ID+"/approve", nil)

	rec, fields := doJSON(t, s, http.MethodPost, "/api/admin/templates/"+created.ID+"/duplicate", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("duplicate status = %d", rec.Code)
	}
	dup := templateFromResponse(t, fields)
	if dup.ID == created.ID {
		t.Error("duplicate reused the source id")
	}
	if dup.Name != "Original (Copy)" {
		t.Errorf("duplicate name = %q", dup.Name)
	}
	if dup.IsApproved || dup.IsActive {
		t.Errorf("duplicate of an approved template must reset both flags, got %+v", dup)
	}
}

func TestListTemplatesTagsFileSource(t *testing.T) {
	s := newTestServer(t)

	_, fields := doJSON(t, s, http.MethodPost, "/api/admin/templates", map[string]any{
		"name": "File Backed",
	})
	created := templateFromResponse(t, fields)

	rec, fields := doJSON(t, s, http.MethodGet, "/api/admin/templates", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listed []storage.ListedTemplate
	if err := json.Unmarshal(fields["templates"], &listed); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("unexpected list: %+v", listed)
	}
	if listed[0].Source != storage.SourceFile {
		t.Errorf("source = %q, want %q", listed[0].Source, storage.SourceFile)
	}
}

func TestTemplateNotFound(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{
		"/api/admin/templates/missing/approve",
		"/api/admin/templates/missing/disapprove",
		"/api/admin/templates/missing/duplicate",
	} {
		rec, _ := doJSON(t, s, http.MethodPost, path, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", path, rec.Code)
		}
	}

	rec, _ := doJSON(t, s, http.MethodDelete, "/api/admin/templates/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete missing: status = %d, want 404", rec.Code)
	}
}

func TestContinueScrapingUnknownKey(t *testing.T) {
	log := zap.NewNop()
	persister := storage.NewPersister(nil, storage.NewFileStore(t.TempDir()), log, nil)
	store := registry.NewMemory()
	s := NewServer(Deps{
		Persister: persister,
		Statuses:  registry.NewCrawlStatuses(store),
		Pauses:    registry.NewPauses(store, 0),
		Logger:    log,
	})

	rec, _ := doJSON(t, s, http.MethodPost, "/api/admin/scraper/continue-scraping", map[string]any{
		"pauseKey": "no-such-key",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
