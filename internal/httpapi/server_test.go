package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pragma-notes/pragma/internal/data"
	"github.com/pragma-notes/pragma/internal/repo"
	"github.com/pragma-notes/pragma/internal/store"
)

const testToken = "test-token-123"

func testServer(t *testing.T) *Server {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "pragma.db")
	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.InitSchema(context.Background()); err != nil {
		t.Fatalf("Failed to init schema: %v", err)
	}

	r := repo.New(db, repo.Options{})
	t.Cleanup(r.Close)

	return NewServer(r, testToken, nil, zerolog.Nop())
}

func doRequest(t *testing.T, s *Server, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func createNotebook(t *testing.T, s *Server, title string) data.Notebook {
	t.Helper()

	now := time.Now().UTC()
	rec := doRequest(t, s, http.MethodPost, "/api/notebooks", data.NewNotebook{
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create notebook returned %d: %s", rec.Code, rec.Body.String())
	}
	return decodeResponse[data.Notebook](t, rec)
}

func TestVersionEndpointSkipsAuth(t *testing.T) {
	s := testServer(t)

	rec := doRequest(t, s, http.MethodGet, "/version", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("Version returned %d", rec.Code)
	}

	body := decodeResponse[map[string]string](t, rec)
	if body["version"] == "" {
		t.Error("Expected a version string")
	}
}

func TestAuthRequired(t *testing.T) {
	s := testServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/data", nil, false)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Unauthenticated request returned %d, want 401", rec.Code)
	}
}

func TestAuthTokenForms(t *testing.T) {
	s := testServer(t)

	cases := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"bearer prefix", "Bearer " + testToken, "", http.StatusNoContent},
		{"token prefix", "Token " + testToken, "", http.StatusNoContent},
		{"bare token", testToken, "", http.StatusNoContent},
		{"query param", "", testToken, http.StatusNoContent},
		{"wrong token", "Bearer nope", "", http.StatusUnauthorized},
		{"empty", "", "", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := "/api/auth"
			if tc.query != "" {
				path += "?token=" + tc.query
			}
			req := httptest.NewRequest(http.MethodPost, path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("Got %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestNotebookLifecycleOverHTTP(t *testing.T) {
	s := testServer(t)

	notebook := createNotebook(t, s, "Work")
	if notebook.ID == "" || notebook.Revision.IsZero() {
		t.Fatalf("Bad created notebook: %+v", notebook)
	}

	rec := doRequest(t, s, http.MethodPut, "/api/notebooks/"+notebook.ID,
		data.NotebookUpdate{Title: "Renamed"}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("Update returned %d: %s", rec.Code, rec.Body.String())
	}
	updated := decodeResponse[data.Notebook](t, rec)
	if updated.Title != "Renamed" {
		t.Errorf("Title = %q, want Renamed", updated.Title)
	}

	rec = doRequest(t, s, http.MethodDelete, "/api/notebooks/"+notebook.ID, nil, true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Delete returned %d: %s", rec.Code, rec.Body.String())
	}
}

func TestValidationMapsTo400(t *testing.T) {
	s := testServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/notebooks", data.NewNotebook{}, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Empty title returned %d, want 400", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/notebooks", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec2 := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec2, req)
	if rec2.Code != http.StatusBadRequest {
		t.Errorf("Malformed JSON returned %d, want 400", rec2.Code)
	}
}

func TestMissingResourceMapsTo404(t *testing.T) {
	s := testServer(t)

	rec := doRequest(t, s, http.MethodPut, "/api/notebooks/ghost",
		data.NotebookUpdate{Title: "x"}, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Update of missing notebook returned %d, want 404", rec.Code)
	}

	rec = doRequest(t, s, http.MethodDelete, "/api/notes/ghost", nil, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Delete of missing note returned %d, want 404", rec.Code)
	}
}

func TestSyncEndpoint(t *testing.T) {
	s := testServer(t)

	notebook := createNotebook(t, s, "Synced")

	rec := doRequest(t, s, http.MethodGet, "/api/data", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("Full sync returned %d: %s", rec.Code, rec.Body.String())
	}
	full := decodeResponse[repo.SyncResponse](t, rec)
	if len(full.Changes.Notebooks) != 1 {
		t.Fatalf("Expected 1 notebook, got %d", len(full.Changes.Notebooks))
	}
	if full.Deletions == nil || full.Changes.Notes == nil || full.Changes.ContentBlocks == nil {
		t.Error("Empty collections must serialize as [], not null")
	}

	// Delete and poll with the returned cursor.
	rec = doRequest(t, s, http.MethodDelete, "/api/notebooks/"+notebook.ID, nil, true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Delete returned %d", rec.Code)
	}

	cursor := full.Revision.Format(time.RFC3339Nano)
	rec = doRequest(t, s, http.MethodGet, "/api/data?sinceRevision="+cursor, nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("Delta sync returned %d: %s", rec.Code, rec.Body.String())
	}
	delta := decodeResponse[repo.SyncResponse](t, rec)
	if len(delta.Changes.Notebooks) != 0 {
		t.Errorf("Deleted notebook leaked into changes: %+v", delta.Changes.Notebooks)
	}
	if len(delta.Deletions) != 1 || delta.Deletions[0].ID != notebook.ID {
		t.Errorf("Deletions = %+v, want the deleted notebook", delta.Deletions)
	}
}

func TestSyncRejectsBadCursor(t *testing.T) {
	s := testServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/data?sinceRevision=yesterday", nil, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Bad cursor returned %d, want 400", rec.Code)
	}
}

func TestContentBlockTaggedUnionOverWire(t *testing.T) {
	s := testServer(t)

	notebook := createNotebook(t, s, "Work")
	now := time.Now().UTC()

	rec := doRequest(t, s, http.MethodPost, "/api/notes", data.NewNote{
		Title: "Snippets", NotebookID: notebook.ID, CreatedAt: now, UpdatedAt: now,
	}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create note returned %d: %s", rec.Code, rec.Body.String())
	}
	note := decodeResponse[data.Note](t, rec)

	payload := fmt.Sprintf(`{
		"content": {"type": "code", "data": {"language": "go", "code": "package main"}},
		"noteId": %q,
		"createdAt": %q,
		"updatedAt": %q
	}`, note.ID, now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))

	req := httptest.NewRequest(http.MethodPost, "/api/content_blocks", bytes.NewReader([]byte(payload)))
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec2 := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec2, req)
	if rec2.Code != http.StatusCreated {
		t.Fatalf("Create content block returned %d: %s", rec2.Code, rec2.Body.String())
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec2.Body.Bytes(), &raw); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	var env struct {
		Type string `json:"type"`
		Data struct {
			Language string `json:"language"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw["content"], &env); err != nil {
		t.Fatalf("Failed to decode content envelope: %v", err)
	}
	if env.Type != "code" || env.Data.Language != "go" {
		t.Errorf("Envelope = %+v, want code/go", env)
	}
}

// TestTwoClientConvergence walks two clients through the full protocol: one
// mutates, the other catches up through repeated delta polls, and both end
// with the same picture of the data.
func TestTwoClientConvergence(t *testing.T) {
	s := testServer(t)
	now := time.Now().UTC()

	// Writer creates a notebook with a note and a block.
	notebook := createNotebook(t, s, "Shared")

	rec := doRequest(t, s, http.MethodPost, "/api/notes", data.NewNote{
		Title: "Agenda", Tags: []string{"meeting"}, NotebookID: notebook.ID,
		CreatedAt: now, UpdatedAt: now,
	}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create note returned %d", rec.Code)
	}
	note := decodeResponse[data.Note](t, rec)

	// Reader bootstraps.
	rec = doRequest(t, s, http.MethodGet, "/api/data", nil, true)
	bootstrap := decodeResponse[repo.SyncResponse](t, rec)
	if len(bootstrap.Changes.Notebooks) != 1 || len(bootstrap.Changes.Notes) != 1 {
		t.Fatalf("Bootstrap = %+v", bootstrap.Changes)
	}

	// Writer renames the note and deletes the notebook.
	rec = doRequest(t, s, http.MethodPut, "/api/notes/"+note.ID, data.NoteUpdate{
		Title: "Agenda v2", Tags: []string{"meeting"}, UpdatedAt: now.Add(time.Minute),
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("Update note returned %d", rec.Code)
	}
	rec = doRequest(t, s, http.MethodDelete, "/api/notebooks/"+notebook.ID, nil, true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Delete notebook returned %d", rec.Code)
	}

	// Reader polls with its cursor and sees exactly the two changes.
	cursor := bootstrap.Revision.Format(time.RFC3339Nano)
	rec = doRequest(t, s, http.MethodGet, "/api/data?sinceRevision="+cursor, nil, true)
	delta := decodeResponse[repo.SyncResponse](t, rec)

	if len(delta.Changes.Notes) != 1 || delta.Changes.Notes[0].Title != "Agenda v2" {
		t.Errorf("Delta notes = %+v, want the renamed note", delta.Changes.Notes)
	}
	if len(delta.Changes.Notebooks) != 0 {
		t.Errorf("Deleted notebook leaked into changes: %+v", delta.Changes.Notebooks)
	}
	if len(delta.Deletions) != 1 || delta.Deletions[0].Type != data.TypeNotebook {
		t.Errorf("Delta deletions = %+v", delta.Deletions)
	}

	// A further poll from the new cursor is quiet.
	cursor = delta.Revision.Format(time.RFC3339Nano)
	rec = doRequest(t, s, http.MethodGet, "/api/data?sinceRevision="+cursor, nil, true)
	quiet := decodeResponse[repo.SyncResponse](t, rec)
	if len(quiet.Changes.Notebooks)+len(quiet.Changes.Notes)+
		len(quiet.Changes.ContentBlocks)+len(quiet.Deletions) != 0 {
		t.Errorf("Expected quiet poll, got %+v", quiet)
	}
}

func TestContentBlockRejectsUnknownTag(t *testing.T) {
	s := testServer(t)

	payload := `{"content": {"type": "spreadsheet", "data": {}}, "noteId": "n-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/content_blocks", bytes.NewReader([]byte(payload)))
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Unknown content tag returned %d, want 400", rec.Code)
	}
}
