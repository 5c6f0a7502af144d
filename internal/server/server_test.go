package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkhoard/linkhoard/internal/importer"
	"github.com/linkhoard/linkhoard/internal/model"
	"github.com/linkhoard/linkhoard/internal/store"
)

type nullPersister struct{}

func (nullPersister) Save(context.Context, []model.Bookmark) error   { return nil }
func (nullPersister) Load(context.Context) ([]model.Bookmark, error) { return nil, nil }
func (nullPersister) Close() error                                   { return nil }

// newTestServer builds a server with no scheduler: imported records stay
// queued, which keeps the handlers deterministic.
func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st := store.New(nullPersister{})
	require.NoError(t, st.Open(context.Background()))
	return New(0, st, nil), st
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestImport(t *testing.T) {
	s, st := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/records",
		`{"text":"https://a.example/?utm_source=x\nhttps://b.example/"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created []model.Bookmark
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Len(t, created, 2)
	assert.Equal(t, "https://a.example/", created[0].URL, "tracking params stripped")
	assert.Equal(t, model.StatusQueued, created[0].Status)
	assert.Len(t, st.List(), 2)
}

func TestImport_NoURLs(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/records", `{"text":"\n<DL><p>\n\n"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no URLs found")
}

func TestImport_BadBody(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/records", `{broken`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestList(t *testing.T) {
	s, st := newTestServer(t)
	st.Admit(context.Background(), []importer.Entry{{URL: "https://a.example/"}})

	w := doRequest(t, s, http.MethodGet, "/api/records", "")
	require.Equal(t, http.StatusOK, w.Code)

	var records []model.Bookmark
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "https://a.example/", records[0].URL)
}

func TestUpdate(t *testing.T) {
	s, st := newTestServer(t)
	created := st.Admit(context.Background(), []importer.Entry{{URL: "https://a.example/"}})

	w := doRequest(t, s, http.MethodPatch, "/api/records/"+created[0].ID,
		`{"title":"Edited","summary":"New summary.","keywords":["Go","go"]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var rec model.Bookmark
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "Edited", rec.Title)
	assert.Equal(t, []string{"Go"}, rec.Keywords)
}

func TestUpdate_NotFound(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPatch, "/api/records/missing", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDelete(t *testing.T) {
	s, st := newTestServer(t)
	created := st.Admit(context.Background(), []importer.Entry{{URL: "https://a.example/"}})

	w := doRequest(t, s, http.MethodDelete, "/api/records/"+created[0].ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, st.List())

	w = doRequest(t, s, http.MethodDelete, "/api/records/"+created[0].ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClear(t *testing.T) {
	s, st := newTestServer(t)
	st.Admit(context.Background(), []importer.Entry{
		{URL: "https://a.example/"},
		{URL: "https://b.example/"},
	})

	w := doRequest(t, s, http.MethodDelete, "/api/records", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, st.List())
}

func TestRetry(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()
	created := st.Admit(ctx, []importer.Entry{{URL: "https://a.example/"}})
	id := created[0].ID
	require.NoError(t, st.MarkProcessing(ctx, id))
	require.NoError(t, st.ApplyFailure(ctx, id, "boom"))

	w := doRequest(t, s, http.MethodPost, "/api/records/"+id+"/retry", "")
	require.Equal(t, http.StatusOK, w.Code)

	var rec model.Bookmark
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, model.StatusQueued, rec.Status)
	assert.Empty(t, rec.ErrorText)
}

func TestRetry_QueuedRecordConflicts(t *testing.T) {
	s, st := newTestServer(t)
	created := st.Admit(context.Background(), []importer.Entry{{URL: "https://a.example/"}})

	w := doRequest(t, s, http.MethodPost, "/api/records/"+created[0].ID+"/retry", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestExport(t *testing.T) {
	s, st := newTestServer(t)
	st.Admit(context.Background(), []importer.Entry{{URL: "https://a.example/"}})

	w := doRequest(t, s, http.MethodGet, "/api/export/csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "url,title,summary")

	w = doRequest(t, s, http.MethodGet, "/api/export/netscape", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "NETSCAPE-Bookmark-file-1")
}

func TestExport_UnknownFormat(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/export/pdf", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
