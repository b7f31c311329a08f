package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/config"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/dataset"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/fetch"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/ingest"
)

const csvBody = "lat,lon,val,zone\n35.0,139.0,10,north\n35.1,139.1,90,south\n"

type stubFetcher map[string]string

func (f stubFetcher) Fetch(_ context.Context, url string) (*fetch.Response, error) {
	body, ok := f[url]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return &fetch.Response{Body: io.NopCloser(strings.NewReader(body)), Status: 200, Total: int64(len(body))}, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T, token string, db Pinger) (*Server, string) {
	t.Helper()
	return newTestServerWith(t, token, db, stubFetcher{"https://h/a.csv": csvBody})
}

func newTestServerWith(t *testing.T, token string, db Pinger, f fetch.Fetcher) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	session := ingest.NewSession(ingest.Options{
		InputDir: dir,
		Fetcher:  f,
		Logger:   log,
	})
	cfg := config.Config{Port: 0, BearerToken: token, InputDir: dir, Viewer: config.DefaultViewer()}
	s := New(cfg, session, db, log)
	t.Cleanup(s.Close)
	return s, dir
}

// blockingFetcher parks every fetch until its context is cancelled.
type blockingFetcher struct{ started chan struct{} }

func (f blockingFetcher) Fetch(ctx context.Context, _ string) (*fetch.Response, error) {
	close(f.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

func do(t *testing.T, s *Server, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, "", nil)
	w := do(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	s, _ = newTestServer(t, "", stubPinger{err: errors.New("down")})
	w = do(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", decode(t, w)["status"])
}

func TestBearerAuth(t *testing.T) {
	s, _ := newTestServer(t, "secret", nil)

	w := do(t, s, http.MethodGet, "/api/v1/datasets", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, s, http.MethodGet, "/api/v1/datasets", nil, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, s, http.MethodGet, "/api/v1/datasets", nil, "Authorization", "Bearer secret")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "v1", w.Header().Get("X-API-Version"))
}

func TestLocalLoadConfigureAndCompose(t *testing.T) {
	s, dir := newTestServer(t, "", nil)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte(csvBody), 0o644))

	w := do(t, s, http.MethodGet, "/api/v1/ingest/local", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"a.csv"}, decode(t, w)["data"])

	w = do(t, s, http.MethodPost, "/api/v1/ingest/local", jsonBody{"name": "a.csv"})
	require.Equal(t, http.StatusCreated, w.Code)
	entry := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "a.csv", entry["name"])
	assert.Equal(t, "table", entry["kind"])
	assert.Equal(t, "loaded", entry["state"].(map[string]any)["phase"])

	w = do(t, s, http.MethodPost, "/api/v1/ingest/local", jsonBody{"name": "a.csv"})
	assert.Equal(t, http.StatusConflict, w.Code, "duplicate name")

	w = do(t, s, http.MethodPost, "/api/v1/ingest/local", jsonBody{"name": "../etc/passwd.csv"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPatch, "/api/v1/datasets/a.csv", jsonBody{"colormap": "rainbow"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPatch, "/api/v1/datasets/a.csv", jsonBody{"classification_column": "val", "color_mode": "colormap", "colormap": "plasma"})
	require.Equal(t, http.StatusOK, w.Code)
	cfg := decode(t, w)["data"].(map[string]any)["config"].(map[string]any)
	assert.Equal(t, "val", cfg["classification_column"])

	w = do(t, s, http.MethodGet, "/api/v1/compose/layers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	layers := data["layers"].([]any)
	require.Len(t, layers, 1)
	assert.Len(t, layers[0].(map[string]any)["colors"], 2)
	assert.NotNil(t, data["viewport"])

	w = do(t, s, http.MethodGet, "/api/v1/compose/chart?entry=a.csv&kind=distribution&x=zone", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"].(map[string]any)["charts"], 1)

	w = do(t, s, http.MethodGet, "/api/v1/compose/chart?entry=a.csv&kind=bogus&x=zone", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodDelete, "/api/v1/datasets/a.csv", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, s, http.MethodGet, "/api/v1/datasets/a.csv", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestComposeLayers_Diagnostics(t *testing.T) {
	s, _ := newTestServer(t, "", nil)

	w := do(t, s, http.MethodPut, "/api/v1/ingest/urls/0", jsonBody{"url": "https://h/missing.csv"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(t, s, http.MethodPost, "/api/v1/ingest/urls/0/download?wait=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "failed", decode(t, w)["data"].(map[string]any)["state"].(map[string]any)["phase"])

	w = do(t, s, http.MethodGet, "/api/v1/compose/layers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Empty(t, data["layers"])
	diags := data["diagnostics"].([]any)
	require.Len(t, diags, 1)
	assert.Equal(t, "error", diags[0].(map[string]any)["level"])
}

func TestURLSlots(t *testing.T) {
	s, _ := newTestServer(t, "", nil)

	w := do(t, s, http.MethodPut, "/api/v1/ingest/urls/x", jsonBody{"url": "https://h/a.csv"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPut, "/api/v1/ingest/urls/0", jsonBody{"url": "https://h/a.csv"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, s, http.MethodPut, "/api/v1/ingest/urls/0", jsonBody{"url": "https://h/b.csv"})
	assert.Equal(t, http.StatusConflict, w.Code, "slot occupied")

	w = do(t, s, http.MethodPut, "/api/v1/ingest/urls/1", jsonBody{"url": "https://h/b.csv"})
	assert.Equal(t, http.StatusNotFound, w.Code, "no trailing slot before load")

	w = do(t, s, http.MethodPost, "/api/v1/ingest/urls/0/download?wait=true", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodPost, "/api/v1/ingest/urls/0/download", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "already loaded")

	w = do(t, s, http.MethodGet, "/api/v1/ingest/urls", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 2)

	w = do(t, s, http.MethodPut, "/api/v1/ingest/urls/1", jsonBody{"url": "https://h/a.csv"})
	assert.Equal(t, http.StatusConflict, w.Code, "duplicate url")
	assert.Equal(t, "configuration", decode(t, w)["kind"])
}

func TestURLSlots_ListingRestoresTrailingSlot(t *testing.T) {
	s, _ := newTestServerWith(t, "", nil, stubFetcher{
		"https://h/a.csv": csvBody,
		"https://h/b.csv": csvBody,
		"https://h/c.csv": csvBody,
	})
	put := func(slot, url string) {
		w := do(t, s, http.MethodPut, "/api/v1/ingest/urls/"+slot, jsonBody{"url": url})
		require.Equal(t, http.StatusCreated, w.Code, url)
	}
	load := func(slot string) {
		w := do(t, s, http.MethodPost, "/api/v1/ingest/urls/"+slot+"/download?wait=true", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	put("0", "https://h/a.csv")
	load("0")
	put("1", "https://h/b.csv")
	load("1")

	// free slot 0, then load the trailing slot while slot 0 is still empty
	require.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, "/api/v1/datasets/a.csv", nil).Code)
	put("2", "https://h/c.csv")
	load("2")
	assert.Len(t, s.session.URLs.Slots(), 3, "an empty slot exists so nothing is appended")

	// refilling slot 0 leaves no empty slot behind a loaded last slot
	put("0", "https://h/a.csv")
	w := do(t, s, http.MethodGet, "/api/v1/ingest/urls", nil)
	require.Equal(t, http.StatusOK, w.Code)
	slots := decode(t, w)["data"].([]any)
	require.Len(t, slots, 4)
	assert.Nil(t, slots[3].(map[string]any)["url"])

	w = do(t, s, http.MethodGet, "/api/v1/ingest/urls", nil)
	assert.Len(t, decode(t, w)["data"], 4, "re-check is idempotent")
}

func TestURLSlots_BackgroundDownloadStopsWithServer(t *testing.T) {
	f := blockingFetcher{started: make(chan struct{})}
	s, _ := newTestServerWith(t, "", nil, f)

	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPut, "/api/v1/ingest/urls/0", jsonBody{"url": "https://h/a.csv"}).Code)
	w := do(t, s, http.MethodPost, "/api/v1/ingest/urls/0/download", nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	select {
	case <-f.started:
	case <-time.After(5 * time.Second):
		t.Fatal("download never started")
	}

	// the request that started it has finished; only Close stops the fetch
	s.Close()

	e, ok := s.session.Registry.Get("a.csv")
	require.True(t, ok)
	assert.Equal(t, dataset.PhaseFailed, e.State.Phase)
}

func TestUpload(t *testing.T) {
	s, _ := newTestServer(t, "", nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range []string{"u.csv", "u.csv", "notes.txt"} {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(csvBody))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	results := decode(t, w)["data"].([]any)
	require.Len(t, results, 3)
	assert.Equal(t, true, results[0].(map[string]any)["created"])
	assert.Equal(t, false, results[1].(map[string]any)["created"])
	third := results[2].(map[string]any)["entry"].(map[string]any)
	assert.Equal(t, "failed", third["state"].(map[string]any)["phase"])

	w = do(t, s, http.MethodGet, "/api/v1/ingest/uploads", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 2)
}

func TestQuery_NoPostgres(t *testing.T) {
	s, _ := newTestServer(t, "", nil)
	w := do(t, s, http.MethodPost, "/api/v1/ingest/query", jsonBody{"name": "q", "source": "postgres", "sql": "select 1"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(t, s, http.MethodPost, "/api/v1/ingest/query", jsonBody{"name": "q"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestColormaps(t *testing.T) {
	s, _ := newTestServer(t, "", nil)
	w := do(t, s, http.MethodGet, "/api/v1/compose/colormaps", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["data"], "viridis")
}

// jsonBody is a local shorthand for JSON bodies.
type jsonBody = map[string]any
