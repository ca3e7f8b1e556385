package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gagern/confoo/pkg/cache"
	"github.com/gagern/confoo/pkg/errors"
	cio "github.com/gagern/confoo/pkg/io"
	"github.com/gagern/confoo/pkg/observability"
	"github.com/gagern/confoo/pkg/pipeline"
)

const rightTriangle = "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"

const equilateral = "angle=1:60&angle=2:60&angle=3:60"

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	return New(pipeline.NewRunner(c, nil, nil), nil, opts...)
}

func post(s *Server, query, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/flatten?"+query, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return e
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var h HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &h); err != nil {
		t.Fatal(err)
	}
	if h.Status != "ok" || h.Version == "" {
		t.Errorf("health = %+v", h)
	}
}

func TestFlattenSingleFormat(t *testing.T) {
	s := newTestServer(t)
	rec := post(s, equilateral, rightTriangle)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	if rec.Header().Get("X-Run-Id") == "" {
		t.Error("missing run id")
	}
	if got := rec.Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("X-Cache = %q, want MISS", got)
	}

	doc, err := cio.ReadJSON(rec.Body)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if len(doc.Vertices) != 3 || len(doc.Tris) != 1 {
		t.Errorf("doc = %+v", doc)
	}

	again := post(s, equilateral, rightTriangle)
	if got := again.Header().Get("X-Cache"); got != "HIT" {
		t.Errorf("second X-Cache = %q, want HIT", got)
	}
}

func TestFlattenSeveralFormats(t *testing.T) {
	s := newTestServer(t)
	rec := post(s, equilateral+"&format=svg,obj&format=png", rightTriangle)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{"svg", "obj", "png"} {
		if len(resp.Artifacts[f]) == 0 {
			t.Errorf("missing %s", f)
		}
	}
	if !bytes.HasPrefix(resp.Artifacts["png"], []byte("\x89PNG")) {
		t.Error("png artifact is not a PNG")
	}
	if resp.Stats.Vertices != 3 || resp.Stats.Exit != "GRADIENT" {
		t.Errorf("stats = %+v", resp.Stats)
	}
}

func TestFlattenErrors(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		body   string
		status int
		code   string
	}{
		{"bad angle", "angle=1-60", rightTriangle, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad flag", "isometric=maybe", rightTriangle, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad format", "format=pdf", rightTriangle, http.StatusBadRequest, "INVALID_CONFIG"},
		{"empty body", equilateral, "", http.StatusBadRequest, "INVALID_INPUT"},
		{"parse error", equilateral, "v 1 2\n", http.StatusBadRequest, "PARSE_ERROR"},
		{"unknown vertex", "angle=9:60", rightTriangle, http.StatusUnprocessableEntity, "NO_SUCH_VERTEX"},
	}
	s := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(s, tt.query, tt.body)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
			if e := decodeError(t, rec); e.Code != tt.code {
				t.Errorf("code = %q, want %q", e.Code, tt.code)
			}
		})
	}
}

func TestFlattenTooLarge(t *testing.T) {
	s := newTestServer(t, WithMaxBodySize(8))
	rec := post(s, equilateral, rightTriangle)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", rec.Code)
	}
	if e := decodeError(t, rec); e.Code != "TOO_LARGE" {
		t.Errorf("code = %q", e.Code)
	}
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v2/nothing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.ErrCodeParse, http.StatusBadRequest},
		{errors.ErrCodeInvalidConfig, http.StatusBadRequest},
		{errors.ErrCodeInvalidMesh, http.StatusUnprocessableEntity},
		{errors.ErrCodeNotConverged, http.StatusUnprocessableEntity},
		{errors.ErrCodeTriangleInequality, http.StatusUnprocessableEntity},
		{errors.ErrCodeCanceled, http.StatusServiceUnavailable},
		{errors.ErrCodeCache, http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusCode(tt.code); got != tt.want {
			t.Errorf("StatusCode(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

type httpEvent struct {
	method, path string
	status       int
}

type recordingHooks struct {
	observability.NoopHTTPHooks
	mu        sync.Mutex
	responses []httpEvent
}

func (h *recordingHooks) OnResponse(_ context.Context, method, path string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.responses = append(h.responses, httpEvent{method, path, status})
}

func TestHTTPHooks(t *testing.T) {
	h := &recordingHooks{}
	observability.SetHTTPHooks(h)
	t.Cleanup(observability.Reset)

	s := newTestServer(t)
	post(s, "angle=1-60", rightTriangle)

	if len(h.responses) != 1 {
		t.Fatalf("responses = %v", h.responses)
	}
	want := httpEvent{http.MethodPost, "/v1/flatten", http.StatusBadRequest}
	if h.responses[0] != want {
		t.Errorf("response = %+v, want %+v", h.responses[0], want)
	}
}
