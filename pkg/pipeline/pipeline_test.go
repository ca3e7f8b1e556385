package pipeline

import (
	"bytes"
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/gagern/confoo/pkg/cache"
	"github.com/gagern/confoo/pkg/errors"
	"github.com/gagern/confoo/pkg/observability"
)

const rightTriangle = `# right isosceles triangle
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`

func equilateral() Options {
	third := math.Pi / 3
	return Options{Angles: map[int]float64{1: third, 2: third, 3: third}}
}

// memCache is an in-memory cache.Cache that counts stores.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[key]
	return d, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	c.sets++
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"obj", false},
		{"json", false},
		{"svg", false},
		{"png", false},
		{"dot", false},
		{"graphviz", false},
		{"layout", false},
		{"pdf", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidConfig) {
			t.Errorf("ValidateFormat(%q) code = %s, want INVALID_CONFIG", tt.format, errors.GetCode(err))
		}
	}

	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	opts := Options{InputGeometry: "hyp"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if opts.InputGeometry != "hyperbolic" || opts.OutputGeometry != "euclidean" {
		t.Errorf("geometries = %q, %q", opts.InputGeometry, opts.OutputGeometry)
	}
	if opts.AngleErrorBound != 2e-14 || opts.MaxIterations != 128 {
		t.Errorf("bound = %v, iterations = %d", opts.AngleErrorBound, opts.MaxIterations)
	}
	if opts.LineSearch != [3]float64{0.25, 0.75, 0.01} {
		t.Errorf("line search = %v", opts.LineSearch)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != FormatJSON {
		t.Errorf("formats = %v", opts.Formats)
	}
	if opts.Width != DefaultWidth || opts.Height != DefaultHeight {
		t.Errorf("size = %dx%d", opts.Width, opts.Height)
	}
	if opts.Logger == nil {
		t.Error("logger should default to a discarding logger")
	}

	// idempotent
	opts.Formats = []string{"bogus"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Errorf("second call should be a no-op: %v", err)
	}
}

func TestValidateAndSetDefaultsErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"geometry", Options{OutputGeometry: "spherical"}},
		{"isometric with angles", Options{Isometric: true, Angles: map[int]float64{1: 1}}},
		{"negative angle", Options{Angles: map[int]float64{1: -1}}},
		{"negative bound", Options{AngleErrorBound: -1}},
		{"negative iterations", Options{MaxIterations: -3}},
		{"line search", Options{LineSearch: [3]float64{2, 0.5, 0.1}}},
		{"partial start", Options{Start: [3]int{1, 2, 0}}},
		{"format", Options{Formats: []string{"pdf"}}},
		{"size", Options{Width: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.ValidateAndSetDefaults(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRenderKeyOpts(t *testing.T) {
	opts := Options{Width: 100, Height: 50, Labels: true}
	if k := opts.RenderKeyOpts(FormatOBJ); k.Width != 0 || k.Labels {
		t.Errorf("obj key should not depend on the viewport: %+v", k)
	}
	if k := opts.RenderKeyOpts(FormatSVG); k.Width != 100 || k.Height != 50 || !k.Labels {
		t.Errorf("svg key = %+v", k)
	}
}

func TestParse(t *testing.T) {
	m, err := Parse([]byte(rightTriangle))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(m.Points) != 3 || len(m.Faces) != 1 {
		t.Errorf("points = %d, faces = %d", len(m.Points), len(m.Faces))
	}

	if _, err := Parse([]byte("  \n")); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty input: err = %v", err)
	}
	if _, err := Parse([]byte("v 0 0 0\n")); !errors.Is(err, errors.ErrCodeInvalidMesh) {
		t.Errorf("no faces: err = %v", err)
	}
	if _, err := Parse([]byte("v 0 0\n")); !errors.Is(err, errors.ErrCodeParse) {
		t.Errorf("short vertex: err = %v", err)
	}
}

func TestExecute(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	opts := equilateral()
	opts.Formats = []string{FormatJSON, FormatOBJ, FormatSVG}

	res, err := r.Execute(context.Background(), []byte(rightTriangle), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.RunID == "" || res.MeshHash == "" {
		t.Errorf("run id %q, mesh hash %q", res.RunID, res.MeshHash)
	}
	if res.Stats.Mesh.Vertices != 3 || res.Stats.Mesh.Triangles != 1 {
		t.Errorf("stats = %+v", res.Stats.Mesh)
	}
	if res.Stats.Exit != "GRADIENT" {
		t.Errorf("exit = %q, want GRADIENT", res.Stats.Exit)
	}

	d := res.Mesh
	dist := func(a, b int) float64 { return math.Hypot(d.X(a)-d.X(b), d.Y(a)-d.Y(b)) }
	ab, bc, ca := dist(1, 2), dist(2, 3), dist(3, 1)
	if math.Abs(ab-bc) > 1e-9 || math.Abs(bc-ca) > 1e-9 {
		t.Errorf("sides = %v, %v, %v, want equal", ab, bc, ca)
	}

	for _, f := range opts.Formats {
		if len(res.Artifacts[f]) == 0 {
			t.Errorf("missing artifact %s", f)
		}
	}
	if !bytes.HasPrefix(res.Artifacts[FormatOBJ], []byte("v ")) {
		t.Errorf("obj artifact = %.40q", res.Artifacts[FormatOBJ])
	}
	if !bytes.Contains(res.Artifacts[FormatJSON], []byte(`"u":`)) {
		t.Error("json artifact should carry scale factors")
	}
}

func TestExecuteCache(t *testing.T) {
	c := newMemCache()
	r := NewRunner(c, nil, nil)
	ctx := context.Background()
	opts := equilateral()
	opts.Formats = []string{FormatJSON, FormatSVG}

	first, err := r.Execute(ctx, []byte(rightTriangle), opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.CacheInfo.TransformHit || first.CacheInfo.RenderHit {
		t.Errorf("first run hit the cache: %+v", first.CacheInfo)
	}
	if c.sets != 3 {
		t.Errorf("stores = %d, want 3", c.sets)
	}

	second, err := r.Execute(ctx, []byte(rightTriangle), opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !second.CacheInfo.TransformHit || !second.CacheInfo.RenderHit {
		t.Errorf("second run missed the cache: %+v", second.CacheInfo)
	}
	if second.Stats.Iterations != first.Stats.Iterations || second.Stats.Exit != first.Stats.Exit {
		t.Errorf("cached stats differ: %+v vs %+v", second.Stats, first.Stats)
	}
	if !bytes.Equal(second.Artifacts[FormatSVG], first.Artifacts[FormatSVG]) {
		t.Error("cached svg differs")
	}

	// a new format renders only what is missing
	opts.Formats = []string{FormatSVG, FormatDOT}
	third, err := r.Execute(ctx, []byte(rightTriangle), opts)
	if err != nil {
		t.Fatalf("third run: %v", err)
	}
	if third.CacheInfo.RenderHit {
		t.Error("dot was never rendered")
	}
	if c.sets != 4 {
		t.Errorf("stores = %d, want 4", c.sets)
	}

	opts.Refresh = true
	fourth, err := r.Execute(ctx, []byte(rightTriangle), opts)
	if err != nil {
		t.Fatalf("refresh run: %v", err)
	}
	if fourth.CacheInfo.TransformHit || fourth.CacheInfo.RenderHit {
		t.Errorf("refresh should bypass the cache: %+v", fourth.CacheInfo)
	}
}

func TestExecuteMalformedCacheEntry(t *testing.T) {
	c := newMemCache()
	r := NewRunner(c, nil, nil)
	opts := equilateral()
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	key := cache.NewDefaultKeyer().MeshKey(cache.Hash([]byte(rightTriangle)), opts.TransformKeyOpts())
	c.data[key] = []byte("{not json")

	res, err := r.Execute(context.Background(), []byte(rightTriangle), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.CacheInfo.TransformHit {
		t.Error("malformed entry should count as a miss")
	}
}

func TestExecuteErrors(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	ctx := context.Background()

	_, err := r.Execute(ctx, []byte(rightTriangle), Options{Angles: map[int]float64{7: 1}})
	if !errors.Is(err, errors.ErrCodeNoSuchVertex) {
		t.Errorf("unknown vertex: err = %v, want NO_SUCH_VERTEX", err)
	}

	_, err = r.Execute(ctx, []byte("f 1 2 3\n"), equilateral())
	if !errors.Is(err, errors.ErrCodeParse) {
		t.Errorf("undefined vertices: err = %v, want PARSE_ERROR", err)
	}

	_, err = r.Execute(ctx, []byte(rightTriangle), Options{Formats: []string{"pdf"}})
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("bad format: err = %v, want INVALID_CONFIG", err)
	}
}

func TestRenderHyperbolicDisk(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	opts := Options{Isometric: true, OutputGeometry: "hyperbolic", Formats: []string{FormatSVG}}
	res, err := r.Execute(context.Background(), []byte(rightTriangle), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Mesh.Geometry != "hyperbolic" {
		t.Errorf("geometry = %q", res.Mesh.Geometry)
	}
	if !bytes.Contains(res.Artifacts[FormatSVG], []byte(`class="disk"`)) {
		t.Error("hyperbolic drawings should show the disk")
	}
}

// recordingHooks captures pipeline hook calls.
type recordingHooks struct {
	observability.NoopPipelineHooks
	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) record(s string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, s)
}

func (h *recordingHooks) OnParseComplete(context.Context, int, int, time.Duration, error) {
	h.record("parse")
}

func (h *recordingHooks) OnTransformComplete(context.Context, time.Duration, error) {
	h.record("transform")
}

func (h *recordingHooks) OnRenderComplete(context.Context, []string, time.Duration, error) {
	h.record("render")
}

func TestPipelineHooks(t *testing.T) {
	h := &recordingHooks{}
	observability.SetPipelineHooks(h)
	t.Cleanup(observability.Reset)

	r := NewRunner(nil, nil, nil)
	if _, err := r.Execute(context.Background(), []byte(rightTriangle), equilateral()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := []string{"parse", "transform", "render"}
	if len(h.events) != len(want) {
		t.Fatalf("events = %v, want %v", h.events, want)
	}
	for i := range want {
		if h.events[i] != want[i] {
			t.Errorf("events = %v, want %v", h.events, want)
			break
		}
	}
}
