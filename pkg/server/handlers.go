package server

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/gagern/confoo/pkg/buildinfo"
	"github.com/gagern/confoo/pkg/errors"
	"github.com/gagern/confoo/pkg/pipeline"
)

// Response is the JSON answer to a request for several formats.
type Response struct {
	RunID     string            `json:"run_id"`
	RequestID string            `json:"request_id,omitempty"`
	Stats     StatsResponse     `json:"stats"`
	Artifacts map[string][]byte `json:"artifacts"`
}

// StatsResponse summarizes a pipeline run.
type StatsResponse struct {
	Vertices     int     `json:"vertices"`
	Triangles    int     `json:"triangles"`
	Iterations   int     `json:"iterations"`
	Exit         string  `json:"exit"`
	GradientNorm float64 `json:"gradient_norm"`
	TransformMS  float64 `json:"transform_ms"`
	TransformHit bool    `json:"transform_cached"`
	RenderHit    bool    `json:"render_cached"`
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: buildinfo.ModuleVersion()})
}

func (s *Server) handleFlatten(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	opts, err := parseOptions(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
				Error:     "mesh exceeds " + strconv.FormatInt(tooLarge.Limit, 10) + " bytes",
				Code:      "TOO_LARGE",
				RequestID: reqID,
			})
			return
		}
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "read body"))
		return
	}

	opts.Logger = s.logger.With("request", reqID)
	res, err := s.runner.Execute(ctx, body, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("X-Run-Id", res.RunID)
	h.Set("X-Confoo-Exit", res.Stats.Exit)
	h.Set("X-Confoo-Iterations", strconv.Itoa(res.Stats.Iterations))
	h.Set("X-Cache", cacheStatus(res.CacheInfo))

	if len(opts.Formats) == 1 {
		format := opts.Formats[0]
		h.Set("Content-Type", pipeline.ContentTypes[format])
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(res.Artifacts[format])
		return
	}

	writeJSON(w, http.StatusOK, Response{
		RunID:     res.RunID,
		RequestID: reqID,
		Stats: StatsResponse{
			Vertices:     res.Stats.Mesh.Vertices,
			Triangles:    res.Stats.Mesh.Triangles,
			Iterations:   res.Stats.Iterations,
			Exit:         res.Stats.Exit,
			GradientNorm: res.Stats.GradientNorm,
			TransformMS:  float64(res.Stats.TransformTime) / float64(time.Millisecond),
			TransformHit: res.CacheInfo.TransformHit,
			RenderHit:    res.CacheInfo.RenderHit,
		},
		Artifacts: res.Artifacts,
	})
}

// parseOptions reads pipeline options from query parameters. Angles are
// given in degrees and converted to radians.
func parseOptions(q url.Values) (pipeline.Options, error) {
	var opts pipeline.Options

	for _, v := range q["format"] {
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				opts.Formats = append(opts.Formats, f)
			}
		}
	}

	for _, v := range q["angle"] {
		id, deg, ok := strings.Cut(v, ":")
		if !ok {
			return opts, errors.New(errors.ErrCodeInvalidInput, "angle %q: want id:degrees", v)
		}
		n, err := strconv.Atoi(id)
		if err != nil {
			return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "angle %q: vertex id", v)
		}
		d, err := strconv.ParseFloat(deg, 64)
		if err != nil {
			return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "angle %q: degrees", v)
		}
		if opts.Angles == nil {
			opts.Angles = make(map[int]float64)
		}
		opts.Angles[n] = d * math.Pi / 180
	}

	var err error
	if opts.Isometric, err = boolParam(q, "isometric"); err != nil {
		return opts, err
	}
	if opts.Labels, err = boolParam(q, "labels"); err != nil {
		return opts, err
	}
	if opts.Refresh, err = boolParam(q, "refresh"); err != nil {
		return opts, err
	}
	if opts.Width, err = intParam(q, "width"); err != nil {
		return opts, err
	}
	if opts.Height, err = intParam(q, "height"); err != nil {
		return opts, err
	}
	opts.InputGeometry = q.Get("in")
	opts.OutputGeometry = q.Get("out")

	return opts, opts.ValidateAndSetDefaults()
}

func boolParam(q url.Values, name string) (bool, error) {
	v := q.Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeInvalidInput, err, "parameter %s", name)
	}
	return b, nil
}

func intParam(q url.Values, name string) (int, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidInput, err, "parameter %s", name)
	}
	return n, nil
}

func cacheStatus(c pipeline.CacheInfo) string {
	switch {
	case c.TransformHit && c.RenderHit:
		return "HIT"
	case c.TransformHit:
		return "PARTIAL"
	default:
		return "MISS"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
