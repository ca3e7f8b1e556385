package cli

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/gagern/confoo/pkg/errors"
	"github.com/gagern/confoo/pkg/opt"
	"github.com/gagern/confoo/pkg/pipeline"
)

// Config is the optional TOML configuration file. Command-line flags
// override its values.
//
//	[transform]
//	angle_error_bound = 1e-12
//	output_geometry = "hyperbolic"
//
//	[angles]
//	1 = 90
//	5 = 90
//
//	[render]
//	formats = ["obj", "svg"]
type Config struct {
	Transform TransformConfig    `toml:"transform"`
	Angles    map[string]float64 `toml:"angles"` // vertex id → degrees
	Render    RenderConfig       `toml:"render"`
	Cache     CacheConfig        `toml:"cache"`
	Server    ServerConfig       `toml:"server"`
}

// TransformConfig holds optimizer settings.
type TransformConfig struct {
	AngleErrorBound float64  `toml:"angle_error_bound"`
	MaxIterations   int      `toml:"max_iterations"`
	InputGeometry   string   `toml:"input_geometry"`
	OutputGeometry  string   `toml:"output_geometry"`
	Isometric       bool     `toml:"isometric"`
	Alpha           *float64 `toml:"alpha"` // nil keeps the optimizer default
	Beta            *float64 `toml:"beta"`
	Gamma           *float64 `toml:"gamma"`
}

// RenderConfig holds drawing settings.
type RenderConfig struct {
	Formats []string `toml:"formats"`
	Width   int      `toml:"width"`
	Height  int      `toml:"height"`
	Labels  bool     `toml:"labels"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Dir string `toml:"dir"`
	URL string `toml:"url"`
}

// ServerConfig holds settings of the serve command.
type ServerConfig struct {
	Addr        string        `toml:"addr"`
	MaxBodySize int64         `toml:"max_body_size"`
	Timeout     time.Duration `toml:"timeout"`
}

// LoadConfig reads a configuration file. Unknown keys are rejected so that
// typos do not go unnoticed.
func LoadConfig(path string) (*Config, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if _, err := cfg.angles(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// angles converts the [angles] table to radians keyed by vertex id.
func (c *Config) angles() (map[int]float64, error) {
	if len(c.Angles) == 0 {
		return nil, nil
	}
	out := make(map[int]float64, len(c.Angles))
	for k, deg := range c.Angles {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "angles: vertex id %q", k)
		}
		out[id] = deg * math.Pi / 180
	}
	return out, nil
}

// apply copies configured values into opts.
func (c *Config) apply(opts *pipeline.Options) {
	t := c.Transform
	opts.AngleErrorBound = t.AngleErrorBound
	opts.MaxIterations = t.MaxIterations
	opts.InputGeometry = t.InputGeometry
	opts.OutputGeometry = t.OutputGeometry
	opts.Isometric = t.Isometric
	if t.Alpha != nil || t.Beta != nil || t.Gamma != nil {
		opts.LineSearch = [3]float64{
			orDefault(t.Alpha, opt.DefaultAlpha),
			orDefault(t.Beta, opt.DefaultBeta),
			orDefault(t.Gamma, opt.DefaultGamma),
		}
	}
	opts.Angles, _ = c.angles()

	r := c.Render
	opts.Formats = r.Formats
	opts.Width = r.Width
	opts.Height = r.Height
	opts.Labels = r.Labels
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
