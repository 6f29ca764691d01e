package sim

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/accel-pim/pimsim/sim/trace"
)

// WindowConfig sizes the admission window.
type WindowConfig struct {
	ConcurrentKernelSM   bool `yaml:"concurrent_kernel_sm" toml:"concurrent_kernel_sm"`     // allow concurrent kernels
	MaxConcurrentKernels int  `yaml:"max_concurrent_kernels" toml:"max_concurrent_kernels"` // window size when concurrent (must be > 0)
}

// Size returns the window capacity: MaxConcurrentKernels when concurrent
// kernels are enabled, else 1.
func (w WindowConfig) Size() int {
	if w.ConcurrentKernelSM {
		return w.MaxConcurrentKernels
	}
	return 1
}

// LimitConfig groups the run ceilings.
type LimitConfig struct {
	MaxCycles         int64 `yaml:"max_cycles" toml:"max_cycles"`                   // engine cycle ceiling (0 = none)
	MaxIdleIterations int   `yaml:"max_idle_iterations" toml:"max_idle_iterations"` // loop iterations without progress before ErrStalled (0 = never)
}

// EngineConfig parameterizes the reference fixed-latency engine.
type EngineConfig struct {
	CyclesPerBlock       int64 `yaml:"cycles_per_block" toml:"cycles_per_block"`             // cost of one thread block
	CyclesPerPimLayer    int64 `yaml:"cycles_per_pim_layer" toml:"cycles_per_pim_layer"`     // cost of one PIM layer
	MaxConcurrentKernels int   `yaml:"max_concurrent_kernels" toml:"max_concurrent_kernels"` // kernels resident at once
}

// PimConfig groups descriptor-parser state options.
type PimConfig struct {
	MarkerCacheLimit int    `yaml:"marker_cache_limit" toml:"marker_cache_limit"` // 0 = unbounded
	MarkerCachePath  string `yaml:"marker_cache_path" toml:"marker_cache_path"`   // msgpack snapshot loaded on Init, saved after Run; validates params only
}

// SessionConfig is the full session configuration.
// All sections must be listed to satisfy KnownFields(true) strict parsing.
type SessionConfig struct {
	Window WindowConfig      `yaml:"window" toml:"window"`
	Limits LimitConfig       `yaml:"limits" toml:"limits"`
	Engine EngineConfig      `yaml:"engine" toml:"engine"`
	Pim    PimConfig         `yaml:"pim" toml:"pim"`
	Trace  trace.TraceConfig `yaml:"trace" toml:"trace"`
}

// Defaults used by DefaultSessionConfig.
const (
	DefaultMaxConcurrentKernels = 8
	DefaultCyclesPerBlock       = 100
	DefaultCyclesPerPimLayer    = 1000
	DefaultMaxIdleIterations    = 10000
)

// DefaultSessionConfig returns the configuration used when no file is given.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Window: WindowConfig{
			ConcurrentKernelSM:   true,
			MaxConcurrentKernels: DefaultMaxConcurrentKernels,
		},
		Limits: LimitConfig{MaxIdleIterations: DefaultMaxIdleIterations},
		Engine: EngineConfig{
			CyclesPerBlock:       DefaultCyclesPerBlock,
			CyclesPerPimLayer:    DefaultCyclesPerPimLayer,
			MaxConcurrentKernels: DefaultMaxConcurrentKernels,
		},
		Trace: trace.TraceConfig{Level: trace.TraceLevelNone},
	}
}

// LoadSessionConfig reads a YAML or TOML file (chosen by extension) over the
// defaults. Unrecognized keys are rejected in both formats.
func LoadSessionConfig(path string) (SessionConfig, error) {
	cfg := DefaultSessionConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading session config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		meta, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return cfg, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return cfg, fmt.Errorf("%s: unknown keys %v", path, undecoded)
		}
	default:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("parsing session config %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate checks ranges.
func (c SessionConfig) Validate() error {
	if c.Window.ConcurrentKernelSM && c.Window.MaxConcurrentKernels <= 0 {
		return fmt.Errorf("window.max_concurrent_kernels must be positive, got %d", c.Window.MaxConcurrentKernels)
	}
	if c.Limits.MaxCycles < 0 {
		return fmt.Errorf("limits.max_cycles must be >= 0, got %d", c.Limits.MaxCycles)
	}
	if c.Limits.MaxIdleIterations < 0 {
		return fmt.Errorf("limits.max_idle_iterations must be >= 0, got %d", c.Limits.MaxIdleIterations)
	}
	if c.Engine.CyclesPerBlock <= 0 {
		return fmt.Errorf("engine.cycles_per_block must be positive, got %d", c.Engine.CyclesPerBlock)
	}
	if c.Engine.CyclesPerPimLayer <= 0 {
		return fmt.Errorf("engine.cycles_per_pim_layer must be positive, got %d", c.Engine.CyclesPerPimLayer)
	}
	if c.Engine.MaxConcurrentKernels <= 0 {
		return fmt.Errorf("engine.max_concurrent_kernels must be positive, got %d", c.Engine.MaxConcurrentKernels)
	}
	if c.Pim.MarkerCacheLimit < 0 {
		return fmt.Errorf("pim.marker_cache_limit must be >= 0, got %d", c.Pim.MarkerCacheLimit)
	}
	if !trace.IsValidTraceLevel(string(c.Trace.Level)) {
		return fmt.Errorf("unknown trace.level %q; valid: none, decisions", c.Trace.Level)
	}
	return nil
}
