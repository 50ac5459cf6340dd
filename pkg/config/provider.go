package config

import (
	"errors"
	"fmt"

	"github.com/chrissnell/taup/pkg/phase"
	"github.com/chrissnell/taup/pkg/slowness"
)

// ErrConfig marks configuration values the engine cannot use.
var ErrConfig = errors.New("invalid configuration")

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetSampling() (*SamplingData, error)
	GetPhases() (*PhaseData, error)
	GetServer() (*ServerData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Model    string       `json:"model"`
	Sampling SamplingData `json:"sampling"`
	Phases   PhaseData    `json:"phases"`
	Server   ServerData   `json:"server"`
}

// SamplingData holds the slowness sampling tolerances. Ray parameter steps
// are in s/rad, MaxDepthInterval in km, MaxRangeInterval in degrees and
// MaxInterpError in seconds.
type SamplingData struct {
	MinDeltaP         float64 `json:"min_delta_p"`
	MaxDeltaP         float64 `json:"max_delta_p"`
	MaxDepthInterval  float64 `json:"max_depth_interval"`
	MaxRangeInterval  float64 `json:"max_range_interval"`
	MaxInterpError    float64 `json:"max_interp_error"`
	SlownessTolerance float64 `json:"slowness_tolerance"`
	AllowInnerCoreS   bool    `json:"allow_inner_core_s"`
}

// PhaseData holds phase interpretation settings
type PhaseData struct {
	Expert         bool     `json:"expert"`
	MaxDiffraction float64  `json:"max_diffraction"`
	MaxRefraction  float64  `json:"max_refraction"`
	Refine         bool     `json:"refine"`
	Defaults       []string `json:"defaults,omitempty"`
}

// ServerData holds the HTTP API listener settings. DepthCacheSize bounds
// the depth-corrected models kept per velocity model; zero uses the engine
// default.
type ServerData struct {
	ListenAddr     string `json:"listen_addr,omitempty"`
	Port           int    `json:"port,omitempty"`
	DepthCacheSize int    `json:"depth_cache_size,omitempty"`
}

// Default returns the configuration used when no file is supplied.
func Default() *ConfigData {
	s := slowness.DefaultOptions()
	p := phase.DefaultOptions()
	return &ConfigData{
		Model: "linear-earth",
		Sampling: SamplingData{
			MinDeltaP:         s.MinDeltaP,
			MaxDeltaP:         s.MaxDeltaP,
			MaxDepthInterval:  s.MaxDepthInterval,
			MaxRangeInterval:  s.MaxRangeInterval,
			MaxInterpError:    s.MaxInterpError,
			SlownessTolerance: s.SlownessTolerance,
			AllowInnerCoreS:   s.AllowInnerCoreS,
		},
		Phases: PhaseData{
			Expert:         p.Expert,
			MaxDiffraction: p.MaxDiffraction,
			MaxRefraction:  p.MaxRefraction,
			Refine:         p.Refine,
		},
		Server: ServerData{
			ListenAddr: "127.0.0.1",
			Port:       8080,
		},
	}
}

// Options converts the sampling section for slowness.New.
func (s SamplingData) Options() slowness.Options {
	return slowness.Options{
		MinDeltaP:         s.MinDeltaP,
		MaxDeltaP:         s.MaxDeltaP,
		MaxDepthInterval:  s.MaxDepthInterval,
		MaxRangeInterval:  s.MaxRangeInterval,
		MaxInterpError:    s.MaxInterpError,
		SlownessTolerance: s.SlownessTolerance,
		AllowInnerCoreS:   s.AllowInnerCoreS,
	}
}

// Options converts the phase section for phase.New.
func (p PhaseData) Options() phase.Options {
	return phase.Options{
		Expert:         p.Expert,
		MaxDiffraction: p.MaxDiffraction,
		MaxRefraction:  p.MaxRefraction,
		Refine:         p.Refine,
	}
}

// Validate checks every section against the packages that consume it.
func (c *ConfigData) Validate() error {
	if err := c.Sampling.Options().Validate(); err != nil {
		return err
	}
	if err := c.Phases.Options().Validate(); err != nil {
		return err
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrConfig, c.Server.Port)
	}
	if c.Server.DepthCacheSize < 0 {
		return fmt.Errorf("%w: negative depth cache size %d", ErrConfig, c.Server.DepthCacheSize)
	}
	return nil
}

// Load reads configuration from filename using the named backend, "yaml" or
// "sqlite". An empty filename yields Default.
func Load(filename, backend string) (*ConfigData, error) {
	if filename == "" {
		return Default(), nil
	}

	var provider ConfigProvider
	var err error

	switch backend {
	case "yaml", "":
		provider = NewYAMLProvider(filename)
	case "sqlite":
		provider, err = NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported configuration backend %q, use 'yaml' or 'sqlite'", ErrConfig, backend)
	}
	defer provider.Close()

	cfgData, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config %s: %w", filename, err)
	}
	return cfgData, nil
}
