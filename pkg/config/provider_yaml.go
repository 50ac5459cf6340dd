package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file. Keys absent
// from the file keep their Default values.
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	yamlConfig := toYAML(Default())
	err = yaml.Unmarshal(cfgFile, yamlConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", y.filename, err)
	}

	config := &ConfigData{
		Model: yamlConfig.Model,
		Sampling: SamplingData{
			MinDeltaP:         yamlConfig.Sampling.MinDeltaP,
			MaxDeltaP:         yamlConfig.Sampling.MaxDeltaP,
			MaxDepthInterval:  yamlConfig.Sampling.MaxDepthInterval,
			MaxRangeInterval:  yamlConfig.Sampling.MaxRangeInterval,
			MaxInterpError:    yamlConfig.Sampling.MaxInterpError,
			SlownessTolerance: yamlConfig.Sampling.SlownessTolerance,
			AllowInnerCoreS:   yamlConfig.Sampling.AllowInnerCoreS,
		},
		Phases: PhaseData{
			Expert:         yamlConfig.Phases.Expert,
			MaxDiffraction: yamlConfig.Phases.MaxDiffraction,
			MaxRefraction:  yamlConfig.Phases.MaxRefraction,
			Refine:         yamlConfig.Phases.Refine,
			Defaults:       yamlConfig.Phases.Defaults,
		},
		Server: ServerData{
			ListenAddr:     yamlConfig.Server.ListenAddr,
			Port:           yamlConfig.Server.Port,
			DepthCacheSize: yamlConfig.Server.DepthCacheSize,
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	y.config = config
	return config, nil
}

// GetSampling returns the sampling tolerances
func (y *YAMLProvider) GetSampling() (*SamplingData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Sampling, nil
}

// GetPhases returns phase settings
func (y *YAMLProvider) GetPhases() (*PhaseData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Phases, nil
}

// GetServer returns the HTTP listener settings
func (y *YAMLProvider) GetServer() (*ServerData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Server, nil
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with proper YAML tags for parsing the file format
type ConfigYAML struct {
	Model    string       `yaml:"model"`
	Sampling SamplingYAML `yaml:"sampling"`
	Phases   PhaseYAML    `yaml:"phases"`
	Server   ServerYAML   `yaml:"server"`
}

type SamplingYAML struct {
	MinDeltaP         float64 `yaml:"min-delta-p"`
	MaxDeltaP         float64 `yaml:"max-delta-p"`
	MaxDepthInterval  float64 `yaml:"max-depth-interval"`
	MaxRangeInterval  float64 `yaml:"max-range-interval"`
	MaxInterpError    float64 `yaml:"max-interp-error"`
	SlownessTolerance float64 `yaml:"slowness-tolerance"`
	AllowInnerCoreS   bool    `yaml:"allow-inner-core-s"`
}

type PhaseYAML struct {
	Expert         bool     `yaml:"expert"`
	MaxDiffraction float64  `yaml:"max-diffraction"`
	MaxRefraction  float64  `yaml:"max-refraction"`
	Refine         bool     `yaml:"refine"`
	Defaults       []string `yaml:"defaults,omitempty"`
}

type ServerYAML struct {
	ListenAddr     string `yaml:"listen-addr,omitempty"`
	Port           int    `yaml:"port,omitempty"`
	DepthCacheSize int    `yaml:"depth-cache-size,omitempty"`
}

func toYAML(c *ConfigData) *ConfigYAML {
	return &ConfigYAML{
		Model: c.Model,
		Sampling: SamplingYAML{
			MinDeltaP:         c.Sampling.MinDeltaP,
			MaxDeltaP:         c.Sampling.MaxDeltaP,
			MaxDepthInterval:  c.Sampling.MaxDepthInterval,
			MaxRangeInterval:  c.Sampling.MaxRangeInterval,
			MaxInterpError:    c.Sampling.MaxInterpError,
			SlownessTolerance: c.Sampling.SlownessTolerance,
			AllowInnerCoreS:   c.Sampling.AllowInnerCoreS,
		},
		Phases: PhaseYAML{
			Expert:         c.Phases.Expert,
			MaxDiffraction: c.Phases.MaxDiffraction,
			MaxRefraction:  c.Phases.MaxRefraction,
			Refine:         c.Phases.Refine,
			Defaults:       c.Phases.Defaults,
		},
		Server: ServerYAML{
			ListenAddr:     c.Server.ListenAddr,
			Port:           c.Server.Port,
			DepthCacheSize: c.Server.DepthCacheSize,
		},
	}
}

// WriteYAML writes c in the format LoadConfig reads.
func WriteYAML(filename string, c *ConfigData) error {
	out, err := yaml.Marshal(toYAML(c))
	if err != nil {
		return err
	}
	return os.WriteFile(filename, out, 0o644)
}
