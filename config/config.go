// Package config provides configuration loading and access for the service.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all service configuration parameters.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Rival      RivalConfig      `yaml:"rival"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// SimulationConfig holds the species seeds and competition matrix.
type SimulationConfig struct {
	Primary     string              `yaml:"primary"` // Species served on the peer endpoints
	Rival       string              `yaml:"rival"`   // External species fed by the resolver
	Species     []SpeciesConfig     `yaml:"species"`
	Competition []CompetitionConfig `yaml:"competition"`
}

// SpeciesConfig seeds one locally advanced species.
type SpeciesConfig struct {
	Name             string  `yaml:"name"`
	Size             float64 `yaml:"size"`
	GrowthRate       float64 `yaml:"growth_rate"`
	CarryingCapacity float64 `yaml:"carrying_capacity"`
}

// CompetitionConfig sets one directed competition coefficient.
type CompetitionConfig struct {
	From  string  `yaml:"from"`
	To    string  `yaml:"to"`
	Alpha float64 `yaml:"alpha"`
}

// RivalConfig holds the rival resolver parameters.
type RivalConfig struct {
	URL              string  `yaml:"url"`
	Field            string  `yaml:"field"`             // JSON field holding the rival size
	TimeoutSec       float64 `yaml:"timeout_sec"`       // Bound on the single fetch attempt
	Threshold        float64 `yaml:"threshold"`         // Live values at/below this fall back
	CarryingCapacity float64 `yaml:"carrying_capacity"` // Upper bound of the fallback surrogate
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds history persistence settings.
type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite | memory
	Path   string `yaml:"path"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	LogSteps bool `yaml:"log_steps"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	RivalTimeout time.Duration // Rival.TimeoutSec as a duration
	SpeciesNames []string      // Local species names in config order
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// Compute derived values
	cfg.computeDerived()

	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	// Synthesize the default species set if none specified
	if len(c.Simulation.Species) == 0 {
		c.Simulation.Species = []SpeciesConfig{
			{Name: "Golem", Size: 100.0, GrowthRate: 0.5, CarryingCapacity: 1000.0},
		}
	}
	if c.Simulation.Primary == "" {
		c.Simulation.Primary = c.Simulation.Species[0].Name
	}
	if c.Simulation.Rival == "" {
		c.Simulation.Rival = "Vampire"
	}
	if len(c.Simulation.Competition) == 0 {
		c.Simulation.Competition = []CompetitionConfig{
			{From: c.Simulation.Primary, To: c.Simulation.Rival, Alpha: 0.2},
		}
	}

	// Resolver defaults for fields a user config may zero out
	if c.Rival.Field == "" {
		c.Rival.Field = "taille"
	}
	if c.Rival.TimeoutSec <= 0 {
		c.Rival.TimeoutSec = 0.5
	}
	if c.Rival.CarryingCapacity <= 0 {
		c.Rival.CarryingCapacity = 1500.0
	}

	c.Derived.RivalTimeout = time.Duration(c.Rival.TimeoutSec * float64(time.Second))

	c.Derived.SpeciesNames = make([]string, len(c.Simulation.Species))
	for i, sp := range c.Simulation.Species {
		c.Derived.SpeciesNames[i] = sp.Name
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
