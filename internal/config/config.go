package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/magnetsim/internal/cluster"
)

const (
	DefaultFPS      = 60.0
	DefaultDuration = 10.0
	DefaultGesture  = "poke"
	DefaultDataDir  = ".magnetsim"
	DefaultAddr     = ":8080"
	DefaultLogLevel = "info"
)

var ErrInvalidRun = errors.New("config: invalid run settings")

// Config is one run file: the cluster tuning plus how to drive and record
// it. Fields absent from a YAML file keep their defaults.
type Config struct {
	Preset   string           `yaml:"preset,omitempty"`
	Seed     int64            `yaml:"seed"`
	FPS      float64          `yaml:"fps"`
	Duration float64          `yaml:"duration"`
	Gesture  string           `yaml:"gesture"`
	Cluster  cluster.Config   `yaml:"cluster"`
	Assembly cluster.Assembly `yaml:"assembly"`
}

func DefaultConfig() *Config {
	return &Config{
		Preset:   "default",
		FPS:      DefaultFPS,
		Duration: DefaultDuration,
		Gesture:  DefaultGesture,
		Cluster:  cluster.DefaultConfig(),
		Assembly: cluster.DefaultAssembly(),
	}
}

// Load reads a run file. A preset named in the file is applied first and
// the remaining fields overlay it.
func Load(path string) (*Config, error) {
	return LoadOver(path, nil)
}

// LoadOver overlays a run file on base. With a nil base the file's own
// preset, or the defaults, is the base. An explicit base wins over the
// preset the file names.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var head struct {
		Preset string `yaml:"preset"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg := DefaultConfig()
	switch {
	case base != nil:
		c := *base
		cfg = &c
	case head.Preset != "":
		if cfg, err = GetPreset(head.Preset); err != nil {
			return nil, err
		}
	}
	preset := cfg.Preset
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if base != nil {
		cfg.Preset = preset
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.FPS <= 0 || c.FPS > 1000 {
		return fmt.Errorf("%w: fps must be in (0, 1000], got %f", ErrInvalidRun, c.FPS)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidRun, c.Duration)
	}
	return c.Cluster.Validate()
}

// Frames is the number of frames the run covers.
func (c *Config) Frames() int {
	return int(c.Duration*c.FPS + 0.5)
}

// Env holds process settings read from the environment and an optional
// .env file in the working directory.
type Env struct {
	DataDir  string
	LogLevel string
	Addr     string
	Items    int
	// ItemsSet reports whether MAGNETSIM_ITEMS held a valid count.
	ItemsSet bool
}

func LoadEnv() Env {
	_ = godotenv.Load()
	items, set := getEnvInt("MAGNETSIM_ITEMS", cluster.DefaultCount)
	return Env{
		DataDir:  getEnv("MAGNETSIM_DATA", DefaultDataDir),
		LogLevel: getEnv("MAGNETSIM_LOG_LEVEL", DefaultLogLevel),
		Addr:     getEnv("MAGNETSIM_ADDR", DefaultAddr),
		Items:    items,
		ItemsSet: set,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, bool) {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal, true
		}
	}
	return defaultValue, false
}
