// Package config holds the harness settings, their defaults and the
// optional YAML file they can be loaded from.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultPort             = 8080
	DefaultThreshold        = 0.1
	DefaultMismatchLimit    = 100
	DefaultWidth            = 800
	DefaultHeight           = 600
	DefaultLoadedSelector   = "#excalibur-play"
	DefaultPlayRootSelector = "#excalibur-play-root"
	DefaultDiffPrefix       = "diff-"
	DefaultLogLevel         = "info"
)

// Config is everything a run needs.
type Config struct {
	// Interactive lets the operator accept new baselines.
	Interactive bool `yaml:"interactive"`
	// Tests are the JavaScript test files to load, in order.
	Tests []string `yaml:"tests"`
	// Dir is a static directory to serve. When set, URL is derived from Port.
	Dir  string `yaml:"dir"`
	Port int    `yaml:"port"`
	URL  string `yaml:"url"`
	// ShowLogs forwards browser output and page console messages.
	ShowLogs bool `yaml:"logs"`

	Threshold     float64 `yaml:"threshold"`
	MismatchLimit int     `yaml:"mismatchLimit"`
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`

	LoadedSelector   string `yaml:"loadedSelector"`
	PlayRootSelector string `yaml:"playRootSelector"`
	DiffPrefix       string `yaml:"diffPrefix"`

	Headful    bool   `yaml:"headful"`
	ChromePath string `yaml:"chromePath"`
	LogLevel   string `yaml:"logLevel"`
	NoColor    bool   `yaml:"noColor"`
}

// Default returns a Config with every default applied.
func Default() Config {
	return Config{
		Port:             DefaultPort,
		Threshold:        DefaultThreshold,
		MismatchLimit:    DefaultMismatchLimit,
		Width:            DefaultWidth,
		Height:           DefaultHeight,
		LoadedSelector:   DefaultLoadedSelector,
		PlayRootSelector: DefaultPlayRootSelector,
		DiffPrefix:       DefaultDiffPrefix,
		LogLevel:         DefaultLogLevel,
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// TargetURL is the page the browser opens.
func (c Config) TargetURL() string {
	if c.Dir != "" {
		return fmt.Sprintf("http://localhost:%d/", c.Port)
	}
	if c.URL == "" {
		return "/"
	}
	return c.URL
}

// Validate checks presence and ranges.
func (c Config) Validate() error {
	var errs []error
	if len(c.Tests) == 0 {
		errs = append(errs, errors.New("no test files given"))
	}
	if c.Dir == "" && c.URL == "" {
		errs = append(errs, errors.New("one of dir or url is required"))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		errs = append(errs, fmt.Errorf("threshold %v must be within [0, 1]", c.Threshold))
	}
	if c.MismatchLimit < 0 {
		errs = append(errs, fmt.Errorf("mismatch limit %d must not be negative", c.MismatchLimit))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("viewport %dx%d must be positive", c.Width, c.Height))
	}
	return errors.Join(errs...)
}
