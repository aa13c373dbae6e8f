// Package config loads daemon settings from a YAML file and applies
// defaults. An empty path yields the default configuration, so the
// config file is optional.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/airsense/internal/gpio"
	"github.com/sweeney/airsense/internal/led"
)

// Config holds the daemon settings.
type Config struct {
	// Broker is the MQTT broker URI. Empty disables telemetry.
	Broker string `yaml:"broker"`
	// PollInterval is how often the buttons are sampled.
	PollInterval time.Duration `yaml:"poll_interval"`
	// Debounce is how long a button must hold a new state before an
	// event fires.
	Debounce time.Duration `yaml:"debounce"`
	// MorseUnit is the duration of a morse dit.
	MorseUnit time.Duration `yaml:"morse_unit"`
	// ScoreInterval limits how often air-quality snapshots are sent to
	// the broker.
	ScoreInterval time.Duration `yaml:"score_interval"`
	// HTTPAddr is the listen address of the status server. Empty
	// disables it.
	HTTPAddr string `yaml:"http_addr"`
	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
	// Pins selects the GPIO lines (BCM numbering).
	Pins Pins `yaml:"pins"`
}

// Pins holds the GPIO line assignments.
type Pins struct {
	ButtonA  int `yaml:"button_a"`
	ButtonB  int `yaml:"button_b"`
	ButtonX  int `yaml:"button_x"`
	ButtonY  int `yaml:"button_y"`
	LedRed   int `yaml:"led_red"`
	LedGreen int `yaml:"led_green"`
	LedBlue  int `yaml:"led_blue"`
}

// Defaults.
const (
	DefaultPollInterval  = 20 * time.Millisecond
	DefaultDebounce      = 40 * time.Millisecond
	DefaultMorseUnit     = 60 * time.Millisecond
	DefaultScoreInterval = 30 * time.Second
	DefaultHTTPAddr      = ":8090"
	DefaultLogLevel      = "info"
)

var errPollExceedsDebounce = errors.New("poll_interval must not exceed debounce")

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads configuration from the provided path, applies defaults,
// and validates. An empty path returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate applies defaults to unset fields and checks the rest.
func Validate(cfg *Config) error {
	applyDefaults(cfg)

	if cfg.PollInterval > cfg.Debounce {
		return errPollExceedsDebounce
	}

	if cfg.Broker != "" {
		u, err := url.Parse(cfg.Broker)
		if err != nil {
			return fmt.Errorf("invalid broker URI: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid broker URI %q: scheme and host required", cfg.Broker)
		}
	}

	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.MorseUnit <= 0 {
		cfg.MorseUnit = DefaultMorseUnit
	}
	if cfg.ScoreInterval <= 0 {
		cfg.ScoreInterval = DefaultScoreInterval
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	defaultPins(&cfg.Pins)
}

func defaultPins(p *Pins) {
	if p.ButtonA == 0 {
		p.ButtonA = gpio.DefaultPinA
	}
	if p.ButtonB == 0 {
		p.ButtonB = gpio.DefaultPinB
	}
	if p.ButtonX == 0 {
		p.ButtonX = gpio.DefaultPinX
	}
	if p.ButtonY == 0 {
		p.ButtonY = gpio.DefaultPinY
	}
	if p.LedRed == 0 {
		p.LedRed = led.DefaultPinRed
	}
	if p.LedGreen == 0 {
		p.LedGreen = led.DefaultPinGreen
	}
	if p.LedBlue == 0 {
		p.LedBlue = led.DefaultPinBlue
	}
}
