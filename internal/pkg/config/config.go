package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/studioclock/integration/pkg/hasher"
)

// Config is the top-level configuration for the integration daemon. Each
// integration block is treated as copy-on-write: a config update produces a
// new value, and managers compare Identity() digests to decide whether the
// transport must be rebuilt.
type Config struct {
	LogLevel string `yaml:"log_level"`
	HTTPAddr string `yaml:"http_addr"`

	Switcher SwitcherConfig `yaml:"switcher"`
	Recorder RecorderConfig `yaml:"recorder"`
	Mixer    MixerConfig    `yaml:"mixer"`
	Caspar   CasparConfig   `yaml:"caspar"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
}

// SwitcherConfig drives the video switcher / DDR integration.
type SwitcherConfig struct {
	Enabled bool   `yaml:"enabled"`
	Target  string `yaml:"target"`

	// Pattern templates with a single {n} placeholder standing for the
	// channel number, e.g. "ddr{n}_time_remaining". Empty means built-in
	// heuristics only.
	RemainingPattern string `yaml:"remaining_pattern"`
	PlayPattern      string `yaml:"play_pattern"`

	// ShowCountdown is display-only: toggling it never disconnects.
	ShowCountdown bool `yaml:"show_countdown"`
}

// Identity covers everything that affects connection identity and nothing
// else; display-only edits keep the digest stable.
func (c SwitcherConfig) Identity() string {
	return hasher.Digest(c.Target, c.RemainingPattern, c.PlayPattern)
}

// RecorderConfig drives the recording-state integration. Field is the wire
// attribute name carrying the boolean-like record state.
type RecorderConfig struct {
	Enabled bool   `yaml:"enabled"`
	Target  string `yaml:"target"`
	Field   string `yaml:"field"`
}

func (c RecorderConfig) Identity() string {
	return hasher.Digest(c.Target, c.Field)
}

// MixerConfig drives the X32 mic-live listener.
type MixerConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Host      string  `yaml:"host"`
	Port      int     `yaml:"port"`
	Channels  []int   `yaml:"channels"`
	Threshold float64 `yaml:"threshold"`
}

func (c MixerConfig) Identity() string {
	parts := []string{c.Host, strconv.Itoa(c.Port), strconv.FormatFloat(c.Threshold, 'f', -1, 64)}
	for _, ch := range c.Channels {
		parts = append(parts, strconv.Itoa(ch))
	}
	return hasher.Digest(parts...)
}

// CasparConfig locates the CasparCG server for template commands.
type CasparConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	TemplateRoot string `yaml:"template_root"`
}

// MQTTConfig configures the read-model publisher. Empty broker disables it.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// Default returns a fully populated Config. Unknown or missing file fields
// fall back to these values.
func Default() Config {
	return Config{
		LogLevel: "info",
		HTTPAddr: ":8700",
		Switcher: SwitcherConfig{
			ShowCountdown: true,
		},
		Recorder: RecorderConfig{
			Field: "record_toggle",
		},
		Mixer: MixerConfig{
			Port:      10023,
			Channels:  []int{1, 2, 3, 4, 5, 6},
			Threshold: 0.05,
		},
		Caspar: CasparConfig{
			Port: 5250,
		},
		MQTT: MQTTConfig{
			ClientID:    "studioclock-integration",
			TopicPrefix: "studioclock",
		},
	}
}

// Load reads a YAML config file on top of the defaults. An empty path yields
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}
	return cfg, nil
}

// Validate checks process-level invariants. Per-integration connection
// problems (bad target, bad pattern) are deliberately not fatal here: they
// surface as status=error on the integration so the daemon keeps running.
func (c *Config) Validate() error {
	if c.LogLevel == "" {
		return errors.New("log_level must not be empty")
	}
	if c.HTTPAddr == "" {
		return errors.New("http_addr must not be empty")
	}
	if c.Mixer.Enabled {
		if c.Mixer.Host == "" {
			return errors.New("mixer.host is required when mixer.enabled is true")
		}
		if c.Mixer.Port <= 0 || c.Mixer.Port > 65535 {
			return errors.New("mixer.port must be a valid port")
		}
	}
	if c.Caspar.Host != "" && (c.Caspar.Port <= 0 || c.Caspar.Port > 65535) {
		return errors.New("caspar.port must be a valid port")
	}
	return nil
}
