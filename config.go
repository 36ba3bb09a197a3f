package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"badger/controller"
	"badger/directory"
	"badger/eventpipe"
	"badger/indicator"
	"badger/label"
	"badger/mqtt"
	"badger/reader"
	"badger/rotary"
	"badger/store"
	"badger/video"
)

// Config is the main configuration structure for badger.
type Config struct {
	// General settings
	ClientID    string `yaml:"client_id"`
	LogLevel    string `yaml:"log_level"`    // debug, info, warn, error
	GeneralText string `yaml:"general_text"` // shown on a blank general label

	// Base64 HMAC key. When set, remote record commands must be signed.
	ControlSecret string `yaml:"control_secret"`

	// MQTT connection settings
	MQTT mqtt.Config `yaml:"mqtt"`

	// Tag reader configuration
	Reader reader.Config `yaml:"reader"`

	// Tag database
	Store store.Config `yaml:"store"`

	// Label layout and printer
	Label   label.Config        `yaml:"label"`
	Printer label.PrinterConfig `yaml:"printer"`

	// Loop cadence
	Controller controller.Config `yaml:"controller"`

	// Optional inputs and outputs
	EventPipe    eventpipe.Config `yaml:"event_pipe"`
	Indicator    indicator.Config `yaml:"indicator"`
	Rotary       rotary.Config    `yaml:"rotary"`
	VideoEnabled bool             `yaml:"video_enabled"`
	Video        video.Config     `yaml:"video"`

	// Membership server to import badge records from
	Directory directory.Config `yaml:"directory"`
}

// loadConfig decodes the YAML file at path.
func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return &cfg, nil
}

// logLevel maps the log_level setting to a slog level. Unknown values mean info.
func (c *Config) logLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
