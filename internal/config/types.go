package config

import (
	"fmt"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Filename string        `yaml:"-" mapstructure:"-"`
	Logging  LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Storage  StorageConfig `yaml:"storage" mapstructure:"storage"`
	Reactor  ReactorConfig `yaml:"reactor" mapstructure:"reactor"`
	Presets  PresetsConfig `yaml:"presets" mapstructure:"presets"`
	Metrics  MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Engine   EngineConfig  `yaml:"engine" mapstructure:"engine"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Theme      string `yaml:"theme" mapstructure:"theme"`
	Dir        string `yaml:"dir" mapstructure:"dir"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`
	FileOutput bool   `yaml:"file_output" mapstructure:"file_output"`
}

// StorageConfig selects and tunes the persistence backend
type StorageConfig struct {
	Path           string        `yaml:"path" mapstructure:"path"`
	GCInterval     time.Duration `yaml:"gc_interval" mapstructure:"gc_interval"`
	GCDiscardRatio float64       `yaml:"gc_discard_ratio" mapstructure:"gc_discard_ratio"`
	InMemory       bool          `yaml:"in_memory" mapstructure:"in_memory"`
	SyncWrites     bool          `yaml:"sync_writes" mapstructure:"sync_writes"`
}

// ReactorConfig holds debounce windows keyed by resource kind
// (catalog, grouping, social, tags, install, removable-media, hidden,
// favorites, soundtracks)
type ReactorConfig struct {
	Windows       map[string]time.Duration `yaml:"windows" mapstructure:"windows"`
	DefaultWindow time.Duration            `yaml:"default_window" mapstructure:"default_window"`
}

// PresetsConfig points at an optional yaml file of extra presets
type PresetsConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// MetricsConfig toggles the prometheus collector
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// EngineConfig holds filter evaluation settings
type EngineConfig struct {
	// Timezone is an IANA name used for calendar dates and "days ago"
	Timezone string `yaml:"timezone" mapstructure:"timezone"`
}

// Location resolves the configured timezone, empty means local time
func (e EngineConfig) Location() (*time.Location, error) {
	if e.Timezone == "" || e.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid engine timezone %q: %w", e.Timezone, err)
	}
	return loc, nil
}
