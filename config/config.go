// Package config provides configuration loading and management for the
// brief wizard engine.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete wizard configuration.
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis"`
	Uploads  UploadConfig   `yaml:"uploads"`
	Triggers TriggerConfig  `yaml:"triggers"`
}

// AnalysisConfig configures the external analysis collaborator endpoint.
type AnalysisConfig struct {
	// Endpoint is the OpenAI-compatible completion endpoint.
	Endpoint string `yaml:"endpoint"`
	// Model is the model identifier sent with every request.
	Model string `yaml:"model"`
	// Temperature controls randomness (0.0-1.0).
	Temperature float64 `yaml:"temperature"`
	// Timeout is the maximum time to wait for an analysis response.
	Timeout time.Duration `yaml:"timeout"`
}

// UploadConfig bounds the file ingestion pipeline.
type UploadConfig struct {
	// MaxFileSize is the per-file byte limit.
	MaxFileSize int64 `yaml:"max_file_size"`
	// MaxFiles is the session-wide attachment cap.
	MaxFiles int `yaml:"max_files"`
	// AllowedTypes is the MIME type allowlist.
	AllowedTypes []string `yaml:"allowed_types"`
	// WatchDir, when set, is a drop directory scanned for new attachments.
	WatchDir string `yaml:"watch_dir"`
}

// TriggerConfig tunes the active-response trigger analyzer.
type TriggerConfig struct {
	// DebounceDelay is the quiet period required after a direct edit
	// before the change is analyzed.
	DebounceDelay time.Duration `yaml:"debounce_delay"`
	// MaxResponsesPerSession caps unsolicited AI comments per session.
	MaxResponsesPerSession int `yaml:"max_responses_per_session"`
	// ResponseFrequency is the starting willingness tier: high, medium or low.
	ResponseFrequency string `yaml:"response_frequency"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Endpoint:    "http://localhost:11434/v1",
			Model:       "qwen2.5:14b",
			Temperature: 0.3,
			Timeout:     2 * time.Minute,
		},
		Uploads: UploadConfig{
			MaxFileSize: 10 * 1024 * 1024,
			MaxFiles:    5,
			AllowedTypes: []string{
				"text/plain", "text/markdown", "text/html", "text/csv",
				"application/json", "application/pdf",
			},
		},
		Triggers: TriggerConfig{
			DebounceDelay:          2 * time.Second,
			MaxResponsesPerSession: 5,
			ResponseFrequency:      "medium",
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Analysis.Endpoint == "" {
		return fmt.Errorf("analysis.endpoint is required")
	}
	if c.Analysis.Model == "" {
		return fmt.Errorf("analysis.model is required")
	}
	if c.Analysis.Temperature < 0 || c.Analysis.Temperature > 1 {
		return fmt.Errorf("analysis.temperature must be between 0 and 1")
	}
	if c.Uploads.MaxFileSize <= 0 {
		return fmt.Errorf("uploads.max_file_size must be positive")
	}
	if c.Uploads.MaxFiles <= 0 {
		return fmt.Errorf("uploads.max_files must be positive")
	}
	if c.Triggers.DebounceDelay <= 0 {
		return fmt.Errorf("triggers.debounce_delay must be positive")
	}
	if c.Triggers.MaxResponsesPerSession <= 0 {
		return fmt.Errorf("triggers.max_responses_per_session must be positive")
	}
	switch c.Triggers.ResponseFrequency {
	case "high", "medium", "low":
	default:
		return fmt.Errorf("triggers.response_frequency must be high, medium or low")
	}
	return nil
}

// Merge overlays non-zero fields from other onto c.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.Analysis.Endpoint != "" {
		c.Analysis.Endpoint = other.Analysis.Endpoint
	}
	if other.Analysis.Model != "" {
		c.Analysis.Model = other.Analysis.Model
	}
	if other.Analysis.Temperature != 0 {
		c.Analysis.Temperature = other.Analysis.Temperature
	}
	if other.Analysis.Timeout != 0 {
		c.Analysis.Timeout = other.Analysis.Timeout
	}
	if other.Uploads.MaxFileSize != 0 {
		c.Uploads.MaxFileSize = other.Uploads.MaxFileSize
	}
	if other.Uploads.MaxFiles != 0 {
		c.Uploads.MaxFiles = other.Uploads.MaxFiles
	}
	if len(other.Uploads.AllowedTypes) > 0 {
		c.Uploads.AllowedTypes = other.Uploads.AllowedTypes
	}
	if other.Uploads.WatchDir != "" {
		c.Uploads.WatchDir = other.Uploads.WatchDir
	}
	if other.Triggers.DebounceDelay != 0 {
		c.Triggers.DebounceDelay = other.Triggers.DebounceDelay
	}
	if other.Triggers.MaxResponsesPerSession != 0 {
		c.Triggers.MaxResponsesPerSession = other.Triggers.MaxResponsesPerSession
	}
	if other.Triggers.ResponseFrequency != "" {
		c.Triggers.ResponseFrequency = other.Triggers.ResponseFrequency
	}
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &config, nil
}
