package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Device        string `json:"device"`
	InitialVolume uint32 `json:"initial_volume"`
	BufferFrames  int    `json:"buffer_frames"`
	SampleRate    int    `json:"sample_rate"`
	Channel       int    `json:"channel"`
	Downmix       bool   `json:"downmix"`
	LogLevel      string `json:"log_level"`
	LogFile       string `json:"log_file"`
}

// Environment variables read by LoadEnv and ApplyEnv
const (
	EnvConfigPath = "PLAYBACK_ENGINE_CONFIG"
	EnvDevice     = "PLAYBACK_DEVICE"
	EnvVolume     = "PLAYBACK_VOLUME"
	EnvLogLevel   = "PLAYBACK_LOG_LEVEL"
)

// GetDefaultConfig returns default configuration
func GetDefaultConfig() *Config {
	return &Config{
		Device:        "auto",
		InitialVolume: 500,
		LogLevel:      "info",
	}
}

// LoadConfig reads and unmarshals configuration from file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return GetDefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Fields missing from the file keep their defaults
	config := GetDefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return config, nil
}

// SaveConfig marshals and saves configuration to file
func SaveConfig(config *Config, path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadOrCreate loads config from path or creates default if not exists
func LoadOrCreate(path string) (*Config, error) {
	config, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	// Save default config if file didn't exist
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := SaveConfig(config, path); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
	}

	return config, nil
}

// GetConfigPath returns the default config file path
func GetConfigPath() string {
	// Check environment variable first
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}

	// Use XDG config directory if available
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "playbackengine", "config.json")
	}

	// Fall back to home directory
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(home, ".config", "playbackengine", "config.json")
}

// LoadEnv loads variables from the given .env files (default ".env") into
// the process environment. Variables already set win, and missing files
// are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from PLAYBACK_* environment variables
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvDevice); v != "" {
		c.Device = v
	}
	if v := os.Getenv(EnvVolume); v != "" {
		vol, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvVolume, v, err)
		}
		c.InitialVolume = uint32(vol)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate checks field ranges
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Device) == "" {
		errs = append(errs, errors.New("device must not be empty"))
	}
	if c.BufferFrames < 0 {
		errs = append(errs, fmt.Errorf("buffer_frames must not be negative, got %d", c.BufferFrames))
	}
	if c.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("sample_rate must not be negative, got %d", c.SampleRate))
	}
	if c.Channel < 0 || c.Channel > 1 {
		errs = append(errs, fmt.Errorf("channel must be 0 or 1, got %d", c.Channel))
	}
	return errors.Join(errs...)
}
