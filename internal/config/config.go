// Package config handles configuration management using Viper
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/bnema/keyportal/internal/logger"
)

// Config represents the application configuration
type Config struct {
	// Portal configuration
	Portal PortalConfig `mapstructure:"portal"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`

	// Actions exposed to the desktop as global shortcuts
	Actions []ActionConfig `mapstructure:"actions"`
}

// PortalConfig contains settings for the GlobalShortcuts portal session
type PortalConfig struct {
	// ParentWindow is the exported window identifier handed to the portal
	// so the desktop can parent its dialogs (e.g. "wayland:..." or
	// "x11:..."). Empty is fine for a headless bridge.
	ParentWindow string `mapstructure:"parent_window"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Override LOG_LEVEL env var
}

// ActionConfig declares one command the desktop can trigger
type ActionConfig struct {
	ID        uint64 `mapstructure:"id"`         // Optional stable numeric id; survives renames
	Name      string `mapstructure:"name"`       // Required when id is 0; ids derive from it
	Label     string `mapstructure:"label"`      // Shown in the desktop's shortcut UI
	Group     string `mapstructure:"group"`      // Optional label prefix, rendered as "[group] label"
	Command   string `mapstructure:"command"`    // Shell command to run
	OnRelease bool   `mapstructure:"on_release"` // Run on key release instead of press
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Portal: PortalConfig{
			ParentWindow: "",
		},
		Logging: LoggingConfig{
			LogLevel: "", // Empty means use LOG_LEVEL env var
		},
		Actions: []ActionConfig{},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("keyportal")
	viper.SetConfigType("toml")

	// If a specific path is set, use only that
	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "keyportal"))
		}
		viper.AddConfigPath(".") // Current directory (lowest priority)
	}

	viper.SetDefault("portal.parent_window", DefaultConfig.Portal.ParentWindow)
	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)
	viper.SetDefault("actions", DefaultConfig.Actions)

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		return &DefaultConfig
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Watch re-reads the config file whenever it changes on disk and invokes
// onChange with the fresh configuration. Viper delivers change events on its
// own goroutine; callers must marshal onto their own loop as needed.
func Watch(onChange func(*Config)) {
	viper.OnConfigChange(func(_ fsnotify.Event) {
		fresh := &Config{}
		if err := viper.Unmarshal(fresh); err != nil {
			logger.Errorf("config reload failed: %v", err)
			return
		}
		cfg = fresh
		onChange(fresh)
	})
	viper.WatchConfig()
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	// Check if config file is already loaded
	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "keyportal.toml"
	}
	return filepath.Join(home, ".config", "keyportal", "keyportal.toml")
}

// Save saves the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
