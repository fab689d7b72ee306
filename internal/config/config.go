// Package config loads the mudra configuration from a YAML file and command
// line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/plugin"
)

// DispatchMode selects how gestures reach the host.
type DispatchMode string

const (
	DispatchKeyboard DispatchMode = "keyboard"
	DispatchPlugin   DispatchMode = "plugin"
	DispatchBoth     DispatchMode = "both"
	DispatchNone     DispatchMode = "none"
)

// DataDirName is the directory under the user's home that holds plugins,
// the database and logs.
const DataDirName = ".mudra"

// PluginConfig selects the plugin used by the plugin dispatcher.
type PluginConfig struct {
	Dir     string        `yaml:"dir"`
	Name    string        `yaml:"name"`
	Timeout time.Duration `yaml:"timeout"`
}

// Config is the complete runtime configuration.
type Config struct {
	Camera   capture.Config  `yaml:"camera"`
	Detector detector.Config `yaml:"detector"`
	Gesture  gesture.Config  `yaml:"gesture"`

	// Bindings override the default key of individual gestures.
	Bindings action.Bindings `yaml:"bindings"`
	Dispatch DispatchMode    `yaml:"dispatch"`
	Plugin   PluginConfig    `yaml:"plugin"`

	// Headless disables the preview window.
	Headless bool `yaml:"headless"`
	// Tray shows a system tray icon. Implies Headless.
	Tray bool `yaml:"tray"`
	// WindowTitle names the preview window.
	WindowTitle string `yaml:"window_title"`

	// Database is the SQLite journal path. Empty disables journaling.
	Database string `yaml:"database"`
	// Listen is the HTTP status server address. Empty disables the server.
	Listen string `yaml:"listen"`

	Log logging.Config `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Camera:      capture.DefaultConfig(),
		Detector:    detector.DefaultConfig(),
		Gesture:     gesture.DefaultConfig(),
		Dispatch:    DispatchKeyboard,
		Plugin:      PluginConfig{Dir: defaultPath("plugins"), Name: "keyboard", Timeout: plugin.DefaultTimeout},
		WindowTitle: "Gesture Control",
		Log:         logging.DefaultConfig(),
	}
}

// Load reads path on top of Default. A missing file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// KeyBindings returns the default bindings with the configured overrides applied.
func (c Config) KeyBindings() action.Bindings {
	return action.DefaultBindings().Merge(c.Bindings)
}

// ShowWindow reports whether the preview window should be opened.
func (c Config) ShowWindow() bool {
	return !c.Headless && !c.Tray
}

// Validate checks every section.
func (c Config) Validate() error {
	var errs []error
	if err := c.Camera.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("camera: %w", err))
	}
	if err := c.Detector.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("detector: %w", err))
	}
	if err := c.Gesture.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("gesture: %w", err))
	}
	if err := c.Bindings.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("bindings: %w", err))
	}
	switch c.Dispatch {
	case DispatchKeyboard, DispatchPlugin, DispatchBoth, DispatchNone:
	default:
		errs = append(errs, fmt.Errorf("unknown dispatch mode %q", c.Dispatch))
	}
	if c.Dispatch == DispatchPlugin || c.Dispatch == DispatchBoth {
		if c.Plugin.Name == "" {
			errs = append(errs, errors.New("plugin: name is required for plugin dispatch"))
		}
	}
	if c.Plugin.Timeout < 0 {
		errs = append(errs, fmt.Errorf("plugin: timeout must not be negative, got %v", c.Plugin.Timeout))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	return errors.Join(errs...)
}

// DataDir returns ~/.mudra, or .mudra when the home directory is unknown.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DataDirName
	}
	return filepath.Join(home, DataDirName)
}

func defaultPath(name string) string {
	return filepath.Join(DataDir(), name)
}
