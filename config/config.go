package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ControllerType identifies the kind of controller
type ControllerType string

const (
	ControllerMackie    ControllerType = "mackie"    // MCU / X-Touch scribble strips
	ControllerLaunchpad ControllerType = "launchpad" // Launchpad X LED grid
	ControllerElectra   ControllerType = "electra"   // Electra One control page
)

// ControllerConfig defines a saved controller configuration
type ControllerConfig struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	PortName    string         `json:"portName" yaml:"portName"` // substring matched against MIDI port names
	Type        ControllerType `json:"type" yaml:"type"`
	AutoConnect bool           `json:"autoConnect" yaml:"autoConnect"`
}

// NewControllerConfig creates a controller entry with a generated ID
func NewControllerConfig(name, portName string, typ ControllerType) ControllerConfig {
	return ControllerConfig{
		ID:          uuid.New().String(),
		Name:        name,
		PortName:    portName,
		Type:        typ,
		AutoConnect: true,
	}
}

// DisplayConfig holds the display cache timings, in milliseconds
type DisplayConfig struct {
	SettleMs       int `json:"settleMs,omitempty" yaml:"settleMs,omitempty"`
	NotificationMs int `json:"notificationMs,omitempty" yaml:"notificationMs,omitempty"`
	TickMs         int `json:"tickMs,omitempty" yaml:"tickMs,omitempty"`
	FlushFPS       int `json:"flushFps,omitempty" yaml:"flushFps,omitempty"`
}

// SettleWindow is the quiet period after a value edit before a flush
func (d DisplayConfig) SettleWindow() time.Duration {
	return time.Duration(d.SettleMs) * time.Millisecond
}

// NotificationDuration is how long a notification covers the display
func (d DisplayConfig) NotificationDuration() time.Duration {
	return time.Duration(d.NotificationMs) * time.Millisecond
}

// TickInterval is the notification countdown step
func (d DisplayConfig) TickInterval() time.Duration {
	return time.Duration(d.TickMs) * time.Millisecond
}

// FlushInterval is the period between flushes (zero means the cache default)
func (d DisplayConfig) FlushInterval() time.Duration {
	if d.FlushFPS <= 0 {
		return 0
	}
	return time.Second / time.Duration(d.FlushFPS)
}

// DebugConfig controls the debug log
type DebugConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Controllers []ControllerConfig `json:"controllers,omitempty" yaml:"controllers,omitempty"`
	Display     DisplayConfig      `json:"display" yaml:"display"`
	Debug       DebugConfig        `json:"debug" yaml:"debug"`
	PalettePath string             `json:"palettePath,omitempty" yaml:"palettePath,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Controllers: []ControllerConfig{
			NewControllerConfig("X-Touch", "X-Touch", ControllerMackie),
			NewControllerConfig("Launchpad X", "LPX MIDI", ControllerLaunchpad),
			NewControllerConfig("Electra One", "Electra Controller", ControllerElectra),
		},
		Display: DisplayConfig{
			SettleMs:       200,
			NotificationMs: 1000,
			TickMs:         100,
			FlushFPS:       30,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-surface"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads the config at path (ConfigPath if empty), or returns defaults
// if the file does not exist. Files ending in .yaml/.yml are read as YAML.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return DefaultConfig(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if isYAML(path) {
		err = yaml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.fill()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// fill gives controllers without an ID a fresh one and restores missing timings
func (c *Config) fill() {
	for i := range c.Controllers {
		if c.Controllers[i].ID == "" {
			c.Controllers[i].ID = uuid.New().String()
		}
	}
	def := DefaultConfig().Display
	if c.Display.SettleMs == 0 {
		c.Display.SettleMs = def.SettleMs
	}
	if c.Display.NotificationMs == 0 {
		c.Display.NotificationMs = def.NotificationMs
	}
	if c.Display.TickMs == 0 {
		c.Display.TickMs = def.TickMs
	}
	if c.Display.FlushFPS == 0 {
		c.Display.FlushFPS = def.FlushFPS
	}
}

// Validate checks controller types and timings
func (c *Config) Validate() error {
	for _, ctrl := range c.Controllers {
		switch ctrl.Type {
		case ControllerMackie, ControllerLaunchpad, ControllerElectra:
		default:
			return fmt.Errorf("controller %q: unknown type %q", ctrl.Name, ctrl.Type)
		}
		if ctrl.PortName == "" {
			return fmt.Errorf("controller %q: empty portName", ctrl.Name)
		}
	}
	if c.Display.SettleMs < 0 || c.Display.NotificationMs < 0 || c.Display.TickMs < 0 || c.Display.FlushFPS < 0 {
		return fmt.Errorf("display timings must not be negative")
	}
	return nil
}

// Save writes the config to path (ConfigPath if empty)
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// FindController finds the controller config whose portName occurs in port
func (c *Config) FindController(port string) *ControllerConfig {
	lower := strings.ToLower(port)
	for i := range c.Controllers {
		if strings.Contains(lower, strings.ToLower(c.Controllers[i].PortName)) {
			return &c.Controllers[i]
		}
	}
	return nil
}

// AddController adds or updates a controller config (matched by ID)
func (c *Config) AddController(ctrl ControllerConfig) {
	if ctrl.ID == "" {
		ctrl.ID = uuid.New().String()
	}
	for i := range c.Controllers {
		if c.Controllers[i].ID == ctrl.ID {
			c.Controllers[i] = ctrl
			return
		}
	}
	c.Controllers = append(c.Controllers, ctrl)
}

// RemoveController removes a controller by ID
func (c *Config) RemoveController(id string) {
	for i, ctrl := range c.Controllers {
		if ctrl.ID == id {
			c.Controllers = append(c.Controllers[:i], c.Controllers[i+1:]...)
			return
		}
	}
}

// AutoConnectControllers returns controllers with autoConnect enabled
func (c *Config) AutoConnectControllers() []ControllerConfig {
	var result []ControllerConfig
	for _, ctrl := range c.Controllers {
		if ctrl.AutoConnect {
			result = append(result, ctrl)
		}
	}
	return result
}
