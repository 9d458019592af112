package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

const appName = "linkgrab"

type Config struct {
	Hotkeys HotkeyConfig  `toml:"hotkeys"`
	Paths   PathsConfig   `toml:"paths"`
	Capture CaptureConfig `toml:"capture"`
	Web     WebConfig     `toml:"web"`

	path string
	mu   sync.Mutex
}

type HotkeyConfig struct {
	Add      string `toml:"add_hotkey"`
	Download string `toml:"download_hotkey"`
}

type PathsConfig struct {
	DataDir      string `toml:"data_dir"`
	DownloadsDir string `toml:"downloads_dir"`
}

type CaptureConfig struct {
	Attempts  int `toml:"attempts"`
	TimeoutMs int `toml:"timeout_ms"`
}

type WebConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// Default chords used when the config file does not set them
const (
	DefaultAddHotkey      = "ctrl+space"
	DefaultDownloadHotkey = "ctrl+shift+space"
)

// Default configuration
func defaultConfig() *Config {
	return &Config{
		Hotkeys: HotkeyConfig{
			Add:      DefaultAddHotkey,
			Download: DefaultDownloadHotkey,
		},
		Capture: CaptureConfig{
			Attempts:  3,
			TimeoutMs: 3000,
		},
		Web: WebConfig{
			Enabled: false,
			Port:    8765,
		},
	}
}

// ConfigDir returns the per-user directory holding config.toml
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return "", fmt.Errorf("failed to resolve config directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}

	dir := filepath.Join(base, appName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// ConfigPath returns the path to the configuration file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads the configuration from the default TOML file
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile loads the configuration from path.
// If the file doesn't exist, it creates it with default values
func LoadFile(path string) (*Config, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := defaultConfig()
	cfg.path = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := save(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		cfg.applyDefaults()
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.applyDefaults()

	return cfg, nil
}

// applyDefaults fills values left empty in the file
func (c *Config) applyDefaults() {
	if c.Hotkeys.Add == "" {
		c.Hotkeys.Add = DefaultAddHotkey
	}
	if c.Hotkeys.Download == "" {
		c.Hotkeys.Download = DefaultDownloadHotkey
	}
	if c.Capture.Attempts <= 0 {
		c.Capture.Attempts = 3
	}
	if c.Capture.TimeoutMs <= 0 {
		c.Capture.TimeoutMs = 3000
	}
	if c.Web.Port <= 0 {
		c.Web.Port = 8765
	}
	if c.Paths.DataDir == "" {
		c.Paths.DataDir = filepath.Dir(c.path)
	} else {
		c.Paths.DataDir = ExpandPath(c.Paths.DataDir)
	}
	if c.Paths.DownloadsDir == "" {
		c.Paths.DownloadsDir = DefaultDownloadsDir()
	} else {
		c.Paths.DownloadsDir = ExpandPath(c.Paths.DownloadsDir)
	}
}

// Path returns the file the config was loaded from
func (c *Config) Path() string {
	return c.path
}

// AddHotkey returns the current add-link chord
func (c *Config) AddHotkey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Hotkeys.Add
}

// DownloadHotkey returns the current download chord
func (c *Config) DownloadHotkey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Hotkeys.Download
}

// SetAddHotkey stores a new add-link chord and writes the file
func (c *Config) SetAddHotkey(chord string) error {
	c.mu.Lock()
	c.Hotkeys.Add = chord
	c.mu.Unlock()
	return c.Save()
}

// Save writes the configuration back to its file
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("config has no file path")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return save(c.path, c)
}

// save writes the configuration to the TOML file
func save(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// DefaultDownloadsDir returns ~/Downloads/LinkGrab
func DefaultDownloadsDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Downloads", "LinkGrab")
}

// ExpandPath resolves a leading ~ to the user's home directory
func ExpandPath(p string) string {
	if p == "~" || len(p) > 1 && p[0] == '~' && (p[1] == '/' || p[1] == '\\') {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[1:])
	}
	return p
}
