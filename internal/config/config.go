// Package config is the on-disk settings collaborator spec.md treats
// as out of the core engine's scope: device identity and user-facing
// defaults persisted as JSON under the user's config directory.
//
// Grounded on the teacher's internal/updater.go UpdateSettings /
// loadSettings / saveSettings trio, retargeted from update metadata to
// device identity and transfer defaults.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"bitshare/internal/identity"
	"bitshare/internal/utils"
)

const (
	// DefaultListenPort is the TCP transfer port, per spec.md §6.
	DefaultListenPort = 53318
	configDirName      = "bitshare"
	configFileName     = "config.json"
)

// Config is the persisted settings document.
type Config struct {
	DeviceID    string `json:"device_id"`
	Alias       string `json:"alias"`
	ListenPort  int    `json:"listen_port"`
	DownloadDir string `json:"download_dir"`
}

// DefaultPath returns the standard on-disk location to pass to
// Load/Save: os.UserConfigDir()/bitshare/config.json, or
// ./bitshare/config.json when the user config directory is unknown.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, configDirName, configFileName), nil
}

// Load reads path, creating a fresh config with a freshly generated
// device-id and default ports/alias if the file does not exist yet —
// mirroring the teacher's update.json first-run behavior. A leading
// "~" in a stored download_dir is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg := newDefault()
		if saveErr := cfg.Save(path); saveErr != nil {
			return nil, saveErr
		}
		return cfg, nil
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.DownloadDir == "~" || strings.HasPrefix(cfg.DownloadDir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.DownloadDir = filepath.Join(home, cfg.DownloadDir[1:])
		}
	}
	return &cfg, nil
}

// Save writes cfg to path as indented JSON, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func newDefault() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		DeviceID:    identity.NewDeviceID(),
		Alias:       utils.GenerateNodeName(),
		ListenPort:  DefaultListenPort,
		DownloadDir: filepath.Join(home, "BitShare", "Received"),
	}
}
