package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultDebounceMs  = 3000
	DefaultPreviewAddr = "127.0.0.1:7878"
)

type GlobalConfig struct {
	// Backend selects the durable KV ("sqlite", "file", "memory").
	Backend string `json:"backend,omitempty"`

	// Dir is the data directory. Empty means the config directory itself.
	Dir string `json:"dir,omitempty"`

	DebounceMs int `json:"debounceMs,omitempty"`
	QuotaBytes int `json:"quotaBytes,omitempty"`

	// Theme names the export/preview theme ("light" or "dark").
	Theme string `json:"theme,omitempty"`

	PreviewAddr string `json:"previewAddr,omitempty"`

	// TUI holds optional user preferences for the interactive editor.
	TUI *TUIConfig `json:"tui,omitempty"`
}

type TUIConfig struct {
	// Style is a glamour style name ("dark", "light", "notty", ...).
	Style string `json:"style,omitempty"`
	// HidePreview starts the editor with the preview pane collapsed.
	HidePreview bool `json:"hidePreview,omitempty"`
}

// Debounce returns the autosave window, applying the default.
func (c *GlobalConfig) Debounce() time.Duration {
	if c == nil || c.DebounceMs <= 0 {
		return DefaultDebounceMs * time.Millisecond
	}
	return time.Duration(c.DebounceMs) * time.Millisecond
}

func (c *GlobalConfig) Addr() string {
	if c == nil || strings.TrimSpace(c.PreviewAddr) == "" {
		return DefaultPreviewAddr
	}
	return strings.TrimSpace(c.PreviewAddr)
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.mdstudio).
	if v := strings.TrimSpace(os.Getenv("MDSTUDIO_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".mdstudio"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DataDir resolves where the KV backends live.
func (c *GlobalConfig) DataDir() (string, error) {
	if c != nil && strings.TrimSpace(c.Dir) != "" {
		return filepath.Clean(strings.TrimSpace(c.Dir)), nil
	}
	return ConfigDir()
}

func LoadConfig() (*GlobalConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &GlobalConfig{}, nil
		}
		return nil, err
	}
	var cfg GlobalConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func SaveConfig(cfg *GlobalConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	// Best-effort: keep the previous config around for manual recovery.
	if prev, err := os.ReadFile(path); err == nil && len(prev) > 0 {
		_ = atomicWriteFile(dir, "config.json.bak.*.tmp", path+".bak", prev, 0o644)
	}

	// Unique temp names keep the TUI and a concurrent CLI from clobbering each other.
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}
