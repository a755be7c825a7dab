package store

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestLoadConfig_MissingFileIsEmpty(t *testing.T) {
	t.Setenv("MDSTUDIO_CONFIG_DIR", t.TempDir())
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got := cfg.Debounce(); got != 3*time.Second {
		t.Fatalf("expected default debounce 3s, got %v", got)
	}
	if got := cfg.Addr(); got != DefaultPreviewAddr {
		t.Fatalf("expected default addr, got %q", got)
	}
}

func TestSaveConfig_KeepsBackup(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MDSTUDIO_CONFIG_DIR", dir)

	if err := SaveConfig(&GlobalConfig{Backend: "file"}); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	if err := SaveConfig(&GlobalConfig{Backend: "sqlite", DebounceMs: 500}); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Backend != "sqlite" || cfg.Debounce() != 500*time.Millisecond {
		t.Fatalf("unexpected config: %#v", cfg)
	}
	b, err := os.ReadFile(filepath.Join(dir, "config.json.bak"))
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if want := `"backend": "file"`; !strings.Contains(string(b), want) {
		t.Fatalf("expected backup to contain %s, got %s", want, b)
	}
}

func TestSaveConfig_ConcurrentWriters_DoesNotCorruptConfig(t *testing.T) {
	t.Setenv("MDSTUDIO_CONFIG_DIR", t.TempDir())

	var wg sync.WaitGroup
	errCh := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := SaveConfig(&GlobalConfig{DebounceMs: 100 + i}); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("concurrent SaveConfig: %v", err)
	}
	if _, err := LoadConfig(); err != nil {
		t.Fatalf("config corrupted: %v", err)
	}
}

func TestDataDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MDSTUDIO_CONFIG_DIR", dir)
	got, err := (&GlobalConfig{}).DataDir()
	if err != nil || got != dir {
		t.Fatalf("DataDir() = %q, %v; want %q", got, err, dir)
	}
	got, _ = (&GlobalConfig{Dir: " /tmp/x/ "}).DataDir()
	if got != "/tmp/x" {
		t.Fatalf("DataDir() = %q", got)
	}
}
