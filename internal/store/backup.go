package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const backupVersion = 1

// Backup is a portable copy of the raw values the studio keeps in a KV.
type Backup struct {
	Version   int   `json:"version"`
	CreatedAt int64 `json:"createdAt"`
	// Documents is the raw DocumentsKey value; empty when there was none.
	Documents string `json:"documents,omitempty"`
	// Legacy is a not yet migrated single-document autosave.
	Legacy string `json:"legacy,omitempty"`
}

// BackupDir is where backups go by default.
func BackupDir(dataDir string) string {
	return filepath.Join(dataDir, "backups")
}

// BackupFileName names a backup taken at t.
func BackupFileName(t time.Time) string {
	return "mdstudio-" + t.UTC().Format("20060102-150405.000") + ".json"
}

// ReadBackupKV captures the current KV values.
func ReadBackupKV(ctx context.Context, kv KV, now time.Time) (Backup, error) {
	b := Backup{Version: backupVersion, CreatedAt: now.UTC().UnixMilli()}
	docs, ok, err := kv.Get(ctx, DocumentsKey)
	if err != nil {
		return Backup{}, fmt.Errorf("read documents: %w", err)
	}
	if ok {
		b.Documents = docs
	}
	legacy, ok, err := kv.Get(ctx, LegacyKey)
	if err != nil {
		return Backup{}, fmt.Errorf("read legacy autosave: %w", err)
	}
	if ok {
		b.Legacy = legacy
	}
	return b, nil
}

// WriteBackup writes b to path atomically.
func WriteBackup(path string, b Backup) error {
	raw, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, append(raw, '\n'), 0o600)
}

// ReadBackup reads and validates a backup file.
func ReadBackup(path string) (Backup, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Backup{}, err
	}
	var b Backup
	if err := json.Unmarshal(raw, &b); err != nil {
		return Backup{}, fmt.Errorf("parse backup: %w", err)
	}
	if b.Version != backupVersion {
		return Backup{}, fmt.Errorf("unsupported backup version %d", b.Version)
	}
	if strings.TrimSpace(b.Documents) == "" && strings.TrimSpace(b.Legacy) == "" {
		return Backup{}, errors.New("backup is empty")
	}
	if b.Documents != "" {
		mem := NewMemoryKV()
		_ = mem.Set(context.Background(), DocumentsKey, b.Documents)
		if res := NewCodec(mem, slog.New(slog.DiscardHandler)).Load(context.Background()); res.Warning != "" {
			return Backup{}, errors.New("backup documents are unreadable")
		}
	}
	return b, nil
}

// RestoreBackup replaces the KV values with b. Keys absent from the backup are
// removed so the restored state matches it exactly.
func RestoreBackup(ctx context.Context, kv KV, b Backup) error {
	put := func(key, value string) error {
		if value == "" {
			return kv.Delete(ctx, key)
		}
		return kv.Set(ctx, key, value)
	}
	if err := put(DocumentsKey, b.Documents); err != nil {
		return fmt.Errorf("restore documents: %w", err)
	}
	if err := put(LegacyKey, b.Legacy); err != nil {
		return fmt.Errorf("restore legacy autosave: %w", err)
	}
	return nil
}
