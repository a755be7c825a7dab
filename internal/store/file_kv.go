package store

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
)

// FileKV keeps one file per key under Dir. Writes go through a temp file and rename.
type FileKV struct {
	Dir string
}

func OpenFileKV(dir string) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileKV{Dir: dir}, nil
}

func (kv *FileKV) path(key string) string {
	return filepath.Join(kv.Dir, url.PathEscape(key)+".json")
}

func (kv *FileKV) Get(_ context.Context, key string) (string, bool, error) {
	b, err := os.ReadFile(kv.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(b), true, nil
}

func (kv *FileKV) Set(_ context.Context, key, value string) error {
	return atomicWriteFile(kv.Dir, ".kv.*.tmp", kv.path(key), []byte(value), 0o600)
}

func (kv *FileKV) Delete(_ context.Context, key string) error {
	err := os.Remove(kv.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (kv *FileKV) Close() error { return nil }
