package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// KV is the durable key-value collaborator the studio persists through.
// Get reports ok=false for a missing key; it is not an error.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendFile   Backend = "file"
	BackendMemory Backend = "memory"
)

func ParseBackend(s string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(s))) {
	case "", BackendSQLite:
		return BackendSQLite, nil
	case BackendFile:
		return BackendFile, nil
	case BackendMemory:
		return BackendMemory, nil
	default:
		return "", fmt.Errorf("unknown backend %q (want sqlite, file or memory)", s)
	}
}

// OpenKV opens the backend rooted at dir. dir is ignored for the memory backend.
func OpenKV(ctx context.Context, backend Backend, dir string) (KV, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryKV(), nil
	case BackendFile:
		return OpenFileKV(filepath.Join(dir, "kv"))
	case "", BackendSQLite:
		return OpenSQLiteKV(ctx, filepath.Join(dir, "studio.sqlite"))
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

// MemoryKV is an in-process KV. The zero value is not usable; call NewMemoryKV.
type MemoryKV struct {
	mu sync.Mutex
	m  map[string]string

	// FailWrites makes Set return an error, for exercising persistence failures.
	FailWrites error
	// FailReads makes Get return an error.
	FailReads error
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{m: map[string]string{}}
}

func (kv *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if kv.FailReads != nil {
		return "", false, kv.FailReads
	}
	v, ok := kv.m[key]
	return v, ok, nil
}

func (kv *MemoryKV) Set(_ context.Context, key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if kv.FailWrites != nil {
		return kv.FailWrites
	}
	kv.m[key] = value
	return nil
}

func (kv *MemoryKV) Delete(_ context.Context, key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.m, key)
	return nil
}

func (kv *MemoryKV) Close() error { return nil }
