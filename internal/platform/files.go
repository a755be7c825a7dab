package platform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mdstudio/internal/store"
)

// ErrCancelled means the user dismissed a picker. It is not a failure.
var ErrCancelled = errors.New("cancelled")

// Handle is an opaque reference to a platform file. For OSFiles it is an absolute path.
type Handle string

// Name is the file name the handle points at.
func (h Handle) Name() string {
	if h == "" {
		return ""
	}
	return filepath.Base(string(h))
}

type OpenedFile struct {
	Name    string
	Content string
	Handle  Handle
}

// Files is the file-access collaborator. Every method may return ErrCancelled.
type Files interface {
	Open(ctx context.Context) (OpenedFile, error)
	SaveAs(ctx context.Context, suggested string) (Handle, error)
	Write(ctx context.Context, h Handle, text string) error
}

type Purpose string

const (
	PurposeOpen Purpose = "open"
	PurposeSave Purpose = "save"
)

// Picker asks the user for a path. Returning "" (or ErrCancelled) cancels.
type Picker func(ctx context.Context, purpose Purpose, suggested string) (string, error)

// FixedPicker always answers path; handy for CLI arguments.
func FixedPicker(path string) Picker {
	return func(context.Context, Purpose, string) (string, error) { return path, nil }
}

// MaxOpenBytes bounds how much a single open may read.
const MaxOpenBytes = 32 << 20

// OSFiles implements Files on the local file system.
type OSFiles struct {
	Pick Picker
	// Dir resolves relative picks; empty means the working directory.
	Dir string
}

func (f OSFiles) pick(ctx context.Context, purpose Purpose, suggested string) (string, error) {
	if f.Pick == nil {
		return "", ErrCancelled
	}
	p, err := f.Pick(ctx, purpose, suggested)
	if err != nil {
		return "", err
	}
	p = strings.TrimSpace(p)
	if p == "" {
		return "", ErrCancelled
	}
	if !filepath.IsAbs(p) && f.Dir != "" {
		p = filepath.Join(f.Dir, p)
	}
	return filepath.Abs(p)
}

func (f OSFiles) Open(ctx context.Context) (OpenedFile, error) {
	path, err := f.pick(ctx, PurposeOpen, "")
	if err != nil {
		return OpenedFile{}, err
	}
	return ReadFile(path)
}

// ReadFile reads path as an OpenedFile.
func ReadFile(path string) (OpenedFile, error) {
	st, err := os.Stat(path)
	if err != nil {
		return OpenedFile{}, err
	}
	if st.IsDir() {
		return OpenedFile{}, fmt.Errorf("%s is a directory", path)
	}
	if st.Size() > MaxOpenBytes {
		return OpenedFile{}, fmt.Errorf("%s is too large (%d bytes)", path, st.Size())
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return OpenedFile{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return OpenedFile{Name: filepath.Base(path), Content: string(b), Handle: Handle(abs)}, nil
}

func (f OSFiles) SaveAs(ctx context.Context, suggested string) (Handle, error) {
	path, err := f.pick(ctx, PurposeSave, suggested)
	if err != nil {
		return "", err
	}
	return Handle(path), nil
}

// Write replaces the file behind h with text, normalizing line endings to LF.
func (f OSFiles) Write(_ context.Context, h Handle, text string) error {
	if h == "" {
		return errors.New("write: empty handle")
	}
	return store.WriteFileAtomic(string(h), []byte(NormalizeNewlines(text)), 0o644)
}

// NormalizeNewlines converts CRLF and lone CR to LF.
func NormalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
