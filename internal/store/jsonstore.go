package store

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"

	"github.com/fortuna/goalfeed/internal/platform/logging"
)

// ErrEmptyPath is returned by Save when no destination was configured.
var ErrEmptyPath = errors.New("store: empty path")

// LoadState describes what Load found on disk.
type LoadState string

const (
	StateLoaded  LoadState = "loaded"
	StateMissing LoadState = "missing"
	StateEmpty   LoadState = "empty"
	StateCorrupt LoadState = "corrupt"
)

var codec = sonic.ConfigDefault

// Load reads a JSON array from path. A missing, empty or malformed file
// yields an empty collection; the state tells the caller which case applied.
func Load[T any](path string) ([]T, LoadState) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.Default().Warn("store read failed, starting fresh", "path", path, "error", err)
			return []T{}, StateCorrupt
		}
		return []T{}, StateMissing
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, StateEmpty
	}

	var items []T
	if err := codec.Unmarshal(trimmed, &items); err != nil {
		logging.Default().Warn("malformed store file, starting fresh", "path", path, "error", err)
		return []T{}, StateCorrupt
	}
	if items == nil {
		items = []T{}
	}
	return items, StateLoaded
}

// Save replaces the file at path with items encoded as an indented JSON
// array. Readers observe either the previous or the new content.
func Save[T any](path string, items []T) error {
	if path == "" {
		return ErrEmptyPath
	}
	if items == nil {
		items = []T{}
	}

	data, err := codec.MarshalIndent(items, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode %s", path)
	}
	data = append(data, '\n')

	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// JSONFile binds a collection type to its output path.
type JSONFile[T any] struct {
	Path string
}

// NewJSONFile returns a store for the collection at path.
func NewJSONFile[T any](path string) *JSONFile[T] {
	return &JSONFile[T]{Path: path}
}

func (f *JSONFile[T]) Load() ([]T, LoadState) {
	return Load[T](f.Path)
}

func (f *JSONFile[T]) Save(items []T) error {
	return Save(f.Path, items)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return syncDir(dir)
}

func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
