package jsonldb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrStorage is wrapped by every error caused by the backing file being
// missing, unreadable, malformed or unwritable.
var ErrStorage = errors.New("storage error")

// Table handles storage for a single table persisted as a JSON array.
type Table[T any] struct {
	path string
	mu   sync.RWMutex
}

// NewTable returns a Table backed by path. The file is not touched until the
// first call.
func NewTable[T any](path string) *Table[T] {
	return &Table[T]{path: path}
}

// Path returns the backing file path.
func (t *Table[T]) Path() string {
	return t.path
}

// Init creates the backing file with seed when it does not exist yet.
//
// It returns true if the file was created.
func (t *Table[T]) Init(seed []T) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := os.Stat(t.path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("%w: failed to stat %s: %w", ErrStorage, t.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return false, fmt.Errorf("%w: failed to create directory for %s: %w", ErrStorage, t.path, err)
	}
	if seed == nil {
		seed = []T{}
	}
	if err := t.save(seed); err != nil {
		return false, err
	}
	return true, nil
}

// Load reads and decodes the whole table.
func (t *Table[T]) Load() ([]T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.load()
}

// Modify loads the table, calls fn and saves the rows it returns, all while
// holding the write lock.
//
// If fn returns an error, the table is left untouched and the error is
// returned as is.
func (t *Table[T]) Modify(fn func(rows []T) ([]T, error)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rows, err := t.load()
	if err != nil {
		return err
	}
	rows, err = fn(rows)
	if err != nil {
		return err
	}
	return t.save(rows)
}

func (t *Table[T]) load() ([]T, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", ErrStorage, t.path, err)
	}
	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %w", ErrStorage, t.path, err)
	}
	if rows == nil {
		// The file contained "null".
		rows = []T{}
	}
	return rows, nil
}

func (t *Table[T]) save(rows []T) error {
	if rows == nil {
		rows = []T{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("%w: failed to encode rows: %w", ErrStorage, err)
	}

	dir, base := filepath.Split(t.path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, base+".tmp*")
	if err != nil {
		return fmt.Errorf("%w: failed to create temporary file for %s: %w", ErrStorage, t.path, err)
	}
	tmp := f.Name()
	if _, err = f.Write(buf.Bytes()); err == nil {
		err = f.Sync()
	}
	if err2 := f.Close(); err == nil {
		err = err2
	}
	if err == nil {
		err = os.Chmod(tmp, 0o644) //nolint:gosec // G302: the table is meant to be readable
	}
	if err == nil {
		err = os.Rename(tmp, t.path)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: failed to write %s: %w", ErrStorage, t.path, err)
	}
	return nil
}
