// Package store persists named JSON documents in a data directory.
//
// Each Document is a single mutable cell: it is loaded on first use,
// normalized at the load and write boundaries, and written back to disk
// synchronously on every change. A per-document mutex serializes writers.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

type invalidator interface {
	Invalidate()
}

// Dir owns a data directory and the documents opened in it.
type Dir struct {
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	docs map[string]invalidator
}

func OpenDir(path string, logger *slog.Logger) (*Dir, error) {
	if path == "" {
		return nil, fmt.Errorf("data dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Dir{path: path, logger: logger, docs: map[string]invalidator{}}, nil
}

func (d *Dir) Path() string {
	return d.path
}

func (d *Dir) register(name string, doc invalidator) {
	d.mu.Lock()
	d.docs[name] = doc
	d.mu.Unlock()
}

func (d *Dir) lookup(name string) (invalidator, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, ok := d.docs[name]
	return doc, ok
}

// Document is a typed view of <dir>/<name>.json.
type Document[T any] struct {
	dir       *Dir
	name      string
	path      string
	defaults  func() T
	normalize func(*T)

	mu     sync.Mutex
	cached *T
}

// Open returns the document called name. defaults supplies the value used
// when the file is missing or corrupt; normalize (optional) fills in zero
// fields and runs on every load and write.
func Open[T any](dir *Dir, name string, defaults func() T, normalize func(*T)) *Document[T] {
	if normalize == nil {
		normalize = func(*T) {}
	}
	doc := &Document[T]{
		dir:       dir,
		name:      name,
		path:      filepath.Join(dir.path, name+".json"),
		defaults:  defaults,
		normalize: normalize,
	}
	dir.register(name, doc)
	return doc
}

func (d *Document[T]) Name() string {
	return d.name
}

// Get returns a copy of the current value.
func (d *Document[T]) Get() (T, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, err := d.loadLocked()
	if err != nil {
		var zero T
		return zero, err
	}
	return clone(current)
}

// Replace swaps the whole document.
func (d *Document[T]) Replace(value T) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.normalize(&value)
	if err := d.persistLocked(&value); err != nil {
		return err
	}
	stored, err := clone(&value)
	if err != nil {
		return err
	}
	d.cached = &stored
	return nil
}

// Mutate applies fn to a copy of the document. The copy is persisted only
// when fn returns nil; otherwise the stored value is left untouched.
func (d *Document[T]) Mutate(fn func(*T) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, err := d.loadLocked()
	if err != nil {
		return err
	}
	work, err := clone(current)
	if err != nil {
		return err
	}
	if err := fn(&work); err != nil {
		return err
	}
	d.normalize(&work)
	if err := d.persistLocked(&work); err != nil {
		return err
	}
	d.cached = &work
	return nil
}

// Invalidate drops the cached value; the next access reloads from disk.
func (d *Document[T]) Invalidate() {
	d.mu.Lock()
	d.cached = nil
	d.mu.Unlock()
}

func (d *Document[T]) loadLocked() (*T, error) {
	if d.cached != nil {
		return d.cached, nil
	}

	data, err := os.ReadFile(d.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", d.name, err)
		}
		value := d.defaults()
		d.normalize(&value)
		if err := d.persistLocked(&value); err != nil {
			d.dir.logger.Warn("could not create default document", "document", d.name, "error", err)
		}
		d.cached = &value
		return d.cached, nil
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		d.dir.logger.Warn("corrupt document, using default", "document", d.name, "path", d.path, "error", err)
		value = d.defaults()
		d.normalize(&value)
		d.cached = &value
		return d.cached, nil
	}

	before, err := json.Marshal(&value)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", d.name, err)
	}
	d.normalize(&value)
	after, err := json.Marshal(&value)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", d.name, err)
	}
	// Values filled in by normalize (generated ids among them) must read
	// the same after the next reload.
	if !bytes.Equal(before, after) {
		if err := d.persistLocked(&value); err != nil {
			d.dir.logger.Warn("could not write normalized document", "document", d.name, "error", err)
		}
	}
	d.cached = &value
	return d.cached, nil
}

func (d *Document[T]) persistLocked(value *T) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.name, err)
	}

	tmp, err := os.CreateTemp(d.dir.path, "."+d.name+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", d.name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", d.name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", d.name, err)
	}
	if err := os.Rename(tmpName, d.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", d.name, err)
	}
	return nil
}

func clone[T any](value *T) (T, error) {
	var out T
	data, err := json.Marshal(value)
	if err != nil {
		return out, fmt.Errorf("copy document: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("copy document: %w", err)
	}
	return out, nil
}
