package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// ErrOutOfRange is returned for accesses beyond the end of a region.
var ErrOutOfRange = errors.New("access outside region")

// Region is the persistent byte storage collaborator. Its size is fixed
// when it is opened. Writes are staged until Commit.
type Region interface {
	io.ReaderAt
	io.WriterAt
	Size() int
	Commit() error
}

// erased is the value of a blank flash cell.
const erased = 0xFF

// MemRegion is an in-memory Region with EEPROM semantics: ReadAt and
// WriteAt operate on a RAM cache, Commit copies the cache to the committed
// image returned by Committed.
type MemRegion struct {
	mu        sync.Mutex
	cache     []byte
	committed []byte

	// FailWrites and FailCommit inject storage faults.
	FailWrites bool
	FailCommit bool
	commits    int
}

// NewMemRegion creates a blank (0xFF-filled) region of the given size.
func NewMemRegion(size int) *MemRegion {
	m := &MemRegion{
		cache:     make([]byte, size),
		committed: make([]byte, size),
	}
	for i := range m.cache {
		m.cache[i] = erased
		m.committed[i] = erased
	}
	return m
}

// Size returns the region size in bytes.
func (m *MemRegion) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cache)
}

// ReadAt reads from the cache.
func (m *MemRegion) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return readAt(m.cache, p, off)
}

// WriteAt writes into the cache.
func (m *MemRegion) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites {
		return 0, errors.New("simulated write fault")
	}
	return writeAt(m.cache, p, off)
}

// Commit publishes the cache.
func (m *MemRegion) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCommit {
		return errors.New("simulated commit fault")
	}
	copy(m.committed, m.cache)
	m.commits++
	return nil
}

// Committed returns a copy of the last committed image.
func (m *MemRegion) Committed() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.committed...)
}

// Commits returns the number of successful commits.
func (m *MemRegion) Commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commits
}

// FileRegion is a Region backed by a file. The whole image is held in
// memory; Commit rewrites the file atomically.
type FileRegion struct {
	mu    sync.Mutex
	path  string
	cache []byte
}

// OpenFile opens or creates the region file at path. A missing file, or
// the part of a short file beyond its end, reads as erased flash. A longer
// file is truncated to size on the next commit.
func OpenFile(path string, size int) (*FileRegion, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid region size %d", size)
	}

	cache := make([]byte, size)
	for i := range cache {
		cache[i] = erased
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		copy(cache, data)
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read region file: %w", err)
	}

	return &FileRegion{path: path, cache: cache}, nil
}

// Path returns the backing file path.
func (f *FileRegion) Path() string {
	return f.path
}

// Size returns the region size in bytes.
func (f *FileRegion) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cache)
}

// ReadAt reads from the in-memory image.
func (f *FileRegion) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return readAt(f.cache, p, off)
}

// WriteAt writes into the in-memory image.
func (f *FileRegion) WriteAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return writeAt(f.cache, p, off)
}

// Commit writes the image to a temporary file and renames it over the
// region file.
func (f *FileRegion) Commit() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create region directory: %w", err)
	}

	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, f.cache, 0600); err != nil {
		return fmt.Errorf("failed to write temporary region file: %w", err)
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to commit region file: %w", err)
	}

	return nil
}

// Erase fills the region with erased bytes. Call Commit to persist.
func (f *FileRegion) Erase() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.cache {
		f.cache[i] = erased
	}
}

func readAt(buf, p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(buf)) {
		return 0, ErrOutOfRange
	}
	return copy(p, buf[off:]), nil
}

func writeAt(buf, p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(buf)) {
		return 0, ErrOutOfRange
	}
	return copy(buf[off:], p), nil
}
