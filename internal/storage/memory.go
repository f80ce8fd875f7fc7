package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	content []byte
	modTime time.Time
}

// MemoryDriver implements fsload.StorageDriver in memory. Paths are
// slash-separated and cleaned; a leading slash is ignored.
type MemoryDriver struct {
	mu    sync.RWMutex
	files map[string]*memoryEntry
	dirs  map[string]struct{}
}

// NewMemoryDriver creates an empty in-memory filesystem.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{
		files: make(map[string]*memoryEntry),
		dirs:  make(map[string]struct{}),
	}
}

var (
	sharedMu      sync.Mutex
	sharedDrivers = map[string]*MemoryDriver{}
)

// SharedMemoryDriver returns the process-wide in-memory filesystem for a
// memory:// bucket name, creating it on first use.
func SharedMemoryDriver(name string) *MemoryDriver {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	d, ok := sharedDrivers[name]
	if !ok {
		d = NewMemoryDriver()
		sharedDrivers[name] = d
	}
	return d
}

func (d *MemoryDriver) Protocol() string { return ProtocolMemory }

func normalize(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	return p
}

// AddFile stores content at p. It is meant for test setup.
func (d *MemoryDriver) AddFile(p, content string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeLocked(normalize(p), []byte(content))
}

// ReadFile returns the content stored at p.
func (d *MemoryDriver) ReadFile(p string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entry, ok := d.files[normalize(p)]
	if !ok {
		return nil, fmt.Errorf("file not found: %s: %w", p, fs.ErrNotExist)
	}
	return entry.content, nil
}

func (d *MemoryDriver) writeLocked(p string, content []byte) {
	d.files[p] = &memoryEntry{content: content, modTime: time.Now()}
	d.ensureDirectoriesExist(p)
}

// ensureDirectoriesExist creates directory entries for all parent directories
func (d *MemoryDriver) ensureDirectoriesExist(p string) {
	for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if _, exists := d.dirs[dir]; exists {
			return
		}
		d.dirs[dir] = struct{}{}
	}
}

func (d *MemoryDriver) Put(ctx context.Context, localPath, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	content, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeLocked(normalize(dest), content)
	return nil
}

func (d *MemoryDriver) Get(ctx context.Context, src, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	content, err := d.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(localPath, content, 0o644)
}

func (d *MemoryDriver) List(ctx context.Context, root string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root = normalize(root)

	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []string
	for p := range d.files {
		if root == "" || strings.HasPrefix(p, root+"/") {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (d *MemoryDriver) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p = normalize(p)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.files[p]; !ok {
		return fmt.Errorf("file not found: %s: %w", p, fs.ErrNotExist)
	}
	delete(d.files, p)
	return nil
}

func (d *MemoryDriver) MakeDirs(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p = normalize(p)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.files[p]; ok {
		return fmt.Errorf("path is a file: %s: %w", p, fs.ErrExist)
	}
	if p != "" {
		d.dirs[p] = struct{}{}
		d.ensureDirectoriesExist(p)
	}
	return nil
}

func (d *MemoryDriver) IsDir(ctx context.Context, p string) (bool, error) {
	p = normalize(p)

	d.mu.RLock()
	defer d.mu.RUnlock()

	if p == "" {
		return true, nil
	}
	_, ok := d.dirs[p]
	return ok, nil
}

func (d *MemoryDriver) Touch(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p = normalize(p)

	d.mu.Lock()
	defer d.mu.Unlock()

	if entry, ok := d.files[p]; ok {
		entry.modTime = time.Now()
		return nil
	}
	d.writeLocked(p, nil)
	return nil
}

func (d *MemoryDriver) Exists(ctx context.Context, p string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.files[normalize(p)]
	return ok, nil
}

// ModTime returns the modification time of the file at p.
func (d *MemoryDriver) ModTime(p string) (time.Time, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entry, ok := d.files[normalize(p)]
	if !ok {
		return time.Time{}, false
	}
	return entry.modTime, true
}
