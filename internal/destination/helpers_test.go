package destination

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vvka-141/fsload/internal/logging"
	"github.com/vvka-141/fsload/internal/storage"
	"github.com/vvka-141/fsload/pkg/fsload"
)

// countingDriver wraps a MemoryDriver, counts calls and injects failures.
type countingDriver struct {
	*storage.MemoryDriver

	mu         sync.Mutex
	puts       int
	lists      int
	deletes    int
	putErr     error
	mkdirErr   error
	touchErr   error
	deleteErrs map[string]error // keyed by path suffix
}

func newCountingDriver() *countingDriver {
	return &countingDriver{MemoryDriver: storage.NewMemoryDriver(), deleteErrs: map[string]error{}}
}

func (d *countingDriver) Put(ctx context.Context, localPath, dest string) error {
	d.mu.Lock()
	d.puts++
	err := d.putErr
	d.mu.Unlock()
	if err != nil {
		return err
	}
	return d.MemoryDriver.Put(ctx, localPath, dest)
}

func (d *countingDriver) List(ctx context.Context, root string) ([]string, error) {
	d.mu.Lock()
	d.lists++
	d.mu.Unlock()
	return d.MemoryDriver.List(ctx, root)
}

func (d *countingDriver) Delete(ctx context.Context, p string) error {
	d.mu.Lock()
	d.deletes++
	var injected error
	for suffix, err := range d.deleteErrs {
		if strings.HasSuffix(p, suffix) {
			injected = err
		}
	}
	d.mu.Unlock()
	if injected != nil {
		return injected
	}
	return d.MemoryDriver.Delete(ctx, p)
}

func (d *countingDriver) MakeDirs(ctx context.Context, p string) error {
	if d.mkdirErr != nil {
		return d.mkdirErr
	}
	return d.MemoryDriver.MakeDirs(ctx, p)
}

func (d *countingDriver) Touch(ctx context.Context, p string) error {
	if d.touchErr != nil {
		return d.touchErr
	}
	return d.MemoryDriver.Touch(ctx, p)
}

var _ fsload.StorageDriver = (*countingDriver)(nil)

// stageFile writes a job file into a temp dir and returns its path.
func stageFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func newTestClient(t *testing.T, driver fsload.StorageDriver, mutate func(*ClientConfig)) *Client {
	t.Helper()
	cfg := ClientConfig{
		DatasetName: "ds",
		SchemaName:  "sales",
		Tables:      []string{"orders", "customers"},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	client, err := NewClient(driver, "lake", cfg, logging.NewNullLogger())
	require.NoError(t, err)
	return client
}
