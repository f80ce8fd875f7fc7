package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vvka-141/fsload/internal/journal"
	"github.com/vvka-141/fsload/internal/logging"
	"github.com/vvka-141/fsload/internal/storage"
	"github.com/vvka-141/fsload/pkg/fsload"
)

type mockApprover struct {
	approved bool
	err      error
	calls    [][]string
}

func (m *mockApprover) RequestApproval(_ context.Context, _ string, tables []string) (bool, error) {
	m.calls = append(m.calls, tables)
	return m.approved, m.err
}

type mockJournal struct {
	mu        sync.Mutex
	recorded  map[string]journal.Record
	err       error
	recordErr error
}

func newMockJournal() *mockJournal {
	return &mockJournal{recorded: map[string]journal.Record{}}
}

func (m *mockJournal) key(loadID, schema, dataset string) string {
	return loadID + "|" + schema + "|" + dataset
}

func (m *mockJournal) IsRecorded(_ context.Context, loadID, schema, dataset string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.recorded[m.key(loadID, schema, dataset)]
	return ok, m.err
}

func (m *mockJournal) Record(_ context.Context, r journal.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	m.recorded[m.key(r.LoadID, r.SchemaName, r.DatasetName)] = r
	return nil
}

// flakyDriver fails puts of files whose name contains a key, a fixed
// number of times or forever.
type flakyDriver struct {
	*storage.MemoryDriver

	mu       sync.Mutex
	failures map[string]int
	errs     map[string]error
	puts     map[string]int
}

func newFlakyDriver() *flakyDriver {
	return &flakyDriver{
		MemoryDriver: storage.NewMemoryDriver(),
		failures:     map[string]int{},
		errs:         map[string]error{},
		puts:         map[string]int{},
	}
}

// failPut makes the next n puts matching key fail with err; n < 0 fails forever.
func (d *flakyDriver) failPut(key string, n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[key] = n
	d.errs[key] = err
}

func (d *flakyDriver) Put(ctx context.Context, localPath, dest string) error {
	d.mu.Lock()
	base := filepath.Base(localPath)
	d.puts[base]++
	for key, n := range d.failures {
		if !strings.Contains(base, key) || n == 0 {
			continue
		}
		if n > 0 {
			d.failures[key] = n - 1
		}
		err := d.errs[key]
		d.mu.Unlock()
		return err
	}
	d.mu.Unlock()
	return d.MemoryDriver.Put(ctx, localPath, dest)
}

func (d *flakyDriver) putCount(base string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.puts[base]
}

var _ fsload.StorageDriver = (*flakyDriver)(nil)

var errSlowDown = errors.New("SlowDown: please reduce your request rate")

func openerFor(driver fsload.StorageDriver) DriverOpener {
	return func(_ context.Context, bucketURL string) (fsload.StorageDriver, string, error) {
		loc, err := storage.ParseBucketURL(bucketURL)
		if err != nil {
			return nil, "", err
		}
		return driver, loc.Root, nil
	}
}

func newTestService(driver fsload.StorageDriver, approver fsload.Approver, opts ...Option) *LoadService {
	opts = append([]Option{WithRetryDelays(0, 0)}, opts...)
	return NewLoadService(openerFor(driver), approver, logging.NewNullLogger(), opts...)
}

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func testLoadConfig(packagePath string) fsload.LoadConfig {
	return fsload.LoadConfig{
		Destination: fsload.DestinationConfig{
			BucketURL:   "memory://lake",
			DatasetName: "analytics",
		},
		PackagePath: packagePath,
		Workers:     4,
		MaxRetries:  2,
	}
}

// hookDriver runs onFirstPut before the first transfer reaches storage.
type hookDriver struct {
	*storage.MemoryDriver

	once       sync.Once
	onFirstPut func()
}

func (d *hookDriver) Put(ctx context.Context, localPath, dest string) error {
	d.once.Do(d.onFirstPut)
	return d.MemoryDriver.Put(ctx, localPath, dest)
}

var _ fsload.StorageDriver = (*hookDriver)(nil)
