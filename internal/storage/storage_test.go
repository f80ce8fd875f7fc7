package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/fsload/pkg/fsload"
)

func TestParseBucketURL(t *testing.T) {
	tests := []struct {
		url      string
		protocol string
		root     string
	}{
		{"file:///data/lake", ProtocolFile, "/data/lake"},
		{"file:///data/lake/", ProtocolFile, "/data/lake"},
		{"file://localhost/data", ProtocolFile, "/data"},
		{"memory://lake", ProtocolMemory, "lake"},
		{"memory://lake/raw", ProtocolMemory, "lake/raw"},
		{"s3://bucket", ProtocolS3, "bucket"},
		{"s3://bucket/prefix/", ProtocolS3, "bucket/prefix"},
		{"gs://bucket/a/b", ProtocolGCS, "bucket/a/b"},
		{"az://container/p", ProtocolAzure, "container/p"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			loc, err := ParseBucketURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.protocol, loc.Protocol)
			assert.Equal(t, tt.root, loc.Root)
		})
	}
}

func TestParseBucketURL_LocalPath(t *testing.T) {
	loc, err := ParseBucketURL("relative/lake")
	require.NoError(t, err)

	abs, _ := filepath.Abs("relative/lake")
	assert.Equal(t, ProtocolFile, loc.Protocol)
	assert.Equal(t, filepath.ToSlash(abs), loc.Root)
}

func TestParseBucketURL_Invalid(t *testing.T) {
	tests := []struct {
		url  string
		want error
	}{
		{"", fsload.ErrInvalidConfig},
		{"s3://", fsload.ErrInvalidConfig},
		{"file://host/data", fsload.ErrInvalidConfig},
		{"file://", fsload.ErrInvalidConfig},
		{"ftp://host/data", fsload.ErrUnsupportedProtocol},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			_, err := ParseBucketURL(tt.url)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOpen_LocalAndMemory(t *testing.T) {
	ctx := context.Background()

	driver, root, err := Open(ctx, "file:///tmp/lake", Credentials{})
	require.NoError(t, err)
	assert.IsType(t, &LocalDriver{}, driver)
	assert.Equal(t, "/tmp/lake", root)

	a, _, err := Open(ctx, "memory://shared-open-test/x", Credentials{})
	require.NoError(t, err)
	b, _, err := Open(ctx, "memory://shared-open-test", Credentials{})
	require.NoError(t, err)
	assert.Same(t, a, b, "same memory bucket must share one driver")

	_, _, err = Open(ctx, "ftp://x/y", Credentials{})
	assert.ErrorIs(t, err, fsload.ErrUnsupportedProtocol)
}

func TestRemoteURL(t *testing.T) {
	assert.Equal(t, "file:///data/lake/x.jsonl", RemoteURL(NewLocalDriver(), "/data/lake/x.jsonl"))
	assert.Equal(t, "memory://lake/x.jsonl", RemoteURL(NewMemoryDriver(), "lake/x.jsonl"))
}

func TestSplitBucket(t *testing.T) {
	bucket, key, err := splitBucket("bucket/a/b.jsonl")
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "a/b.jsonl", key)

	_, _, err = splitBucket("/")
	assert.Error(t, err)

	assert.Equal(t, "", dirPrefix(""))
	assert.Equal(t, "a/b/", dirPrefix("/a/b/"))
}

// testDriverContract exercises behavior every driver shares.
func testDriverContract(t *testing.T, driver fsload.StorageDriver, root string) {
	t.Helper()
	ctx := context.Background()

	local := filepath.Join(t.TempDir(), "orders.f1.0.jsonl")
	require.NoError(t, os.WriteFile(local, []byte(`{"id":1}`), 0o644))

	t.Run("missing root lists empty", func(t *testing.T) {
		files, err := driver.List(ctx, root+"/missing")
		require.NoError(t, err)
		assert.Empty(t, files)

		isDir, err := driver.IsDir(ctx, root+"/missing")
		require.NoError(t, err)
		assert.False(t, isDir)
	})

	t.Run("put get list delete", func(t *testing.T) {
		dest := root + "/ds/orders/L1.f1.jsonl"
		require.NoError(t, driver.Put(ctx, local, dest))

		exists, err := driver.Exists(ctx, dest)
		require.NoError(t, err)
		assert.True(t, exists)

		out := filepath.Join(t.TempDir(), "copy.jsonl")
		require.NoError(t, driver.Get(ctx, dest, out))
		content, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, `{"id":1}`, string(content))

		files, err := driver.List(ctx, root+"/ds")
		require.NoError(t, err)
		assert.Equal(t, []string{dest}, files)

		require.NoError(t, driver.Delete(ctx, dest))
		exists, err = driver.Exists(ctx, dest)
		require.NoError(t, err)
		assert.False(t, exists)

		if driver.Protocol() == ProtocolFile || driver.Protocol() == ProtocolMemory {
			assert.Error(t, driver.Delete(ctx, dest), "deleting a missing file fails")
		}
	})

	t.Run("put replaces", func(t *testing.T) {
		dest := root + "/ds/replace.jsonl"
		require.NoError(t, driver.Put(ctx, local, dest))

		other := filepath.Join(t.TempDir(), "other")
		require.NoError(t, os.WriteFile(other, []byte("v2"), 0o644))
		require.NoError(t, driver.Put(ctx, other, dest))

		out := filepath.Join(t.TempDir(), "out")
		require.NoError(t, driver.Get(ctx, dest, out))
		content, _ := os.ReadFile(out)
		assert.Equal(t, "v2", string(content))
	})

	t.Run("makedirs is idempotent", func(t *testing.T) {
		dir := root + "/ds2/a/b"
		require.NoError(t, driver.MakeDirs(ctx, dir))
		require.NoError(t, driver.MakeDirs(ctx, dir))

		for _, p := range []string{dir, root + "/ds2/a", root + "/ds2"} {
			isDir, err := driver.IsDir(ctx, p)
			require.NoError(t, err)
			assert.True(t, isDir, p)
		}

		files, err := driver.List(ctx, root+"/ds2")
		require.NoError(t, err)
		assert.Empty(t, files, "directories are not files")
	})

	t.Run("touch creates then keeps", func(t *testing.T) {
		require.NoError(t, driver.MakeDirs(ctx, root+"/ds3"))
		marker := root + "/ds3/sales._loads.L1"
		require.NoError(t, driver.Touch(ctx, marker))
		require.NoError(t, driver.Touch(ctx, marker))

		exists, err := driver.Exists(ctx, marker)
		require.NoError(t, err)
		assert.True(t, exists)

		files, err := driver.List(ctx, root+"/ds3")
		require.NoError(t, err)
		assert.Equal(t, []string{marker}, files)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.Error(t, driver.Put(cctx, local, root+"/ds/cancelled.jsonl"))
	})
}

func TestLocalDriver_Contract(t *testing.T) {
	root := filepath.ToSlash(t.TempDir())
	testDriverContract(t, NewLocalDriver(), root)
}

func TestMemoryDriver_Contract(t *testing.T) {
	testDriverContract(t, NewMemoryDriver(), "lake")
}

func TestLocalDriver_ListSkipsTempFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".tmp-123"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.jsonl"), nil, 0o644))

	files, err := NewLocalDriver().List(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.ToSlash(filepath.Join(root, "a.jsonl"))}, files)
}

func TestLocalDriver_TouchUpdatesModTime(t *testing.T) {
	p := filepath.Join(t.TempDir(), "marker")
	require.NoError(t, os.WriteFile(p, []byte("keep"), 0o644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(p, old, old))

	require.NoError(t, NewLocalDriver().Touch(context.Background(), p))

	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.True(t, info.ModTime().After(old))
	content, _ := os.ReadFile(p)
	assert.Equal(t, "keep", string(content), "touch must not truncate")
}

func TestMemoryDriver_MakeDirsOverFile(t *testing.T) {
	d := NewMemoryDriver()
	d.AddFile("lake/file", "x")
	assert.Error(t, d.MakeDirs(context.Background(), "lake/file"))
}

func TestMemoryDriver_TouchUpdatesModTime(t *testing.T) {
	d := NewMemoryDriver()
	d.AddFile("lake/marker", "")
	before, ok := d.ModTime("lake/marker")
	require.True(t, ok)

	time.Sleep(2 * time.Millisecond)
	require.NoError(t, d.Touch(context.Background(), "/lake/marker"))

	after, _ := d.ModTime("lake/marker")
	assert.True(t, after.After(before))
}
