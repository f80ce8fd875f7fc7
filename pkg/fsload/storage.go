package fsload

import "context"

// StorageDriver abstracts a destination filesystem: a local directory,
// an in-memory tree or an object store bucket.
//
// Paths are driver paths without the protocol: "/data/lake/x" for the
// local filesystem, "bucket/prefix/x" for object stores. Implementations
// must be safe for concurrent use by multiple goroutines.
type StorageDriver interface {
	// Protocol returns the URL scheme of the driver, e.g. "file" or "s3".
	Protocol() string

	// Put copies a local file to path, replacing any existing file.
	Put(ctx context.Context, localPath, path string) error

	// Get copies the file at path to a local file.
	Get(ctx context.Context, path, localPath string) error

	// List returns the paths of all files below root, recursively.
	// A missing root yields an empty list.
	List(ctx context.Context, root string) ([]string, error)

	// Delete removes a single file.
	Delete(ctx context.Context, path string) error

	// MakeDirs creates path and its parents. Existing directories are not an error.
	MakeDirs(ctx context.Context, path string) error

	// IsDir reports whether path is an existing directory.
	IsDir(ctx context.Context, path string) (bool, error)

	// Touch creates an empty file at path, or updates its modification
	// time if it exists.
	Touch(ctx context.Context, path string) error

	// Exists reports whether a file exists at path.
	Exists(ctx context.Context, path string) (bool, error)
}
