// Package jobname parses the names of staged job files.
//
// A job file is named <table_name>.<file_id>.<retry_count>.<file_format>,
// e.g. "orders.a1b2c3d4e5.0.jsonl". The name identifies the job across
// restarts; the retry count is bumped when a job is re-queued.
package jobname

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/vvka-141/fsload/pkg/fsload"
)

// Name is a parsed job file name.
type Name struct {
	TableName  string
	FileID     string
	RetryCount int
	FileFormat string
}

// New returns a name for a fresh job with a random file id.
func New(table, format string) Name {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	return Name{TableName: table, FileID: id, FileFormat: format}
}

// Parse parses a job file name. A directory part is ignored.
func Parse(fileName string) (Name, error) {
	base := filepath.Base(fileName)
	parts := strings.Split(base, ".")
	if len(parts) != 4 {
		return Name{}, fmt.Errorf("%q: expected <table>.<file_id>.<retry_count>.<format>: %w", base, fsload.ErrInvalidJobFileName)
	}
	for _, p := range parts {
		if p == "" {
			return Name{}, fmt.Errorf("%q: empty name component: %w", base, fsload.ErrInvalidJobFileName)
		}
	}

	retry, err := strconv.Atoi(parts[2])
	if err != nil || retry < 0 {
		return Name{}, fmt.Errorf("%q: retry count %q is not a non-negative integer: %w", base, parts[2], fsload.ErrInvalidJobFileName)
	}

	return Name{
		TableName:  parts[0],
		FileID:     parts[1],
		RetryCount: retry,
		FileFormat: parts[3],
	}, nil
}

// String formats the name back into a file name.
func (n Name) String() string {
	return fmt.Sprintf("%s.%s.%d.%s", n.TableName, n.FileID, n.RetryCount, n.FileFormat)
}

// WithRetry returns a copy of n with the given retry count.
func (n Name) WithRetry(count int) Name {
	n.RetryCount = count
	return n
}

// WithFormat returns a copy of n with another file format.
func (n Name) WithFormat(format string) Name {
	n.FileFormat = format
	return n
}
