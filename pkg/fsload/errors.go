package fsload

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	_, err := client.InitializeStorage(ctx, tables)
//	if errors.Is(err, fsload.ErrAmbiguousPrefix) {
//	    // The layout cannot isolate a table's files; nothing was deleted.
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidLayout indicates a layout template is malformed or
	// could not be rendered. It is a configuration error.
	ErrInvalidLayout = errors.New("invalid layout")

	// ErrAmbiguousPrefix indicates a layout cannot produce a literal prefix
	// that isolates one table's files from another's.
	ErrAmbiguousPrefix = errors.New("ambiguous table prefix")

	// ErrTransfer indicates a file could not be copied to or from storage.
	ErrTransfer = errors.New("transfer failed")

	// ErrDeletion indicates a single file could not be removed during truncation.
	ErrDeletion = errors.New("deletion failed")

	// ErrInvalidJobFileName indicates a staged file name does not follow
	// <table>.<file_id>.<retry_count>.<format>.
	ErrInvalidJobFileName = errors.New("invalid job file name")

	// ErrJobsFailed indicates at least one job of a load package did not complete.
	ErrJobsFailed = errors.New("load jobs failed")

	// ErrPackageNotFound indicates the load package directory does not exist.
	ErrPackageNotFound = errors.New("load package not found")

	// ErrInvalidPackage indicates a load package has a missing or malformed schema.
	ErrInvalidPackage = errors.New("invalid load package")

	// ErrApprovalDenied indicates the user denied approval for the operation.
	ErrApprovalDenied = errors.New("approval denied")

	// ErrStorageUnavailable indicates the destination storage could not be reached.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrUnsupportedProtocol indicates the bucket URL scheme has no storage driver.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
)

// TransferError describes a failed storage write: a copy between local
// disk and storage, a folder creation or a completion marker.
type TransferError struct {
	Op   string // "put", "get", "makedirs" or "touch"
	Path string // remote path
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransferError) Unwrap() []error {
	return []error{ErrTransfer, e.Err}
}

// DeletionError describes a file that could not be removed while truncating a table.
type DeletionError struct {
	Path string
	Err  error
}

func (e *DeletionError) Error() string {
	return fmt.Sprintf("delete %s: %v", e.Path, e.Err)
}

func (e *DeletionError) Unwrap() []error {
	return []error{ErrDeletion, e.Err}
}

// usageErrorPatterns are the messages cobra and our argument validators
// produce for command line misuse.
var usageErrorPatterns = []string{
	"unknown flag",
	"unknown shorthand flag",
	"unknown command",
	"arg(s), received",
	"required flag",
	"invalid argument",
	"missing required argument",
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrInvalidLayout),
		errors.Is(err, ErrAmbiguousPrefix),
		errors.Is(err, ErrUnsupportedProtocol):
		return ExitConfigError
	case errors.Is(err, ErrApprovalDenied):
		return ExitApprovalDenied
	case errors.Is(err, ErrJobsFailed):
		return ExitJobsFailed
	case errors.Is(err, ErrPackageNotFound),
		errors.Is(err, ErrInvalidPackage),
		errors.Is(err, ErrInvalidJobFileName):
		return ExitPackageError
	case errors.Is(err, ErrStorageUnavailable),
		errors.Is(err, ErrTransfer):
		return ExitStorageError
	}

	errStr := err.Error()
	for _, pattern := range usageErrorPatterns {
		if strings.Contains(errStr, pattern) {
			return ExitUsageError
		}
	}

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitStorageError
	}

	return ExitGeneralError
}
