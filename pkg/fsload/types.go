package fsload

import (
	"errors"
	"fmt"
	"time"
)

// JobState is the lifecycle state of a load job.
type JobState string

const (
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
	JobRetry     JobState = "retry"
)

// IsTerminal reports whether no further transitions happen in this process.
func (s JobState) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// FollowupJob is the reference job a completed staging job hands to the
// downstream loader.
type FollowupJob struct {
	FileName   string
	Status     JobState
	RemotePath string
}

// WriteDisposition controls how a table receives new data.
type WriteDisposition string

const (
	WriteAppend  WriteDisposition = "append"
	WriteReplace WriteDisposition = "replace"
	WriteMerge   WriteDisposition = "merge"
)

// IsValid returns true if the WriteDisposition is a defined value.
func (w WriteDisposition) IsValid() bool {
	switch w {
	case WriteAppend, WriteReplace, WriteMerge:
		return true
	}
	return false
}

// DestinationConfig identifies where and how files are placed.
type DestinationConfig struct {
	// BucketURL is the filesystem root, e.g. "s3://bucket/lake" or "/data/lake".
	BucketURL string

	// DatasetName is the folder below the bucket root holding the dataset.
	DatasetName string

	// Layout is the placement template, see DefaultLayout.
	Layout string

	// AsStaging makes completed jobs emit reference jobs for a downstream loader.
	AsStaging bool

	// VerifyRestore checks that restored jobs' files exist in storage.
	VerifyRestore bool
}

// Validate checks if the DestinationConfig has all required fields.
// It returns a multi-error if multiple validation failures occur.
// The layout itself is parsed by the layout package.
func (c *DestinationConfig) Validate() error {
	var errs []error

	if c.BucketURL == "" {
		errs = append(errs, fmt.Errorf("BucketURL is required: %w", ErrInvalidConfig))
	}

	if c.DatasetName == "" {
		errs = append(errs, fmt.Errorf("DatasetName is required: %w", ErrInvalidConfig))
	}

	if c.Layout == "" {
		c.Layout = DefaultLayout
	}

	return errors.Join(errs...)
}

// LoadConfig contains all parameters needed to load one package.
type LoadConfig struct {
	Destination DestinationConfig

	// PackagePath is the load package directory; its base name is the load id.
	PackagePath string

	// TruncateTables are truncated in addition to tables with replace disposition.
	TruncateTables []string

	// Workers bounds concurrent transfers.
	Workers int

	// MaxRetries bounds in-process retries of transient transfer failures.
	MaxRetries int

	// DeleteConcurrency bounds parallel deletes during truncation.
	DeleteConcurrency int

	// DeleteRate limits deletes per second during truncation; 0 is unlimited.
	DeleteRate float64

	// Timeout is the global timeout for the whole load
	Timeout time.Duration

	// Verbose enables detailed logging
	Verbose bool
}

// Validate checks the LoadConfig and applies defaults.
func (c *LoadConfig) Validate() error {
	var errs []error

	if err := c.Destination.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.PackagePath == "" {
		errs = append(errs, fmt.Errorf("PackagePath is required: %w", ErrInvalidConfig))
	}

	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers cannot be negative: %w", ErrInvalidConfig))
	} else if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}

	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max retries cannot be negative: %w", ErrInvalidConfig))
	}

	if c.DeleteConcurrency < 0 {
		errs = append(errs, fmt.Errorf("delete concurrency cannot be negative: %w", ErrInvalidConfig))
	} else if c.DeleteConcurrency == 0 {
		c.DeleteConcurrency = DefaultDeleteConcurrency
	}

	if c.DeleteRate < 0 {
		errs = append(errs, fmt.Errorf("delete rate cannot be negative: %w", ErrInvalidConfig))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// LoadSummary reports the outcome of one load package.
type LoadSummary struct {
	LoadID      string
	SchemaName  string
	DatasetRoot string

	Completed int
	Restored  int
	Failed    int
	Requeued  int

	// TruncatedTables lists tables whose files were deleted before loading.
	TruncatedTables []string

	// DeleteErrors are per-file deletion failures absorbed during truncation.
	DeleteErrors []error

	// Followups are the reference jobs written in staging mode.
	Followups []FollowupJob

	// AlreadyLoaded is set when the journal shows the package was completed before.
	AlreadyLoaded bool

	Duration time.Duration
}
