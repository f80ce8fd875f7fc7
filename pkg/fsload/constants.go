package fsload

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess        = 0  // Load completed successfully
	ExitGeneralError   = 1  // Unknown or unclassified error
	ExitUsageError     = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic          = 3  // Internal panic (unexpected crash)
	ExitConfigError    = 10 // Invalid configuration, layout or bucket URL
	ExitStorageError   = 11 // Destination storage unreachable
	ExitApprovalDenied = 12 // User denied truncation approval
	ExitJobsFailed     = 13 // One or more load jobs failed
	ExitPackageError   = 14 // Load package missing or malformed
)

const (
	// DefaultLayout places each table in its own folder under the dataset.
	DefaultLayout = "{table_name}/{load_id}.{file_id}.{ext}"

	// LoadsTableName is the name segment of completion markers:
	// <dataset>/<schema>._loads.<load_id>.
	LoadsTableName = "_loads"

	// DefaultWorkers is the default number of jobs transferred concurrently.
	DefaultWorkers = 20

	// DefaultDeleteConcurrency bounds parallel deletes during truncation.
	DefaultDeleteConcurrency = 8

	// DefaultForceApprovalCountdown is the countdown duration before force approval proceeds.
	DefaultForceApprovalCountdown = 5 * time.Second

	// DefaultRetryInitialDelay is the default initial delay before the first retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retry attempts.
	DefaultRetryMaxDelay = 30 * time.Second

	// DefaultRetryMaxAttempts is the default maximum number of retry attempts.
	DefaultRetryMaxAttempts = 3

	// DefaultTimeout bounds a whole load command.
	DefaultTimeout = 30 * time.Minute

	// ReferenceFormat is the file format of follow-up reference jobs.
	ReferenceFormat = "reference"
)
