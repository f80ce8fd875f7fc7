// Package retry provides retry logic with exponential backoff for transient
// storage and database failures.
//
// A load job never retries by itself: its transfer runs once and ends in
// the retry state when the error is transient. The load service then asks
// an Executor to run a fresh job for the same file until it completes, a
// fatal error occurs, or the attempts are exhausted.
//
// # Example Usage
//
//	classifier := retry.NewStorageErrorClassifier()
//	strategy := retry.TransferBackoff(3, 100*time.Millisecond, 30*time.Second)
//	executor := retry.NewExecutor(classifier, strategy)
//
//	err := executor.Execute(ctx, func(ctx context.Context, attempt int) error {
//	    return upload(ctx)
//	})
//
// # Error Classification
//
// StorageErrorClassifier treats network failures, throttling and 5xx
// responses of S3, Azure Blob Storage and Google Cloud Storage as transient.
// PostgreSQLErrorClassifier does the same for the load journal's connection.
//
// # Thread Safety
//
// Executor instances are safe for concurrent use. Use WithOnRetry() to create
// independent configurations per goroutine.
package retry
