package retry

import (
	"context"
	"errors"
	"io/fs"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"google.golang.org/api/googleapi"
)

// httpStatusError is implemented by AWS SDK response errors.
type httpStatusError interface {
	HTTPStatusCode() int
}

var storageTransientPatterns = []string{
	"connection reset",
	"connection refused",
	"broken pipe",
	"unexpected eof",
	"i/o timeout",
	"tls handshake timeout",
	"slowdown",
	"slow down",
	"throttl",
	"requesttimeout",
	"serverbusy",
	"service unavailable",
	"internal error",
}

// StorageErrorClassifier implements ErrorClassifier for storage drivers.
type StorageErrorClassifier struct{}

// NewStorageErrorClassifier creates a new storage error classifier.
func NewStorageErrorClassifier() *StorageErrorClassifier {
	return &StorageErrorClassifier{}
}

// IsTransient reports whether a transfer failing with err may succeed later.
// Missing local files, permission errors and cancellation are fatal.
func (c *StorageErrorClassifier) IsTransient(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, fs.ErrPermission):
		return false
	case errors.Is(err, context.DeadlineExceeded):
		return true
	}

	if status, ok := statusCode(err); ok {
		return isTransientStatus(status)
	}

	return isNetworkError(err) || containsAny(err, storageTransientPatterns)
}

// statusCode extracts the HTTP status of an S3, Azure or GCS error.
func statusCode(err error) (int, bool) {
	var azErr *azcore.ResponseError
	if errors.As(err, &azErr) {
		return azErr.StatusCode, true
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code, true
	}

	var awsErr httpStatusError
	if errors.As(err, &awsErr) {
		return awsErr.HTTPStatusCode(), true
	}

	return 0, false
}

func isTransientStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return status >= 500
}
