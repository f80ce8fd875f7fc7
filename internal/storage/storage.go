package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/vvka-141/fsload/pkg/fsload"
)

// Supported bucket URL schemes.
const (
	ProtocolFile   = "file"
	ProtocolMemory = "memory"
	ProtocolS3     = "s3"
	ProtocolGCS    = "gs"
	ProtocolAzure  = "az"
)

// Credentials carries the per-backend settings. Only the fields of the
// selected backend are read; empty fields fall back to the SDK's default
// credential chain.
type Credentials struct {
	AWSRegion          string
	AWSProfile         string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSSessionToken    string
	AWSEndpointURL     string

	AzureAccountName  string
	AzureAccountKey   string
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string

	GCPCredentialsFile string
	GCPEndpoint        string
}

// Location is a parsed bucket URL.
type Location struct {
	Protocol string
	// Root is the driver path of the bucket URL: an absolute directory for
	// "file", "<bucket>/<prefix>" for object stores.
	Root string
}

// ParseBucketURL splits a bucket URL into protocol and driver root.
// A URL without scheme is a local path and is made absolute.
func ParseBucketURL(bucketURL string) (Location, error) {
	if bucketURL == "" {
		return Location{}, fmt.Errorf("bucket URL is empty: %w", fsload.ErrInvalidConfig)
	}

	if !strings.Contains(bucketURL, "://") {
		abs, err := filepath.Abs(bucketURL)
		if err != nil {
			return Location{}, fmt.Errorf("failed to resolve %q: %w", bucketURL, err)
		}
		return Location{Protocol: ProtocolFile, Root: filepath.ToSlash(abs)}, nil
	}

	u, err := url.Parse(bucketURL)
	if err != nil {
		return Location{}, fmt.Errorf("invalid bucket URL %q: %v: %w", bucketURL, err, fsload.ErrInvalidConfig)
	}

	switch u.Scheme {
	case ProtocolFile:
		if u.Host != "" && u.Host != "localhost" {
			return Location{}, fmt.Errorf("file URL %q must not name a host: %w", bucketURL, fsload.ErrInvalidConfig)
		}
		if u.Path == "" {
			return Location{}, fmt.Errorf("file URL %q has no path: %w", bucketURL, fsload.ErrInvalidConfig)
		}
		return Location{Protocol: ProtocolFile, Root: path.Clean(u.Path)}, nil
	case ProtocolMemory, ProtocolS3, ProtocolGCS, ProtocolAzure:
		if u.Host == "" {
			return Location{}, fmt.Errorf("bucket URL %q has no bucket name: %w", bucketURL, fsload.ErrInvalidConfig)
		}
		return Location{Protocol: u.Scheme, Root: strings.TrimSuffix(path.Join(u.Host, u.Path), "/")}, nil
	default:
		return Location{}, fmt.Errorf("%q in %q: %w", u.Scheme, bucketURL, fsload.ErrUnsupportedProtocol)
	}
}

// Open creates the driver for bucketURL and returns it with the
// filesystem root.
func Open(ctx context.Context, bucketURL string, creds Credentials) (fsload.StorageDriver, string, error) {
	loc, err := ParseBucketURL(bucketURL)
	if err != nil {
		return nil, "", err
	}

	var driver fsload.StorageDriver
	switch loc.Protocol {
	case ProtocolFile:
		driver = NewLocalDriver()
	case ProtocolMemory:
		driver = SharedMemoryDriver(strings.SplitN(loc.Root, "/", 2)[0])
	case ProtocolS3:
		driver, err = NewS3Driver(ctx, creds)
	case ProtocolAzure:
		driver, err = NewAzureDriver(creds)
	case ProtocolGCS:
		driver, err = NewGCSDriver(ctx, creds)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to create %s driver: %w", loc.Protocol, err)
	}
	return driver, loc.Root, nil
}

// RemoteURL joins a driver path with the driver's protocol.
func RemoteURL(driver fsload.StorageDriver, p string) string {
	return driver.Protocol() + "://" + p
}

// splitBucket splits an object store path into bucket and key.
func splitBucket(p string) (bucket, key string, err error) {
	p = strings.TrimPrefix(p, "/")
	bucket, key, _ = strings.Cut(p, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("path %q has no bucket", p)
	}
	return bucket, key, nil
}

// dirPrefix turns a key into a listing prefix ending in "/".
func dirPrefix(key string) string {
	key = strings.Trim(key, "/")
	if key == "" {
		return ""
	}
	return key + "/"
}
