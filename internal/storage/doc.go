// Package storage provides the destination filesystems fsload places files on.
//
// Every backend implements fsload.StorageDriver:
//
//   - LocalDriver: the OS filesystem, with atomic writes (temp file + rename)
//   - MemoryDriver: an in-memory tree for tests and dry runs
//   - S3Driver: Amazon S3 and S3-compatible endpoints such as MinIO
//   - AzureDriver: Azure Blob Storage
//   - GCSDriver: Google Cloud Storage
//
// Open selects a backend from a bucket URL and returns it together with the
// filesystem root the dataset folders are created under.
//
// Object stores have no directories. MakeDirs writes a zero-byte marker
// object ending in "/" so IsDir reflects initialization the same way it does
// on a real filesystem; List never returns markers.
package storage
