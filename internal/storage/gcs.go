package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSDriver implements fsload.StorageDriver on Google Cloud Storage.
// Paths are "<bucket>/<object>".
type GCSDriver struct {
	client *gcs.Client
}

// NewGCSDriver uses Application Default Credentials unless a credentials
// file is given. GCPEndpoint targets an emulator without authentication.
func NewGCSDriver(ctx context.Context, creds Credentials) (*GCSDriver, error) {
	var opts []option.ClientOption
	if creds.GCPCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(creds.GCPCredentialsFile))
	}
	if creds.GCPEndpoint != "" {
		opts = append(opts, option.WithEndpoint(creds.GCPEndpoint), option.WithoutAuthentication())
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSDriver{client: client}, nil
}

func (d *GCSDriver) Protocol() string { return ProtocolGCS }

func (d *GCSDriver) object(p string) (*gcs.ObjectHandle, error) {
	bucket, key, err := splitBucket(p)
	if err != nil {
		return nil, err
	}
	return d.client.Bucket(bucket).Object(key), nil
}

func (d *GCSDriver) Put(ctx context.Context, localPath, dest string) error {
	obj, err := d.object(dest)
	if err != nil {
		return err
	}
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := obj.NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (d *GCSDriver) Get(ctx context.Context, src, localPath string) error {
	obj, err := d.object(src)
	if err != nil {
		return err
	}
	r, err := obj.NewReader(ctx)
	if err != nil {
		return err
	}
	defer r.Close()

	return writeLocalFile(localPath, r)
}

func (d *GCSDriver) List(ctx context.Context, root string) ([]string, error) {
	bucket, key, err := splitBucket(root)
	if err != nil {
		return nil, err
	}

	var files []string
	it := d.client.Bucket(bucket).Objects(ctx, &gcs.Query{Prefix: dirPrefix(key)})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list gs://%s/%s: %w", bucket, key, err)
		}
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		files = append(files, bucket+"/"+attrs.Name)
	}
	return files, nil
}

func (d *GCSDriver) Delete(ctx context.Context, p string) error {
	obj, err := d.object(p)
	if err != nil {
		return err
	}
	return obj.Delete(ctx)
}

func (d *GCSDriver) MakeDirs(ctx context.Context, p string) error {
	bucket, key, err := splitBucket(p)
	if err != nil {
		return err
	}
	if dirPrefix(key) == "" {
		return nil
	}
	w := d.client.Bucket(bucket).Object(dirPrefix(key)).NewWriter(ctx)
	return w.Close()
}

func (d *GCSDriver) IsDir(ctx context.Context, p string) (bool, error) {
	bucket, key, err := splitBucket(p)
	if err != nil {
		return false, err
	}
	it := d.client.Bucket(bucket).Objects(ctx, &gcs.Query{Prefix: dirPrefix(key)})
	_, err = it.Next()
	if errors.Is(err, iterator.Done) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *GCSDriver) Touch(ctx context.Context, p string) error {
	obj, err := d.object(p)
	if err != nil {
		return err
	}
	return obj.NewWriter(ctx).Close()
}

func (d *GCSDriver) Exists(ctx context.Context, p string) (bool, error) {
	obj, err := d.object(p)
	if err != nil {
		return false, err
	}
	_, err = obj.Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
