package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Driver implements fsload.StorageDriver on Amazon S3. Paths are
// "<bucket>/<key>".
type S3Driver struct {
	client *s3.Client
}

// NewS3Driver builds an S3 client from the default AWS configuration chain,
// overridden by any explicit credentials. AWSEndpointURL switches to
// path-style addressing for S3-compatible servers.
func NewS3Driver(ctx context.Context, creds Credentials) (*S3Driver, error) {
	var opts []func(*config.LoadOptions) error
	if creds.AWSRegion != "" {
		opts = append(opts, config.WithRegion(creds.AWSRegion))
	}
	if creds.AWSProfile != "" {
		opts = append(opts, config.WithSharedConfigProfile(creds.AWSProfile))
	}
	if creds.AWSAccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AWSAccessKeyID, creds.AWSSecretAccessKey, creds.AWSSessionToken),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if creds.AWSEndpointURL != "" {
			o.BaseEndpoint = aws.String(creds.AWSEndpointURL)
			o.UsePathStyle = true
		}
	})
	return &S3Driver{client: client}, nil
}

// NewS3DriverFromClient wraps an existing client.
func NewS3DriverFromClient(client *s3.Client) *S3Driver {
	return &S3Driver{client: client}
}

func (d *S3Driver) Protocol() string { return ProtocolS3 }

func (d *S3Driver) Put(ctx context.Context, localPath, dest string) error {
	bucket, key, err := splitBucket(dest)
	if err != nil {
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	return err
}

func (d *S3Driver) Get(ctx context.Context, src, localPath string) error {
	bucket, key, err := splitBucket(src)
	if err != nil {
		return err
	}

	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return err
	}
	defer out.Body.Close()

	return writeLocalFile(localPath, out.Body)
}

func (d *S3Driver) List(ctx context.Context, root string) ([]string, error) {
	bucket, key, err := splitBucket(root)
	if err != nil {
		return nil, err
	}

	var files []string
	paginator := s3.NewListObjectsV2Paginator(d.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(dirPrefix(key)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3://%s/%s: %w", bucket, key, err)
		}
		for _, obj := range page.Contents {
			k := aws.ToString(obj.Key)
			if strings.HasSuffix(k, "/") {
				continue
			}
			files = append(files, bucket+"/"+k)
		}
	}
	return files, nil
}

func (d *S3Driver) Delete(ctx context.Context, p string) error {
	bucket, key, err := splitBucket(p)
	if err != nil {
		return err
	}
	_, err = d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	return err
}

func (d *S3Driver) MakeDirs(ctx context.Context, p string) error {
	bucket, key, err := splitBucket(p)
	if err != nil {
		return err
	}
	if dirPrefix(key) == "" {
		return nil
	}
	_, err = d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(dirPrefix(key)),
		Body:   bytes.NewReader(nil),
	})
	return err
}

func (d *S3Driver) IsDir(ctx context.Context, p string) (bool, error) {
	bucket, key, err := splitBucket(p)
	if err != nil {
		return false, err
	}
	out, err := d.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(dirPrefix(key)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, err
	}
	return len(out.Contents) > 0, nil
}

// Touch rewrites the object as empty; S3 cannot update modification
// times in place.
func (d *S3Driver) Touch(ctx context.Context, p string) error {
	bucket, key, err := splitBucket(p)
	if err != nil {
		return err
	}
	_, err = d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(nil),
	})
	return err
}

func (d *S3Driver) Exists(ctx context.Context, p string) (bool, error) {
	bucket, key, err := splitBucket(p)
	if err != nil {
		return false, err
	}
	_, err = d.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// writeLocalFile streams r into localPath, creating parent directories.
func writeLocalFile(localPath string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(localPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
