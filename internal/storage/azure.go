package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureDriver implements fsload.StorageDriver on Azure Blob Storage.
// Paths are "<container>/<blob>".
type AzureDriver struct {
	client *azblob.Client
}

// NewAzureDriver authenticates against the account's blob endpoint.
// An account key selects shared key authentication; a tenant, client and
// secret select a service principal; otherwise DefaultAzureCredential is
// used (environment, managed identity, Azure CLI).
func NewAzureDriver(creds Credentials) (*AzureDriver, error) {
	if creds.AzureAccountName == "" {
		return nil, fmt.Errorf("azure account name is required")
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", creds.AzureAccountName)

	if creds.AzureAccountKey != "" {
		cred, err := azblob.NewSharedKeyCredential(creds.AzureAccountName, creds.AzureAccountKey)
		if err != nil {
			return nil, fmt.Errorf("invalid azure account key: %w", err)
		}
		client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
		if err != nil {
			return nil, err
		}
		return &AzureDriver{client: client}, nil
	}

	cred, err := azureTokenCredential(creds)
	if err != nil {
		return nil, err
	}
	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, err
	}
	return &AzureDriver{client: client}, nil
}

func azureTokenCredential(creds Credentials) (azcore.TokenCredential, error) {
	if creds.AzureTenantID != "" && creds.AzureClientID != "" && creds.AzureClientSecret != "" {
		cred, err := azidentity.NewClientSecretCredential(creds.AzureTenantID, creds.AzureClientID, creds.AzureClientSecret, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure service principal credential: %w", err)
		}
		return cred, nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure default credential: %w", err)
	}
	return cred, nil
}

func (d *AzureDriver) Protocol() string { return ProtocolAzure }

func (d *AzureDriver) Put(ctx context.Context, localPath, dest string) error {
	container, blob, err := splitBucket(dest)
	if err != nil {
		return err
	}
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = d.client.UploadFile(ctx, container, blob, f, nil)
	return err
}

func (d *AzureDriver) Get(ctx context.Context, src, localPath string) error {
	container, blob, err := splitBucket(src)
	if err != nil {
		return err
	}
	resp, err := d.client.DownloadStream(ctx, container, blob, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return writeLocalFile(localPath, resp.Body)
}

func (d *AzureDriver) List(ctx context.Context, root string) ([]string, error) {
	container, key, err := splitBucket(root)
	if err != nil {
		return nil, err
	}

	prefix := dirPrefix(key)
	pager := d.client.NewListBlobsFlatPager(container, &azblob.ListBlobsFlatOptions{Prefix: &prefix})

	var files []string
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			if bloberror.HasCode(err, bloberror.ContainerNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to list az://%s/%s: %w", container, key, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil || strings.HasSuffix(*item.Name, "/") {
				continue
			}
			files = append(files, container+"/"+*item.Name)
		}
	}
	return files, nil
}

func (d *AzureDriver) Delete(ctx context.Context, p string) error {
	container, blob, err := splitBucket(p)
	if err != nil {
		return err
	}
	_, err = d.client.DeleteBlob(ctx, container, blob, nil)
	return err
}

func (d *AzureDriver) MakeDirs(ctx context.Context, p string) error {
	container, key, err := splitBucket(p)
	if err != nil {
		return err
	}
	if dirPrefix(key) == "" {
		return nil
	}
	_, err = d.client.UploadBuffer(ctx, container, dirPrefix(key), []byte{}, nil)
	return err
}

func (d *AzureDriver) IsDir(ctx context.Context, p string) (bool, error) {
	container, key, err := splitBucket(p)
	if err != nil {
		return false, err
	}
	prefix := dirPrefix(key)
	pager := d.client.NewListBlobsFlatPager(container, &azblob.ListBlobsFlatOptions{
		Prefix:     &prefix,
		MaxResults: int32Ptr(1),
	})
	if !pager.More() {
		return false, nil
	}
	page, err := pager.NextPage(ctx)
	if bloberror.HasCode(err, bloberror.ContainerNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(page.Segment.BlobItems) > 0, nil
}

func (d *AzureDriver) Touch(ctx context.Context, p string) error {
	container, blob, err := splitBucket(p)
	if err != nil {
		return err
	}
	_, err = d.client.UploadBuffer(ctx, container, blob, []byte{}, nil)
	return err
}

func (d *AzureDriver) Exists(ctx context.Context, p string) (bool, error) {
	container, blob, err := splitBucket(p)
	if err != nil {
		return false, err
	}
	_, err = d.client.ServiceClient().NewContainerClient(container).NewBlobClient(blob).GetProperties(ctx, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func int32Ptr(v int32) *int32 { return &v }
