package destination

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/vvka-141/fsload/internal/jobname"
	"github.com/vvka-141/fsload/internal/layout"
	"github.com/vvka-141/fsload/internal/retry"
	"github.com/vvka-141/fsload/internal/storage"
	"github.com/vvka-141/fsload/pkg/fsload"
)

// ClientConfig configures a Client for one dataset and schema.
type ClientConfig struct {
	DatasetName string
	SchemaName  string

	// Layout is the placement template; empty means fsload.DefaultLayout.
	Layout string

	// Tables are all tables of the schema. InitializeStorage creates a
	// folder for each of them.
	Tables []string

	AsStaging     bool
	VerifyRestore bool

	// DeleteConcurrency bounds parallel deletes during truncation.
	DeleteConcurrency int

	// DeleteRate limits deletes per second; 0 is unlimited.
	DeleteRate float64

	// Classifier decides between the retry and failed states of a job.
	// Defaults to retry.StorageErrorClassifier.
	Classifier fsload.ErrorClassifier
}

var errFileMissing = errors.New("file missing from storage")

// Client places job files of one schema into one dataset.
type Client struct {
	driver      fsload.StorageDriver
	layout      *layout.Template
	datasetPath string
	cfg         ClientConfig
	logger      fsload.Logger
}

// NewClient creates a Client for the dataset below fsRoot. The layout is
// parsed here so malformed layouts fail before any job is created.
// Panics if driver or logger is nil.
func NewClient(driver fsload.StorageDriver, fsRoot string, cfg ClientConfig, logger fsload.Logger) (*Client, error) {
	if driver == nil {
		panic("driver cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	if cfg.DatasetName == "" {
		return nil, fmt.Errorf("dataset name is required: %w", fsload.ErrInvalidConfig)
	}
	if cfg.SchemaName == "" {
		return nil, fmt.Errorf("schema name is required: %w", fsload.ErrInvalidConfig)
	}
	if cfg.Layout == "" {
		cfg.Layout = fsload.DefaultLayout
	}
	if cfg.DeleteConcurrency <= 0 {
		cfg.DeleteConcurrency = fsload.DefaultDeleteConcurrency
	}
	if cfg.Classifier == nil {
		cfg.Classifier = retry.NewStorageErrorClassifier()
	}

	tpl, err := layout.Parse(cfg.Layout)
	if err != nil {
		return nil, err
	}

	return &Client{
		driver:      driver,
		layout:      tpl,
		datasetPath: path.Join(fsRoot, cfg.DatasetName),
		cfg:         cfg,
		logger:      logger,
	}, nil
}

// DatasetPath returns the driver path of the dataset root.
func (c *Client) DatasetPath() string {
	return c.datasetPath
}

// Layout returns the parsed placement template.
func (c *Client) Layout() *layout.Template {
	return c.layout
}

// Driver returns the storage driver.
func (c *Client) Driver() fsload.StorageDriver {
	return c.driver
}

// destination renders the driver path of a job file.
func (c *Client) destination(name jobname.Name, loadID string) (string, error) {
	rendered, err := c.layout.Render(layout.Values{
		SchemaName: c.cfg.SchemaName,
		TableName:  name.TableName,
		LoadID:     loadID,
		FileID:     name.FileID,
		Ext:        name.FileFormat,
	})
	if err != nil {
		return "", err
	}

	fsPath := path.Join(c.datasetPath, rendered)
	if !strings.HasPrefix(fsPath, c.datasetPath+"/") {
		return "", &layout.Error{
			Layout:  c.layout.String(),
			Message: fmt.Sprintf("rendered path %q escapes the dataset", rendered),
		}
	}
	return fsPath, nil
}

func (c *Client) newJob(localPath, loadID string, state fsload.JobState) (*Job, error) {
	name, err := jobname.Parse(localPath)
	if err != nil {
		return nil, err
	}
	if loadID == "" {
		return nil, fmt.Errorf("load id is required: %w", fsload.ErrInvalidConfig)
	}

	fsPath, err := c.destination(name, loadID)
	if err != nil {
		return nil, err
	}

	return &Job{
		localPath:  localPath,
		name:       name,
		fsPath:     fsPath,
		remotePath: storage.RemoteURL(c.driver, fsPath),
		driver:     c.driver,
		classifier: c.cfg.Classifier,
		staging:    c.cfg.AsStaging,
		state:      state,
	}, nil
}

// NewFileLoad creates a running job for a staged file without starting
// the transfer. The destination path is fixed at this point.
func (c *Client) NewFileLoad(localPath, loadID string) (*Job, error) {
	return c.newJob(localPath, loadID, fsload.JobRunning)
}

// StartFileLoad creates a job and performs its single transfer. The
// returned error only reports an unusable file name or layout; transfer
// failures are recorded in the job's state.
func (c *Client) StartFileLoad(ctx context.Context, localPath, loadID string) (*Job, error) {
	job, err := c.NewFileLoad(localPath, loadID)
	if err != nil {
		return nil, err
	}

	if runErr := job.Run(ctx); runErr != nil {
		c.logger.Verbose("Transfer of %s ended in state %s: %v", job.FileName(), job.State(), runErr)
	} else {
		c.logger.Verbose("Copied %s to %s", job.FileName(), job.RemotePath())
	}
	return job, nil
}

// RestoreFileLoad re-attaches to a job started by an earlier process. No
// transfer happens and the job is completed. With VerifyRestore, a file
// missing from storage puts the job into the retry state instead.
func (c *Client) RestoreFileLoad(ctx context.Context, localPath, loadID string) (*Job, error) {
	job, err := c.newJob(localPath, loadID, fsload.JobCompleted)
	if err != nil {
		return nil, err
	}
	if !c.cfg.VerifyRestore {
		return job, nil
	}

	exists, err := c.driver.Exists(ctx, job.fsPath)
	switch {
	case err != nil:
		job.finish(fsload.JobRetry, &fsload.TransferError{Op: "restore", Path: job.remotePath, Err: err})
	case !exists:
		job.finish(fsload.JobRetry, &fsload.TransferError{Op: "restore", Path: job.remotePath, Err: errFileMissing})
	}
	return job, nil
}

// IsStorageInitialized reports whether the dataset root exists.
func (c *Client) IsStorageInitialized(ctx context.Context) (bool, error) {
	ok, err := c.driver.IsDir(ctx, c.datasetPath)
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", c.datasetPath, err)
	}
	return ok, nil
}

// markerPath returns <dataset_root>/<schema>._loads.<load_id>.
func (c *Client) markerPath(loadID string) string {
	return c.datasetPath + "/" + c.cfg.SchemaName + "." + fsload.LoadsTableName + "." + loadID
}

// CompleteLoad writes the completion marker of a load. It is idempotent.
func (c *Client) CompleteLoad(ctx context.Context, loadID string) error {
	if loadID == "" {
		return fmt.Errorf("load id is required: %w", fsload.ErrInvalidConfig)
	}
	marker := c.markerPath(loadID)
	if err := c.driver.Touch(ctx, marker); err != nil {
		return &fsload.TransferError{Op: "touch", Path: storage.RemoteURL(c.driver, marker), Err: err}
	}
	c.logger.Verbose("Wrote completion marker %s", storage.RemoteURL(c.driver, marker))
	return nil
}

// IsLoadCompleted reports whether the completion marker of loadID exists.
func (c *Client) IsLoadCompleted(ctx context.Context, loadID string) (bool, error) {
	return c.driver.Exists(ctx, c.markerPath(loadID))
}
