package destination

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/vvka-141/fsload/internal/jobname"
	"github.com/vvka-141/fsload/pkg/fsload"
)

// Job transfers one staged file to its destination path. A Job is owned by
// the goroutine that runs it; state accessors are safe to call from others.
type Job struct {
	localPath  string
	name       jobname.Name
	fsPath     string
	remotePath string

	driver     fsload.StorageDriver
	classifier fsload.ErrorClassifier
	staging    bool

	once  sync.Once
	mu    sync.RWMutex
	state fsload.JobState
	err   error
}

// FileName returns the job's staged file name, its identity.
func (j *Job) FileName() string {
	return filepath.Base(j.localPath)
}

// Name returns the parsed file name.
func (j *Job) Name() jobname.Name {
	return j.name
}

// LocalPath returns the path of the staged file.
func (j *Job) LocalPath() string {
	return j.localPath
}

// RemotePath returns protocol://<dataset_root>/<rendered layout>.
func (j *Job) RemotePath() string {
	return j.remotePath
}

// State returns the current lifecycle state.
func (j *Job) State() fsload.JobState {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state
}

// Err returns the transfer error of a failed or retryable job.
func (j *Job) Err() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.err
}

func (j *Job) finish(state fsload.JobState, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = state
	j.err = err
}

// Run performs the single transfer of the job. Failures never panic or
// retry: they leave the job in the retry state when the classifier deems
// the error transient and in the failed state otherwise. Calling Run again
// has no effect and returns the recorded error.
func (j *Job) Run(ctx context.Context) error {
	j.once.Do(func() {
		if j.State() != fsload.JobRunning {
			return
		}

		err := j.driver.Put(ctx, j.localPath, j.fsPath)
		if err == nil {
			j.finish(fsload.JobCompleted, nil)
			return
		}

		transferErr := &fsload.TransferError{Op: "put", Path: j.remotePath, Err: err}
		if j.classifier.IsTransient(err) && !errors.Is(ctx.Err(), context.Canceled) {
			j.finish(fsload.JobRetry, transferErr)
		} else {
			j.finish(fsload.JobFailed, transferErr)
		}
	})
	return j.Err()
}

// Followups returns the reference job a completed staging job hands to the
// downstream loader. It is empty for non-staging jobs and unfinished jobs.
func (j *Job) Followups() []fsload.FollowupJob {
	if !j.staging || j.State() != fsload.JobCompleted {
		return nil
	}
	return []fsload.FollowupJob{{
		FileName:   j.FileName(),
		Status:     fsload.JobRunning,
		RemotePath: j.remotePath,
	}}
}
