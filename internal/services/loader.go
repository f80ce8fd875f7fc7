package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vvka-141/fsload/internal/destination"
	"github.com/vvka-141/fsload/internal/journal"
	"github.com/vvka-141/fsload/internal/loadpackage"
	"github.com/vvka-141/fsload/internal/retry"
	"github.com/vvka-141/fsload/internal/storage"
	"github.com/vvka-141/fsload/pkg/fsload"
)

// DriverOpener resolves a bucket URL to a driver and its filesystem root.
type DriverOpener func(ctx context.Context, bucketURL string) (fsload.StorageDriver, string, error)

// Journal records completed loads. *journal.Journal implements it.
type Journal interface {
	IsRecorded(ctx context.Context, loadID, schema, dataset string) (bool, error)
	Record(ctx context.Context, r journal.Record) error
}

// Option configures a LoadService.
type Option func(*LoadService)

// WithJournal records completed loads and skips recorded ones.
func WithJournal(j Journal) Option {
	return func(s *LoadService) {
		s.journal = j
	}
}

// WithRetryDelays overrides the backoff between transfer retries.
func WithRetryDelays(initial, max time.Duration) Option {
	return func(s *LoadService) {
		s.retryInitialDelay = initial
		s.retryMaxDelay = max
	}
}

// LoadService loads packages into filesystem destinations.
// Thread-Safety: NOT safe for concurrent Load() calls on the same package.
type LoadService struct {
	openDriver DriverOpener
	approver   fsload.Approver
	logger     fsload.Logger
	journal    Journal

	retryInitialDelay time.Duration
	retryMaxDelay     time.Duration
}

// NewLoadService creates a LoadService. Panics on nil dependencies.
func NewLoadService(openDriver DriverOpener, approver fsload.Approver, logger fsload.Logger, opts ...Option) *LoadService {
	if openDriver == nil {
		panic("openDriver cannot be nil")
	}
	if approver == nil {
		panic("approver cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	s := &LoadService{
		openDriver:        openDriver,
		approver:          approver,
		logger:            logger,
		retryInitialDelay: fsload.DefaultRetryInitialDelay,
		retryMaxDelay:     fsload.DefaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var errJobRetry = errors.New("job left in retry state")

// retryStateClassifier retries attempts whose job ended in the retry
// state. The job has already classified the underlying storage error.
type retryStateClassifier struct{}

func (retryStateClassifier) IsTransient(err error) bool {
	return errors.Is(err, errJobRetry)
}

// jobTask is a job file to transfer. Fresh tasks still sit in new_jobs.
type jobTask struct {
	path  string
	fresh bool
}

// jobResult is the outcome of one job file. A skipped job never left
// new_jobs.
type jobResult struct {
	path     string
	job      *destination.Job
	restored bool
	skipped  bool
	err      error
}

// Load transfers every job of the package at cfg.PackagePath. The summary
// is returned even when jobs failed; the error then wraps
// fsload.ErrJobsFailed.
func (s *LoadService) Load(ctx context.Context, cfg fsload.LoadConfig) (*fsload.LoadSummary, error) {
	start := time.Now()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	pkg, err := loadpackage.Open(cfg.PackagePath)
	if err != nil {
		return nil, err
	}
	schema := pkg.Schema()
	loadID := pkg.LoadID()

	client, err := s.newClient(ctx, cfg, schema)
	if err != nil {
		return nil, err
	}

	summary := &fsload.LoadSummary{
		LoadID:      loadID,
		SchemaName:  schema.Name,
		DatasetRoot: storage.RemoteURL(client.Driver(), client.DatasetPath()),
	}
	defer func() { summary.Duration = time.Since(start) }()

	s.logger.Verbose("Loading package %s (schema %s) into %s", loadID, schema.Name, summary.DatasetRoot)

	done, err := s.alreadyLoaded(ctx, client, cfg.Destination.DatasetName, schema.Name, loadID)
	if err != nil {
		return nil, err
	}
	if done {
		summary.AlreadyLoaded = true
		s.logger.Info("Load %s is already complete in %s", loadID, summary.DatasetRoot)
		return summary, nil
	}

	if err := s.initialize(ctx, client, pkg, cfg, summary); err != nil {
		return summary, err
	}

	retried, err := s.restoreStarted(ctx, client, pkg, summary)
	if err != nil {
		return summary, err
	}

	fresh, err := pkg.Jobs(loadpackage.NewJobs)
	if err != nil {
		return summary, err
	}

	tasks := make([]jobTask, 0, len(retried)+len(fresh))
	for _, p := range retried {
		tasks = append(tasks, jobTask{path: p})
	}
	for _, p := range fresh {
		tasks = append(tasks, jobTask{path: p, fresh: true})
	}

	results := s.runAll(ctx, client, pkg, tasks, cfg)
	if err := s.settle(ctx, pkg, results, summary); err != nil {
		return summary, err
	}

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("load %s interrupted: %w", loadID, err)
	}
	if summary.Failed > 0 || summary.Requeued > 0 {
		return summary, fmt.Errorf("load %s: %d failed, %d re-queued: %w",
			loadID, summary.Failed, summary.Requeued, fsload.ErrJobsFailed)
	}

	if err := client.CompleteLoad(ctx, loadID); err != nil {
		return summary, err
	}
	if s.journal != nil {
		err := s.journal.Record(ctx, journal.Record{
			LoadID:      loadID,
			SchemaName:  schema.Name,
			DatasetName: cfg.Destination.DatasetName,
			Status:      journal.StatusCompleted,
			RemoteRoot:  summary.DatasetRoot,
		})
		if err != nil {
			return summary, err
		}
	}

	s.logger.Info("✓ Load %s completed: %d copied, %d restored", loadID, summary.Completed, summary.Restored)
	return summary, nil
}

func (s *LoadService) newClient(ctx context.Context, cfg fsload.LoadConfig, schema loadpackage.Schema) (*destination.Client, error) {
	driver, root, err := s.openDriver(ctx, cfg.Destination.BucketURL)
	if err != nil {
		return nil, err
	}
	return destination.NewClient(driver, root, destination.ClientConfig{
		DatasetName:       cfg.Destination.DatasetName,
		SchemaName:        schema.Name,
		Layout:            cfg.Destination.Layout,
		Tables:            schema.TableNames(),
		AsStaging:         cfg.Destination.AsStaging,
		VerifyRestore:     cfg.Destination.VerifyRestore,
		DeleteConcurrency: cfg.DeleteConcurrency,
		DeleteRate:        cfg.DeleteRate,
	}, s.logger)
}

func (s *LoadService) alreadyLoaded(ctx context.Context, client *destination.Client, dataset, schema, loadID string) (bool, error) {
	if s.journal != nil {
		recorded, err := s.journal.IsRecorded(ctx, loadID, schema, dataset)
		if err != nil {
			return false, err
		}
		if recorded {
			return true, nil
		}
	}

	completed, err := client.IsLoadCompleted(ctx, loadID)
	if err != nil {
		return false, fmt.Errorf("failed to check completion marker: %w", err)
	}
	return completed, nil
}

// initialize truncates tables and creates table folders. A package with
// started jobs was initialized by an earlier process, so nothing is
// truncated again: that would delete files its restored jobs point to.
func (s *LoadService) initialize(ctx context.Context, client *destination.Client, pkg *loadpackage.Package, cfg fsload.LoadConfig, summary *fsload.LoadSummary) error {
	started, err := pkg.Jobs(loadpackage.StartedJobs)
	if err != nil {
		return err
	}

	var truncate []string
	if len(started) == 0 {
		truncate, err = s.tablesToTruncate(pkg)
		if err != nil {
			return err
		}
		if len(cfg.TruncateTables) > 0 {
			if err := s.approve(ctx, cfg.Destination.DatasetName, cfg.TruncateTables); err != nil {
				return err
			}
			truncate = append(truncate, cfg.TruncateTables...)
		}
	} else {
		s.logger.Verbose("Package has %d started job(s), skipping truncation", len(started))
	}

	report, err := client.InitializeStorage(ctx, truncate)
	if err != nil {
		return err
	}
	summary.TruncatedTables = report.TruncatedTables
	summary.DeleteErrors = report.DeleteErrors
	return nil
}

// tablesToTruncate returns tables with the replace disposition that have
// jobs in the package.
func (s *LoadService) tablesToTruncate(pkg *loadpackage.Package) ([]string, error) {
	tables, err := pkg.TablesWithJobs()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, table := range tables {
		if pkg.Schema().Disposition(table) == fsload.WriteReplace {
			out = append(out, table)
		}
	}
	return out, nil
}

func (s *LoadService) approve(ctx context.Context, dataset string, tables []string) error {
	approved, err := s.approver.RequestApproval(ctx, dataset, tables)
	if err != nil {
		return fmt.Errorf("approval request failed: %w", err)
	}
	if !approved {
		return fsload.ErrApprovalDenied
	}
	return nil
}

// restoreStarted re-attaches to jobs of an earlier process. Restored jobs
// that ended in the retry state are returned for another transfer.
func (s *LoadService) restoreStarted(ctx context.Context, client *destination.Client, pkg *loadpackage.Package, summary *fsload.LoadSummary) ([]string, error) {
	started, err := pkg.Jobs(loadpackage.StartedJobs)
	if err != nil {
		return nil, err
	}

	var pending []string
	for _, p := range started {
		job, err := client.RestoreFileLoad(ctx, p, pkg.LoadID())
		if err != nil {
			return nil, err
		}
		if job.State() == fsload.JobRetry {
			s.logger.Warn("Restored job %s must be copied again: %v", job.FileName(), job.Err())
			pending = append(pending, p)
			continue
		}
		if err := s.settleOne(pkg, jobResult{path: p, job: job, restored: true}, summary); err != nil {
			return nil, err
		}
	}
	if len(started) > 0 {
		s.logger.Verbose("Restored %d started job(s)", len(started)-len(pending))
	}
	return pending, nil
}

// runAll transfers jobs with at most cfg.Workers in flight. A fresh job
// moves to started_jobs only once its worker is about to transfer it, so
// started_jobs never holds a file whose transfer has not begun.
func (s *LoadService) runAll(ctx context.Context, client *destination.Client, pkg *loadpackage.Package, tasks []jobTask, cfg fsload.LoadConfig) []jobResult {
	results := make([]jobResult, len(tasks))
	executor := s.newExecutor(cfg.MaxRetries)
	loadID := pkg.LoadID()

	var g errgroup.Group
	g.SetLimit(cfg.Workers)
	for i, task := range tasks {
		g.Go(func() error {
			p := task.path
			if task.fresh {
				if ctx.Err() != nil {
					results[i] = jobResult{path: p, skipped: true}
					return nil
				}
				moved, err := pkg.Move(p, loadpackage.StartedJobs)
				if err != nil {
					results[i] = jobResult{path: p, err: err}
					return nil
				}
				p = moved
			}
			job, err := s.runJob(ctx, executor, client, p, loadID)
			results[i] = jobResult{path: p, job: job, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *LoadService) newExecutor(maxRetries int) *retry.Executor {
	strategy := retry.TransferBackoff(maxRetries, s.retryInitialDelay, s.retryMaxDelay)
	s.logger.Verbose("Job retries wait %v", strategy.Schedule())
	return retry.NewExecutor(retryStateClassifier{}, strategy).
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			s.logger.Verbose("Attempt %d failed, retrying in %v: %v", attempt+1, delay, err)
		})
}

// runJob transfers one file, creating a fresh job for every attempt. The
// returned job carries the final state; the error reports a file that
// cannot become a job at all.
func (s *LoadService) runJob(ctx context.Context, executor *retry.Executor, client *destination.Client, p, loadID string) (*destination.Job, error) {
	var job *destination.Job
	err := executor.Execute(ctx, func(ctx context.Context, _ int) error {
		j, err := client.StartFileLoad(ctx, p, loadID)
		if err != nil {
			return err
		}
		job = j
		if j.State() == fsload.JobRetry {
			return fmt.Errorf("%w: %w", errJobRetry, j.Err())
		}
		return nil
	})
	if job != nil {
		return job, nil
	}
	return nil, err
}

// settle moves every job file to the folder matching its final state.
func (s *LoadService) settle(ctx context.Context, pkg *loadpackage.Package, results []jobResult, summary *fsload.LoadSummary) error {
	var errs []error
	for _, r := range results {
		if r.skipped {
			continue
		}
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		if ctx.Err() != nil && r.job.State() != fsload.JobCompleted {
			// interrupted transfers are started again by the next run
			if _, err := pkg.Move(r.path, loadpackage.NewJobs); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if err := s.settleOne(pkg, r, summary); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *LoadService) settleOne(pkg *loadpackage.Package, r jobResult, summary *fsload.LoadSummary) error {
	job := r.job
	switch job.State() {
	case fsload.JobCompleted:
		for _, followup := range job.Followups() {
			if _, err := pkg.WriteFollowup(followup); err != nil {
				return fmt.Errorf("failed to write reference job for %s: %w", job.FileName(), err)
			}
			summary.Followups = append(summary.Followups, followup)
		}
		if _, err := pkg.Move(r.path, loadpackage.CompletedJobs); err != nil {
			return err
		}
		if r.restored {
			summary.Restored++
		} else {
			summary.Completed++
		}

	case fsload.JobFailed:
		s.logger.Error("Job %s failed: %v", job.FileName(), job.Err())
		if _, err := pkg.Move(r.path, loadpackage.FailedJobs); err != nil {
			return err
		}
		summary.Failed++

	case fsload.JobRetry:
		s.logger.Warn("Job %s re-queued after retries: %v", job.FileName(), job.Err())
		if _, err := pkg.Requeue(r.path); err != nil {
			return err
		}
		summary.Requeued++

	default:
		return fmt.Errorf("job %s ended in unexpected state %s", job.FileName(), job.State())
	}
	return nil
}
