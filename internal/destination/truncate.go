package destination

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/vvka-141/fsload/internal/layout"
	"github.com/vvka-141/fsload/internal/storage"
	"github.com/vvka-141/fsload/pkg/fsload"
)

// InitReport describes what InitializeStorage did.
type InitReport struct {
	// TruncatedTables are the tables whose files were deleted.
	TruncatedTables []string

	// Deleted counts removed files.
	Deleted int

	// DeleteErrors holds one *fsload.DeletionError per file that could not
	// be removed. They do not fail initialization.
	DeleteErrors []error

	// Dirs are the folders ensured to exist.
	Dirs []string
}

// InitializeStorage prepares the dataset for loading. Files of
// truncateTables are deleted first, found with a single listing of the
// dataset root; then a folder is ensured for every schema table.
//
// Every table prefix is derived before anything is deleted, so an
// ambiguous layout fails with fsload.ErrAmbiguousPrefix without side
// effects. Files that cannot be deleted are reported in
// InitReport.DeleteErrors and logged as warnings.
//
// Callers must not run InitializeStorage concurrently for the same dataset.
func (c *Client) InitializeStorage(ctx context.Context, truncateTables []string) (InitReport, error) {
	var report InitReport

	truncateTables = dedupe(truncateTables)
	if len(truncateTables) > 0 {
		if err := c.truncate(ctx, truncateTables, &report); err != nil {
			return report, err
		}
	}

	dirs := c.tableDirs(append(slices.Clone(c.cfg.Tables), truncateTables...))
	for _, dir := range dirs {
		if err := c.driver.MakeDirs(ctx, dir); err != nil {
			return report, &fsload.TransferError{Op: "makedirs", Path: storage.RemoteURL(c.driver, dir), Err: err}
		}
	}
	report.Dirs = dirs
	c.logger.Verbose("Ensured %d folder(s) in %s", len(dirs), storage.RemoteURL(c.driver, c.datasetPath))

	return report, nil
}

// tablePrefixes maps each table to the absolute path prefix of its files.
func (c *Client) tablePrefixes(tables []string) ([]string, error) {
	prefixes := make([]string, 0, len(tables))
	for _, table := range tables {
		prefix, err := c.layout.TablePrefix(c.cfg.SchemaName, table)
		if err != nil {
			return nil, err
		}
		full, err := c.prefixPath(prefix)
		if err != nil {
			return nil, err
		}
		prefixes = append(prefixes, full)
	}
	return prefixes, nil
}

// prefixPath joins a table prefix to the dataset root the way destination
// joins a rendered path, keeping a trailing slash separator.
func (c *Client) prefixPath(prefix string) (string, error) {
	full := path.Join(c.datasetPath, prefix)
	if strings.HasSuffix(prefix, "/") {
		full += "/"
	}
	if !strings.HasPrefix(full, c.datasetPath+"/") {
		return "", &layout.Error{
			Layout:  c.layout.String(),
			Message: fmt.Sprintf("table prefix %q escapes the dataset", prefix),
		}
	}
	return full, nil
}

func (c *Client) truncate(ctx context.Context, tables []string, report *InitReport) error {
	prefixes, err := c.tablePrefixes(tables)
	if err != nil {
		return fmt.Errorf("cannot truncate tables: %w", err)
	}

	initialized, err := c.driver.IsDir(ctx, c.datasetPath)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", c.datasetPath, err)
	}
	report.TruncatedTables = tables
	if !initialized {
		return nil
	}

	files, err := c.driver.List(ctx, c.datasetPath)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", storage.RemoteURL(c.driver, c.datasetPath), err)
	}

	var doomed []string
	for _, file := range files {
		if slices.ContainsFunc(prefixes, func(p string) bool { return strings.HasPrefix(file, p) }) {
			doomed = append(doomed, file)
		}
	}
	c.logger.Verbose("Truncating %s: %d of %d file(s) match", strings.Join(tables, ", "), len(doomed), len(files))

	deleted, deleteErr := c.deleteAll(ctx, doomed)
	report.Deleted = deleted
	report.DeleteErrors = multierr.Errors(deleteErr)
	for _, e := range report.DeleteErrors {
		c.logger.Warn("%v", e)
	}
	return ctx.Err()
}

// deleteAll removes files in parallel. A failed delete never stops the
// others; failures come back combined into one multierr error.
func (c *Client) deleteAll(ctx context.Context, files []string) (int, error) {
	var limiter *rate.Limiter
	if c.cfg.DeleteRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.cfg.DeleteRate), 1)
	}

	var (
		mu      sync.Mutex
		deleted int
		errs    error
		g       errgroup.Group
	)
	g.SetLimit(c.cfg.DeleteConcurrency)

	for _, file := range files {
		g.Go(func() error {
			err := ctx.Err()
			if err == nil && limiter != nil {
				err = limiter.Wait(ctx)
			}
			if err == nil {
				err = c.driver.Delete(ctx, file)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierr.Append(errs, &fsload.DeletionError{Path: storage.RemoteURL(c.driver, file), Err: err})
			} else {
				deleted++
			}
			return nil
		})
	}
	_ = g.Wait()

	return deleted, errs
}

// tableDirs returns the dataset root followed by the distinct parent
// folders of every table prefix. Tables without an unambiguous prefix
// live in the dataset root.
func (c *Client) tableDirs(tables []string) []string {
	dirs := []string{c.datasetPath}
	for _, table := range dedupe(tables) {
		prefix, err := c.layout.TablePrefix(c.cfg.SchemaName, table)
		if err != nil {
			c.logger.Verbose("No folder for table %s: %v", table, err)
			continue
		}
		full, err := c.prefixPath(prefix)
		if err != nil {
			c.logger.Verbose("No folder for table %s: %v", table, err)
			continue
		}
		dir := path.Dir(full)
		if !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func dedupe(values []string) []string {
	var out []string
	for _, v := range values {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
