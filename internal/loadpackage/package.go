package loadpackage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vvka-141/fsload/internal/jobname"
	"github.com/vvka-141/fsload/pkg/fsload"
)

// Folder is a job lifecycle folder inside a package.
type Folder string

const (
	NewJobs       Folder = "new_jobs"
	StartedJobs   Folder = "started_jobs"
	CompletedJobs Folder = "completed_jobs"
	FailedJobs    Folder = "failed_jobs"
	FollowupJobs  Folder = "followup_jobs"
)

var allFolders = []Folder{NewJobs, StartedJobs, CompletedJobs, FailedJobs, FollowupJobs}

// SchemaFileName is the schema document of a package.
const SchemaFileName = "schema.json"

// TableSchema holds the per-table settings fsload needs.
type TableSchema struct {
	WriteDisposition fsload.WriteDisposition `json:"write_disposition,omitempty"`
}

// Schema is the subset of the upstream schema document fsload reads.
type Schema struct {
	Name   string                 `json:"name"`
	Tables map[string]TableSchema `json:"tables"`
}

// TableNames returns the table names in sorted order.
func (s Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Disposition returns the write disposition of table, append by default.
func (s Schema) Disposition(table string) fsload.WriteDisposition {
	if t, ok := s.Tables[table]; ok && t.WriteDisposition != "" {
		return t.WriteDisposition
	}
	return fsload.WriteAppend
}

func (s Schema) validate() error {
	var errs []error
	if s.Name == "" {
		errs = append(errs, errors.New("schema name is empty"))
	}
	for _, name := range s.TableNames() {
		if name == "" || strings.ContainsAny(name, "./\\") {
			errs = append(errs, fmt.Errorf("invalid table name %q", name))
		}
		if d := s.Tables[name].WriteDisposition; d != "" && !d.IsValid() {
			errs = append(errs, fmt.Errorf("table %s: unknown write disposition %q", name, d))
		}
	}
	return errors.Join(errs...)
}

// Package is an opened load package.
type Package struct {
	path   string
	loadID string
	schema Schema
}

// Open opens the package at dir. The load id is the directory name.
func Open(dir string) (*Package, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, fmt.Errorf("%s: %w", dir, fsload.ErrPackageNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to access %s: %w", dir, err)
	}

	raw, err := os.ReadFile(filepath.Join(abs, SchemaFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s of %s: %v: %w", SchemaFileName, dir, err, fsload.ErrInvalidPackage)
	}

	var schema Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("failed to parse %s of %s: %v: %w", SchemaFileName, dir, err, fsload.ErrInvalidPackage)
	}
	if err := schema.validate(); err != nil {
		return nil, fmt.Errorf("%s of %s: %v: %w", SchemaFileName, dir, err, fsload.ErrInvalidPackage)
	}

	return &Package{path: abs, loadID: filepath.Base(abs), schema: schema}, nil
}

// Create creates an empty package named loadID below root.
func Create(root, loadID string, schema Schema) (*Package, error) {
	if loadID == "" || strings.ContainsAny(loadID, "/\\") {
		return nil, fmt.Errorf("invalid load id %q: %w", loadID, fsload.ErrInvalidConfig)
	}
	if err := schema.validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, fsload.ErrInvalidPackage)
	}

	dir := filepath.Join(root, loadID)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("package %s already exists: %w", dir, fs.ErrExist)
	}
	for _, folder := range allFolders {
		if err := os.MkdirAll(filepath.Join(dir, string(folder)), 0o755); err != nil {
			return nil, err
		}
	}

	raw, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := writeAtomic(filepath.Join(dir, SchemaFileName), bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return Open(dir)
}

// Path returns the absolute package directory.
func (p *Package) Path() string { return p.path }

// LoadID returns the package's load id.
func (p *Package) LoadID() string { return p.loadID }

// Schema returns the package schema.
func (p *Package) Schema() Schema { return p.schema }

func (p *Package) folderPath(folder Folder) string {
	return filepath.Join(p.path, string(folder))
}

// Jobs returns the job files in folder, sorted. A missing folder is empty.
// Every name must parse as a job file name.
func (p *Package) Jobs(folder Folder) ([]string, error) {
	entries, err := os.ReadDir(p.folderPath(folder))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", folder, err)
	}

	var jobs []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if _, err := jobname.Parse(entry.Name()); err != nil {
			return nil, fmt.Errorf("%s: %w", folder, err)
		}
		jobs = append(jobs, filepath.Join(p.folderPath(folder), entry.Name()))
	}
	return jobs, nil
}

// TablesWithJobs returns the tables that have pending jobs in new_jobs or
// started_jobs, sorted.
func (p *Package) TablesWithJobs() ([]string, error) {
	seen := map[string]bool{}
	for _, folder := range []Folder{NewJobs, StartedJobs} {
		jobs, err := p.Jobs(folder)
		if err != nil {
			return nil, err
		}
		for _, job := range jobs {
			name, _ := jobname.Parse(job)
			seen[name.TableName] = true
		}
	}

	tables := make([]string, 0, len(seen))
	for table := range seen {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	return tables, nil
}

// Move renames a job file into another folder and returns its new path.
func (p *Package) Move(jobPath string, to Folder) (string, error) {
	return p.moveAs(jobPath, to, filepath.Base(jobPath))
}

// Requeue moves a job back to new_jobs with its retry count increased.
func (p *Package) Requeue(jobPath string) (string, error) {
	name, err := jobname.Parse(jobPath)
	if err != nil {
		return "", err
	}
	return p.moveAs(jobPath, NewJobs, name.WithRetry(name.RetryCount+1).String())
}

func (p *Package) moveAs(jobPath string, to Folder, fileName string) (string, error) {
	if err := os.MkdirAll(p.folderPath(to), 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(p.folderPath(to), fileName)
	if err := os.Rename(jobPath, dest); err != nil {
		return "", fmt.Errorf("failed to move %s to %s: %w", filepath.Base(jobPath), to, err)
	}
	return dest, nil
}

// AddJob copies a local data file into new_jobs under the given job name.
func (p *Package) AddJob(src string, name jobname.Name) (string, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer f.Close()

	dest := filepath.Join(p.folderPath(NewJobs), name.String())
	if err := writeAtomic(dest, f); err != nil {
		return "", err
	}
	return dest, nil
}

// WriteFollowup stores a reference job as followup_jobs/<table>.<file_id>.<retry>.reference
// containing the remote path.
func (p *Package) WriteFollowup(job fsload.FollowupJob) (string, error) {
	name, err := jobname.Parse(job.FileName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(p.folderPath(FollowupJobs), 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(p.folderPath(FollowupJobs), name.WithFormat(fsload.ReferenceFormat).String())
	if err := writeAtomic(dest, strings.NewReader(job.RemotePath)); err != nil {
		return "", err
	}
	return dest, nil
}

// Followups reads back the reference jobs of the package.
func (p *Package) Followups() ([]fsload.FollowupJob, error) {
	files, err := p.Jobs(FollowupJobs)
	if err != nil {
		return nil, err
	}

	out := make([]fsload.FollowupJob, 0, len(files))
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		out = append(out, fsload.FollowupJob{
			FileName:   filepath.Base(file),
			Status:     fsload.JobRunning,
			RemotePath: strings.TrimSpace(string(content)),
		})
	}
	return out, nil
}

// writeAtomic writes through a temporary file and a rename.
func writeAtomic(dest string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, 0o644)

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
