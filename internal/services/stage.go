package services

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vvka-141/fsload/internal/jobname"
	"github.com/vvka-141/fsload/internal/loadpackage"
	"github.com/vvka-141/fsload/pkg/fsload"
)

// StageFile is one local data file destined for a table.
type StageFile struct {
	Table string
	Path  string
}

// StageConfig describes a load package to build from local files.
type StageConfig struct {
	// Root is the directory receiving the package folder.
	Root string

	// LoadID names the package; empty generates one.
	LoadID string

	SchemaName string
	Files      []StageFile

	// Dispositions override the append default per table.
	Dispositions map[string]fsload.WriteDisposition
}

// Stage builds a load package whose new_jobs hold copies of cfg.Files.
// The file format of each job is the extension of its source file.
func Stage(cfg StageConfig) (*loadpackage.Package, error) {
	if cfg.LoadID == "" {
		cfg.LoadID = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	if len(cfg.Files) == 0 {
		return nil, fmt.Errorf("no files to stage: %w", fsload.ErrInvalidConfig)
	}

	schema := loadpackage.Schema{Name: cfg.SchemaName, Tables: map[string]loadpackage.TableSchema{}}
	names := make([]jobname.Name, len(cfg.Files))
	for i, f := range cfg.Files {
		format := strings.TrimPrefix(filepath.Ext(f.Path), ".")
		if format == "" {
			return nil, fmt.Errorf("%s has no extension to derive a file format from: %w", f.Path, fsload.ErrInvalidConfig)
		}
		names[i] = jobname.New(f.Table, format)
		if _, err := jobname.Parse(names[i].String()); err != nil {
			return nil, err
		}
		schema.Tables[f.Table] = loadpackage.TableSchema{WriteDisposition: cfg.Dispositions[f.Table]}
	}
	for table, disposition := range cfg.Dispositions {
		if !disposition.IsValid() {
			return nil, fmt.Errorf("table %s: unknown write disposition %q: %w", table, disposition, fsload.ErrInvalidConfig)
		}
		if _, ok := schema.Tables[table]; !ok {
			return nil, fmt.Errorf("write disposition given for table %s without files: %w", table, fsload.ErrInvalidConfig)
		}
	}

	pkg, err := loadpackage.Create(cfg.Root, cfg.LoadID, schema)
	if err != nil {
		return nil, err
	}
	for i, f := range cfg.Files {
		if _, err := pkg.AddJob(f.Path, names[i]); err != nil {
			return nil, fmt.Errorf("failed to stage %s: %w", f.Path, err)
		}
	}
	return pkg, nil
}
