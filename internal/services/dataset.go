package services

import (
	"context"
	"fmt"

	"github.com/vvka-141/fsload/internal/destination"
	"github.com/vvka-141/fsload/internal/storage"
	"github.com/vvka-141/fsload/pkg/fsload"
)

// InitConfig configures a standalone dataset initialization.
type InitConfig struct {
	Destination fsload.DestinationConfig
	SchemaName  string

	// Tables get a folder each.
	Tables []string

	// TruncateTables are emptied after approval.
	TruncateTables []string

	DeleteConcurrency int
	DeleteRate        float64
}

// Initialize prepares a dataset without loading a package. Truncation
// asks the approver first.
func (s *LoadService) Initialize(ctx context.Context, cfg InitConfig) (destination.InitReport, error) {
	client, err := s.datasetClient(ctx, cfg.Destination, cfg.SchemaName, cfg.Tables, cfg.DeleteConcurrency, cfg.DeleteRate)
	if err != nil {
		return destination.InitReport{}, err
	}

	if len(cfg.TruncateTables) > 0 {
		if err := s.approve(ctx, cfg.Destination.DatasetName, cfg.TruncateTables); err != nil {
			return destination.InitReport{}, err
		}
	}

	report, err := client.InitializeStorage(ctx, cfg.TruncateTables)
	if err != nil {
		return report, err
	}
	if len(report.TruncatedTables) > 0 {
		s.logger.Info("Truncated %d table(s), deleted %d file(s)", len(report.TruncatedTables), report.Deleted)
	}
	return report, nil
}

// Complete writes the completion marker of loadID without loading.
func (s *LoadService) Complete(ctx context.Context, dest fsload.DestinationConfig, schema, loadID string) (string, error) {
	client, err := s.datasetClient(ctx, dest, schema, nil, 0, 0)
	if err != nil {
		return "", err
	}
	if err := client.CompleteLoad(ctx, loadID); err != nil {
		return "", err
	}
	return storage.RemoteURL(client.Driver(), client.DatasetPath()), nil
}

// IsCompleted reports whether loadID has a completion marker in the dataset.
func (s *LoadService) IsCompleted(ctx context.Context, dest fsload.DestinationConfig, schema, loadID string) (bool, error) {
	client, err := s.datasetClient(ctx, dest, schema, nil, 0, 0)
	if err != nil {
		return false, err
	}
	return client.IsLoadCompleted(ctx, loadID)
}

func (s *LoadService) datasetClient(ctx context.Context, dest fsload.DestinationConfig, schema string, tables []string, deleteConcurrency int, deleteRate float64) (*destination.Client, error) {
	if err := dest.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	driver, root, err := s.openDriver(ctx, dest.BucketURL)
	if err != nil {
		return nil, err
	}
	return destination.NewClient(driver, root, destination.ClientConfig{
		DatasetName:       dest.DatasetName,
		SchemaName:        schema,
		Layout:            dest.Layout,
		Tables:            tables,
		AsStaging:         dest.AsStaging,
		VerifyRestore:     dest.VerifyRestore,
		DeleteConcurrency: deleteConcurrency,
		DeleteRate:        deleteRate,
	}, s.logger)
}
