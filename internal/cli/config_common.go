package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vvka-141/fsload/internal/config"
	"github.com/vvka-141/fsload/internal/journal"
	"github.com/vvka-141/fsload/internal/logging"
	"github.com/vvka-141/fsload/internal/services"
	"github.com/vvka-141/fsload/internal/storage"
	"github.com/vvka-141/fsload/internal/ui"
	"github.com/vvka-141/fsload/pkg/fsload"
)

// Environment variables read in addition to the SDKs' own.
const (
	EnvBucketURL   = "FSLOAD_BUCKET_URL"
	EnvDatasetName = "FSLOAD_DATASET_NAME"
	EnvLayout      = "FSLOAD_LAYOUT"
	EnvJournalURL  = "FSLOAD_JOURNAL_URL"
)

// destinationFlags holds the destination-related flag values.
type destinationFlags struct {
	bucketURL     string
	dataset       string
	layout        string
	asStaging     bool
	verifyRestore bool
}

func addDestinationFlags(cmd *cobra.Command, f *destinationFlags) {
	cmd.Flags().StringVar(&f.bucketURL, "bucket-url", "",
		"Filesystem root of the destination\n"+
			"Precedence: --bucket-url > $"+EnvBucketURL+" > destination.bucket_url in fsload.yaml")
	cmd.Flags().StringVarP(&f.dataset, "dataset", "d", "",
		"Dataset folder below the bucket root\n"+
			"Precedence: --dataset > $"+EnvDatasetName+" > destination.dataset_name in fsload.yaml")
	cmd.Flags().StringVar(&f.layout, "layout", "",
		"Placement template (default: "+fsload.DefaultLayout+")\n"+
			"Placeholders: {schema_name} {table_name} {load_id} {file_id} {ext}")
	cmd.Flags().BoolVar(&f.asStaging, "as-staging", false,
		"Write reference jobs for a downstream loader into followup_jobs")
	cmd.Flags().BoolVar(&f.verifyRestore, "verify-restore", false,
		"Check that restored jobs' files exist in the destination")
}

// firstNonEmpty returns the first non-empty value.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolveDestination merges flags, environment and fsload.yaml, in that
// order of precedence, and validates the result.
func resolveDestination(cmd *cobra.Command, f destinationFlags, projectCfg *config.ProjectConfig) (fsload.DestinationConfig, error) {
	var fileCfg config.DestinationConfig
	if projectCfg != nil {
		fileCfg = projectCfg.Destination
	}

	dest := fsload.DestinationConfig{
		BucketURL:     firstNonEmpty(f.bucketURL, os.Getenv(EnvBucketURL), fileCfg.BucketURL),
		DatasetName:   firstNonEmpty(f.dataset, os.Getenv(EnvDatasetName), fileCfg.DatasetName),
		Layout:        firstNonEmpty(f.layout, os.Getenv(EnvLayout), fileCfg.Layout),
		AsStaging:     fileCfg.AsStaging,
		VerifyRestore: fileCfg.VerifyRestore,
	}
	if cmd.Flags().Changed("as-staging") {
		dest.AsStaging = f.asStaging
	}
	if cmd.Flags().Changed("verify-restore") {
		dest.VerifyRestore = f.verifyRestore
	}

	if err := dest.Validate(); err != nil {
		return dest, fmt.Errorf("%w\n\nTip: set --bucket-url and --dataset, or add a destination section to %s", err, config.ConfigFileName)
	}
	return dest, nil
}

// resolveCredentials combines fsload.yaml settings with secrets from the
// environment.
func resolveCredentials(projectCfg *config.ProjectConfig) storage.Credentials {
	var c config.CredentialsConfig
	if projectCfg != nil {
		c = projectCfg.Credentials
	}
	return storage.Credentials{
		AWSRegion:          firstNonEmpty(c.AWSRegion, os.Getenv("AWS_REGION"), os.Getenv("AWS_DEFAULT_REGION")),
		AWSProfile:         firstNonEmpty(c.AWSProfile, os.Getenv("AWS_PROFILE")),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		AWSSessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		AWSEndpointURL:     firstNonEmpty(c.AWSEndpointURL, os.Getenv("AWS_ENDPOINT_URL")),
		AzureAccountName:   firstNonEmpty(c.AzureAccountName, os.Getenv("AZURE_STORAGE_ACCOUNT")),
		AzureAccountKey:    os.Getenv("AZURE_STORAGE_KEY"),
		AzureTenantID:      firstNonEmpty(c.AzureTenantID, os.Getenv("AZURE_TENANT_ID")),
		AzureClientID:      firstNonEmpty(c.AzureClientID, os.Getenv("AZURE_CLIENT_ID")),
		AzureClientSecret:  os.Getenv("AZURE_CLIENT_SECRET"),
		GCPCredentialsFile: firstNonEmpty(c.GCPCredentialsFile, os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		GCPEndpoint:        firstNonEmpty(c.GCPEndpoint, os.Getenv("STORAGE_EMULATOR_HOST")),
	}
}

// resolveJournal returns the journal settings, or nil when no journal is
// configured.
func resolveJournal(flagURL string, projectCfg *config.ProjectConfig) (*journal.Config, error) {
	var j config.JournalConfig
	if projectCfg != nil {
		j = projectCfg.Journal
	}

	connStr := firstNonEmpty(flagURL, os.Getenv(EnvJournalURL), j.Connection)
	if connStr == "" {
		return nil, nil
	}

	method, err := journal.ParseAuthMethod(j.AuthMethod)
	if err != nil {
		return nil, err
	}
	return &journal.Config{
		ConnectionString:  connStr,
		AuthMethod:        method,
		AWSRegion:         firstNonEmpty(j.AWSRegion, os.Getenv("AWS_REGION")),
		AzureTenantID:     firstNonEmpty(j.AzureTenantID, os.Getenv("AZURE_TENANT_ID")),
		AzureClientID:     firstNonEmpty(j.AzureClientID, os.Getenv("AZURE_CLIENT_ID")),
		AzureClientSecret: os.Getenv("AZURE_CLIENT_SECRET"),
	}, nil
}

// resolveEffectiveTimeout returns the effective timeout, preferring fsload.yaml if flag wasn't set.
func resolveEffectiveTimeout(
	cmd *cobra.Command,
	projectCfg *config.ProjectConfig,
	flagTimeout time.Duration,
) (time.Duration, error) {
	if projectCfg != nil && projectCfg.Timeout != "" && !cmd.Flags().Changed("timeout") {
		parsed, err := time.ParseDuration(projectCfg.Timeout)
		if err != nil {
			return 0, fmt.Errorf("invalid timeout in %s: %v: %w", config.ConfigFileName, err, fsload.ErrInvalidConfig)
		}
		return parsed, nil
	}
	return flagTimeout, nil
}

// loadProjectConfig loads godotenv and project configuration.
// Returns nil config if fsload.yaml does not exist (not an error).
func loadProjectConfig(cmd *cobra.Command) (*config.ProjectConfig, error) {
	dir := getStringFlag(cmd, "project-dir")
	if dir == "" {
		dir = "."
	}
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	projectCfg, err := config.Load(dir)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, nil // Config file not found is not an error
		}
		return nil, fmt.Errorf("failed to load %s: %v: %w", config.ConfigFileName, err, fsload.ErrInvalidConfig)
	}
	return projectCfg, nil
}

// newLogger builds the logger selected by --log-format or fsload.yaml.
func newLogger(cmd *cobra.Command, projectCfg *config.ProjectConfig) (fsload.Logger, error) {
	format := getStringFlag(cmd, "log-format")
	if format == "" && projectCfg != nil {
		format = projectCfg.LogFormat
	}
	return logging.New(format, cmd.ErrOrStderr(), getVerboseFlag(cmd))
}

func newApprover(force, verbose bool) fsload.Approver {
	if force {
		return ui.NewForcedApprover(verbose)
	}
	return ui.NewInteractiveApprover(verbose)
}

// storageOpener opens bucket URLs with the resolved credentials.
func storageOpener(creds storage.Credentials) services.DriverOpener {
	return func(ctx context.Context, bucketURL string) (fsload.StorageDriver, string, error) {
		return storage.Open(ctx, bucketURL, creds)
	}
}

// commandContext returns a context cancelled by the timeout or by an
// interrupt signal.
func commandContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := context.Background()
	var cancelTimeout context.CancelFunc = func() {}
	if timeout > 0 {
		ctx, cancelTimeout = context.WithTimeout(ctx, timeout)
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	return ctx, func() {
		stop()
		cancelTimeout()
	}
}
