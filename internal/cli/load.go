package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/fsload/internal/config"
	"github.com/vvka-141/fsload/internal/journal"
	"github.com/vvka-141/fsload/internal/services"
	"github.com/vvka-141/fsload/internal/tui"
	"github.com/vvka-141/fsload/pkg/fsload"
)

var loadCmd = &cobra.Command{
	Use:   "load <package_path>",
	Short: "Copy the jobs of a load package into a dataset",
	Long: `Load copies every job file of a load package into the destination dataset.

The load command:
1. Skips the package if its completion marker (or journal record) exists
2. Truncates tables with the replace write disposition that have jobs
3. Restores jobs left in started_jobs by an interrupted run
4. Copies new jobs concurrently, retrying transient storage errors
5. Moves each job to completed_jobs or failed_jobs, or re-queues it
6. Writes <dataset>/<schema>._loads.<load_id> once every job completed

Arguments:
  package_path    Load package directory; its name is the load id

Examples:
  # Load into a local directory
  fsload load ./packages/1718888000.123 --bucket-url /data/lake -d analytics

  # Load into S3 with a schema folder per dataset
  fsload load ./packages/1718888000.123 --bucket-url s3://lake/raw -d analytics \
    --layout "{schema_name}/{table_name}/{load_id}.{file_id}.{ext}"

  # Also empty the customers table first (asks for confirmation)
  fsload load ./packages/1718888000.123 -d analytics --truncate customers`,
	Args: RequirePackagePath,
	RunE: runLoad,
}

type loadFlagValues struct {
	destination       destinationFlags
	truncate          []string
	force             bool
	workers           int
	maxRetries        int
	deleteConcurrency int
	deleteRate        float64
	journalURL        string
	timeout           time.Duration
}

var loadFlags loadFlagValues

func init() {
	rootCmd.AddCommand(loadCmd)

	addDestinationFlags(loadCmd, &loadFlags.destination)

	loadCmd.Flags().StringSliceVar(&loadFlags.truncate, "truncate", nil,
		"Delete all files of these tables before loading (can be specified multiple times)\n"+
			"Requires interactive confirmation unless --force is used")
	loadCmd.Flags().BoolVar(&loadFlags.force, "force", false,
		"Skip interactive approval prompt for --truncate")
	loadCmd.Flags().IntVar(&loadFlags.workers, "workers", fsload.DefaultWorkers,
		"Maximum number of concurrent transfers")
	loadCmd.Flags().IntVar(&loadFlags.maxRetries, "max-retries", fsload.DefaultRetryMaxAttempts,
		"In-process retries of transient transfer failures before a job is re-queued")
	loadCmd.Flags().IntVar(&loadFlags.deleteConcurrency, "delete-concurrency", fsload.DefaultDeleteConcurrency,
		"Maximum number of concurrent deletes during truncation")
	loadCmd.Flags().Float64Var(&loadFlags.deleteRate, "delete-rate", 0,
		"Deletes per second during truncation (0 = unlimited)")
	loadCmd.Flags().StringVar(&loadFlags.journalURL, "journal", "",
		"PostgreSQL connection string of the load journal\n"+
			"Precedence: --journal > $"+EnvJournalURL+" > journal.connection in fsload.yaml")
	loadCmd.Flags().DurationVar(&loadFlags.timeout, "timeout", fsload.DefaultTimeout,
		"Timeout for the whole load\n"+
			"Examples: 30s, 5m, 1h30m")
}

// buildLoadConfig builds a LoadConfig from CLI flags, environment and fsload.yaml.
func buildLoadConfig(cmd *cobra.Command, projectCfg *config.ProjectConfig, packagePath string) (fsload.LoadConfig, error) {
	dest, err := resolveDestination(cmd, loadFlags.destination, projectCfg)
	if err != nil {
		return fsload.LoadConfig{}, err
	}

	timeout, err := resolveEffectiveTimeout(cmd, projectCfg, loadFlags.timeout)
	if err != nil {
		return fsload.LoadConfig{}, err
	}

	cfg := fsload.LoadConfig{
		Destination:       dest,
		PackagePath:       packagePath,
		TruncateTables:    loadFlags.truncate,
		Workers:           loadFlags.workers,
		MaxRetries:        loadFlags.maxRetries,
		DeleteConcurrency: loadFlags.deleteConcurrency,
		DeleteRate:        loadFlags.deleteRate,
		Timeout:           timeout,
		Verbose:           getVerboseFlag(cmd),
	}

	if projectCfg != nil {
		l := projectCfg.Load
		if l.Workers > 0 && !cmd.Flags().Changed("workers") {
			cfg.Workers = l.Workers
		}
		if l.MaxRetries != nil && !cmd.Flags().Changed("max-retries") {
			cfg.MaxRetries = *l.MaxRetries
		}
		if l.DeleteConcurrency > 0 && !cmd.Flags().Changed("delete-concurrency") {
			cfg.DeleteConcurrency = l.DeleteConcurrency
		}
		if l.DeleteRate > 0 && !cmd.Flags().Changed("delete-rate") {
			cfg.DeleteRate = l.DeleteRate
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runLoad(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)

	projectCfg, err := loadProjectConfig(cmd)
	if err != nil {
		return err
	}
	cfg, err := buildLoadConfig(cmd, projectCfg, args[0])
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, projectCfg)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cfg.Timeout)
	defer cancel()

	var opts []services.Option
	journalCfg, err := resolveJournal(loadFlags.journalURL, projectCfg)
	if err != nil {
		return err
	}
	if journalCfg != nil {
		j, err := journal.Connect(ctx, *journalCfg, logger)
		if err != nil {
			return err
		}
		defer j.Close()
		opts = append(opts, services.WithJournal(j))
	}

	svc := services.NewLoadService(
		storageOpener(resolveCredentials(projectCfg)),
		newApprover(loadFlags.force, verbose),
		logger,
		opts...,
	)

	var summary *fsload.LoadSummary
	run := func(ctx context.Context) (string, error) {
		var loadErr error
		summary, loadErr = svc.Load(ctx, cfg)
		if loadErr != nil {
			return "", loadErr
		}
		return fmt.Sprintf("Loaded %s into %s", summary.LoadID, summary.DatasetRoot), nil
	}

	// the spinner would interleave with prompts and verbose logs
	if verbose || len(cfg.TruncateTables) > 0 {
		_, err = run(ctx)
	} else {
		err = tui.RunWithSpinner(ctx, "Loading "+args[0], run)
	}

	if summary != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), tui.RenderSummary(summary))
	}
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}
	return nil
}
