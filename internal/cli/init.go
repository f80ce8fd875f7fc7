package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vvka-141/fsload/internal/services"
	"github.com/vvka-141/fsload/pkg/fsload"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Prepare a dataset: create table folders and optionally truncate tables",
	Long: `Init prepares a dataset without loading a package.

It creates the dataset folder and one folder per table, as derived from
the layout. Tables passed with --truncate are emptied first, after an
interactive confirmation (or a countdown with --force). Files that cannot
be deleted are reported as warnings.

Examples:
  fsload init -d analytics --bucket-url /data/lake --schema sales --table orders --table customers
  fsload init -d analytics --schema sales --truncate orders --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

type initFlagValues struct {
	destination       destinationFlags
	schema            string
	tables            []string
	truncate          []string
	force             bool
	deleteConcurrency int
	deleteRate        float64
}

var initFlags initFlagValues

func init() {
	rootCmd.AddCommand(initCmd)

	addDestinationFlags(initCmd, &initFlags.destination)
	initCmd.Flags().StringVar(&initFlags.schema, "schema", "", "Schema name, used by {schema_name}")
	initCmd.Flags().StringSliceVar(&initFlags.tables, "table", nil, "Table to create a folder for (can be specified multiple times)")
	initCmd.Flags().StringSliceVar(&initFlags.truncate, "truncate", nil, "Table to empty (can be specified multiple times)")
	initCmd.Flags().BoolVar(&initFlags.force, "force", false, "Skip interactive approval prompt for --truncate")
	initCmd.Flags().IntVar(&initFlags.deleteConcurrency, "delete-concurrency", fsload.DefaultDeleteConcurrency,
		"Maximum number of concurrent deletes")
	initCmd.Flags().Float64Var(&initFlags.deleteRate, "delete-rate", 0, "Deletes per second (0 = unlimited)")
	_ = initCmd.MarkFlagRequired("schema")
}

func runInit(cmd *cobra.Command, _ []string) error {
	verbose := getVerboseFlag(cmd)

	projectCfg, err := loadProjectConfig(cmd)
	if err != nil {
		return err
	}
	dest, err := resolveDestination(cmd, initFlags.destination, projectCfg)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, projectCfg)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(fsload.DefaultTimeout)
	defer cancel()

	svc := services.NewLoadService(
		storageOpener(resolveCredentials(projectCfg)),
		newApprover(initFlags.force, verbose),
		logger,
	)

	report, err := svc.Initialize(ctx, services.InitConfig{
		Destination:       dest,
		SchemaName:        initFlags.schema,
		Tables:            initFlags.tables,
		TruncateTables:    initFlags.truncate,
		DeleteConcurrency: initFlags.deleteConcurrency,
		DeleteRate:        initFlags.deleteRate,
	})
	if err != nil {
		return fmt.Errorf("init failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized %d folder(s)\n", len(report.Dirs))
	if len(report.TruncatedTables) > 0 {
		fmt.Fprintf(out, "Truncated %s: %d file(s) deleted\n", strings.Join(report.TruncatedTables, ", "), report.Deleted)
	}
	for _, e := range report.DeleteErrors {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", e)
	}
	return nil
}
