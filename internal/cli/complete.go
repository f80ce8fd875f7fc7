package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vvka-141/fsload/internal/services"
	"github.com/vvka-141/fsload/internal/ui"
	"github.com/vvka-141/fsload/pkg/fsload"
)

var completeCmd = &cobra.Command{
	Use:   "complete <load_id>",
	Short: "Write or check the completion marker of a load",
	Long: `Complete writes <dataset>/<schema>._loads.<load_id>, the marker that tells
readers a load is complete. Writing it again only refreshes its timestamp.

With --check, nothing is written: the command exits 0 when the marker
exists and reports an error otherwise.

Examples:
  fsload complete 1718888000.123 --schema sales -d analytics
  fsload complete 1718888000.123 --schema sales -d analytics --check`,
	Args: RequireLoadID,
	RunE: runComplete,
}

type completeFlagValues struct {
	destination destinationFlags
	schema      string
	check       bool
}

var completeFlags completeFlagValues

func init() {
	rootCmd.AddCommand(completeCmd)

	addDestinationFlags(completeCmd, &completeFlags.destination)
	completeCmd.Flags().StringVar(&completeFlags.schema, "schema", "", "Schema name of the load")
	completeCmd.Flags().BoolVar(&completeFlags.check, "check", false, "Only check whether the marker exists")
	_ = completeCmd.MarkFlagRequired("schema")
}

func runComplete(cmd *cobra.Command, args []string) error {
	loadID := args[0]

	projectCfg, err := loadProjectConfig(cmd)
	if err != nil {
		return err
	}
	dest, err := resolveDestination(cmd, completeFlags.destination, projectCfg)
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
		ui.NewInteractiveApprover(false),
		logger,
	)

	if completeFlags.check {
		done, err := svc.IsCompleted(ctx, dest, completeFlags.schema, loadID)
		if err != nil {
			return err
		}
		if !done {
			return fmt.Errorf("load %s of schema %s is not complete in dataset %s", loadID, completeFlags.schema, dest.DatasetName)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Load %s is complete\n", loadID)
		return nil
	}

	root, err := svc.Complete(ctx, dest, completeFlags.schema, loadID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Marked load %s complete in %s\n", loadID, root)
	return nil
}
