package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fsload",
	Short: "Load staged job files into filesystem and object-store datasets",
	Long: `fsload copies the job files of a load package into a dataset on a local
filesystem, S3, Azure Blob Storage or Google Cloud Storage. A layout
template decides where each file lands; a marker file records every
completed load.

Bucket URLs:
  /abs/path, file:///abs/path   local filesystem
  s3://bucket/prefix            Amazon S3 and S3-compatible stores
  az://container/prefix         Azure Blob Storage
  gs://bucket/prefix            Google Cloud Storage
  memory://name                 in-process store, for testing

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration, layout or bucket URL
  11 - Destination storage unreachable
  12 - User denied truncation approval
  13 - One or more load jobs failed
  14 - Load package missing or malformed`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo(os.Stdout)
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: console|json (default: console, or log_format in fsload.yaml)")
	rootCmd.PersistentFlags().String("project-dir", ".", "Directory containing fsload.yaml and .env")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}

func getStringFlag(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return ""
	}
	return v
}
