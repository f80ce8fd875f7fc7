package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RequirePackagePath validates that exactly one package_path argument is provided.
// Returns a helpful error message with usage and examples if missing or too many.
func RequirePackagePath(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf(`missing required argument: <package_path>

Usage: %s

Example:
  %s ./packages/1718888000.123 --bucket-url s3://lake/raw --dataset analytics`, cmd.UseLine(), cmd.CommandPath())
	}
	if len(args) > 1 {
		return fmt.Errorf("accepts 1 arg(s), received %d", len(args))
	}
	return nil
}

// RequireLoadID validates that exactly one load_id argument is provided.
func RequireLoadID(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf(`missing required argument: <load_id>

Usage: %s

Example:
  %s 1718888000.123 --schema sales --dataset analytics`, cmd.UseLine(), cmd.CommandPath())
	}
	if len(args) > 1 {
		return fmt.Errorf("accepts 1 arg(s), received %d", len(args))
	}
	return nil
}
