package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vvka-141/fsload/internal/layout"
	"github.com/vvka-141/fsload/pkg/fsload"
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Inspect layout templates",
	Long: `Layout commands validate a placement template and show how files would
be placed, without touching any storage.

The layout comes from the positional argument, then $` + EnvLayout + `, then
destination.layout in fsload.yaml, then the default:
  ` + fsload.DefaultLayout,
}

var layoutCheckCmd = &cobra.Command{
	Use:   "check [layout]",
	Short: "Validate a layout and print its effective form",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLayoutCheck,
}

var layoutRenderCmd = &cobra.Command{
	Use:   "render [layout]",
	Short: "Render the path of one file",
	Long: `Render prints the dataset-relative path a file would be written to.

Example:
  fsload layout render --schema sales --table orders --load-id 1718888000.123 --file-id a1b2 --ext jsonl`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLayoutRender,
}

var layoutPrefixCmd = &cobra.Command{
	Use:   "prefix [layout]",
	Short: "Print the path prefix that holds every file of a table",
	Long: `Prefix prints the table prefix used to truncate a table. Without --table it
prints the un-rendered prefix layout. Placeholders passed with --allow may
precede {table_name}.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLayoutPrefix,
}

type layoutFlagValues struct {
	schema string
	table  string
	loadID string
	fileID string
	ext    string
	allow  []string
}

var layoutFlags layoutFlagValues

func init() {
	rootCmd.AddCommand(layoutCmd)
	layoutCmd.AddCommand(layoutCheckCmd, layoutRenderCmd, layoutPrefixCmd)

	layoutRenderCmd.Flags().StringVar(&layoutFlags.schema, "schema", "", "Value of {schema_name}")
	layoutRenderCmd.Flags().StringVar(&layoutFlags.table, "table", "", "Value of {table_name}")
	layoutRenderCmd.Flags().StringVar(&layoutFlags.loadID, "load-id", "", "Value of {load_id}")
	layoutRenderCmd.Flags().StringVar(&layoutFlags.fileID, "file-id", "", "Value of {file_id}")
	layoutRenderCmd.Flags().StringVar(&layoutFlags.ext, "ext", "", "Value of {ext}")

	layoutPrefixCmd.Flags().StringVar(&layoutFlags.schema, "schema", "", "Value of {schema_name}")
	layoutPrefixCmd.Flags().StringVar(&layoutFlags.table, "table", "", "Table to compute the prefix for")
	layoutPrefixCmd.Flags().StringSliceVar(&layoutFlags.allow, "allow", layout.DefaultPrefixPlaceholders,
		"Placeholders allowed before {table_name} in the prefix layout")
}

// resolveLayout parses the layout selected by argument, environment,
// fsload.yaml or the default.
func resolveLayout(cmd *cobra.Command, args []string) (*layout.Template, error) {
	var arg, fromFile string
	if len(args) > 0 {
		arg = args[0]
	}
	projectCfg, err := loadProjectConfig(cmd)
	if err != nil {
		return nil, err
	}
	if projectCfg != nil {
		fromFile = projectCfg.Destination.Layout
	}
	return layout.Parse(firstNonEmpty(arg, os.Getenv(EnvLayout), fromFile, fsload.DefaultLayout))
}

func runLayoutCheck(cmd *cobra.Command, args []string) error {
	t, err := resolveLayout(cmd, args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Layout:       %s\n", t.String())
	fmt.Fprintf(out, "Effective:    %s\n", t.Effective())
	fmt.Fprintf(out, "Placeholders: %s\n", strings.Join(t.Placeholders(), ", "))
	if prefix, err := t.TablePrefixLayout(layout.DefaultPrefixPlaceholders...); err == nil {
		fmt.Fprintf(out, "Table prefix: %s\n", prefix)
	} else {
		fmt.Fprintf(out, "Table prefix: none (%v)\n", err)
	}
	for _, w := range t.Warnings() {
		fmt.Fprintf(out, "Warning:      %s\n", w)
	}
	return nil
}

func runLayoutRender(cmd *cobra.Command, args []string) error {
	t, err := resolveLayout(cmd, args)
	if err != nil {
		return err
	}
	rendered, err := t.Render(layout.Values{
		SchemaName: layoutFlags.schema,
		TableName:  layoutFlags.table,
		LoadID:     layoutFlags.loadID,
		FileID:     layoutFlags.fileID,
		Ext:        layoutFlags.ext,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return nil
}

func runLayoutPrefix(cmd *cobra.Command, args []string) error {
	t, err := resolveLayout(cmd, args)
	if err != nil {
		return err
	}

	if layoutFlags.table == "" {
		prefix, err := t.TablePrefixLayout(layoutFlags.allow...)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), prefix)
		return nil
	}

	prefix, err := t.TablePrefix(layoutFlags.schema, layoutFlags.table)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), prefix)
	return nil
}
