package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vvka-141/fsload/internal/services"
	"github.com/vvka-141/fsload/pkg/fsload"
)

var stageCmd = &cobra.Command{
	Use:   "stage <out_dir>",
	Short: "Build a load package from local data files",
	Long: `Stage creates a load package below out_dir with one new job per --file.
The file format of a job is the extension of its source file, so
orders.jsonl becomes a "jsonl" job of the table given before "=".

The package path is printed on success and can be passed to 'fsload load'.

Examples:
  fsload stage ./packages --schema sales --file orders=./orders.jsonl --file customers=./c.parquet
  fsload stage ./packages --schema sales --file customers=./c.parquet --replace customers`,
	Args: cobra.ExactArgs(1),
	RunE: runStage,
}

type stageFlagValues struct {
	schema  string
	files   []string
	replace []string
	merge   []string
	loadID  string
}

var stageFlags stageFlagValues

func init() {
	rootCmd.AddCommand(stageCmd)

	stageCmd.Flags().StringVar(&stageFlags.schema, "schema", "", "Schema name of the package")
	stageCmd.Flags().StringArrayVar(&stageFlags.files, "file", nil, "Data file as table=path (can be specified multiple times)")
	stageCmd.Flags().StringSliceVar(&stageFlags.replace, "replace", nil, "Tables with the replace write disposition")
	stageCmd.Flags().StringSliceVar(&stageFlags.merge, "merge", nil, "Tables with the merge write disposition")
	stageCmd.Flags().StringVar(&stageFlags.loadID, "load-id", "", "Load id of the package (default: generated)")
	_ = stageCmd.MarkFlagRequired("schema")
	_ = stageCmd.MarkFlagRequired("file")
}

// parseStageFiles splits table=path pairs.
func parseStageFiles(values []string) ([]services.StageFile, error) {
	files := make([]services.StageFile, 0, len(values))
	for _, v := range values {
		table, p, ok := strings.Cut(v, "=")
		if !ok || table == "" || p == "" {
			return nil, fmt.Errorf("--file %q: expected table=path: %w", v, fsload.ErrInvalidConfig)
		}
		files = append(files, services.StageFile{Table: table, Path: p})
	}
	return files, nil
}

func stageDispositions(replace, merge []string) map[string]fsload.WriteDisposition {
	dispositions := map[string]fsload.WriteDisposition{}
	for _, t := range replace {
		dispositions[t] = fsload.WriteReplace
	}
	for _, t := range merge {
		dispositions[t] = fsload.WriteMerge
	}
	return dispositions
}

func runStage(cmd *cobra.Command, args []string) error {
	files, err := parseStageFiles(stageFlags.files)
	if err != nil {
		return err
	}

	pkg, err := services.Stage(services.StageConfig{
		Root:         args[0],
		LoadID:       stageFlags.loadID,
		SchemaName:   stageFlags.schema,
		Files:        files,
		Dispositions: stageDispositions(stageFlags.replace, stageFlags.merge),
	})
	if err != nil {
		return fmt.Errorf("stage failed: %w", err)
	}

	tables := pkg.Schema().TableNames()
	if getVerboseFlag(cmd) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Staged %d file(s) for %s\n", len(files), strings.Join(tables, ", "))
	}
	fmt.Fprintln(cmd.OutOrStdout(), pkg.Path())
	return nil
}
