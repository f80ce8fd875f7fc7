package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/vvka-141/fsload/internal/journal"
	"github.com/vvka-141/fsload/pkg/fsload"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent loads recorded in the journal",
	Long: `History prints the most recent loads recorded in the PostgreSQL journal,
newest first. Without --dataset, loads of every dataset are listed.

Examples:
  fsload history --journal postgresql://fsload@db/journal
  fsload history -d analytics --limit 50`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

type historyFlagValues struct {
	journalURL string
	dataset    string
	limit      int
}

var historyFlags historyFlagValues

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyFlags.journalURL, "journal", "",
		"PostgreSQL connection string of the load journal\n"+
			"Precedence: --journal > $"+EnvJournalURL+" > journal.connection in fsload.yaml")
	historyCmd.Flags().StringVarP(&historyFlags.dataset, "dataset", "d", "", "Only list loads of this dataset")
	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", 20, "Maximum number of loads to list")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if historyFlags.limit <= 0 {
		return fmt.Errorf("--limit must be positive: %w", fsload.ErrInvalidConfig)
	}

	projectCfg, err := loadProjectConfig(cmd)
	if err != nil {
		return err
	}
	journalCfg, err := resolveJournal(historyFlags.journalURL, projectCfg)
	if err != nil {
		return err
	}
	if journalCfg == nil {
		return fmt.Errorf("no journal configured: set --journal or $%s: %w", EnvJournalURL, fsload.ErrInvalidConfig)
	}
	logger, err := newLogger(cmd, projectCfg)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(fsload.DefaultTimeout)
	defer cancel()

	j, err := journal.Connect(ctx, *journalCfg, logger)
	if err != nil {
		return err
	}
	defer j.Close()

	records, err := j.Recent(ctx, historyFlags.dataset, historyFlags.limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No loads recorded")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderHistory(records))
	return nil
}

func renderHistory(records []journal.Record) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.InsertedAt.Local().Format(time.DateTime),
			r.DatasetName,
			r.SchemaName,
			r.LoadID,
			r.Status,
			r.RemoteRoot,
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("INSERTED", "DATASET", "SCHEMA", "LOAD ID", "STATUS", "ROOT").
		Rows(rows...).
		String()
}
