package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/costcast/internal/cli"
	"github.com/theirongolddev/costcast/internal/pipeline"
	"github.com/theirongolddev/costcast/internal/store"
)

var (
	flagHistoryKind  string
	flagHistoryLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived runs",
	RunE:  runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print one archived run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune <keep>",
	Short: "Delete all but the newest <keep> runs",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryPrune,
}

func init() {
	historyCmd.Flags().StringVarP(&flagHistoryKind, "kind", "k", "", "Only runs of this kind (analysis, forecast, anomalies, budget, report)")
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "l", 20, "Runs to list")
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

func openArchive() (*store.Archive, error) {
	path := store.DefaultPath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, errors.New("no runs archived yet")
	}
	return store.Open(path)
}

func runHistory(_ *cobra.Command, _ []string) error {
	archive, err := openArchive()
	if err != nil {
		return fail(err)
	}
	defer func() { _ = archive.Close() }()

	runs, err := archive.List(flagHistoryKind, flagHistoryLimit)
	if err != nil {
		return fail(err)
	}
	if runs == nil {
		runs = []store.Run{}
	}
	if done, err := emit(map[string]any{"success": true, "runs": runs}); done {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("\n  No archived runs.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("RUN HISTORY"))
	fmt.Println()
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID[:8],
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Kind,
			r.Provider,
			r.RangeStart + ".." + r.RangeEnd,
			cli.FormatCost(r.TotalCost),
			r.Headline,
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"ID", "Created", "Kind", "Provider", "Range", "Total", "Result"},
		Rows:    rows,
	}))
	fmt.Printf("\n  %s\n\n", cli.Muted("costcast history show <id> prints the full result"))
	return nil
}

func runHistoryShow(_ *cobra.Command, args []string) error {
	archive, err := openArchive()
	if err != nil {
		return fail(err)
	}
	defer func() { _ = archive.Close() }()

	run, err := archive.Get(args[0])
	if err != nil {
		// Allow the 8-character prefix shown by the list.
		run, err = findByPrefix(archive, args[0])
		if err != nil {
			return fail(err)
		}
	}
	if flagOutput != "" {
		_, err := emit(run)
		return err
	}
	return pipeline.Export(os.Stdout, run)
}

func findByPrefix(archive *store.Archive, prefix string) (store.Run, error) {
	runs, err := archive.List("", 0)
	if err != nil {
		return store.Run{}, err
	}
	var match *store.Run
	for i := range runs {
		if len(runs[i].ID) >= len(prefix) && runs[i].ID[:len(prefix)] == prefix {
			if match != nil {
				return store.Run{}, fmt.Errorf("run id prefix %q is ambiguous", prefix)
			}
			match = &runs[i]
		}
	}
	if match == nil {
		return store.Run{}, fmt.Errorf("%w: %s", store.ErrNotFound, prefix)
	}
	return archive.Get(match.ID)
}

func runHistoryPrune(_ *cobra.Command, args []string) error {
	keep, err := strconv.Atoi(args[0])
	if err != nil || keep < 0 {
		return fmt.Errorf("invalid keep count %q", args[0])
	}
	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer func() { _ = archive.Close() }()

	n, err := archive.Prune(keep)
	if err != nil {
		return err
	}
	fmt.Printf("  Removed %d runs, kept the newest %d.\n", n, keep)
	return nil
}
