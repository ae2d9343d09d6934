package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/mini-mind/internal/persistence"
)

var journalFlags struct {
	limit int
	agent uint64
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the decision journal",
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List journaled runs",
	RunE: withJournal(func(cmd *cobra.Command, j *persistence.Journal, args []string) error {
		runs, err := j.Runs()
		if err != nil {
			return err
		}
		return printRuns(cmd.OutOrStdout(), runs)
	}),
}

var journalRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the most recent decisions",
	RunE: withJournal(func(cmd *cobra.Command, j *persistence.Journal, args []string) error {
		var (
			records []persistence.Record
			err     error
		)
		if journalFlags.agent != 0 {
			records, err = j.DecisionsForAgent(journalFlags.agent, journalFlags.limit)
		} else {
			records, err = j.RecentDecisions(journalFlags.limit)
		}
		if err != nil {
			return err
		}
		return printRecords(cmd.OutOrStdout(), records)
	}),
}

var journalCountsCmd = &cobra.Command{
	Use:   "counts [run-id]",
	Short: "Tally a run's decisions by action (default: latest run)",
	Args:  cobra.MaximumNArgs(1),
	RunE: withJournal(func(cmd *cobra.Command, j *persistence.Journal, args []string) error {
		runID, err := resolveRun(j, args)
		if err != nil {
			return err
		}
		counts, err := j.ActionCounts(runID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "run %s\n", runID)
		return printCounts(cmd.OutOrStdout(), counts)
	}),
}

func init() {
	journalRecentCmd.Flags().IntVarP(&journalFlags.limit, "limit", "n", 20, "number of decisions to show")
	journalRecentCmd.Flags().Uint64Var(&journalFlags.agent, "agent", 0, "only show this agent's decisions")

	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalRecentCmd)
	journalCmd.AddCommand(journalCountsCmd)
}

// withJournal opens the configured journal around fn.
func withJournal(fn func(*cobra.Command, *persistence.Journal, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		j, err := persistence.Open(cfg.DB.Path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()
		return fn(cmd, j, args)
	}
}

var errNoRuns = errors.New("journal has no runs")

func resolveRun(j *persistence.Journal, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	runs, err := j.Runs()
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", errNoRuns
	}
	return runs[0].ID, nil
}

func printRuns(w io.Writer, runs []persistence.Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSEED\tAGENTS\tSTARTED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", r.ID, r.Seed, r.Agents, humanize.Time(r.StartedAt))
	}
	return tw.Flush()
}

func printRecords(w io.Writer, records []persistence.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FRAME\tAGENT\tACTION\tFROM\tTO\tCONF\tWHEN")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%.2f\t%s\n",
			r.Frame, r.AgentID, r.Action, r.FromState, r.ToState, r.Confidence, humanize.Time(r.DecidedAt))
	}
	return tw.Flush()
}

func printCounts(w io.Writer, counts []persistence.ActionCount) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTION\tCOUNT")
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%s\n", c.Action, humanize.Comma(int64(c.Count)))
	}
	return tw.Flush()
}
