package main

import (
	"fmt"
	"io"
	"time"

	"filewatch/internal/history"
	"filewatch/internal/log"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BE9FD"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
)

// NewHistoryCmd creates the history command
func NewHistoryCmd(flags *runFlags) *cobra.Command {
	var (
		limit      int
		rule       string
		failedOnly bool
		runs       bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs and file operations",
		Long: `Show the operations recorded by previous runs, newest first.
With --runs, list the runs themselves with their totals.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := history.Open(historyPath(flags), log.Default())
			if err != nil {
				return err
			}
			defer repo.Close()

			out := cmd.OutOrStdout()
			if runs {
				list, err := repo.RecentRuns(limit)
				if err != nil {
					return err
				}
				printRuns(out, list)
				return nil
			}

			ops, err := repo.Operations(history.Filter{Rule: rule, FailedOnly: failedOnly, Limit: limit})
			if err != nil {
				return err
			}
			printOperations(out, ops)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of rows")
	cmd.Flags().StringVar(&rule, "rule", "", "Only show operations of this rule")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only show failed operations")
	cmd.Flags().BoolVar(&runs, "runs", false, "List runs instead of operations")

	return cmd
}

func newTable() *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

func printOperations(w io.Writer, ops []*history.Operation) {
	if len(ops) == 0 {
		fmt.Fprintln(w, "No operations recorded.")
		return
	}

	t := newTable().Headers("TIME", "RULE", "STEP", "ACTION", "SOURCE", "DESTINATION", "OUTCOME")
	for _, op := range ops {
		outcome := op.Outcome
		if op.Error != "" {
			outcome = failedStyle.Render(op.Outcome + ": " + op.Error)
		}
		if op.DryRun {
			outcome += " (dry run)"
		}
		t.Row(
			op.Timestamp.Local().Format(time.DateTime),
			op.Rule,
			fmt.Sprint(op.ActionIndex),
			op.Action,
			op.SourcePath,
			op.DestinationPath,
			outcome,
		)
	}
	fmt.Fprintln(w, t.Render())
}

func printRuns(w io.Writer, runs []*history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	t := newTable().Headers("STARTED", "RULES FILE", "MATCHED", "DONE", "UNCHANGED", "FAILED", "STATUS")
	for _, r := range runs {
		status := "finished"
		switch {
		case r.FinishedAt.IsZero():
			status = "incomplete"
		case r.Cancelled:
			status = "cancelled"
		}
		if r.DryRun {
			status += " (dry run)"
		}
		failed := fmt.Sprint(r.Failed)
		if r.Failed > 0 {
			failed = failedStyle.Render(failed)
		}
		t.Row(
			r.StartedAt.Local().Format(time.DateTime),
			r.RulesFile,
			fmt.Sprint(r.Matched),
			fmt.Sprint(r.Succeeded),
			fmt.Sprint(r.Skipped),
			failed,
			status,
		)
	}
	fmt.Fprintln(w, t.Render())
}
