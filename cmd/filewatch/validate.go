package main

import (
	"fmt"

	"filewatch/internal/config"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewValidateCmd creates the validate command
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [rules-file]",
		Short: "Check a rules file without touching any file",
		Long: `Parse the rules file and check every rule and action: intervals,
action types, required parameters, regular expressions, exclude globs
and permission bits. Every problem is reported, not only the first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rulesPath(args)
			rs, err := config.Load(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			problems := config.Validate(rs)
			if len(problems) > 0 {
				bad := color.New(color.FgRed)
				for _, p := range problems {
					bad.Fprintf(out, "✗ %v\n", p)
				}
				return fmt.Errorf("%s: %d problem(s) found", path, len(problems))
			}

			actions := 0
			for _, nr := range rs.Rules() {
				actions += len(nr.Rule.Actions)
			}
			color.New(color.FgGreen).Fprintf(out, "✓ %s: %d rule(s), %d action(s) OK\n", path, rs.Len(), actions)
			return nil
		},
	}
}
