package organize

import (
	"context"

	"filewatch/pkg/types"
)

// Executor runs rules against the filesystem.
// This allows for dependency injection in the CLI and in tests.
type Executor interface {
	// SetReporter replaces the progress reporter
	SetReporter(r Reporter)

	// ExecuteAction applies one action to every file it matches
	ExecuteAction(ctx context.Context, ref ActionRef, action *types.Action) (ActionSummary, error)

	// ExecuteRule applies a rule's actions in order
	ExecuteRule(ctx context.Context, name string, rule *types.Rule) RuleSummary

	// Run applies every rule of a rule set in order
	Run(ctx context.Context, rs *types.RuleSet) *RunSummary
}

// Ensure Engine implements the Executor interface
var _ Executor = (*Engine)(nil)
