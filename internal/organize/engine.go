// Package organize executes rules: for each action it scans the watch
// directory, then applies the action to every matching file on a bounded
// worker pool.
package organize

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"filewatch/internal/errors"
	"filewatch/internal/log"
	"filewatch/internal/pattern"
	"filewatch/internal/scan"
	"filewatch/pkg/types"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// Options controls how the engine applies actions
type Options struct {
	DryRun     bool // Compute and report, never touch the filesystem
	Verbose    bool // Log every notification as a structured line ahead of the reporter
	CreateDirs bool // Create destination and rename-target directories on live runs
	Workers    int  // Parallel files per action, NumCPU when <= 0
}

// DefaultOptions returns live-run options with directory creation enabled
func DefaultOptions() Options {
	return Options{CreateDirs: true, Workers: runtime.NumCPU()}
}

// Engine executes actions, rules and rule sets
type Engine struct {
	fs       afero.Fs
	scanner  *scan.Scanner
	opts     Options
	reporter Reporter
}

// New creates an engine with DefaultOptions
func New() *Engine {
	return NewWithOptions(DefaultOptions())
}

// NewWithOptions creates an engine over the OS filesystem
func NewWithOptions(opts Options) *Engine {
	e := &Engine{opts: opts, reporter: NewLogReporter(nil)}
	e.SetFs(NewOsFs())
	return e
}

// SetFs replaces the filesystem used for scanning and file operations
func (e *Engine) SetFs(fs afero.Fs) {
	e.fs = fs
	e.scanner = scan.NewWithFs(fs)
}

// SetReporter replaces the progress reporter. nil disables reporting,
// except for the log lines of verbose mode.
func (e *Engine) SetReporter(r Reporter) {
	if r == nil {
		r = NopReporter{}
	}
	if e.opts.Verbose {
		r = Reporters(NewLogReporter(nil), r)
	}
	e.reporter = r
}

func (e *Engine) workers() int {
	if e.opts.Workers > 0 {
		return e.opts.Workers
	}
	return runtime.NumCPU()
}

// Run executes every rule of rs in declaration order. A failing rule does
// not stop the next one. The context is checked between rules and between
// actions; an action that has started always runs to completion.
func (e *Engine) Run(ctx context.Context, rs *types.RuleSet) *RunSummary {
	start := time.Now()
	summary := &RunSummary{DryRun: e.opts.DryRun}

	for _, nr := range rs.Rules() {
		if ctx.Err() != nil {
			summary.Cancelled = true
			log.LogWithFields(log.F("next_rule", nr.Name)).Warn("Run cancelled")
			break
		}
		rule := e.ExecuteRule(ctx, nr.Name, nr.Rule)
		summary.Rules = append(summary.Rules, rule)
		if rule.Cancelled {
			summary.Cancelled = true
			break
		}
	}

	summary.Duration = time.Since(start)
	return summary
}

// ExecuteRule executes the rule's actions strictly in order. A failed
// action is reported and the next action still runs.
func (e *Engine) ExecuteRule(ctx context.Context, name string, rule *types.Rule) RuleSummary {
	summary := RuleSummary{Name: name}
	e.reporter.RuleStarted(name, rule)

	if _, err := rule.ParseInterval(); err != nil {
		log.LogWithFields(log.F("rule", name)).WithError(err).Warn("Ignoring invalid interval")
	}

	for i := range rule.Actions {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}
		ref := ActionRef{Rule: name, Index: i + 1, Total: len(rule.Actions)}
		action, err := e.ExecuteAction(ctx, ref, &rule.Actions[i])
		if err != nil {
			action.Err = errors.NewRuleError(
				fmt.Sprintf("action %d/%d (%s) failed", ref.Index, ref.Total, rule.Actions[i].Type),
				name, errors.ActionFailed, err)
		}
		summary.Actions = append(summary.Actions, action)
	}

	e.reporter.RuleFinished(summary)
	return summary
}

// ExecuteAction validates the action, scans its watch directory and applies
// it to every match in parallel. It fails only when the action cannot run
// at all: missing parameters, an invalid pattern or an unreadable watch
// directory. Per-file failures are reported and counted in the summary.
func (e *Engine) ExecuteAction(ctx context.Context, ref ActionRef, action *types.Action) (summary ActionSummary, err error) {
	started := time.Now()
	summary = ActionSummary{ActionRef: ref, Type: action.Type, DryRun: e.opts.DryRun}
	start := ActionStart{ActionRef: ref, Type: action.Type, Action: action, DryRun: e.opts.DryRun}
	e.reporter.ActionStarted(start)
	defer func() {
		summary.Duration = time.Since(started)
		summary.Err = err
		e.reporter.ActionFinished(summary)
	}()

	if err = action.Validate(); err != nil {
		return summary, err
	}
	selector, err := pattern.NewSelector(action.MatchRegex, action.Exclude)
	if err != nil {
		return summary, err
	}
	res, err := e.scanner.Scan(action.WatchDir, selector)
	if err != nil {
		return summary, err
	}
	summary.Matched = len(res.Paths)
	summary.ScanSkipped = res.Skipped
	e.reporter.FilesMatched(start, len(res.Paths))

	j := &job{ref: ref, action: action, root: res.Root, matcher: selector.Matcher}
	summary.Results = e.dispatch(j, res.Paths)
	for _, r := range summary.Results {
		switch {
		case r.Error != nil:
			summary.Failed++
		case r.Skipped:
			summary.Skipped++
		default:
			summary.Succeeded++
		}
	}
	return summary, nil
}

// dispatch runs apply for every path with at most workers() in flight.
// Each task owns one slot of the result slice.
func (e *Engine) dispatch(j *job, paths []string) []types.FileResult {
	results := make([]types.FileResult, len(paths))

	var g errgroup.Group
	g.SetLimit(e.workers())
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			results[i] = e.processFile(j, path)
			e.notifyFile(results[i])
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// notifyFile hands res to the reporter. A panicking reporter loses the
// notification but not the worker.
func (e *Engine) notifyFile(res types.FileResult) {
	defer func() {
		if r := recover(); r != nil {
			log.LogWithFields(log.F("path", res.SourcePath), log.F("panic", fmt.Sprint(r))).
				Error("Reporter panicked while handling a file result")
		}
	}()
	e.reporter.FileProcessed(res)
}

func (e *Engine) processFile(j *job, path string) (res types.FileResult) {
	res = types.FileResult{
		Rule:        j.ref.Rule,
		ActionIndex: j.ref.Index,
		Action:      j.action.Type,
		SourcePath:  path,
		DryRun:      e.opts.DryRun,
	}
	defer func() {
		if r := recover(); r != nil {
			res.Error = errors.NewFileError(fmt.Sprintf("panic during %s: %v", j.action.Type, r), path, errors.ActionFailed, nil)
		}
	}()

	res.DestinationPath, res.Skipped, res.Error = e.apply(j, path)
	return res
}
