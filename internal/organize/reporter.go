package organize

import (
	"time"

	"filewatch/internal/log"
	"filewatch/pkg/types"
)

// ActionRef locates an action inside a run
type ActionRef struct {
	Rule  string
	Index int // 1-based
	Total int // number of actions in the rule
}

// ActionStart is sent when an action begins
type ActionStart struct {
	ActionRef
	Type   types.ActionType
	Action *types.Action
	DryRun bool
}

// ActionSummary is the outcome of one action
type ActionSummary struct {
	ActionRef
	Type        types.ActionType
	DryRun      bool
	Matched     int
	Succeeded   int
	Failed      int
	Skipped     int // files that needed no change
	ScanSkipped int // unreadable entries skipped by the scanner
	Duration    time.Duration
	Results     []types.FileResult
	Err         error // set when the action could not run at all
}

// OK reports whether the action ran and every file succeeded
func (s ActionSummary) OK() bool {
	return s.Err == nil && s.Failed == 0
}

// RuleSummary is the outcome of one rule
type RuleSummary struct {
	Name      string
	Actions   []ActionSummary
	Cancelled bool
}

// FailedActions counts actions that could not run
func (s RuleSummary) FailedActions() int {
	n := 0
	for _, a := range s.Actions {
		if a.Err != nil {
			n++
		}
	}
	return n
}

// RunSummary is the outcome of a whole rule set
type RunSummary struct {
	Rules     []RuleSummary
	DryRun    bool
	Cancelled bool
	Duration  time.Duration
}

// Totals returns file-level counts across every action in the run
func (s *RunSummary) Totals() (matched, succeeded, failed, skipped int) {
	for _, r := range s.Rules {
		for _, a := range r.Actions {
			matched += a.Matched
			succeeded += a.Succeeded
			failed += a.Failed
			skipped += a.Skipped
		}
	}
	return
}

// FailedActions counts actions across all rules that could not run
func (s *RunSummary) FailedActions() int {
	n := 0
	for _, r := range s.Rules {
		n += r.FailedActions()
	}
	return n
}

// Reporter receives progress notifications from the engine.
// FileProcessed is called from worker goroutines and must be safe for
// concurrent use. The other methods are called from the driver goroutine.
type Reporter interface {
	RuleStarted(name string, rule *types.Rule)
	ActionStarted(start ActionStart)
	FilesMatched(start ActionStart, count int)
	FileProcessed(result types.FileResult)
	ActionFinished(summary ActionSummary)
	RuleFinished(summary RuleSummary)
}

// NopReporter ignores every notification
type NopReporter struct{}

func (NopReporter) RuleStarted(string, *types.Rule)  {}
func (NopReporter) ActionStarted(ActionStart)        {}
func (NopReporter) FilesMatched(ActionStart, int)    {}
func (NopReporter) FileProcessed(types.FileResult)   {}
func (NopReporter) ActionFinished(ActionSummary)     {}
func (NopReporter) RuleFinished(RuleSummary)         {}

// MultiReporter fans notifications out to several reporters in order
type MultiReporter []Reporter

// Reporters builds a MultiReporter, dropping nil entries
func Reporters(rs ...Reporter) MultiReporter {
	out := make(MultiReporter, 0, len(rs))
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (m MultiReporter) RuleStarted(name string, rule *types.Rule) {
	for _, r := range m {
		r.RuleStarted(name, rule)
	}
}

func (m MultiReporter) ActionStarted(start ActionStart) {
	for _, r := range m {
		r.ActionStarted(start)
	}
}

func (m MultiReporter) FilesMatched(start ActionStart, count int) {
	for _, r := range m {
		r.FilesMatched(start, count)
	}
}

func (m MultiReporter) FileProcessed(result types.FileResult) {
	for _, r := range m {
		r.FileProcessed(result)
	}
}

func (m MultiReporter) ActionFinished(summary ActionSummary) {
	for _, r := range m {
		r.ActionFinished(summary)
	}
}

func (m MultiReporter) RuleFinished(summary RuleSummary) {
	for _, r := range m {
		r.RuleFinished(summary)
	}
}

// LogReporter writes every notification as a structured log line.
// It is the verbose-mode reporter and the engine default.
type LogReporter struct {
	logger *log.Logger
}

// NewLogReporter creates a reporter on logger, or on the default logger if nil
func NewLogReporter(logger *log.Logger) *LogReporter {
	if logger == nil {
		logger = log.Default()
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) RuleStarted(name string, rule *types.Rule) {
	r.logger.With(log.F("rule", name), log.F("actions", len(rule.Actions))).Info("Executing rule")
}

func (r *LogReporter) ActionStarted(start ActionStart) {
	r.logger.With(
		log.F("rule", start.Rule),
		log.F("step", start.Index),
		log.F("of", start.Total),
		log.F("action", start.Type.String()),
		log.F("dry_run", start.DryRun),
	).Info(start.Action.Describe())
}

func (r *LogReporter) FilesMatched(start ActionStart, count int) {
	r.logger.With(log.F("rule", start.Rule), log.F("action", start.Type.String()), log.F("matched", count)).
		Debug("Scan finished")
}

func (r *LogReporter) FileProcessed(res types.FileResult) {
	l := r.logger.With(log.F("rule", res.Rule), log.F("action", res.Action.String()), log.F("path", res.SourcePath))
	if res.DestinationPath != "" {
		l = l.With(log.F("target", res.DestinationPath))
	}
	switch {
	case res.Error != nil:
		l.WithError(res.Error).Error("Failed to " + res.Action.String() + " file")
	case res.Skipped:
		l.Debug("Nothing to do")
	case res.DryRun:
		l.Info("Would " + res.Action.String())
	default:
		l.Info(pastTense(res.Action))
	}
}

func (r *LogReporter) ActionFinished(s ActionSummary) {
	l := r.logger.With(
		log.F("rule", s.Rule),
		log.F("step", s.Index),
		log.F("action", s.Type.String()),
		log.F("matched", s.Matched),
		log.F("succeeded", s.Succeeded),
		log.F("failed", s.Failed),
		log.F("skipped", s.Skipped),
		log.F("duration", s.Duration.Round(time.Millisecond).String()),
	)
	switch {
	case s.Err != nil:
		l.WithError(s.Err).Error("Action failed")
	case s.Failed > 0:
		l.Warn("Action finished with errors")
	default:
		l.Info("Action finished")
	}
}

func (r *LogReporter) RuleFinished(s RuleSummary) {
	l := r.logger.With(log.F("rule", s.Name), log.F("failed_actions", s.FailedActions()))
	if s.Cancelled {
		l.Warn("Rule cancelled")
		return
	}
	l.Debug("Rule finished")
}

func pastTense(t types.ActionType) string {
	switch t {
	case types.Move:
		return "Moved"
	case types.Rename:
		return "Renamed"
	case types.Delete:
		return "Deleted"
	case types.Copy:
		return "Copied"
	case types.Link:
		return "Linked"
	case types.Chmod:
		return "Changed mode"
	default:
		return "Processed"
	}
}

var (
	_ Reporter = NopReporter{}
	_ Reporter = MultiReporter(nil)
	_ Reporter = (*LogReporter)(nil)
)
