package progress

import (
	"io"
	"sync"

	"filewatch/internal/organize"
	"filewatch/pkg/types"

	"github.com/fatih/color"
)

var (
	ruleColor    = color.New(color.Bold)
	headerColor  = color.New(color.FgCyan)
	okColor      = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	plannedColor = color.New(color.FgWhite, color.Faint)
)

// Lines prints one line per rule and action, plus a line for each failed
// file. In dry-run mode every planned change is listed too.
type Lines struct {
	mu  sync.Mutex
	out io.Writer
}

// NewLines creates a line reporter writing to out
func NewLines(out io.Writer) *Lines {
	return &Lines{out: out}
}

func (l *Lines) print(c *color.Color, s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	writeLine(l.out, c.Sprint(s))
}

func (l *Lines) RuleStarted(name string, _ *types.Rule) {
	l.print(ruleColor, "rule "+name)
}

func (l *Lines) ActionStarted(start organize.ActionStart) {
	l.print(headerColor, Header(start))
}

func (l *Lines) FilesMatched(organize.ActionStart, int) {}

func (l *Lines) FileProcessed(res types.FileResult) {
	switch {
	case res.Error != nil:
		l.print(errorColor, "  ✗ "+res.Error.Error())
	case res.DryRun && !res.Skipped:
		l.print(plannedColor, "  would "+res.Action.String()+" "+fileLine(res))
	}
}

func (l *Lines) ActionFinished(s organize.ActionSummary) {
	l.print(summaryColor(s), "  "+summaryText(s))
}

func (l *Lines) RuleFinished(organize.RuleSummary) {}

func summaryColor(s organize.ActionSummary) *color.Color {
	switch {
	case s.Err != nil:
		return errorColor
	case s.Failed > 0:
		return warnColor
	default:
		return okColor
	}
}

func summaryText(s organize.ActionSummary) string {
	if s.Err != nil {
		return "✗ action failed: " + s.Err.Error()
	}
	verb := "done"
	if s.DryRun {
		verb = "planned"
	}
	body := plural(s.Matched, "file") + " matched, " + plural(s.Succeeded, "file") + " " + verb
	if s.Skipped > 0 {
		body += ", " + plural(s.Skipped, "file") + " unchanged"
	}
	if s.Failed > 0 {
		return "! " + body + ", " + plural(s.Failed, "failure")
	}
	return "✓ " + body
}

var _ organize.Reporter = (*Lines)(nil)
