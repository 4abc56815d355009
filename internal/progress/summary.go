package progress

import (
	"fmt"
	"io"
	"time"

	"filewatch/internal/organize"
)

// PrintSummary writes the end-of-run totals to w
func PrintSummary(w io.Writer, s *organize.RunSummary) {
	matched, succeeded, failed, skipped := s.Totals()
	verb := "changed"
	if s.DryRun {
		verb = "planned"
	}

	line := fmt.Sprintf("%s, %s matched, %d %s, %d unchanged, %s in %s",
		plural(len(s.Rules), "rule"), plural(matched, "file"), succeeded, verb, skipped,
		plural(failed, "failure"), s.Duration.Round(time.Millisecond))

	c := okColor
	if failed > 0 {
		c = warnColor
	}
	if n := s.FailedActions(); n > 0 {
		c = errorColor
		line += fmt.Sprintf(", %s could not run", plural(n, "action"))
	}
	writeLine(w, c.Sprint(line))

	if s.Cancelled {
		writeLine(w, warnColor.Sprint("run cancelled before all rules finished"))
	}
}
