// Package progress renders engine notifications for people: an animated
// bar on terminals and plain colored lines elsewhere.
package progress

import (
	"fmt"
	"io"
	"os"

	"filewatch/internal/organize"
	"filewatch/pkg/types"

	"github.com/mattn/go-isatty"
)

var emoji = map[types.ActionType]string{
	types.Move:   "🚚",
	types.Rename: "📝",
	types.Delete: "🗑️",
	types.Copy:   "📋",
	types.Link:   "🔗",
	types.Chmod:  "🔐",
}

// Emoji returns the symbol shown next to an action kind
func Emoji(t types.ActionType) string {
	if e, ok := emoji[t]; ok {
		return e
	}
	return "⚙️"
}

// Header is the one-line title of an action, e.g. "[1/3] 🚚 executing move..."
func Header(start organize.ActionStart) string {
	h := fmt.Sprintf("[%d/%d] %s executing %s...", start.Index, start.Total, Emoji(start.Type), start.Type)
	if start.DryRun {
		h += " (dry run)"
	}
	return h
}

// IsTerminal reports whether f is an interactive terminal
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ForOutput picks the visual reporter for a run: a progress bar on
// terminals, plain lines otherwise.
func ForOutput(out *os.File) organize.Reporter {
	if IsTerminal(out) {
		return NewBar(out)
	}
	return NewLines(out)
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func fileLine(res types.FileResult) string {
	if res.DestinationPath != "" {
		return res.SourcePath + " -> " + res.DestinationPath
	}
	return res.SourcePath
}

func writeLine(w io.Writer, s string) {
	_, _ = io.WriteString(w, s+"\n")
}
