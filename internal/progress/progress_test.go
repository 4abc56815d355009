package progress

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"filewatch/internal/organize"
	"filewatch/pkg/testutils"
	"filewatch/pkg/types"

	alsrt "github.com/alecthomas/assert"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func start(t types.ActionType, dry bool) organize.ActionStart {
	return organize.ActionStart{
		ActionRef: organize.ActionRef{Rule: "r", Index: 2, Total: 3},
		Type:      t,
		Action:    &types.Action{Type: t},
		DryRun:    dry,
	}
}

func TestHeader(t *testing.T) {
	tests := []struct {
		start    organize.ActionStart
		expected string
	}{
		{start(types.Move, false), "[2/3] 🚚 executing move..."},
		{start(types.Rename, false), "[2/3] 📝 executing rename..."},
		{start(types.Delete, true), "[2/3] 🗑️ executing delete... (dry run)"},
		{start(types.Copy, false), "[2/3] 📋 executing copy..."},
		{start(types.Link, false), "[2/3] 🔗 executing link..."},
		{start(types.Chmod, false), "[2/3] 🔐 executing chmod..."},
	}
	for _, tt := range tests {
		t.Run(tt.start.Type.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, Header(tt.start))
		})
	}
	assert.Equal(t, "⚙️", Emoji(types.ActionType(42)))
}

func TestModelCountsFiles(t *testing.T) {
	m := newModel(start(types.Move, false), 3)
	alsrt.Equal(t, 0.0, m.percent())

	var tm tea.Model = m
	tm, cmd := tm.Update(fileMsg{result: types.FileResult{SourcePath: "/in/a"}})
	alsrt.True(t, cmd == nil)
	tm, _ = tm.Update(fileMsg{result: types.FileResult{SourcePath: "/in/b", Error: errors.New("boom")}})

	m = tm.(model)
	alsrt.Equal(t, 2, m.done)
	alsrt.Equal(t, 1, m.failed)

	view := testutils.StripANSI(m.View())
	alsrt.Contains(t, view, "[2/3] 🚚 executing move...")
	alsrt.Contains(t, view, "2/3")
	alsrt.Contains(t, view, "(1 failed)")
	alsrt.False(t, strings.Contains(view, "matched"))

	tm, cmd = tm.Update(finishMsg{summary: organize.ActionSummary{Matched: 3, Succeeded: 2, Failed: 1}})
	alsrt.True(t, cmd != nil)
	alsrt.Equal(t, tea.Quit(), cmd())
	view = testutils.StripANSI(tm.View())
	alsrt.Contains(t, view, "! 3 files matched, 2 files done, 1 failure")

	tm, _ = tm.Update(tea.WindowSizeMsg{Width: 30})
	alsrt.Equal(t, 18, tm.(model).bar.Width)
	tm, _ = tm.Update(tea.WindowSizeMsg{Width: 300})
	alsrt.Equal(t, maxBarWidth, tm.(model).bar.Width)
}

func TestSummaryText(t *testing.T) {
	tests := []struct {
		name     string
		summary  organize.ActionSummary
		expected string
	}{
		{"live", organize.ActionSummary{Matched: 1, Succeeded: 1}, "✓ 1 file matched, 1 file done"},
		{"dry run", organize.ActionSummary{Matched: 2, Succeeded: 2, DryRun: true}, "✓ 2 files matched, 2 files planned"},
		{"unchanged", organize.ActionSummary{Matched: 2, Succeeded: 1, Skipped: 1}, "✓ 2 files matched, 1 file done, 1 file unchanged"},
		{"failures", organize.ActionSummary{Matched: 3, Succeeded: 1, Failed: 2}, "! 3 files matched, 1 file done, 2 failures"},
		{"could not run", organize.ActionSummary{Err: errors.New("no such dir")}, "✗ action failed: no such dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, summaryText(tt.summary))
		})
	}
}

func TestLines(t *testing.T) {
	var buf bytes.Buffer
	l := NewLines(&buf)

	s := start(types.Move, true)
	l.RuleStarted("photos", &types.Rule{})
	l.ActionStarted(s)
	l.FilesMatched(s, 2)
	l.FileProcessed(types.FileResult{Action: types.Move, SourcePath: "/in/a.jpg", DestinationPath: "/out/a.jpg", DryRun: true})
	l.FileProcessed(types.FileResult{Action: types.Move, SourcePath: "/in/b.jpg", DryRun: true, Skipped: true})
	l.FileProcessed(types.FileResult{Action: types.Move, SourcePath: "/in/c.jpg", Error: errors.New("failed to open source file: /in/c.jpg")})
	l.ActionFinished(organize.ActionSummary{Matched: 3, Succeeded: 1, Skipped: 1, Failed: 1, DryRun: true})
	l.RuleFinished(organize.RuleSummary{Name: "photos"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "rule photos", lines[0])
	assert.Equal(t, "[2/3] 🚚 executing move... (dry run)", lines[1])
	assert.Equal(t, "  would move /in/a.jpg -> /out/a.jpg", lines[2])
	assert.Equal(t, "  ✗ failed to open source file: /in/c.jpg", lines[3])
	assert.Equal(t, "  ! 3 files matched, 1 file planned, 1 file unchanged, 1 failure", lines[4])
}

func TestBarRendersAction(t *testing.T) {
	var buf bytes.Buffer
	b := NewBar(&buf)

	s := start(types.Copy, false)
	b.RuleStarted("backup", &types.Rule{})
	b.ActionStarted(s)
	b.FilesMatched(s, 2)
	b.FileProcessed(types.FileResult{Action: types.Copy, SourcePath: "/in/a"})
	b.FileProcessed(types.FileResult{Action: types.Copy, SourcePath: "/in/b", Error: errors.New("disk full")})

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		b.ActionFinished(organize.ActionSummary{Matched: 2, Succeeded: 1, Failed: 1})
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("progress program did not stop")
	}

	out := testutils.StripANSI(buf.String())
	assert.Contains(t, out, "rule backup")
	assert.Contains(t, out, "executing copy...")
	assert.Contains(t, out, "✗ disk full")
	assert.Contains(t, out, "2 files matched")

	t.Run("nothing matched", func(t *testing.T) {
		buf.Reset()
		b.ActionStarted(s)
		b.FilesMatched(s, 0)
		b.ActionFinished(organize.ActionSummary{})
		out := testutils.StripANSI(buf.String())
		assert.Contains(t, out, "[2/3] 📋 executing copy...")
		assert.Contains(t, out, "✓ 0 files matched, 0 files done")
	})
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, &organize.RunSummary{
		DryRun:    true,
		Cancelled: true,
		Duration:  1500 * time.Millisecond,
		Rules: []organize.RuleSummary{
			{Name: "a", Actions: []organize.ActionSummary{{Matched: 4, Succeeded: 3, Skipped: 1}}},
			{Name: "b", Actions: []organize.ActionSummary{{Err: errors.New("bad")}}},
		},
	})
	out := buf.String()
	assert.Contains(t, out, "2 rules, 4 files matched, 3 planned, 1 unchanged, 0 failures in 1.5s, 1 action could not run")
	assert.Contains(t, out, "run cancelled")
}

func TestForOutputPicksReporter(t *testing.T) {
	f, err := createTemp(t)
	require.NoError(t, err)
	assert.False(t, IsTerminal(f))
	assert.IsType(t, &Lines{}, ForOutput(f))
}
