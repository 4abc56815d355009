package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"filewatch/pkg/testutils"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

// execute runs the root command with args and returns its stdout
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return testutils.StripANSI(out.String()), err
}

type workspace struct {
	in, out, rules, db string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	base := t.TempDir()
	ws := workspace{
		in:    filepath.Join(base, "in"),
		out:   filepath.Join(base, "out"),
		rules: filepath.Join(base, "rules.yaml"),
		db:    filepath.Join(base, "state", "history.db"),
	}
	require.NoError(t, os.MkdirAll(ws.in, 0o755))
	for _, name := range []string{"a.log", "b.log", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(ws.in, name), []byte(name), 0o644))
	}

	rules := fmt.Sprintf(`
logs:
  actions:
    - action: move
      watch_dir: '%s'
      match_regex: '\.log$'
      destination_dir: '%s'
`, ws.in, ws.out)
	require.NoError(t, os.WriteFile(ws.rules, []byte(rules), 0o644))
	return ws
}

func TestRunMovesMatchingFiles(t *testing.T) {
	ws := newWorkspace(t)
	metricsFile := filepath.Join(filepath.Dir(ws.rules), "filewatch.prom")

	out, err := execute(t, ws.rules, "--history-db", ws.db, "--metrics-file", metricsFile, "--workers", "2")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(ws.out, "a.log"))
	assert.FileExists(t, filepath.Join(ws.out, "b.log"))
	assert.NoFileExists(t, filepath.Join(ws.in, "a.log"))
	assert.FileExists(t, filepath.Join(ws.in, "c.txt"))

	assert.Contains(t, out, "rule logs")
	assert.Contains(t, out, "1 rule, 2 files matched, 2 changed, 0 unchanged, 0 failures")

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "filewatch_files_processed_total")

	t.Run("history lists the operations", func(t *testing.T) {
		out, err := execute(t, "history", "--history-db", ws.db)
		require.NoError(t, err)
		assert.Contains(t, out, "logs")
		assert.Contains(t, out, "move")
		assert.Contains(t, out, filepath.Join(ws.out, "a.log"))

		out, err = execute(t, "history", "--history-db", ws.db, "--failed")
		require.NoError(t, err)
		assert.Contains(t, out, "No operations recorded.")

		out, err = execute(t, "history", "--history-db", ws.db, "--runs")
		require.NoError(t, err)
		assert.Contains(t, out, ws.rules)
		assert.Contains(t, out, "finished")
	})
}

func TestDryRunChangesNothing(t *testing.T) {
	ws := newWorkspace(t)
	before := testutils.SnapshotDir(t, afero.NewOsFs(), filepath.Dir(ws.rules))

	out, err := execute(t, ws.rules, "--dry-run", "--no-history")
	require.NoError(t, err)

	assert.Equal(t, before, testutils.SnapshotDir(t, afero.NewOsFs(), filepath.Dir(ws.rules)))
	assert.Contains(t, out, "would move")
	assert.Contains(t, out, "2 planned")
}

func TestMissingRulesFile(t *testing.T) {
	_, err := execute(t, filepath.Join(t.TempDir(), "nope.yaml"), "--no-history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")
}

func TestExplicitHistoryDatabaseMustOpen(t *testing.T) {
	ws := newWorkspace(t)
	blocker := filepath.Join(filepath.Dir(ws.rules), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := execute(t, ws.rules, "--history-db", filepath.Join(blocker, "history.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history database")
	assert.FileExists(t, filepath.Join(ws.in, "a.log"), "no rule runs when the journal cannot open")
}

func TestValidateCommand(t *testing.T) {
	ws := newWorkspace(t)

	out, err := execute(t, "validate", ws.rules)
	require.NoError(t, err)
	assert.Contains(t, out, "1 rule(s), 1 action(s) OK")

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte(`
[[broken.actions]]
action = "rename"
watch_dir = "/tmp"
match_regex = "("

[empty]
interval = "soon"
`), 0o644))

	out, err = execute(t, "validate", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "problem(s) found")
	assert.Contains(t, out, "broken")
	assert.Contains(t, out, "empty")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "filewatch "+version)
}

func TestVerboseRunWritesLogFile(t *testing.T) {
	ws := newWorkspace(t)
	logFile := filepath.Join(filepath.Dir(ws.rules), "filewatch.log")

	out, err := execute(t, ws.rules, "--verbose", "--dry-run", "--no-history", "--log-file", logFile)
	require.NoError(t, err)
	assert.NotContains(t, out, "would move", "verbose runs log instead of printing progress lines")
	assert.Contains(t, out, "2 planned")

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), `msg="Executing rule"`)
	assert.Contains(t, string(content), `msg="Would move"`)
}
