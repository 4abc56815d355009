// Package testutils holds fixtures shared by package tests.
package testutils

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// CreateTestFilesWithContent creates files below dir. Names may contain
// slashes; parent directories are created as needed.
func CreateTestFilesWithContent(t *testing.T, fs afero.Fs, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
}

// Entry is one snapshotted filesystem entry
type Entry struct {
	Dir     bool
	Mode    os.FileMode
	Content string
}

// SnapshotDir records every entry below dir keyed by slash-separated
// relative path, so two snapshots can be compared with require.Equal.
func SnapshotDir(t *testing.T, fs afero.Fs, dir string) map[string]Entry {
	t.Helper()
	snap := make(map[string]Entry)
	err := afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		e := Entry{Dir: info.IsDir(), Mode: info.Mode()}
		if info.Mode().IsRegular() {
			data, err := afero.ReadFile(fs, path)
			if err != nil {
				return err
			}
			e.Content = string(data)
		}
		snap[filepath.ToSlash(rel)] = e
		return nil
	})
	require.NoError(t, err)
	return snap
}

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

// StripANSI removes ANSI escape sequences from a string
func StripANSI(str string) string {
	return ansiRe.ReplaceAllString(str, "")
}
