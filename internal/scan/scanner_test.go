package scan

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"filewatch/internal/errors"
	"filewatch/internal/pattern"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, fs afero.Fs, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(name), 0644))
	}
}

func TestScanMatchesRelativePaths(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := filepath.FromSlash("/in")
	writeFiles(t, fs, root, "a.log", "b.txt", "logs/c.log", "logs/deep/d.log", "logs/e.txt")

	s := NewWithFs(fs)
	res, err := s.Scan(root, pattern.MustCompile(`\.log$`))
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "a.log"),
		filepath.Join(root, "logs", "c.log"),
		filepath.Join(root, "logs", "deep", "d.log"),
	}, res.Paths)
	assert.Equal(t, 5, res.Visited)
	assert.Zero(t, res.Skipped)

	t.Run("anchored on subtree", func(t *testing.T) {
		sub, err := s.Scan(root, pattern.MustCompile(`^logs/[^/]+\.log$`))
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "logs", "c.log")}, sub.Paths)
	})

	t.Run("no match is not an error", func(t *testing.T) {
		none, err := s.Scan(root, pattern.MustCompile(`\.pdf$`))
		require.NoError(t, err)
		assert.Empty(t, none.Paths)
	})

	t.Run("deterministic order", func(t *testing.T) {
		again, err := s.Scan(root, pattern.MustCompile(`\.log$`))
		require.NoError(t, err)
		assert.Equal(t, res.Paths, again.Paths)
	})
}

func TestScanDirectoriesAreNotCandidates(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := filepath.FromSlash("/in")
	require.NoError(t, fs.MkdirAll(filepath.Join(root, "match.log"), 0755))
	writeFiles(t, fs, root, "match.log/inner.txt")

	res, err := NewWithFs(fs).Scan(root, pattern.MustCompile(`\.log$`))
	require.NoError(t, err)
	assert.Empty(t, res.Paths)
}

func TestScanRootErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, "/", "file.txt")
	s := NewWithFs(fs)

	_, err := s.Scan(filepath.FromSlash("/missing"), pattern.MustCompile(`.`))
	require.Error(t, err)
	assert.True(t, errors.IsScanError(err))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = s.Scan(filepath.FromSlash("/file.txt"), pattern.MustCompile(`.`))
	require.Error(t, err)
	assert.True(t, errors.IsScanError(err))
}

func TestScanSkipsSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	outside := t.TempDir()
	writeFiles(t, afero.NewOsFs(), root, "real.log")
	writeFiles(t, afero.NewOsFs(), outside, "elsewhere.log")
	require.NoError(t, os.Symlink(filepath.Join(root, "real.log"), filepath.Join(root, "alias.log")))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "linked-dir")))

	res, err := NewWithFs(afero.NewOsFs()).Scan(root, pattern.MustCompile(`\.log$`))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "real.log")}, res.Paths)
}

func TestScanSkipsUnreadableSubdirectory(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for this user")
	}
	root := t.TempDir()
	writeFiles(t, afero.NewOsFs(), root, "ok.log", "locked/hidden.log")
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	res, err := NewWithFs(afero.NewOsFs()).Scan(root, pattern.MustCompile(`\.log$`))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "ok.log")}, res.Paths)
	assert.Equal(t, 1, res.Skipped)
}

func TestScanFollowsSymlinkedRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	target := t.TempDir()
	writeFiles(t, afero.NewOsFs(), target, "a.log", "nested/b.log", "c.txt")

	base := t.TempDir()
	link := filepath.Join(base, "watch")
	require.NoError(t, os.Symlink(target, link))
	chained := filepath.Join(base, "watch-again")
	require.NoError(t, os.Symlink("watch", chained))

	for _, root := range []string{link, chained} {
		res, err := NewWithFs(afero.NewOsFs()).Scan(root, pattern.MustCompile(`\.log$`))
		require.NoError(t, err)
		assert.Equal(t, target, res.Root)
		assert.Equal(t, []string{
			filepath.Join(target, "a.log"),
			filepath.Join(target, "nested", "b.log"),
		}, res.Paths)
	}

	t.Run("dangling link", func(t *testing.T) {
		dangling := filepath.Join(base, "dangling")
		require.NoError(t, os.Symlink(filepath.Join(base, "gone"), dangling))
		_, err := NewWithFs(afero.NewOsFs()).Scan(dangling, pattern.MustCompile(`.`))
		require.Error(t, err)
		assert.True(t, errors.IsScanError(err))
	})

	t.Run("link loop", func(t *testing.T) {
		loop := filepath.Join(base, "loop")
		require.NoError(t, os.Symlink("loop", loop))
		_, err := NewWithFs(afero.NewOsFs()).Scan(loop, pattern.MustCompile(`.`))
		require.Error(t, err)
		assert.True(t, errors.IsScanError(err))
	})
}
