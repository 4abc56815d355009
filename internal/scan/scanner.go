// Package scan enumerates the files under a watch directory that match an
// action's pattern.
//
// Symlinks below the watch directory are never followed: entries are
// inspected with lstat, so a symlink is neither descended into nor reported
// as a match. Only regular files are candidates. A watch directory that is
// itself a symlink is resolved first and walked at its target.
package scan

import (
	"os"
	"path/filepath"

	"filewatch/internal/errors"
	"filewatch/internal/log"
	"filewatch/internal/pattern"

	"github.com/spf13/afero"
)

// Filter decides whether a watch-root-relative path is selected
type Filter interface {
	Matches(rel string) bool
}

// Result is the outcome of one scan
type Result struct {
	Root    string
	Paths   []string // matching absolute paths, lexical order per directory
	Visited int      // regular files looked at
	Skipped int      // entries that could not be read and were skipped
}

// Scanner walks directory trees on a filesystem
type Scanner struct {
	fs afero.Fs
}

// maxLinkHops bounds symlink resolution of the watch directory
const maxLinkHops = 40

// NewWithFs creates a scanner over fs
func NewWithFs(fs afero.Fs) *Scanner {
	return &Scanner{fs: fs}
}

// Scan walks root and returns every regular file whose relative path is
// selected by filter. A root that is missing, unreadable or not a
// directory is a ScanError. Unreadable entries below the root are logged
// and skipped.
func (s *Scanner) Scan(root string, filter Filter) (*Result, error) {
	root, err := s.resolveRoot(filepath.Clean(root))
	if err != nil {
		return nil, err
	}

	info, err := s.fs.Stat(root)
	if err != nil {
		return nil, errors.NewScanError("cannot read watch directory", root, err)
	}
	if !info.IsDir() {
		return nil, errors.NewScanError("watch directory is not a directory", root, nil)
	}

	res := &Result{Root: root}
	logger := log.LogWithFields(log.F("watch_dir", root))

	err = afero.Walk(s.fs, root, func(path string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return errors.NewScanError("cannot read watch directory", root, walkErr)
			}
			res.Skipped++
			logger.With(log.F("path", path), log.F("error", walkErr.Error())).Warn("Skipping unreadable entry")
			return nil
		}
		if !fi.Mode().IsRegular() {
			return nil
		}
		res.Visited++

		rel, err := pattern.Relative(root, path)
		if err != nil {
			res.Skipped++
			logger.With(log.F("path", path)).Warn("Skipping entry outside watch directory")
			return nil
		}
		if filter.Matches(rel) {
			res.Paths = append(res.Paths, path)
		}
		return nil
	})
	if err != nil {
		if errors.IsScanError(err) {
			return nil, err
		}
		return nil, errors.NewScanError("failed to walk watch directory", root, err)
	}

	logger.With(log.F("matched", len(res.Paths)), log.F("visited", res.Visited)).Debug("Scan complete")
	return res, nil
}

// resolveRoot follows root while it is a symlink, on filesystems that can
// report and read links. The walk lstats its root, so an unresolved link
// would be seen as a file and yield nothing.
func (s *Scanner) resolveRoot(root string) (string, error) {
	lstater, ok := s.fs.(afero.Lstater)
	if !ok {
		return root, nil
	}
	reader, ok := s.fs.(afero.LinkReader)
	if !ok {
		return root, nil
	}

	original := root
	for i := 0; i < maxLinkHops; i++ {
		fi, lstatCalled, err := lstater.LstatIfPossible(root)
		if err != nil || !lstatCalled || fi.Mode()&os.ModeSymlink == 0 {
			if root != original {
				log.LogWithFields(log.F("watch_dir", original), log.F("resolved", root)).Debug("Resolved watch directory link")
			}
			return root, nil
		}
		target, err := reader.ReadlinkIfPossible(root)
		if err != nil {
			return "", errors.NewScanError("cannot resolve watch directory link", original, err)
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(root), target)
		}
		root = filepath.Clean(target)
	}
	return "", errors.NewScanError("too many levels of symbolic links in watch directory", original, nil)
}
