package organize

import (
	"path/filepath"

	"filewatch/internal/errors"
	"filewatch/internal/pattern"
	"filewatch/pkg/types"
)

// job holds what every file of one action shares
type job struct {
	ref     ActionRef
	action  *types.Action
	root    string
	matcher *pattern.Matcher
}

// apply performs the action on one path. It returns the target path (if the
// kind has one) and whether there was nothing to do.
func (e *Engine) apply(j *job, path string) (target string, skipped bool, err error) {
	switch j.action.Type {
	case types.Rename:
		return e.rename(j, path)
	case types.Move:
		return e.move(j, path)
	case types.Copy:
		return e.copy(j, path)
	case types.Link:
		return e.link(j, path)
	case types.Delete:
		return "", false, e.delete(path)
	case types.Chmod:
		return "", false, e.chmod(j, path)
	default:
		return "", false, errors.NewConfigError("unknown action type", j.action.Type.String(), errors.InvalidConfig, nil)
	}
}

func (e *Engine) rename(j *job, path string) (string, bool, error) {
	target, err := pattern.RenamePath(j.root, path, j.matcher, j.action.RenamePattern)
	if err != nil {
		return "", false, err
	}
	// path comparison only, so case-only renames still happen on case-insensitive filesystems
	if absPath(path) == absPath(target) {
		return target, true, nil
	}
	if e.opts.DryRun {
		return target, false, nil
	}
	if err := e.ensureDir(filepath.Dir(target)); err != nil {
		return target, false, err
	}
	if err := e.fs.Rename(path, target); err != nil {
		return target, false, errors.NewFileOpError("rename file", path, err)
	}
	return target, false, nil
}

// move copies then removes the source. It is not atomic: if the removal
// fails the file exists in both places and the error is reported.
func (e *Engine) move(j *job, path string) (string, bool, error) {
	target := filepath.Join(j.action.DestinationDir, filepath.Base(path))
	if sameFile(e.fs, path, target) {
		return target, true, nil
	}
	if e.opts.DryRun {
		return target, false, nil
	}
	if err := e.ensureDir(j.action.DestinationDir); err != nil {
		return target, false, err
	}
	if err := copyFile(e.fs, path, target); err != nil {
		return target, false, err
	}
	if err := e.fs.Remove(path); err != nil {
		return target, false, errors.NewFileOpError("remove moved file", path, err)
	}
	return target, false, nil
}

func (e *Engine) copy(j *job, path string) (string, bool, error) {
	target := filepath.Join(j.action.DestinationDir, filepath.Base(path))
	if sameFile(e.fs, path, target) {
		return target, true, nil
	}
	if e.opts.DryRun {
		return target, false, nil
	}
	if err := e.ensureDir(j.action.DestinationDir); err != nil {
		return target, false, err
	}
	return target, false, copyFile(e.fs, path, target)
}

func (e *Engine) link(j *job, path string) (string, bool, error) {
	target := filepath.Join(j.action.DestinationDir, filepath.Base(path))
	if sameFile(e.fs, path, target) {
		return target, true, nil
	}
	if e.opts.DryRun {
		return target, false, nil
	}
	linker, ok := e.fs.(Linker)
	if !ok {
		return target, false, errors.NewFileError("filesystem does not support hard links", path, errors.InvalidOperation, nil)
	}
	if err := e.ensureDir(j.action.DestinationDir); err != nil {
		return target, false, err
	}
	if err := linker.Link(path, target); err != nil {
		return target, false, errors.NewFileOpError("create hard link for", path, err)
	}
	return target, false, nil
}

func (e *Engine) delete(path string) error {
	if e.opts.DryRun {
		return nil
	}
	if err := e.fs.Remove(path); err != nil {
		return errors.NewFileOpError("delete file", path, err)
	}
	return nil
}

func (e *Engine) chmod(j *job, path string) error {
	if e.opts.DryRun {
		return nil
	}
	if err := e.fs.Chmod(path, j.action.Permissions.OSMode()); err != nil {
		return errors.NewFileOpError("change mode of", path, err)
	}
	return nil
}

// ensureDir creates dir when directory creation is enabled. Never called
// in dry-run mode.
func (e *Engine) ensureDir(dir string) error {
	if !e.opts.CreateDirs {
		return nil
	}
	if err := e.fs.MkdirAll(dir, 0o755); err != nil {
		return errors.NewFileOpError("create directory", dir, err)
	}
	return nil
}
