package organize

import (
	"io"
	"os"
	"path/filepath"

	"filewatch/internal/errors"

	"github.com/spf13/afero"
)

// Linker is implemented by filesystems that can create hard links
type Linker interface {
	Link(oldname, newname string) error
}

// osFs is the OS filesystem with hard link support
type osFs struct {
	afero.OsFs
}

// Link implements Linker
func (osFs) Link(oldname, newname string) error {
	return os.Link(oldname, newname)
}

// NewOsFs returns the filesystem the engine uses by default
func NewOsFs() afero.Fs {
	return &osFs{}
}

// copyFile copies the contents and permission bits of src to dst,
// replacing dst if it exists. It refuses to write when dst is src under
// another name, since truncating dst would empty the source.
func copyFile(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return errors.NewFileOpError("open source file", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return errors.NewFileOpError("stat source file", src, err)
	}
	if !info.Mode().IsRegular() {
		return errors.NewFileError("not a regular file", src, errors.InvalidInputData, nil)
	}

	if dstInfo, err := fs.Stat(dst); err == nil && os.SameFile(info, dstInfo) {
		return errors.NewFileError("source and destination are the same file", dst, errors.InvalidOperation, nil)
	}

	out, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.NewFileOpError("create destination file", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.NewFileOpError("copy file contents", dst, err)
	}
	if err := out.Close(); err != nil {
		return errors.NewFileOpError("close destination file", dst, err)
	}
	if err := fs.Chmod(dst, info.Mode().Perm()); err != nil {
		return errors.NewFileOpError("set permissions on", dst, err)
	}
	return nil
}

// sameFile reports whether a and b name the same file: equal absolute
// paths, or two existing paths resolving to one file (symlinked
// directories, hard links).
func sameFile(fs afero.Fs, a, b string) bool {
	if absPath(a) == absPath(b) {
		return true
	}
	ai, err := fs.Stat(a)
	if err != nil {
		return false
	}
	bi, err := fs.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
