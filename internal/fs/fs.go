package fs

import (
	"io/fs"
	"os"
	"path/filepath"
)

// FS is a directory-rooted file system that still knows its location on disk,
// so callers can turn entries back into host paths.
type FS interface {
	fs.FS
	RootDir() string
	Abs(name string) string
}

var _ FS = (*rootDirFS)(nil)

func New(entry string) FS {
	return &rootDirFS{entry: entry, FS: os.DirFS(entry)}
}

type rootDirFS struct {
	fs.FS
	entry string
}

func (r rootDirFS) RootDir() string {
	return r.entry
}

// Abs maps name onto the host file system. Absolute names are returned as is.
func (r rootDirFS) Abs(name string) string {
	if filepath.IsAbs(name) {
		return name
	}

	return filepath.Join(r.entry, name)
}
