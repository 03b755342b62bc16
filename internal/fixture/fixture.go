// Package fixture locates expected-result files next to a spec file.
package fixture

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	ifs "github.com/robotomize/go-httpspec/internal/fs"
)

// ErrNoResult is returned when a case has no usable expected-result file.
var ErrNoResult = errors.New("no output result is defined")

// specExt is skipped during id lookup so "1.http" never shadows "1.json".
const specExt = "http"

func New(fsys ifs.FS) *Resolver {
	return &Resolver{fsys: fsys}
}

type Resolver struct {
	fsys ifs.FS
}

// Lookup returns the path of the first entry, in lexicographic order, whose name
// before the first dot equals id.
func (r *Resolver) Lookup(id int) (string, error) {
	entries, err := fs.ReadDir(r.fsys, ".")
	if err != nil {
		return "", fmt.Errorf("%w: fs.ReadDir %s: %v", ErrNoResult, r.fsys.RootDir(), err)
	}

	want := strconv.Itoa(id)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !utf8.ValidString(name) {
			return "", fmt.Errorf("%w: undecodable file name %q", ErrNoResult, name)
		}

		stem, ext, ok := strings.Cut(name, ".")
		if !ok || stem != want || ext == specExt {
			continue
		}

		return r.fsys.Abs(stem + "." + ext), nil
	}

	return "", fmt.Errorf("%w: no file for id %d in %s", ErrNoResult, id, r.fsys.RootDir())
}

// Locate resolves an explicitly declared path and checks that it is a regular
// file. Paths inside the root go through the resolver's file system; absolute
// paths and paths escaping the root are checked on the host.
func (r *Resolver) Locate(pth string) (string, error) {
	var (
		info fs.FileInfo
		err  error
	)

	name := filepath.ToSlash(filepath.Clean(pth))
	if !filepath.IsAbs(pth) && fs.ValidPath(name) {
		info, err = fs.Stat(r.fsys, name)
	} else {
		info, err = os.Stat(r.fsys.Abs(pth))
	}

	abs := r.fsys.Abs(filepath.FromSlash(name))
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", abs, err)
	}

	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", abs)
	}

	return abs, nil
}
