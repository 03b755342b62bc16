package fixture

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	ifs "github.com/robotomize/go-httpspec/internal/fs"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()

	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(`{}`), 0o644); err != nil {
			t.Fatalf("os.WriteFile: %v", err)
		}
	}
}

func TestResolver_Lookup(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		files    []string
		dirs     []string
		id       int
		expected string
		err      error
	}{
		{
			name:     "test_single_match",
			files:    []string{"7.json", "8.json", "test.http"},
			id:       7,
			expected: "7.json",
		},
		{
			name:     "test_multi_dot_extension",
			files:    []string{"3.expected.json"},
			id:       3,
			expected: "3.expected.json",
		},
		{
			name:     "test_lexicographic_first",
			files:    []string{"5.xml", "5.json", "5.txt"},
			id:       5,
			expected: "5.json",
		},
		{
			name:  "test_prefix_is_not_enough",
			files: []string{"17.json", "1x.json"},
			id:    1,
			err:   ErrNoResult,
		},
		{
			name:  "test_spec_file_skipped",
			files: []string{"1.http"},
			id:    1,
			err:   ErrNoResult,
		},
		{
			name:  "test_no_extension",
			files: []string{"4"},
			id:    4,
			err:   ErrNoResult,
		},
		{
			name: "test_directory_skipped",
			dirs: []string{"2.json"},
			id:   2,
			err:  ErrNoResult,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(
			tc.name, func(t *testing.T) {
				t.Parallel()

				dir := t.TempDir()
				writeFiles(t, dir, tc.files...)
				for _, d := range tc.dirs {
					if err := os.Mkdir(filepath.Join(dir, d), 0o755); err != nil {
						t.Fatalf("os.Mkdir: %v", err)
					}
				}

				got, err := New(ifs.New(dir)).Lookup(tc.id)
				if tc.err != nil {
					if !errors.Is(err, tc.err) {
						t.Fatalf("got: %v, want: %v", err, tc.err)
					}
					return
				}

				if err != nil {
					t.Fatalf("Lookup: %v", err)
				}

				if diff := cmp.Diff(filepath.Join(dir, tc.expected), got); diff != "" {
					t.Errorf("mismatch (-want, +got):\n%s", diff)
				}
			},
		)
	}
}

func TestResolver_LookupMissingDir(t *testing.T) {
	t.Parallel()

	_, err := New(ifs.New(filepath.Join(t.TempDir(), "absent"))).Lookup(1)
	if !errors.Is(err, ErrNoResult) {
		t.Errorf("got: %v, want: %v", err, ErrNoResult)
	}
}

func TestResolver_Locate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "fixtures"), 0o755); err != nil {
		t.Fatalf("os.Mkdir: %v", err)
	}
	writeFiles(t, dir, "f.json", filepath.Join("fixtures", "1.json"))

	r := New(ifs.New(dir))

	got, err := r.Locate("fixtures/1.json")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if diff := cmp.Diff(filepath.Join(dir, "fixtures", "1.json"), got); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	abs := filepath.Join(dir, "f.json")
	if got, err = r.Locate(abs); err != nil || got != abs {
		t.Errorf("got: %v %v, want: %v", got, err, abs)
	}

	if _, err := r.Locate("missing.json"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got: %v, want: %v", err, os.ErrNotExist)
	}

	if _, err := r.Locate("fixtures"); err == nil {
		t.Errorf("got: nil, want: directory error")
	}
}

// memFS is an in-memory ifs.FS rooted at a directory that does not exist on disk.
type memFS struct {
	fstest.MapFS
	root string
}

func (m memFS) RootDir() string {
	return m.root
}

func (m memFS) Abs(name string) string {
	if filepath.IsAbs(name) {
		return name
	}

	return filepath.Join(m.root, name)
}

func TestResolver_InMemoryFS(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "absent")
	r := New(
		memFS{
			root: root,
			MapFS: fstest.MapFS{
				"fixtures/1.json": {Data: []byte(`{}`)},
				"7.json":          {Data: []byte(`{}`)},
			},
		},
	)

	testCases := []struct {
		name     string
		pth      string
		expected string
	}{
		{name: "test_nested", pth: "fixtures/1.json", expected: filepath.Join(root, "fixtures", "1.json")},
		{name: "test_dot_prefix", pth: "./7.json", expected: filepath.Join(root, "7.json")},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(
			tc.name, func(t *testing.T) {
				t.Parallel()

				got, err := r.Locate(tc.pth)
				if err != nil {
					t.Fatalf("Locate: %v", err)
				}

				if diff := cmp.Diff(tc.expected, got); diff != "" {
					t.Errorf("mismatch (-want, +got):\n%s", diff)
				}
			},
		)
	}

	if _, err := r.Locate("fixtures"); err == nil {
		t.Errorf("got: nil, want: directory error")
	}

	if _, err := r.Locate("missing.json"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("got: %v, want: %v", err, fs.ErrNotExist)
	}

	got, err := r.Lookup(7)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	if diff := cmp.Diff(filepath.Join(root, "7.json"), got); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
}
