package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScannerVisitsSubdirectoriesWithMatchingFiles(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "top.pdf"))
	touch(t, filepath.Join(root, "Supplier", "b.pdf"))
	touch(t, filepath.Join(root, "Supplier", "a.PDF"))
	touch(t, filepath.Join(root, "Supplier", "notes.txt"))
	touch(t, filepath.Join(root, "Supplier", "Line", "c.pdf"))
	touch(t, filepath.Join(root, "Empty", "readme.txt"))

	type visit struct {
		rel   string
		files []string
	}
	var got []visit
	err := Scanner{}.Scan(root, func(dir Directory, files []string) error {
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = filepath.Base(f)
		}
		got = append(got, visit{rel: dir.Rel, files: names})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(got) != 2 {
		t.Fatalf("len=%d (%+v)", len(got), got)
	}
	if got[0].rel != "Supplier" || len(got[0].files) != 2 || got[0].files[0] != "a.PDF" || got[0].files[1] != "b.pdf" {
		t.Fatalf("unexpected first visit: %+v", got[0])
	}
	if got[1].rel != "Supplier/Line" || len(got[1].files) != 1 {
		t.Fatalf("unexpected second visit: %+v", got[1])
	}
}

func TestScannerExtensions(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "S", "a.pdf"))
	touch(t, filepath.Join(root, "S", "b.html"))

	var files []string
	err := Scanner{Extensions: []string{".html"}}.Scan(root, func(_ Directory, f []string) error {
		files = append(files, f...)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "b.html" {
		t.Fatalf("files=%v", files)
	}
}

func TestScannerInvalidRoot(t *testing.T) {
	err := Scanner{}.Scan(filepath.Join(t.TempDir(), "missing"), func(Directory, []string) error { return nil })
	if !errors.Is(err, ErrInvalidRoot) {
		t.Fatalf("err=%v", err)
	}
}

func TestScannerReportsUnreadableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	root := t.TempDir()
	touch(t, filepath.Join(root, "Locked", "a.pdf"))
	touch(t, filepath.Join(root, "Open", "b.pdf"))
	locked := filepath.Join(root, "Locked")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	defer os.Chmod(locked, 0o755)

	var reported []string
	var visited []string
	s := Scanner{OnDirError: func(dir string, err error) { reported = append(reported, dir) }}
	err := s.Scan(root, func(dir Directory, _ []string) error {
		visited = append(visited, dir.Rel)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(reported) != 1 || reported[0] != locked {
		t.Fatalf("reported=%v", reported)
	}
	if len(visited) != 1 || visited[0] != "Open" {
		t.Fatalf("visited=%v", visited)
	}
}

func TestScannerVisitsSymlinkedDirectories(t *testing.T) {
	tmp := t.TempDir()
	shared := filepath.Join(tmp, "shared", "Klarlack")
	touch(t, filepath.Join(shared, "a.pdf"))
	touch(t, filepath.Join(shared, "Nested", "b.pdf"))
	root := filepath.Join(tmp, "sds")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(shared, filepath.Join(root, "Klarlack")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	var visited []string
	err := Scanner{}.Scan(root, func(dir Directory, files []string) error {
		visited = append(visited, dir.Rel)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(visited) != 1 || visited[0] != "Klarlack" {
		t.Fatalf("visited=%v", visited)
	}
}
