package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var ErrInvalidRoot = errors.New("scan root does not exist or is not a directory")

// Scanner walks a root and, for every directory it meets, hands each
// immediate subdirectory with its matching files to the visitor. Symlinked
// subdirectories are visited but not walked.
type Scanner struct {
	Extensions []string
	// OnDirError is called for a subdirectory whose listing failed. The
	// scan continues with its siblings.
	OnDirError func(dir string, err error)
}

func (s Scanner) Scan(root string, visit func(Directory, []string) error) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrInvalidRoot, root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			// Already reported while listing it from its parent.
			if path == root {
				s.dirError(path, err)
			}
			return fs.SkipDir
		}
		for _, e := range entries {
			child := filepath.Join(path, e.Name())
			if !isDir(child, e) {
				continue
			}
			files, err := s.listFiles(child)
			if err != nil {
				s.dirError(child, err)
				continue
			}
			if len(files) == 0 {
				continue
			}
			rel, err := filepath.Rel(root, child)
			if err != nil {
				return err
			}
			dir := Directory{Path: child, Rel: filepath.ToSlash(rel), Name: e.Name()}
			if err := visit(dir, files); err != nil {
				return err
			}
		}
		return nil
	})
}

// listFiles returns the matching files directly inside dir, sorted by name.
func (s Scanner) listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	exts := s.Extensions
	if len(exts) == 0 {
		exts = []string{".pdf"}
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, want := range exts {
			if ext == want {
				out = append(out, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	return out, nil
}

// isDir also accepts a symlink to a directory. The walk lists such a link
// but does not descend into it.
func isDir(path string, e fs.DirEntry) bool {
	if e.Type()&fs.ModeSymlink == 0 {
		return e.IsDir()
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (s Scanner) dirError(dir string, err error) {
	if s.OnDirError != nil {
		s.OnDirError(dir, err)
	}
}
