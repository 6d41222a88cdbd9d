// Package source abstracts where analyzed file content comes from.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ContentSource provides file contents to analyzers.
type ContentSource interface {
	// ReadFile returns the content of the file at the given relative path.
	ReadFile(path string) ([]byte, error)
	// Files returns the relative paths available from this source.
	Files() ([]string, error)
	// Root returns the base path of the source, if any.
	Root() string
}

// FilesystemSource reads files from a directory tree on disk.
type FilesystemSource struct {
	root string
}

var _ ContentSource = (*FilesystemSource)(nil)

// NewFilesystemSource creates a source rooted at dir.
func NewFilesystemSource(dir string) *FilesystemSource {
	return &FilesystemSource{root: dir}
}

func (s *FilesystemSource) ReadFile(path string) ([]byte, error) {
	full := filepath.Join(s.root, path)
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func (s *FilesystemSource) Files() ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", s.root, err)
	}
	sort.Strings(files)
	return files, nil
}

func (s *FilesystemSource) Root() string { return s.root }

// MapSource serves content from an in-memory map keyed by relative path.
// Useful in tests.
type MapSource struct {
	files map[string][]byte
}

var _ ContentSource = (*MapSource)(nil)

// NewMapSource creates a source over the given path to content map.
func NewMapSource(files map[string][]byte) *MapSource {
	return &MapSource{files: files}
}

func (s *MapSource) ReadFile(path string) ([]byte, error) {
	data, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	return data, nil
}

func (s *MapSource) Files() ([]string, error) {
	files := make([]string, 0, len(s.files))
	for path := range s.files {
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

func (s *MapSource) Root() string { return "" }
