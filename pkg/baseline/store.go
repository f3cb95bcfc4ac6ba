// Package baseline maps test screenshots to their expected, actual and diff
// image files on disk.
package baseline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"extest/pkg/pixels"
)

// DefaultDiffPrefix marks diff artifacts written next to actual screenshots.
const DefaultDiffPrefix = "diff-"

// Record ties a reported test name to its image files.
type Record struct {
	Name         string
	ExpectedPath string
	ActualPath   string
}

// ReadError is returned when a baseline is missing or cannot be decoded.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Store reads and writes image files. Relative paths are resolved against
// Root, or the working directory when Root is empty.
type Store struct {
	Root       string
	DiffPrefix string
}

// NewStore creates a Store rooted at root.
func NewStore(root string) *Store {
	return &Store{Root: root, DiffPrefix: DefaultDiffPrefix}
}

func (s *Store) resolve(path string) string {
	if s.Root == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.Root, path)
}

// Exists reports whether path names an existing file. Any stat error,
// not only "not found", reads as false.
func (s *Store) Exists(path string) bool {
	info, err := os.Stat(s.resolve(path))
	return err == nil && !info.IsDir()
}

// EnsureDir creates the parent directory chain of a file path.
func (s *Store) EnsureDir(path string) error {
	dir := filepath.Dir(s.resolve(path))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// Read decodes the image at path.
func (s *Store) Read(path string) (pixels.Buffer, error) {
	data, err := os.ReadFile(s.resolve(path))
	if err != nil {
		return pixels.Buffer{}, &ReadError{Path: path, Err: err}
	}
	buf, err := pixels.Decode(bytes.NewReader(data))
	if err != nil {
		return pixels.Buffer{}, &ReadError{Path: path, Err: err}
	}
	return buf, nil
}

// Write encodes buf as PNG at path, creating parent directories and
// overwriting any existing file.
func (s *Store) Write(path string, buf pixels.Buffer) error {
	data, err := pixels.EncodeBytes(buf)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return s.WriteBytes(path, data)
}

// WriteBytes stores an already encoded image.
func (s *Store) WriteBytes(path string, data []byte) error {
	if err := s.EnsureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(s.resolve(path), data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// DiffPath returns where the diff artifact for an actual screenshot goes:
// the same directory, with the file name prefixed.
func (s *Store) DiffPath(actualPath string) string {
	prefix := s.DiffPrefix
	if prefix == "" {
		prefix = DefaultDiffPrefix
	}
	dir, file := filepath.Split(actualPath)
	return filepath.Join(dir, prefix+file)
}

// Accept copies the actual screenshot of rec over its baseline.
func (s *Store) Accept(rec Record) error {
	buf, err := s.Read(rec.ActualPath)
	if err != nil {
		return err
	}
	return s.Write(rec.ExpectedPath, buf)
}
