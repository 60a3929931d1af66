// Package source abstracts where file content comes from so the usage
// heuristic can run against the filesystem or an in-memory fixture.
package source

import (
	"fmt"
	"io/fs"
	"os"
)

// ContentSource provides file content from a specific source.
type ContentSource interface {
	// Read returns the content of the file at path.
	Read(path string) ([]byte, error)
}

// FilesystemSource reads files from the local filesystem.
type FilesystemSource struct{}

// NewFilesystem creates a source that reads from the filesystem.
func NewFilesystem() *FilesystemSource {
	return &FilesystemSource{}
}

// Read implements ContentSource.
func (f *FilesystemSource) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// MemorySource serves content from a map keyed by path.
// It is read-only after construction and safe for concurrent use.
type MemorySource map[string]string

// Read implements ContentSource.
func (m MemorySource) Read(path string) ([]byte, error) {
	content, ok := m[path]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: path, Err: fs.ErrNotExist}
	}
	return []byte(content), nil
}

// Paths returns the keys of the source, in no particular order.
func (m MemorySource) Paths() []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	return paths
}

func (m MemorySource) String() string {
	return fmt.Sprintf("MemorySource(%d files)", len(m))
}
