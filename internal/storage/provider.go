// Package storage defines the workspace file-system abstraction.
//
// Directories double as both existence records and primary keys for the
// content tree, so every consumer goes through Repository instead of the
// os package directly. Paths are slash-separated and relative to the
// workspace root.
package storage

import "time"

// Repository is the interface for workspace directory and file operations.
type Repository interface {
	// ListDirs returns the names of the immediate subdirectories of dir,
	// in unspecified order. A missing dir yields an empty slice, not an error.
	ListDirs(dir string) ([]string, error)
	// DirExists reports whether path exists and is a directory.
	DirExists(path string) (bool, error)
	// CountFiles returns the number of regular files directly inside dir.
	// A missing dir counts as zero.
	CountFiles(dir string) (int, error)
	// ListFiles returns the names of the regular files directly inside dir,
	// in unspecified order. A missing dir yields an empty slice.
	ListFiles(dir string) ([]string, error)
	// RemoveFile removes the single regular file at path.
	RemoveFile(path string) error
	// ReadFile returns the raw bytes of the file at path.
	ReadFile(path string) ([]byte, error)
	// WriteFile atomically writes data to path, creating parent directories.
	WriteFile(path string, data []byte) error
	// MkdirAll creates path and any missing parents.
	MkdirAll(path string) error
	// RemoveAll removes path and everything below it.
	RemoveAll(path string) error
	// Rename moves oldPath to newPath.
	Rename(oldPath, newPath string) error
	// ModTime returns the last-modified time of path.
	ModTime(path string) (time.Time, error)
}
