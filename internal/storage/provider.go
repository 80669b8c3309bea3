// Package storage confines file access to one directory: the export target
// and the import inbox.
package storage

import (
	"io/fs"
	"time"
)

// FileInfo describes a file found by List.
type FileInfo struct {
	Path      string
	Checksum  string
	UpdatedAt time.Time
}

// Provider is the file access used by exporters and the import inbox. Paths
// are relative to the provider's root.
type Provider interface {
	// List returns every file under dir whose name ends in ext.
	List(dir, ext string) ([]FileInfo, error)
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	Move(oldPath, newPath string) error
	Stat(path string) (fs.FileInfo, error)
}
