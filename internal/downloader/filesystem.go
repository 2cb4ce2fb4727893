package downloader

import (
	"io"
	"os"
)

// FileSystem abstracts the filesystem operations used while landing a
// download, so failure paths stay testable.
type FileSystem interface {
	MkdirAll(path string, perm os.FileMode) error
	Create(path string) (io.WriteCloser, error)
	Remove(path string) error
	Rename(oldPath, newPath string) error
}

// OSFileSystem implements FileSystem using the local OS.
type OSFileSystem struct{}

func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (OSFileSystem) Create(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

func (OSFileSystem) Remove(path string) error {
	return os.Remove(path)
}

func (OSFileSystem) Rename(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}
