package fsops

import "os"

// Deleter abstracts filesystem delete operations
// Enables mocking in tests to prove dry-run never deletes
type Deleter interface {
	RemoveAll(path string) error
}

// DirReader lists a directory's entries, sorted by name
type DirReader interface {
	ReadDir(path string) ([]os.DirEntry, error)
}
