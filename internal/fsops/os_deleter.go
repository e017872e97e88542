package fsops

import "os"

// OSDeleter implements Deleter using real os package calls
type OSDeleter struct{}

func (OSDeleter) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// OSDirReader implements DirReader with os.ReadDir
type OSDirReader struct{}

func (OSDirReader) ReadDir(path string) ([]os.DirEntry, error) {
	return os.ReadDir(path)
}
