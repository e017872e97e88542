package fsops

import "os"

// FakeDirReader reads the real filesystem but fails on selected paths
// Lets tests exercise unreadable directories without chmod (root ignores it)
type FakeDirReader struct {
	Fail  map[string]error
	Reads []string
}

func (f *FakeDirReader) ReadDir(path string) ([]os.DirEntry, error) {
	f.Reads = append(f.Reads, path)
	if err, ok := f.Fail[path]; ok {
		return nil, err
	}
	return os.ReadDir(path)
}
