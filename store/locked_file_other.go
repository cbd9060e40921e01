//go:build !unix && !windows

package store

import "os"

// Platforms without flock(2) or LockFileEx open the lock file without holding
// a lock, and exclusive use of a file location is not enforced.
type plainLockedFile struct {
	file *os.File
}

func openLockedFile(path string, flag int, perm os.FileMode) (lockedFile, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}
	return &plainLockedFile{file: f}, nil
}

func (f *plainLockedFile) File() *os.File { return f.file }
func (f *plainLockedFile) Close() error   { return f.file.Close() }

func isLockContended(error) bool { return false }
