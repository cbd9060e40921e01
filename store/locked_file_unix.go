//go:build unix

package store

import (
	stderrors "errors"
	"os"
	"syscall"
)

type flockedFile struct {
	file *os.File
}

func openLockedFile(path string, flag int, perm os.FileMode) (lockedFile, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}
	if err = setFileLock(f, true); err != nil {
		f.Close()
		return nil, err
	}
	return &flockedFile{file: f}, nil
}

func (f *flockedFile) File() *os.File {
	return f.file
}

func (f *flockedFile) Close() error {
	if err := setFileLock(f.file, false); err != nil {
		return err
	}
	return f.file.Close()
}

func setFileLock(f *os.File, lock bool) error {
	how := syscall.LOCK_UN
	if lock {
		how = syscall.LOCK_EX
	}
	return syscall.Flock(int(f.Fd()), how|syscall.LOCK_NB)
}

func isLockContended(err error) bool {
	return stderrors.Is(err, syscall.EWOULDBLOCK)
}
