//go:build windows

package store

import (
	stderrors "errors"
	"os"

	"golang.org/x/sys/windows"
)

type lockFileExFile struct {
	file *os.File
}

func openLockedFile(path string, flag int, perm os.FileMode) (lockedFile, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}
	var ol windows.Overlapped
	if err = windows.LockFileEx(windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY, 0, 1, 0, &ol); err != nil {
		f.Close()
		return nil, err
	}
	return &lockFileExFile{file: f}, nil
}

func (f *lockFileExFile) File() *os.File { return f.file }

func (f *lockFileExFile) Close() error {
	var ol windows.Overlapped
	if err := windows.UnlockFileEx(windows.Handle(f.file.Fd()), 0, 1, 0, &ol); err != nil {
		return err
	}
	return f.file.Close()
}

func isLockContended(err error) bool {
	return stderrors.Is(err, windows.ERROR_LOCK_VIOLATION)
}
