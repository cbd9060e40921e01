package store

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type lockedFile interface {
	// Returns the locked file.
	File() *os.File
	// Closes file and releases held file lock.
	Close() error
}

// ErrLocationLocked is the underlying error of an Open of a storage location
// which is already held by another Store, of this or another process.
var ErrLocationLocked = errors.New("storage location is locked by another store")

// lockLocation takes the exclusive lock of the storage location |path|. The
// lock is held over the sibling file "<path>.lock", into which the PID of the
// holding process is written.
func lockLocation(path string) (lockedFile, error) {
	var lockPath = path + ".lock"

	var f, err = openLockedFile(lockPath, os.O_RDWR|os.O_CREATE, 0644)
	if isLockContended(err) {
		var holder, _ = os.ReadFile(lockPath)
		return nil, errors.WithMessagef(ErrLocationLocked, "%s (held by pid %s)",
			lockPath, strings.TrimSpace(string(holder)))
	} else if err != nil {
		return nil, errors.WithMessage(err, "opening lock file")
	}

	if err = f.File().Truncate(0); err == nil {
		_, err = f.File().WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}
	if err != nil {
		_ = f.Close()
		return nil, errors.WithMessage(err, "writing lock file")
	}
	return f, nil
}
