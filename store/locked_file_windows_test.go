//go:build windows

package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
	gc "gopkg.in/check.v1"
)

type LockFileExSuite struct{}

func (s *LockFileExSuite) TestOpenTwice(c *gc.C) {
	var path = filepath.Join(c.MkDir(), "file")

	f1, err := openLockedFile(path, os.O_RDWR|os.O_CREATE, 0644)
	c.Assert(err, gc.IsNil)

	f2, err := openLockedFile(path, os.O_RDWR, 0644)
	c.Check(f2, gc.IsNil)
	c.Check(errors.Is(err, windows.ERROR_LOCK_VIOLATION), gc.Equals, true)
	c.Check(isLockContended(err), gc.Equals, true)

	c.Assert(f1.Close(), gc.IsNil)

	f2, err = openLockedFile(path, os.O_RDWR, 0644)
	c.Assert(err, gc.IsNil)
	c.Check(f2.Close(), gc.IsNil)
}

func (s *LockFileExSuite) TestLockLocation(c *gc.C) {
	var path = filepath.Join(c.MkDir(), "feed.db")

	f1, err := lockLocation(path)
	c.Assert(err, gc.IsNil)

	_, err = lockLocation(path)
	c.Check(errors.Is(err, ErrLocationLocked), gc.Equals, true)

	c.Assert(f1.Close(), gc.IsNil)
}

var _ = gc.Suite(&LockFileExSuite{})

func Test(t *testing.T) { gc.TestingT(t) }
