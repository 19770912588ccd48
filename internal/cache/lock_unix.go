//go:build unix

package cache

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockFile 对 path 加独占 flock，返回的函数负责解锁并关闭句柄。
func lockFile(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, entryMode)
	if err != nil {
		return nil, err
	}
	for {
		err = unix.Flock(int(f.Fd()), unix.LOCK_EX)
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}

func checkWritable(dir string) error {
	return unix.Access(dir, unix.W_OK)
}
