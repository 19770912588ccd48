//go:build !unix

package cache

import "os"

// lockFile 在非 unix 平台上退化为进程内锁，仅保证锁文件存在。
func lockFile(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, entryMode)
	if err != nil {
		return nil, err
	}
	return func() { f.Close() }, nil
}

func checkWritable(dir string) error {
	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return err
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}
