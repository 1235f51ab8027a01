package filesystem

import (
	"os"

	"golang.org/x/sys/unix"
)

type OS struct{}

func (*OS) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

func (*OS) ReadDir(name string) ([]os.DirEntry, error) {
	return os.ReadDir(name)
}

func (*OS) Open(name string) (*os.File, error) {
	return os.Open(name)
}

func (*OS) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}

func (*OS) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (*OS) Remove(name string) error {
	return os.Remove(name)
}

func (*OS) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (*OS) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

type Unix struct{}

func (*Unix) Statfs(path string, buf *unix.Statfs_t) error {
	return unix.Statfs(path, buf)
}
