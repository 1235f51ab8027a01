package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const (
	dirPerms  = 0o755
	filePerms = 0o644
)

type osProvider interface {
	Stat(name string) (os.FileInfo, error)
	ReadDir(name string) ([]os.DirEntry, error)
	Open(name string) (*os.File, error)
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
	MkdirAll(path string, perm os.FileMode) error
	Remove(name string) error
	RemoveAll(path string) error
	Rename(oldpath, newpath string) error
}

type unixProvider interface {
	Statfs(path string, buf *unix.Statfs_t) error
}

// Local is a [Backend] on the local disk. Store paths are mapped below
// baseDir, so "/user/alice/notebooks" lives at
// "<baseDir>/user/alice/notebooks".
type Local struct {
	baseDir     string
	osHandler   osProvider
	unixHandler unixProvider
}

func NewLocal(baseDir string, osHandler osProvider, unixHandler unixProvider) *Local {
	return &Local{
		baseDir:     baseDir,
		osHandler:   osHandler,
		unixHandler: unixHandler,
	}
}

func (l *Local) Name() string {
	return "local:" + l.baseDir
}

func (l *Local) localPath(name string) string {
	return filepath.Join(l.baseDir, filepath.FromSlash(path.Clean("/"+name)))
}

func (l *Local) Stat(ctx context.Context, name string) (os.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return l.osHandler.Stat(l.localPath(name))
}

func (l *Local) ReadDir(ctx context.Context, name string) ([]os.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := l.osHandler.ReadDir(l.localPath(name))
	if err != nil {
		return nil, err
	}

	infos := make([]os.FileInfo, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			// Vanished between the listing and the stat.
			continue
		}
		infos = append(infos, info)
	}

	return infos, nil
}

func (l *Local) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := l.osHandler.Open(l.localPath(name))
	if err != nil {
		return nil, err
	}

	return f, nil
}

func (l *Local) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := l.osHandler.OpenFile(l.localPath(name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, filePerms)
	if err != nil {
		return nil, err
	}

	return f, nil
}

func (l *Local) MkdirAll(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return l.osHandler.MkdirAll(l.localPath(name), dirPerms)
}

func (l *Local) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return l.osHandler.Remove(l.localPath(name))
}

func (l *Local) RemoveAll(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return l.osHandler.RemoveAll(l.localPath(name))
}

func (l *Local) Rename(ctx context.Context, oldpath, newpath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return l.osHandler.Rename(l.localPath(oldpath), l.localPath(newpath))
}

func (l *Local) Usage(ctx context.Context) (DiskStats, error) {
	if err := ctx.Err(); err != nil {
		return DiskStats{}, err
	}

	var stat unix.Statfs_t
	if err := l.unixHandler.Statfs(l.baseDir, &stat); err != nil {
		return DiskStats{}, fmt.Errorf("(fs-local) failed to statfs: %w", err)
	}

	return DiskStats{
		TotalSize: stat.Blocks * uint64(stat.Bsize), //nolint:gosec
		FreeSpace: stat.Bavail * uint64(stat.Bsize), //nolint:gosec
	}, nil
}

func (*Local) Close() error {
	return nil
}
