package filesystem

import (
	"context"
	"io"
	"os"
	"time"
)

// Backend is the minimal set of operations a backing store has to offer.
// Paths are absolute and slash-separated. A missing path yields an error
// matching [fs.ErrNotExist], a refused one an error matching
// [fs.ErrPermission].
type Backend interface {
	Name() string
	Stat(ctx context.Context, name string) (os.FileInfo, error)
	ReadDir(ctx context.Context, name string) ([]os.FileInfo, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Create creates a new file and fails when name already exists.
	Create(ctx context.Context, name string) (io.WriteCloser, error)
	MkdirAll(ctx context.Context, name string) error
	// Remove removes a file or an empty directory.
	Remove(ctx context.Context, name string) error
	RemoveAll(ctx context.Context, name string) error
	// Rename replaces newpath if it exists.
	Rename(ctx context.Context, oldpath, newpath string) error
	Usage(ctx context.Context) (DiskStats, error)
	Close() error
}

// Kind is the type of an entry in the store.
type Kind int

const (
	KindNotFound Kind = iota
	KindFile
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "not found"
	}
}

// FileInfo describes a single entry, addressed by its absolute path.
type FileInfo struct {
	Path    string
	Kind    Kind
	Size    int64
	ModTime time.Time
}

type DiskStats struct {
	TotalSize uint64
	FreeSpace uint64
}
