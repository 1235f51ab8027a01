package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
)

type usageProvider interface {
	GetDiskUsage(ctx context.Context) (DiskStats, error)
	HasEnoughFreeSpace(ctx context.Context, minFree uint64, fileSize uint64) (bool, error)
}

// Handler offers the file operations the contents layer needs on top of a
// [Backend].
type Handler struct {
	backend      Backend
	usageHandler usageProvider
	verifyCopies bool
}

func NewHandler(ctx context.Context, backend Backend, verifyCopies bool) *Handler {
	return &Handler{
		backend:      backend,
		usageHandler: NewDiskUsageCacher(ctx, backend),
		verifyCopies: verifyCopies,
	}
}

func (f *Handler) Backend() Backend {
	return f.backend
}

// Info returns the [FileInfo] for name. A missing name is not an error, the
// returned info has [KindNotFound] instead.
func (f *Handler) Info(ctx context.Context, name string) (*FileInfo, error) {
	fi, err := f.backend.Stat(ctx, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &FileInfo{Path: name, Kind: KindNotFound}, nil
		}

		return nil, fmt.Errorf("(fs-info) failed to stat: %w", err)
	}

	return toFileInfo(name, fi), nil
}

func (f *Handler) Kind(ctx context.Context, name string) Kind {
	info, err := f.Info(ctx, name)
	if err != nil {
		slog.Debug("Failed to stat path (treated as missing)",
			"path", name,
			"err", err,
		)

		return KindNotFound
	}

	return info.Kind
}

func (f *Handler) Exists(ctx context.Context, name string) bool {
	return f.Kind(ctx, name) != KindNotFound
}

func (f *Handler) IsFile(ctx context.Context, name string) bool {
	return f.Kind(ctx, name) == KindFile
}

func (f *Handler) IsDir(ctx context.Context, name string) bool {
	return f.Kind(ctx, name) == KindDirectory
}

// List returns the direct children of dir, sorted by name.
func (f *Handler) List(ctx context.Context, dir string) ([]*FileInfo, error) {
	entries, err := f.backend.ReadDir(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("(fs-list) failed to readdir: %w", err)
	}

	infos := make([]*FileInfo, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, toFileInfo(path.Join(dir, e.Name()), e))
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Path < infos[j].Path
	})

	return infos, nil
}

// IsEmptyFolder reports whether dir has no children besides the ignored
// names.
func (f *Handler) IsEmptyFolder(ctx context.Context, dir string, ignore ...string) (bool, error) {
	entries, err := f.backend.ReadDir(ctx, dir)
	if err != nil {
		return false, fmt.Errorf("(fs-isempty) failed to readdir: %w", err)
	}

	for _, e := range entries {
		ignored := false
		for _, name := range ignore {
			if e.Name() == name {
				ignored = true

				break
			}
		}
		if !ignored {
			return false, nil
		}
	}

	return true, nil
}

func (f *Handler) Mkdir(ctx context.Context, dir string) error {
	if err := f.backend.MkdirAll(ctx, dir); err != nil {
		return fmt.Errorf("(fs-mkdir) %w", err)
	}

	return nil
}

func (f *Handler) DeleteFile(ctx context.Context, name string) error {
	if err := f.backend.Remove(ctx, name); err != nil {
		return fmt.Errorf("(fs-delfile) %w", err)
	}

	return nil
}

// DeleteDir removes dir and everything below it.
func (f *Handler) DeleteDir(ctx context.Context, dir string) error {
	if err := f.backend.RemoveAll(ctx, dir); err != nil {
		return fmt.Errorf("(fs-deldir) %w", err)
	}

	return nil
}

func (f *Handler) Move(ctx context.Context, oldpath, newpath string) error {
	if err := f.backend.Rename(ctx, oldpath, newpath); err != nil {
		return fmt.Errorf("(fs-move) %w", err)
	}

	return nil
}

func (f *Handler) GetDiskUsage(ctx context.Context) (DiskStats, error) {
	return f.usageHandler.GetDiskUsage(ctx)
}

func (f *Handler) HasEnoughFreeSpace(ctx context.Context, minFree uint64, fileSize uint64) (bool, error) {
	return f.usageHandler.HasEnoughFreeSpace(ctx, minFree, fileSize)
}

func toFileInfo(name string, fi fs.FileInfo) *FileInfo {
	info := &FileInfo{
		Path:    name,
		Kind:    KindFile,
		Size:    fi.Size(),
		ModTime: fi.ModTime().UTC(),
	}
	if fi.IsDir() {
		info.Kind = KindDirectory
		info.Size = 0
	}

	return info
}
