// Package contents implements the notebook contents operations (get, save,
// rename, delete, copy and checkpoints) on top of a [filesystem.Handler].
package contents

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/Automattic/hdfscm/internal/checkpoints"
	"github.com/Automattic/hdfscm/internal/filesystem"
	"github.com/Automattic/hdfscm/internal/pathing"
)

// DefaultHideGlobs are the names left out of directory listings unless
// configured otherwise.
//
//nolint:gochecknoglobals
var DefaultHideGlobs = []string{
	"__pycache__", "*.pyc", "*.pyo", ".DS_Store", "*.so", "*.dylib", "*~",
}

type fsProvider interface {
	Info(ctx context.Context, name string) (*filesystem.FileInfo, error)
	Kind(ctx context.Context, name string) filesystem.Kind
	Exists(ctx context.Context, name string) bool
	IsFile(ctx context.Context, name string) bool
	IsDir(ctx context.Context, name string) bool
	List(ctx context.Context, dir string) ([]*filesystem.FileInfo, error)
	IsEmptyFolder(ctx context.Context, dir string, ignore ...string) (bool, error)
	ReadAll(ctx context.Context, name string) ([]byte, error)
	WriteAtomic(ctx context.Context, name string, data []byte) error
	Copy(ctx context.Context, src, dst string) error
	Mkdir(ctx context.Context, dir string) error
	DeleteFile(ctx context.Context, name string) error
	DeleteDir(ctx context.Context, dir string) error
	Move(ctx context.Context, oldpath, newpath string) error
	GetDiskUsage(ctx context.Context) (filesystem.DiskStats, error)
	HasEnoughFreeSpace(ctx context.Context, minFree uint64, fileSize uint64) (bool, error)
}

type Options struct {
	RootDir      string
	SharedDir    string
	AllowHidden  bool
	HideGlobs    []string
	MinFreeBytes uint64
}

// Manager serves contents models from the personal root directory and the
// shared directory of a backing store.
type Manager struct {
	fsHandler   fsProvider
	checkpoints checkpoints.Checkpoints
	resolver    *pathing.Resolver
	opts        Options
}

func NewManager(fsHandler fsProvider, cp checkpoints.Checkpoints, opts Options) *Manager {
	if cp == nil {
		cp = checkpoints.NoOp{}
	}
	if opts.HideGlobs == nil {
		opts.HideGlobs = DefaultHideGlobs
	}

	resolver := pathing.NewResolver(opts.RootDir, opts.SharedDir)
	opts.RootDir = resolver.RootDir
	opts.SharedDir = resolver.SharedDir

	return &Manager{
		fsHandler:   fsHandler,
		checkpoints: cp,
		resolver:    resolver,
		opts:        opts,
	}
}

func (m *Manager) RootDir() string {
	return m.opts.RootDir
}

func (m *Manager) SharedDir() string {
	return m.opts.SharedDir
}

// EnsureRootDirectory creates the root directory along with the "shared"
// directory inside it, which only serves as a listing entry for the shared
// directory.
func (m *Manager) EnsureRootDirectory(ctx context.Context) error {
	slog.Debug("Creating root notebooks directory", "path", m.opts.RootDir)

	if err := m.fsHandler.Mkdir(ctx, m.opts.RootDir); err != nil {
		return fmt.Errorf("(contents-root) failed to create root dir: %w", err)
	}

	sharedTarget := path.Join(m.opts.RootDir, pathing.SharedSegment)
	slog.Debug("Creating shared notebooks directory (fake target)", "path", sharedTarget)

	if err := m.fsHandler.Mkdir(ctx, sharedTarget); err != nil {
		return fmt.Errorf("(contents-root) failed to create shared dir: %w", err)
	}

	return nil
}

func (m *Manager) InfoString() string {
	return "Serving notebooks from HDFS directory: " + m.opts.RootDir
}

// Exists reports whether apiPath is an existing file or directory.
func (m *Manager) Exists(ctx context.Context, apiPath string) bool {
	fsPath, err := m.resolver.FSPath(apiPath)
	if err != nil {
		return false
	}

	return m.fsHandler.Exists(ctx, fsPath)
}

func (m *Manager) FileExists(ctx context.Context, apiPath string) bool {
	fsPath, err := m.resolver.FSPath(apiPath)
	if err != nil {
		return false
	}

	return m.fsHandler.IsFile(ctx, fsPath)
}

func (m *Manager) DirExists(ctx context.Context, apiPath string) bool {
	fsPath, err := m.resolver.FSPath(apiPath)
	if err != nil {
		return false
	}

	return m.fsHandler.IsDir(ctx, fsPath)
}

// IsHidden reports whether any segment of apiPath starts with a dot.
func (m *Manager) IsHidden(apiPath string) bool {
	fsPath, err := m.resolver.FSPath(apiPath)
	if err != nil {
		return false
	}

	return m.resolver.Hidden(fsPath)
}

// Usage returns the disk usage of the backing store.
func (m *Manager) Usage(ctx context.Context) (filesystem.DiskStats, error) {
	stats, err := m.fsHandler.GetDiskUsage(ctx)
	if err != nil {
		return filesystem.DiskStats{}, fmt.Errorf("(contents-usage) %w", err)
	}

	return stats, nil
}

func (m *Manager) shouldList(name string) bool {
	for _, glob := range m.opts.HideGlobs {
		if ok, _ := path.Match(glob, name); ok {
			return false
		}
	}

	return true
}

func (m *Manager) fsPath(apiPath string) (string, error) {
	fsPath, err := m.resolver.FSPath(apiPath)
	if err != nil {
		return "", storeError(err, apiPath, "resolving")
	}

	return fsPath, nil
}

func (m *Manager) modelFromInfo(info *filesystem.FileInfo, typ string) *Model {
	apiPath := m.resolver.APIPath(info.Path)
	_, name := pathing.Split(apiPath)

	if typ == "" {
		switch {
		case info.Kind == filesystem.KindDirectory:
			typ = TypeDirectory
		case path.Ext(apiPath) == notebookExt:
			typ = TypeNotebook
		default:
			typ = TypeFile
		}
	}

	model := &Model{
		Name:         name,
		Path:         apiPath,
		Type:         typ,
		Created:      info.ModTime,
		LastModified: info.ModTime,
		Writable:     true,
	}

	if typ == TypeFile {
		model.Mimetype = guessMimetype(apiPath)
	}
	if typ != TypeDirectory {
		model.Size = ptr(info.Size)
	}

	return model
}
