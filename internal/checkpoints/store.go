package checkpoints

import (
	"context"
	"crypto/md5" //nolint:gosec
	"encoding/hex"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/Automattic/hdfscm/internal/filesystem"
	"github.com/Automattic/hdfscm/internal/pathing"
)

// DefaultDir is the directory below the root directory holding checkpoints.
const DefaultDir = ".ipynb_checkpoints"

const hashPrefixLen = 8

type fsProvider interface {
	Info(ctx context.Context, name string) (*filesystem.FileInfo, error)
	IsFile(ctx context.Context, name string) bool
	Copy(ctx context.Context, src, dst string) error
	Move(ctx context.Context, oldpath, newpath string) error
	DeleteFile(ctx context.Context, name string) error
	Mkdir(ctx context.Context, dir string) error
}

type pathResolver interface {
	FSPath(apiPath string) (string, error)
}

// Store keeps checkpoints as plain files in one directory below the
// personal root. The file name of a checkpoint is derived from a hash of the
// api path, so files of the same name in different directories do not
// collide.
type Store struct {
	fsHandler fsProvider
	resolver  pathResolver
	rootDir   string
	dir       string
}

func NewStore(fsHandler fsProvider, resolver pathResolver, rootDir, dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}

	return &Store{
		fsHandler: fsHandler,
		resolver:  resolver,
		rootDir:   rootDir,
		dir:       dir,
	}
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Create(ctx context.Context, apiPath string) (*Checkpoint, error) {
	origPath, err := s.resolver.FSPath(apiPath)
	if err != nil {
		return nil, fmt.Errorf("(cp-create) %w", err)
	}

	if err := s.fsHandler.Mkdir(ctx, s.checkpointDir()); err != nil {
		return nil, fmt.Errorf("(cp-create) failed to create checkpoint dir: %w", err)
	}

	cpPath := s.checkpointPath(ID, apiPath)
	slog.Debug("Creating checkpoint", "path", cpPath)

	if err := s.fsHandler.Copy(ctx, origPath, cpPath); err != nil {
		return nil, fmt.Errorf("(cp-create) %w", err)
	}

	return s.model(ctx, ID, cpPath)
}

func (s *Store) Restore(ctx context.Context, id, apiPath string) error {
	origPath, err := s.resolver.FSPath(apiPath)
	if err != nil {
		return fmt.Errorf("(cp-restore) %w", err)
	}

	cpPath := s.checkpointPath(id, apiPath)
	if !s.fsHandler.IsFile(ctx, cpPath) {
		return fmt.Errorf("(cp-restore) %w: %s@%s", ErrNotFound, pathing.Normalize(apiPath), id)
	}

	slog.Debug("Restoring checkpoint", "path", cpPath)

	if err := s.fsHandler.Copy(ctx, cpPath, origPath); err != nil {
		return fmt.Errorf("(cp-restore) %w", err)
	}

	return nil
}

func (s *Store) Rename(ctx context.Context, id, oldPath, newPath string) error {
	oldCpPath := s.checkpointPath(id, oldPath)
	newCpPath := s.checkpointPath(id, newPath)

	if !s.fsHandler.IsFile(ctx, oldCpPath) {
		return nil
	}

	slog.Debug("Renaming checkpoint",
		"old", oldCpPath,
		"new", newCpPath,
	)

	if err := s.fsHandler.Move(ctx, oldCpPath, newCpPath); err != nil {
		return fmt.Errorf("(cp-rename) %w", err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, id, apiPath string) error {
	cpPath := s.checkpointPath(id, apiPath)

	if !s.fsHandler.IsFile(ctx, cpPath) {
		return fmt.Errorf("(cp-delete) %w: %s@%s", ErrNotFound, pathing.Normalize(apiPath), id)
	}

	slog.Debug("Deleting checkpoint", "path", cpPath)

	if err := s.fsHandler.DeleteFile(ctx, cpPath); err != nil {
		return fmt.Errorf("(cp-delete) %w", err)
	}

	return nil
}

func (s *Store) List(ctx context.Context, apiPath string) ([]*Checkpoint, error) {
	cpPath := s.checkpointPath(ID, apiPath)

	if !s.fsHandler.IsFile(ctx, cpPath) {
		return []*Checkpoint{}, nil
	}

	cp, err := s.model(ctx, ID, cpPath)
	if err != nil {
		return nil, fmt.Errorf("(cp-list) %w", err)
	}

	return []*Checkpoint{cp}, nil
}

func (s *Store) model(ctx context.Context, id, cpPath string) (*Checkpoint, error) {
	info, err := s.fsHandler.Info(ctx, cpPath)
	if err != nil {
		return nil, err
	}

	return &Checkpoint{
		ID:           id,
		LastModified: info.ModTime,
	}, nil
}

func (s *Store) checkpointDir() string {
	return path.Join(s.rootDir, s.dir)
}

func (s *Store) checkpointPath(id, apiPath string) string {
	return path.Join(s.checkpointDir(), FileName(id, apiPath))
}

// FileName returns the name of the checkpoint file for an api path:
// "<hash>-<name>-<id><ext>", with hash the first eight hex digits of the md5
// sum of the normalized api path.
func FileName(id, apiPath string) string {
	apiPath = strings.Trim(apiPath, "/")

	sum := md5.Sum([]byte(apiPath)) //nolint:gosec
	pathHash := hex.EncodeToString(sum[:])[:hashPrefixLen]

	name, ext := splitExt(path.Base("/" + apiPath))

	return fmt.Sprintf("%s-%s-%s%s", pathHash, name, id, ext)
}

// splitExt splits off the extension the way leading dots are treated as part
// of the name, so ".bashrc" has no extension.
func splitExt(filename string) (string, string) {
	trimmed := strings.TrimLeft(filename, ".")
	ext := path.Ext(trimmed)
	if ext == "" {
		return filename, ""
	}

	return strings.TrimSuffix(filename, ext), ext
}
