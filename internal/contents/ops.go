package contents

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"path"

	"github.com/Automattic/hdfscm/internal/checkpoints"
	"github.com/Automattic/hdfscm/internal/filesystem"
	"github.com/Automattic/hdfscm/internal/pathing"
)

const (
	untitledNotebook  = "Untitled"
	untitledFile      = "untitled"
	untitledDirectory = "Untitled Folder"
)

// Delete removes a file or an empty directory along with its checkpoints.
// A directory holding nothing but the checkpoint directory counts as empty.
func (m *Manager) Delete(ctx context.Context, apiPath string) error {
	if pathing.Normalize(apiPath) == "" {
		return newError(http.StatusBadRequest, "Can't delete root")
	}

	fsPath, err := m.fsPath(apiPath)
	if err != nil {
		return err
	}

	kind, err := m.kindOf(ctx, apiPath, fsPath)
	if err != nil {
		return err
	}
	if kind == filesystem.KindNotFound {
		return newError(http.StatusNotFound, "File or directory does not exist: %s", apiPath)
	}

	if err := m.deletePath(ctx, apiPath, fsPath, kind); err != nil {
		return err
	}

	if err := checkpoints.DeleteAll(ctx, m.checkpoints, apiPath); err != nil {
		return storeError(err, apiPath, "deleting checkpoints of")
	}

	return nil
}

func (m *Manager) deletePath(ctx context.Context, apiPath, fsPath string, kind filesystem.Kind) error {
	if kind == filesystem.KindDirectory {
		var ignore []string
		if dir := m.checkpoints.Dir(); dir != "" {
			ignore = append(ignore, dir)
		}

		empty, err := m.fsHandler.IsEmptyFolder(ctx, fsPath, ignore...)
		if err != nil {
			return storeError(err, apiPath, "listing")
		}
		if !empty {
			return newError(http.StatusBadRequest, "Directory %s not empty", apiPath)
		}

		slog.Debug("Deleting directory", "path", fsPath)

		if err := m.fsHandler.DeleteDir(ctx, fsPath); err != nil {
			return storeError(err, apiPath, "deleting")
		}

		return nil
	}

	slog.Debug("Deleting file", "path", fsPath)

	if err := m.fsHandler.DeleteFile(ctx, fsPath); err != nil {
		return storeError(err, apiPath, "deleting")
	}

	return nil
}

// Rename moves oldPath to newPath, which must not exist yet. Checkpoints
// move along.
func (m *Manager) Rename(ctx context.Context, oldPath, newPath string) error {
	if pathing.Normalize(oldPath) == pathing.Normalize(newPath) {
		return nil
	}

	oldFSPath, err := m.fsPath(oldPath)
	if err != nil {
		return err
	}
	newFSPath, err := m.fsPath(newPath)
	if err != nil {
		return err
	}

	if m.fsHandler.Exists(ctx, newFSPath) {
		return newError(http.StatusConflict, "File already exists: %s", newPath)
	}

	kind, err := m.kindOf(ctx, oldPath, oldFSPath)
	if err != nil {
		return err
	}
	if kind == filesystem.KindNotFound {
		return newError(http.StatusNotFound, "File or directory does not exist: %s", oldPath)
	}

	slog.Debug("Renaming",
		"old", oldFSPath,
		"new", newFSPath,
	)

	if err := m.fsHandler.Move(ctx, oldFSPath, newFSPath); err != nil {
		e := storeError(err, oldPath, "renaming")
		if e.Status == http.StatusInternalServerError {
			e.Message = "Unknown error renaming file: " + oldPath
		}

		return e
	}

	if err := checkpoints.RenameAll(ctx, m.checkpoints, oldPath, newPath); err != nil {
		return storeError(err, newPath, "renaming checkpoints of")
	}

	return nil
}

// Update applies a partial model to apiPath, which currently only means
// renaming it to in.Path.
func (m *Manager) Update(ctx context.Context, in *Input, apiPath string) (*Model, error) {
	newPath := apiPath
	if in != nil && in.Path != "" {
		newPath = in.Path
	}

	if err := m.Rename(ctx, apiPath, newPath); err != nil {
		return nil, err
	}

	return m.Get(ctx, newPath, GetOptions{})
}

// New creates a file, notebook or directory at apiPath. Missing content
// becomes an empty notebook or an empty text file.
func (m *Manager) New(ctx context.Context, in *Input, apiPath string) (*Model, error) {
	var model Input
	if in != nil {
		model = *in
	}

	apiPath = pathing.Normalize(apiPath)

	if model.Type == "" {
		if path.Ext(apiPath) == notebookExt {
			model.Type = TypeNotebook
		} else {
			model.Type = TypeFile
		}
	}

	if !model.HasContent() && model.Type != TypeDirectory {
		switch model.Type {
		case TypeNotebook:
			content, err := json.Marshal(NewNotebook())
			if err != nil {
				return nil, storeError(err, apiPath, "creating")
			}
			model.Content = content
			model.Format = FormatJSON
		default:
			model.Content = json.RawMessage(`""`)
			model.Type = TypeFile
			model.Format = FormatText
		}
	}

	return m.Save(ctx, &model, apiPath)
}

// NewUntitled creates a new untitled file, notebook or directory in dir.
func (m *Manager) NewUntitled(ctx context.Context, dir, typ, ext string) (*Model, error) {
	dir = pathing.Normalize(dir)

	if !m.DirExists(ctx, dir) {
		return nil, newError(http.StatusNotFound, "No such directory: %s", dir)
	}

	if typ == "" {
		if ext == notebookExt {
			typ = TypeNotebook
		} else {
			typ = TypeFile
		}
	}

	var untitled, insert string

	switch typ {
	case TypeDirectory:
		untitled = untitledDirectory
		insert = " "
	case TypeNotebook:
		untitled = untitledNotebook
		ext = notebookExt
	case TypeFile:
		untitled = untitledFile
	default:
		return nil, newError(http.StatusBadRequest, "Unexpected model type: %s", typ)
	}

	name := pathing.IncrementFilename(untitled+ext, insert, func(name string) bool {
		return m.Exists(ctx, pathing.Join(dir, name))
	})

	return m.New(ctx, &Input{Type: typ}, pathing.Join(dir, name))
}

// Copy copies the file at fromPath. If toPath is a directory, or empty for
// the directory of fromPath, the copy gets a new "-CopyN" name in there.
func (m *Manager) Copy(ctx context.Context, fromPath, toPath string) (*Model, error) {
	fromPath = pathing.Normalize(fromPath)
	toPath = pathing.Normalize(toPath)
	fromDir, fromName := pathing.Split(fromPath)

	src, err := m.Get(ctx, fromPath, GetOptions{})
	if err != nil {
		return nil, err
	}

	if src.Type == TypeDirectory {
		return nil, newError(http.StatusBadRequest, "Can't copy directories")
	}

	if toPath == "" {
		toPath = fromDir
	}

	if m.DirExists(ctx, toPath) {
		name := pathing.IncrementFilename(pathing.CopyName(fromName), pathing.CopyInsert, func(name string) bool {
			return m.Exists(ctx, pathing.Join(toPath, name))
		})
		toPath = pathing.Join(toPath, name)
	}

	srcFSPath, err := m.fsPath(fromPath)
	if err != nil {
		return nil, err
	}
	dstFSPath, err := m.fsPath(toPath)
	if err != nil {
		return nil, err
	}

	if src.Size != nil {
		if err := m.checkFreeSpace(ctx, toPath, uint64(*src.Size)); err != nil { //nolint:gosec
			return nil, err
		}
	}

	slog.Debug("Copying",
		"src", srcFSPath,
		"dst", dstFSPath,
	)

	if err := m.fsHandler.Copy(ctx, srcFSPath, dstFSPath); err != nil {
		return nil, storeError(err, toPath, "copying to")
	}

	return m.Get(ctx, toPath, GetOptions{Type: src.Type})
}

func (m *Manager) CreateCheckpoint(ctx context.Context, apiPath string) (*checkpoints.Checkpoint, error) {
	cp, err := m.checkpoints.Create(ctx, apiPath)
	if err != nil {
		return nil, checkpointError(err, apiPath, checkpoints.ID)
	}

	return cp, nil
}

func (m *Manager) ListCheckpoints(ctx context.Context, apiPath string) ([]*checkpoints.Checkpoint, error) {
	list, err := m.checkpoints.List(ctx, apiPath)
	if err != nil {
		return nil, checkpointError(err, apiPath, checkpoints.ID)
	}

	return list, nil
}

func (m *Manager) RestoreCheckpoint(ctx context.Context, id, apiPath string) error {
	if err := m.checkpoints.Restore(ctx, id, apiPath); err != nil {
		return checkpointError(err, apiPath, id)
	}

	return nil
}

func (m *Manager) DeleteCheckpoint(ctx context.Context, id, apiPath string) error {
	if err := m.checkpoints.Delete(ctx, id, apiPath); err != nil {
		return checkpointError(err, apiPath, id)
	}

	return nil
}
