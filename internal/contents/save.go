package contents

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
)

// Save writes the content of in to apiPath and returns the stored model
// without content.
func (m *Manager) Save(ctx context.Context, in *Input, apiPath string) (*Model, error) {
	if in == nil || in.Type == "" {
		return nil, newError(http.StatusBadRequest, "No file type provided")
	}

	if !in.HasContent() && in.Type != TypeDirectory {
		return nil, newError(http.StatusBadRequest, "No file content provided")
	}

	fsPath, err := m.fsPath(apiPath)
	if err != nil {
		return nil, err
	}

	var message string

	switch in.Type {
	case TypeNotebook:
		message, err = m.saveNotebook(ctx, apiPath, fsPath, in)
	case TypeFile:
		err = m.saveFile(ctx, apiPath, fsPath, in)
	case TypeDirectory:
		err = m.saveDirectory(ctx, apiPath, fsPath)
	default:
		err = newError(http.StatusBadRequest, "Unhandled contents type: %s", in.Type)
	}
	if err != nil {
		return nil, err
	}

	model, err := m.Get(ctx, apiPath, GetOptions{Type: in.Type})
	if err != nil {
		return nil, err
	}
	model.Message = message

	return model, nil
}

func (m *Manager) saveDirectory(ctx context.Context, apiPath, fsPath string) error {
	if !m.opts.AllowHidden && m.resolver.Hidden(fsPath) {
		return newError(http.StatusBadRequest, "Cannot create hidden directory %q", apiPath)
	}

	if !m.fsHandler.Exists(ctx, fsPath) {
		slog.Debug("Creating directory", "path", fsPath)

		if err := m.fsHandler.Mkdir(ctx, fsPath); err != nil {
			return storeError(err, apiPath, "creating")
		}

		return nil
	}

	if !m.fsHandler.IsDir(ctx, fsPath) {
		return newError(http.StatusBadRequest, "Not a directory: %s", apiPath)
	}

	return nil
}

func (m *Manager) saveFile(ctx context.Context, apiPath, fsPath string, in *Input) error {
	if in.Format != FormatText && in.Format != FormatBase64 {
		return newError(http.StatusBadRequest, "Must specify format of file contents as 'text' or 'base64'")
	}

	data, err := decodeFile(in.Content, in.Format)
	if err != nil {
		e := newError(http.StatusBadRequest, "Encoding error saving %s: %v", apiPath, err)
		e.Err = err

		return e
	}

	slog.Debug("Saving file", "path", fsPath)

	return m.write(ctx, apiPath, fsPath, data)
}

func decodeFile(raw json.RawMessage, format string) ([]byte, error) {
	var content string
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, fmt.Errorf("content is not a string: %w", err)
	}

	if format == FormatText {
		return []byte(content), nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(content), ""))
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}

	return data, nil
}

func (m *Manager) saveNotebook(ctx context.Context, apiPath, fsPath string, in *Input) (string, error) {
	nb, err := NotebookFromJSON(in.Content)
	if err != nil {
		e := newError(http.StatusBadRequest, "Unreadable Notebook: %s\n%v", apiPath, err)
		e.Err = err

		return "", e
	}

	data, err := nb.Bytes()
	if err != nil {
		e := newError(http.StatusBadRequest, "Encoding error saving %s: %v", apiPath, err)
		e.Err = err

		return "", e
	}

	slog.Debug("Saving notebook", "path", fsPath)

	if err := m.write(ctx, apiPath, fsPath, data); err != nil {
		return "", err
	}

	if err := nb.Validate(); err != nil {
		return fmt.Sprintf("Notebook validation failed: %v", err), nil
	}

	return in.Message, nil
}

func (m *Manager) write(ctx context.Context, apiPath, fsPath string, data []byte) error {
	if err := m.checkFreeSpace(ctx, apiPath, uint64(len(data))); err != nil {
		return err
	}

	if err := m.fsHandler.WriteAtomic(ctx, fsPath, data); err != nil {
		return storeError(err, apiPath, "saving")
	}

	return nil
}

// checkFreeSpace refuses writes that would leave less than the configured
// minimum free space. Failing to determine the usage does not block a write.
func (m *Manager) checkFreeSpace(ctx context.Context, apiPath string, size uint64) error {
	if m.opts.MinFreeBytes == 0 {
		return nil
	}

	enough, err := m.fsHandler.HasEnoughFreeSpace(ctx, m.opts.MinFreeBytes, size)
	if err != nil {
		slog.Warn("Failed to check free space (writing anyway)",
			"path", apiPath,
			"err", err,
		)

		return nil
	}

	if !enough {
		return newError(http.StatusInsufficientStorage, "Not enough free space to save %s (%s, minimum %s)",
			apiPath, humanize.Bytes(size), humanize.Bytes(m.opts.MinFreeBytes))
	}

	return nil
}
