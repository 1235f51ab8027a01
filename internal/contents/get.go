package contents

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/Automattic/hdfscm/internal/filesystem"
)

// Get returns the model for apiPath, with its content if opts.Content is
// set. Without opts.Type the type is inferred from the path.
func (m *Manager) Get(ctx context.Context, apiPath string, opts GetOptions) (*Model, error) {
	fsPath, err := m.fsPath(apiPath)
	if err != nil {
		return nil, err
	}

	kind, err := m.kindOf(ctx, apiPath, fsPath)
	if err != nil {
		return nil, err
	}
	if kind == filesystem.KindNotFound {
		return nil, newError(http.StatusNotFound, "No such file or directory: %s", apiPath)
	}

	if !m.opts.AllowHidden && m.resolver.Hidden(fsPath) {
		slog.Debug("Refusing to serve hidden path", "path", fsPath)

		return nil, newError(http.StatusNotFound, "No such file or directory: %s", apiPath)
	}

	typ := opts.Type
	if typ == "" {
		typ = inferType(fsPath, kind)
	}

	switch typ {
	case TypeDirectory:
		return m.dirModel(ctx, apiPath, fsPath, opts.Content)
	case TypeNotebook:
		return m.notebookModel(ctx, apiPath, fsPath, opts.Content)
	default:
		return m.fileModel(ctx, apiPath, fsPath, opts.Content, opts.Format)
	}
}

func inferType(fsPath string, kind filesystem.Kind) string {
	switch {
	case path.Ext(fsPath) == notebookExt:
		return TypeNotebook
	case kind == filesystem.KindDirectory:
		return TypeDirectory
	default:
		return TypeFile
	}
}

// kindOf stats fsPath. Unlike the existence checks, a failing stat is an
// error here, so a path the store refuses to show is not reported missing.
func (m *Manager) kindOf(ctx context.Context, apiPath, fsPath string) (filesystem.Kind, error) {
	info, err := m.fsHandler.Info(ctx, fsPath)
	if err != nil {
		return filesystem.KindNotFound, storeError(err, apiPath, "reading")
	}

	return info.Kind, nil
}

func (m *Manager) infoAndCheckKind(ctx context.Context, apiPath, fsPath string, kind filesystem.Kind) (*filesystem.FileInfo, error) {
	info, err := m.fsHandler.Info(ctx, fsPath)
	if err != nil {
		return nil, storeError(err, apiPath, "reading")
	}

	if info.Kind == filesystem.KindNotFound {
		return nil, newError(http.StatusNotFound, "%s does not exist: %s", kind, apiPath)
	}

	if info.Kind != kind {
		return nil, newError(http.StatusBadRequest, "%s is not a %s", apiPath, kind)
	}

	return info, nil
}

func (m *Manager) dirModel(ctx context.Context, apiPath, fsPath string, content bool) (*Model, error) {
	info, err := m.infoAndCheckKind(ctx, apiPath, fsPath, filesystem.KindDirectory)
	if err != nil {
		return nil, err
	}

	model := m.modelFromInfo(info, TypeDirectory)
	if !content {
		return model, nil
	}

	records, err := m.fsHandler.List(ctx, fsPath)
	if err != nil {
		return nil, storeError(err, apiPath, "listing")
	}

	children := make([]*Model, 0, len(records))
	for _, rec := range records {
		child := m.modelFromInfo(rec, "")
		if strings.HasPrefix(child.Name, ".") || !m.shouldList(child.Name) {
			continue
		}
		children = append(children, child)
	}

	model.Content = children
	model.Format = ptr(FormatJSON)

	return model, nil
}

func (m *Manager) fileModel(ctx context.Context, apiPath, fsPath string, content bool, format string) (*Model, error) {
	info, err := m.infoAndCheckKind(ctx, apiPath, fsPath, filesystem.KindFile)
	if err != nil {
		return nil, err
	}

	model := m.modelFromInfo(info, TypeFile)
	if !content {
		return model, nil
	}

	data, err := m.fsHandler.ReadAll(ctx, fsPath)
	if err != nil {
		return nil, storeError(err, apiPath, "reading")
	}

	text, format, err := encodeFile(apiPath, data, format)
	if err != nil {
		return nil, err
	}

	if model.Mimetype == nil {
		if format == FormatText {
			model.Mimetype = ptr(mimeText)
		} else {
			model.Mimetype = ptr(mimeBinary)
		}
	}

	model.Content = text
	model.Format = ptr(format)

	return model, nil
}

// encodeFile renders file data for a model. Without a format, UTF-8 data is
// returned as text and anything else as base64.
func encodeFile(apiPath string, data []byte, format string) (string, string, error) {
	switch format {
	case "":
		if utf8.Valid(data) {
			return string(data), FormatText, nil
		}

		return base64.StdEncoding.EncodeToString(data), FormatBase64, nil

	case FormatText:
		if !utf8.Valid(data) {
			e := newError(http.StatusBadRequest, "%s is not UTF-8 encoded", apiPath)
			e.Reason = "bad format"

			return "", "", e
		}

		return string(data), FormatText, nil

	default:
		return base64.StdEncoding.EncodeToString(data), FormatBase64, nil
	}
}

func (m *Manager) notebookModel(ctx context.Context, apiPath, fsPath string, content bool) (*Model, error) {
	info, err := m.infoAndCheckKind(ctx, apiPath, fsPath, filesystem.KindFile)
	if err != nil {
		return nil, err
	}

	model := m.modelFromInfo(info, TypeNotebook)
	if !content {
		return model, nil
	}

	data, err := m.fsHandler.ReadAll(ctx, fsPath)
	if err != nil {
		return nil, storeError(err, apiPath, "reading")
	}

	nb, err := ReadNotebook(data)
	if err != nil {
		e := newError(http.StatusBadRequest, "Unreadable Notebook: %s\n%v", apiPath, err)
		e.Err = err

		return nil, e
	}

	model.Content = nb
	model.Format = ptr(FormatJSON)

	if err := nb.Validate(); err != nil {
		model.Message = fmt.Sprintf("Notebook validation failed: %v", err)
	}

	return model, nil
}
