package transfer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Automattic/hdfscm/internal/contents"
)

var errUnexpectedContent = errors.New("unexpected content in model")

// Pull downloads everything below apiDir into the local tree.
func (t *Transferer) Pull(ctx context.Context, apiDir string) (*Summary, error) {
	dirs, err := t.enqueueRemote(ctx, apiDir, "")
	if err != nil {
		return nil, err
	}

	slog.Info("Pulling files",
		"files", t.queue.Progress().TotalItems,
		"directories", dirs,
		"src", apiDir,
	)

	return t.run(ctx, Pull, dirs, func(job *Job) error {
		return t.pullFile(ctx, job)
	})
}

func (t *Transferer) enqueueRemote(ctx context.Context, apiDir, localDir string) (int, error) {
	model, err := t.contentsHandler.Get(ctx, apiDir, contents.GetOptions{Content: true, Type: contents.TypeDirectory})
	if err != nil {
		return 0, fmt.Errorf("(transfer-pull) failed to list %s: %w", apiDir, err)
	}

	children, ok := model.Content.([]*contents.Model)
	if !ok {
		return 0, fmt.Errorf("(transfer-pull) %w: %s", errUnexpectedContent, apiDir)
	}

	dirs := 0
	for _, child := range children {
		if t.hidden(child.Name) {
			continue
		}

		localPath := localJoin(localDir, child.Name)

		if child.Type == contents.TypeDirectory {
			if err := t.localHandler.Mkdir(ctx, localPath); err != nil {
				return dirs, fmt.Errorf("(transfer-pull) failed to create %s: %w", localPath, err)
			}
			dirs++

			n, err := t.enqueueRemote(ctx, child.Path, localPath)
			dirs += n
			if err != nil {
				return dirs, err
			}

			continue
		}

		var size uint64
		if child.Size != nil {
			size = uint64(*child.Size) //nolint:gosec
		}

		t.queue.Enqueue(&Job{
			LocalPath: localPath,
			APIPath:   child.Path,
			Type:      child.Type,
			Size:      size,
		})
	}

	return dirs, nil
}

func (t *Transferer) pullFile(ctx context.Context, job *Job) error {
	if !t.opts.Overwrite && t.localHandler.Exists(ctx, job.LocalPath) {
		return errSkipped
	}

	model, err := t.contentsHandler.Get(ctx, job.APIPath, contents.GetOptions{Content: true, Type: job.Type})
	if err != nil {
		return fmt.Errorf("(transfer-pull) %w", err)
	}

	data, err := modelBytes(model)
	if err != nil {
		return fmt.Errorf("(transfer-pull) %s: %w", job.APIPath, err)
	}

	if err := t.localHandler.WriteAtomic(ctx, job.LocalPath, data); err != nil {
		return fmt.Errorf("(transfer-pull) %w", err)
	}

	return nil
}

func modelBytes(model *contents.Model) ([]byte, error) {
	switch content := model.Content.(type) {
	case contents.Notebook:
		return content.Bytes()

	case string:
		if model.Format != nil && *model.Format == contents.FormatBase64 {
			return base64.StdEncoding.DecodeString(content)
		}

		return []byte(content), nil

	default:
		return nil, errUnexpectedContent
	}
}
