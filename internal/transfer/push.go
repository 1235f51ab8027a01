package transfer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"

	"github.com/Automattic/hdfscm/internal/contents"
	"github.com/Automattic/hdfscm/internal/filesystem"
)

// Push uploads the whole local tree into apiDir. Directories are created up
// front, files are then uploaded concurrently.
func (t *Transferer) Push(ctx context.Context, apiDir string) (*Summary, error) {
	dirs := 0

	if apiDir != "" {
		if err := t.ensureRemoteDir(ctx, apiDir); err != nil {
			return nil, err
		}
		dirs++
	}

	n, err := t.enqueueLocal(ctx, "", apiDir)
	if err != nil {
		return nil, err
	}
	dirs += n

	slog.Info("Pushing files",
		"files", t.queue.Progress().TotalItems,
		"directories", dirs,
		"dest", apiDir,
	)

	return t.run(ctx, Push, dirs, func(job *Job) error {
		return t.pushFile(ctx, job)
	})
}

func (t *Transferer) ensureRemoteDir(ctx context.Context, apiPath string) error {
	if _, err := t.contentsHandler.Save(ctx, &contents.Input{Type: contents.TypeDirectory}, apiPath); err != nil {
		return fmt.Errorf("(transfer-push) failed to create %s: %w", apiPath, err)
	}

	return nil
}

func (t *Transferer) enqueueLocal(ctx context.Context, localDir, apiDir string) (int, error) {
	entries, err := t.localHandler.List(ctx, localJoin(localDir, ""))
	if err != nil {
		return 0, fmt.Errorf("(transfer-push) failed to list %s: %w", localDir, err)
	}

	dirs := 0
	for _, entry := range entries {
		name := path.Base(entry.Path)

		if t.hidden(name) {
			continue
		}

		localPath := localJoin(localDir, name)
		apiPath := apiJoin(apiDir, name)

		switch entry.Kind {
		case filesystem.KindDirectory:
			if err := t.ensureRemoteDir(ctx, apiPath); err != nil {
				return dirs, err
			}
			dirs++

			n, err := t.enqueueLocal(ctx, localPath, apiPath)
			dirs += n
			if err != nil {
				return dirs, err
			}

		case filesystem.KindFile:
			t.queue.Enqueue(&Job{
				LocalPath: localPath,
				APIPath:   apiPath,
				Type:      typeFor(name),
				Size:      uint64(entry.Size), //nolint:gosec
			})
		}
	}

	return dirs, nil
}

func (t *Transferer) pushFile(ctx context.Context, job *Job) error {
	if !t.opts.Overwrite && t.contentsHandler.Exists(ctx, job.APIPath) {
		return errSkipped
	}

	data, err := t.localHandler.ReadAll(ctx, job.LocalPath)
	if err != nil {
		return fmt.Errorf("(transfer-push) %w", err)
	}

	in := &contents.Input{Type: job.Type}

	if job.Type == contents.TypeNotebook {
		in.Format = contents.FormatJSON
		in.Content = data
	} else {
		encoded, err := json.Marshal(base64.StdEncoding.EncodeToString(data))
		if err != nil {
			return fmt.Errorf("(transfer-push) %w", err)
		}
		in.Format = contents.FormatBase64
		in.Content = encoded
	}

	if _, err := t.contentsHandler.Save(ctx, in, job.APIPath); err != nil {
		return fmt.Errorf("(transfer-push) %w", err)
	}

	return nil
}
