// Package checkpoints keeps a single restorable snapshot per file.
package checkpoints

import (
	"context"
	"fmt"
	"time"
)

// ID is the only checkpoint id there is; every file has at most one
// checkpoint.
const ID = "checkpoint"

type Checkpoint struct {
	ID           string    `json:"id"`
	LastModified time.Time `json:"last_modified"`
}

// Checkpoints creates, lists, restores and removes checkpoints of api paths.
type Checkpoints interface {
	Create(ctx context.Context, path string) (*Checkpoint, error)
	Restore(ctx context.Context, id, path string) error
	Rename(ctx context.Context, id, oldPath, newPath string) error
	Delete(ctx context.Context, id, path string) error
	List(ctx context.Context, path string) ([]*Checkpoint, error)
	// Dir is the directory name checkpoints are kept in, empty if none.
	Dir() string
}

// RenameAll moves every checkpoint of oldPath over to newPath.
func RenameAll(ctx context.Context, cp Checkpoints, oldPath, newPath string) error {
	list, err := cp.List(ctx, oldPath)
	if err != nil {
		return fmt.Errorf("(cp-renameall) %w", err)
	}

	for _, c := range list {
		if err := cp.Rename(ctx, c.ID, oldPath, newPath); err != nil {
			return fmt.Errorf("(cp-renameall) %w", err)
		}
	}

	return nil
}

// DeleteAll removes every checkpoint of path.
func DeleteAll(ctx context.Context, cp Checkpoints, path string) error {
	list, err := cp.List(ctx, path)
	if err != nil {
		return fmt.Errorf("(cp-deleteall) %w", err)
	}

	for _, c := range list {
		if err := cp.Delete(ctx, c.ID, path); err != nil {
			return fmt.Errorf("(cp-deleteall) %w", err)
		}
	}

	return nil
}
