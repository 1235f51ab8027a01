package checkpoints

import (
	"context"
	"time"
)

// NoOp is used when checkpoints are disabled. Creating one pretends to
// succeed, nothing is ever stored.
type NoOp struct{}

func (NoOp) Create(context.Context, string) (*Checkpoint, error) {
	return &Checkpoint{ID: ID, LastModified: time.Now().UTC()}, nil
}

func (NoOp) Restore(context.Context, string, string) error {
	return nil
}

func (NoOp) Rename(context.Context, string, string, string) error {
	return nil
}

func (NoOp) Delete(context.Context, string, string) error {
	return nil
}

func (NoOp) List(context.Context, string) ([]*Checkpoint, error) {
	return []*Checkpoint{}, nil
}

func (NoOp) Dir() string {
	return ""
}
