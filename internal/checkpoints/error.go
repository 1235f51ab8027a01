package checkpoints

import "errors"

// ErrNotFound occurs when a checkpoint is requested that does not exist.
var ErrNotFound = errors.New("checkpoint does not exist")
