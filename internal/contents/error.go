package contents

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/Automattic/hdfscm/internal/checkpoints"
	"github.com/Automattic/hdfscm/internal/pathing"
)

// Error is a failure with the HTTP status it should be reported with.
type Error struct {
	Status  int
	Message string
	Reason  string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("(contents) %d %s: %v", e.Status, e.Message, e.Err)
	}

	return fmt.Sprintf("(contents) %d %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(status int, format string, args ...any) *Error {
	return &Error{
		Status:  status,
		Message: fmt.Sprintf(format, args...),
	}
}

// StatusOf returns the HTTP status for err, 500 unless err carries an
// [Error].
func StatusOf(err error) int {
	var cErr *Error
	if errors.As(err, &cErr) {
		return cErr.Status
	}

	return http.StatusInternalServerError
}

// storeError translates a failure from the filesystem or checkpoint layer
// into an [Error] about apiPath.
func storeError(err error, apiPath string, action string) *Error {
	var cErr *Error

	switch {
	case errors.As(err, &cErr):
		return cErr

	case errors.Is(err, pathing.ErrOutsideRoot):
		e := newError(http.StatusNotFound, "%s is outside root directory", apiPath)
		e.Err = err

		return e

	case errors.Is(err, fs.ErrPermission):
		e := newError(http.StatusForbidden, "Permission denied: %s", apiPath)
		e.Err = err

		return e

	case errors.Is(err, fs.ErrNotExist):
		e := newError(http.StatusNotFound, "No such file or directory: %s", apiPath)
		e.Err = err

		return e

	default:
		e := newError(http.StatusInternalServerError, "Unexpected error while %s %s", action, apiPath)
		e.Err = err

		return e
	}
}

func checkpointError(err error, apiPath, id string) *Error {
	if errors.Is(err, checkpoints.ErrNotFound) {
		e := newError(http.StatusNotFound, "Checkpoint does not exist: %s@%s", pathing.Normalize(apiPath), id)
		e.Err = err

		return e
	}

	return storeError(err, apiPath, "checkpointing")
}
