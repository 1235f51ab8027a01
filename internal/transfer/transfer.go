// Package transfer copies whole directory trees between a local directory
// and the contents served by a [contents.Manager].
package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/Automattic/hdfscm/internal/contents"
	"github.com/Automattic/hdfscm/internal/filesystem"
	"github.com/Automattic/hdfscm/internal/pathing"
	"github.com/Automattic/hdfscm/internal/queue"
	"github.com/dustin/go-humanize"
)

const (
	DefaultWorkers    = 4
	DefaultMaxRetries = 2
)

type contentsProvider interface {
	Get(ctx context.Context, apiPath string, opts contents.GetOptions) (*contents.Model, error)
	Save(ctx context.Context, in *contents.Input, apiPath string) (*contents.Model, error)
	Exists(ctx context.Context, apiPath string) bool
}

type localProvider interface {
	Exists(ctx context.Context, name string) bool
	List(ctx context.Context, dir string) ([]*filesystem.FileInfo, error)
	ReadAll(ctx context.Context, name string) ([]byte, error)
	WriteAtomic(ctx context.Context, name string, data []byte) error
	Mkdir(ctx context.Context, dir string) error
}

type Direction int

const (
	Push Direction = iota
	Pull
)

func (d Direction) String() string {
	if d == Pull {
		return "pull"
	}

	return "push"
}

type Options struct {
	Workers     int
	MaxRetries  int
	Overwrite   bool
	AllowHidden bool
}

// Job is a single file to transfer.
type Job struct {
	LocalPath string
	APIPath   string
	Type      string
	Size      uint64
	attempts  int
	err       error
}

func (j *Job) Err() error {
	return j.err
}

// Summary is the outcome of a finished transfer.
type Summary struct {
	Direction   Direction
	Directories int
	Transferred []*Job
	Skipped     []*Job
	Failed      []*Job
	Bytes       uint64
}

// Transferer moves files between a local tree, accessed through a
// [filesystem.Handler] rooted at the local directory, and the contents api.
type Transferer struct {
	contentsHandler contentsProvider
	localHandler    localProvider
	queue           *queue.GenericQueue[*Job]
	opts            Options
}

func NewTransferer(contentsHandler contentsProvider, localHandler localProvider, opts Options) *Transferer {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	return &Transferer{
		contentsHandler: contentsHandler,
		localHandler:    localHandler,
		queue:           queue.NewGenericQueue(func(j *Job) uint64 { return j.Size }),
		opts:            opts,
	}
}

// Progress returns the progress of the file queue.
func (t *Transferer) Progress() queue.Progress {
	return t.queue.Progress()
}

func (t *Transferer) hidden(name string) bool {
	return !t.opts.AllowHidden && strings.HasPrefix(name, ".")
}

func (t *Transferer) run(ctx context.Context, dir Direction, dirs int, process func(*Job) error) (*Summary, error) {
	err := t.queue.DequeueAndProcessConc(ctx, t.opts.Workers, func(job *Job) queue.Decision {
		return t.decide(ctx, dir, job, process(job))
	})

	summary := &Summary{
		Direction:   dir,
		Directories: dirs,
		Transferred: t.queue.GetSuccessful(),
		Skipped:     t.queue.GetSkipped(),
		Failed:      t.queue.GetFailed(),
	}
	for _, job := range summary.Transferred {
		summary.Bytes += job.Size
	}

	slog.Info("Transfer finished",
		"direction", dir.String(),
		"directories", summary.Directories,
		"files", len(summary.Transferred),
		"skipped", len(summary.Skipped),
		"failed", len(summary.Failed),
		"size", humanize.Bytes(summary.Bytes),
	)

	if err != nil {
		return summary, fmt.Errorf("(transfer) %w", err)
	}

	return summary, nil
}

var errSkipped = errors.New("skipped")

func (t *Transferer) decide(ctx context.Context, dir Direction, job *Job, err error) queue.Decision {
	switch {
	case err == nil:
		slog.Debug("Transferred file",
			"direction", dir.String(),
			"path", job.APIPath,
			"size", humanize.Bytes(job.Size),
		)

		return queue.DecisionSuccess

	case errors.Is(err, errSkipped):
		slog.Debug("Skipped existing file", "path", job.APIPath)

		return queue.DecisionSkipped

	case ctx.Err() == nil && retryable(err) && job.attempts < t.opts.MaxRetries:
		job.attempts++
		slog.Warn("Transfer failed (retrying)",
			"path", job.APIPath,
			"attempt", job.attempts,
			"err", err,
		)

		return queue.DecisionRequeue

	default:
		job.err = err
		slog.Error("Transfer failed",
			"path", job.APIPath,
			"err", err,
		)

		return queue.DecisionFailed
	}
}

// retryable reports whether err could go away by trying again. Rejections
// of the request itself never do.
func retryable(err error) bool {
	var cErr *contents.Error
	if errors.As(err, &cErr) {
		return cErr.Status >= http.StatusInternalServerError && cErr.Status != http.StatusInsufficientStorage
	}

	return true
}

func typeFor(name string) string {
	if path.Ext(name) == ".ipynb" {
		return contents.TypeNotebook
	}

	return contents.TypeFile
}

func localJoin(dir, name string) string {
	return path.Join("/", dir, name)
}

func apiJoin(dir, name string) string {
	return pathing.Join(dir, name)
}
