package transfer

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Automattic/hdfscm/internal/contents"
	"github.com/Automattic/hdfscm/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("connection reset")

func TestDecide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		attempts int
		want     queue.Decision
	}{
		{"Success_Transferred", nil, 0, queue.DecisionSuccess},
		{"Success_Skipped", errSkipped, 0, queue.DecisionSkipped},
		{"Success_RequeueTransient", errFlaky, 0, queue.DecisionRequeue},
		{"Success_RequeueServerError", &contents.Error{Status: http.StatusInternalServerError}, 1, queue.DecisionRequeue},
		{"Fail_RetriesExhausted", errFlaky, 2, queue.DecisionFailed},
		{"Fail_BadRequest", &contents.Error{Status: http.StatusBadRequest}, 0, queue.DecisionFailed},
		{"Fail_InsufficientStorage", &contents.Error{Status: http.StatusInsufficientStorage}, 0, queue.DecisionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr := NewTransferer(nil, nil, Options{MaxRetries: 2})
			job := &Job{APIPath: "a.txt", attempts: tt.attempts}

			assert.Equal(t, tt.want, tr.decide(context.Background(), Push, job, tt.err))

			if tt.want == queue.DecisionFailed {
				require.ErrorIs(t, job.Err(), tt.err)
			} else {
				require.NoError(t, job.Err())
			}
		})
	}
}

func TestDecide_CanceledIsNotRetried(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := NewTransferer(nil, nil, Options{MaxRetries: 5})
	job := &Job{APIPath: "a.txt"}

	assert.Equal(t, queue.DecisionFailed, tr.decide(ctx, Pull, job, context.Canceled))
	assert.Equal(t, 0, job.attempts)
}

func TestDecide_RequeueCountsAttempts(t *testing.T) {
	t.Parallel()

	tr := NewTransferer(nil, nil, Options{MaxRetries: 1})
	job := &Job{APIPath: "a.txt"}

	assert.Equal(t, queue.DecisionRequeue, tr.decide(context.Background(), Push, job, errFlaky))
	assert.Equal(t, 1, job.attempts)
	assert.Equal(t, queue.DecisionFailed, tr.decide(context.Background(), Push, job, errFlaky))
}

func TestTypeFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, contents.TypeNotebook, typeFor("a/b.ipynb"))
	assert.Equal(t, contents.TypeFile, typeFor("a/b.py"))
	assert.Equal(t, contents.TypeFile, typeFor("ipynb"))
}

func TestLocalJoin(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/a.txt", localJoin("", "a.txt"))
	assert.Equal(t, "/sub/a.txt", localJoin("/sub", "a.txt"))
	assert.Equal(t, "/", localJoin("", ""))
}
