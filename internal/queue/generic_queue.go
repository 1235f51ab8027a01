// Package queue provides a worker queue with progress reporting.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Decision is what a process function reports back for an item.
type Decision int

const (
	// DecisionSuccess is returned by a processFunc when an item was processed.
	DecisionSuccess Decision = 1

	// DecisionSkipped is returned by a processFunc when an item was skipped.
	DecisionSkipped Decision = 0

	// DecisionRequeue is returned by a processFunc when an item needs
	// requeueing.
	DecisionRequeue Decision = -1

	// DecisionFailed is returned by a processFunc when an item failed for
	// good.
	DecisionFailed Decision = -2
)

// GenericQueue is a generic queue that can hold any comparable type of items.
// With a weigh function, progress is additionally tracked in bytes.
type GenericQueue[T comparable] struct {
	sync.RWMutex
	hasStarted     bool
	hasFinished    bool
	startTime      time.Time
	finishTime     time.Time
	head           int
	items          []T
	total          int
	success        []T
	skipped        []T
	failed         []T
	inProgress     map[T]struct{}
	weigh          func(T) uint64
	totalBytes     uint64
	processedBytes uint64
}

// NewGenericQueue returns a pointer to a new [GenericQueue]. weigh may be nil.
func NewGenericQueue[T comparable](weigh func(T) uint64) *GenericQueue[T] {
	return &GenericQueue[T]{
		inProgress: make(map[T]struct{}),
		weigh:      weigh,
	}
}

// HasRemainingItems returns whether a queue has remaining items to process.
func (q *GenericQueue[T]) HasRemainingItems() bool {
	q.RLock()
	defer q.RUnlock()

	return q.head < len(q.items)
}

func (q *GenericQueue[T]) GetSuccessful() []T {
	q.RLock()
	defer q.RUnlock()

	return append([]T(nil), q.success...)
}

func (q *GenericQueue[T]) GetSkipped() []T {
	q.RLock()
	defer q.RUnlock()

	return append([]T(nil), q.skipped...)
}

func (q *GenericQueue[T]) GetFailed() []T {
	q.RLock()
	defer q.RUnlock()

	return append([]T(nil), q.failed...)
}

// Enqueue adds new items to the queue.
func (q *GenericQueue[T]) Enqueue(items ...T) {
	q.Lock()
	defer q.Unlock()

	q.reopen()

	for _, item := range items {
		q.items = append(q.items, item)
		q.total++

		if q.weigh != nil {
			q.totalBytes += q.weigh(item)
		}
	}
}

// requeue puts an in-progress item back without counting it again.
func (q *GenericQueue[T]) requeue(item T) {
	q.Lock()
	defer q.Unlock()

	q.reopen()

	delete(q.inProgress, item)
	q.items = append(q.items, item)
}

func (q *GenericQueue[T]) reopen() {
	if q.hasFinished {
		q.finishTime = time.Time{}
		q.hasFinished = false
	}
}

// Dequeue returns an item from the queue and advances the queue head.
func (q *GenericQueue[T]) Dequeue() (T, bool) { //nolint:ireturn
	q.Lock()
	defer q.Unlock()

	if q.head >= len(q.items) {
		var zeroVal T

		return zeroVal, false
	}

	if !q.hasStarted {
		q.startTime = time.Now()
		q.hasStarted = true
	}

	item := q.items[q.head]
	q.head++

	return item, true
}

func (q *GenericQueue[T]) SetSuccess(items ...T) {
	q.settle(&q.success, items)
}

func (q *GenericQueue[T]) SetSkipped(items ...T) {
	q.settle(&q.skipped, items)
}

func (q *GenericQueue[T]) SetFailed(items ...T) {
	q.settle(&q.failed, items)
}

// settle moves in-progress items into their final list. The queue counts as
// finished once every item is settled.
func (q *GenericQueue[T]) settle(list *[]T, items []T) {
	q.Lock()
	defer q.Unlock()

	for _, item := range items {
		delete(q.inProgress, item)
		*list = append(*list, item)

		if q.weigh != nil {
			q.processedBytes += q.weigh(item)
		}
	}

	if q.settledLocked() >= q.total && !q.hasFinished {
		q.finishTime = time.Now()
		q.hasFinished = true
	}
}

func (q *GenericQueue[T]) settledLocked() int {
	return len(q.success) + len(q.skipped) + len(q.failed)
}

// SetProcessing sets given items as in progress (processing).
func (q *GenericQueue[T]) SetProcessing(items ...T) {
	q.Lock()
	defer q.Unlock()

	for _, item := range items {
		q.inProgress[item] = struct{}{}
	}
}

// DequeueAndProcess sequentially dequeues and processes items using the given
// processFunc. An error is only returned in case of a context cancellation.
func (q *GenericQueue[T]) DequeueAndProcess(ctx context.Context, processFunc func(T) Decision) error {
	for ctx.Err() == nil {
		item, ok := q.Dequeue()
		if !ok {
			break
		}

		q.process(item, processFunc)
	}

	if ctx.Err() != nil {
		return fmt.Errorf("(queue-proc) %w", ctx.Err())
	}

	return nil
}

// DequeueAndProcessConc concurrently dequeues and processes items using given
// processFunc, with at most maxWorkers items in flight. An error is only
// returned in case of a context cancellation.
//
// It is the responsibility of the processFunc to ensure thread-safety for
// anything happening inside the processFunc, with the [GenericQueue] only
// guaranteeing thread-safety for itself.
func (q *GenericQueue[T]) DequeueAndProcessConc(ctx context.Context, maxWorkers int, processFunc func(T) Decision) error {
	var wg sync.WaitGroup

	semaphore := make(chan struct{}, max(maxWorkers, 1))

	for {
	DEQUEUE:
		for {
			select {
			case <-ctx.Done():
				wg.Wait()

				return fmt.Errorf("(queue-concproc) %w", ctx.Err())
			case semaphore <- struct{}{}:
			}

			item, ok := q.Dequeue()
			if !ok {
				<-semaphore

				break DEQUEUE
			}

			wg.Add(1)
			go func(item T) {
				defer wg.Done()
				defer func() { <-semaphore }()

				q.process(item, processFunc)
			}(item)
		}

		wg.Wait()

		if ctx.Err() != nil {
			return fmt.Errorf("(queue-concproc) %w", ctx.Err())
		}

		// Items requeued after the last dequeue.
		if !q.HasRemainingItems() {
			return nil
		}
	}
}

func (q *GenericQueue[T]) process(item T, processFunc func(T) Decision) {
	q.SetProcessing(item)

	switch processFunc(item) {
	case DecisionRequeue:
		q.requeue(item)
	case DecisionSkipped:
		q.SetSkipped(item)
	case DecisionFailed:
		q.SetFailed(item)
	default:
		q.SetSuccess(item)
	}
}
