package queue

import "time"

const (
	UnitItems = "items/sec"
	UnitBytes = "bytes/sec"
)

// Progress is a snapshot of the state of a [GenericQueue].
type Progress struct {
	HasStarted        bool
	HasFinished       bool
	StartTime         time.Time
	FinishTime        time.Time
	ProgressPct       float64
	TotalItems        int
	ProcessedItems    int
	InProgressItems   int
	SuccessItems      int
	SkippedItems      int
	FailedItems       int
	TotalBytes        uint64
	ProcessedBytes    uint64
	ETA               time.Time
	TimeLeft          time.Duration
	TransferSpeed     float64
	TransferSpeedUnit string
}

// Progress returns the [Progress] for the [GenericQueue]. With a weigh
// function the percentage and speed are based on bytes, otherwise on items.
func (q *GenericQueue[T]) Progress() Progress {
	q.RLock()
	defer q.RUnlock()

	p := Progress{
		HasStarted:        q.hasStarted,
		HasFinished:       q.hasFinished,
		StartTime:         q.startTime,
		FinishTime:        q.finishTime,
		TotalItems:        q.total,
		ProcessedItems:    min(q.settledLocked(), q.total),
		InProgressItems:   len(q.inProgress),
		SuccessItems:      len(q.success),
		SkippedItems:      len(q.skipped),
		FailedItems:       len(q.failed),
		TotalBytes:        q.totalBytes,
		ProcessedBytes:    q.processedBytes,
		TransferSpeedUnit: UnitItems,
	}

	done, total := float64(p.ProcessedItems), float64(p.TotalItems)
	if q.weigh != nil && q.totalBytes > 0 {
		done, total = float64(q.processedBytes), float64(q.totalBytes)
		p.TransferSpeedUnit = UnitBytes
	}

	if total > 0 {
		p.ProgressPct = max(0, min(done/total*100, 100)) //nolint:mnd
	}

	if q.hasStarted && done > 0 && done < total {
		elapsed := time.Since(q.startTime)
		perSec := done / max(elapsed.Seconds(), 1)

		if perSec > 0 {
			p.TimeLeft = time.Duration((total - done) / perSec * float64(time.Second))
			p.ETA = time.Now().Add(p.TimeLeft)
			p.TransferSpeed = perSec
		}
	}

	return p
}
