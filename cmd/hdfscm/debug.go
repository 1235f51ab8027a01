package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	stackTraceBufMax      = 1 << 24
	memoryMonitorInterval = 100 * time.Millisecond
)

// setupDebugSignals dumps all goroutine stacks on SIGUSR1 and forces a
// garbage collection on SIGUSR2.
func setupDebugSignals() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGUSR1, syscall.SIGUSR2)

	go func() {
		for sig := range sigChan {
			if sig == syscall.SIGUSR2 {
				runtime.GC()

				continue
			}

			buf := make([]byte, stackTraceBufMax)
			n := runtime.Stack(buf, true)
			os.Stderr.Write(buf[:n]) //nolint:errcheck
		}
	}()
}

// profiler writes a cpu profile for its whole lifetime and an allocation
// profile when stopped. Empty paths disable either.
type profiler struct {
	cpuFile   *os.File
	allocPath string
}

func startProfiler(cpuPath, allocPath string) *profiler {
	p := &profiler{allocPath: allocPath}

	if cpuPath == "" {
		return p
	}

	f, err := os.Create(cpuPath)
	if err != nil {
		slog.Error("Could not create cpu profile", "err", err)

		return p
	}

	if err := pprof.StartCPUProfile(f); err != nil {
		slog.Error("Could not start cpu profile", "err", err)
		f.Close()

		return p
	}
	p.cpuFile = f

	return p
}

func (p *profiler) Stop() {
	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		p.cpuFile.Close()
	}

	if p.allocPath == "" {
		return
	}

	f, err := os.Create(p.allocPath)
	if err != nil {
		slog.Error("Could not create allocs profile", "err", err)

		return
	}
	defer f.Close()

	if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
		slog.Error("Could not write allocs profile", "err", err)
	}
}

// memoryObserver tracks the peak heap allocation while a transfer runs.
type memoryObserver struct {
	sync.Mutex
	maxAlloc uint64
	stopChan chan struct{}
	doneChan chan struct{}
}

func newMemoryObserver(ctx context.Context) *memoryObserver {
	obs := &memoryObserver{
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
	go obs.monitor(ctx)

	return obs
}

func (o *memoryObserver) MaxAlloc() uint64 {
	o.Lock()
	defer o.Unlock()

	return o.maxAlloc
}

func (o *memoryObserver) Stop() {
	close(o.stopChan)
	<-o.doneChan

	slog.Debug("Memory consumption peaked", "maxAlloc", humanize.Bytes(o.MaxAlloc()))
}

func (o *memoryObserver) monitor(ctx context.Context) {
	defer close(o.doneChan)

	ticker := time.NewTicker(memoryMonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			o.Lock()
			o.maxAlloc = max(o.maxAlloc, m.Alloc)
			o.Unlock()
		}
	}
}
