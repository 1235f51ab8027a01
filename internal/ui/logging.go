package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

const logBufferSize = 1000

type teaProgramProvider interface {
	Send(msg tea.Msg)
}

// LogMsg is a single formatted log line on its way into the log panel.
type LogMsg string

// TeaLogWriter is an [io.Writer] for a [slog.Handler] that forwards every log
// line to a [tea.Program] as a [LogMsg]. Lines written after [TeaLogWriter.Stop]
// are dropped.
type TeaLogWriter struct {
	program  teaProgramProvider
	doneChan chan struct{}
	logChan  chan LogMsg
}

func NewTeaLogWriter(program teaProgramProvider) *TeaLogWriter {
	wr := &TeaLogWriter{
		program:  program,
		doneChan: make(chan struct{}),
		logChan:  make(chan LogMsg, logBufferSize),
	}

	go wr.forward()

	return wr
}

func (wr *TeaLogWriter) Stop() {
	close(wr.doneChan)
}

func (wr *TeaLogWriter) forward() {
	for {
		select {
		case <-wr.doneChan:
			return
		case msg := <-wr.logChan:
			wr.program.Send(msg)
		}
	}
}

// Write never blocks for longer than it takes the buffer to drain, and never
// fails, so a slow terminal cannot stall a transfer worker.
func (wr *TeaLogWriter) Write(p []byte) (int, error) {
	select {
	case <-wr.doneChan:
	case wr.logChan <- LogMsg(p):
	}

	return len(p), nil
}
