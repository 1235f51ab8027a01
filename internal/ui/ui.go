// Package ui implements the terminal progress view of a transfer using [tea].
package ui

import (
	"context"
	"fmt"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// Handler runs the terminal view of a single transfer.
type Handler struct {
	program *tea.Program

	LogWriter *TeaLogWriter

	Ready  atomic.Bool
	Failed atomic.Bool
}

// NewHandler prepares the view. Pressing ctrl+c in it calls cancel, which
// should abort the transfer the view is watching.
func NewHandler(ctx context.Context, cancel context.CancelFunc, progressHandler progressProvider, title string) *Handler {
	handler := &Handler{}

	model := NewTeaModel(handler, progressHandler, title, cancel)
	handler.program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	handler.LogWriter = NewTeaLogWriter(handler.program)

	return handler
}

// Launch runs the view until it is closed or its context ends.
func (uiHandler *Handler) Launch() error {
	defer uiHandler.LogWriter.Stop()

	if _, err := uiHandler.program.Run(); err != nil {
		uiHandler.Failed.Store(true)

		return fmt.Errorf("(ui) %w", err)
	}

	return nil
}

// Quit closes the view from outside, e.g. once the transfer is done.
func (uiHandler *Handler) Quit() {
	uiHandler.program.Quit()
}
