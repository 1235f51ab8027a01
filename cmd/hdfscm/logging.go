package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

//nolint:gochecknoglobals
var (
	logLevel  = new(slog.LevelVar)
	logOutput = &logSwitch{w: os.Stderr}
)

// logSwitch is the writer behind the default logger. It is pointed at the
// terminal view while one is running.
type logSwitch struct {
	sync.RWMutex
	w io.Writer
}

func (s *logSwitch) Write(p []byte) (int, error) {
	s.RLock()
	defer s.RUnlock()

	return s.w.Write(p)
}

// Set replaces the target writer and returns the previous one.
func (s *logSwitch) Set(w io.Writer) io.Writer {
	s.Lock()
	defer s.Unlock()

	prev := s.w
	s.w = w

	return prev
}

func setupLogging() {
	slog.SetDefault(slog.New(
		tint.NewHandler(logOutput, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.Kitchen,
			NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		}),
	))
}

func setLogLevel(level string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return err
	}

	logLevel.Set(l)

	return nil
}
