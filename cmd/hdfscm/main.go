// Command hdfscm serves notebook contents stored in HDFS over the contents
// REST api and moves directory trees in and out of it.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

//nolint:gochecknoglobals
var (
	ExitCode = 0
	Version  = "dev"
)

func main() {
	defer func() {
		os.Exit(ExitCode)
	}()

	setupLogging()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	setupDebugSignals()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("Command failed", "err", err)
		ExitCode = 1
	}
}
