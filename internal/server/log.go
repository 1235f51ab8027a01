package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type logPtr struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// MakeLogMiddleware tags every request with a request id and makes a logger
// carrying it available through [Log].
func MakeLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		logger := slog.Default().With("req", reqID)

		ctx := context.WithValue(r.Context(), logPtr{}, logger)
		rec := &statusRecorder{ResponseWriter: rw, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r.WithContext(ctx))

		logger.Debug("Handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"took", time.Since(start),
		)
	})
}

// Log returns the request scoped logger, or the default logger outside of a
// request.
func Log(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(logPtr{}).(*slog.Logger); ok {
		return logger
	}

	return slog.Default()
}
