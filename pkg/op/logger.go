package op

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/zitadel/logging"
	"golang.org/x/exp/slog"
)

// LogMiddleware puts a logger carrying a request id into the context
// of each request and logs the response.
func (o *Provider) LogMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			logger := o.logger.With("request_id", uuid.NewString())
			r = r.WithContext(logging.ToContext(r.Context(), logger))
			lw := &loggedWriter{
				ResponseWriter: w,
			}
			next.ServeHTTP(lw, r)
			logger = logger.With(
				slog.Group("request", "method", r.Method, "url", r.URL),
				slog.Group("response", "duration", time.Since(start), "status", lw.statusCode, "written", lw.written),
			)
			if lw.err != nil {
				logger.ErrorContext(r.Context(), "response writer", "error", lw.err)
				return
			}
			logger.InfoContext(r.Context(), "done")
		})
	}
}

type loggedWriter struct {
	http.ResponseWriter

	statusCode int
	written    int
	err        error
}

func (w *loggedWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *loggedWriter) Write(b []byte) (int, error) {
	if w.statusCode == 0 {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.written += n
	w.err = err
	return n, err
}

// requestLogger returns the logger of the request, set by LogMiddleware.
func (o *Provider) requestLogger(r *http.Request) *slog.Logger {
	if logger, ok := logging.FromContext(r.Context()); ok {
		return logger
	}
	return o.logger
}
