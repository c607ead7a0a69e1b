package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/timeattack/pkg/logger"
	"github.com/okian/timeattack/pkg/metrics"
)

// MetricsMiddleware records request count, latency and error class for endpoint.
// Server errors are also logged.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		metrics.RecordHTTPRequest(endpoint, r.Method, strconv.Itoa(rec.status), float64(elapsed.Milliseconds()))
		if rec.status < http.StatusBadRequest {
			return
		}
		metrics.RecordHTTPError(endpoint, r.Method, errorClass(rec.status))
		if rec.status >= http.StatusInternalServerError {
			logger.Get().Named("api").Warn(context.WithoutCancel(r.Context()), "request failed",
				logger.String("endpoint", endpoint),
				logger.String("query", r.URL.RawQuery),
				logger.Int("status", rec.status),
				logger.Duration("elapsed", elapsed))
		}
	}
}

// errorClass matches the codes written by writeError.
func errorClass(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "internal_error"
	case status == http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case status == http.StatusNotFound:
		return "not_found"
	case status == http.StatusBadRequest:
		return "bad_request"
	default:
		return "client_error"
	}
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status, rw.wroteHeader = code, true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b) //nolint:wrapcheck // passthrough
}
