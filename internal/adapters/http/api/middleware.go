package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/quotient/pkg/metrics"
)

// RequestIDHeader carries the caller's request id; one is generated when the
// caller sends none, and it is echoed on the response.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds ids accepted from callers.
const maxRequestIDLen = 128

// MetricsMiddleware records request count, latency and error class for
// endpoint, and stamps the response with a request id.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, float64(time.Since(start).Milliseconds()))
		if rec.status >= http.StatusBadRequest {
			metrics.RecordErrorByEndpoint(endpoint, r.Method, errorClass(rec.status))
		}
	}
}

func errorClass(status int) string {
	switch {
	case status == http.StatusBadGateway:
		return "upstream_error"
	case status == http.StatusServiceUnavailable:
		return "unavailable"
	case status >= http.StatusInternalServerError:
		return "server_error"
	case status == http.StatusTooManyRequests:
		return "backpressure"
	case status == http.StatusNotFound:
		return "not_found"
	case status == http.StatusConflict:
		return "conflict"
	default:
		return "client_error"
	}
}

// statusRecorder remembers the first status code written.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
