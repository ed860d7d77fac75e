// Rate limit response headers.

package ratelimit

import (
	"net/http"
	"strconv"
)

// WriteHeaders sets the X-RateLimit-* headers, plus Retry-After when the
// request was refused.
func WriteHeaders(w http.ResponseWriter, res Result) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
	if !res.Allowed {
		h.Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
	}
}

// headerWriter delays WriteHeaders until the handler writes its response so
// the headers survive handlers that reset the header map.
type headerWriter struct {
	http.ResponseWriter
	res  Result
	done bool
}

// NewResponseWriter wraps w so that the rate limit headers of res are sent
// with the response.
func NewResponseWriter(w http.ResponseWriter, res Result) http.ResponseWriter {
	return &headerWriter{ResponseWriter: w, res: res}
}

func (hw *headerWriter) flushHeaders() {
	if !hw.done {
		hw.done = true
		WriteHeaders(hw.ResponseWriter, hw.res)
	}
}

func (hw *headerWriter) WriteHeader(code int) {
	hw.flushHeaders()
	hw.ResponseWriter.WriteHeader(code)
}

func (hw *headerWriter) Write(b []byte) (int, error) {
	hw.flushHeaders()
	return hw.ResponseWriter.Write(b)
}

// Unwrap is used by http.ResponseController.
func (hw *headerWriter) Unwrap() http.ResponseWriter {
	return hw.ResponseWriter
}

// BuildKey returns the bucket key for a client IP in a tier.
func BuildKey(clientIP, tier string) string {
	return "ip:" + clientIP + ":" + tier
}
