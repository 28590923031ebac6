package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// maxAuditBody caps how much of a request body the audit log retains.
const maxAuditBody = 10 * 1024

// auditEntry is one JSON line in the request audit log.
type auditEntry struct {
	Time       string  `json:"time"`
	RequestID  string  `json:"request_id,omitempty"`
	Method     string  `json:"method"`
	Path       string  `json:"path"`
	Status     int     `json:"status"`
	DurationMs float64 `json:"duration_ms"`
	RemoteAddr string  `json:"remote_addr"`
	Bytes      int     `json:"bytes"`
	Body       string  `json:"body,omitempty"`
	Truncated  bool    `json:"body_truncated,omitempty"`
}

// auditLogger emits one JSON line per completed request. Dispatch and
// geocode bodies are retained up to maxAuditBody so a decision can be
// replayed during incident review.
func auditLogger(out io.Writer) func(http.Handler) http.Handler {
	logger := log.New(out, "", 0)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			body, truncated := captureBody(r)

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			entry := auditEntry{
				Time:       start.UTC().Format(time.RFC3339Nano),
				RequestID:  chimiddleware.GetReqID(r.Context()),
				Method:     r.Method,
				Path:       r.URL.Path,
				Status:     ww.Status(),
				DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
				RemoteAddr: remoteAddr(r),
				Bytes:      ww.BytesWritten(),
				Body:       string(body),
				Truncated:  truncated,
			}
			line, err := json.Marshal(entry)
			if err != nil {
				log.Printf("Warning: failed to encode audit entry: %v", err)
				return
			}
			logger.Println(string(line))
		})
	}
}

// captureBody reads up to maxAuditBody bytes of the request body and
// splices the consumed bytes back so the handler still sees the full
// stream.
func captureBody(r *http.Request) ([]byte, bool) {
	if r.Body == nil || r.ContentLength == 0 {
		return nil, false
	}
	buf, err := io.ReadAll(io.LimitReader(r.Body, maxAuditBody+1))
	if err != nil {
		return nil, false
	}
	r.Body = readCloser{
		Reader: io.MultiReader(bytes.NewReader(buf), r.Body),
		Closer: r.Body,
	}
	if len(buf) > maxAuditBody {
		return buf[:maxAuditBody], true
	}
	return buf, false
}

type readCloser struct {
	io.Reader
	io.Closer
}

// remoteAddr prefers the proxy-provided client address, first hop of
// X-Forwarded-For then X-Real-IP, so entries stay useful behind a
// reverse proxy.
func remoteAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.Index(fwd, ","); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	return r.RemoteAddr
}
