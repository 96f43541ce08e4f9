package middleware

import (
	"bufio"
	"log"
	"net"
	"net/http"
	"time"
)

// statusRecorder captures the status code and whether the connection was
// hijacked for a websocket upgrade. A hijacked response carries no status
// worth reporting, and its duration spans the whole presence session rather
// than a request.
type statusRecorder struct {
	http.ResponseWriter
	status   int
	hijacked bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	rw.hijacked = true
	return hijacker.Hijack()
}

func LoggerMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			userID := GetUserID(r)
			if userID == "" {
				userID = "anonymous"
			}

			if rw.hijacked {
				log.Printf("%s %s - websocket session closed after %v - user: %s",
					r.Method, r.URL.Path, time.Since(start), userID)
				return
			}

			log.Printf("%s %s %s - %d in %v - user: %s",
				r.Method, r.URL.Path, r.RemoteAddr, rw.status, time.Since(start), userID)
		})
	}
}
