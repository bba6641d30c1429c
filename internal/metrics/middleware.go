package metrics

import (
	"net/http"
	"strings"
	"time"
)

// UnmatchedRoute labels requests no route pattern matched.
const UnmatchedRoute = "unmatched"

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware returns middleware that records HTTP metrics. Requests are
// labelled by the matched ServeMux pattern, so path parameters such as
// tickers and signal ids never become label values. It must wrap the mux
// directly: the mux sets the pattern on the request it receives.
func HTTPMiddleware(reg *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reg.InFlightInc()
			defer reg.InFlightDec()

			start := time.Now()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			reg.RecordRequest(r.Method, routeLabel(r), rw.statusCode, duration)
		})
	}
}

// routeLabel returns the path part of the matched pattern, e.g.
// "GET /api/v1/signals/{ticker}" becomes "/api/v1/signals/{ticker}".
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return UnmatchedRoute
	}
	if _, route, ok := strings.Cut(r.Pattern, " "); ok {
		return route
	}
	return r.Pattern
}
