package server

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/logging"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/metrics"
)

const (
	requestIDHeader    = "X-Request-ID"
	maxRequestIDLength = 128
)

// statusWriter remembers the status code written by the wrapped handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func newStatusWriter(w http.ResponseWriter) *statusWriter {
	return &statusWriter{ResponseWriter: w, status: http.StatusOK}
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// requestIDMiddleware accepts a caller supplied id or mints one, echoes it in the response
// and stores it on the context for the logger.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := newStatusWriter(w)
		next.ServeHTTP(sw, r)

		level := slog.LevelInfo
		if sw.status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.Log(r.Context(), level, "request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// metricsMiddleware labels requests with the matched route template, not the raw path.
// Requests that matched no route are labelled "unmatched".
func metricsMiddleware(m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			m.ObserveRequest(routeTemplate(r), r.Method, sw.status)
		})
	}
}

func routeTemplate(r *http.Request) string {
	current := mux.CurrentRoute(r)
	if current == nil {
		return "unmatched"
	}
	tpl, err := current.GetPathTemplate()
	if err != nil {
		return "unmatched"
	}
	return tpl
}

type corsPolicy struct {
	origins          []string
	anyOrigin        bool
	allowCredentials bool
}

// newCORSPolicy returns nil when no origin is configured, leaving requests untouched.
func newCORSPolicy(origins []string, allowCredentials bool) *corsPolicy {
	p := &corsPolicy{allowCredentials: allowCredentials}
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		switch origin {
		case "":
		case "*":
			p.anyOrigin = true
		default:
			p.origins = append(p.origins, origin)
		}
	}
	if !p.anyOrigin && len(p.origins) == 0 {
		return nil
	}
	return p
}

func (p *corsPolicy) allows(origin string) bool {
	return origin != "" && (p.anyOrigin || p.listed(origin))
}

func (p *corsPolicy) listed(origin string) bool {
	return slices.Contains(p.origins, origin)
}

// wrap answers pre-flights and decorates responses for allowed origins. Credentials are
// only granted to listed origins; a "*" entry admits any origin without them.
func (p *corsPolicy) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		preflight := r.Method == http.MethodOptions

		if !p.allows(origin) {
			if preflight {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
		if p.allowCredentials && p.listed(origin) {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		if preflight {
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+requestIDHeader)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
