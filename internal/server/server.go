// Package server serves success curves and rendered artifacts over HTTP.
package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/registration.report/internal/httputil"
	"github.com/banshee-data/registration.report/internal/monitoring"
	"github.com/banshee-data/registration.report/internal/render"
	"github.com/banshee-data/registration.report/internal/report"
	"github.com/banshee-data/registration.report/internal/store"
	"github.com/banshee-data/registration.report/internal/timeutil"
)

// RunStore is the run history the server reads. *store.CurveStore satisfies it.
type RunStore interface {
	List(datasetName string) ([]*store.CurveRun, error)
	Get(runID string) (*store.CurveRun, error)
}

// Options configures a Server.
type Options struct {
	// Dark selects the default page style; ?dark= overrides per request.
	Dark       bool
	AssetsHost string
	// Runs enables /api/runs. Nil disables it.
	Runs RunStore
	// Clock times report computation. Defaults to the wall clock.
	Clock timeutil.Clock
}

// Server handles the report routes.
type Server struct {
	reporter *report.Reporter
	opts     Options
	metrics  *metrics
}

// NewServer creates a server reading results through rep.
func NewServer(rep *report.Reporter, opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	return &Server{reporter: rep, opts: opts, metrics: newMetrics()}
}

// ServeMux returns the report routes. Every route is counted in the request
// metrics under its pattern.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	s.handle(mux, "/api/curve", s.handleCurve)
	s.handle(mux, "/api/success", s.handleSuccessJSON)
	s.handle(mux, "/success", s.handleSuccessHTML)
	s.handle(mux, "/artifacts/", s.handleArtifact)
	s.handle(mux, "/api/runs", s.handleRuns)
	s.handle(mux, "/api/runs/", s.handleRun)
	s.handle(mux, "/api/version", s.handleVersion)
	mux.Handle("/metrics", s.metrics.handler())
	return mux
}

func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			httputil.MethodNotAllowed(w)
			s.metrics.requests.WithLabelValues(pattern, strconv.Itoa(http.StatusMethodNotAllowed)).Inc()
			return
		}
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		h(lrw, r)
		s.metrics.requests.WithLabelValues(pattern, strconv.Itoa(lrw.statusCode)).Inc()
	}))
}

func (s *Server) style(r *http.Request) render.Style {
	dark := s.opts.Dark
	if v := r.URL.Query().Get("dark"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			dark = b
		}
	}
	return render.StyleFor(dark)
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// LoggingMiddleware logs status, method, URI and duration, timed with the
// server's clock.
func (s *Server) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.opts.Clock.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf("[%d] %s %s %.3fms",
			lrw.statusCode, r.Method, r.URL.RequestURI(),
			float64(s.opts.Clock.Since(start).Nanoseconds())/1e6)
	})
}

// trimRoute returns the path below a subtree pattern such as "/artifacts/".
func trimRoute(path, prefix string) string {
	return strings.Trim(strings.TrimPrefix(path, prefix), "/")
}
