package server

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/banshee-data/registration.report/internal/aggregate"
	"github.com/banshee-data/registration.report/internal/dataset"
	"github.com/banshee-data/registration.report/internal/httputil"
	"github.com/banshee-data/registration.report/internal/methods"
	"github.com/banshee-data/registration.report/internal/monitoring"
	"github.com/banshee-data/registration.report/internal/render"
	"github.com/banshee-data/registration.report/internal/report"
	"github.com/banshee-data/registration.report/internal/results"
	"github.com/banshee-data/registration.report/internal/security"
	"github.com/banshee-data/registration.report/internal/store"
	"github.com/banshee-data/registration.report/internal/version"
)

// writeError maps report errors onto status codes: configuration problems
// are the caller's fault, missing results are not found, anything else is
// logged as a server error.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dataset.ErrInvalidConfig),
		errors.Is(err, results.ErrInvalidSelector),
		errors.Is(err, security.ErrInvalidArtifactName):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, results.ErrEmptyResultSet),
		errors.Is(err, store.ErrRunNotFound),
		errors.Is(err, fs.ErrNotExist):
		httputil.NotFound(w, err.Error())
	default:
		monitoring.Logf("server: %v", err)
		httputil.InternalServerError(w, "internal error")
	}
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// parseFold parses the fold query value. An empty value selects the
// dataset's default fold.
func parseFold(s string) (results.Fold, error) {
	if s == "" {
		return results.Fold{}, nil
	}
	f, err := results.ParseFold(s)
	if err != nil {
		return results.Fold{}, fmt.Errorf("%w: %v", dataset.ErrInvalidConfig, err)
	}
	return f, nil
}

type curveResponse struct {
	Dataset string            `json:"dataset"`
	Fold    string            `json:"fold"`
	Curve   *aggregate.Curve  `json:"curve"`
	Summary aggregate.Summary `json:"summary"`
}

// handleCurve serves GET /api/curve?dataset=&method=&mode=&pre=&fold=.
func (s *Server) handleCurve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fold, err := parseFold(q.Get("fold"))
	if err != nil {
		writeError(w, err)
		return
	}
	req := report.CurveRequest{
		Dataset: q.Get("dataset"),
		Selector: results.Selector{
			Method:     q.Get("method"),
			Mode:       valueOr(q.Get("mode"), "b2a"),
			Preprocess: valueOr(q.Get("pre"), "nopre"),
		},
		Fold: fold,
	}

	start := s.opts.Clock.Now()
	cr, err := s.reporter.Curve(req)
	s.metrics.computeSeconds.WithLabelValues("curve").Observe(s.opts.Clock.Since(start).Seconds())
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.curves.WithLabelValues(cr.Dataset.Name).Inc()

	httputil.WriteJSONOK(w, curveResponse{
		Dataset: cr.Dataset.Name,
		Fold:    cr.Fold.String(),
		Curve:   cr.Curve,
		Summary: cr.Summary,
	})
}

func (s *Server) successReport(r *http.Request) (*report.SuccessReport, error) {
	q := r.URL.Query()
	fold, err := parseFold(q.Get("fold"))
	if err != nil {
		return nil, err
	}
	start := s.opts.Clock.Now()
	rep, err := s.reporter.SuccessCurves(report.SuccessRequest{
		Dataset:    q.Get("dataset"),
		Family:     valueOr(q.Get("family"), "SIFT"),
		Preprocess: valueOr(q.Get("pre"), "nopre"),
		Fold:       fold,
	})
	s.metrics.computeSeconds.WithLabelValues("success").Observe(s.opts.Clock.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	s.metrics.curves.WithLabelValues(rep.Dataset.Name).Add(float64(len(rep.Series)))
	return rep, nil
}

type seriesResponse struct {
	Label   string            `json:"label"`
	Tier    methods.Tier      `json:"tier"`
	Curve   *aggregate.Curve  `json:"curve"`
	Summary aggregate.Summary `json:"summary"`
}

type successResponse struct {
	Dataset    string           `json:"dataset"`
	Family     string           `json:"family"`
	Preprocess string           `json:"preprocess"`
	Fold       string           `json:"fold"`
	Edges      []float64        `json:"edges"`
	Series     []seriesResponse `json:"series"`
}

// handleSuccessJSON serves GET /api/success?dataset=&family=&pre=&fold=.
func (s *Server) handleSuccessJSON(w http.ResponseWriter, r *http.Request) {
	rep, err := s.successReport(r)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := successResponse{
		Dataset:    rep.Dataset.Name,
		Family:     rep.Family,
		Preprocess: rep.Preprocess,
		Fold:       rep.Fold.String(),
		Edges:      rep.Edges,
		Series:     make([]seriesResponse, len(rep.Series)),
	}
	for i, cs := range rep.Series {
		resp.Series[i] = seriesResponse{Label: cs.Label, Tier: cs.Tier, Curve: cs.Curve, Summary: rep.Summaries[cs.Label]}
	}
	httputil.WriteJSONOK(w, resp)
}

// handleSuccessHTML serves GET /success as an interactive echarts page.
func (s *Server) handleSuccessHTML(w http.ResponseWriter, r *http.Request) {
	rep, err := s.successReport(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	err = render.SuccessHTML(&buf, rep.Series, rep.Edges, rep.Dataset, s.style(r), render.HTMLOptions{
		Subtitle:   fmt.Sprintf("%s, %s, fold %s", rep.Family, rep.Preprocess, rep.Fold),
		AssetsHost: s.opts.AssetsHost,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteHTML(w, buf.Bytes())
}

// handleArtifact serves GET /artifacts/<dataset>/<name>?fold= from the
// dataset's output directory.
func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	dsName, name := filepath.Split(trimRoute(r.URL.Path, "/artifacts/"))
	dsName = filepath.Clean(dsName)
	ds, err := dataset.Lookup(dsName)
	if err != nil {
		writeError(w, err)
		return
	}
	fold, err := parseFold(r.URL.Query().Get("fold"))
	if err != nil {
		writeError(w, err)
		return
	}

	path, err := security.ResolveArtifact(s.reporter.FS, ds.OutputDir(s.reporter.DatasetsDir, fold), name)
	if err != nil {
		if !errors.Is(err, security.ErrInvalidArtifactName) {
			monitoring.Logf("server: rejected artifact %q: %v", name, err)
			httputil.NotFound(w, "artifact not found")
			return
		}
		writeError(w, err)
		return
	}
	data, err := s.reporter.FS.ReadFile(path)
	if err != nil {
		writeError(w, err)
		return
	}

	ctype := mime.TypeByExtension(filepath.Ext(name))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", ctype)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		monitoring.Logf("server: failed to write %s: %v", path, err)
	}
}

// handleRuns serves GET /api/runs?dataset= from the run history.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.opts.Runs == nil {
		httputil.NotFound(w, "run history is disabled")
		return
	}
	dsName := r.URL.Query().Get("dataset")
	if dsName != "" {
		if _, err := dataset.Lookup(dsName); err != nil {
			writeError(w, err)
			return
		}
	}
	runs, err := s.opts.Runs.List(dsName)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []*store.CurveRun{}
	}
	httputil.WriteJSONOK(w, runs)
}

// handleRun serves GET /api/runs/<id>.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.opts.Runs == nil {
		httputil.NotFound(w, "run history is disabled")
		return
	}
	id := trimRoute(r.URL.Path, "/api/runs/")
	if id == "" {
		s.handleRuns(w, r)
		return
	}
	run, err := s.opts.Runs.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, run)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, version.Current())
}
