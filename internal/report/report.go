// Package report selects which result sets make up each figure, computes
// their curves, and hands them to the renderers. Each call builds one report;
// nothing is cached between calls.
package report

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/banshee-data/registration.report/internal/aggregate"
	"github.com/banshee-data/registration.report/internal/dataset"
	"github.com/banshee-data/registration.report/internal/fid"
	"github.com/banshee-data/registration.report/internal/fsutil"
	"github.com/banshee-data/registration.report/internal/methods"
	"github.com/banshee-data/registration.report/internal/monitoring"
	"github.com/banshee-data/registration.report/internal/render"
	"github.com/banshee-data/registration.report/internal/results"
	"github.com/banshee-data/registration.report/internal/store"
)

// ErrUnknownFamily is returned for plot families other than SIFT, aAMD and VXM.
var ErrUnknownFamily = fmt.Errorf("%w: unknown plot family", dataset.ErrInvalidConfig)

// Families lists the supported success-plot families.
var Families = []string{"SIFT", "aAMD", "VXM"}

// Baseline selectors drawn on every success plot.
var (
	MIBaseline = results.Selector{Method: "MI", Mode: "b2a", Preprocess: "nopre"}
	CABaseline = results.Selector{Method: "CA", Mode: "b2a", Preprocess: "nopre"}
)

// RunRecorder persists computed curves. *store.CurveStore satisfies it.
type RunRecorder interface {
	Insert(run *store.CurveRun) error
}

// Reporter builds reports from result trees under DatasetsDir.
type Reporter struct {
	FS          fsutil.FileSystem
	DatasetsDir string
	Catalog     *methods.Catalog
	// Recorder, when set, receives every computed curve.
	Recorder RunRecorder
}

// New returns a Reporter reading from the OS filesystem with the default
// method catalog.
func New(datasetsDir string) *Reporter {
	return &Reporter{
		FS:          fsutil.OSFileSystem{},
		DatasetsDir: datasetsDir,
		Catalog:     methods.NewCatalog(),
	}
}

func (r *Reporter) catalog() *methods.Catalog {
	if r.Catalog == nil {
		r.Catalog = methods.NewCatalog()
	}
	return r.Catalog
}

// SuccessRequest selects one success-rate figure.
type SuccessRequest struct {
	Dataset    string
	Family     string
	Preprocess string
	Fold       results.Fold
}

// SuccessReport is the set of curves for one success-rate figure.
type SuccessReport struct {
	Dataset    dataset.Dataset
	Family     string
	Preprocess string
	Fold       results.Fold
	Series     []render.CurveSeries
	// Edges are the bin edges of the last curve computed.
	Edges     []float64
	Summaries map[string]aggregate.Summary
}

// Name returns the artifact stem for the report.
func (s *SuccessReport) Name() string {
	return render.SuccessName(s.Dataset.Name, s.Family, s.Preprocess)
}

// OutputDir returns where the report's artifacts are written.
func (s *SuccessReport) OutputDir(datasetsDir string) string {
	return s.Dataset.OutputDir(datasetsDir, s.Fold)
}

func validateFamily(family string) error {
	for _, f := range Families {
		if f == family {
			return nil
		}
	}
	return fmt.Errorf("%w %q (want one of %s)", ErrUnknownFamily, family, strings.Join(Families, ", "))
}

// matchesFamily reports whether a discovered selector belongs on a family's
// plot. VXM curves are drawn for every preprocessing variant.
func matchesFamily(sel results.Selector, family, preprocess string) bool {
	if !strings.Contains(sel.Method, family) {
		return false
	}
	return family == "VXM" || sel.Preprocess == preprocess
}

// seriesLabel is the legend label for a curve.
func seriesLabel(sel results.Selector) string {
	if sel.Method == "VXM" {
		return sel.String()
	}
	return sel.Method + "_" + sel.Mode
}

// SuccessCurves computes every curve drawn on one success-rate figure, in
// draw order: the MI baseline, the discovered curves of the family, then the
// CA baseline for Eliceiri. Selectors without results are logged and
// skipped; the report fails only if no curve remains.
func (r *Reporter) SuccessCurves(req SuccessRequest) (*SuccessReport, error) {
	ds, err := dataset.Lookup(req.Dataset)
	if err != nil {
		return nil, err
	}
	if err := dataset.ValidatePreprocess(req.Preprocess); err != nil {
		return nil, err
	}
	if err := validateFamily(req.Family); err != nil {
		return nil, err
	}
	fold := ds.Fold(req.Fold)
	root := ds.Root(r.DatasetsDir)

	discovered, err := results.Discover(r.FS, root, fold)
	if err != nil {
		return nil, err
	}

	order := []results.Selector{MIBaseline}
	for _, sel := range discovered {
		if matchesFamily(sel, req.Family, req.Preprocess) {
			order = append(order, sel)
		}
	}
	if ds.Name == "Eliceiri" {
		order = append(order, CABaseline)
	}

	rep := &SuccessReport{
		Dataset:    ds,
		Family:     req.Family,
		Preprocess: req.Preprocess,
		Fold:       fold,
		Summaries:  make(map[string]aggregate.Summary),
	}
	seen := make(map[results.Selector]bool, len(order))
	for _, sel := range order {
		if seen[sel] {
			continue
		}
		seen[sel] = true

		curve, summary, err := r.compute(ds, sel, fold)
		if errors.Is(err, results.ErrEmptyResultSet) {
			monitoring.Logf("report: %s %s: skipping %s: %v", ds.Name, req.Family, sel, err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", ds.Name, sel, err)
		}

		label := seriesLabel(sel)
		rep.Series = append(rep.Series, render.CurveSeries{
			Label: label,
			Tier:  r.catalog().Resolve(sel.Method).Tier,
			Curve: curve,
		})
		rep.Edges = curve.Edges
		rep.Summaries[label] = summary
	}

	if len(rep.Series) == 0 {
		return nil, fmt.Errorf("%s %s %s fold %s: %w", ds.Name, req.Family, req.Preprocess, fold, results.ErrEmptyResultSet)
	}
	return rep, nil
}

// CurveRequest selects a single success curve.
type CurveRequest struct {
	Dataset  string
	Selector results.Selector
	Fold     results.Fold
}

// CurveReport is one computed curve with its whole-set statistics.
type CurveReport struct {
	Dataset dataset.Dataset `json:"-"`
	Fold    results.Fold    `json:"-"`
	Curve   *aggregate.Curve
	Summary aggregate.Summary
}

// Curve computes the success curve for one selector.
func (r *Reporter) Curve(req CurveRequest) (*CurveReport, error) {
	ds, err := dataset.Lookup(req.Dataset)
	if err != nil {
		return nil, err
	}
	if err := dataset.ValidatePreprocess(req.Selector.Preprocess); err != nil {
		return nil, err
	}
	fold := ds.Fold(req.Fold)

	curve, summary, err := r.compute(ds, req.Selector, fold)
	if err != nil {
		return nil, err
	}
	return &CurveReport{Dataset: ds, Fold: fold, Curve: curve, Summary: summary}, nil
}

// compute loads, aggregates and optionally records one curve.
func (r *Reporter) compute(ds dataset.Dataset, sel results.Selector, fold results.Fold) (*aggregate.Curve, aggregate.Summary, error) {
	rs, err := results.Load(r.FS, ds.Root(r.DatasetsDir), sel, fold)
	if err != nil {
		return nil, aggregate.Summary{}, err
	}
	curve, err := aggregate.ComputeSuccessCurve(rs, ds.Threshold())
	if err != nil {
		return nil, aggregate.Summary{}, err
	}
	summary := aggregate.Summarize(rs, ds.Threshold())
	monitoring.Debugf("report: %s %s fold %s: %d trials, %d successes", ds.Name, sel, fold, summary.Trials, summary.Successes)

	if r.Recorder != nil {
		run := store.NewCurveRun(ds.Name, fold, curve, &summary, rs.Sources)
		if err := r.Recorder.Insert(run); err != nil {
			// A failed write does not invalidate the computed curve.
			monitoring.Logf("report: failed to record %s %s: %v", ds.Name, sel, err)
		}
	}
	return curve, summary, nil
}

// ScatterRequest selects one error scatter.
type ScatterRequest struct {
	Dataset  string
	Selector results.Selector
	Fold     results.Fold
}

// ScatterReport is the pooled result set behind one scatter plot.
type ScatterReport struct {
	Dataset dataset.Dataset
	Fold    results.Fold
	Set     *results.ResultSet
	Summary aggregate.Summary
}

// Name returns the artifact stem for the report.
func (s *ScatterReport) Name() string {
	return render.ScatterName(s.Set.Selector)
}

// Scatter loads the pooled trials for one selector. Folded datasets default
// to the first fold.
func (r *Reporter) Scatter(req ScatterRequest) (*ScatterReport, error) {
	ds, err := dataset.Lookup(req.Dataset)
	if err != nil {
		return nil, err
	}
	if err := dataset.ValidatePreprocess(req.Selector.Preprocess); err != nil {
		return nil, err
	}
	fold := ds.Fold(req.Fold)

	rs, err := results.Load(r.FS, ds.Root(r.DatasetsDir), req.Selector, fold)
	if err != nil {
		return nil, err
	}
	return &ScatterReport{
		Dataset: ds,
		Fold:    fold,
		Set:     rs,
		Summary: aggregate.Summarize(rs, ds.Threshold()),
	}, nil
}

// FIDRequest selects one FID comparison.
type FIDRequest struct {
	Dataset    string
	Preprocess string
}

// FIDReport is the FID-vs-success table for one dataset and preprocessing.
type FIDReport struct {
	Dataset    dataset.Dataset
	Preprocess string
	Table      *fid.Table
}

// Name returns the artifact stem for the report.
func (f *FIDReport) Name() string {
	return render.FIDName(f.Dataset.Name, f.Preprocess)
}

// OutputDir returns the dataset-level artifact directory. FID figures span
// every fold so they are never written under a fold directory.
func (f *FIDReport) OutputDir(datasetsDir string) string {
	return filepath.Join(f.Dataset.Root(datasetsDir), "result_imgs")
}

// FID loads the FID table for a dataset.
func (r *Reporter) FID(req FIDRequest) (*FIDReport, error) {
	ds, err := dataset.Lookup(req.Dataset)
	if err != nil {
		return nil, err
	}
	if err := dataset.ValidatePreprocess(req.Preprocess); err != nil {
		return nil, err
	}
	tbl, err := fid.Load(r.FS, ds.FakeDir(r.DatasetsDir), req.Preprocess)
	if err != nil {
		return nil, err
	}
	if len(tbl.GANRows()) == 0 {
		return nil, fmt.Errorf("%s: no generated-image methods in %s", ds.Name, fid.FileName(req.Preprocess))
	}
	return &FIDReport{Dataset: ds, Preprocess: req.Preprocess, Table: tbl}, nil
}
