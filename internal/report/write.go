package report

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/registration.report/internal/fsutil"
	"github.com/banshee-data/registration.report/internal/monitoring"
	"github.com/banshee-data/registration.report/internal/render"
)

// WriteOptions controls artifact output.
type WriteOptions struct {
	Style render.Style
	// HTML also writes the interactive echarts page for success figures.
	HTML bool
	// CSV also writes the per-bin table for success figures.
	CSV bool
	// AssetsHost is passed to the echarts page.
	AssetsHost string
}

// WriteSuccess renders a success report into its output directory and
// returns the written paths.
func (r *Reporter) WriteSuccess(rep *SuccessReport, o WriteOptions) ([]string, error) {
	p, err := render.SuccessPlot(rep.Series, rep.Edges, rep.Dataset, o.Style)
	if err != nil {
		return nil, err
	}
	dir := rep.OutputDir(r.DatasetsDir)
	written, err := render.Save(r.FS, p, dir, rep.Name(), o.Style)
	if err != nil {
		return written, err
	}

	stem := filepath.Join(dir, o.Style.Prefix()+rep.Name())
	if o.HTML {
		path := stem + ".html"
		err := createWith(r.FS, path, func(w io.Writer) error {
			return render.SuccessHTML(w, rep.Series, rep.Edges, rep.Dataset, o.Style, render.HTMLOptions{
				Subtitle:   fmt.Sprintf("%s, %s, fold %s", rep.Family, rep.Preprocess, rep.Fold),
				AssetsHost: o.AssetsHost,
			})
		})
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if o.CSV {
		path := stem + ".csv"
		err := createWith(r.FS, path, func(w io.Writer) error {
			return render.WriteCurveCSV(w, rep.Series)
		})
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// WriteScatter renders a scatter report into the dataset's output directory.
func (r *Reporter) WriteScatter(rep *ScatterReport, o WriteOptions) ([]string, error) {
	p, err := render.ScatterPlot(rep.Set, rep.Dataset, o.Style)
	if err != nil {
		return nil, err
	}
	return render.Save(r.FS, p, rep.Dataset.OutputDir(r.DatasetsDir, rep.Fold), rep.Name(), o.Style)
}

// WriteFID renders an FID report into the dataset-level output directory.
func (r *Reporter) WriteFID(rep *FIDReport, o WriteOptions) ([]string, error) {
	p, err := render.FIDPlot(rep.Table, rep.Dataset, o.Style)
	if err != nil {
		return nil, err
	}
	return render.Save(r.FS, p, rep.OutputDir(r.DatasetsDir), rep.Name(), o.Style)
}

func createWith(fsys fsutil.FileSystem, path string, fn func(io.Writer) error) error {
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	monitoring.Logf("report: wrote %s", path)
	return nil
}
