package render

import (
	"fmt"
	"path/filepath"

	"github.com/banshee-data/registration.report/internal/fsutil"
	"github.com/banshee-data/registration.report/internal/monitoring"
	"github.com/banshee-data/registration.report/internal/results"
	"gonum.org/v1/plot"
)

// SuccessName is the artifact stem for a success-curve figure.
func SuccessName(datasetName, family, preprocess string) string {
	return fmt.Sprintf("%s_success_%s_%s", datasetName, family, preprocess)
}

// ScatterName is the artifact stem for an error scatter.
func ScatterName(sel results.Selector) string {
	return "scatter_" + sel.String()
}

// FIDName is the artifact stem for an FID comparison.
func FIDName(datasetName, preprocess string) string {
	return fmt.Sprintf("%s_fid_%s", datasetName, preprocess)
}

// Save writes p into dir as a PNG and in the style's vector format. The file
// names are the style prefix followed by name. It returns the written paths.
func Save(fsys fsutil.FileSystem, p *plot.Plot, dir, name string, style Style) ([]string, error) {
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	var written []string
	for _, format := range []string{"png", style.VectorFormat()} {
		path := filepath.Join(dir, style.Prefix()+name+"."+format)
		if err := writePlot(fsys, p, path, format, style); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	monitoring.Logf("render: wrote %v", written)
	return written, nil
}

func writePlot(fsys fsutil.FileSystem, p *plot.Plot, path, format string, style Style) error {
	wt, err := p.WriterTo(style.Width, style.Height, format)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
