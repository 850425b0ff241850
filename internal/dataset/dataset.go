// Package dataset describes the evaluation datasets: where their result
// trees live, their image width (which fixes the success threshold), and
// whether they are split into cross-validation folds.
package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/banshee-data/registration.report/internal/aggregate"
	"github.com/banshee-data/registration.report/internal/results"
)

var (
	// ErrInvalidConfig is the parent of every configuration rejection.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrUnknownDataset is returned for dataset names outside the registry.
	ErrUnknownDataset = fmt.Errorf("%w: unknown dataset", ErrInvalidConfig)
	// ErrUnknownPreprocess is returned for unsupported preprocessing tags.
	ErrUnknownPreprocess = fmt.Errorf("%w: unknown preprocess tag", ErrInvalidConfig)
)

// Dataset is one entry of the registry.
type Dataset struct {
	Name     string
	Dir      string
	Width    float64
	HasFolds bool

	// Display range for the displacement axis. XMax == XMin means auto.
	XMin, XMax float64
	// RelXMax bounds the relative-displacement axis; 0 means auto.
	RelXMax float64
}

var registry = map[string]Dataset{
	"Eliceiri": {Name: "Eliceiri", Dir: "Eliceiri_patches", Width: 834, XMin: 0, XMax: 225},
	"Balvan":   {Name: "Balvan", Dir: "Balvan_patches", Width: 300, HasFolds: true, XMin: -1, XMax: 81, RelXMax: 0.27},
	"Zurich":   {Name: "Zurich", Dir: "Zurich_patches", Width: 300, HasFolds: true, XMin: -1, XMax: 81, RelXMax: 0.27},
}

// Lookup returns the dataset with the given name.
func Lookup(name string) (Dataset, error) {
	d, ok := registry[name]
	if !ok {
		return Dataset{}, fmt.Errorf("%w %q (want one of %s)", ErrUnknownDataset, name, strings.Join(Names(), ", "))
	}
	return d, nil
}

// Names lists the registered datasets in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Threshold returns the success threshold for this dataset in pixels.
func (d Dataset) Threshold() float64 {
	return aggregate.SuccessThreshold(d.Width)
}

// Root returns the dataset's base directory under datasetsDir. Fold
// directories, when present, sit directly below it.
func (d Dataset) Root(datasetsDir string) string {
	return filepath.Join(datasetsDir, d.Dir)
}

// Fold normalises a fold selector for this dataset. Datasets without folds
// always read their single tree.
func (d Dataset) Fold(f results.Fold) results.Fold {
	if !d.HasFolds {
		return results.Fold{}
	}
	if !f.All && f.K < 1 {
		return results.Fold{K: 1}
	}
	return f
}

// OutputDir returns where rendered artifacts for this dataset are written.
// Artifacts for a single fold go under that fold's directory.
func (d Dataset) OutputDir(datasetsDir string, f results.Fold) string {
	f = d.Fold(f)
	if f.K > 0 {
		return filepath.Join(d.Root(datasetsDir), f.Dir(), "result_imgs")
	}
	return filepath.Join(d.Root(datasetsDir), "result_imgs")
}

// FakeDir returns the directory holding the generated-image (FID) tables.
func (d Dataset) FakeDir(datasetsDir string) string {
	return filepath.Join(datasetsDir, d.Dir+"_fake")
}

// preprocessTags are the preprocessing variants the pipeline writes.
var preprocessTags = map[string]bool{
	"":      true,
	"nopre": true,
	"PCA":   true,
	"hiseq": true,
	"su":    true,
	"us":    true,
}

// ValidatePreprocess rejects unsupported preprocessing tags.
func ValidatePreprocess(tag string) error {
	if !preprocessTags[tag] {
		return fmt.Errorf("%w %q", ErrUnknownPreprocess, tag)
	}
	return nil
}
