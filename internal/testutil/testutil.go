// Package testutil provides shared test fixtures for result tables.
//
// Fixtures are written the way the evaluation pipeline writes them: a pandas
// style CSV with an unnamed index column followed by Displacement and Error.
package testutil

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/registration.report/internal/fsutil"
)

// Row is one (Displacement, Error) pair.
type Row struct {
	Displacement float64
	Error        float64
}

// ResultCSV renders rows as a result table.
func ResultCSV(rows []Row) string {
	var b strings.Builder
	b.WriteString(",Displacement,Error\n")
	for i, r := range rows {
		fmt.Fprintf(&b, "%d,%g,%g\n", i, r.Displacement, r.Error)
	}
	return b.String()
}

// WriteResultFile writes rows to path on fsys, creating parent directories.
func WriteResultFile(t testing.TB, fsys fsutil.FileSystem, path string, rows []Row) {
	t.Helper()
	if err := fsys.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := fsys.WriteFile(path, []byte(ResultCSV(rows)), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ResultPath builds <root>/[fold]/patch_tlevel<level>/results/<stem>.csv.
func ResultPath(root, fold string, level int, stem string) string {
	parts := []string{root}
	if fold != "" {
		parts = append(parts, fold)
	}
	parts = append(parts, fmt.Sprintf("patch_tlevel%d", level), "results", stem+".csv")
	return filepath.Join(parts...)
}

// UniformRows returns n rows with displacements 0..n-1 and the error produced
// by errFn for each displacement.
func UniformRows(n int, errFn func(d float64) float64) []Row {
	rows := make([]Row, n)
	for i := range rows {
		d := float64(i)
		rows[i] = Row{Displacement: d, Error: errFn(d)}
	}
	return rows
}
