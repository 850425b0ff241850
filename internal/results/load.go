package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/registration.report/internal/fsutil"
	"github.com/banshee-data/registration.report/internal/monitoring"
)

// ErrEmptyResultSet is returned when a selector matches no trials.
var ErrEmptyResultSet = errors.New("empty result set")

// Column names written by the evaluation pipeline.
const (
	ColumnDisplacement = "Displacement"
	ColumnError        = "Error"
)

// discoveryLevel is the threshold level whose results directory is listed to
// find which selectors exist. Every level holds the same set of files.
const discoveryLevel = "patch_tlevel2"

// Trial is one registration attempt.
type Trial struct {
	Displacement float64 `json:"displacement"`
	Error        float64 `json:"error"`
}

// ResultSet is the pooled, unordered collection of trials for one selector.
type ResultSet struct {
	Selector Selector
	Trials   []Trial
	Sources  []string
}

// Len returns the number of pooled trials.
func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Trials)
}

// Displacements returns a copy of the displacement column.
func (rs *ResultSet) Displacements() []float64 {
	out := make([]float64, rs.Len())
	for i, t := range rs.Trials {
		out[i] = t.Displacement
	}
	return out
}

// Errors returns a copy of the error column.
func (rs *ResultSet) Errors() []float64 {
	out := make([]float64, rs.Len())
	for i, t := range rs.Trials {
		out[i] = t.Error
	}
	return out
}

// Load reads and pools every result file matching sel under root. Files are
// read in lexical path order. A selector with no matching files yields
// ErrEmptyResultSet.
func Load(fsys fsutil.FileSystem, root string, sel Selector, fold Fold) (*ResultSet, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	pattern := Pattern(root, sel, fold)
	paths, err := fsys.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no files match %s", ErrEmptyResultSet, pattern)
	}

	rs := &ResultSet{Selector: sel}
	for _, p := range paths {
		trials, err := readFile(fsys, p)
		if err != nil {
			return nil, err
		}
		monitoring.Debugf("results: %s: %d trials", p, len(trials))
		rs.Trials = append(rs.Trials, trials...)
		rs.Sources = append(rs.Sources, p)
	}

	if len(rs.Trials) == 0 {
		return nil, fmt.Errorf("%w: %d files for %s contain no rows", ErrEmptyResultSet, len(paths), sel)
	}
	return rs, nil
}

func readFile(fsys fsutil.FileSystem, path string) ([]Trial, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f, path)
}

// ReadCSV parses a result table. Columns are addressed by header name; any
// other columns, including the unnamed index column pandas writes, are
// ignored. A NaN or infinite Error is kept and never counts as a success.
func ReadCSV(r io.Reader, source string) ([]Trial, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: missing header row", source)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", source, err)
	}

	dispIdx, errIdx := -1, -1
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch name {
		case ColumnDisplacement:
			dispIdx = i
		case ColumnError:
			errIdx = i
		}
	}
	if dispIdx < 0 || errIdx < 0 {
		return nil, fmt.Errorf("%s: header must contain %q and %q columns, got %v",
			source, ColumnDisplacement, ColumnError, header)
	}

	var trials []Trial
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", source, line, err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if dispIdx >= len(record) || errIdx >= len(record) {
			return nil, fmt.Errorf("%s:%d: expected at least %d fields, got %d",
				source, line, max(dispIdx, errIdx)+1, len(record))
		}

		disp, err := strconv.ParseFloat(strings.TrimSpace(record[dispIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid %s: %w", source, line, ColumnDisplacement, err)
		}
		if math.IsNaN(disp) || math.IsInf(disp, 0) || disp < 0 {
			return nil, fmt.Errorf("%s:%d: %s must be finite and non-negative, got %v",
				source, line, ColumnDisplacement, disp)
		}
		regErr, err := strconv.ParseFloat(strings.TrimSpace(record[errIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid %s: %w", source, line, ColumnError, err)
		}
		if regErr < 0 {
			return nil, fmt.Errorf("%s:%d: %s must be non-negative, got %v", source, line, ColumnError, regErr)
		}

		trials = append(trials, Trial{Displacement: disp, Error: regErr})
	}
	return trials, nil
}

// Discover lists the selectors that have results under root by reading the
// discovery level's results directory. With Fold.All the first fold is
// listed.
func Discover(fsys fsutil.FileSystem, root string, fold Fold) ([]Selector, error) {
	if fold.All {
		fold = Fold{K: 1}
	}
	pattern := filepath.Join(levelDir(root, fold, discoveryLevel), "results", "*_*_*.csv")
	paths, err := fsys.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}

	seen := make(map[Selector]bool, len(paths))
	out := make([]Selector, 0, len(paths))
	for _, p := range paths {
		sel, err := ParseSelector(p)
		if err != nil {
			monitoring.Logf("results: skipping %s: %v", p, err)
			continue
		}
		if seen[sel] {
			continue
		}
		seen[sel] = true
		out = append(out, sel)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}
