package results

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrInvalidSelector is returned for selectors that cannot address a result file.
var ErrInvalidSelector = errors.New("invalid result selector")

// legacyPrefix is written by older pipeline versions in front of the method name.
const legacyPrefix = "results_"

// Selector identifies one family of result files.
type Selector struct {
	Method     string `json:"method"`
	Mode       string `json:"mode"`
	Preprocess string `json:"preprocess"`
}

// String returns the selector in file-stem form, e.g. "SIFT_b2a_nopre".
func (s Selector) String() string {
	return s.Method + "_" + s.Mode + "_" + s.Preprocess
}

// FileName returns the CSV file name for this selector.
func (s Selector) FileName() string {
	return s.String() + ".csv"
}

// Validate rejects selectors that would escape the results directory or be
// interpreted as glob patterns. Mode may not contain '_' because it is
// recovered as the second to last underscore field.
func (s Selector) Validate() error {
	if s.Method == "" || s.Mode == "" {
		return fmt.Errorf("%w: method and mode are required (%q)", ErrInvalidSelector, s.String())
	}
	for _, part := range []string{s.Method, s.Mode, s.Preprocess} {
		if strings.ContainsAny(part, `/\*?[]`) || strings.Contains(part, "..") {
			return fmt.Errorf("%w: %q contains path or pattern characters", ErrInvalidSelector, part)
		}
	}
	if strings.Contains(s.Mode, "_") || strings.Contains(s.Preprocess, "_") {
		return fmt.Errorf("%w: mode and preprocess may not contain '_' (%q)", ErrInvalidSelector, s.String())
	}
	return nil
}

// ParseSelector recovers a selector from a result file name. The method may
// itself contain underscores (GAN variants such as "SIFT_p2p_A"), so mode and
// preprocess are taken from the last two fields.
func ParseSelector(fileName string) (Selector, error) {
	stem := strings.TrimSuffix(filepath.Base(fileName), ".csv")
	parts := strings.Split(stem, "_")
	if len(parts) < 3 {
		return Selector{}, fmt.Errorf("%w: %q is not <method>_<mode>_<preprocess>.csv", ErrInvalidSelector, fileName)
	}
	n := len(parts)
	sel := Selector{
		Method:     strings.TrimPrefix(strings.Join(parts[:n-2], "_"), legacyPrefix),
		Mode:       parts[n-2],
		Preprocess: parts[n-1],
	}
	if sel.Method == "" || sel.Mode == "" {
		return Selector{}, fmt.Errorf("%w: %q has an empty method or mode", ErrInvalidSelector, fileName)
	}
	return sel, nil
}

// Fold selects which cross-validation fold directories are read. The zero
// value means the dataset has no fold layer.
type Fold struct {
	All bool
	K   int
}

// ParseFold parses "all" or a positive fold number.
func ParseFold(s string) (Fold, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "all") {
		return Fold{All: true}, nil
	}
	k, err := strconv.Atoi(s)
	if err != nil {
		return Fold{}, fmt.Errorf("invalid fold %q: want a positive integer or \"all\"", s)
	}
	if k < 1 {
		return Fold{}, fmt.Errorf("invalid fold %d: folds are numbered from 1", k)
	}
	return Fold{K: k}, nil
}

// String returns "all", the fold number, or "none" for the zero value.
func (f Fold) String() string {
	switch {
	case f.All:
		return "all"
	case f.K > 0:
		return strconv.Itoa(f.K)
	default:
		return "none"
	}
}

// Dir returns the directory (or glob) component for the fold, empty when the
// dataset has no fold layer.
func (f Fold) Dir() string {
	switch {
	case f.All:
		return "fold*"
	case f.K > 0:
		return fmt.Sprintf("fold%d", f.K)
	default:
		return ""
	}
}

// Pattern returns the glob matching every threshold-level file for sel.
func Pattern(root string, sel Selector, fold Fold) string {
	return filepath.Join(levelDir(root, fold, "patch_tlevel*"), "results", sel.FileName())
}

func levelDir(root string, fold Fold, level string) string {
	if d := fold.Dir(); d != "" {
		return filepath.Join(root, d, level)
	}
	return filepath.Join(root, level)
}
