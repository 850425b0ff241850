// Package fid reads the tables relating the Fréchet Inception Distance of
// generated modality translations to the registration success they enable.
package fid

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/registration.report/internal/fsutil"
)

// ErrMissingMethod is returned when a table lacks a requested row.
var ErrMissingMethod = errors.New("method not in FID table")

// Row is one method's FID and success statistics.
type Row struct {
	Method          string  `json:"method"`
	FIDMean         float64 `json:"fid_mean"`
	FIDStd          float64 `json:"fid_std"`
	SuccessAAMDMean float64 `json:"success_aamd_mean"`
	SuccessAAMDStd  float64 `json:"success_aamd_std"`
	SuccessSIFTMean float64 `json:"success_sift_mean"`
	SuccessSIFTStd  float64 `json:"success_sift_std"`
}

// Table holds the rows of one FID_success file in file order.
type Table struct {
	Rows []Row
}

// GANNames lists the translation models shown on FID plots, in legend order.
var GANNames = []string{
	"A2A", "B2B",
	"cyc_A", "cyc_B", "drit_A", "drit_B", "p2p_A", "p2p_B", "star_A", "star_B", "comir",
}

// Reference rows hold the FID between training and test images of each
// modality.
const (
	BaselineA = "train2testA"
	BaselineB = "train2testB"
)

// FileName returns the table name for a preprocessing tag.
func FileName(preprocess string) string {
	return "FID_success_" + preprocess + ".csv"
}

// Load reads <dir>/FID_success_<preprocess>.csv.
func Load(fsys fsutil.FileSystem, dir, preprocess string) (*Table, error) {
	path := filepath.Join(dir, FileName(preprocess))
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, path)
}

var columns = []string{
	"Method", "FID_mean", "FID_STD",
	"Success_aAMD_mean", "Success_aAMD_STD",
	"Success_SIFT_mean", "Success_SIFT_STD",
}

// Read parses an FID table addressed by header name.
func Read(r io.Reader, source string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", source, err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, c := range columns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", source, c)
		}
	}

	t := &Table{}
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", source, line, err)
		}

		field := func(name string) (string, error) {
			i := idx[name]
			if i >= len(rec) {
				return "", fmt.Errorf("%s:%d: missing %s", source, line, name)
			}
			return strings.TrimSpace(rec[i]), nil
		}
		num := func(name string) (float64, error) {
			s, err := field(name)
			if err != nil {
				return 0, err
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return 0, fmt.Errorf("%s:%d: invalid %s: %w", source, line, name, err)
			}
			return v, nil
		}

		var row Row
		if row.Method, err = field("Method"); err != nil {
			return nil, err
		}
		targets := []*float64{
			&row.FIDMean, &row.FIDStd,
			&row.SuccessAAMDMean, &row.SuccessAAMDStd,
			&row.SuccessSIFTMean, &row.SuccessSIFTStd,
		}
		for i, c := range columns[1:] {
			if *targets[i], err = num(c); err != nil {
				return nil, err
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Get returns the row for method.
func (t *Table) Get(method string) (Row, error) {
	for _, r := range t.Rows {
		if r.Method == method {
			return r, nil
		}
	}
	return Row{}, fmt.Errorf("%w: %q", ErrMissingMethod, method)
}

// GANRows returns the rows for known translation models, in table order.
func (t *Table) GANRows() []Row {
	known := make(map[string]bool, len(GANNames))
	for _, n := range GANNames {
		known[n] = true
	}
	var out []Row
	for _, r := range t.Rows {
		if known[r.Method] {
			out = append(out, r)
		}
	}
	return out
}
