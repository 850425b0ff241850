package fid

import (
	"strings"
	"testing"

	"github.com/banshee-data/registration.report/internal/fsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTable = `Method,FID_mean,FID_STD,Success_aAMD_mean,Success_aAMD_STD,Success_SIFT_mean,Success_SIFT_STD
train2testA,12.5,1.0,0,0,0,0
train2testB,20.0,2.0,0,0,0,0
cyc_A,80.1,5.5,0.41,0.05,0.12,0.02
MI,0,0,0.3,0.1,0.3,0.1
comir,150.0,10,0.9,0.01,0.7,0.03
`

func TestRead(t *testing.T) {
	tbl, err := Read(strings.NewReader(sampleTable), "fid.csv")
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 5)

	cyc, err := tbl.Get("cyc_A")
	require.NoError(t, err)
	assert.Equal(t, Row{
		Method: "cyc_A", FIDMean: 80.1, FIDStd: 5.5,
		SuccessAAMDMean: 0.41, SuccessAAMDStd: 0.05,
		SuccessSIFTMean: 0.12, SuccessSIFTStd: 0.02,
	}, cyc)

	_, err = tbl.Get("drit_B")
	assert.ErrorIs(t, err, ErrMissingMethod)
}

func TestTable_GANRows(t *testing.T) {
	tbl, err := Read(strings.NewReader(sampleTable), "fid.csv")
	require.NoError(t, err)

	var names []string
	for _, r := range tbl.GANRows() {
		names = append(names, r.Method)
	}
	assert.Equal(t, []string{"cyc_A", "comir"}, names)
}

func TestRead_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty", "", "read header"},
		{"missing column", "Method,FID_mean\nx,1\n", `missing column "FID_STD"`},
		{"bad number", strings.Replace(sampleTable, "80.1", "eighty", 1), "fid.csv:4: invalid FID_mean"},
		{"short row", "Method,FID_mean,FID_STD,Success_aAMD_mean,Success_aAMD_STD,Success_SIFT_mean,Success_SIFT_STD\nx,1,2\n", "fid.csv:2: missing Success_aAMD_mean"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tc.input), "fid.csv")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	require.NoError(t, fs.WriteFile("/d/Zurich_patches_fake/FID_success_nopre.csv", []byte(sampleTable), 0644))

	tbl, err := Load(fs, "/d/Zurich_patches_fake", "nopre")
	require.NoError(t, err)
	assert.Len(t, tbl.Rows, 5)

	_, err = Load(fs, "/d/Zurich_patches_fake", "hiseq")
	assert.Error(t, err)
}
