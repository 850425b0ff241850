package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/registration.report/internal/config"
	"github.com/banshee-data/registration.report/internal/dataset"
	"github.com/banshee-data/registration.report/internal/fsutil"
	"github.com/banshee-data/registration.report/internal/store"
	"github.com/banshee-data/registration.report/internal/testutil"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// writeEliceiri lays out MI and SIFT results for Eliceiri under a temp dir.
func writeEliceiri(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "Eliceiri_patches")
	rows := testutil.UniformRows(40, func(d float64) float64 { return d / 2 })
	for _, stem := range []string{"MI_b2a_nopre", "SIFT_b2a_nopre"} {
		testutil.WriteResultFile(t, fsutil.OSFileSystem{}, testutil.ResultPath(root, "", 2, stem), rows)
	}
	return dir
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "regreport "), out)
}

func TestCurveCommand(t *testing.T) {
	dir := writeEliceiri(t)
	out, err := run(t, "curve", "--datasets", dir, "--dataset", "Eliceiri", "--method", "SIFT")
	require.NoError(t, err)

	var resp struct {
		Dataset string `json:"dataset"`
		Fold    string `json:"fold"`
		Curve   struct {
			Threshold float64 `json:"threshold"`
			Points    []json.RawMessage
		} `json:"curve"`
		Summary struct {
			Trials    int `json:"trials"`
			Successes int `json:"successes"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	assert.Equal(t, "Eliceiri", resp.Dataset)
	assert.Equal(t, "none", resp.Fold)
	assert.InDelta(t, 16.68, resp.Curve.Threshold, 1e-9)
	assert.Len(t, resp.Curve.Points, 10)
	assert.Equal(t, 40, resp.Summary.Trials)
	// Error d/2 < 16.68 holds for d = 0..33.
	assert.Equal(t, 34, resp.Summary.Successes)
}

func TestSuccessCommand(t *testing.T) {
	dir := writeEliceiri(t)
	out, err := run(t, "success", "--datasets", dir, "--dataset", "Eliceiri", "--family", "SIFT", "--dark=false", "--html", "--csv")
	require.NoError(t, err)

	paths := strings.Fields(out)
	imgDir := filepath.Join(dir, "Eliceiri_patches", "result_imgs")
	assert.Equal(t, []string{
		filepath.Join(imgDir, "Eliceiri_success_SIFT_nopre.png"),
		filepath.Join(imgDir, "Eliceiri_success_SIFT_nopre.pdf"),
		filepath.Join(imgDir, "Eliceiri_success_SIFT_nopre.html"),
		filepath.Join(imgDir, "Eliceiri_success_SIFT_nopre.csv"),
	}, paths)
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
}

func TestCommandErrors(t *testing.T) {
	dir := writeEliceiri(t)

	_, err := run(t, "success", "--datasets", dir, "--dataset", "Mars")
	assert.ErrorIs(t, err, dataset.ErrUnknownDataset)

	_, err = run(t, "curve", "--datasets", dir, "--dataset", "Eliceiri", "--method", "SIFT", "--pre", "blur")
	assert.ErrorIs(t, err, dataset.ErrInvalidConfig)

	_, err = run(t, "curve", "--datasets", dir, "--dataset", "Eliceiri")
	assert.Error(t, err, "missing --method")

	_, err = run(t, "curve", "--datasets", dir, "--fold", "zero", "--dataset", "Eliceiri", "--method", "SIFT")
	assert.ErrorIs(t, err, dataset.ErrInvalidConfig)
}

func TestConfigFile(t *testing.T) {
	dir := writeEliceiri(t)
	cfgPath := filepath.Join(t.TempDir(), "report.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("datasets_dir: "+dir+"\ndark: false\n"), 0644))

	out, err := run(t, "scatter", "--config", cfgPath, "--dataset", "Eliceiri", "--method", "MI")
	require.NoError(t, err)
	assert.Contains(t, out, "scatter_MI_b2a_nopre.pdf")

	// Flags override the file.
	out, err = run(t, "scatter", "--config", cfgPath, "--dark", "--dataset", "Eliceiri", "--method", "MI")
	require.NoError(t, err)
	assert.Contains(t, out, "dark_scatter_MI_b2a_nopre.svg")

	_, err = run(t, "version", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRecordAndHistory(t *testing.T) {
	dir := writeEliceiri(t)
	dbPath := filepath.Join(t.TempDir(), "curves.db")

	_, err := run(t, "curve", "--datasets", dir, "--db", dbPath, "--record", "--dataset", "Eliceiri", "--method", "SIFT")
	require.NoError(t, err)

	out, err := run(t, "history", "list", "--db", dbPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "SIFT_b2a_nopre")
	runID := strings.Fields(lines[1])[0]

	out, err = run(t, "history", "show", "--db", dbPath, runID)
	require.NoError(t, err)
	assert.Contains(t, out, `"run_id": "`+runID+`"`)

	_, err = run(t, "history", "delete", "--db", dbPath, runID)
	require.NoError(t, err)
	_, err = run(t, "history", "show", "--db", dbPath, runID)
	assert.Error(t, err)

	_, err = run(t, "history", "list", "--db", dbPath, "--dataset", "Mars")
	assert.ErrorIs(t, err, dataset.ErrUnknownDataset)
}

func TestMigrateCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "curves.db")

	out, err := run(t, "migrate", "version", "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "schema version 0 (dirty: false)\n", out)

	out, err = run(t, "migrate", "up", "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "schema version 2 (dirty: false)\n", out)

	out, err = run(t, "migrate", "down", "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "schema version 1 (dirty: false)\n", out)

	out, err = run(t, "migrate", "force", "--db", dbPath, "2")
	require.NoError(t, err)
	assert.Equal(t, "schema version 2 (dirty: false)\n", out)

	_, err = run(t, "migrate", "force", "--db", dbPath, "two")
	assert.Error(t, err)
}

func TestBatchCommand(t *testing.T) {
	dir := writeEliceiri(t)
	out, err := run(t, "batch", "--datasets", dir, "--families", "SIFT", "--datasets-list", "Eliceiri,Mars")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 items failed")
	assert.Contains(t, out, "dark_Eliceiri_success_SIFT_nopre.png")
}

func TestBatchCommand_Scatter(t *testing.T) {
	dir := writeEliceiri(t)
	out, err := run(t, "batch", "--datasets", dir, "--families", "SIFT", "--datasets-list", "Eliceiri", "--scatter")
	require.NoError(t, err)
	assert.Contains(t, out, "skipped 35 scatter plots without results")

	outDir := filepath.Join(dir, "Eliceiri_patches", "result_imgs")
	for _, name := range []string{
		"dark_Eliceiri_success_SIFT_nopre.png",
		"dark_scatter_MI_b2a_nopre.png",
		"dark_scatter_MI_b2a_nopre.svg",
		"dark_scatter_SIFT_b2a_nopre.png",
	} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}
}

func TestServeHandler_RecordsThroughSharedStore(t *testing.T) {
	dir := writeEliceiri(t)
	db, err := store.OpenDB(filepath.Join(t.TempDir(), "curves.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	record := true
	a := &app{cfg: config.EmptyReportConfig()}
	a.cfg.DatasetsDir = &dir
	a.cfg.RecordRuns = &record

	h, err := a.serveHandler(db, false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/curve?dataset=Eliceiri&method=SIFT", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	runs, err := store.NewCurveStore(db).List("Eliceiri")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "SIFT", runs[0].Selector.Method)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/"+runs[0].RunID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServeHandler_NoRecording(t *testing.T) {
	dir := writeEliceiri(t)
	db, err := store.OpenDB(filepath.Join(t.TempDir(), "curves.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	a := &app{cfg: config.EmptyReportConfig()}
	a.cfg.DatasetsDir = &dir
	h, err := a.serveHandler(db, false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/curve?dataset=Eliceiri&method=SIFT", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	runs, err := store.NewCurveStore(db).List("")
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunHTTP_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := runHTTP(ctx, "127.0.0.1:0", http.NotFoundHandler())
	assert.NoError(t, err)
}
