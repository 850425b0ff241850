package fsutil

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ FileSystem = OSFileSystem{}
	_ FileSystem = (*MemoryFileSystem)(nil)
)

func TestOSFileSystem_WriteAndRead(t *testing.T) {
	var fsys FileSystem = OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "fold1", "result_imgs")
	require.NoError(t, fsys.MkdirAll(dir, 0755))

	w, err := fsys.Create(filepath.Join(dir, "a.svg"))
	require.NoError(t, err)
	_, err = w.Write([]byte("<svg/>"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := fsys.ReadFile(filepath.Join(dir, "a.svg"))
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", string(data))

	_, err = fsys.Open(filepath.Join(dir, "missing.svg"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOSFileSystem_Glob(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.csv", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	matches, err := OSFileSystem{}.Glob(filepath.Join(dir, "*.csv"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.csv")}, matches)
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	require.NoError(t, mfs.WriteFile("/data/test.txt", []byte("hello, world"), 0644))

	data, err := mfs.ReadFile("/data/test.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello, world", string(data))

	_, err = mfs.ReadFile("/data/missing.txt")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMemoryFileSystem_CreateAndOpen(t *testing.T) {
	mfs := NewMemoryFileSystem()

	w, err := mfs.Create("/out/plot.png")
	require.NoError(t, err)
	_, err = w.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	f, err := mfs.Open("/out/plot.png")
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, "plot.png", info.Name())
	assert.Equal(t, int64(9), info.Size())
}

func TestMemoryFileSystem_DirectoriesAreImplied(t *testing.T) {
	mfs := NewMemoryFileSystem()

	require.NoError(t, mfs.MkdirAll("/a/b/c", 0755))
	matches, err := mfs.Glob("/a/*")
	require.NoError(t, err)
	assert.Empty(t, matches, "directories are not entries")

	require.NoError(t, mfs.WriteFile("/a/b/c/x.csv", []byte("x"), 0644))
	require.NoError(t, mfs.WriteFile("/a/./b/../b/y.csv", []byte("y"), 0644))
	matches, err = mfs.Glob("/a/b/*.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"/a/b/y.csv"}, matches)
}

func TestMemoryFileSystem_Glob(t *testing.T) {
	mfs := NewMemoryFileSystem()
	files := []string{
		"/root/fold1/patch_tlevel1/results/SIFT_b2a_nopre.csv",
		"/root/fold1/patch_tlevel2/results/SIFT_b2a_nopre.csv",
		"/root/fold2/patch_tlevel1/results/SIFT_b2a_nopre.csv",
		"/root/fold1/patch_tlevel1/results/MI_b2a_nopre.csv",
	}
	for _, f := range files {
		require.NoError(t, mfs.WriteFile(f, nil, 0644))
	}

	matches, err := mfs.Glob("/root/fold1/patch_tlevel*/results/SIFT_b2a_nopre.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{files[0], files[1]}, matches)

	matches, err = mfs.Glob("/root/fold*/patch_tlevel1/results/*_b2a_nopre.csv")
	require.NoError(t, err)
	assert.Len(t, matches, 3)

	// '*' never crosses a separator
	matches, err = mfs.Glob("/root/*/results/SIFT_b2a_nopre.csv")
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = mfs.Glob("/root/[")
	assert.Error(t, err)
}

func TestOSFileSystem_Resolve(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a.png")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))
	require.NoError(t, os.Symlink(target, filepath.Join(dir, "link.png")))
	want, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)

	got, err := OSFileSystem{}.Resolve(filepath.Join(dir, "link.png"))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = OSFileSystem{}.Resolve(filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestMemoryFileSystem_Resolve(t *testing.T) {
	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/data/fold1/result_imgs/a.png", []byte("x"), 0644))

	for _, name := range []string{"/data/fold1/result_imgs/a.png", "/data/fold1/result_imgs", "/data/./fold1", "/"} {
		got, err := mfs.Resolve(name)
		require.NoError(t, err, name)
		assert.Equal(t, filepath.Clean(name), got)
	}
	for _, name := range []string{"/data/fold1/result_imgs/b.png", "/data/fold", "/other"} {
		_, err := mfs.Resolve(name)
		assert.ErrorIs(t, err, fs.ErrNotExist, name)
	}
}
