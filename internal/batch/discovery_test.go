package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	return path
}

func TestDiscoverImageFiles_EmptyArgs(t *testing.T) {
	files, err := discoverImageFiles(nil, false, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscoverImageFiles_ExplicitFilesAreKept(t *testing.T) {
	dir := t.TempDir()
	png := touch(t, filepath.Join(dir, "a.png"))
	txt := touch(t, filepath.Join(dir, "notes.txt"))

	files, err := discoverImageFiles([]string{png, txt}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{png, txt}, files)
}

func TestDiscoverImageFiles_DirectorySkipsUnsupported(t *testing.T) {
	dir := t.TempDir()
	png := touch(t, filepath.Join(dir, "image.png"))
	jpg := touch(t, filepath.Join(dir, "photo.JPG"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "anim.gif"))

	files, err := discoverImageFiles([]string{dir}, false, nil, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{png, jpg}, files)
}

func TestDiscoverImageFiles_Recursive(t *testing.T) {
	dir := t.TempDir()
	root := touch(t, filepath.Join(dir, "root.png"))
	sub := touch(t, filepath.Join(dir, "subdir", "sub.bmp"))

	files, err := discoverImageFiles([]string{dir}, true, nil, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{root, sub}, files)

	files, err = discoverImageFiles([]string{dir}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{root}, files)
}

func TestDiscoverImageFiles_IncludeExcludePatterns(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, filepath.Join(dir, "scan1.png"))
	b := touch(t, filepath.Join(dir, "scan2.jpg"))
	touch(t, filepath.Join(dir, "scan_exclude.png"))
	touch(t, filepath.Join(dir, "photo.png"))

	files, err := discoverImageFiles([]string{dir}, false, []string{"scan*"}, []string{"*exclude*"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, files)
}

func TestDiscoverImageFiles_MissingPath(t *testing.T) {
	_, err := discoverImageFiles([]string{filepath.Join(t.TempDir(), "missing")}, false, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestDiscoverImageFiles_DuplicatesListedOnce(t *testing.T) {
	dir := t.TempDir()
	png := touch(t, filepath.Join(dir, "a.png"))

	files, err := discoverImageFiles([]string{png, dir, filepath.Join(dir, ".", "a.png")}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{png}, files)
}

func TestDiscoverImageFiles_InvalidPattern(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.png"))

	_, err := discoverImageFiles([]string{dir}, false, []string{"[a-"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, filepath.ErrBadPattern)
	assert.Contains(t, err.Error(), "invalid pattern")
}

func TestSelector_Wants(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		include  []string
		exclude  []string
		expected bool
	}{
		{"no patterns", "/a/b.png", nil, nil, true},
		{"include match", "/a/b.png", []string{"*.png"}, nil, true},
		{"include miss", "/a/b.jpg", []string{"*.png"}, nil, false},
		{"exclude wins", "/a/b.png", []string{"*.png"}, []string{"b.*"}, false},
		{"pattern uses base name", "/scans/b.png", []string{"scans*"}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := newSelector(false, tt.include, tt.exclude)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sel.wants(tt.path))
		})
	}
}
