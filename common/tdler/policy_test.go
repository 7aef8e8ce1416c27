package tdler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestResolveDestPathMissingFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "file.bin")
	for _, policy := range []string{"", "overwrite", "skip", "rename"} {
		got, skip, err := resolveDestPath(dest, policy)
		require.NoError(t, err)
		assert.False(t, skip)
		assert.Equal(t, dest, got)
	}
}

func TestResolveDestPathExisting(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "video.mp4")
	touch(t, dest)

	got, skip, err := resolveDestPath(dest, "overwrite")
	require.NoError(t, err)
	assert.False(t, skip)
	assert.Equal(t, dest, got)

	got, skip, err = resolveDestPath(dest, "skip")
	require.NoError(t, err)
	assert.True(t, skip)
	assert.Equal(t, dest, got)

	got, skip, err = resolveDestPath(dest, "rename")
	require.NoError(t, err)
	assert.False(t, skip)
	assert.Equal(t, filepath.Join(dir, "video (1).mp4"), got)

	touch(t, got)
	got, _, err = resolveDestPath(dest, "rename")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "video (2).mp4"), got)
}

func TestResolveDestPathUnsupportedPolicy(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "file.bin")
	touch(t, dest)
	_, _, err := resolveDestPath(dest, "panic")
	assert.Error(t, err)
}

func TestValidateStagingFile(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.bin")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err := validateStagingFile(empty, 0)
	assert.ErrorIs(t, err, errZeroByteDownload)

	full := filepath.Join(dir, "full.bin")
	require.NoError(t, os.WriteFile(full, []byte("hello"), 0o644))

	n, err := validateStagingFile(full, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = validateStagingFile(full, 0) // unknown expected size
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	_, err = validateStagingFile(full, 9)
	assert.Error(t, err)
}
