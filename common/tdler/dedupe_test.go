package tdler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeduperDisabled(t *testing.T) {
	d := newDeduper(false)
	dup, _, err := d.IsDuplicate("does-not-even-exist")
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestDeduperDetectsSameContent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.bin")
	b := filepath.Join(dir, "b.bin")
	c := filepath.Join(dir, "c.bin")
	require.NoError(t, os.WriteFile(a, []byte("same payload"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("same payload"), 0o644))
	require.NoError(t, os.WriteFile(c, []byte("different payload"), 0o644))

	d := newDeduper(true)

	dup, _, err := d.IsDuplicate(a)
	require.NoError(t, err)
	assert.False(t, dup)

	dup, prev, err := d.IsDuplicate(b)
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, a, prev)

	dup, _, err = d.IsDuplicate(c)
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestDeduperMissingFile(t *testing.T) {
	d := newDeduper(true)
	_, _, err := d.IsDuplicate(filepath.Join(t.TempDir(), "missing.bin"))
	assert.Error(t, err)
}
