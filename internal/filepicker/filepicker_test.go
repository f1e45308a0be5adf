package filepicker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestAllowed(t *testing.T) {
	for _, name := range []string{"a.brep", "b.RLE", "c.iges", "d.IGS", "e.step", "f.Stp", "g.stl"} {
		assert.True(t, Allowed(name), name)
	}
	for _, name := range []string{"a.obj", "b", "c.stl.bak", ".stl.txt"} {
		assert.False(t, Allowed(name), name)
	}
}

func TestList(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.STEP"))
	touch(t, filepath.Join(root, "parts", "a.stl"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, ".cache", "hidden.stl"))

	entries, err := List(root)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"b.STEP", "parts/a.stl"}, names)
	assert.Equal(t, int64(1), entries[0].Size)
}

func TestList_MissingRoot(t *testing.T) {
	entries, err := List(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "parts", "a.stl"))
	touch(t, filepath.Join(root, "readme.md"))

	path, err := Resolve(root, "parts/a.stl")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "parts", "a.stl"), path)

	_, err = Resolve(root, "../etc/passwd.stl")
	assert.ErrorIs(t, err, ErrOutsideRoot)
	_, err = Resolve(root, "/abs.stl")
	assert.ErrorIs(t, err, ErrOutsideRoot)
	_, err = Resolve(root, "readme.md")
	assert.ErrorIs(t, err, ErrNotAllowed)
	_, err = Resolve(root, "missing.stp")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
