package vm

import (
	"archive/zip"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeJar creates an archive holding files, optionally behind the jmod
// header.
func writeJar(t *testing.T, name string, header []byte, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write(header)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for n, body := range files {
		w, err := zw.Create(n)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

func TestJarResourceLoader(t *testing.T) {
	t.Run("load resource", func(t *testing.T) {
		l := NewJarResourceLoader(writeJar(t, "res.jar", nil, map[string]string{
			"jar/test.txt": "Hello, World",
		}))
		data, err := l.Open("jar/test.txt")
		require.NoError(t, err)
		assert.Equal(t, "Hello, World", string(data))
	})

	t.Run("jmod header is skipped", func(t *testing.T) {
		l := NewJarResourceLoader(writeJar(t, "res.jmod", jmodMagic, map[string]string{
			"a.txt": "a",
		}))
		data, err := l.Open("a.txt")
		require.NoError(t, err)
		assert.Equal(t, "a", string(data))
	})

	t.Run("cached", func(t *testing.T) {
		l := NewJarResourceLoader(writeJar(t, "res.jar", nil, map[string]string{"a.txt": "a"}))
		_, err := l.Open("a.txt")
		require.NoError(t, err)
		assert.Contains(t, l.Cache, "a.txt")
	})

	t.Run("not found", func(t *testing.T) {
		l := NewJarResourceLoader(writeJar(t, "res.jar", nil, map[string]string{"a.txt": "a"}))
		_, err := l.Open("b.txt")
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("missing archive is not a missing resource", func(t *testing.T) {
		l := NewJarResourceLoader(filepath.Join(t.TempDir(), "nope.jar"))
		_, err := l.Open("a.txt")
		require.Error(t, err)
	})
}

func TestChainResourceLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "x.txt"), []byte("from dir"), 0o644))
	jar := writeJar(t, "res.jar", nil, map[string]string{
		"pkg/x.txt": "from jar",
		"pkg/y.txt": "only in jar",
	})

	l := OpenResourcePath([]string{dir, jar})

	t.Run("first hit wins", func(t *testing.T) {
		data, err := l.Open("pkg/x.txt")
		require.NoError(t, err)
		assert.Equal(t, "from dir", string(data))
	})

	t.Run("falls through to later entries", func(t *testing.T) {
		data, err := l.Open("pkg/y.txt")
		require.NoError(t, err)
		assert.Equal(t, "only in jar", string(data))
	})

	t.Run("not found anywhere", func(t *testing.T) {
		_, err := l.Open("pkg/z.txt")
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})
}
