package provider

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hatlonely/rse/ref"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileProvider(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "rse.yaml")
	require.NoError(t, os.WriteFile(filename, []byte("rse: {}\n"), 0644))

	p, err := NewFileProviderWithOptions(&FileProviderOptions{FilePath: filename})
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(p.FilePath()))

	data, err := p.Load()
	require.NoError(t, err)
	assert.Equal(t, "rse: {}\n", string(data))

	t.Run("文件不存在", func(t *testing.T) {
		p, err := NewFileProviderWithOptions(&FileProviderOptions{FilePath: filepath.Join(t.TempDir(), "missing.yaml")})
		require.NoError(t, err)
		_, err = p.Load()
		assert.Error(t, err)
	})

	t.Run("路径为空", func(t *testing.T) {
		_, err := NewFileProviderWithOptions(&FileProviderOptions{})
		assert.Error(t, err)
		_, err = NewFileProviderWithOptions(nil)
		assert.Error(t, err)
	})
}

func TestNewProviderWithOptions(t *testing.T) {
	p, err := NewProviderWithOptions(&ref.TypeOptions{
		Type:    "MemoryProvider",
		Options: &MemoryProviderOptions{Data: "a: 1"},
	})
	require.NoError(t, err)
	data, err := p.Load()
	require.NoError(t, err)
	assert.Equal(t, "a: 1", string(data))

	_, err = NewProviderWithOptions(&ref.TypeOptions{Type: "GormProvider"})
	assert.ErrorIs(t, err, ref.ErrConstructorNotFound)
}
