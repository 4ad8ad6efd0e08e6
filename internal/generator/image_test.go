package generator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveImagePath(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "source.png")
	require.NoError(t, os.WriteFile(img, []byte("png"), 0600))

	t.Run("accepted", func(t *testing.T) {
		for _, in := range []string{img, "file://" + img} {
			got, err := ResolveImagePath(in)
			require.NoError(t, err, in)
			assert.Equal(t, img, got)
		}
	})

	t.Run("relative path is made absolute", func(t *testing.T) {
		t.Chdir(dir)
		got, err := ResolveImagePath("source.png")
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(got))
		assert.Equal(t, "source.png", filepath.Base(got))
	})

	t.Run("rejected", func(t *testing.T) {
		tests := []struct {
			name string
			in   string
		}{
			{"empty", ""},
			{"http url", "http://169.254.169.254/latest/meta-data"},
			{"rtmp url", "rtmp://example.com/live"},
			{"ffmpeg protocol", "concat:" + img + "|" + img},
			{"missing file", filepath.Join(dir, "missing.png")},
			{"directory", dir},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := ResolveImagePath(tt.in)
				assert.ErrorIs(t, err, ErrInvalidImagePath)
			})
		}
	})
}
