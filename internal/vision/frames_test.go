package vision

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractArgs(t *testing.T) {
	args := extractArgs("/tmp/in.mp4", "/tmp/out", 3.33)

	require.Equal(t, []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", "/tmp/in.mp4",
		"-vf", "fps=3.33",
		"-f", "image2",
		filepath.Join("/tmp/out", framePattern),
	}, args)
}

func TestReadFramesOrdersByName(t *testing.T) {
	dir := t.TempDir()

	for _, idx := range []int{3, 1, 2} {
		writeJPEG(t, filepath.Join(dir, fmt.Sprintf(framePattern, idx)))
	}

	frames, err := readFrames(dir)
	require.NoError(t, err)
	require.Len(t, frames, 3)

	for i, f := range frames {
		require.Equal(t, i, f.Index)
		require.NotNil(t, f.Image)
	}
	require.Equal(t, filepath.Join(dir, fmt.Sprintf(framePattern, 1)), frames[0].Path)
	require.Equal(t, filepath.Join(dir, fmt.Sprintf(framePattern, 3)), frames[2].Path)
}

func TestReadFramesEmptyDir(t *testing.T) {
	frames, err := readFrames(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, frames)
}

func writeJPEG(t *testing.T, path string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, jpeg.Encode(f, image.NewRGBA(image.Rect(0, 0, 8, 8)), nil))
}
