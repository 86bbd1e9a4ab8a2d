package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// MinFrames is the fewest decoded frames the pipeline will analyze.
const MinFrames = 5

const framePattern = "frame_%04d.jpg"

// FFmpegExtractor samples stills out of an encoded video by spawning ffmpeg
// with an fps filter. Frames are written to outDir and decoded in capture
// order; no resizing or re-encoding happens here.
type FFmpegExtractor struct {
	bin      string
	sampleHz float64
}

func NewFFmpegExtractor(bin string, sampleHz float64) *FFmpegExtractor {
	return &FFmpegExtractor{
		bin:      bin,
		sampleHz: sampleHz,
	}
}

func (e *FFmpegExtractor) Extract(ctx context.Context, videoPath, outDir string) ([]Frame, error) {
	cmd := exec.CommandContext(ctx, e.bin, extractArgs(videoPath, outDir, e.sampleHz)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "ffmpeg: %s", strings.TrimSpace(stderr.String()))
	}

	return readFrames(outDir)
}

func extractArgs(videoPath, outDir string, sampleHz float64) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=%g", sampleHz),
		"-f", "image2",
		filepath.Join(outDir, framePattern),
	}
}

func readFrames(dir string) ([]Frame, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "frame_*.jpg"))
	if err != nil {
		return nil, errors.Wrap(err, "glob frames")
	}
	sort.Strings(paths)

	frames := make([]Frame, 0, len(paths))
	for i, p := range paths {
		img, err := decodeImage(p)
		if err != nil {
			return nil, errors.Wrapf(err, "decode frame %s", p)
		}
		frames = append(frames, Frame{Index: i, Path: p, Image: img})
	}

	return frames, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}
