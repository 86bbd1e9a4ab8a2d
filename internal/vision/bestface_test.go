package vision

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

func blankFrame(w, h int) Frame {
	return Frame{Image: image.NewRGBA(image.Rect(0, 0, w, h))}
}

func TestSelectBestFacePrefersLargeCenteredFace(t *testing.T) {
	frames := []Frame{blankFrame(100, 100), blankFrame(100, 100)}
	dets := []*Detection{
		// Small face in a corner.
		{Box: Rect{X: 0, Y: 0, W: 10, H: 10}, Confidence: 0.9},
		// Large centered face.
		{Box: Rect{X: 30, Y: 30, W: 40, H: 40}, Confidence: 0.9},
	}

	best, err := SelectBestFace(frames, dets)
	require.NoError(t, err)
	require.Equal(t, 1, best.FrameIndex)
	require.Same(t, dets[1], best.Detection)
}

func TestSelectBestFaceSkipsFramesWithoutDetection(t *testing.T) {
	frames := []Frame{blankFrame(100, 100), blankFrame(100, 100)}
	dets := []*Detection{
		nil,
		{Box: Rect{X: 40, Y: 40, W: 20, H: 20}, Confidence: 0.5},
	}

	best, err := SelectBestFace(frames, dets)
	require.NoError(t, err)
	require.Equal(t, 1, best.FrameIndex)
}

func TestSelectBestFaceNoDetections(t *testing.T) {
	frames := []Frame{blankFrame(100, 100)}

	_, err := SelectBestFace(frames, []*Detection{nil})
	require.ErrorIs(t, err, ErrNoFace)
}

func TestFrameScoreConfidenceBreaksTies(t *testing.T) {
	frame := blankFrame(100, 100)
	low := &Detection{Box: Rect{X: 40, Y: 40, W: 20, H: 20}, Confidence: 0.2}
	high := &Detection{Box: Rect{X: 40, Y: 40, W: 20, H: 20}, Confidence: 0.9}

	require.Greater(t, frameScore(high, frame), frameScore(low, frame))
}
