package vision

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func solidImage(red uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: red, A: 255})
		}
	}
	return img
}

func checkerImage(a, b uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			r := a
			if (x/pixelStride+y/pixelStride)%2 == 0 {
				r = b
			}
			img.Set(x, y, color.RGBA{R: r, A: 255})
		}
	}
	return img
}

// detectionWith builds a 68-landmark detection with a given eye opening and
// nose offset. The eye vertical half-gap controls EAR (ear = gap/5 for a
// 10px-wide eye); the nose x offset from the eye midpoint controls yaw.
func detectionWith(eyeGap, noseDX float64) *Detection {
	lm := make([]Point, landmarkCount)

	// Left eye at x 0..10, right eye at x 20..30.
	for i, base := range []float64{0, 20} {
		start := leftEyeStart
		if i == 1 {
			start = rightEyeStart
		}
		lm[start+0] = Point{X: base, Y: 0}
		lm[start+1] = Point{X: base + 3, Y: -eyeGap}
		lm[start+2] = Point{X: base + 7, Y: -eyeGap}
		lm[start+3] = Point{X: base + 10, Y: 0}
		lm[start+4] = Point{X: base + 7, Y: eyeGap}
		lm[start+5] = Point{X: base + 3, Y: eyeGap}
	}

	lm[noseTip] = Point{X: 15 + noseDX, Y: 8}

	return &Detection{
		Box:        Rect{X: 0, Y: 0, W: 30, H: 30},
		Landmarks:  lm,
		Confidence: 0.9,
	}
}

func TestEyeAspectRatio(t *testing.T) {
	open := detectionWith(1.5, 0)
	closed := detectionWith(0.5, 0)

	require.InDelta(t, 0.3, eyeAspectRatio(open), 1e-9)
	require.InDelta(t, 0.1, eyeAspectRatio(closed), 1e-9)
}

func TestDetectBlink(t *testing.T) {
	open := detectionWith(1.5, 0)
	closed := detectionWith(0.5, 0)

	require.True(t, detectBlink([]*Detection{open, closed, open}))
	require.False(t, detectBlink([]*Detection{open, open, open}))
	require.False(t, detectBlink([]*Detection{closed, closed}))
	// Gaps where no face was found must not break the sequence scan.
	require.True(t, detectBlink([]*Detection{open, nil, closed}))
}

func TestEstimateYawAndHeadMovement(t *testing.T) {
	centered := detectionWith(1.5, 0)
	turned := detectionWith(1.5, 5)

	require.InDelta(t, 0, estimateYaw(centered), 1e-9)
	require.InDelta(t, math.Asin(5.0/15.0)*180/math.Pi, estimateYaw(turned), 1e-9)

	require.True(t, detectHeadMovement([]*Detection{centered, turned}))
	require.False(t, detectHeadMovement([]*Detection{centered, centered}))
	require.False(t, detectHeadMovement([]*Detection{nil, nil}))
}

func TestMotionScore(t *testing.T) {
	still := []Frame{
		{Image: solidImage(100)},
		{Image: solidImage(100)},
	}
	require.Zero(t, motionScore(still))

	moving := []Frame{
		{Image: solidImage(0)},
		{Image: solidImage(40)},
	}
	require.InDelta(t, 0.8, motionScore(moving), 1e-9)

	// Saturates at 1 for large inter-frame deltas.
	wild := []Frame{
		{Image: solidImage(0)},
		{Image: solidImage(255)},
	}
	require.InDelta(t, 1, motionScore(wild), 1e-9)
}

func TestPhotoLikelihoodTiers(t *testing.T) {
	flat := []Frame{{Image: solidImage(120)}}
	require.InDelta(t, 0.9, photoLikelihood(flat), 1e-9)

	mid := []Frame{{Image: checkerImage(100, 150)}}
	require.InDelta(t, 0.5, photoLikelihood(mid), 1e-9)

	busy := []Frame{{Image: checkerImage(60, 180)}}
	require.InDelta(t, 0.1, photoLikelihood(busy), 1e-9)
}

func TestScoreLivenessPasses(t *testing.T) {
	cfg := LivenessConfig{PassScore: 0.5, PhotoLikelihoodMax: 0.7}

	frames := []Frame{
		{Image: checkerImage(60, 180)},
		{Image: checkerImage(60, 180)},
		{Image: checkerImage(60, 180)},
	}
	dets := []*Detection{
		detectionWith(1.5, 0),
		detectionWith(0.5, 0),
		detectionWith(1.5, 5),
	}

	res := ScoreLiveness(frames, dets, cfg)
	require.True(t, res.Passed)
	require.True(t, res.Blinked)
	require.True(t, res.HeadMoved)
	require.Empty(t, res.Reason)
	// blink 0.3 + head 0.3 + motion 0 + 0.1*(1-0.1)
	require.InDelta(t, 0.69, res.Score, 1e-9)
}

func TestScoreLivenessStaticPhoto(t *testing.T) {
	cfg := LivenessConfig{PassScore: 0.5, PhotoLikelihoodMax: 0.7}

	frames := []Frame{
		{Image: solidImage(120)},
		{Image: solidImage(120)},
	}
	dets := []*Detection{
		detectionWith(1.5, 0),
		detectionWith(0.5, 5),
	}

	res := ScoreLiveness(frames, dets, cfg)
	require.False(t, res.Passed)
	require.Equal(t, ReasonStaticPhoto, res.Reason)
	require.InDelta(t, 0.9, res.PhotoLikelihood, 1e-9)
}

func TestScoreLivenessNoMovement(t *testing.T) {
	cfg := LivenessConfig{PassScore: 0.5, PhotoLikelihoodMax: 0.7}

	frames := []Frame{
		{Image: checkerImage(60, 180)},
		{Image: checkerImage(60, 180)},
	}
	dets := []*Detection{
		detectionWith(1.5, 0),
		detectionWith(1.5, 0),
	}

	res := ScoreLiveness(frames, dets, cfg)
	require.False(t, res.Passed)
	require.Equal(t, ReasonNoMovement, res.Reason)
}
