package vision

import (
	"image"
	"math"
)

// Liveness signal weights and constants. The score is a weighted sum of four
// signals: blink, head movement, inter-frame motion and an anti-photo term.
const (
	blinkWeight  = 0.30
	headWeight   = 0.30
	motionWeight = 0.30
	photoWeight  = 0.10

	blinkEARThreshold = 0.20
	yawRangeDegrees   = 15.0
	motionNormalizer  = 50.0

	// Pixel sampling stride for the motion and variance scans.
	pixelStride = 4
)

// Rejection reasons, ordered by priority.
const (
	ReasonStaticPhoto = "Video appears to be a static photo"
	ReasonNoMovement  = "No natural face movement detected"
	ReasonLowMotion   = "Insufficient motion in video"
	ReasonLivenessLow = "Liveness check failed"
)

type LivenessConfig struct {
	PassScore          float64
	PhotoLikelihoodMax float64
}

type LivenessResult struct {
	Passed          bool
	Score           float64
	Reason          string
	PhotoLikelihood float64
	Blinked         bool
	HeadMoved       bool
	MotionScore     float64
}

// ScoreLiveness consumes the frame sequence and its aligned detections
// (nil where no face was found) and scores whether a live subject was
// recorded rather than a replayed photo.
func ScoreLiveness(frames []Frame, dets []*Detection, cfg LivenessConfig) LivenessResult {
	res := LivenessResult{
		Blinked:         detectBlink(dets),
		HeadMoved:       detectHeadMovement(dets),
		MotionScore:     motionScore(frames),
		PhotoLikelihood: photoLikelihood(frames),
	}

	res.Score = res.MotionScore*motionWeight + photoWeight*(1-res.PhotoLikelihood)
	if res.Blinked {
		res.Score += blinkWeight
	}
	if res.HeadMoved {
		res.Score += headWeight
	}

	res.Passed = res.Score >= cfg.PassScore && res.PhotoLikelihood < cfg.PhotoLikelihoodMax
	if !res.Passed {
		res.Reason = failureReason(res, cfg)
	}

	return res
}

func failureReason(res LivenessResult, cfg LivenessConfig) string {
	switch {
	case res.PhotoLikelihood >= cfg.PhotoLikelihoodMax:
		return ReasonStaticPhoto
	case !res.Blinked && !res.HeadMoved:
		return ReasonNoMovement
	case res.MotionScore < 0.2:
		return ReasonLowMotion
	default:
		return ReasonLivenessLow
	}
}

// detectBlink looks for the eye-aspect ratio crossing below the blink
// threshold between two consecutive detections, from above.
func detectBlink(dets []*Detection) bool {
	prev := math.NaN()
	for _, det := range dets {
		if det == nil {
			continue
		}
		ear := eyeAspectRatio(det)
		if !math.IsNaN(prev) && prev >= blinkEARThreshold && ear < blinkEARThreshold {
			return true
		}
		prev = ear
	}
	return false
}

// eyeAspectRatio averages both eyes over the six-landmark EAR formula:
// (|p2-p6| + |p3-p5|) / (2 |p1-p4|).
func eyeAspectRatio(det *Detection) float64 {
	left := earForEye(det.Landmarks[leftEyeStart:leftEyeEnd])
	right := earForEye(det.Landmarks[rightEyeStart:rightEyeEnd])
	return (left + right) / 2
}

func earForEye(eye []Point) float64 {
	horizontal := dist(eye[0], eye[3])
	if horizontal == 0 {
		return 0
	}
	return (dist(eye[1], eye[5]) + dist(eye[2], eye[4])) / (2 * horizontal)
}

// detectHeadMovement estimates yaw per detection from the horizontal offset
// of the nose tip relative to the midpoint of the two outer eye corners, and
// checks the yaw range across the sequence.
func detectHeadMovement(dets []*Detection) bool {
	minYaw, maxYaw := math.Inf(1), math.Inf(-1)
	seen := false
	for _, det := range dets {
		if det == nil {
			continue
		}
		yaw := estimateYaw(det)
		minYaw = math.Min(minYaw, yaw)
		maxYaw = math.Max(maxYaw, yaw)
		seen = true
	}
	return seen && maxYaw-minYaw > yawRangeDegrees
}

func estimateYaw(det *Detection) float64 {
	left := det.Landmarks[leftEyeOuter]
	right := det.Landmarks[rightEyeOuter]
	nose := det.Landmarks[noseTip]

	halfSpan := dist(left, right) / 2
	if halfSpan == 0 {
		return 0
	}

	mid := Point{X: (left.X + right.X) / 2, Y: (left.Y + right.Y) / 2}
	ratio := clamp((nose.X-mid.X)/halfSpan, -1, 1)
	return math.Asin(ratio) * 180 / math.Pi
}

// motionScore is the mean per-pixel red-channel absolute difference between
// consecutive frames, normalized by motionNormalizer and clamped to [0,1].
func motionScore(frames []Frame) float64 {
	if len(frames) < 2 {
		return 0
	}

	var total float64
	var pairs int
	for i := 1; i < len(frames); i++ {
		d, ok := meanRedDiff(frames[i-1].Image, frames[i].Image)
		if !ok {
			continue
		}
		total += d
		pairs++
	}
	if pairs == 0 {
		return 0
	}

	return clamp(total/float64(pairs)/motionNormalizer, 0, 1)
}

func meanRedDiff(a, b image.Image) (float64, bool) {
	ab, bb := a.Bounds(), b.Bounds()
	w := minInt(ab.Dx(), bb.Dx())
	h := minInt(ab.Dy(), bb.Dy())
	if w == 0 || h == 0 {
		return 0, false
	}

	var sum float64
	var n int
	for y := 0; y < h; y += pixelStride {
		for x := 0; x < w; x += pixelStride {
			ra := redAt(a, ab.Min.X+x, ab.Min.Y+y)
			rb := redAt(b, bb.Min.X+x, bb.Min.Y+y)
			sum += math.Abs(ra - rb)
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// photoLikelihood derives a replay suspicion from red-channel pixel variance
// across the sampled frames. Printed photos and screens produce flat,
// low-variance pixel fields.
func photoLikelihood(frames []Frame) float64 {
	var sum, sumSq float64
	var n int
	for _, f := range frames {
		b := f.Image.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y += pixelStride {
			for x := b.Min.X; x < b.Max.X; x += pixelStride {
				r := redAt(f.Image, x, y)
				sum += r
				sumSq += r * r
				n++
			}
		}
	}
	if n == 0 {
		return 1
	}

	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean

	switch {
	case variance < 500:
		return 0.9
	case variance < 1000:
		return 0.5
	default:
		return 0.1
	}
}

func redAt(img image.Image, x, y int) float64 {
	r, _, _, _ := img.At(x, y).RGBA()
	return float64(r >> 8)
}

func dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
