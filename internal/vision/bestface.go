package vision

import (
	"errors"
	"math"
)

// Best-frame scoring weights.
const (
	sizeWeight       = 0.4
	centralityWeight = 0.3
	confidenceWeight = 0.3
)

var ErrNoFace = errors.New("no face detected in any frame")

// BestFace is the canonical detection selected for embedding extraction.
type BestFace struct {
	FrameIndex int
	Frame      Frame
	Detection  *Detection
	Score      float64
}

// SelectBestFace scores every frame with a detection and returns the winner.
// sizeScore favors faces filling the frame, centrality favors centered ones.
func SelectBestFace(frames []Frame, dets []*Detection) (*BestFace, error) {
	var best *BestFace
	for i, det := range dets {
		if det == nil || i >= len(frames) {
			continue
		}
		score := frameScore(det, frames[i])
		if best == nil || score > best.Score {
			best = &BestFace{FrameIndex: i, Frame: frames[i], Detection: det, Score: score}
		}
	}
	if best == nil {
		return nil, ErrNoFace
	}
	return best, nil
}

func frameScore(det *Detection, frame Frame) float64 {
	b := frame.Image.Bounds()
	imgW, imgH := float64(b.Dx()), float64(b.Dy())
	if imgW == 0 || imgH == 0 {
		return 0
	}

	sizeScore := clamp(10*det.Box.Area()/(imgW*imgH), 0, 1)

	center := det.Box.Center()
	imgCenter := Point{X: imgW / 2, Y: imgH / 2}
	dmax := math.Hypot(imgW/2, imgH/2)
	centrality := 1 - dist(center, imgCenter)/dmax

	return sizeWeight*sizeScore + centralityWeight*centrality + confidenceWeight*det.Confidence
}
