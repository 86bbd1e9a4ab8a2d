package vision

import (
	"context"
	"image"

	"github.com/humrah/backend/internal/domain"
)

// Landmark indices follow the 68-point dlib layout.
const (
	landmarkCount = 68

	leftEyeStart  = 36
	leftEyeEnd    = 42
	rightEyeStart = 42
	rightEyeEnd   = 48
	noseTip       = 30
	leftEyeOuter  = 36
	rightEyeOuter = 45
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (r Rect) Area() float64 { return r.W * r.H }

func (r Rect) Center() Point { return Point{X: r.X + r.W/2, Y: r.Y + r.H/2} }

// Detection is the primary face found in a single frame.
type Detection struct {
	Box        Rect
	Landmarks  []Point
	Descriptor domain.Embedding
	Confidence float64
}

// Frame is one sampled still, decoded and in capture order.
type Frame struct {
	Index int
	Path  string
	Image image.Image
}

// FaceAnalyzer runs face detection, landmark extraction and descriptor
// computation on a single image. Analyze returns (nil, nil) when no face is
// present; CountFaces is the detect-all mode.
type FaceAnalyzer interface {
	Analyze(ctx context.Context, imagePath string) (*Detection, error)
	CountFaces(ctx context.Context, imagePath string) (int, error)
}

// FrameExtractor decodes a video file into sampled stills.
type FrameExtractor interface {
	Extract(ctx context.Context, videoPath, outDir string) ([]Frame, error)
}
