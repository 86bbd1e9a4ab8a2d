package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/humrah/backend/internal/domain"
)

// ExecAnalyzer shells out to the face_analyzer python helper, which wraps the
// face_recognition library. One process per frame; model weights are loaded
// by the helper and validated once at startup via Probe.
type ExecAnalyzer struct {
	python string
	script string
}

func NewExecAnalyzer(python, script string) *ExecAnalyzer {
	return &ExecAnalyzer{
		python: python,
		script: script,
	}
}

type analyzerOutput struct {
	OK         bool         `json:"ok"`
	Error      string       `json:"error,omitempty"`
	Found      bool         `json:"found"`
	Count      int          `json:"count"`
	Box        *Rect        `json:"box,omitempty"`
	Landmarks  [][2]float64 `json:"landmarks,omitempty"`
	Descriptor []float64    `json:"descriptor,omitempty"`
	Confidence float64      `json:"confidence"`
}

// Probe loads the helper's model weights and fails fast if they are absent.
// Called once at process start; a probe failure is fatal.
func (a *ExecAnalyzer) Probe(ctx context.Context) error {
	out, err := a.run(ctx, "--probe")
	if err != nil {
		return errors.Wrap(err, "face analyzer probe")
	}
	if !out.OK {
		return errors.Errorf("face analyzer probe: %s", out.Error)
	}
	return nil
}

func (a *ExecAnalyzer) Analyze(ctx context.Context, imagePath string) (*Detection, error) {
	out, err := a.run(ctx, "--analyze", imagePath)
	if err != nil {
		return nil, errors.Wrapf(err, "analyze %s", imagePath)
	}
	if !out.OK {
		return nil, errors.Errorf("analyze %s: %s", imagePath, out.Error)
	}
	if !out.Found {
		return nil, nil
	}

	det := &Detection{
		Confidence: out.Confidence,
		Descriptor: domain.Embedding(out.Descriptor),
		Landmarks:  make([]Point, 0, len(out.Landmarks)),
	}
	if out.Box != nil {
		det.Box = *out.Box
	}
	for _, lm := range out.Landmarks {
		det.Landmarks = append(det.Landmarks, Point{X: lm[0], Y: lm[1]})
	}
	if len(det.Landmarks) != landmarkCount {
		return nil, errors.Errorf("analyze %s: expected %d landmarks, got %d", imagePath, landmarkCount, len(det.Landmarks))
	}

	return det, nil
}

func (a *ExecAnalyzer) CountFaces(ctx context.Context, imagePath string) (int, error) {
	out, err := a.run(ctx, "--count", imagePath)
	if err != nil {
		return 0, errors.Wrapf(err, "count faces %s", imagePath)
	}
	if !out.OK {
		return 0, errors.Errorf("count faces %s: %s", imagePath, out.Error)
	}
	return out.Count, nil
}

func (a *ExecAnalyzer) run(ctx context.Context, args ...string) (*analyzerOutput, error) {
	cmd := exec.CommandContext(ctx, a.python, append([]string{a.script}, args...)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "run helper: %s", strings.TrimSpace(stderr.String()))
	}

	var out analyzerOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, errors.Wrap(err, "decode helper output")
	}

	return &out, nil
}
