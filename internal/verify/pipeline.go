package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/humrah/backend/internal/config"
	"github.com/humrah/backend/internal/domain"
	"github.com/humrah/backend/internal/media"
	"github.com/humrah/backend/internal/metrics"
	"github.com/humrah/backend/internal/repository"
	"github.com/humrah/backend/internal/vision"
	"github.com/humrah/backend/pkg/logger"
)

const (
	ReasonProcessingError    = "Processing error occurred"
	ReasonNoFace             = "No face detected in verification video"
	ReasonMultipleFaces      = "Multiple faces detected in video"
	ReasonInsufficientFrames = "Insufficient frames for analysis"
)

const (
	finalizeBaseBackoff = 200 * time.Millisecond
	finalizeMaxRetries  = 3
)

// Notifier fans terminal outcomes out; implementations swallow their own
// errors so delivery can never change a verdict.
type Notifier interface {
	NotifyResult(ctx context.Context, userID uuid.UUID, session *domain.VerificationSession)
	NotifyAdmins(ctx context.Context, session *domain.VerificationSession)
}

// Checker is the duplicate-identity collaborator.
type Checker interface {
	Check(ctx context.Context, candidate domain.Embedding, exclude uuid.UUID) DuplicateResult
	Invalidate(ctx context.Context)
}

// Pipeline drives one PROCESSING session to a terminal state: frame
// extraction, per-frame face analysis, liveness scoring, best-face selection,
// face match, duplicate check, decision, then media destruction and a single
// terminal write.
type Pipeline struct {
	sessions  repository.Sessions
	users     repository.Users
	store     media.Store
	lifecycle media.Destroyer
	extractor vision.FrameExtractor
	analyzer  vision.FaceAnalyzer
	dupes     Checker
	notifier  Notifier
	cfg       config.Verification

	now        func() time.Time
	fetchPhoto func(ctx context.Context, url, destPath string) error
}

func NewPipeline(
	sessions repository.Sessions,
	users repository.Users,
	store media.Store,
	lifecycle media.Destroyer,
	extractor vision.FrameExtractor,
	analyzer vision.FaceAnalyzer,
	dupes Checker,
	notifier Notifier,
	cfg config.Verification,
) *Pipeline {
	return &Pipeline{
		sessions:   sessions,
		users:      users,
		store:      store,
		lifecycle:  lifecycle,
		extractor:  extractor,
		analyzer:   analyzer,
		dupes:      dupes,
		notifier:   notifier,
		cfg:        cfg,
		now:        time.Now,
		fetchPhoto: downloadToFile,
	}
}

// outcome is the in-memory verdict before the terminal write. Scores are nil
// where a stage never ran; the embedding is kept only when the terminal state
// may need it.
type outcome struct {
	status          domain.SessionStatus
	confidence      *float64
	livenessScore   *float64
	faceMatchScore  *float64
	rejectionReason *string
	embedding       domain.Embedding
	flags           domain.FraudFlags
}

func rejected(reason string) outcome {
	return outcome{status: domain.SessionRejected, rejectionReason: &reason}
}

func failed() outcome {
	reason := ReasonProcessingError
	return outcome{status: domain.SessionFailed, rejectionReason: &reason}
}

// Process runs the full pipeline for one session. An error return means the
// session was not finalized and the task should be retried; every analysis
// failure is instead absorbed into a FAILED outcome.
func (p *Pipeline) Process(ctx context.Context, sessionID uuid.UUID) error {
	const op = "verify.pipeline.Process"

	started := p.now()

	session, err := p.sessions.GetOneByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn("pipeline task for unknown session",
				zap.String("session_id", sessionID.String()))
			return nil
		}
		return fmt.Errorf("%s: load session failed: %w", op, err)
	}

	// Redelivered task for an already-finalized session.
	if session.Status != domain.SessionProcessing {
		return nil
	}

	user, err := p.users.GetOneByID(ctx, session.UserID)
	if err != nil {
		return fmt.Errorf("%s: load user failed: %w", op, err)
	}

	var out outcome
	if session.Expired(p.now()) {
		out = outcome{status: domain.SessionExpired}
	} else {
		out = p.analyze(ctx, session, user)
	}

	// The raw video never survives a terminal write. A destruction failure
	// downgrades any verdict to FAILED; the lifecycle already logged the
	// reconciliation entry for the orphaned object.
	if session.MediaRef != nil {
		if err := p.lifecycle.Destroy(ctx, *session.MediaRef); err != nil {
			metrics.MediaDestructionFailures.Inc()
			out = failed()
		}
	}

	if err := p.finalize(ctx, session, out); err != nil {
		return fmt.Errorf("%s: finalize failed: %w", op, err)
	}

	p.applyUserEffects(ctx, session, user, out)

	metrics.PipelineOutcomes.WithLabelValues(string(out.status)).Inc()
	metrics.PipelineDuration.Observe(p.now().Sub(started).Seconds())

	p.notify(ctx, session)

	return nil
}

func (p *Pipeline) analyze(ctx context.Context, session *domain.VerificationSession, user *domain.User) outcome {
	if session.MediaRef == nil {
		logger.Error("processing session without media",
			zap.String("session_id", session.ID.String()))
		return failed()
	}

	workDir, err := os.MkdirTemp(p.cfg.WorkDir, session.ID.String())
	if err != nil {
		logger.Error("create work dir failed", zap.Error(err))
		return failed()
	}
	defer os.RemoveAll(workDir)

	video, err := p.store.Get(ctx, *session.MediaRef)
	if err != nil {
		logger.Error("fetch video failed",
			zap.String("session_id", session.ID.String()), zap.Error(err))
		return failed()
	}

	videoPath := filepath.Join(workDir, "input.mp4")
	if err := os.WriteFile(videoPath, video, 0o600); err != nil {
		logger.Error("stage video failed", zap.Error(err))
		return failed()
	}

	framesDir := filepath.Join(workDir, "frames")
	if err := os.Mkdir(framesDir, 0o700); err != nil {
		logger.Error("create frames dir failed", zap.Error(err))
		return failed()
	}

	frames, err := p.extractor.Extract(ctx, videoPath, framesDir)
	if err != nil {
		logger.Error("frame extraction failed",
			zap.String("session_id", session.ID.String()), zap.Error(err))
		return failed()
	}
	if len(frames) < vision.MinFrames {
		return rejected(ReasonInsufficientFrames)
	}

	dets := make([]*vision.Detection, len(frames))
	for i := range frames {
		if session.Expired(p.now()) {
			return outcome{status: domain.SessionExpired}
		}
		det, err := p.analyzer.Analyze(ctx, frames[i].Path)
		if err != nil {
			logger.Error("frame analysis failed",
				zap.String("session_id", session.ID.String()),
				zap.Int("frame", i), zap.Error(err))
			return failed()
		}
		dets[i] = det
	}

	var flags domain.FraudFlags
	if user.VerificationAttempts > 1 {
		flags |= domain.FraudMultipleAttempts
	}

	liveness := vision.ScoreLiveness(frames, dets, vision.LivenessConfig{
		PassScore:          p.cfg.LivenessPassScore,
		PhotoLikelihoodMax: p.cfg.PhotoLikelihoodMax,
	})
	if liveness.PhotoLikelihood >= p.cfg.PhotoLikelihoodMax {
		flags |= domain.FraudPhotoDetected
	}

	if !liveness.Passed {
		if liveness.Reason == vision.ReasonLowMotion || liveness.Reason == vision.ReasonNoMovement {
			flags |= domain.FraudSuspiciousMotion
		}
		out := rejected(liveness.Reason)
		out.livenessScore = &liveness.Score
		out.flags = flags
		return out
	}

	best, err := vision.SelectBestFace(frames, dets)
	if err != nil {
		if errors.Is(err, vision.ErrNoFace) {
			out := rejected(ReasonNoFace)
			out.livenessScore = &liveness.Score
			out.flags = flags
			return out
		}
		logger.Error("best-face selection failed", zap.Error(err))
		return failed()
	}

	count, err := p.analyzer.CountFaces(ctx, best.Frame.Path)
	if err != nil {
		logger.Error("face count failed", zap.Error(err))
		return failed()
	}
	if count > 1 {
		out := rejected(ReasonMultipleFaces)
		out.livenessScore = &liveness.Score
		out.flags = flags
		return out
	}

	faceMatch := p.faceMatchScore(ctx, user, best, workDir)

	if dup := p.dupes.Check(ctx, best.Detection.Descriptor, user.ID); dup.Duplicate {
		logger.Warn("duplicate identity detected",
			zap.String("session_id", session.ID.String()),
			zap.String("matched_user", dup.MatchedUser.String()),
			zap.Float64("similarity", dup.Similarity))
		out := rejected(ReasonDuplicateFace)
		out.livenessScore = &liveness.Score
		out.faceMatchScore = &faceMatch
		out.flags = flags | domain.FraudDuplicateFace
		return out
	}

	if session.Expired(p.now()) {
		return outcome{status: domain.SessionExpired}
	}

	verdict := Decide(liveness.Score, faceMatch, DecisionConfig{
		ApproveConfidence: p.cfg.ApproveConfidence,
		ReviewConfidence:  p.cfg.ReviewConfidence,
		LivenessPassScore: p.cfg.LivenessPassScore,
	})

	out := outcome{
		status:         verdict.Status,
		confidence:     &verdict.Confidence,
		livenessScore:  &liveness.Score,
		faceMatchScore: &faceMatch,
		flags:          flags,
	}
	if verdict.RejectionReason != "" {
		out.rejectionReason = &verdict.RejectionReason
	}
	if verdict.Status == domain.SessionApproved || verdict.Status == domain.SessionManualReview {
		out.embedding = best.Detection.Descriptor
	}

	return out
}

// faceMatchScore compares the best face against the user's existing profile
// photo. Degrades to 1.0 when there is no photo or the comparison itself
// fails; a broken reference photo must not block a live user.
func (p *Pipeline) faceMatchScore(ctx context.Context, user *domain.User, best *vision.BestFace, workDir string) float64 {
	if !user.ProfilePhoto.Valid || user.ProfilePhoto.String == "" {
		return 1.0
	}

	photoPath := filepath.Join(workDir, "profile.jpg")
	if err := p.fetchPhoto(ctx, user.ProfilePhoto.String, photoPath); err != nil {
		logger.Warn("profile photo fetch failed, skipping face match",
			zap.String("user_id", user.ID.String()), zap.Error(err))
		return 1.0
	}

	ref, err := p.analyzer.Analyze(ctx, photoPath)
	if err != nil || ref == nil {
		logger.Warn("profile photo analysis failed, skipping face match",
			zap.String("user_id", user.ID.String()), zap.Error(err))
		return 1.0
	}

	return vision.FaceMatchScore(best.Detection.Descriptor, ref.Descriptor)
}

// finalize performs the atomic terminal write with a short retry budget.
// A lost compare-and-set (the sweep expired the session first) is absorbed.
func (p *Pipeline) finalize(ctx context.Context, session *domain.VerificationSession, out outcome) error {
	now := p.now()
	final := repository.SessionFinal{
		ID:              session.ID,
		Status:          out.status,
		Confidence:      out.confidence,
		LivenessScore:   out.livenessScore,
		FaceMatchScore:  out.faceMatchScore,
		RejectionReason: out.rejectionReason,
		FaceEmbedding:   out.embedding,
		FraudFlags:      out.flags,
		VideoDeletedAt:  now,
		ProcessedAt:     now,
	}

	backoff := retry.WithMaxRetries(finalizeMaxRetries, retry.NewExponential(finalizeBaseBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := p.sessions.Finalize(ctx, final); err != nil {
			if errors.Is(err, domain.ErrNoRowsAffected) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	if errors.Is(err, domain.ErrNoRowsAffected) {
		logger.Warn("session finalized elsewhere, dropping verdict",
			zap.String("session_id", session.ID.String()),
			zap.String("status", string(out.status)))
		return nil
	}
	return err
}

// applyUserEffects mutates the user record after the session write so a
// failed session write can never leave an embedding on the user.
func (p *Pipeline) applyUserEffects(ctx context.Context, session *domain.VerificationSession, user *domain.User, out outcome) {
	now := p.now()

	switch out.status {
	case domain.SessionApproved:
		if err := p.users.SetVerified(ctx, user.ID, now, domain.VerificationVideo, out.embedding); err != nil {
			logger.Error("set user verified failed",
				zap.String("user_id", user.ID.String()), zap.Error(err))
			return
		}
		p.dupes.Invalidate(ctx)
	case domain.SessionRejected, domain.SessionFailed:
		reason := ReasonProcessingError
		if out.rejectionReason != nil {
			reason = *out.rejectionReason
		}
		rec := domain.RejectionRecord{Reason: reason, At: now, SessionID: session.ID}
		if err := p.users.AppendRejection(ctx, user.ID, rec); err != nil {
			logger.Error("append rejection failed",
				zap.String("user_id", user.ID.String()), zap.Error(err))
		}
	}
}

// notify fans the terminal state out. Every pipeline outcome reaches the
// user, including mid-processing expiry; a video was uploaded by definition.
func (p *Pipeline) notify(ctx context.Context, session *domain.VerificationSession) {
	if p.notifier == nil {
		return
	}

	updated, err := p.sessions.GetOneByID(ctx, session.ID)
	if err != nil {
		logger.Warn("reload finalized session failed",
			zap.String("session_id", session.ID.String()), zap.Error(err))
		return
	}

	p.notifier.NotifyResult(ctx, session.UserID, updated)
	if updated.Status == domain.SessionManualReview {
		p.notifier.NotifyAdmins(ctx, updated)
	}
}

func downloadToFile(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, resp.Body)
	return err
}
