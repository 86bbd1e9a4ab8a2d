package verify

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/humrah/backend/internal/config"
	"github.com/humrah/backend/internal/domain"
	"github.com/humrah/backend/internal/repository"
	"github.com/humrah/backend/internal/vision"
)

// ---- fakes ----

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.VerificationSession
	finals   []repository.SessionFinal
}

func newFakeSessions(sessions ...*domain.VerificationSession) *fakeSessions {
	f := &fakeSessions{sessions: map[uuid.UUID]*domain.VerificationSession{}}
	for _, s := range sessions {
		f.sessions[s.ID] = s
	}
	return f
}

func (f *fakeSessions) Create(_ context.Context, s *domain.VerificationSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeSessions) GetOneByID(_ context.Context, id uuid.UUID) (*domain.VerificationSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeSessions) GetLivePending(context.Context, uuid.UUID, time.Time) (*domain.VerificationSession, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeSessions) MarkProcessing(context.Context, uuid.UUID, uuid.UUID, string, time.Time) error {
	return nil
}

func (f *fakeSessions) Finalize(_ context.Context, final repository.SessionFinal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[final.ID]
	if !ok || s.Status != domain.SessionProcessing {
		return domain.ErrNoRowsAffected
	}
	f.finals = append(f.finals, final)
	s.Status = final.Status
	s.Confidence = final.Confidence
	s.LivenessScore = final.LivenessScore
	s.FaceMatchScore = final.FaceMatchScore
	s.RejectionReason = final.RejectionReason
	s.FaceEmbedding = final.FaceEmbedding
	s.FraudFlags = final.FraudFlags
	deleted := final.VideoDeletedAt
	s.VideoDeletedAt = &deleted
	processed := final.ProcessedAt
	s.ProcessedAt = &processed
	return nil
}

func (f *fakeSessions) ListStale(context.Context, time.Time) ([]domain.VerificationSession, error) {
	return nil, nil
}

func (f *fakeSessions) Expire(context.Context, uuid.UUID, time.Time) error { return nil }

func (f *fakeSessions) Override(context.Context, repository.SessionOverride) error {
	return nil
}

func (f *fakeSessions) ListManualReview(context.Context, int, int) ([]domain.VerificationSession, error) {
	return nil, nil
}

func (f *fakeSessions) ListByUser(context.Context, uuid.UUID, int, int) ([]domain.VerificationSession, error) {
	return nil, nil
}

type fakeUsers struct {
	mu         sync.Mutex
	users      map[uuid.UUID]*domain.User
	verified   []uuid.UUID
	rejections []domain.RejectionRecord
}

func newFakeUsers(users ...*domain.User) *fakeUsers {
	f := &fakeUsers{users: map[uuid.UUID]*domain.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetOneByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) RecordVerificationAttempt(context.Context, uuid.UUID, time.Time) error {
	return nil
}

func (f *fakeUsers) SetVerified(_ context.Context, id uuid.UUID, _ time.Time, _ domain.VerificationType, _ domain.Embedding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified = append(f.verified, id)
	return nil
}

func (f *fakeUsers) ClearVerified(context.Context, uuid.UUID) error { return nil }

func (f *fakeUsers) AppendRejection(_ context.Context, _ uuid.UUID, rec domain.RejectionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejections = append(f.rejections, rec)
	return nil
}

func (f *fakeUsers) ListVerifiedEmbeddings(context.Context, uuid.UUID) ([]repository.VerifiedEmbedding, error) {
	return nil, nil
}

func (f *fakeUsers) ListAdmins(context.Context) ([]domain.User, error) { return nil, nil }

func (f *fakeUsers) PruneFCMTokens(context.Context, uuid.UUID, []string) error { return nil }

type fakeStore struct {
	video []byte
}

func (f *fakeStore) Put(context.Context, uuid.UUID, io.Reader, int64, string) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeStore) Get(context.Context, string) ([]byte, error) { return f.video, nil }

func (f *fakeStore) Delete(context.Context, string) error { return nil }

type fakeDestroyer struct {
	mu      sync.Mutex
	deletes []string
	err     error
}

func (f *fakeDestroyer) Destroy(_ context.Context, mediaRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, mediaRef)
	return f.err
}

type fakeExtractor struct {
	frames []vision.Frame
	err    error
}

func (f *fakeExtractor) Extract(context.Context, string, string) ([]vision.Frame, error) {
	return f.frames, f.err
}

type fakeAnalyzer struct {
	byPath map[string]*vision.Detection
	count  int
	err    error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, path string) (*vision.Detection, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byPath[path], nil
}

func (f *fakeAnalyzer) CountFaces(context.Context, string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.count, nil
}

type fakeChecker struct {
	result      DuplicateResult
	invalidated int
}

func (f *fakeChecker) Check(context.Context, domain.Embedding, uuid.UUID) DuplicateResult {
	return f.result
}

func (f *fakeChecker) Invalidate(context.Context) { f.invalidated++ }

type fakeNotifier struct {
	mu      sync.Mutex
	results []*domain.VerificationSession
	admins  []*domain.VerificationSession
}

func (f *fakeNotifier) NotifyResult(_ context.Context, _ uuid.UUID, s *domain.VerificationSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, s)
}

func (f *fakeNotifier) NotifyAdmins(_ context.Context, s *domain.VerificationSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.admins = append(f.admins, s)
}

// ---- frame and detection builders ----

func busyImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			r := uint8(60)
			if (x/4+y/4)%2 == 0 {
				r = 180
			}
			img.Set(x, y, color.RGBA{R: r, A: 255})
		}
	}
	return img
}

func flatImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: 120, A: 255})
		}
	}
	return img
}

// testDetection mirrors the dlib 68-point layout enough to drive liveness:
// eye gap controls the blink ratio, the nose x offset controls yaw.
func testDetection(eyeGap, noseDX float64) *vision.Detection {
	lm := make([]vision.Point, 68)
	for i, base := range []float64{0, 20} {
		start := 36
		if i == 1 {
			start = 42
		}
		lm[start+0] = vision.Point{X: base, Y: 0}
		lm[start+1] = vision.Point{X: base + 3, Y: -eyeGap}
		lm[start+2] = vision.Point{X: base + 7, Y: -eyeGap}
		lm[start+3] = vision.Point{X: base + 10, Y: 0}
		lm[start+4] = vision.Point{X: base + 7, Y: eyeGap}
		lm[start+5] = vision.Point{X: base + 3, Y: eyeGap}
	}
	lm[30] = vision.Point{X: 15 + noseDX, Y: 8}

	return &vision.Detection{
		Box:        vision.Rect{X: 2, Y: 2, W: 12, H: 12},
		Landmarks:  lm,
		Descriptor: domain.Embedding{1, 0, 0},
		Confidence: 0.9,
	}
}

type pipelineEnv struct {
	pipeline  *Pipeline
	sessions  *fakeSessions
	users     *fakeUsers
	destroyer *fakeDestroyer
	checker   *fakeChecker
	notifier  *fakeNotifier
	session   *domain.VerificationSession
	user      *domain.User
}

func liveFrames(img func() image.Image) []vision.Frame {
	frames := make([]vision.Frame, 5)
	for i := range frames {
		frames[i] = vision.Frame{Index: i, Path: framePath(i), Image: img()}
	}
	return frames
}

func framePath(i int) string {
	return string(rune('a' + i))
}

// liveDetections produce a blink (open then closed) and a head turn.
func liveDetections() map[string]*vision.Detection {
	return map[string]*vision.Detection{
		framePath(0): testDetection(1.5, 0),
		framePath(1): testDetection(0.5, 0),
		framePath(2): testDetection(1.5, 5),
		framePath(3): testDetection(1.5, 5),
		framePath(4): testDetection(1.5, 0),
	}
}

func newPipelineEnv(t *testing.T, frames []vision.Frame, dets map[string]*vision.Detection) *pipelineEnv {
	t.Helper()

	mediaRef := "verification/test.mp4"
	user := &domain.User{ID: uuid.New(), VerificationAttempts: 1}
	session := &domain.VerificationSession{
		ID:        uuid.New(),
		UserID:    user.ID,
		Status:    domain.SessionProcessing,
		MediaRef:  &mediaRef,
		ExpiresAt: time.Now().Add(5 * time.Minute),
		CreatedAt: time.Now(),
	}

	env := &pipelineEnv{
		sessions:  newFakeSessions(session),
		users:     newFakeUsers(user),
		destroyer: &fakeDestroyer{},
		checker:   &fakeChecker{},
		notifier:  &fakeNotifier{},
		session:   session,
		user:      user,
	}

	cfg := config.Verification{
		LivenessPassScore:   0.5,
		PhotoLikelihoodMax:  0.7,
		ApproveConfidence:   0.75,
		ReviewConfidence:    0.55,
		DuplicateSimilarity: 0.85,
		WorkDir:             t.TempDir(),
	}

	env.pipeline = NewPipeline(
		env.sessions,
		env.users,
		&fakeStore{video: []byte("mp4")},
		env.destroyer,
		&fakeExtractor{frames: frames},
		&fakeAnalyzer{byPath: dets, count: 1},
		env.checker,
		env.notifier,
		cfg,
	)

	return env
}

// ---- scenarios ----

func TestPipelineApprovesLiveUser(t *testing.T) {
	env := newPipelineEnv(t, liveFrames(busyImage), liveDetections())

	require.NoError(t, env.pipeline.Process(context.Background(), env.session.ID))

	require.Len(t, env.sessions.finals, 1)
	final := env.sessions.finals[0]
	require.Equal(t, domain.SessionApproved, final.Status)
	require.NotNil(t, final.Confidence)
	// liveness 0.69, face match 1.0 with no profile photo
	require.InDelta(t, 0.814, *final.Confidence, 1e-6)
	require.Equal(t, domain.Embedding{1, 0, 0}, final.FaceEmbedding)
	require.False(t, final.VideoDeletedAt.IsZero())

	require.Equal(t, []string{*env.session.MediaRef}, env.destroyer.deletes)
	require.Equal(t, []uuid.UUID{env.user.ID}, env.users.verified)
	require.Equal(t, 1, env.checker.invalidated)
	require.Len(t, env.notifier.results, 1)
	require.Equal(t, domain.SessionApproved, env.notifier.results[0].Status)
	require.Empty(t, env.notifier.admins)
}

func TestPipelineRejectsStaticPhoto(t *testing.T) {
	env := newPipelineEnv(t, liveFrames(flatImage), liveDetections())

	require.NoError(t, env.pipeline.Process(context.Background(), env.session.ID))

	require.Len(t, env.sessions.finals, 1)
	final := env.sessions.finals[0]
	require.Equal(t, domain.SessionRejected, final.Status)
	require.Equal(t, vision.ReasonStaticPhoto, *final.RejectionReason)
	require.Nil(t, final.FaceEmbedding)
	require.True(t, final.FraudFlags.Has(domain.FraudPhotoDetected))

	require.Len(t, env.users.rejections, 1)
	require.Equal(t, vision.ReasonStaticPhoto, env.users.rejections[0].Reason)
	require.Empty(t, env.users.verified)
}

func TestPipelineRejectsMultipleFaces(t *testing.T) {
	env := newPipelineEnv(t, liveFrames(busyImage), liveDetections())
	env.pipeline.analyzer.(*fakeAnalyzer).count = 2

	require.NoError(t, env.pipeline.Process(context.Background(), env.session.ID))

	require.Len(t, env.sessions.finals, 1)
	final := env.sessions.finals[0]
	require.Equal(t, domain.SessionRejected, final.Status)
	require.Equal(t, ReasonMultipleFaces, *final.RejectionReason)
	require.Nil(t, final.FaceEmbedding)
}

func TestPipelineRejectsDuplicateIdentity(t *testing.T) {
	env := newPipelineEnv(t, liveFrames(busyImage), liveDetections())
	env.checker.result = DuplicateResult{
		Duplicate:   true,
		MatchedUser: uuid.New(),
		Similarity:  0.93,
	}

	require.NoError(t, env.pipeline.Process(context.Background(), env.session.ID))

	require.Len(t, env.sessions.finals, 1)
	final := env.sessions.finals[0]
	require.Equal(t, domain.SessionRejected, final.Status)
	require.Equal(t, ReasonDuplicateFace, *final.RejectionReason)
	require.True(t, final.FraudFlags.Has(domain.FraudDuplicateFace))
	require.Nil(t, final.FaceEmbedding)
	require.Empty(t, env.users.verified)
}

func TestPipelineFailsWhenDestructionFails(t *testing.T) {
	env := newPipelineEnv(t, liveFrames(busyImage), liveDetections())
	env.destroyer.err = errors.New("object storage down")

	require.NoError(t, env.pipeline.Process(context.Background(), env.session.ID))

	require.Len(t, env.sessions.finals, 1)
	final := env.sessions.finals[0]
	require.Equal(t, domain.SessionFailed, final.Status)
	require.Equal(t, ReasonProcessingError, *final.RejectionReason)
	require.Nil(t, final.FaceEmbedding)
	// The would-be approval never reaches the user record.
	require.Empty(t, env.users.verified)
}

func TestPipelineExpiresOverdueSession(t *testing.T) {
	env := newPipelineEnv(t, liveFrames(busyImage), liveDetections())
	env.session.ExpiresAt = time.Now().Add(-time.Minute)

	require.NoError(t, env.pipeline.Process(context.Background(), env.session.ID))

	require.Len(t, env.sessions.finals, 1)
	require.Equal(t, domain.SessionExpired, env.sessions.finals[0].Status)

	// The user uploaded a video, so even an expiry verdict gets pushed.
	require.Len(t, env.notifier.results, 1)
	require.Equal(t, domain.SessionExpired, env.notifier.results[0].Status)
	require.Empty(t, env.notifier.admins)
}

func TestPipelineSkipsAlreadyTerminalSession(t *testing.T) {
	env := newPipelineEnv(t, liveFrames(busyImage), liveDetections())
	env.session.Status = domain.SessionApproved

	require.NoError(t, env.pipeline.Process(context.Background(), env.session.ID))

	require.Empty(t, env.sessions.finals)
	require.Empty(t, env.destroyer.deletes)
}

func TestPipelineUnknownSessionIsDropped(t *testing.T) {
	env := newPipelineEnv(t, liveFrames(busyImage), liveDetections())

	require.NoError(t, env.pipeline.Process(context.Background(), uuid.New()))
	require.Empty(t, env.sessions.finals)
}

func TestPipelineFailsOnExtractionError(t *testing.T) {
	env := newPipelineEnv(t, nil, nil)
	env.pipeline.extractor.(*fakeExtractor).err = errors.New("ffmpeg exploded")

	require.NoError(t, env.pipeline.Process(context.Background(), env.session.ID))

	require.Len(t, env.sessions.finals, 1)
	final := env.sessions.finals[0]
	require.Equal(t, domain.SessionFailed, final.Status)
	require.Equal(t, ReasonProcessingError, *final.RejectionReason)
}

func TestPipelineRejectsTooFewFrames(t *testing.T) {
	frames := liveFrames(busyImage)[:2]
	env := newPipelineEnv(t, frames, liveDetections())

	require.NoError(t, env.pipeline.Process(context.Background(), env.session.ID))

	require.Len(t, env.sessions.finals, 1)
	final := env.sessions.finals[0]
	require.Equal(t, domain.SessionRejected, final.Status)
	require.Equal(t, ReasonInsufficientFrames, *final.RejectionReason)
}

func TestFaceMatchScoreDegradesWithoutPhoto(t *testing.T) {
	env := newPipelineEnv(t, liveFrames(busyImage), liveDetections())

	best := &vision.BestFace{Detection: testDetection(1.5, 0)}
	score := env.pipeline.faceMatchScore(context.Background(), env.user, best, t.TempDir())
	require.InDelta(t, 1.0, score, 1e-9)
}

func TestFaceMatchScoreDegradesOnFetchFailure(t *testing.T) {
	env := newPipelineEnv(t, liveFrames(busyImage), liveDetections())
	env.user.ProfilePhoto.Valid = true
	env.user.ProfilePhoto.String = "https://cdn.example.com/photo.jpg"
	env.pipeline.fetchPhoto = func(context.Context, string, string) error {
		return errors.New("cdn unreachable")
	}

	best := &vision.BestFace{Detection: testDetection(1.5, 0)}
	score := env.pipeline.faceMatchScore(context.Background(), env.user, best, t.TempDir())
	require.InDelta(t, 1.0, score, 1e-9)
}
