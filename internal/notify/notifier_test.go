package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/humrah/backend/internal/config"
	"github.com/humrah/backend/internal/domain"
	"github.com/humrah/backend/internal/push"
	"github.com/humrah/backend/internal/repository"
)

type stubUsers struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*domain.User
	admins []domain.User
	pruned map[uuid.UUID][]string
}

func newStubUsers(users ...*domain.User) *stubUsers {
	s := &stubUsers{users: map[uuid.UUID]*domain.User{}, pruned: map[uuid.UUID][]string{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *stubUsers) GetOneByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (s *stubUsers) RecordVerificationAttempt(context.Context, uuid.UUID, time.Time) error {
	return nil
}

func (s *stubUsers) SetVerified(context.Context, uuid.UUID, time.Time, domain.VerificationType, domain.Embedding) error {
	return nil
}

func (s *stubUsers) ClearVerified(context.Context, uuid.UUID) error { return nil }

func (s *stubUsers) AppendRejection(context.Context, uuid.UUID, domain.RejectionRecord) error {
	return nil
}

func (s *stubUsers) ListVerifiedEmbeddings(context.Context, uuid.UUID) ([]repository.VerifiedEmbedding, error) {
	return nil, nil
}

func (s *stubUsers) ListAdmins(context.Context) ([]domain.User, error) { return s.admins, nil }

func (s *stubUsers) PruneFCMTokens(_ context.Context, id uuid.UUID, dead []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruned[id] = append(s.pruned[id], dead...)
	return nil
}

type stubSender struct {
	mu     sync.Mutex
	sent   []push.Message
	tokens [][]string
	result *push.Result
}

func (s *stubSender) SendToTokens(_ context.Context, tokens []string, msg push.Message) (*push.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	s.tokens = append(s.tokens, tokens)
	if s.result != nil {
		return s.result, nil
	}
	return &push.Result{SuccessCount: len(tokens)}, nil
}

func notifiableUser() *domain.User {
	return &domain.User{
		ID:                  uuid.New(),
		FCMTokens:           domain.TokenList{"tok-1", "tok-2"},
		AllowsNotifications: true,
	}
}

func terminalSession(userID uuid.UUID, status domain.SessionStatus) *domain.VerificationSession {
	return &domain.VerificationSession{
		ID:     uuid.New(),
		UserID: userID,
		Status: status,
	}
}

func TestNotifyResultApproved(t *testing.T) {
	user := notifiableUser()
	users := newStubUsers(user)
	sender := &stubSender{}
	svc := NewService(sender, nil, users, config.EmailConfig{})

	svc.NotifyResult(context.Background(), user.ID, terminalSession(user.ID, domain.SessionApproved))

	require.Len(t, sender.sent, 1)
	require.Equal(t, titleApproved, sender.sent[0].Title)
	require.Equal(t, "APPROVED", sender.sent[0].Data["status"])
	require.Equal(t, []string{"tok-1", "tok-2"}, sender.tokens[0])
}

func TestNotifyResultUsesRejectionReason(t *testing.T) {
	user := notifiableUser()
	users := newStubUsers(user)
	sender := &stubSender{}
	svc := NewService(sender, nil, users, config.EmailConfig{})

	session := terminalSession(user.ID, domain.SessionRejected)
	reason := "Video appears to be a static photo"
	session.RejectionReason = &reason

	svc.NotifyResult(context.Background(), user.ID, session)

	require.Len(t, sender.sent, 1)
	require.Equal(t, titleRejected, sender.sent[0].Title)
	require.Equal(t, reason, sender.sent[0].Body)
}

func TestNotifyResultExpired(t *testing.T) {
	user := notifiableUser()
	users := newStubUsers(user)
	sender := &stubSender{}
	svc := NewService(sender, nil, users, config.EmailConfig{})

	svc.NotifyResult(context.Background(), user.ID, terminalSession(user.ID, domain.SessionExpired))

	require.Len(t, sender.sent, 1)
	require.Equal(t, titleExpired, sender.sent[0].Title)
	require.Equal(t, "EXPIRED", sender.sent[0].Data["status"])
}

func TestNotifyResultSkipsOptedOutUser(t *testing.T) {
	user := notifiableUser()
	user.AllowsNotifications = false
	users := newStubUsers(user)
	sender := &stubSender{}
	svc := NewService(sender, nil, users, config.EmailConfig{})

	svc.NotifyResult(context.Background(), user.ID, terminalSession(user.ID, domain.SessionApproved))

	require.Empty(t, sender.sent)
}

func TestNotifyResultPrunesDeadTokens(t *testing.T) {
	user := notifiableUser()
	users := newStubUsers(user)
	sender := &stubSender{result: &push.Result{SuccessCount: 1, FailedTokens: []string{"tok-2"}}}
	svc := NewService(sender, nil, users, config.EmailConfig{})

	svc.NotifyResult(context.Background(), user.ID, terminalSession(user.ID, domain.SessionApproved))

	require.Equal(t, []string{"tok-2"}, users.pruned[user.ID])
}

func TestNotifyAdmins(t *testing.T) {
	admin := notifiableUser()
	admin.Role = domain.RoleAdmin
	users := newStubUsers(admin)
	users.admins = []domain.User{*admin}
	sender := &stubSender{}
	svc := NewService(sender, nil, users, config.EmailConfig{})

	svc.NotifyAdmins(context.Background(), terminalSession(uuid.New(), domain.SessionManualReview))

	require.Len(t, sender.sent, 1)
	require.Equal(t, adminReviewSubject, sender.sent[0].Title)
	require.Equal(t, "verification_review", sender.sent[0].Data["type"])
}
