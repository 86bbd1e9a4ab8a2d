package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSessionStatusIsTerminal(t *testing.T) {
	for _, s := range []SessionStatus{SessionApproved, SessionRejected, SessionManualReview, SessionExpired, SessionFailed} {
		require.True(t, s.IsTerminal(), "%s", s)
	}
	for _, s := range []SessionStatus{SessionPending, SessionProcessing} {
		require.False(t, s.IsTerminal(), "%s", s)
	}
}

func TestSessionResult(t *testing.T) {
	s := &VerificationSession{Status: SessionProcessing}
	require.Empty(t, s.Result())

	s.Status = SessionApproved
	require.Equal(t, "APPROVED", s.Result())
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	s := &VerificationSession{ExpiresAt: now.Add(time.Minute)}

	require.False(t, s.Expired(now))
	require.True(t, s.Expired(now.Add(2*time.Minute)))
}

func TestFraudFlags(t *testing.T) {
	var f FraudFlags
	require.False(t, f.Has(FraudPhotoDetected))

	f |= FraudPhotoDetected | FraudDuplicateFace
	require.True(t, f.Has(FraudPhotoDetected))
	require.True(t, f.Has(FraudDuplicateFace))
	require.False(t, f.Has(FraudSuspiciousMotion))
}

func TestRejectionListKeepsRecentEntries(t *testing.T) {
	var list RejectionList
	for i := 0; i < RejectionRecordLimit+2; i++ {
		list = list.Append(RejectionRecord{Reason: string(rune('a' + i)), SessionID: uuid.New()})
	}

	require.Len(t, list, RejectionRecordLimit)
	// Oldest entries fall off, newest stays last.
	require.Equal(t, "c", list[0].Reason)
	require.Equal(t, "g", list[len(list)-1].Reason)
}

func TestTokenListRemove(t *testing.T) {
	list := TokenList{"a", "b", "c"}

	require.Equal(t, TokenList{"a", "c"}, list.Remove([]string{"b"}))
	require.Equal(t, list, list.Remove(nil))
}

func TestEmbeddingScanRoundTrip(t *testing.T) {
	e := Embedding{0.25, -0.5}
	v, err := e.Value()
	require.NoError(t, err)

	var out Embedding
	require.NoError(t, out.Scan(v))
	require.Equal(t, e, out)

	require.NoError(t, out.Scan(nil))
	require.Nil(t, out)
}
