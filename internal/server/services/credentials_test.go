package services

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tkbstudios/tinet/internal/common"
	"github.com/tkbstudios/tinet/internal/server/metrics"
)

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune(common.Alphanumeric, r) {
			return false
		}
	}
	return true
}

func TestIssueAPIKey_OverwritesPrevious(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "pw")

	first, err := f.creds.IssueAPIKey(ctx, alice, testIP)
	require.NoError(t, err)
	assert.Len(t, first, UserAPIKeyLength)
	assert.True(t, isAlphanumeric(first))

	got, err := f.creds.ResolveUserAPIKey(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	second, err := f.creds.IssueAPIKey(ctx, alice, testIP)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, err = f.creds.ResolveUserAPIKey(ctx, first)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	got, err = f.creds.ResolveUserAPIKey(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserName)
}

func TestResolveUserAPIKey_EmptyKey(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "pw")

	_, err := f.creds.ResolveUserAPIKey(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestIssueCalculatorKeyfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "pw")

	data, err := f.creds.IssueCalculatorKeyfile(ctx, alice, testIP)
	require.NoError(t, err)
	require.Len(t, alice.CalcKey, CalcKeyLength)
	assert.True(t, isAlphanumeric(alice.CalcKey))
	assert.True(t, bytes.Contains(data, []byte("alice\x00"+alice.CalcKey+"\x00")))
	assert.True(t, bytes.HasPrefix(data, []byte("**TI83F*")))

	got, err := f.creds.AuthenticateCalculator(ctx, "alice", alice.CalcKey)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	old := alice.CalcKey
	_, err = f.creds.IssueCalculatorKeyfile(ctx, alice, testIP)
	require.NoError(t, err)
	_, err = f.creds.AuthenticateCalculator(ctx, "alice", old)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestAuthenticateCalculator_Mismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "pw")
	bob := f.register(t, "bob", "pw")
	_, err := f.creds.IssueCalculatorKeyfile(ctx, alice, testIP)
	require.NoError(t, err)

	tests := []struct {
		name     string
		userName string
		calcKey  string
	}{
		{"wrong key", "alice", "nope"},
		{"key of another user", "bob", alice.CalcKey},
		{"unknown user", "carol", alice.CalcKey},
		{"user without calc key", bob.UserName, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.creds.AuthenticateCalculator(ctx, tt.userName, tt.calcKey)
			assert.ErrorIs(t, err, common.ErrorNotFound)
		})
	}
}

func TestLoginCalculator_OneTokenPerLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "pw")
	_, err := f.creds.IssueCalculatorKeyfile(ctx, alice, testIP)
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.AuthAttempts.WithLabelValues(metrics.ChannelCalcKey, metrics.OutcomeSuccess))

	_, t1, err := f.creds.LoginCalculator(ctx, "alice", alice.CalcKey, testIP)
	require.NoError(t, err)
	_, t2, err := f.creds.LoginCalculator(ctx, "alice", alice.CalcKey, testIP)
	require.NoError(t, err)

	assert.NotEqual(t, t1.Token, t2.Token)
	assert.Len(t, t1.Token, SessionTokenLength)
	assert.False(t, t1.Expired)
	assert.WithinDuration(t, time.Now().Add(12*time.Hour), t1.ExpiryDate, time.Minute)

	for _, tok := range []string{t1.Token, t2.Token} {
		ok, err := f.creds.ValidateSessionToken(ctx, tok)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	after := testutil.ToFloat64(metrics.AuthAttempts.WithLabelValues(metrics.ChannelCalcKey, metrics.OutcomeSuccess))
	assert.Equal(t, 2.0, after-before)

	history, err := f.audit.History(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Contains(t, auditActions(history), ActionSessionTokenIssued)
}

func TestSessionToken_InvalidAfterExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "pw")

	tok, err := f.creds.CreateSessionToken(ctx, alice)
	require.NoError(t, err)

	ok, err := f.creds.ValidateSessionToken(ctx, tok.Token)
	require.NoError(t, err)
	assert.True(t, ok)

	f.creds.now = func() time.Time { return time.Now().Add(12*time.Hour + time.Second) }

	ok, err = f.creds.ValidateSessionToken(ctx, tok.Token)
	require.NoError(t, err)
	assert.False(t, ok, "expired flag unset but expiry passed")

	_, err = f.creds.ResolveSessionToken(ctx, tok.Token)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestValidateSessionToken_Unknown(t *testing.T) {
	f := newFixture(t)

	ok, err := f.creds.ValidateSessionToken(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.creds.ResolveSessionToken(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestExpireAllSessionTokens_OnlyOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "pw")
	bob := f.register(t, "bob", "pw")

	a1, err := f.creds.CreateSessionToken(ctx, alice)
	require.NoError(t, err)
	a2, err := f.creds.CreateSessionToken(ctx, alice)
	require.NoError(t, err)
	b1, err := f.creds.CreateSessionToken(ctx, bob)
	require.NoError(t, err)

	n, err := f.creds.ExpireAllSessionTokens(ctx, alice, testIP)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for _, tok := range []string{a1.Token, a2.Token} {
		ok, err := f.creds.ValidateSessionToken(ctx, tok)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	ok, err := f.creds.ValidateSessionToken(ctx, b1.Token)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err = f.creds.ExpireAllSessionTokens(ctx, alice, testIP)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCheckSessionToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "pw")
	f.register(t, "bob", "pw")

	tok, err := f.creds.CreateSessionToken(ctx, alice)
	require.NoError(t, err)

	assert.NoError(t, f.creds.CheckSessionToken(ctx, "alice", tok.Token))
	assert.ErrorIs(t, f.creds.CheckSessionToken(ctx, "bob", tok.Token), common.ErrorNotFound)
	assert.ErrorIs(t, f.creds.CheckSessionToken(ctx, "carol", tok.Token), common.ErrorNotFound)
	assert.ErrorIs(t, f.creds.CheckSessionToken(ctx, "alice", "missing"), common.ErrorNotFound)

	_, err = f.creds.ExpireAllSessionTokens(ctx, alice, testIP)
	require.NoError(t, err)
	assert.ErrorIs(t, f.creds.CheckSessionToken(ctx, "alice", tok.Token), common.ErrTokenExpired)
}

func TestExpireAllWebSessions_OnlyCurrentSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "pw")

	first, err := f.accounts.Login(ctx, "alice", "pw", testIP)
	require.NoError(t, err)
	second, err := f.accounts.Login(ctx, "alice", "pw", testIP)
	require.NoError(t, err)

	require.NoError(t, f.creds.ExpireAllWebSessions(ctx, alice, first.SessionKey))

	_, _, err = f.accounts.ResolveWebSession(ctx, first.Token)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	got, _, err := f.accounts.ResolveWebSession(ctx, second.Token)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
}
