package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/marketlist/internal/client/apitest"
	"github.com/dmitrijs2005/marketlist/internal/clock"
)

type fakeStore struct {
	token      string
	loadErr    error
	clearErr   error
	clearCalls int
	loadCalls  int
}

func (f *fakeStore) Load(context.Context) (string, error) {
	f.loadCalls++
	return f.token, f.loadErr
}

func (f *fakeStore) Clear(context.Context) error {
	f.clearCalls++
	if f.clearErr != nil {
		return f.clearErr
	}
	f.token = ""
	return nil
}

var now = time.Unix(1_800_000_000, 0).UTC()

func mint(t *testing.T, userID int64, exp time.Time) string {
	t.Helper()
	tok, err := apitest.MintToken([]byte("any-key"), userID, exp)
	require.NoError(t, err)
	return tok
}

func newGuard(store *fakeStore) *Guard {
	return NewGuard(store, &clock.Fixed{T: now}, nil)
}

func TestCurrentIdentity_ValidToken_ReturnsSubjectUnchanged(t *testing.T) {
	for _, uid := range []int64{1, 7, 1 << 40} {
		store := &fakeStore{token: mint(t, uid, now.Add(time.Hour))}

		id, err := newGuard(store).CurrentIdentity(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uid, id.SubjectID)
		assert.True(t, id.ExpiresAt.Equal(now.Add(time.Hour)))
		assert.Zero(t, store.clearCalls)
	}
}

func TestCurrentIdentity_ExpiredToken_ClearsStore(t *testing.T) {
	for _, exp := range []time.Time{now, now.Add(-time.Second), now.Add(-72 * time.Hour)} {
		store := &fakeStore{token: mint(t, 7, exp)}

		_, err := newGuard(store).CurrentIdentity(context.Background())
		require.ErrorIs(t, err, ErrTokenExpired)
		require.ErrorIs(t, err, ErrInvalidSession)
		assert.Equal(t, 1, store.clearCalls)
		assert.Empty(t, store.token)
	}
}

func TestSession_ExpiredState(t *testing.T) {
	store := &fakeStore{token: mint(t, 7, now.Add(-time.Minute))}

	s, err := newGuard(store).Session(context.Background())
	require.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, StateExpired, s.State)
	assert.Empty(t, s.Token)
	assert.Zero(t, s.Identity)
}

func TestSession_ExpiredToken_ClearFailureStillInvalid(t *testing.T) {
	store := &fakeStore{token: mint(t, 7, now.Add(-time.Minute)), clearErr: errors.New("disk full")}

	_, err := newGuard(store).Session(context.Background())
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestSession_Active(t *testing.T) {
	tok := mint(t, 7, now.Add(time.Hour))
	store := &fakeStore{token: tok}

	s, err := newGuard(store).Session(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Active())
	assert.Equal(t, tok, s.Token)
	assert.Equal(t, int64(7), s.Identity.SubjectID)
}

func TestSession_NoToken(t *testing.T) {
	s, err := newGuard(&fakeStore{}).Session(context.Background())
	require.ErrorIs(t, err, ErrNoToken)
	assert.Equal(t, StateNone, s.State)
	assert.False(t, s.Active())
}

func TestSession_LoadError(t *testing.T) {
	boom := errors.New("io")
	_, err := newGuard(&fakeStore{loadErr: boom}).Session(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestCurrentIdentity_Malformed_DoesNotClear(t *testing.T) {
	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 7}).SignedString([]byte("k"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "garbage"},
		{"three parts not base64", "a.b.c"},
		{"missing user_id", noUser},
		{"missing exp", noExp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{token: tt.token}
			_, err := newGuard(store).CurrentIdentity(context.Background())
			require.ErrorIs(t, err, ErrMalformedToken)
			assert.Zero(t, store.clearCalls)
		})
	}
}

func TestAllowed_EveryNavigationRechecks(t *testing.T) {
	clk := &clock.Fixed{T: now}
	store := &fakeStore{token: mint(t, 7, now.Add(time.Minute))}
	g := NewGuard(store, clk, nil)
	ctx := context.Background()

	assert.Equal(t, RouteList, g.Allowed(ctx, RouteList))
	assert.Equal(t, RouteList, g.Allowed(ctx, RouteLogin))

	clk.Advance(2 * time.Minute)
	assert.Equal(t, RouteLogin, g.Allowed(ctx, RouteList))
	assert.Empty(t, store.token, "expired token evicted on navigation")

	store.token = mint(t, 7, now.Add(time.Hour))
	assert.Equal(t, RouteList, g.Allowed(ctx, RouteList))

	// logout then "back" to the list
	require.NoError(t, store.Clear(ctx))
	assert.Equal(t, RouteLogin, g.Allowed(ctx, RouteList))
	assert.Equal(t, 5, store.loadCalls)
}

func TestDecode(t *testing.T) {
	id, err := Decode(mint(t, 42, now))
	require.NoError(t, err)
	assert.Equal(t, int64(42), id.SubjectID)
	assert.True(t, id.ExpiresAt.Equal(now))

	_, err = Decode("")
	require.ErrorIs(t, err, ErrMalformedToken)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "none", StateNone.String())
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "expired", StateExpired.String())
}
