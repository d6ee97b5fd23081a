package identity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campushub/pkg/interfaces"
	"campushub/pkg/types"
)

const testSecret = "test_secret"

type fakeStore struct {
	mu       sync.Mutex
	users    map[string]*types.User
	presence map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]*types.User),
		presence: make(map[string]string),
	}
}

func (s *fakeStore) GetUser(_ context.Context, userID string) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, exists := s.users[userID]
	if !exists {
		return nil, interfaces.ErrUserNotFound
	}
	return user, nil
}

func (s *fakeStore) SetPresence(_ context.Context, userID, status string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presence[userID] = status
	return nil
}

func (s *fakeStore) presenceOf(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presence[userID]
}

func signToken(t *testing.T, secret, userID string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &tokenClaims{
		ID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestResolver_ValidToken(t *testing.T) {
	store := newFakeStore()
	store.users["u42"] = &types.User{ID: "u42", Name: "Dana", Avatar: "D"}
	r := NewResolver(store, testSecret)

	token := signToken(t, testSecret, "u42", time.Now().Add(time.Hour))
	ident, err := r.Resolve(context.Background(), &types.LoginRequest{Token: token})

	require.NoError(t, err)
	assert.Equal(t, "u42", ident.UserID)
	assert.Equal(t, "Dana", ident.DisplayName)
	assert.Equal(t, "D", ident.AvatarLabel)
	assert.Equal(t, types.PresenceOnline, ident.Presence)
	assert.False(t, ident.Anonymous)

	// The online status write happens off the login path.
	assert.Eventually(t, func() bool {
		return store.presenceOf("u42") == types.PresenceOnline
	}, time.Second, 10*time.Millisecond)
}

func TestResolver_TokenIgnoresClientFields(t *testing.T) {
	store := newFakeStore()
	store.users["u42"] = &types.User{ID: "u42", Name: "Dana"}
	r := NewResolver(store, testSecret)

	token := signToken(t, testSecret, "u42", time.Now().Add(time.Hour))
	ident, err := r.Resolve(context.Background(), &types.LoginRequest{
		Token:    token,
		UserID:   "impostor",
		Username: "Impostor",
	})

	require.NoError(t, err)
	assert.Equal(t, "u42", ident.UserID, "the stored account wins over client fields")
	assert.Equal(t, "Dana", ident.DisplayName)
}

func TestResolver_ExpiredTokenFallsBack(t *testing.T) {
	store := newFakeStore()
	store.users["u42"] = &types.User{ID: "u42", Name: "Dana"}
	r := NewResolver(store, testSecret)

	token := signToken(t, testSecret, "u42", time.Now().Add(-time.Hour))
	ident, err := r.Resolve(context.Background(), &types.LoginRequest{
		Token:  token,
		UserID: "guest1",
	})

	require.NoError(t, err)
	assert.True(t, ident.Anonymous)
	assert.Equal(t, "guest1", ident.UserID)
}

func TestResolver_WrongSecretFallsBack(t *testing.T) {
	store := newFakeStore()
	r := NewResolver(store, testSecret)

	token := signToken(t, "other_secret", "u42", time.Now().Add(time.Hour))
	ident, err := r.Resolve(context.Background(), &types.LoginRequest{Token: token, UserID: "guest1"})

	require.NoError(t, err)
	assert.True(t, ident.Anonymous)
}

func TestResolver_GarbageTokenFallsBack(t *testing.T) {
	r := NewResolver(newFakeStore(), testSecret)

	ident, err := r.Resolve(context.Background(), &types.LoginRequest{Token: "not-a-jwt", UserID: "guest1"})

	require.NoError(t, err)
	assert.True(t, ident.Anonymous)
}

func TestResolver_UnknownAccountFallsBack(t *testing.T) {
	r := NewResolver(newFakeStore(), testSecret)

	token := signToken(t, testSecret, "ghost", time.Now().Add(time.Hour))
	ident, err := r.Resolve(context.Background(), &types.LoginRequest{Token: token, UserID: "guest1"})

	require.NoError(t, err)
	assert.True(t, ident.Anonymous, "a token for a deleted account degrades to anonymous")
}

func TestResolver_AnonymousLogin(t *testing.T) {
	r := NewResolver(newFakeStore(), testSecret)

	ident, err := r.Resolve(context.Background(), &types.LoginRequest{
		UserID:   "guest1",
		Username: "Guest One",
		Avatar:   "G",
	})

	require.NoError(t, err)
	assert.True(t, ident.Anonymous)
	assert.Equal(t, "guest1", ident.UserID)
	assert.Equal(t, "Guest One", ident.DisplayName)
	assert.Equal(t, "G", ident.AvatarLabel)
	assert.Equal(t, types.PresenceOnline, ident.Presence)
}

func TestResolver_AnonymousNameDefaultsToID(t *testing.T) {
	r := NewResolver(newFakeStore(), testSecret)

	ident, err := r.Resolve(context.Background(), &types.LoginRequest{UserID: "guest1"})

	require.NoError(t, err)
	assert.Equal(t, "guest1", ident.DisplayName)
}

func TestResolver_Unresolvable(t *testing.T) {
	r := NewResolver(newFakeStore(), testSecret)

	cases := []types.LoginRequest{
		{},
		{UserID: "has spaces"},
		{UserID: "bad!chars"},
	}
	for _, req := range cases {
		_, err := r.Resolve(context.Background(), &req)
		assert.ErrorIs(t, err, ErrUnresolvable, "request %+v", req)
	}
}
