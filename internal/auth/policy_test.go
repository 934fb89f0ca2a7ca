package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/user-service/internal/domain"
)

type stubFinder struct {
	users map[string]*domain.User
}

func (s *stubFinder) FindByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := s.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, domain.ErrUserNotFound
}

var (
	adminUser = &domain.User{ID: "u1", Username: "admin", IsStaff: true}
	bobUser   = &domain.User{ID: "u2", Username: "bob"}
)

func newFixture(t *testing.T) (*TokenManager, *Authenticator) {
	t.Helper()
	tm := NewTokenManager("secret")
	finder := &stubFinder{users: map[string]*domain.User{
		adminUser.ID: adminUser,
		bobUser.ID:   bobUser,
	}}
	return tm, NewAuthenticator(tm, finder, nil)
}

func accessToken(t *testing.T, tm *TokenManager, u *domain.User) string {
	t.Helper()
	pair, err := tm.Issue(u)
	require.NoError(t, err)
	return pair.AccessToken
}

func TestAuthenticateResolvesIdentity(t *testing.T) {
	tm, authn := newFixture(t)

	user := authn.Authenticate(context.Background(), accessToken(t, tm, adminUser))
	require.NotNil(t, user)
	assert.Equal(t, "u1", user.ID)
	assert.True(t, user.IsAdmin())
}

func TestAuthenticateRejectsRefreshToken(t *testing.T) {
	tm, authn := newFixture(t)
	pair, err := tm.Issue(bobUser)
	require.NoError(t, err)

	assert.Nil(t, authn.Authenticate(context.Background(), pair.RefreshToken))
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	issued := time.Now().Add(-time.Hour)
	old := NewTokenManager("secret", WithClock(fixedClock(issued)))
	pair, err := old.Issue(bobUser)
	require.NoError(t, err)

	_, authn := newFixture(t)
	assert.Nil(t, authn.Authenticate(context.Background(), pair.AccessToken))
}

func TestAuthenticateUnknownSubject(t *testing.T) {
	tm, authn := newFixture(t)
	token := accessToken(t, tm, &domain.User{ID: "ghost"})

	assert.Nil(t, authn.Authenticate(context.Background(), token))
}

func TestAuthenticateGarbage(t *testing.T) {
	_, authn := newFixture(t)

	assert.Nil(t, authn.Authenticate(context.Background(), ""))
	assert.Nil(t, authn.Authenticate(context.Background(), "garbage"))
	assert.Nil(t, authn.Authenticate(context.Background(), accessToken(t, NewTokenManager("forged"), bobUser)))
}

func TestAdminOnly(t *testing.T) {
	tm, authn := newFixture(t)
	policy := AdminOnly(authn)

	user, decision := policy.Authorize(context.Background(), Request{Path: "/api/v1/users", Token: accessToken(t, tm, adminUser)})
	assert.Equal(t, Allow, decision)
	assert.Equal(t, "u1", user.ID)

	user, decision = policy.Authorize(context.Background(), Request{Path: "/api/v1/users", Token: accessToken(t, tm, bobUser)})
	assert.Equal(t, Deny, decision)
	assert.Nil(t, user)

	_, decision = policy.Authorize(context.Background(), Request{Path: "/api/v1/users"})
	assert.Equal(t, Deny, decision)
}

func TestOwnerOrAdmin(t *testing.T) {
	tm, authn := newFixture(t)
	policy := OwnerOrAdmin(authn)
	admin := accessToken(t, tm, adminUser)
	bob := accessToken(t, tm, bobUser)

	cases := []struct {
		name  string
		token string
		path  string
		want  Decision
	}{
		{"admin any id", admin, "/api/v1/users/u2", Allow},
		{"admin trailing slash", admin, "/api/v1/users/", Allow},
		{"owner by id", bob, "/api/v1/users/u2", Allow},
		{"owner by username", bob, "/api/v1/users/username/bob", Allow},
		{"other user", bob, "/api/v1/users/u3", Deny},
		{"case sensitive username", bob, "/api/v1/users/username/Bob", Deny},
		{"empty target", bob, "/api/v1/users/", Deny},
		{"no token", "", "/api/v1/users/u2", Deny},
		{"refresh token", mustRefresh(t, tm, bobUser), "/api/v1/users/u2", Deny},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, decision := policy.Authorize(context.Background(), Request{Path: tc.path, Token: tc.token})
			assert.Equal(t, tc.want, decision)
		})
	}
}

func mustRefresh(t *testing.T, tm *TokenManager, u *domain.User) string {
	t.Helper()
	pair, err := tm.Issue(u)
	require.NoError(t, err)
	return pair.RefreshToken
}

func TestTargetFromPath(t *testing.T) {
	assert.Equal(t, "u2", TargetFromPath("/users/u2"))
	assert.Equal(t, "bob", TargetFromPath("/users/username/bob"))
	assert.Equal(t, "", TargetFromPath("/users/"))
	assert.Equal(t, "users", TargetFromPath("users"))
}
