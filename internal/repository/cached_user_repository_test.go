package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/user-service/internal/domain"
)

type countingRepo struct {
	*MemoryUserRepository
	findByID int
}

func (r *countingRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	r.findByID++
	return r.MemoryUserRepository.FindByID(ctx, id)
}

func newCachedFixture(t *testing.T) (*countingRepo, *CachedUserRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	base := &countingRepo{MemoryUserRepository: NewMemoryUserRepository()}
	return base, NewCachedUserRepository(base, client, time.Minute, nil), mr
}

func TestIdentitiesReadThrough(t *testing.T) {
	ctx := context.Background()
	base, cached, mr := newCachedFixture(t)
	u := &domain.User{Username: "bob", Email: "bob@example.com", IsStaff: true, PasswordHash: "hash"}
	require.NoError(t, base.Create(ctx, u))

	identities := cached.Identities()
	first, err := identities.FindByID(ctx, u.ID)
	require.NoError(t, err)
	second, err := identities.FindByID(ctx, u.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, base.findByID)
	assert.True(t, mr.Exists(userCachePrefix+u.ID))
	assert.Equal(t, first.Username, second.Username)
	assert.True(t, second.IsStaff)
	assert.Empty(t, first.PasswordHash)
	assert.Empty(t, second.PasswordHash)
}

func TestCachedEntryHoldsNoCredentials(t *testing.T) {
	ctx := context.Background()
	base, cached, mr := newCachedFixture(t)
	u := &domain.User{Username: "bob", Email: "bob@example.com", PasswordHash: "$2a$04$secrethash"}
	require.NoError(t, base.Create(ctx, u))

	_, err := cached.Identities().FindByID(ctx, u.ID)
	require.NoError(t, err)

	raw, err := mr.Get(userCachePrefix + u.ID)
	require.NoError(t, err)
	assert.Contains(t, raw, `"username":"bob"`)
	assert.NotContains(t, raw, "password")
	assert.NotContains(t, raw, "secrethash")
}

func TestRepositoryFindByIDBypassesCache(t *testing.T) {
	ctx := context.Background()
	base, cached, mr := newCachedFixture(t)
	u := &domain.User{Username: "bob", Email: "bob@example.com", PasswordHash: "hash"}
	require.NoError(t, base.Create(ctx, u))

	got, err := cached.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.False(t, mr.Exists(userCachePrefix+u.ID))

	// a full record read then saved keeps its hash
	require.NoError(t, cached.Save(ctx, got))
	stored, err := base.MemoryUserRepository.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash", stored.PasswordHash)
}

func TestCachedWritesEvict(t *testing.T) {
	ctx := context.Background()
	base, cached, mr := newCachedFixture(t)
	u := &domain.User{Username: "bob", Email: "bob@example.com"}
	require.NoError(t, base.Create(ctx, u))
	identities := cached.Identities()

	_, err := identities.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists(userCachePrefix+u.ID))

	_, err = cached.Update(ctx, u.ID, domain.UserPatch{Username: strPtr("robert")})
	require.NoError(t, err)
	assert.False(t, mr.Exists(userCachePrefix+u.ID))

	fresh, err := identities.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "robert", fresh.Username)

	deleted, err := cached.Delete(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, mr.Exists(userCachePrefix+u.ID))

	_, err = identities.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestIdentitiesFallBackWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	base, cached, mr := newCachedFixture(t)
	u := &domain.User{Username: "bob", Email: "bob@example.com"}
	require.NoError(t, base.Create(ctx, u))

	mr.Close()

	got, err := cached.Identities().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Username)
}

func TestCachedUserRepositoryDisabled(t *testing.T) {
	ctx := context.Background()
	base := NewMemoryUserRepository()
	cached := NewCachedUserRepository(base, nil, time.Minute, nil)
	assert.False(t, cached.Enabled())

	u := &domain.User{Username: "bob", Email: "bob@example.com", PasswordHash: "hash"}
	require.NoError(t, cached.Create(ctx, u))

	got, err := cached.Identities().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Username)
	assert.Empty(t, got.PasswordHash)

	deleted, err := cached.Delete(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
}
