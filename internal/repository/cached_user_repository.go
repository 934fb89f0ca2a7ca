package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/domain"
)

const userCachePrefix = "user:id:"

// IdentityReader resolves a token subject to a user for request authentication.
type IdentityReader interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// cachedIdentity is the Redis representation of an identity. It never holds credentials.
type cachedIdentity struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	IsStaff     bool       `json:"is_staff"`
	IsSuperuser bool       `json:"is_superuser"`
	IsActive    bool       `json:"is_active"`
	DateJoined  time.Time  `json:"date_joined"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CachedUserRepository wraps a UserRepository with a Redis identity cache.
// Only Identities reads from the cache; every write through the repository evicts.
type CachedUserRepository struct {
	UserRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedUserRepository wraps base. Caching is off when client is nil or ttl is not positive.
func NewCachedUserRepository(base UserRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedUserRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedUserRepository{UserRepository: base, client: client, ttl: ttl, logger: logger}
}

// Enabled reports whether identities are served from Redis.
func (r *CachedUserRepository) Enabled() bool {
	return r.client != nil && r.ttl > 0
}

// Identities returns the cached read path used by the authenticator.
// Users it returns carry no password hash.
func (r *CachedUserRepository) Identities() IdentityReader {
	return identityView{repo: r}
}

func (r *CachedUserRepository) Update(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	defer r.evict(ctx, id)
	return r.UserRepository.Update(ctx, id, patch)
}

func (r *CachedUserRepository) Save(ctx context.Context, user *domain.User) error {
	defer r.evict(ctx, user.ID)
	return r.UserRepository.Save(ctx, user)
}

func (r *CachedUserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	defer r.evict(ctx, id)
	return r.UserRepository.TouchLastLogin(ctx, id, at)
}

func (r *CachedUserRepository) Delete(ctx context.Context, id string) (bool, error) {
	defer r.evict(ctx, id)
	return r.UserRepository.Delete(ctx, id)
}

func (r *CachedUserRepository) load(ctx context.Context, id string) (*domain.User, bool) {
	raw, err := r.client.Get(ctx, userCachePrefix+id).Bytes()
	switch {
	case err == nil:
		var ci cachedIdentity
		if jsonErr := json.Unmarshal(raw, &ci); jsonErr == nil {
			return ci.toDomain(), true
		}
		r.logger.Warn("discarding undecodable cache entry", zap.String("user_id", id))
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("identity cache read failed", zap.String("user_id", id), zap.Error(err))
	}
	return nil, false
}

func (r *CachedUserRepository) store(ctx context.Context, ci cachedIdentity) {
	raw, err := json.Marshal(ci)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, userCachePrefix+ci.ID, raw, r.ttl).Err(); err != nil {
		r.logger.Warn("identity cache write failed", zap.String("user_id", ci.ID), zap.Error(err))
	}
}

func (r *CachedUserRepository) evict(ctx context.Context, id string) {
	if !r.Enabled() {
		return
	}
	if err := r.client.Del(ctx, userCachePrefix+id).Err(); err != nil {
		r.logger.Warn("identity cache evict failed", zap.String("user_id", id), zap.Error(err))
	}
}

type identityView struct {
	repo *CachedUserRepository
}

func (v identityView) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if v.repo.Enabled() {
		if user, ok := v.repo.load(ctx, id); ok {
			return user, nil
		}
	}

	user, err := v.repo.UserRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ci := identityOf(user)
	if v.repo.Enabled() {
		v.repo.store(ctx, ci)
	}
	return ci.toDomain(), nil
}

func identityOf(u *domain.User) cachedIdentity {
	return cachedIdentity{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		IsActive:    u.IsActive,
		DateJoined:  u.DateJoined,
		LastLogin:   u.LastLogin,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c cachedIdentity) toDomain() *domain.User {
	return &domain.User{
		ID:          c.ID,
		Username:    c.Username,
		Email:       c.Email,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		IsStaff:     c.IsStaff,
		IsSuperuser: c.IsSuperuser,
		IsActive:    c.IsActive,
		DateJoined:  c.DateJoined,
		LastLogin:   c.LastLogin,
		UpdatedAt:   c.UpdatedAt,
	}
}
