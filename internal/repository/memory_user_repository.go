package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/user-service/internal/domain"
)

// MemoryUserRepository is an in-process UserRepository enforcing the same
// uniqueness rules as the users table. It backs tests and local runs without Postgres.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
	now   func() time.Time
}

// NewMemoryUserRepository returns an empty repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]domain.User), now: time.Now}
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *MemoryUserRepository) ExistsWithUsername(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conflict("", username, "") != nil, nil
}

func (r *MemoryUserRepository) ExistsWithEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conflict("", "", email) != nil, nil
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.conflict("", user.Username, user.Email); err != nil {
		return err
	}
	now := r.now()
	user.ID = uuid.NewString()
	user.DateJoined = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) Update(_ context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	patch.Apply(&u)
	if err := r.conflict(id, u.Username, u.Email); err != nil {
		return nil, err
	}
	u.UpdatedAt = r.now()
	r.users[id] = u
	return &u, nil
}

func (r *MemoryUserRepository) Save(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	if err := r.conflict(user.ID, user.Username, user.Email); err != nil {
		return err
	}
	user.UpdatedAt = r.now()
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.LastLogin = &at
	r.users[id] = u
	return nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return false, nil
	}
	delete(r.users, id)
	return true, nil
}

func (r *MemoryUserRepository) List(_ context.Context, filter UserFilter) ([]domain.User, int, error) {
	filter = filter.Normalize()
	r.mu.RLock()
	all := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, u)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].DateJoined.Equal(all[j].DateJoined) {
			return all[i].DateJoined.Before(all[j].DateJoined)
		}
		return all[i].Username < all[j].Username
	})

	total := len(all)
	if filter.Offset >= total {
		return []domain.User{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return all[filter.Offset:end], total, nil
}

// conflict reports which unique constraint another user (not exceptID) already holds.
// Empty arguments are not matched.
func (r *MemoryUserRepository) conflict(exceptID, username, email string) error {
	for id, u := range r.users {
		if id == exceptID {
			continue
		}
		if username != "" && u.Username == username {
			return fmt.Errorf("%w: users_username_key", domain.ErrUniqueViolation)
		}
		if email != "" && u.Email == email {
			return fmt.Errorf("%w: users_email_key", domain.ErrUniqueViolation)
		}
	}
	return nil
}
