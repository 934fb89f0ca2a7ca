package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

func strPtr(s string) *string { return &s }

func newUserService(t *testing.T) (*UserService, *repository.MemoryUserRepository, events.Dispatcher) {
	t.Helper()
	repo := repository.NewMemoryUserRepository()
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewUserService(UserDependencies{UserRepo: repo, Dispatcher: dispatcher, BcryptCost: bcrypt.MinCost})
	return svc, repo, dispatcher
}

func adminInput() CreateUserInput {
	return CreateUserInput{
		Username:  "admin",
		FirstName: "Admin",
		LastName:  "Admin",
		Email:     "admin@admin.com",
		Password:  "myadminpassword",
	}
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de), "expected DomainError, got %v", err)
	return de.HTTPStatus
}

func TestCreateUser(t *testing.T) {
	svc, _, dispatcher := newUserService(t)
	var created []string
	dispatcher.Subscribe(events.EventUserCreated, func(_ context.Context, e events.Event) error {
		created = append(created, e.UserID)
		return nil
	})

	user, err := svc.Create(context.Background(), adminInput())
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.False(t, user.IsActive)
	assert.False(t, user.IsStaff)
	assert.NoError(t, auth.ComparePassword(user.PasswordHash, "myadminpassword"))
	assert.Equal(t, []string{user.ID}, created)
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	svc, repo, _ := newUserService(t)
	_, err := svc.Create(context.Background(), adminInput())
	require.NoError(t, err)

	in := adminInput()
	in.Email = "admin1@admin.com"
	_, err = svc.Create(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, statusOf(t, err))
	assert.Contains(t, err.Error(), "Username already exists")

	_, total, err := repo.List(context.Background(), repository.UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc, _, _ := newUserService(t)
	_, err := svc.Create(context.Background(), adminInput())
	require.NoError(t, err)

	in := adminInput()
	in.Username = "admin1"
	_, err = svc.Create(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, statusOf(t, err))
	assert.Contains(t, err.Error(), "Email already exists")
}

// racingRepo passes the uniqueness pre-check but loses the insert.
type racingRepo struct {
	*repository.MemoryUserRepository
}

func (racingRepo) ExistsWithUsername(context.Context, string) (bool, error) { return false, nil }
func (racingRepo) ExistsWithEmail(context.Context, string) (bool, error) { return false, nil }
func (racingRepo) Create(context.Context, *domain.User) error {
	return fmt.Errorf("%w: users_username_key", domain.ErrUniqueViolation)
}

func TestCreateUserUniqueViolationFallback(t *testing.T) {
	svc := NewUserService(UserDependencies{
		UserRepo:   racingRepo{repository.NewMemoryUserRepository()},
		BcryptCost: bcrypt.MinCost,
	})

	_, err := svc.Create(context.Background(), adminInput())
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, statusOf(t, err))
	assert.Contains(t, err.Error(), "Username already exists")
}

func TestGetUser(t *testing.T) {
	svc, _, _ := newUserService(t)
	user, err := svc.Create(context.Background(), adminInput())
	require.NoError(t, err)

	byID, err := svc.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", byID.Username)

	byName, err := svc.GetByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	_, err = svc.GetByID(context.Background(), "missing")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
	_, err = svc.GetByUsername(context.Background(), "missing")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestPatchUserExcludesUnset(t *testing.T) {
	svc, _, dispatcher := newUserService(t)
	var fields []string
	dispatcher.Subscribe(events.EventUserUpdated, func(_ context.Context, e events.Event) error {
		fields = e.Payload.(events.UserUpdatedPayload).Fields
		return nil
	})
	user, err := svc.Create(context.Background(), adminInput())
	require.NoError(t, err)

	updated, err := svc.Patch(context.Background(), user, user.ID, domain.UserPatch{
		FirstName: strPtr("NewName"),
		Email:     strPtr("newemail@admin.com"),
	})
	require.NoError(t, err)

	assert.Equal(t, "NewName", updated.FirstName)
	assert.Equal(t, "newemail@admin.com", updated.Email)
	assert.Equal(t, "Admin", updated.LastName)
	assert.Equal(t, "admin", updated.Username)
	assert.Equal(t, []string{"first_name", "email"}, fields)
}

func TestPatchUserEmptyStringIsApplied(t *testing.T) {
	svc, _, _ := newUserService(t)
	user, err := svc.Create(context.Background(), adminInput())
	require.NoError(t, err)

	updated, err := svc.Patch(context.Background(), user, user.ID, domain.UserPatch{LastName: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "", updated.LastName)
	assert.Equal(t, "Admin", updated.FirstName)
}

func TestPatchUserConflictAndMissing(t *testing.T) {
	svc, _, _ := newUserService(t)
	_, err := svc.Create(context.Background(), adminInput())
	require.NoError(t, err)
	in := adminInput()
	in.Username, in.Email = "bob", "bob@example.com"
	bob, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	_, err = svc.Patch(context.Background(), bob, bob.ID, domain.UserPatch{Username: strPtr("admin")})
	assert.Equal(t, http.StatusConflict, statusOf(t, err))

	_, err = svc.Patch(context.Background(), bob, "missing", domain.UserPatch{Username: strPtr("x")})
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestDeleteUserTwice(t *testing.T) {
	svc, _, _ := newUserService(t)
	user, err := svc.Create(context.Background(), adminInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), user, user.ID))

	err = svc.Delete(context.Background(), user, user.ID)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestListUsers(t *testing.T) {
	svc, _, _ := newUserService(t)
	_, err := svc.Create(context.Background(), adminInput())
	require.NoError(t, err)

	page, err := svc.List(context.Background(), repository.UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Count)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "admin", page.Items[0].Username)
}
