package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

// UserService implements user account CRUD on top of the persistence provider.
type UserService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	now        func() time.Time
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	BcryptCost int
}

// CreateUserInput describes a new account.
type CreateUserInput struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// UserPage is one page of a user listing.
type UserPage struct {
	Items []domain.User
	Count int
}

// NewUserService builds the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.Nop{}
	}
	return &UserService{
		users:      deps.UserRepo,
		dispatcher: dispatcher,
		logger:     logger,
		bcryptCost: deps.BcryptCost,
		now:        time.Now,
	}
}

// List returns a page of users.
func (s *UserService) List(ctx context.Context, filter repository.UserFilter) (*UserPage, error) {
	items, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &UserPage{Items: items, Count: total}, nil
}

// GetByID fetches a user by id.
func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(err, zap.String("id", id))
	}
	return user, nil
}

// GetByUsername fetches a user by username.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, s.lookupError(err, zap.String("username", username))
	}
	return user, nil
}

// Create registers a new, inactive account.
// Username and email uniqueness is pre-checked; a unique violation from storage maps to the same conflict.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	taken, err := s.users.ExistsWithUsername(ctx, in.Username)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if taken {
		s.logger.Warn("attempt to create user with existing username", zap.String("username", in.Username))
		return nil, apperrors.NewConflict("Username already exists")
	}

	taken, err = s.users.ExistsWithEmail(ctx, in.Email)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if taken {
		s.logger.Warn("attempt to create user with existing email", zap.String("email", in.Email))
		return nil, apperrors.NewConflict("Email already exists")
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		IsActive:     false,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUniqueViolation) {
			s.logger.Warn("unique violation on user insert", zap.String("username", in.Username), zap.Error(err))
			return nil, apperrors.NewConflict(conflictMessage(err))
		}
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("user created", zap.String("username", user.Username), zap.String("id", user.ID))
	s.publish(ctx, events.Event{Type: events.EventUserCreated, UserID: user.ID})
	return user, nil
}

// Patch applies the fields set on patch and leaves the rest untouched.
func (s *UserService) Patch(ctx context.Context, actor *domain.User, id string, patch domain.UserPatch) (*domain.User, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}

	user, err := s.users.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, domain.ErrUniqueViolation) {
			return nil, apperrors.NewConflict(conflictMessage(err))
		}
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, apperrors.NewNotFound("User")
		}
		return nil, apperrors.MapError(err)
	}

	fields := patch.Fields()
	s.logger.Info("user updated",
		zap.String("id", id),
		zap.String("by", actorName(actor)),
		zap.Strings("fields", fields))
	s.publish(ctx, events.Event{
		Type:    events.EventUserUpdated,
		UserID:  id,
		ActorID: actorID(actor),
		Payload: events.UserUpdatedPayload{Fields: fields},
	})
	return user, nil
}

// Delete removes a user. Deleting an absent user is not found.
func (s *UserService) Delete(ctx context.Context, actor *domain.User, id string) error {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := s.users.Delete(ctx, id)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !deleted {
		return apperrors.NewNotFound("User")
	}

	s.logger.Info("user deleted",
		zap.String("username", user.Username),
		zap.String("id", id),
		zap.String("by", actorName(actor)))
	s.publish(ctx, events.Event{Type: events.EventUserDeleted, UserID: id, ActorID: actorID(actor)})
	return nil
}

func (s *UserService) lookupError(err error, field zap.Field) error {
	if errors.Is(err, domain.ErrUserNotFound) {
		s.logger.Warn("attempt to retrieve non-existent user", field)
		return apperrors.NewNotFound("User")
	}
	return apperrors.MapError(err)
}

func (s *UserService) publish(ctx context.Context, event events.Event) {
	event.Timestamp = s.now()
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}

func conflictMessage(err error) string {
	if strings.Contains(err.Error(), "email") {
		return "Email already exists"
	}
	if strings.Contains(err.Error(), "username") {
		return "Username already exists"
	}
	return "User already exists"
}

func actorName(actor *domain.User) string {
	if actor == nil {
		return "anonymous"
	}
	return actor.Username
}

func actorID(actor *domain.User) string {
	if actor == nil {
		return ""
	}
	return actor.ID
}
