package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/user-service/internal/api/dto"
	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/repository"
	"github.com/spec-kit/user-service/internal/service"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

// UsersHandler exposes user account endpoints.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// List handles GET /users. The id and username query parameters narrow the result to one user.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	if raw := c.Query("id"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return err
		}
		user, err := h.users.GetByID(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(singlePage(user))
	}
	if username := c.Query("username"); username != "" {
		user, err := h.users.GetByUsername(c.UserContext(), username)
		if err != nil {
			return err
		}
		return c.JSON(singlePage(user))
	}

	page, err := h.users.List(c.UserContext(), repository.UserFilter{
		Limit:  c.QueryInt("limit", 100),
		Offset: c.QueryInt("offset", 0),
	})
	if err != nil {
		return err
	}

	items := make([]dto.UserResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, dto.NewUserResponse(&page.Items[i]))
	}
	return c.JSON(dto.UserListResponse{Items: items, Count: page.Count})
}

// Get handles GET /users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}
	user, err := h.users.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// GetByUsername handles GET /users/username/:username.
func (h *UsersHandler) GetByUsername(c *fiber.Ctx) error {
	user, err := h.users.GetByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Create handles POST /users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.UserCreateRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.users.Create(c.UserContext(), service.CreateUserInput{
		Username:  req.Username,
		FirstName: *req.FirstName,
		LastName:  *req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewUserResponse(user))
}

// Patch handles PATCH /users/:id.
func (h *UsersHandler) Patch(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}
	var req dto.UserPatchRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.users.Patch(c.UserContext(), actor(c), id, req.Patch())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Delete handles DELETE /users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}
	if err := h.users.Delete(c.UserContext(), actor(c), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func parseID(raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperrors.NewValidationError("id must be a valid UUID", map[string]any{"id": raw})
	}
	return id.String(), nil
}

func actor(c *fiber.Ctx) *domain.User {
	user, _ := auth.IdentityFromContext(c)
	return user
}

func singlePage(user *domain.User) dto.UserListResponse {
	return dto.UserListResponse{Items: []dto.UserResponse{dto.NewUserResponse(user)}, Count: 1}
}
