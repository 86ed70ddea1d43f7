package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"pixelforge/internal/models"
	"pixelforge/internal/policy"
	"pixelforge/internal/repositories"
	"pixelforge/internal/utils"
)

const (
	minPasswordLength = 6
	msgInvalidEmail   = "Please provide a valid email address"
)

type UserService struct {
	users    UserStore
	projects ProjectStore
	recorder Recorder
}

func NewUserService(users UserStore, projects ProjectStore, recorder Recorder) *UserService {
	return &UserService{
		users:    users,
		projects: projects,
		recorder: recorderOrNop(recorder),
	}
}

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`
}

// UpdateUserRequest represents the request body for updating a user.
// Only fields present in the body are changed.
type UpdateUserRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Role  *string `json:"role,omitempty"`
}

func roleError() error {
	return models.NewValidationError("Role must be one of: " + models.RoleList())
}

// Validate checks the fields in the order clients see the messages.
func (r CreateUserRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" || models.NormalizeEmail(r.Email) == "" || r.Password == "" {
		return models.NewValidationError("Name, email, and password are required")
	}
	if len(r.Password) < minPasswordLength {
		return models.NewValidationError(fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}
	if r.Role != "" {
		if _, ok := models.ParseRole(r.Role); !ok {
			return roleError()
		}
	}
	if !utils.ValidEmail(models.NormalizeEmail(r.Email)) {
		return models.NewValidationError(msgInvalidEmail)
	}
	return nil
}

// ListUsers returns all users, newest first.
func (s *UserService) ListUsers(ctx context.Context, caller policy.Caller) ([]models.User, error) {
	if err := authorize(s.recorder, policy.ManageUsers, caller, nil); err != nil {
		return nil, err
	}
	return s.users.FindAll(ctx)
}

// ListDevelopers returns Developer users sorted by name.
func (s *UserService) ListDevelopers(ctx context.Context, caller policy.Caller) ([]models.User, error) {
	if err := authorize(s.recorder, policy.ListDevelopers, caller, nil); err != nil {
		return nil, err
	}
	return s.users.FindByRole(ctx, models.RoleDeveloper)
}

func (s *UserService) CreateUser(ctx context.Context, caller policy.Caller, req CreateUserRequest) (*models.User, error) {
	if err := authorize(s.recorder, policy.ManageUsers, caller, nil); err != nil {
		return nil, err
	}

	// 1. Validate input
	if err := req.Validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	email := models.NormalizeEmail(req.Email)
	role := models.RoleDeveloper
	if req.Role != "" {
		role, _ = models.ParseRole(req.Role)
	}

	// 2. Check if it already exists
	existing, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("User with this email already exists")
	}

	// 3. Hash password and save
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, models.NewConflictError("User with this email already exists")
		}
		return nil, err
	}

	slog.InfoContext(ctx, "user created",
		slog.String("user_id", user.ID.Hex()),
		slog.String("role", string(user.Role)),
		slog.String("by", caller.ID.Hex()),
	)
	return user, nil
}

// UpdateUser applies a partial update. Role changes keep at least one Admin, never let an
// admin demote themself, and never leave a project lead without the right to lead.
func (s *UserService) UpdateUser(ctx context.Context, caller policy.Caller, id string, req UpdateUserRequest) (*models.User, error) {
	if err := authorize(s.recorder, policy.ManageUsers, caller, nil); err != nil {
		return nil, err
	}

	userID, err := parseID(id, "Invalid user ID format")
	if err != nil {
		return nil, err
	}

	var upd models.UserUpdate
	if req.Role != nil {
		r, ok := models.ParseRole(*req.Role)
		if !ok {
			return nil, roleError()
		}
		upd.Role = &r
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, models.NewValidationError("Name cannot be empty")
		}
		upd.Name = &name
	}
	if req.Email != nil {
		email := models.NormalizeEmail(*req.Email)
		if email == "" {
			return nil, models.NewValidationError("Email cannot be empty")
		}
		if !utils.ValidEmail(email) {
			return nil, models.NewValidationError(msgInvalidEmail)
		}
		upd.Email = &email
	}

	target, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, models.NewNotFoundError("User not found")
	}
	if upd.Empty() {
		return target, nil
	}

	roleChanges := upd.Role != nil && *upd.Role != target.Role
	if roleChanges {
		if target.ID == caller.ID && target.Role == models.RoleAdmin {
			return nil, models.NewForbiddenError("Cannot change your own admin role")
		}
		if target.Role == models.RoleAdmin {
			admins, err := s.users.CountByRole(ctx, models.RoleAdmin)
			if err != nil {
				return nil, err
			}
			if admins <= 1 {
				return nil, models.NewForbiddenError("Cannot remove the last admin user")
			}
		}
		if !upd.Role.CanLead() {
			led, err := s.projects.Count(ctx, models.ProjectFilter{LeadID: &target.ID})
			if err != nil {
				return nil, err
			}
			if led > 0 {
				return nil, models.NewConflictError("Cannot change role to Developer while the user leads projects")
			}
		}
	}

	updated, err := s.users.Update(ctx, target.ID, upd)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, models.NewConflictError("User with this email already exists")
		}
		return nil, err
	}
	if updated == nil {
		return nil, models.NewNotFoundError("User not found")
	}

	if roleChanges && target.Role == models.RoleDeveloper {
		if err := s.unassignEverywhere(ctx, target); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

// DeleteUser removes a user. Admins cannot delete themselves or the last admin, and users
// who still lead projects must be replaced as lead first.
func (s *UserService) DeleteUser(ctx context.Context, caller policy.Caller, id string) error {
	if err := authorize(s.recorder, policy.ManageUsers, caller, nil); err != nil {
		return err
	}

	userID, err := parseID(id, "Invalid user ID format")
	if err != nil {
		return err
	}
	if userID == caller.ID {
		return models.NewForbiddenError("Cannot delete your own account")
	}

	target, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if target == nil {
		return models.NewNotFoundError("User not found")
	}

	if target.Role == models.RoleAdmin {
		admins, err := s.users.CountByRole(ctx, models.RoleAdmin)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return models.NewForbiddenError("Cannot delete the last admin user")
		}
	}

	led, err := s.projects.Count(ctx, models.ProjectFilter{LeadID: &target.ID})
	if err != nil {
		return err
	}
	if led > 0 {
		return models.NewConflictError("Cannot delete a user who leads projects")
	}

	deleted, err := s.users.Delete(ctx, target.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return models.NewNotFoundError("User not found")
	}

	if target.Role == models.RoleDeveloper {
		return s.unassignEverywhere(ctx, target)
	}
	return nil
}

func (s *UserService) unassignEverywhere(ctx context.Context, user *models.User) error {
	n, err := s.projects.RemoveDeveloperEverywhere(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("unassign developer %s: %w", user.ID.Hex(), err)
	}
	if n > 0 {
		slog.InfoContext(ctx, "developer unassigned from projects",
			slog.String("user_id", user.ID.Hex()),
			slog.Int64("projects", n),
		)
	}
	return nil
}

// SeedAdmin creates an Admin with the given credentials unless a user with that email
// exists. It reports whether a user was created.
func (s *UserService) SeedAdmin(ctx context.Context, name, email, password string) (*models.User, bool, error) {
	existing, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	if len(password) < minPasswordLength {
		return nil, false, fmt.Errorf("seed admin password must be at least %d characters", minPasswordLength)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{Name: name, Email: email, PasswordHash: hash, Role: models.RoleAdmin}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			existing, ferr := s.users.FindUserByEmail(ctx, email)
			return existing, false, ferr
		}
		return nil, false, err
	}
	return user, true, nil
}
