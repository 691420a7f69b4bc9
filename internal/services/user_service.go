package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/taskhive/taskhive/internal/cache"
	"github.com/taskhive/taskhive/internal/models"
	"github.com/taskhive/taskhive/pkg/crypto"
	apperrors "github.com/taskhive/taskhive/pkg/errors"
)

// CreateUserInput describes the fields accepted when creating a user.
type CreateUserInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// UpdateUserInput enumerates mutable user attributes.
type UpdateUserInput struct {
	Username *string
	Email    *string
	Password *string
}

// UserService manages the user lifecycle. Single-entity reads are served
// through the read-through cache; uniqueness of username and email is
// enforced by storage-level constraints and surfaced as Conflict.
type UserService struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, userCache *cache.Cache) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db, cache: userCache}, nil
}

// Create provisions a new user with a hashed password. The role defaults to
// the standard user role when unset.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" {
		return nil, apperrors.NewBadRequest("username is required")
	}
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.NewBadRequest("password is required")
	}

	role := strings.TrimSpace(input.Role)
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, apperrors.NewBadRequest("unknown role")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: hashed,
		Role:     role,
	}

	// No read-then-insert pre-check: the unique indexes decide, and their
	// violation maps to Conflict.
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("username or email already in use")
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	return user, nil
}

// Get returns a user by id, consulting the cache before authoritative storage.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}

	key := cache.Key("user", id)

	var cached models.User
	if s.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}

	s.cache.SetJSON(ctx, key, user, cache.DefaultTTL)
	return &user, nil
}

// GetByIdentifier loads a user by username or email from authoritative
// storage. Used by the login flow, which must never trust a cached credential.
func (s *UserService) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	ctx = ensureContext(ctx)

	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, apperrors.NewBadRequest("identifier is required")
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, strings.ToLower(identifier)).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user by identifier: %w", err)
	}

	return &user, nil
}

// List returns all users ordered by creation time.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	ctx = ensureContext(ctx)

	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("user service: list users: %w", err)
	}

	return users, nil
}

// Update applies a partial change to a user and invalidates its cache entry.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}

	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return nil, apperrors.NewBadRequest("username cannot be empty")
		}
		user.Username = username
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email == "" {
			return nil, apperrors.NewBadRequest("email cannot be empty")
		}
		user.Email = email
	}
	if input.Password != nil {
		if strings.TrimSpace(*input.Password) == "" {
			return nil, apperrors.NewBadRequest("password cannot be empty")
		}
		hashed, err := crypto.HashPassword(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("user service: hash password: %w", err)
		}
		user.Password = hashed
	}

	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("username or email already in use")
		}
		return nil, fmt.Errorf("user service: update user: %w", err)
	}

	s.cache.Delete(ctx, cache.Key("user", user.ID))
	return &user, nil
}

// Delete removes a user permanently. Their tasks and audit trail go with them
// via storage-level cascade, mirroring a hard account removal.
func (s *UserService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	id = strings.TrimSpace(id)
	if id == "" {
		return apperrors.NewBadRequest("user id is required")
	}

	result := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("user service: delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFound("user", id)
	}

	s.cache.Delete(ctx, cache.Key("user", id), cache.Key("user-tasks", id))
	return nil
}
