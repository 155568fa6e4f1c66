package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sice-api/internal/models"
	"github.com/noah-isme/sice-api/internal/repository"
	appErrors "github.com/noah-isme/sice-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id string, changes models.UserChanges) (*models.User, error)
	Delete(ctx context.Context, id string) (*models.User, error)
	CountSubjects(ctx context.Context, userID string) (int, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// UserService manages administrator and teacher accounts.
type UserService struct {
	repo      userRepository
	hasher    *PasswordHasher
	validator *validator.Validate
	logger    *zap.Logger
	cache     statsInvalidator
}

func NewUserService(repo userRepository, hasher *PasswordHasher, validate *validator.Validate, logger *zap.Logger, cache statsInvalidator) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if hasher == nil {
		hasher = NewPasswordHasher(0)
	}
	return &UserService{repo: repo, hasher: hasher, validator: validate, logger: logger, cache: cache}
}

// List returns users with pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid role filter")
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list users")
	}
	return users, pagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a user. Non-admins may only read their own account.
func (s *UserService) Get(ctx context.Context, actor models.Actor, id string) (*models.User, error) {
	if !actor.IsAdmin() && actor.ID != id {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this user")
	}
	return s.find(ctx, id)
}

func (s *UserService) Create(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "user")
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to check email")
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, internalError(err, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: digest,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		Active:       true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, internalError(err, "failed to create user")
	}

	invalidateStats(ctx, s.cache)
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Update writes only the provided fields. Role and active flag are admin-only, and a
// user who still teaches subjects keeps the teacher role.
func (s *UserService) Update(ctx context.Context, actor models.Actor, id string, req models.UpdateUserRequest) (*models.User, error) {
	if !actor.IsAdmin() && actor.ID != id {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to update this user")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "user")
	}
	if !actor.IsAdmin() && (req.Role != nil || req.Active != nil) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can change role or active status")
	}

	before, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := models.UserChanges{Role: req.Role, Active: req.Active}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if !strings.EqualFold(email, before.Email) {
			if _, err := s.repo.FindByEmail(ctx, email); err == nil {
				return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
			} else if !errors.Is(err, sql.ErrNoRows) {
				return nil, internalError(err, "failed to check email")
			}
		}
		changes.Email = &email
	}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		changes.FullName = &name
	}
	if req.Password != nil {
		digest, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, internalError(err, "failed to hash password")
		}
		changes.PasswordHash = &digest
	}

	user, err := s.repo.Update(ctx, id, changes)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		case errors.Is(err, repository.ErrStillTeaching):
			return nil, appErrors.Clone(appErrors.ErrConflict, "user still teaches subjects and must keep the teacher role")
		}
		return nil, internalError(err, "failed to update user")
	}

	if user.Role != before.Role {
		invalidateStats(ctx, s.cache)
	}
	return user, nil
}

// Delete removes a user. Accounts that still teach subjects are kept until the
// subjects are reassigned.
func (s *UserService) Delete(ctx context.Context, actor models.Actor, id string) (*models.User, error) {
	if actor.ID == id {
		return nil, appErrors.Clone(appErrors.ErrConflict, "cannot delete your own account")
	}
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}
	if err := s.ensureNoSubjects(ctx, id, "user still teaches subjects; reassign them first"); err != nil {
		return nil, err
	}

	user, err := s.repo.Delete(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		case errors.Is(err, repository.ErrForeignKey):
			return nil, appErrors.Clone(appErrors.ErrConflict, "user still teaches subjects; reassign them first")
		}
		return nil, internalError(err, "failed to delete user")
	}

	invalidateStats(ctx, s.cache)
	s.logger.Info("user deleted", zap.String("user_id", id))
	return user, nil
}

func (s *UserService) find(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, internalError(err, "failed to load user")
	}
	return user, nil
}

func (s *UserService) ensureNoSubjects(ctx context.Context, userID, message string) error {
	count, err := s.repo.CountSubjects(ctx, userID)
	if err != nil {
		return internalError(err, "failed to count subjects")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, message)
	}
	return nil
}

func pagination(page, pageSize, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}
