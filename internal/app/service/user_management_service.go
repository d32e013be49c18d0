package service

import (
	"context"
	"errors"

	"identity_hub/internal/common"
	"identity_hub/internal/common/security"
	"identity_hub/internal/domain/model"
	"identity_hub/internal/domain/repository"
	"identity_hub/internal/platform/logging"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
)

// maxWriteAttempts bounds read-modify-write retries on concurrent updates.
const maxWriteAttempts = 3

// UserManagementService backs the admin API.
type UserManagementService struct {
	userRepo repository.UserRepository
	hasher   security.PasswordHasher
	policy   security.PasswordPolicy
	log      logging.Logger
}

func NewUserManagementService(userRepo repository.UserRepository, hasher security.PasswordHasher, log logging.Logger) *UserManagementService {
	return &UserManagementService{
		userRepo: userRepo,
		hasher:   hasher,
		policy:   security.DefaultPasswordPolicy(),
		log:      log.With("module", "user_management_service"),
	}
}

// UpdateUserRequest is a partial update; nil fields are left alone.
type UpdateUserRequest struct {
	Username *string     `json:"username,omitempty"`
	Email    *string     `json:"email,omitempty"`
	Role     *model.Role `json:"role,omitempty"`
	Enabled  *bool       `json:"enabled,omitempty"`
}

func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.NilOrNotEmpty, validation.Length(3, 50)),
		validation.Field(&r.Email, validation.NilOrNotEmpty, is.Email),
		validation.Field(&r.Role, validation.NilOrNotEmpty, validation.In(model.RoleUser, model.RoleAdmin)),
	)
}

type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

func (s *UserManagementService) List(ctx context.Context) ([]*model.User, error) {
	s.log.Debug(ctx, "fetching all users")
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, common.Internal(err, "failed to list users")
	}
	return users, nil
}

// userNotFound is returned for unknown ids, including ids that are not UUIDs.
func userNotFound(id string) error {
	return common.NotFoundf("User not found with ID: %s", id)
}

func (s *UserManagementService) GetByID(ctx context.Context, id string) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, userNotFound(id)
	}
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, userNotFound(id)
		}
		return nil, common.Internal(err, "failed to fetch user")
	}
	return user, nil
}

func (s *UserManagementService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NotFoundf("User not found with username: %s", username)
		}
		return nil, common.Internal(err, "failed to fetch user")
	}
	return user, nil
}

func (s *UserManagementService) Update(ctx context.Context, id string, req UpdateUserRequest) (*model.User, error) {
	if err := req.Validate(); err != nil {
		return nil, common.Validation(err.Error())
	}

	user, err := s.mutate(ctx, id, func(user *model.User) (bool, error) {
		changed := false
		if req.Username != nil && *req.Username != user.Username {
			taken, err := s.userRepo.ExistsByUsername(ctx, *req.Username)
			if err != nil {
				return false, common.Internal(err, "failed to check username")
			}
			if taken {
				return false, common.Conflictf(common.ErrDuplicateUsername, "Username already exists: %s", *req.Username)
			}
			user.Username = *req.Username
			changed = true
		}
		if req.Email != nil && *req.Email != user.Email {
			taken, err := s.userRepo.ExistsByEmail(ctx, *req.Email)
			if err != nil {
				return false, common.Internal(err, "failed to check email")
			}
			if taken {
				return false, common.Conflictf(common.ErrDuplicateEmail, "Email already exists: %s", *req.Email)
			}
			user.Email = *req.Email
			changed = true
		}
		if req.Role != nil && *req.Role != user.Role {
			user.Role = *req.Role
			changed = true
		}
		if req.Enabled != nil && *req.Enabled != user.Enabled {
			user.Enabled = *req.Enabled
			changed = true
		}
		return changed, nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "user updated", "user_id", user.ID, "username", user.Username)
	return user, nil
}

func (s *UserManagementService) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return userNotFound(id)
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return userNotFound(id)
		}
		return common.Internal(err, "failed to delete user")
	}
	s.log.Info(ctx, "user deleted", "user_id", id)
	return nil
}

func (s *UserManagementService) Activate(ctx context.Context, id string) (*model.User, error) {
	return s.setEnabled(ctx, id, true)
}

func (s *UserManagementService) Deactivate(ctx context.Context, id string) (*model.User, error) {
	return s.setEnabled(ctx, id, false)
}

// setEnabled does not write when the account is already in the requested
// state, so existing tokens keep their fingerprint.
func (s *UserManagementService) setEnabled(ctx context.Context, id string, enabled bool) (*model.User, error) {
	user, err := s.mutate(ctx, id, func(user *model.User) (bool, error) {
		if user.Enabled == enabled {
			return false, nil
		}
		user.Enabled = enabled
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "user enabled state", "user_id", user.ID, "enabled", enabled)
	return user, nil
}

func (s *UserManagementService) ResetPassword(ctx context.Context, id string, req ResetPasswordRequest) error {
	if res := s.policy.Evaluate(req.NewPassword); !res.Accepted() {
		return common.WeakPassword(res.Message)
	}
	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return common.Internal(err, "failed to hash password")
	}

	user, err := s.mutate(ctx, id, func(user *model.User) (bool, error) {
		user.PasswordHash = hash
		return true, nil
	})
	if err != nil {
		return err
	}
	s.log.Info(ctx, "password reset", "user_id", user.ID)
	return nil
}

// mutate loads the user, applies change and writes the result when change
// reports a modification. A write that lost a race against another update
// is retried on a fresh copy.
func (s *UserManagementService) mutate(ctx context.Context, id string, change func(*model.User) (bool, error)) (*model.User, error) {
	for attempt := 1; ; attempt++ {
		user, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		changed, err := change(user)
		if err != nil {
			return nil, err
		}
		if !changed {
			return user, nil
		}

		err = s.userRepo.Update(ctx, user)
		switch {
		case err == nil:
			return user, nil
		case errors.Is(err, common.ErrConcurrentUpdate):
			if attempt >= maxWriteAttempts {
				return nil, err
			}
			s.log.Debug(ctx, "concurrent user update, retrying", "user_id", id, "attempt", attempt)
		case errors.Is(err, common.ErrNotFound):
			return nil, userNotFound(id)
		case common.KindOf(err) == common.KindConflict:
			return nil, err
		default:
			return nil, common.Internal(err, "failed to save user")
		}
	}
}
