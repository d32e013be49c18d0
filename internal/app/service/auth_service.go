package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"identity_hub/internal/common"
	"identity_hub/internal/common/security"
	"identity_hub/internal/domain/model"
	"identity_hub/internal/domain/repository"
	"identity_hub/internal/platform/logging"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
)

const (
	msgRegistered = "User registered successfully"
	msgLoggedIn   = "Login successful"

	// Compared against when the username is unknown so that login takes
	// roughly the same time either way.
	dummyPassword = "Dummy-Password-1!"
)

type AuthService struct {
	userRepo repository.UserRepository
	hasher   security.PasswordHasher
	codec    *security.TokenCodec
	policy   security.PasswordPolicy
	log      logging.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(
	userRepo repository.UserRepository,
	hasher security.PasswordHasher,
	codec *security.TokenCodec,
	log logging.Logger,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		hasher:   hasher,
		codec:    codec,
		policy:   security.DefaultPasswordPolicy(),
		log:      log.With("module", "auth_service"),
	}
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 50)),
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type AuthResponse struct {
	Token    string     `json:"token"`
	Username string     `json:"username"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
	Message  string     `json:"message"`
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if res := s.policy.Evaluate(req.Password); !res.Accepted() {
		return nil, common.WeakPassword(res.Message)
	}
	if err := req.Validate(); err != nil {
		return nil, common.Validation(err.Error())
	}

	taken, err := s.userRepo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, common.Internal(err, "failed to check username")
	}
	if taken {
		return nil, common.ErrDuplicateUsername
	}
	taken, err = s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, common.Internal(err, "failed to check email")
	}
	if taken {
		return nil, common.ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, common.Internal(err, "failed to hash password")
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         model.RoleUser,
		Enabled:      true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// A concurrent registration can still win the race; the store reports it.
		if common.KindOf(err) == common.KindConflict {
			return nil, err
		}
		return nil, common.Internal(err, "failed to create user")
	}

	s.log.Info(ctx, "user registered", "username", user.Username, "user_id", user.ID)
	return s.respond(user, msgRegistered)
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, common.Validation(err.Error())
	}

	user, err := s.userRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.burnCompare(req.Password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, common.Internal(err, "failed to find user")
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}
	if !user.Enabled {
		s.log.Warn(ctx, "login attempt on disabled account", "username", user.Username)
		return nil, common.ErrInvalidCredentials
	}

	return s.respond(user, msgLoggedIn)
}

func (s *AuthService) respond(user *model.User, message string) (*AuthResponse, error) {
	token, err := s.codec.Issue(security.TokenSubject{
		Username:    user.Username,
		UserID:      user.ID,
		Fingerprint: security.IdentityFingerprint(user),
	})
	if err != nil {
		return nil, common.Internal(fmt.Errorf("issue token: %w", err), "failed to generate token")
	}
	return &AuthResponse{
		Token:    token.Value,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		Message:  message,
	}, nil
}

func (s *AuthService) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(dummyPassword)
	})
	if s.dummyHash != "" {
		s.hasher.Verify(password, s.dummyHash)
	}
}
