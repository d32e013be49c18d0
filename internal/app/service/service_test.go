package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"identity_hub/internal/common/security"
	"identity_hub/internal/domain/model"
	"identity_hub/internal/domain/repository"
	"identity_hub/internal/platform/logging"

	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("service-test-secret-0123456789abcdef")

const strongPassword = "Secur3P@ss"

type fixture struct {
	repo     *repository.MemoryUserRepository
	codec    *security.TokenCodec
	auth     *AuthService
	verifier *TokenVerifier
	admin    *UserManagementService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := repository.NewMemoryUserRepository()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	codec := security.NewTokenCodec(testSecret, time.Hour)
	log := logging.NewDiscard()
	return &fixture{
		repo:     repo,
		codec:    codec,
		auth:     NewAuthService(repo, hasher, codec, log),
		verifier: NewTokenVerifier(codec, repo, log),
		admin:    NewUserManagementService(repo, hasher, log),
	}
}

func (f *fixture) register(t *testing.T, username string) *AuthResponse {
	t.Helper()
	resp, err := f.auth.Register(context.Background(), RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: strongPassword,
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return resp
}

func (f *fixture) userID(t *testing.T, username string) string {
	t.Helper()
	u, err := f.repo.FindByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("find %s: %v", username, err)
	}
	return u.ID
}

// failingRepo fails every call with err.
type failingRepo struct {
	repository.UserRepository
	err error
}

func (r failingRepo) FindByUsername(context.Context, string) (*model.User, error) { return nil, r.err }
func (r failingRepo) FindByID(context.Context, string) (*model.User, error)       { return nil, r.err }
func (r failingRepo) ExistsByUsername(context.Context, string) (bool, error)      { return false, r.err }
func (r failingRepo) List(context.Context) ([]*model.User, error)                 { return nil, r.err }

var errStoreDown = errors.New("store down")
