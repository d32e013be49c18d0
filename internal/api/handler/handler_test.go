package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"identity_hub/internal/app/service"
	"identity_hub/internal/common/security"
	"identity_hub/internal/domain/repository"
	"identity_hub/internal/platform/logging"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const strongPassword = "Secur3P@ss"

type env struct {
	repo   *repository.MemoryUserRepository
	auth   *service.AuthService
	router chi.Router
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := logging.NewDiscard()
	repo := repository.NewMemoryUserRepository()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	codec := security.NewTokenCodec([]byte("handler-test-secret-0123456789abcdef"), time.Hour)
	auth := service.NewAuthService(repo, hasher, codec, log)

	r := chi.NewRouter()
	r.Route("/api/auth", func(ar chi.Router) {
		NewAuthHandler(auth, service.NewTokenVerifier(codec, repo, log), log).RegisterRoutes(ar, nil)
	})
	r.Route("/api/admin/users", func(ur chi.Router) {
		passthrough := func(next http.Handler) http.Handler { return next }
		NewAdminHandler(service.NewUserManagementService(repo, hasher, log), log).RegisterRoutes(ur, passthrough)
	})
	return &env{repo: repo, auth: auth, router: r}
}

func (e *env) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
