package handler

import (
	"net/http"
	"testing"

	"identity_hub/internal/app/service"
	"identity_hub/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerBody(username string) map[string]string {
	return map[string]string{"username": username, "email": username + "@example.com", "password": strongPassword}
}

func TestAuthHandler_Register(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/api/auth/register", registerBody("alice"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[service.AuthResponse](t, rec)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, model.RoleUser, resp.Role)
	assert.Equal(t, "User registered successfully", resp.Message)

	rec = e.do(t, http.MethodPost, "/api/auth/register", registerBody("alice"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username already exists", decode[map[string]string](t, rec)["error"])

	weak := registerBody("bob")
	weak["password"] = "alllowercase1!"
	rec = e.do(t, http.MethodPost, "/api/auth/register", weak)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Password must contain at least one uppercase letter", decode[map[string]string](t, rec)["error"])

	rec = e.do(t, http.MethodPost, "/api/auth/register", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandler_Login(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/auth/register", registerBody("alice")).Code)

	rec := e.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": strongPassword})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Login successful", decode[service.AuthResponse](t, rec).Message)

	rec = e.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "Wrong-pass1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid username or password", decode[map[string]string](t, rec)["error"])

	rec = e.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandler_Validate(t *testing.T) {
	e := newEnv(t)
	token := decode[service.AuthResponse](t, e.do(t, http.MethodPost, "/api/auth/register", registerBody("alice"))).Token

	rec := e.do(t, http.MethodPost, "/api/auth/validate", map[string]string{"token": token})
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[model.ValidationOutcome](t, rec)
	assert.True(t, out.Valid)
	assert.Equal(t, "alice", out.Username)
	assert.Equal(t, "Token is valid", out.Message)

	for _, body := range []any{map[string]string{"token": "garbage"}, map[string]string{}, "not json"} {
		rec = e.do(t, http.MethodPost, "/api/auth/validate", body)
		assert.Equal(t, http.StatusOK, rec.Code)
		out = decode[model.ValidationOutcome](t, rec)
		assert.False(t, out.Valid)
		assert.Equal(t, model.ReasonTokenMalformed, out.Message)
	}
}

func TestAuthHandler_Health(t *testing.T) {
	rec := newEnv(t).do(t, http.MethodGet, "/api/auth/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Auth Service is running", rec.Body.String())
}
