package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumebuilder/internal/api/middleware"
	"resumebuilder/internal/users"
)

func TestRegister_ReturnsTokenAndUser(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"name":     "Ada Lovelace",
		"email":    "Ada@Example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp authResponse
	decode(t, w, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, "user", resp.User.Role)

	claims, err := env.auth.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	profile := env.do(t, http.MethodGet, "/auth/profile", resp.Token, nil)
	require.Equal(t, http.StatusOK, profile.Code)
	assert.Contains(t, profile.Body.String(), `"name":"Ada Lovelace"`)
	assert.NotContains(t, profile.Body.String(), "password")
}

func TestRegister_DuplicateEmailIsCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Ada", "ada@example.com")

	w := env.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"name":     "Imposter",
		"email":    "ADA@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email already registered", errorMessage(t, w))
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)

	cases := map[string]gin.H{
		"short password": {"name": "A", "email": "a@example.com", "password": "12345"},
		"bad email":      {"name": "A", "email": "not-an-email", "password": "secret123"},
		"missing name":   {"email": "a@example.com", "password": "secret123"},
		"blank name":     {"name": "   ", "email": "a@example.com", "password": "secret123"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/auth/register", "", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestLogin_InvalidCredentialsAreGeneric(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Ada", "ada@example.com")

	unknown := env.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "nobody@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, "invalid credentials", errorMessage(t, unknown))

	wrong := env.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "ada@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, "invalid credentials", errorMessage(t, wrong))
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	_, userID := env.register(t, "Ada", "ada@example.com")

	w := env.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": " ADA@example.com ", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp authResponse
	decode(t, w, &resp)
	assert.Equal(t, userID, resp.User.ID)
	assert.NotEmpty(t, resp.Token)
}

func TestProtectedRoutes_RequireValidToken(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/auth/profile", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/auth/profile", "garbage", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/resumes/my-resumes", "garbage", nil).Code)
}

func TestProfile_DeletedUserIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.register(t, "Ada", "ada@example.com")
	require.NoError(t, env.db.Exec("DELETE FROM users WHERE id = ?", userID).Error)

	w := env.do(t, http.MethodGet, "/auth/profile", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "Ada", "ada@example.com")
	env.register(t, "Grace", "grace@example.com")

	w := env.do(t, http.MethodPut, "/auth/profile", token, gin.H{"name": "Ada King"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"name":"Ada King"`)
	assert.Contains(t, w.Body.String(), `"email":"ada@example.com"`)

	conflict := env.do(t, http.MethodPut, "/auth/profile", token, gin.H{"email": "Grace@example.com"})
	assert.Equal(t, http.StatusConflict, conflict.Code)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "Ada", "ada@example.com")

	wrong := env.do(t, http.MethodPut, "/auth/password", token, gin.H{"current_password": "nope", "new_password": "newsecret"})
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)

	same := env.do(t, http.MethodPut, "/auth/password", token, gin.H{"current_password": "secret123", "new_password": "secret123"})
	assert.Equal(t, http.StatusBadRequest, same.Code)

	ok := env.do(t, http.MethodPut, "/auth/password", token, gin.H{"current_password": "secret123", "new_password": "newsecret"})
	require.Equal(t, http.StatusNoContent, ok.Code)

	oldLogin := env.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "ada@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusUnauthorized, oldLogin.Code)
	newLogin := env.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "ada@example.com", "password": "newsecret"})
	assert.Equal(t, http.StatusOK, newLogin.Code)
}

func TestLogin_LockedAfterRepeatedFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)
	env := newTestEnv(t)
	env.register(t, "Ada", "ada@example.com")

	counter := newFakeRedisCounter()
	guard := newLoginGuard(counter, 100, 2, time.Minute)
	handler := NewAuthHandler(users.NewStore(env.db), env.auth, guard)

	router := gin.New()
	router.Use(middleware.SlogLoggerMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil))))
	router.POST("/auth/login", handler.Login)

	login := func(password string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"email":"ada@example.com","password":"`+password+`"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, login("bad").Code)
	assert.Equal(t, http.StatusUnauthorized, login("bad").Code)

	locked := login("secret123")
	assert.Equal(t, http.StatusTooManyRequests, locked.Code)
	assert.Equal(t, "account temporarily locked", errorMessage(t, locked))

	counter.expire(context.Background(), "lock:login:ada@example.com")
	assert.Equal(t, http.StatusOK, login("secret123").Code)
	assert.NotContains(t, counter.values, "lock:login:fail:ada@example.com")
}
