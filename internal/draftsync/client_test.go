package draftsync

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumebuilder/internal/api"
	"resumebuilder/internal/auth"
	"resumebuilder/internal/config"
	"resumebuilder/internal/database/testdb"
	"resumebuilder/internal/resume"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pubBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})

	authService, err := auth.NewAuthService(privPEM, pubPEM, time.Hour)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := api.NewRouter(&config.Config{}, logger)
	api.RegisterRoutes(router, api.Dependencies{
		DB:          testdb.Open(t),
		AuthService: authService,
		Logger:      logger,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func registerUser(t *testing.T, baseURL, email string) {
	t.Helper()
	client := NewClient(baseURL, nil)
	err := client.do(context.Background(), http.MethodPost, "/auth/register", "",
		map[string]string{"name": "Ada", "email": email, "password": "secret123"}, nil)
	require.NoError(t, err)
}

func TestClient_AgainstBackend(t *testing.T) {
	srv := newBackend(t)
	registerUser(t, srv.URL, "ada@example.com")

	client := NewClient(srv.URL+"/", nil)
	ctx := context.Background()

	_, err := client.Login(ctx, "ada@example.com", "wrong-password")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Contains(t, err.Error(), "invalid credentials")

	token, err := client.Login(ctx, "ada@example.com", "secret123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	store := NewStore(map[string]any{
		"title":        "Backend CV",
		"personalInfo": map[string]any{"name": "Ada", "email": "ada@example.com"},
		"skills":       "Go, SQL",
	})
	r := NewReplicator(ReplicatorConfig{
		Store:    store,
		Target:   client,
		Session:  NewSession(token),
		Location: func() string { return "/builder?template=2" },
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	require.NoError(t, r.Flush(ctx))
	id := r.ResumeID()
	require.NotZero(t, id)

	store.Merge(map[string]any{"summary": "Writes services", "skills": []any{"Go"}})
	require.NoError(t, r.Flush(ctx))
	assert.Equal(t, id, r.ResumeID())

	var got struct {
		Title      string   `json:"title"`
		Summary    string   `json:"summary"`
		TemplateID int      `json:"template_id"`
		Skills     []string `json:"skills"`
	}
	require.NoError(t, client.do(ctx, http.MethodGet, "/resumes/"+strconv.FormatUint(uint64(id), 10), token, nil, &got))
	assert.Equal(t, "Backend CV", got.Title)
	assert.Equal(t, "Writes services", got.Summary)
	assert.Equal(t, 2, got.TemplateID)
	assert.Equal(t, []string{"Go"}, got.Skills)

	require.NoError(t, client.do(ctx, http.MethodDelete, "/resumes/"+strconv.FormatUint(uint64(id), 10), token, nil, nil))
	require.NoError(t, r.Flush(ctx))
	assert.NotEqual(t, id, r.ResumeID())
}

func TestClient_StatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/resumes":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"template_id must be positive"}`))
		case "/auth/login":
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`<html>bad gateway</html>`))
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	ctx := context.Background()

	_, err := client.CreateResume(ctx, "tok", resume.Payload{Title: "CV"})
	require.Error(t, err)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "template_id must be positive", statusErr.Message)

	err = client.UpdateResume(ctx, "tok", 9, resume.Payload{})
	assert.True(t, IsStatus(err, http.StatusBadGateway))
	assert.False(t, IsStatus(err, http.StatusNotFound))

	_, err = client.Login(ctx, "a@example.com", "pw")
	assert.EqualError(t, err, "login response has no token")
}
