package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumebuilder/internal/admin"
	"resumebuilder/internal/database"
	"resumebuilder/internal/users"
)

func promote(t *testing.T, env *testEnv, userID uint) {
	t.Helper()
	_, err := users.NewStore(env.db).SetRole(context.Background(), userID, database.RoleAdmin)
	require.NoError(t, err)
}

func TestAdminRoutes_RequireAdminRole(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.register(t, "Ada", "ada@example.com")

	w := env.do(t, http.MethodGet, "/admin/dashboard/stats", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/admin/users", "", nil).Code)

	// 角色在每次请求时重新读取，旧令牌立即获得权限。
	promote(t, env, userID)
	w = env.do(t, http.MethodGet, "/admin/dashboard/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stats admin.DashboardStats
	decode(t, w, &stats)
	assert.Equal(t, int64(1), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.RecentUsers)
}

func TestAdminRoutes_ListsAndRoleChanges(t *testing.T) {
	env := newTestEnv(t)
	adminToken, adminID := env.register(t, "Root", "root@example.com")
	promote(t, env, adminID)
	userToken, userID := env.register(t, "Ada", "ada@example.com")
	createResume(t, env, userToken, gin.H{"title": "Ada CV"})

	w := env.do(t, http.MethodGet, "/admin/users?limit=1", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var usersResp struct {
		Users []admin.UserSummary `json:"users"`
	}
	decode(t, w, &usersResp)
	require.Len(t, usersResp.Users, 1)
	assert.Equal(t, int64(1), usersResp.Users[0].ResumeCount)
	assert.Contains(t, w.Body.String(), `"total_pages":2`)

	w = env.do(t, http.MethodGet, "/admin/resumes", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_email":"ada@example.com"`)

	w = env.do(t, http.MethodGet, "/admin/enhancements", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":0`)

	rolePath := fmt.Sprintf("/admin/users/%d/role", userID)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPut, rolePath, adminToken, gin.H{"role": "owner"}).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPut, "/admin/users/9999/role", adminToken, gin.H{"role": "admin"}).Code)

	w = env.do(t, http.MethodPut, rolePath, adminToken, gin.H{"role": "admin"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"admin"`)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/admin/users", userToken, nil).Code)
}

func TestAdminDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	adminToken, adminID := env.register(t, "Root", "root@example.com")
	promote(t, env, adminID)
	userToken, userID := env.register(t, "Ada", "ada@example.com")
	created := createResume(t, env, userToken, gin.H{"title": "Ada CV"})

	path := fmt.Sprintf("/admin/users/%d", userID)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, path, adminToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, path, adminToken, nil).Code)

	var row database.Resume
	require.NoError(t, env.db.First(&row, created.ID).Error)
	assert.False(t, row.IsActive)

	// 令牌签名仍然有效，但用户已不存在。
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/auth/profile", userToken, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/admin/users", userToken, nil).Code)
}
