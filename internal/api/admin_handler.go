package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumebuilder/internal/admin"
	"resumebuilder/internal/pagination"
)

// AdminHandler 提供后台统计与用户管理接口，路由需挂载 RequireAdmin。
type AdminHandler struct {
	store *admin.Store
}

func NewAdminHandler(store *admin.Store) *AdminHandler {
	return &AdminHandler{store: store}
}

func (h *AdminHandler) DashboardStats(c *gin.Context) {
	stats, err := h.store.DashboardStats(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	page := pagination.Parse(c.Query("page"), c.Query("limit"))
	items, meta, err := h.store.ListUsers(c.Request.Context(), page)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": items, "pagination": meta})
}

func (h *AdminHandler) ListResumes(c *gin.Context) {
	page := pagination.Parse(c.Query("page"), c.Query("limit"))
	items, meta, err := h.store.ListResumes(c.Request.Context(), page)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resumes": items, "pagination": meta})
}

func (h *AdminHandler) EnhancementHistory(c *gin.Context) {
	page := pagination.Parse(c.Query("page"), c.Query("limit"))
	items, meta, err := h.store.EnhancementHistory(c.Request.Context(), page)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enhancements": items, "pagination": meta})
}

type setRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h *AdminHandler) SetUserRole(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		NotFound(c, "user not found")
		return
	}

	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	user, err := h.store.SetUserRole(c.Request.Context(), id, req.Role)
	if err != nil {
		RespondError(c, err)
		return
	}

	actorID, _ := userIDFromContext(c)
	loggerFromContext(c).Info("user role changed",
		slog.Uint64("actor_id", uint64(actorID)),
		slog.Uint64("target_user_id", uint64(id)),
		slog.String("role", user.Role),
	)
	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

// DeleteUser 停用该用户的简历后删除账号。
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		NotFound(c, "user not found")
		return
	}

	if err := h.store.DeleteUser(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}

	actorID, _ := userIDFromContext(c)
	loggerFromContext(c).Info("user deleted",
		slog.Uint64("actor_id", uint64(actorID)),
		slog.Uint64("target_user_id", uint64(id)),
	)
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}
