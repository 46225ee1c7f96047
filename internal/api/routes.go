package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"resumebuilder/internal/admin"
	"resumebuilder/internal/api/middleware"
	"resumebuilder/internal/auth"
	"resumebuilder/internal/database"
	"resumebuilder/internal/enhance"
	"resumebuilder/internal/resume"
	"resumebuilder/internal/users"
)

const defaultMaxUploadBytes = 10 << 20

// Dependencies 汇总路由所需的外部依赖。除 DB 与 AuthService 外均可为 nil，对应功能退化：
// 没有 Redis 时不限流，没有队列或存储时上传返回 503，没有通知源时 /ws 返回 503。
type Dependencies struct {
	DB          *gorm.DB
	AuthService *auth.AuthService
	Redis       *redis.Client
	Queue       TaskEnqueuer
	Objects     ObjectUploader
	Enhancer    enhance.Enhancer
	Scanner     VirusScanner
	Logger      *slog.Logger

	// Notifications 为 nil 时由 Redis 构造。
	Notifications NotificationSource

	MaxUploadBytes        int64
	TaskMaxRetry          int
	EnhanceTimeout        time.Duration
	AllowedOrigins        []string
	LoginRateLimitPerHour int
	LoginLockThreshold    int
	LoginLockTTL          time.Duration
}

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := deps.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}

	var guard *loginGuard
	if deps.Redis != nil {
		guard = newLoginGuard(deps.Redis, deps.LoginRateLimitPerHour, deps.LoginLockThreshold, deps.LoginLockTTL)
	}

	userStore := users.NewStore(deps.DB)
	adminStore := admin.NewStore(deps.DB)

	authHandler := NewAuthHandler(userStore, deps.AuthService, guard)
	resumeHandler := NewResumeHandler(resume.NewStore(deps.DB), deps.Queue, deps.Objects, deps.Scanner, maxUpload, deps.TaskMaxRetry)
	fileHandler := NewFileHandler(deps.Scanner, maxUpload)
	enhanceHandler := NewEnhanceHandler(enhance.NewService(deps.DB, deps.Enhancer, deps.EnhanceTimeout, logger))
	adminHandler := NewAdminHandler(adminStore)
	notifications := deps.Notifications
	if notifications == nil && deps.Redis != nil {
		notifications = NewRedisNotifications(deps.Redis)
	}
	notificationHandler := NewNotificationHandler(notifications, deps.AuthService, logger, deps.AllowedOrigins)

	authMiddleware := middleware.AuthMiddleware(deps.AuthService)

	router.GET("/ready", func(c *gin.Context) {
		if err := database.Ping(c.Request.Context(), deps.DB); err != nil {
			loggerFromContext(c).Warn("readiness check failed", slog.Any("error", err))
			Error(c, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	router.GET("/ws", notificationHandler.Connect)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.GET("/profile", authMiddleware, authHandler.Profile)
		authGroup.PUT("/profile", authMiddleware, authHandler.UpdateProfile)
		authGroup.PUT("/password", authMiddleware, authHandler.ChangePassword)
	}

	resumeGroup := router.Group("/resumes")
	resumeGroup.Use(authMiddleware)
	{
		resumeGroup.GET("/my-resumes", resumeHandler.ListResumes)
		resumeGroup.GET("/suggestions", resumeHandler.Suggestions)
		resumeGroup.POST("", resumeHandler.CreateResume)
		resumeGroup.GET("/:id", resumeHandler.GetResume)
		resumeGroup.PUT("/:id", resumeHandler.UpdateResume)
		resumeGroup.DELETE("/:id", resumeHandler.DeleteResume)
		resumeGroup.POST("/:id/source", resumeHandler.UploadSource)
	}

	router.POST("/files/extract", authMiddleware, fileHandler.ExtractText)
	router.POST("/enhance", authMiddleware, enhanceHandler.Enhance)
	router.PUT("/enhancements/:id/rating", authMiddleware, enhanceHandler.Rate)

	adminGroup := router.Group("/admin")
	adminGroup.Use(authMiddleware, middleware.RequireAdmin(adminStore))
	{
		adminGroup.GET("/dashboard/stats", adminHandler.DashboardStats)
		adminGroup.GET("/users", adminHandler.ListUsers)
		adminGroup.GET("/resumes", adminHandler.ListResumes)
		adminGroup.GET("/enhancements", adminHandler.EnhancementHistory)
		adminGroup.PUT("/users/:id/role", adminHandler.SetUserRole)
		adminGroup.DELETE("/users/:id", adminHandler.DeleteUser)
	}
}
