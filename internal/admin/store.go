// Package admin 汇总管理后台使用的统计与列表查询。
package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"resumebuilder/internal/database"
	"resumebuilder/internal/errcode"
	"resumebuilder/internal/pagination"
	"resumebuilder/internal/users"
)

const recentWindow = 30 * 24 * time.Hour

type DashboardStats struct {
	TotalUsers        int64 `json:"total_users"`
	TotalResumes      int64 `json:"total_resumes"`
	RecentUsers       int64 `json:"recent_users"`
	RecentResumes     int64 `json:"recent_resumes"`
	TotalEnhancements int64 `json:"total_enhancements"`
}

type UserSummary struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	ResumeCount int64     `json:"resume_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type ResumeSummary struct {
	ID         uint      `json:"id"`
	Title      string    `json:"title"`
	TemplateID int       `json:"template_id"`
	UserID     uint      `json:"user_id"`
	UserName   string    `json:"user_name"`
	UserEmail  string    `json:"user_email"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type EnhancementRecord struct {
	ID               uint      `json:"id"`
	UserID           uint      `json:"user_id"`
	UserEmail        *string   `json:"user_email"`
	ResumeID         *uint     `json:"resume_id"`
	ResumeTitle      *string   `json:"resume_title"`
	SectionType      string    `json:"section_type"`
	OriginalText     string    `json:"original_text"`
	EnhancedText     string    `json:"enhanced_text"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	UserRating       *int      `json:"user_rating"`
	ModelName        string    `json:"model_name"`
	CreatedAt        time.Time `json:"created_at"`
}

// Store 只读聚合，外加角色修改与用户删除。
type Store struct {
	db    *gorm.DB
	users *users.Store
	now   func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, users: users.NewStore(db), now: time.Now}
}

// DashboardStats 统计总量以及最近 30 天新增的用户与简历。
func (s *Store) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	since := s.now().Add(-recentWindow)
	var stats DashboardStats

	counts := []struct {
		name  string
		query func() *gorm.DB
		dst   *int64
	}{
		{"users", func() *gorm.DB { return s.db.WithContext(ctx).Model(&database.User{}) }, &stats.TotalUsers},
		{"resumes", func() *gorm.DB {
			return s.db.WithContext(ctx).Model(&database.Resume{}).Where("is_active = ?", true)
		}, &stats.TotalResumes},
		{"recent users", func() *gorm.DB {
			return s.db.WithContext(ctx).Model(&database.User{}).Where("created_at >= ?", since)
		}, &stats.RecentUsers},
		{"recent resumes", func() *gorm.DB {
			return s.db.WithContext(ctx).Model(&database.Resume{}).Where("is_active = ? AND created_at >= ?", true, since)
		}, &stats.RecentResumes},
		{"enhancements", func() *gorm.DB { return s.db.WithContext(ctx).Model(&database.EnhancementHistory{}) }, &stats.TotalEnhancements},
	}
	for _, c := range counts {
		if err := c.query().Count(c.dst).Error; err != nil {
			return nil, fmt.Errorf("count %s: %w", c.name, err)
		}
	}
	return &stats, nil
}

// ListUsers 按注册时间倒序列出用户及其有效简历数。
func (s *Store) ListUsers(ctx context.Context, page pagination.Params) ([]UserSummary, pagination.Meta, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&database.User{}).Count(&total).Error; err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("count users: %w", err)
	}

	items := make([]UserSummary, 0, page.Limit)
	err := s.db.WithContext(ctx).
		Table("users").
		Select("users.id, users.name, users.email, users.role, users.created_at, COUNT(resumes.id) AS resume_count").
		Joins("LEFT JOIN resumes ON resumes.user_id = users.id AND resumes.is_active = ?", true).
		Group("users.id, users.name, users.email, users.role, users.created_at").
		Order("users.created_at DESC").Order("users.id DESC").
		Offset(page.Offset()).Limit(page.Limit).
		Scan(&items).Error
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("list users: %w", err)
	}
	return items, page.Meta(total), nil
}

// ListResumes 列出全部有效简历及其所有者。
func (s *Store) ListResumes(ctx context.Context, page pagination.Params) ([]ResumeSummary, pagination.Meta, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&database.Resume{}).Where("is_active = ?", true).Count(&total).Error; err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("count resumes: %w", err)
	}

	items := make([]ResumeSummary, 0, page.Limit)
	err := s.db.WithContext(ctx).
		Table("resumes").
		Select("resumes.id, resumes.title, resumes.template_id, resumes.user_id, users.name AS user_name, users.email AS user_email, resumes.created_at, resumes.updated_at").
		Joins("JOIN users ON users.id = resumes.user_id").
		Where("resumes.is_active = ?", true).
		Order("resumes.updated_at DESC").Order("resumes.id DESC").
		Offset(page.Offset()).Limit(page.Limit).
		Scan(&items).Error
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("list resumes: %w", err)
	}
	return items, page.Meta(total), nil
}

// SetUserRole 修改用户角色。
func (s *Store) SetUserRole(ctx context.Context, userID uint, role string) (*database.User, error) {
	return s.users.SetRole(ctx, userID, role)
}

// DeleteUser 先软删除该用户的全部简历，再删除用户本身。
// 两条语句不在同一事务内：第二步失败时简历保持无效状态。
func (s *Store) DeleteUser(ctx context.Context, userID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&database.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if count == 0 {
		return errcode.NotFound("user not found")
	}

	if err := s.db.WithContext(ctx).Model(&database.Resume{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Updates(map[string]any{"is_active": false, "updated_at": s.now()}).Error; err != nil {
		return fmt.Errorf("deactivate resumes: %w", err)
	}

	res := s.db.WithContext(ctx).Delete(&database.User{}, userID)
	if res.Error != nil {
		return fmt.Errorf("delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errcode.NotFound("user not found")
	}
	return nil
}

// EnhancementHistory 列出润色记录，附带简历标题与用户邮箱。
func (s *Store) EnhancementHistory(ctx context.Context, page pagination.Params) ([]EnhancementRecord, pagination.Meta, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&database.EnhancementHistory{}).Count(&total).Error; err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("count enhancements: %w", err)
	}

	items := make([]EnhancementRecord, 0, page.Limit)
	err := s.db.WithContext(ctx).
		Table("enhancement_history AS eh").
		Select("eh.id, eh.user_id, users.email AS user_email, eh.resume_id, resumes.title AS resume_title, " +
			"eh.section_type, eh.original_text, eh.enhanced_text, eh.processing_time_ms, eh.user_rating, eh.model_name, eh.created_at").
		Joins("LEFT JOIN users ON users.id = eh.user_id").
		Joins("LEFT JOIN resumes ON resumes.id = eh.resume_id").
		Order("eh.created_at DESC").Order("eh.id DESC").
		Offset(page.Offset()).Limit(page.Limit).
		Scan(&items).Error
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("list enhancements: %w", err)
	}
	return items, page.Meta(total), nil
}

// IsAdmin 从数据库读取调用者的当前角色。
func (s *Store) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errcode.ErrNotFound) {
			return false, errcode.Auth("unauthorized")
		}
		return false, err
	}
	return user.Role == database.RoleAdmin, nil
}
