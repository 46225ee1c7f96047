// Package users 提供账号的持久化操作。
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"resumebuilder/internal/database"
	"resumebuilder/internal/errcode"
)

// Store 封装 users 表的读写。
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// NormalizeEmail 去除空白并转为小写。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create 插入新账号。邮箱冲突（含并发插入时的唯一约束冲突）返回 ErrConflict。
func (s *Store) Create(ctx context.Context, name, email, passwordHash string) (*database.User, error) {
	email = NormalizeEmail(email)

	taken, err := s.emailTaken(ctx, email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errcode.Conflict("email already registered")
	}

	user := database.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         database.RoleUser,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errcode.Conflict("email already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// FindByEmail 按邮箱（大小写不敏感）查询账号。
func (s *Store) FindByEmail(ctx context.Context, email string) (*database.User, error) {
	var user database.User
	err := s.db.WithContext(ctx).Where("LOWER(email) = ?", NormalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFound("user not found")
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// GetByID 按主键查询账号。
func (s *Store) GetByID(ctx context.Context, id uint) (*database.User, error) {
	var user database.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.NotFound("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// UpdateProfile 修改姓名和/或邮箱，nil 表示不修改。
func (s *Store) UpdateProfile(ctx context.Context, id uint, name, email *string) (*database.User, error) {
	updates := map[string]any{}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, errcode.Validation("name must not be empty")
		}
		updates["name"] = trimmed
	}
	if email != nil {
		normalized := NormalizeEmail(*email)
		if !ValidEmail(normalized) {
			return nil, errcode.Validation("invalid email")
		}
		taken, err := s.emailTaken(ctx, normalized, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, errcode.Conflict("email already registered")
		}
		updates["email"] = normalized
	}
	if len(updates) == 0 {
		return nil, errcode.Validation("no fields to update")
	}
	updates["updated_at"] = time.Now()

	res := s.db.WithContext(ctx).Model(&database.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, errcode.Conflict("email already registered")
		}
		return nil, fmt.Errorf("update profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errcode.NotFound("user not found")
	}
	return s.GetByID(ctx, id)
}

// SetPassword 替换密码哈希。
func (s *Store) SetPassword(ctx context.Context, id uint, passwordHash string) error {
	res := s.db.WithContext(ctx).Model(&database.User{}).Where("id = ?", id).Updates(map[string]any{
		"password_hash": passwordHash,
		"updated_at":    time.Now(),
	})
	if res.Error != nil {
		return fmt.Errorf("set password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errcode.NotFound("user not found")
	}
	return nil
}

// SetRole 修改账号角色，仅接受 user 与 admin。
func (s *Store) SetRole(ctx context.Context, id uint, role string) (*database.User, error) {
	if role != database.RoleUser && role != database.RoleAdmin {
		return nil, errcode.Validation("role must be one of: user, admin")
	}
	res := s.db.WithContext(ctx).Model(&database.User{}).Where("id = ?", id).Updates(map[string]any{
		"role":       role,
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return nil, fmt.Errorf("set role: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errcode.NotFound("user not found")
	}
	return s.GetByID(ctx, id)
}

func (s *Store) emailTaken(ctx context.Context, email string, exceptID uint) (bool, error) {
	var count int64
	q := s.db.WithContext(ctx).Model(&database.User{}).Where("LOWER(email) = ?", email)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return count > 0, nil
}
