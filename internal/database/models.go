package database

import (
	"time"

	"gorm.io/datatypes"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User 表示系统中的账号信息。Email 以小写形式存储，保证大小写不敏感的唯一性。
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"size:255;not null"`
	Email        string `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string `gorm:"size:255;not null"`
	Role         string `gorm:"size:16;not null;default:user"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Resume 表示用户创建的简历内容。各分区以 JSON 列存储，IsActive=false 表示已软删除。
// UserID 不设外键：删除用户后其简历作为审计记录保留。
type Resume struct {
	ID              uint   `gorm:"primaryKey"`
	UserID          uint   `gorm:"not null;index"`
	Title           string `gorm:"size:255;not null"`
	TemplateID      int    `gorm:"not null;default:1"`
	PersonalInfo    datatypes.JSON
	Summary         string `gorm:"type:text"`
	Skills          datatypes.JSON
	Experience      datatypes.JSON
	Education       datatypes.JSON
	Projects        datatypes.JSON
	Certifications  datatypes.JSON
	Achievements    datatypes.JSON
	Interests       datatypes.JSON
	Languages       datatypes.JSON
	ExtractedText   string `gorm:"type:text"`
	SourceObjectKey string `gorm:"size:512"`
	IsActive        bool   `gorm:"not null;default:true;index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EnhancementHistory 记录一次文本润色请求及其结果。
type EnhancementHistory struct {
	ID               uint   `gorm:"primaryKey"`
	UserID           uint   `gorm:"not null;index"`
	ResumeID         *uint  `gorm:"index"`
	SectionType      string `gorm:"size:64;not null"`
	OriginalText     string `gorm:"type:text;not null"`
	EnhancedText     string `gorm:"type:text;not null"`
	ProcessingTimeMs int64  `gorm:"not null;default:0"`
	UserRating       *int
	ModelName        string `gorm:"size:128"`
	CreatedAt        time.Time
}

func (EnhancementHistory) TableName() string { return "enhancement_history" }
