package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resumebuilder/internal/config"
	"resumebuilder/internal/database/migrations"
)

const (
	defaultMaxIdleConns    = 5
	defaultMaxOpenConns    = 25
	defaultConnMaxLifetime = 30 * time.Minute
	pingTimeout            = 3 * time.Second
)

// InitDatabase 打开 PostgreSQL 连接池并确认可用。
// TranslateError 打开后唯一约束冲突会被转换为 gorm.ErrDuplicatedKey，邮箱重复依赖这一点。
func InitDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s@%s: %w", cfg.Name, cfg.Host, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap db: %w", err)
	}
	configurePool(sqlDB, cfg)

	if err := Ping(context.Background(), db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// configurePool 未配置的项使用默认值（空闲 5、最大 25、连接寿命 30 分钟）。
func configurePool(sqlDB *sql.DB, cfg config.DatabaseConfig) {
	idle, open, lifetime := cfg.MaxIdleConns, cfg.MaxOpenConns, cfg.ConnMaxLifetime
	if idle <= 0 {
		idle = defaultMaxIdleConns
	}
	if open <= 0 {
		open = defaultMaxOpenConns
	}
	if lifetime <= 0 {
		lifetime = defaultConnMaxLifetime
	}
	sqlDB.SetMaxIdleConns(idle)
	sqlDB.SetMaxOpenConns(open)
	sqlDB.SetConnMaxLifetime(lifetime)
}

// Ping 在短超时内检查数据库连通性，供启动与就绪探针使用。
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("unwrap db: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Migrate 执行内嵌的 goose 迁移，把库结构升级到最新版本。
func Migrate(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("unwrap db: %w", err)
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
