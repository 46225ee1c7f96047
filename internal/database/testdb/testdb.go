// Package testdb opens an in-memory SQLite database with the application schema
// for package tests.
package testdb

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resumebuilder/internal/database"
)

// Open 返回一个已完成建表的内存数据库，测试结束时自动关闭。
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sqlite: %v", err)
	}
	// 每个连接各自持有独立的内存库，限制为单连接保证表可见。
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&database.User{}, &database.Resume{}, &database.EnhancementHistory{}); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}
