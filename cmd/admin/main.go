package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"resumebuilder/internal/auth"
	"resumebuilder/internal/config"
	"resumebuilder/internal/database"
	"resumebuilder/internal/errcode"
	"resumebuilder/internal/users"
)

func main() {
	var (
		email   = flag.String("email", "", "管理员邮箱（必填）")
		name    = flag.String("name", "Administrator", "新建账号时使用的姓名")
		dbFlags databaseFlags
	)
	flag.StringVar(&dbFlags.host, "db-host", "", "数据库 Host（默认读 DATABASE_HOST）")
	flag.IntVar(&dbFlags.port, "db-port", 0, "数据库 Port（默认读 DATABASE_PORT）")
	flag.StringVar(&dbFlags.name, "db-name", "", "数据库名（默认读 POSTGRES_DB）")
	flag.StringVar(&dbFlags.user, "db-user", "", "数据库用户（默认读 POSTGRES_USER）")
	flag.StringVar(&dbFlags.password, "db-password", "", "数据库密码（默认读 POSTGRES_PASSWORD）")
	flag.StringVar(&dbFlags.sslmode, "db-sslmode", "", "数据库 SSLMODE（默认读 DATABASE_SSLMODE）")
	flag.Parse()

	addr := users.NormalizeEmail(*email)
	if addr == "" {
		log.Fatal("missing required flag: --email")
	}
	if !users.ValidEmail(addr) {
		log.Fatalf("invalid email: %q", addr)
	}

	dbCfg, err := loadDatabaseConfig(dbFlags)
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	ctx := context.Background()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	store := users.NewStore(db)

	// 已存在的账号只提升角色，不改密码。
	existing, err := store.FindByEmail(ctx, addr)
	switch {
	case err == nil:
		if _, err := store.SetRole(ctx, existing.ID, database.RoleAdmin); err != nil {
			log.Fatalf("promote user: %v", err)
		}
		fmt.Printf("已将现有账号提升为管理员：%s (id=%d)\n", existing.Email, existing.ID)
		return
	case errors.Is(err, errcode.ErrNotFound):
	default:
		log.Fatalf("query user: %v", err)
	}

	password, err := generateRandomPassword(24)
	if err != nil {
		log.Fatalf("generate password: %v", err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	user, err := store.Create(ctx, *name, addr, hashed)
	if err != nil {
		log.Fatalf("create user: %v", err)
	}
	if _, err := store.SetRole(ctx, user.ID, database.RoleAdmin); err != nil {
		log.Fatalf("promote user: %v", err)
	}

	fmt.Printf("已创建管理员账号：\n")
	fmt.Printf("邮箱: %s\n", user.Email)
	fmt.Printf("初始密码: %s\n", password)
	fmt.Printf("提示：请登录后通过 PUT /auth/password 修改密码（该密码仅显示一次）。\n")
}

// databaseFlags 覆盖环境变量中的数据库配置，空值表示沿用环境变量。
type databaseFlags struct {
	host     string
	port     int
	name     string
	user     string
	password string
	sslmode  string
}

func (f databaseFlags) apply(cfg config.DatabaseConfig) config.DatabaseConfig {
	override := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	override(&cfg.Host, f.host)
	override(&cfg.Name, f.name)
	override(&cfg.User, f.user)
	override(&cfg.Password, f.password)
	override(&cfg.SSLMode, f.sslmode)
	if f.port > 0 {
		cfg.Port = f.port
	}
	return cfg
}

func loadDatabaseConfig(flags databaseFlags) (config.DatabaseConfig, error) {
	cfg, err := config.LoadDatabase()
	if err != nil {
		return config.DatabaseConfig{}, err
	}
	cfg = flags.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return config.DatabaseConfig{}, err
	}
	return cfg, nil
}

func generateRandomPassword(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		bytesLen = 24
	}
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
