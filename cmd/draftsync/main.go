package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"resumebuilder/internal/config"
	"resumebuilder/internal/draftsync"
)

// 路由没有前缀，直接指向 API 服务的默认地址。
var defaultAPIURL = "http://localhost:" + strconv.Itoa(config.DefaultAPIPort)

func main() {
	_ = godotenv.Load()

	var (
		apiURL   = flag.String("api", envOr("DRAFTSYNC_API_URL", defaultAPIURL), "API 根地址")
		file     = flag.String("file", "", "本地草稿 JSON 文件（必填）")
		email    = flag.String("email", os.Getenv("DRAFTSYNC_EMAIL"), "登录邮箱")
		password = flag.String("password", os.Getenv("DRAFTSYNC_PASSWORD"), "登录密码")
		token    = flag.String("token", os.Getenv("DRAFTSYNC_TOKEN"), "已有访问令牌，设置后跳过登录")
		location = flag.String("location", "", "编辑器地址，用于推断模板 ID，例如 /editor/template/2")
		resumeID = flag.Uint("resume-id", 0, "已存在的远端简历 ID")
		debounce = flag.Duration("debounce", draftsync.DefaultDebounce, "合并连续修改的等待时间")
	)
	flag.Parse()

	if *file == "" {
		log.Fatal("missing required flag: --file")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := draftsync.NewClient(*apiURL, nil)

	session := draftsync.NewSession(*token)
	if session.Token() == "" && *email != "" {
		t, err := client.Login(ctx, *email, *password)
		if err != nil {
			log.Fatalf("login: %v", err)
		}
		session.Set(t)
		logger.Info("signed in", slog.String("email", *email))
	}
	if session.Token() == "" {
		logger.Warn("no session; edits stay local until restart with credentials")
	}

	initial, err := loadDraft(*file)
	if err != nil {
		log.Fatalf("load draft: %v", err)
	}
	store := draftsync.NewStore(initial)

	r := draftsync.Init(draftsync.ReplicatorConfig{
		Store:    store,
		Target:   client,
		Session:  session,
		Notifier: draftsync.NotifierFunc(func(msg string) { logger.Warn(msg) }),
		OnUnauthorized: func() {
			logger.Error("session expired; sign in again to resume syncing")
		},
		Location: func() string { return *location },
		Debounce: *debounce,
		ResumeID: *resumeID,
		Logger:   logger,
	})

	logger.Info("watching draft", slog.String("file", *file), slog.String("api", *apiURL))
	if err := watchDraft(ctx, *file, store, logger); err != nil {
		logger.Error("watch draft failed", slog.Any("error", err))
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.FlushPending(flushCtx); err != nil {
		logger.Warn("final flush failed", slog.Any("error", err))
	}
	draftsync.Teardown()
	if id := r.ResumeID(); id != 0 {
		logger.Info("draftsync stopped", slog.Uint64("resume_id", uint64(id)))
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
