package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"resumebuilder/internal/draftsync"
)

// 编辑器保存时常会连续触发多次写事件，这里等文件稳定后再读取。
const settleDelay = 50 * time.Millisecond

// loadDraft 读取草稿文件；文件不存在或为空时返回空草稿。
func loadDraft(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// watchDraft 监听草稿所在目录（兼容先写临时文件再重命名的编辑器），
// 每次草稿变化后整体替换 store。无法解析的内容只记日志，保留上一次的草稿。
func watchDraft(ctx context.Context, path string, store *draftsync.Store, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			pending = time.After(settleDelay)
		case <-pending:
			pending = nil
			doc, err := loadDraft(target)
			if err != nil {
				logger.Warn("skip unreadable draft", slog.Any("error", err))
				continue
			}
			store.Replace(doc)
			logger.Debug("draft reloaded", slog.Int("keys", len(doc)))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", slog.Any("error", err))
		}
	}
}
