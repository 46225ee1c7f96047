// Package enhance 调用外部模型润色简历文本，并记录润色历史。
package enhance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"resumebuilder/internal/database"
	"resumebuilder/internal/errcode"
	"resumebuilder/internal/metrics"
	"resumebuilder/internal/resume"
)

const maxInputLength = 20000

// Enhancer 是外部润色模型的抽象。
type Enhancer interface {
	Enhance(ctx context.Context, section, text string) (string, error)
	Model() string
}

type Request struct {
	Section  string          `json:"section" binding:"required,max=64"`
	Data     json.RawMessage `json:"data" binding:"required"`
	ResumeID *uint           `json:"resume_id"`
}

type Result struct {
	Enhanced         string `json:"enhanced"`
	HistoryID        uint   `json:"history_id"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
	Model            string `json:"model"`
}

// Service 在 enhancer 为 nil 时处于不可用状态。
type Service struct {
	db       *gorm.DB
	resumes  *resume.Store
	enhancer Enhancer
	timeout  time.Duration
	logger   *slog.Logger
}

func NewService(db *gorm.DB, enhancer Enhancer, timeout time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:       db,
		resumes:  resume.NewStore(db),
		enhancer: enhancer,
		timeout:  timeout,
		logger:   logger,
	}
}

// Enhance 调用模型并追加一条历史记录。
func (s *Service) Enhance(ctx context.Context, userID uint, req Request) (*Result, error) {
	if s.enhancer == nil {
		return nil, errcode.Unavailable("enhancement is not configured")
	}

	section := strings.ToLower(strings.TrimSpace(req.Section))
	if section == "" {
		return nil, errcode.Validation("section is required")
	}
	text, err := inputText(req.Data)
	if err != nil {
		return nil, err
	}
	if req.ResumeID != nil {
		if err := s.resumes.Exists(ctx, userID, *req.ResumeID); err != nil {
			return nil, err
		}
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	enhanced, err := s.enhancer.Enhance(callCtx, section, text)
	elapsed := time.Since(start)
	metrics.ObserveEnhance(section, elapsed, err)
	if err != nil {
		s.logger.Error("enhance call failed",
			slog.String("section", section),
			slog.Uint64("user_id", uint64(userID)),
			slog.Any("error", err),
		)
		return nil, errcode.Upstream("enhancement failed")
	}

	record := database.EnhancementHistory{
		UserID:           userID,
		ResumeID:         req.ResumeID,
		SectionType:      section,
		OriginalText:     text,
		EnhancedText:     enhanced,
		ProcessingTimeMs: elapsed.Milliseconds(),
		ModelName:        s.enhancer.Model(),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("record enhancement: %w", err)
	}

	return &Result{
		Enhanced:         enhanced,
		HistoryID:        record.ID,
		ProcessingTimeMs: record.ProcessingTimeMs,
		Model:            record.ModelName,
	}, nil
}

// Rate 由记录所有者打分，取值 1..5。
func (s *Service) Rate(ctx context.Context, userID, historyID uint, rating int) error {
	if rating < 1 || rating > 5 {
		return errcode.Validation("rating must be between 1 and 5")
	}
	res := s.db.WithContext(ctx).Model(&database.EnhancementHistory{}).
		Where("id = ? AND user_id = ?", historyID, userID).
		Update("user_rating", rating)
	if res.Error != nil {
		return fmt.Errorf("rate enhancement: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errcode.NotFound("enhancement not found")
	}
	return nil
}

// inputText 字符串原样使用，其他 JSON 值压缩后作为输入。
func inputText(data json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", errcode.Validation("data is required")
	}

	var text string
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return "", errcode.Validation("invalid data")
		}
	} else {
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return "", errcode.Validation("invalid data")
		}
		text = buf.String()
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errcode.Validation("data is required")
	}
	if len([]rune(text)) > maxInputLength {
		return "", errcode.Validation("data exceeds %d characters", maxInputLength)
	}
	return text, nil
}
