package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"resumebuilder/internal/errcode"
	"resumebuilder/internal/parser"
	"resumebuilder/internal/storage"
	"resumebuilder/internal/tasks"
)

const eventTextExtract = "text_extract"

// ObjectReader 读取已上传的源文件。
type ObjectReader interface {
	ReadObject(ctx context.Context, objectKey string) ([]byte, error)
}

// TextStore 保存抽取结果，只作用于所有者的有效简历。
type TextStore interface {
	SetExtractedText(ctx context.Context, ownerID, resumeID uint, objectKey, text string) error
}

// ExtractTaskHandler 负责消费文本抽取任务。
type ExtractTaskHandler struct {
	objects   ObjectReader
	resumes   TextStore
	publisher Publisher
	logger    *slog.Logger
}

// NewExtractTaskHandler 创建任务处理器。
func NewExtractTaskHandler(objects ObjectReader, resumes TextStore, publisher Publisher, logger *slog.Logger) *ExtractTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractTaskHandler{
		objects:   objects,
		resumes:   resumes,
		publisher: publisher,
		logger:    logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *ExtractTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	payload, err := tasks.ParseTextExtractPayload(t)
	if err != nil {
		h.logger.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("resume_id", uint64(payload.ResumeID)),
		slog.Uint64("user_id", uint64(payload.UserID)),
	)
	log.Info("text extraction started", slog.String("object_key", payload.ObjectKey))

	notifyError := func(code int, message string) {
		msg := NotifyMessage{
			Event:         eventTextExtract,
			Status:        "error",
			ResumeID:      payload.ResumeID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     code,
			ErrorMessage:  message,
		}
		if err := publishNotify(ctx, h.publisher, payload.UserID, msg); err != nil {
			log.Error("publish extract error notification failed", slog.Any("error", err))
		}
	}

	// 可重试错误只在最后一次尝试失败时通知用户。
	defer func() {
		if retErr == nil || errors.Is(retErr, asynq.SkipRetry) || !isFinalAsynqAttempt(ctx) {
			return
		}
		notifyError(errcode.SystemError, strings.TrimSpace(retErr.Error()))
	}()

	if owner, ok := storage.SourceKeyOwner(payload.ObjectKey); !ok || owner != payload.UserID {
		log.Warn("object key does not belong to task user", slog.String("object_key", payload.ObjectKey))
		notifyError(errcode.Unsupported, "invalid source file")
		return fmt.Errorf("%w: foreign object key %q", asynq.SkipRetry, payload.ObjectKey)
	}

	data, err := h.objects.ReadObject(ctx, payload.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			log.Warn("source object missing, skipping task")
			notifyError(errcode.ResourceMissing, "source file no longer exists")
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		log.Error("read source object failed", slog.Any("error", err))
		return err
	}

	text, err := parser.Extract(payload.Filename, payload.ContentType, data)
	if err != nil {
		if errors.Is(err, errcode.ErrValidation) {
			log.Warn("source file not extractable", slog.Any("error", err))
			notifyError(errcode.Unsupported, errcode.Message(err))
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		log.Error("extract text failed", slog.Any("error", err))
		return err
	}

	if err := h.resumes.SetExtractedText(ctx, payload.UserID, payload.ResumeID, payload.ObjectKey, text); err != nil {
		if errors.Is(err, errcode.ErrNotFound) {
			log.Warn("resume gone or source replaced, skipping task")
			return nil
		}
		log.Error("store extracted text failed", slog.Any("error", err))
		return err
	}

	msg := NotifyMessage{
		Event:         eventTextExtract,
		Status:        "completed",
		ResumeID:      payload.ResumeID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
		TextLength:    len([]rune(text)),
	}
	if err := publishNotify(ctx, h.publisher, payload.UserID, msg); err != nil {
		// 文本已保存，通知失败不重试任务。
		log.Error("publish redis notification failed", slog.Any("error", err))
	}

	log.Info("text extraction completed", slog.Int("text_length", msg.TextLength))
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
