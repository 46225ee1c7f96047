package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"

	"resumebuilder/internal/api/middleware"
	"resumebuilder/internal/errcode"
	"resumebuilder/internal/pagination"
	"resumebuilder/internal/parser"
	"resumebuilder/internal/resume"
	"resumebuilder/internal/storage"
	"resumebuilder/internal/tasks"
)

const maxJSONBodyBytes = 2 << 20

// TaskEnqueuer 是 asynq.Client 的子集。
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ObjectUploader 是 storage.Client 的子集。
type ObjectUploader interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// ResumeHandler 负责简历的增删改查与源文件上传。
type ResumeHandler struct {
	resumes        *resume.Store
	queue          TaskEnqueuer
	objects        ObjectUploader
	scanner        VirusScanner
	maxUploadBytes int64
	maxRetry       int
}

func NewResumeHandler(store *resume.Store, queue TaskEnqueuer, objects ObjectUploader, scanner VirusScanner, maxUploadBytes int64, maxRetry int) *ResumeHandler {
	return &ResumeHandler{
		resumes:        store,
		queue:          queue,
		objects:        objects,
		scanner:        scanner,
		maxUploadBytes: maxUploadBytes,
		maxRetry:       maxRetry,
	}
}

// readPatch 读取请求体并解析为部分更新，空请求体视为 {}。
func readPatch(c *gin.Context) (resume.Patch, error) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxJSONBodyBytes))
	if err != nil {
		return resume.Patch{}, errcode.Validation("request body too large")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}
	return resume.ParsePatch(body)
}

// CreateResume 新建简历，未提供的字段保持为空。
func (h *ResumeHandler) CreateResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	patch, err := readPatch(c)
	if err != nil {
		RespondError(c, err)
		return
	}

	created, err := h.resumes.Create(c.Request.Context(), userID, patch)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListResumes 分页返回当前用户的有效简历，最近更新的在前。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	page := pagination.Parse(c.Query("page"), c.Query("limit"))
	items, meta, err := h.resumes.List(c.Request.Context(), userID, page)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resumes": items, "pagination": meta})
}

func (h *ResumeHandler) GetResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		NotFound(c, "resume not found")
		return
	}

	found, err := h.resumes.Get(c.Request.Context(), userID, id)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

// UpdateResume 只修改请求中出现的字段，显式 null 清空对应字段。
func (h *ResumeHandler) UpdateResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		NotFound(c, "resume not found")
		return
	}

	patch, err := readPatch(c)
	if err != nil {
		RespondError(c, err)
		return
	}

	updated, err := h.resumes.Update(c.Request.Context(), userID, id, patch)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		NotFound(c, "resume not found")
		return
	}

	if err := h.resumes.SoftDelete(c.Request.Context(), userID, id); err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "resume deleted"})
}

// Suggestions 返回最近一份简历中可复用的字段。
func (h *ResumeHandler) Suggestions(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	suggestions, err := h.resumes.Suggestions(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestions)
}

// UploadSource 保存简历源文件并投递异步文本抽取任务，结果通过 WebSocket 推送。
func (h *ResumeHandler) UploadSource(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	if h.queue == nil || h.objects == nil {
		Error(c, http.StatusServiceUnavailable, "file processing is not configured")
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		NotFound(c, "resume not found")
		return
	}

	ctx := c.Request.Context()
	logger := loggerFromContext(c).With(slog.Uint64("resume_id", uint64(id)))

	previousKey, err := h.resumes.SourceKey(ctx, userID, id)
	if err != nil {
		RespondError(c, err)
		return
	}

	file, err := readUpload(c, h.maxUploadBytes, h.scanner)
	if err != nil {
		RespondError(c, err)
		return
	}
	kind, ok := parser.DetectKind(file.Filename, file.ContentType)
	if !ok {
		BadRequest(c, "unsupported file type")
		return
	}

	objectKey := storage.SourceObjectKey(userID, file.Filename)
	if _, err := h.objects.UploadFile(ctx, objectKey, bytes.NewReader(file.Data), int64(len(file.Data)), kind.ContentType()); err != nil {
		logger.Error("upload source failed", slog.Any("error", err))
		Internal(c, "failed to upload file")
		return
	}

	// 先关联新 key 再入队：worker 只把文本写回当前关联的源文件。
	if err := h.resumes.AttachSource(ctx, userID, id, objectKey); err != nil {
		logger.Error("attach source object failed", slog.String("object_key", objectKey), slog.Any("error", err))
		h.discardObject(ctx, logger, objectKey)
		RespondError(c, err)
		return
	}

	task, err := tasks.NewTextExtractTask(tasks.TextExtractPayload{
		ResumeID:      id,
		UserID:        userID,
		ObjectKey:     objectKey,
		ContentType:   kind.ContentType(),
		Filename:      file.Filename,
		CorrelationID: middleware.CorrelationIDFromContext(ctx),
	}, asynq.MaxRetry(h.maxRetry))
	if err != nil {
		h.rollbackSource(ctx, logger, userID, id, previousKey, objectKey)
		RespondError(c, err)
		return
	}

	info, err := h.queue.EnqueueContext(ctx, task)
	if err != nil {
		logger.Error("enqueue text extract failed", slog.Any("error", err))
		h.rollbackSource(ctx, logger, userID, id, previousKey, objectKey)
		Internal(c, "failed to enqueue task")
		return
	}

	logger.Info("text extract enqueued", slog.String("task_id", info.ID), slog.String("object_key", objectKey))
	c.JSON(http.StatusAccepted, gin.H{"task_id": info.ID, "object_key": objectKey})
}

// rollbackSource 恢复之前关联的源文件并删除本次上传的对象。
func (h *ResumeHandler) rollbackSource(ctx context.Context, logger *slog.Logger, userID, id uint, previousKey, objectKey string) {
	if err := h.resumes.AttachSource(ctx, userID, id, previousKey); err != nil {
		logger.Warn("restore source object failed", slog.String("object_key", previousKey), slog.Any("error", err))
	}
	h.discardObject(ctx, logger, objectKey)
}

func (h *ResumeHandler) discardObject(ctx context.Context, logger *slog.Logger, objectKey string) {
	if err := h.objects.DeleteObject(ctx, objectKey); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		logger.Warn("cleanup source object failed", slog.String("object_key", objectKey), slog.Any("error", err))
	}
}
