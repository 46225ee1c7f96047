package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumebuilder/internal/database/testdb"
	"resumebuilder/internal/errcode"
	"resumebuilder/internal/resume"
	"resumebuilder/internal/storage"
	"resumebuilder/internal/tasks"
)

type fakeObjects map[string][]byte

func (f fakeObjects) ReadObject(_ context.Context, key string) ([]byte, error) {
	data, ok := f[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrObjectNotFound, key)
	}
	return data, nil
}

type failingObjects struct{ err error }

func (f failingObjects) ReadObject(context.Context, string) ([]byte, error) { return nil, f.err }

type fakePublisher struct {
	mu       sync.Mutex
	channels []string
	messages []NotifyMessage
}

func (p *fakePublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	p.mu.Lock()
	defer p.mu.Unlock()
	var msg NotifyMessage
	_ = json.Unmarshal(message.([]byte), &msg)
	p.channels = append(p.channels, channel)
	p.messages = append(p.messages, msg)
	return redis.NewIntResult(1, nil)
}

func newTask(t *testing.T, p tasks.TextExtractPayload) *asynq.Task {
	t.Helper()
	task, err := tasks.NewTextExtractTask(p)
	require.NoError(t, err)
	return task
}

func TestExtractTask_StoresTextAndNotifies(t *testing.T) {
	store := resume.NewStore(testdb.Open(t))
	ctx := context.Background()
	r, err := store.Create(ctx, 5, resume.Patch{})
	require.NoError(t, err)
	require.NoError(t, store.AttachSource(ctx, 5, r.ID, "resume-sources/5/a.txt"))

	objects := fakeObjects{"resume-sources/5/a.txt": []byte("Jane   Doe\nGo developer")}
	pub := &fakePublisher{}
	h := NewExtractTaskHandler(objects, store, pub, nil)

	err = h.ProcessTask(ctx, newTask(t, tasks.TextExtractPayload{
		ResumeID: r.ID, UserID: 5, ObjectKey: "resume-sources/5/a.txt", Filename: "a.txt", CorrelationID: "cid-1",
	}))
	require.NoError(t, err)

	got, err := store.Get(ctx, 5, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nGo developer", got.ExtractedText)

	require.Len(t, pub.messages, 1)
	assert.Equal(t, "user_notify:5", pub.channels[0])
	assert.Equal(t, "completed", pub.messages[0].Status)
	assert.Equal(t, errcode.OK, pub.messages[0].ErrorCode)
	assert.Equal(t, "cid-1", pub.messages[0].CorrelationID)
}

func TestExtractTask_UnsupportedFileSkipsRetry(t *testing.T) {
	store := resume.NewStore(testdb.Open(t))
	ctx := context.Background()
	r, err := store.Create(ctx, 5, resume.Patch{})
	require.NoError(t, err)

	pub := &fakePublisher{}
	h := NewExtractTaskHandler(fakeObjects{"resume-sources/5/k.png": {1, 2, 3}}, store, pub, nil)

	err = h.ProcessTask(ctx, newTask(t, tasks.TextExtractPayload{
		ResumeID: r.ID, UserID: 5, ObjectKey: "resume-sources/5/k.png", Filename: "photo.png", ContentType: "image/png",
	}))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	require.Len(t, pub.messages, 1)
	assert.Equal(t, "error", pub.messages[0].Status)
	assert.Equal(t, errcode.Unsupported, pub.messages[0].ErrorCode)
}

func TestExtractTask_MissingObject(t *testing.T) {
	store := resume.NewStore(testdb.Open(t))
	pub := &fakePublisher{}
	h := NewExtractTaskHandler(fakeObjects{}, store, pub, nil)

	err := h.ProcessTask(context.Background(), newTask(t, tasks.TextExtractPayload{
		ResumeID: 1, UserID: 2, ObjectKey: "resume-sources/2/gone.txt", Filename: "a.txt",
	}))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	require.Len(t, pub.messages, 1)
	assert.Equal(t, errcode.ResourceMissing, pub.messages[0].ErrorCode)
}

func TestExtractTask_ResumeGoneIsSkipped(t *testing.T) {
	store := resume.NewStore(testdb.Open(t))
	ctx := context.Background()
	r, err := store.Create(ctx, 5, resume.Patch{})
	require.NoError(t, err)
	require.NoError(t, store.SoftDelete(ctx, 5, r.ID))

	pub := &fakePublisher{}
	h := NewExtractTaskHandler(fakeObjects{"resume-sources/5/k.txt": []byte("text")}, store, pub, nil)

	err = h.ProcessTask(ctx, newTask(t, tasks.TextExtractPayload{
		ResumeID: r.ID, UserID: 5, ObjectKey: "resume-sources/5/k.txt", Filename: "a.txt",
	}))
	assert.NoError(t, err)
	assert.Empty(t, pub.messages)
}

func TestExtractTask_ReplacedSourceIsSkipped(t *testing.T) {
	store := resume.NewStore(testdb.Open(t))
	ctx := context.Background()
	r, err := store.Create(ctx, 5, resume.Patch{})
	require.NoError(t, err)
	require.NoError(t, store.AttachSource(ctx, 5, r.ID, "resume-sources/5/new.txt"))
	require.NoError(t, store.SetExtractedText(ctx, 5, r.ID, "resume-sources/5/new.txt", "new text"))

	pub := &fakePublisher{}
	h := NewExtractTaskHandler(fakeObjects{"resume-sources/5/old.txt": []byte("old text")}, store, pub, nil)

	err = h.ProcessTask(ctx, newTask(t, tasks.TextExtractPayload{
		ResumeID: r.ID, UserID: 5, ObjectKey: "resume-sources/5/old.txt", Filename: "old.txt",
	}))
	assert.NoError(t, err)
	assert.Empty(t, pub.messages)

	got, err := store.Get(ctx, 5, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "new text", got.ExtractedText)
}

func TestExtractTask_TransientErrorRetries(t *testing.T) {
	store := resume.NewStore(testdb.Open(t))
	pub := &fakePublisher{}
	h := NewExtractTaskHandler(failingObjects{err: errors.New("connection reset")}, store, pub, nil)

	err := h.ProcessTask(context.Background(), newTask(t, tasks.TextExtractPayload{
		ResumeID: 1, UserID: 2, ObjectKey: "resume-sources/2/k.txt", Filename: "a.txt",
	}))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
	// 非 asynq 运行环境下无法判断是否最后一次尝试，不发送通知。
	assert.Empty(t, pub.messages)
}

func TestExtractTask_ForeignObjectKey(t *testing.T) {
	store := resume.NewStore(testdb.Open(t))
	pub := &fakePublisher{}
	objects := fakeObjects{"resume-sources/9/other.txt": []byte("someone else")}
	h := NewExtractTaskHandler(objects, store, pub, nil)

	err := h.ProcessTask(context.Background(), newTask(t, tasks.TextExtractPayload{
		ResumeID: 1, UserID: 2, ObjectKey: "resume-sources/9/other.txt", Filename: "a.txt",
	}))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	require.Len(t, pub.messages, 1)
	assert.Equal(t, "user_notify:2", pub.channels[0])
	assert.Equal(t, errcode.Unsupported, pub.messages[0].ErrorCode)
}

func TestExtractTask_BadPayload(t *testing.T) {
	h := NewExtractTaskHandler(fakeObjects{}, nil, &fakePublisher{}, nil)
	err := h.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeTextExtract, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
