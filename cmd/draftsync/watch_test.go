package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumebuilder/internal/draftsync"
)

func TestLoadDraft(t *testing.T) {
	dir := t.TempDir()

	doc, err := loadDraft(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, doc)

	path := filepath.Join(dir, "draft.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"title":"CV"}`), 0o600))
	doc, err = loadDraft(path)
	require.NoError(t, err)
	assert.Equal(t, "CV", doc["title"])

	require.NoError(t, os.WriteFile(path, []byte(`{"title":`), 0o600))
	_, err = loadDraft(path)
	assert.Error(t, err)
}

func TestWatchDraft_ReplacesStoreOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "draft.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))

	store := draftsync.NewStore(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- watchDraft(ctx, path, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()

	// 等待监听建立后再写入。
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(`{"title":"Edited"}`), 0o600)
		time.Sleep(2 * settleDelay)
		return store.Snapshot()["title"] == "Edited"
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o600))
	time.Sleep(4 * settleDelay)
	assert.Equal(t, "Edited", store.Snapshot()["title"])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watchDraft did not stop")
	}
}
