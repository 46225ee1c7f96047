package draftsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_EmitsChanges(t *testing.T) {
	store := NewStore(map[string]any{"title": "CV"})

	var changes []Change
	unsubscribe := store.Subscribe(func(c Change) { changes = append(changes, c) })

	store.Set("summary", "hello")
	store.Merge(map[string]any{"skills": []any{"Go"}, "name": "Ada"})
	store.Merge(nil)
	store.Replace(map[string]any{"title": "New"})

	require.Len(t, changes, 3)
	assert.Equal(t, []string{"summary"}, changes[0].Keys)
	assert.Equal(t, []string{"name", "skills"}, changes[1].Keys)
	assert.Equal(t, "CV", changes[1].Snapshot["title"])
	assert.Nil(t, changes[2].Keys)
	assert.Equal(t, map[string]any{"title": "New"}, changes[2].Snapshot)

	unsubscribe()
	unsubscribe()
	store.Set("title", "ignored by subscriber")
	assert.Len(t, changes, 3)
}

func TestStore_SnapshotsAreIsolated(t *testing.T) {
	nested := map[string]any{"name": "Ada"}
	store := NewStore(nil)
	store.Set("personalInfo", nested)

	nested["name"] = "mutated by caller"
	snap := store.Snapshot()
	assert.Equal(t, "Ada", snap["personalInfo"].(map[string]any)["name"])

	snap["personalInfo"].(map[string]any)["name"] = "mutated snapshot"
	assert.Equal(t, "Ada", store.Snapshot()["personalInfo"].(map[string]any)["name"])
}
