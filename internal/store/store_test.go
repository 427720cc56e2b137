package store

import (
	"path/filepath"
	"testing"

	"github.com/metarelay/metarelay/internal/types"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metarelay.db")
	st, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestCursorSetAndGet(t *testing.T) {
	st := openTestStore(t)

	pos, err := st.GetCursor("owner/repo")
	require.NoError(t, err)
	require.Nil(t, pos)

	require.NoError(t, st.SetCursor("owner/repo", 5))
	pos, err = st.GetCursor("owner/repo")
	require.NoError(t, err)
	require.NotNil(t, pos)
	require.Equal(t, int64(5), pos.LastEventID)

	require.NoError(t, st.SetCursor("owner/repo", 7))
	pos, err = st.GetCursor("owner/repo")
	require.NoError(t, err)
	require.Equal(t, int64(7), pos.LastEventID)
}

func TestCursorSetIsIdempotent(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.SetCursor("owner/repo", 5))
	require.NoError(t, st.SetCursor("owner/repo", 5))

	pos, err := st.GetCursor("owner/repo")
	require.NoError(t, err)
	require.Equal(t, int64(5), pos.LastEventID)
}

func TestCursorSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metarelay.db")

	st, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, st.SetCursor("owner/repo", 42))
	require.NoError(t, st.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	pos, err := reopened.GetCursor("owner/repo")
	require.NoError(t, err)
	require.NotNil(t, pos)
	require.Equal(t, int64(42), pos.LastEventID)
}

func TestLogEventDedup(t *testing.T) {
	st := openTestStore(t)
	event := &types.Event{ID: 1, Repo: "owner/repo", EventType: "check_run", Action: "completed"}

	has, err := st.HasEvent(1)
	require.NoError(t, err)
	require.False(t, has)

	require.NoError(t, st.LogEvent(event, types.HandlerResult{HandlerName: "h", Status: types.StatusSuccess}))

	has, err = st.HasEvent(1)
	require.NoError(t, err)
	require.True(t, has)
}

func TestLogEventIsIdempotent(t *testing.T) {
	st := openTestStore(t)
	event := &types.Event{ID: 1, Repo: "owner/repo", EventType: "check_run", Action: "completed"}

	require.NoError(t, st.LogEvent(event, types.HandlerResult{HandlerName: "first", Status: types.StatusSuccess}))
	require.NoError(t, st.LogEvent(event, types.HandlerResult{HandlerName: "second", Status: types.StatusFailure}))

	entries, err := st.RecentEventsForRepo("owner/repo")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "first", entries[0].HandlerName)
}

func TestRecentEventsForRepoOrdering(t *testing.T) {
	st := openTestStore(t)
	for _, id := range []int64{3, 1, 2} {
		event := &types.Event{ID: id, Repo: "owner/repo", EventType: "push", Action: "created"}
		require.NoError(t, st.LogEvent(event, types.HandlerResult{Status: types.StatusSuccess}))
	}

	entries, err := st.RecentEventsForRepo("owner/repo")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, []int64{1, 2, 3}, []int64{entries[0].RemoteID, entries[1].RemoteID, entries[2].RemoteID})
}
