package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/metarelay/metarelay/internal/cloud"
	"github.com/metarelay/metarelay/internal/config"
	"github.com/metarelay/metarelay/internal/dispatch"
	"github.com/metarelay/metarelay/internal/registry"
	"github.com/metarelay/metarelay/internal/store"
	"github.com/metarelay/metarelay/internal/types"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "metarelay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func enabled() *bool { b := true; return &b }

// recordingHandler returns a handler config that shell-appends an event's
// Ref to outFile, letting a test observe dispatch order and count without
// depending on process ordering guarantees beyond the shell's own.
func recordingHandler(outFile string) types.HandlerConfig {
	return types.HandlerConfig{
		Name:    "record",
		Event:   "push",
		Action:  "created",
		Command: fmt.Sprintf("echo {{ref}} >> %s", outFile),
		Timeout: 5,
		Enabled: enabled(),
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

func TestScenario1_CatchUpDispatchesInOrder(t *testing.T) {
	st := newTestStore(t)
	reg := registry.New()
	outFile := filepath.Join(t.TempDir(), "out.txt")
	reg.Register(recordingHandler(outFile))

	cfg := &config.Config{Repos: []types.RepoSpec{{Name: "owner/repo"}}}

	port := newFakePort()
	port.fetchPages["owner/repo"] = [][]types.Event{
		{
			{ID: 1, Repo: "owner/repo", EventType: "push", Action: "created", Ref: "1"},
			{ID: 2, Repo: "owner/repo", EventType: "push", Action: "created", Ref: "2"},
			{ID: 3, Repo: "owner/repo", EventType: "push", Action: "created", Ref: "3"},
		},
		{},
	}

	sup := New(cfg, st, reg, dispatch.New(), port)
	require.NoError(t, sup.RunSync(context.Background()))

	require.Equal(t, []string{"1", "2", "3"}, readLines(t, outFile))

	cursor, err := st.GetCursor("owner/repo")
	require.NoError(t, err)
	require.Equal(t, int64(3), cursor.LastEventID)
}

func TestScenario2_DedupAcrossCatchupAndLive(t *testing.T) {
	st := newTestStore(t)
	reg := registry.New()
	outFile := filepath.Join(t.TempDir(), "out.txt")
	reg.Register(recordingHandler(outFile))

	cfg := &config.Config{Repos: []types.RepoSpec{{Name: "owner/repo"}}}

	port := newFakePort()
	port.fetchPages["owner/repo"] = [][]types.Event{
		{{ID: 1, Repo: "owner/repo", EventType: "push", Action: "created", Ref: "1"}},
		{},
	}

	sup := New(cfg, st, reg, dispatch.New(), port)
	require.NoError(t, sup.RunSync(context.Background()))
	require.Equal(t, []string{"1"}, readLines(t, outFile))

	// Live delivery of the same event id, as the push callback would invoke it.
	sup.onEvent(&types.Event{ID: 1, Repo: "owner/repo", EventType: "push", Action: "created", Ref: "1"})

	require.Equal(t, []string{"1"}, readLines(t, outFile))
	cursor, err := st.GetCursor("owner/repo")
	require.NoError(t, err)
	require.Equal(t, int64(1), cursor.LastEventID)
}

func TestScenario3_FilterGatingCursorStillAdvances(t *testing.T) {
	st := newTestStore(t)
	reg := registry.New()
	outFile := filepath.Join(t.TempDir(), "out.txt")
	h := recordingHandler(outFile)
	h.Filters = []string{"payload.conclusion == 'failure'"}
	reg.Register(h)

	cfg := &config.Config{Repos: []types.RepoSpec{{Name: "owner/repo"}}}

	port := newFakePort()
	port.fetchPages["owner/repo"] = [][]types.Event{
		{{ID: 1, Repo: "owner/repo", EventType: "push", Action: "created", Ref: "1", Payload: map[string]any{"conclusion": "success"}}},
		{},
	}

	sup := New(cfg, st, reg, dispatch.New(), port)
	require.NoError(t, sup.RunSync(context.Background()))

	require.Empty(t, readLines(t, outFile))
	cursor, err := st.GetCursor("owner/repo")
	require.NoError(t, err)
	require.Equal(t, int64(1), cursor.LastEventID)
}

func TestScenario6_TemplateSubstitution(t *testing.T) {
	event := &types.Event{
		Repo:    "owner/repo",
		Ref:     "main",
		Payload: map[string]any{"conclusion": "failure"},
	}
	got := dispatch.ResolveTemplate("{{repo}} {{ref}} {{payload.conclusion}} {{payload.missing}}", event)
	require.Equal(t, "owner/repo main failure ", got)
}

func TestScenario4_ReconnectBackoffDoubling(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping real-time backoff test in short mode")
	}

	st := newTestStore(t)
	cfg := &config.Config{}
	port := newFakePort()

	var times []time.Time
	var sup *Supervisor
	port.subscribeFn = func(ctx context.Context, repos []string, onEvent cloud.OnEvent, onStatus cloud.OnStatus) error {
		times = append(times, time.Now())
		if len(times) >= 4 {
			sup.Shutdown()
		}
		onStatus(cloud.StatusChannelErr, errors.New("lost"))
		return errors.New("channel error")
	}

	sup = New(cfg, st, registry.New(), dispatch.New(), port)
	_ = sup.Run(context.Background())

	require.Len(t, times, 4)
	require.InDelta(t, 1.0, times[1].Sub(times[0]).Seconds(), 0.4)
	require.InDelta(t, 2.0, times[2].Sub(times[1]).Seconds(), 0.4)
	require.InDelta(t, 4.0, times[3].Sub(times[2]).Seconds(), 0.4)
}

func TestScenario5_BackoffResetsAfterCleanSubscribe(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping real-time backoff test in short mode")
	}

	st := newTestStore(t)
	cfg := &config.Config{}
	port := newFakePort()

	var times []time.Time
	var sup *Supervisor
	attempt := 0
	port.subscribeFn = func(ctx context.Context, repos []string, onEvent cloud.OnEvent, onStatus cloud.OnStatus) error {
		attempt++
		times = append(times, time.Now())
		switch attempt {
		case 1:
			onStatus(cloud.StatusChannelErr, errors.New("lost"))
			return errors.New("channel error")
		case 2:
			go func() {
				time.Sleep(100 * time.Millisecond)
				onStatus(cloud.StatusChannelErr, errors.New("lost after subscribe"))
			}()
			return nil
		default:
			sup.Shutdown()
			return errors.New("channel error")
		}
	}

	sup = New(cfg, st, registry.New(), dispatch.New(), port)
	_ = sup.Run(context.Background())

	require.Len(t, times, 3)
	require.InDelta(t, 1.0, times[1].Sub(times[0]).Seconds(), 0.4)
	// Reset after the clean second subscribe: third attempt follows ~1.0s
	// later (not the 2.0s it would be without a reset), measured from when
	// the connection-lost status fired rather than from the subscribe call.
	gap := times[2].Sub(times[1]).Seconds() - 0.1
	require.InDelta(t, 1.0, gap, 0.4)
}
