package supervisor

import (
	"context"
	"sync"

	"github.com/metarelay/metarelay/internal/cloud"
	"github.com/metarelay/metarelay/internal/types"
)

// fakePort is a scriptable cloud.Port for exercising the supervisor's main
// cycle without a real Supabase backend.
type fakePort struct {
	mu sync.Mutex

	fetchPages map[string][][]types.Event
	fetchCalls map[string]int

	connectErr  error
	connects    int
	disconnects int

	subscribeFn func(ctx context.Context, repos []string, onEvent cloud.OnEvent, onStatus cloud.OnStatus) error
}

func newFakePort() *fakePort {
	return &fakePort{
		fetchPages: map[string][][]types.Event{},
		fetchCalls: map[string]int{},
	}
}

func (f *fakePort) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return f.connectErr
}

func (f *fakePort) Disconnect(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
}

func (f *fakePort) FetchEventsSince(ctx context.Context, repo string, afterID int64, limit int) ([]types.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pages := f.fetchPages[repo]
	idx := f.fetchCalls[repo]
	f.fetchCalls[repo] = idx + 1
	if idx >= len(pages) {
		return nil, nil
	}
	return pages[idx], nil
}

func (f *fakePort) Subscribe(ctx context.Context, repos []string, onEvent cloud.OnEvent, onStatus cloud.OnStatus) error {
	if f.subscribeFn == nil {
		return nil
	}
	return f.subscribeFn(ctx, repos, onEvent, onStatus)
}
