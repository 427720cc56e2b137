// Package cloud defines the cloud-client port the Supervisor depends on,
// and a Supabase-backed adapter: REST range-fetch for catch-up, and a
// Realtime websocket subscription for live events.
package cloud

import (
	"context"

	"github.com/metarelay/metarelay/internal/types"
)

// Subscription status values the adapter normalizes onto — whatever the
// backend's client library hands back (a bare string or a richer
// enum-like value), the adapter reduces it to one of these strings, or
// another implementation-specific string, before calling OnStatus.
const (
	StatusSubscribed = "SUBSCRIBED"
	StatusChannelErr = "CHANNEL_ERROR"
	StatusTimedOut   = "TIMED_OUT"
)

// OnEvent is invoked once per matching live event.
type OnEvent func(event *types.Event)

// OnStatus is invoked on every subscription state transition. err is
// non-nil only for error-class transitions.
type OnStatus func(status string, err error)

// Port is the abstract interface the Supervisor depends on. Every
// implementation must honor: fetch_events_since is only valid after
// connect(); subscribe drops events for repos outside the watched set
// silently; malformed push payloads are logged and dropped, never handed
// to OnEvent. The port does not define retry policy — that lives in the
// Supervisor.
type Port interface {
	// Connect establishes the underlying connection(s). Subsequent calls
	// are invalid until Disconnect is called.
	Connect(ctx context.Context) error

	// Disconnect tears down any open subscription (best-effort, errors
	// swallowed) and then the connection. Idempotent.
	Disconnect(ctx context.Context)

	// FetchEventsSince returns events for repo with id > afterID, ordered
	// by id ascending, at most limit items. An empty result means "no more
	// events right now" — the caller's signal to stop paginating.
	FetchEventsSince(ctx context.Context, repo string, afterID int64, limit int) ([]types.Event, error)

	// Subscribe opens a single push subscription filtered to INSERT-class
	// events on the backing table, scoped to repos. It blocks only long
	// enough to establish the subscription; event delivery happens via
	// onEvent on whatever goroutine the backend delivers from.
	Subscribe(ctx context.Context, repos []string, onEvent OnEvent, onStatus OnStatus) error
}
