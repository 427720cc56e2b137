package supervisor

import (
	"context"

	"github.com/metarelay/metarelay/internal/cloud"
	"github.com/metarelay/metarelay/internal/metrics"
	"github.com/metarelay/metarelay/internal/types"
)

// onEvent is the live push-subscription's event callback. It runs on
// whatever goroutine the cloud client delivers push events from and must
// perform only the bounded, non-blocking work handleEvent does (dedup
// check, registry match, dispatch-and-wait bounded by the handler timeout,
// log, cursor advance).
//
// A DispatchError here means a handler process never started; it is logged
// and otherwise ignored — the next live event or catch-up pass is
// unaffected. An EventStoreError cannot be propagated through this
// callback's signature (the Port contract is fire-and-forget), so since it
// is fatal to the supervisor cycle, it is logged at error level and treated
// as a connection loss, forcing the main cycle to reconnect and giving the
// operator a repeating, visible signal until the underlying persistence
// problem is fixed.
func (s *Supervisor) onEvent(event *types.Event) {
	repo := event.Repo

	if err := s.handleEvent(context.Background(), repo, event); err != nil {
		s.logger.Error().Err(err).Int64("event_id", event.ID).Str("repo", repo).Msg("live event handling failed")
		if isFatal(err) {
			s.tripConnectionLost()
		}
	}
}

// onStatus is the live push-subscription's status callback. CHANNEL_ERROR
// and TIMED_OUT trip the connection-lost event for the current cycle;
// every other status is logged and otherwise ignored.
// Callbacks arriving before the first cycle has called beginCycle are
// silently dropped.
func (s *Supervisor) onStatus(status string, err error) {
	switch status {
	case cloud.StatusSubscribed:
		metrics.SubscriptionUp.Set(1)
		s.logger.Info().Str("status", status).Msg("subscription status")
	case cloud.StatusChannelErr, cloud.StatusTimedOut:
		metrics.SubscriptionUp.Set(0)
		s.logger.Warn().Str("status", status).AnErr("cause", err).Msg("subscription lost")
		s.tripConnectionLost()
	default:
		s.logger.Info().Str("status", status).Msg("subscription status")
	}
}

// tripConnectionLost signals the current cycle's connection-lost event, if
// one has been initialized. Safe to call multiple times; only the first
// call per cycle has any effect.
func (s *Supervisor) tripConnectionLost() {
	s.mu.Lock()
	ch := s.connLost
	once := s.connLostOnce
	s.mu.Unlock()
	if ch == nil || once == nil {
		return
	}
	once.Do(func() { close(ch) })
}
