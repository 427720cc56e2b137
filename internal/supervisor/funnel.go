package supervisor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/metarelay/metarelay/internal/metrics"
	"github.com/metarelay/metarelay/internal/rlog"
	"github.com/metarelay/metarelay/internal/types"
)

// catchUpPageSize bounds each range-fetch call during catch-up.
const catchUpPageSize = 100

// catchUp runs the paginated range-fetch procedure for every configured
// repo, in configuration order. A ConnectionError or
// DispatchError aborts the whole procedure immediately (the per-repo Open
// Question resolution documented in DESIGN.md); an EventStoreError is fatal
// to the supervisor cycle and is returned unchanged so the caller can
// recognize it.
func (s *Supervisor) catchUp(ctx context.Context) error {
	for _, repo := range s.cfg.RepoNames() {
		if err := s.catchUpRepo(ctx, repo); err != nil {
			return err
		}
	}
	return nil
}

func (s *Supervisor) catchUpRepo(ctx context.Context, repo string) error {
	logger := rlog.WithRepo(s.logger, repo)

	var afterID int64
	cursor, err := s.store.GetCursor(repo)
	if err != nil {
		return err
	}
	if cursor != nil {
		afterID = cursor.LastEventID
	}

	for {
		events, err := s.cloud.FetchEventsSince(ctx, repo, afterID, catchUpPageSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		for i := range events {
			event := events[i]
			if err := s.handleEvent(ctx, repo, &event); err != nil {
				logger.Error().Err(err).Int64("event_id", event.ID).Msg("catch-up aborted on event handling error")
				return err
			}
			afterID = event.ID
		}
	}
}

// handleEvent is the single funnel shared by catch-up and the live
// subscription callback. It returns a non-nil error only for a
// DispatchError (the handler process never
// started) or an EventStoreError (persistence failure) — a handler that ran
// and simply failed, timed out, or had a broken template is recorded as a
// HandlerResult, never returned as an error.
func (s *Supervisor) handleEvent(ctx context.Context, repo string, event *types.Event) error {
	logger := rlog.WithRepo(s.logger, repo)

	seen, err := s.store.HasEvent(event.ID)
	if err != nil {
		return err
	}
	if seen {
		logger.Debug().Int64("event_id", event.ID).Msg("duplicate event, skipping")
		metrics.EventsDedupedTotal.WithLabelValues(repo).Inc()
		return nil
	}

	s.appendEventFile(repo, event)

	matches := s.registry.Match(event)
	if len(matches) == 0 {
		logger.Debug().Int64("event_id", event.ID).Str("event_type", event.EventType).Str("action", event.Action).Msg("no handler matched")
	}

	for _, handler := range matches {
		hlogger := rlog.WithHandler(logger, handler.Name)

		result, err := s.dispatcher.Dispatch(ctx, handler, event)
		if err != nil {
			// Dispatch only returns an error for a DispatchError-class failure;
			// a handler that ran and failed is reported via result.Status.
			return err
		}

		metrics.EventsDispatchedTotal.WithLabelValues(repo, handler.Name, string(result.Status)).Inc()

		if result.Status == types.StatusSuccess {
			hlogger.Info().Int64("event_id", event.ID).Str("status", string(result.Status)).Float64("duration_seconds", result.DurationSeconds).Msg("handler dispatched")
		} else {
			hlogger.Warn().Int64("event_id", event.ID).Str("status", string(result.Status)).Float64("duration_seconds", result.DurationSeconds).Msg("handler did not succeed")
		}

		if err := s.store.LogEvent(event, result); err != nil {
			return err
		}
	}

	if err := s.store.SetCursor(repo, event.ID); err != nil {
		return err
	}
	metrics.CursorPosition.WithLabelValues(repo).Set(float64(event.ID))
	return nil
}

// appendEventFile best-effort appends event as one JSON line to the
// configured repo's local event file. Failure is logged, never propagated:
// this is a diagnostic side effect, not part of the dedup/dispatch
// contract.
func (s *Supervisor) appendEventFile(repo string, event *types.Event) {
	path := s.cfg.RepoPath(repo)
	if path == "" {
		return
	}
	logger := rlog.WithRepo(s.logger, repo)

	dir := filepath.Join(path, ".metarelay")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		logger.Warn().Err(err).Msg("failed to create local event-file directory")
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to encode event for local event file")
		return
	}

	f, err := os.OpenFile(filepath.Join(dir, "events.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to open local event file")
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		logger.Warn().Err(err).Msg("failed to append to local event file")
	}
}
