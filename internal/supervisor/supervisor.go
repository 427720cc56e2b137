// Package supervisor implements the event-delivery daemon: the connect →
// catch-up → subscribe → wait → reconnect cycle, its exponential backoff,
// and the event-handling funnel shared by catch-up and the live push
// subscription. The run loop is a ticker-free state machine driven by
// subscription status (a mutex-guarded cycle with a stopCh for shutdown
// and a channel signaling connection loss between the subscribing
// goroutine and its caller) rather than a fixed polling interval.
package supervisor

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/metarelay/metarelay/internal/cloud"
	"github.com/metarelay/metarelay/internal/config"
	"github.com/metarelay/metarelay/internal/dispatch"
	"github.com/metarelay/metarelay/internal/errs"
	"github.com/metarelay/metarelay/internal/metrics"
	"github.com/metarelay/metarelay/internal/redact"
	"github.com/metarelay/metarelay/internal/registry"
	"github.com/metarelay/metarelay/internal/rlog"
	"github.com/metarelay/metarelay/internal/store"
	"github.com/rs/zerolog"
)

// Supervisor drives the full event-delivery lifecycle for the repos and
// handlers described by its configuration.
type Supervisor struct {
	cfg        *config.Config
	store      *store.Store
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	cloud      cloud.Port
	logger     zerolog.Logger

	mu    sync.Mutex
	state State

	shutdown     chan struct{}
	shutdownOnce sync.Once

	// connLost and connLostOnce are replaced at the top of every cycle so
	// that a status callback from a previous, already-abandoned connection
	// can never signal the current cycle's wait.
	connLost     chan struct{}
	connLostOnce *sync.Once
}

// New builds a Supervisor from its already-constructed collaborators.
func New(cfg *config.Config, st *store.Store, reg *registry.Registry, disp *dispatch.Dispatcher, port cloud.Port) *Supervisor {
	return &Supervisor{
		cfg:        cfg,
		store:      st,
		registry:   reg,
		dispatcher: disp,
		cloud:      port,
		logger:     rlog.WithComponent("supervisor"),
		state:      StateStopped,
		shutdown:   make(chan struct{}),
	}
}

// Shutdown sets the shutdown event. Safe to call from a signal handler or
// concurrently with Run; idempotent.
func (s *Supervisor) Shutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdown) })
}

// Run executes the full supervisor lifecycle: install signal handlers, then
// repeat connect → catch-up → subscribe → wait-for-shutdown-or-loss →
// (reconnect with backoff) until shutdown fires or a fatal error occurs.
// Returns nil on clean shutdown, or the fatal error (always an
// EventStoreError) otherwise.
func (s *Supervisor) Run(ctx context.Context) error {
	stopSignals := s.installSignalHandlers()
	defer stopSignals()

	bo := newBackoff()
	s.setState(StateStarting)

	var fatal error

cycle:
	for {
		select {
		case <-s.shutdown:
			break cycle
		default:
		}

		connLost, _ := s.beginCycle()

		if err := s.cloud.Connect(ctx); err != nil {
			s.logger.Error().Err(redact.Error(err)).Msg("connect failed")
			s.setState(StateReconnecting)
			if s.sleepBackoff(ctx, bo) {
				break cycle
			}
			continue
		}

		s.setState(StateCatchingUp)
		if err := s.catchUp(ctx); err != nil {
			s.logger.Error().Err(redact.Error(err)).Msg("catch-up cycle aborted")
			s.cloud.Disconnect(ctx)
			if isFatal(err) {
				fatal = err
				break cycle
			}
			s.setState(StateReconnecting)
			if s.sleepBackoff(ctx, bo) {
				break cycle
			}
			continue
		}

		s.setState(StateLive)
		if err := s.cloud.Subscribe(ctx, s.cfg.RepoNames(), s.onEvent, s.onStatus); err != nil {
			s.logger.Warn().Err(redact.Error(err)).Msg("subscribe failed")
		} else {
			bo.reset()
		}

		shutdownFired := s.waitShutdownOrLoss(ctx, connLost)
		s.cloud.Disconnect(ctx)
		metrics.SubscriptionUp.Set(0)

		if shutdownFired {
			break cycle
		}

		metrics.ReconnectsTotal.Inc()
		s.setState(StateReconnecting)
		if s.sleepBackoff(ctx, bo) {
			break cycle
		}
	}

	if fatal != nil {
		s.setState(StateError)
	}
	s.setState(StateShuttingDown)
	s.cloud.Disconnect(ctx)
	s.setState(StateStopped)
	return fatal
}

// RunSync performs connect → catch-up → disconnect only: no subscription,
// no signal installation, no reconnect loop. Used by the one-shot sync CLI
// command.
func (s *Supervisor) RunSync(ctx context.Context) error {
	s.setState(StateStarting)

	if err := s.cloud.Connect(ctx); err != nil {
		s.setState(StateError)
		return err
	}
	defer s.cloud.Disconnect(ctx)

	s.setState(StateCatchingUp)
	if err := s.catchUp(ctx); err != nil {
		s.setState(StateError)
		return err
	}

	s.setState(StateStopped)
	return nil
}

// beginCycle clears the connection-lost event for a fresh cycle.
func (s *Supervisor) beginCycle() (chan struct{}, *sync.Once) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connLost = make(chan struct{})
	s.connLostOnce = &sync.Once{}
	return s.connLost, s.connLostOnce
}

// waitShutdownOrLoss races the shutdown and connection-lost events (plus
// context cancellation) and reports whether shutdown (or cancellation) won.
func (s *Supervisor) waitShutdownOrLoss(ctx context.Context, connLost chan struct{}) bool {
	select {
	case <-s.shutdown:
		return true
	case <-connLost:
		return false
	case <-ctx.Done():
		return true
	}
}

// sleepBackoff sleeps for the next backoff interval, waking early (and
// reporting true) if shutdown fires or ctx is cancelled first.
func (s *Supervisor) sleepBackoff(ctx context.Context, bo *backoff) bool {
	d := bo.next()
	s.logger.Info().Dur("backoff", d).Msg("sleeping before reconnect")
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return false
	case <-s.shutdown:
		return true
	case <-ctx.Done():
		return true
	}
}

func isFatal(err error) bool {
	var storeErr *errs.EventStoreError
	return errors.As(err, &storeErr)
}

func (s *Supervisor) installSignalHandlers() (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			s.logger.Info().Msg("received shutdown signal")
			s.Shutdown()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}
