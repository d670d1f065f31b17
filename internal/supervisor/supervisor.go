package supervisor

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hmiplocal/hculink/internal/hmip"
)

// State is the supervisor's connection lifecycle state.
type State string

const (
	StateDisconnected    State = "DISCONNECTED"
	StateConnecting      State = "CONNECTING"
	StateSnapshotLoading State = "SNAPSHOT_LOADING"
	StateListening       State = "LISTENING"
	StateReconnecting    State = "RECONNECTING"
	StateFailed          State = "FAILED"
)

const (
	defaultInitialDelay = 5 * time.Second
	defaultMaxDelay     = 60 * time.Second
)

// Link is the session surface the supervisor drives. Implemented by
// hmip.Client; a Link is single-use, so the supervisor obtains a fresh
// one from its factory for every attempt.
type Link interface {
	SetOnEvents(hmip.EventsFunc)
	Connect(ctx context.Context) error
	FetchSystemState(ctx context.Context) (*hmip.SystemState, error)
	Done() <-chan struct{}
	Err() error
	Close() error
}

// Factory builds an unconnected Link.
type Factory func() (Link, error)

// StateStore is the mirror surface the supervisor needs: snapshot load on
// connect, reset on loss.
type StateStore interface {
	LoadSnapshot(devices, groups map[string]map[string]interface{}, home map[string]interface{})
	Reset()
}

// Logger is the minimal logging interface the supervisor needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config tunes the reconnection policy. The delay doubles after each
// failed attempt up to MaxDelay, with a random jitter of at most
// JitterMax added so multiple clients do not reconnect in lockstep.
type Config struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	JitterMax    time.Duration

	// MaxAttempts caps consecutive failed attempts before the supervisor
	// gives up with StateFailed. Zero means retry forever.
	MaxAttempts int
}

func (c *Config) applyDefaults() {
	if c.InitialDelay <= 0 {
		c.InitialDelay = defaultInitialDelay
	}
	if c.MaxDelay < c.InitialDelay {
		c.MaxDelay = defaultMaxDelay
	}
}

// Supervisor keeps one hub session alive: connect, load the snapshot,
// listen until the link dies, then back off and start over.
type Supervisor struct {
	cfg     Config
	factory Factory
	store   StateStore
	logger  Logger

	onEvents   hmip.EventsFunc
	onSnapshot func(*hmip.SystemState)
	onLink     func(up bool)

	state atomic.Value // State

	mu      sync.Mutex
	current Link

	reconnects atomic.Uint64
}

func New(cfg Config, factory Factory, store StateStore, logger Logger) *Supervisor {
	cfg.applyDefaults()
	s := &Supervisor{
		cfg:     cfg,
		factory: factory,
		store:   store,
		logger:  logger,
	}
	s.state.Store(StateDisconnected)
	return s
}

// SetOnEvents registers the push event callback handed to every session.
// Must be called before Run.
func (s *Supervisor) SetOnEvents(fn hmip.EventsFunc) {
	s.onEvents = fn
}

// SetOnSnapshot registers a callback invoked after each snapshot load,
// including reconnects. Consumers use it to republish full state, since
// events missed during the outage are gone for good.
func (s *Supervisor) SetOnSnapshot(fn func(*hmip.SystemState)) {
	s.onSnapshot = fn
}

// SetOnLink registers a callback invoked on link up and down transitions.
func (s *Supervisor) SetOnLink(fn func(up bool)) {
	s.onLink = fn
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	return s.state.Load().(State)
}

// Reconnects returns the number of successful reconnections since start.
func (s *Supervisor) Reconnects() uint64 {
	return s.reconnects.Load()
}

// Client returns the live session, or nil when not listening. Callers
// must tolerate the session dying under them.
func (s *Supervisor) Client() Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Run drives the session lifecycle until ctx is cancelled or MaxAttempts
// consecutive failures occur.
func (s *Supervisor) Run(ctx context.Context) error {
	attempts := 0
	delay := s.cfg.InitialDelay
	sessions := 0

	for {
		if sessions == 0 && attempts == 0 {
			s.setState(StateConnecting)
		} else {
			s.setState(StateReconnecting)
		}

		link, err := s.attempt(ctx, sessions > 0)
		if err != nil {
			if ctx.Err() != nil {
				s.setState(StateDisconnected)
				return ctx.Err()
			}

			attempts++
			if s.cfg.MaxAttempts > 0 && attempts >= s.cfg.MaxAttempts {
				s.setState(StateFailed)
				return fmt.Errorf("supervisor: giving up after %d attempts: %w", attempts, err)
			}

			wait := delay + jitter(s.cfg.JitterMax)
			s.logger.Warn("connection attempt failed",
				"error", err,
				"attempt", attempts,
				"retry_in", wait.String())
			if !sleep(ctx, wait) {
				s.setState(StateDisconnected)
				return ctx.Err()
			}
			if delay *= 2; delay > s.cfg.MaxDelay {
				delay = s.cfg.MaxDelay
			}
			continue
		}

		// Healthy session: reset the backoff.
		attempts = 0
		delay = s.cfg.InitialDelay
		sessions++

		s.setState(StateListening)
		s.notifyLink(true)

		select {
		case <-ctx.Done():
			s.teardown(link)
			s.setState(StateDisconnected)
			s.notifyLink(false)
			return ctx.Err()
		case <-link.Done():
		}

		s.logger.Warn("link lost", "error", link.Err())
		s.teardown(link)
		s.notifyLink(false)

		// Events missed while disconnected are unrecoverable, so the
		// mirror must not serve stale state until the next snapshot.
		s.store.Reset()
		s.setState(StateReconnecting)

		if !sleep(ctx, s.cfg.InitialDelay+jitter(s.cfg.JitterMax)) {
			s.setState(StateDisconnected)
			return ctx.Err()
		}
	}
}

// attempt performs one full connect cycle: dial, fetch the snapshot, load
// the mirror.
func (s *Supervisor) attempt(ctx context.Context, reconnect bool) (Link, error) {
	link, err := s.factory()
	if err != nil {
		return nil, err
	}
	if s.onEvents != nil {
		link.SetOnEvents(s.onEvents)
	}

	if err := link.Connect(ctx); err != nil {
		return nil, err
	}

	s.setState(StateSnapshotLoading)
	state, err := link.FetchSystemState(ctx)
	if err != nil {
		link.Close() //nolint:errcheck
		return nil, fmt.Errorf("supervisor: load snapshot: %w", err)
	}

	s.store.LoadSnapshot(state.Devices, state.Groups, state.Home)
	s.logger.Info("system state loaded",
		"devices", len(state.Devices),
		"groups", len(state.Groups),
		"reconnect", reconnect)

	if reconnect {
		s.reconnects.Add(1)
	}
	if s.onSnapshot != nil {
		s.onSnapshot(state)
	}

	s.mu.Lock()
	s.current = link
	s.mu.Unlock()
	return link, nil
}

func (s *Supervisor) teardown(link Link) {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	link.Close() //nolint:errcheck
}

func (s *Supervisor) setState(state State) {
	if s.state.Swap(state) != state {
		s.logger.Debug("state changed", "state", string(state))
	}
}

func (s *Supervisor) notifyLink(up bool) {
	if s.onLink != nil {
		s.onLink(up)
	}
}

func jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max))) //nolint:gosec // backoff jitter needs no crypto strength
}

// sleep waits for d or until ctx is cancelled. Returns false on
// cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
