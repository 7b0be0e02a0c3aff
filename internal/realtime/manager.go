// Package realtime owns the lifecycle of the push channel: a single
// bidirectional connection over which the server delivers notifications and
// live counter updates.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/wayfarer-app/wayfarer-go/internal/metrics"
	"github.com/wayfarer-app/wayfarer-go/internal/models"
)

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Handler receives the raw payload of one push event.
type Handler func(data json.RawMessage)

// Config tunes the reconnect policy. Zero values fall back to the defaults
// (5 attempts, 1s base delay, 5s cap).
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.BaseDelay == 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = 5 * time.Second
	}
	return c
}

// Manager owns one push channel and re-dispatches its events to registered
// listeners. All methods are safe for concurrent use. Pushed events are
// dispatched from a single reader goroutine, so handlers observe them in
// server-send order.
type Manager struct {
	transport Transport
	cfg       Config
	log       *slog.Logger
	metrics   *metrics.Metrics

	mu       sync.Mutex
	state    State
	token    string
	conn     Conn
	attempts int
	gen      int
	done     chan struct{}
	handlers map[string]map[int]Handler
	nextID   int
}

// NewManager creates a Manager using the given transport. logger and m may
// be nil.
func NewManager(transport Transport, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		transport: transport,
		cfg:       cfg.withDefaults(),
		log:       logger,
		metrics:   m,
		handlers:  make(map[string]map[int]Handler),
	}
}

// Connect opens the channel bound to token.
//
// Calling Connect with the token already in use while the channel is live
// (or being established) is a strict no-op: no teardown, no redial. A
// different token rebinds the channel, tearing down the old one first.
//
// A transport failure on the initial dial hands over to the background
// reconnect loop and returns nil; only an authentication rejection is
// returned as an error, since retrying a known-bad token cannot succeed.
func (m *Manager) Connect(ctx context.Context, token string) error {
	m.mu.Lock()
	switch m.state {
	case StateConnected, StateConnecting, StateReconnecting:
		if token == m.token {
			m.mu.Unlock()
			return nil
		}
		m.teardownLocked()
	}
	m.gen++
	gen := m.gen
	m.done = make(chan struct{})
	m.token = token
	m.attempts = 0
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	conn, err := m.transport.Dial(ctx, token)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			m.fail(gen, models.ReasonUnauthorized)
			return err
		}
		m.log.Warn("push channel dial failed, scheduling reconnect", "error", err)
		go m.reconnectLoop(gen)
		return nil
	}
	m.established(gen, conn)
	return nil
}

// Disconnect tears the channel down locally. No reconnect is scheduled.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.state == StateDisconnected {
		m.mu.Unlock()
		return
	}
	m.teardownLocked()
	m.setStateLocked(StateDisconnected)
	m.mu.Unlock()
	m.emit(models.EventDisconnected, models.DisconnectEvent{Reason: models.ReasonLocalClose})
}

// On registers a handler for the named event and returns its unsubscribe
// function.
func (m *Manager) On(event string, h Handler) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handlers[event] == nil {
		m.handlers[event] = make(map[int]Handler)
	}
	id := m.nextID
	m.nextID++
	m.handlers[event][id] = h
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.handlers[event], id)
	}
}

// IsConnected reports whether the channel is currently live.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateConnected
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentToken returns the token bound to the current or attempted
// connection, so callers can detect a would-be no-op reconnect.
func (m *Manager) CurrentToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Attempts returns the current reconnect attempt counter. It is zero while
// the channel is healthy.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// reconnectDelay is the schedule for the nth attempt: linear in the attempt
// number, capped at MaxDelay.
func (m *Manager) reconnectDelay(attempt int) time.Duration {
	d := time.Duration(attempt) * m.cfg.BaseDelay
	if d > m.cfg.MaxDelay {
		d = m.cfg.MaxDelay
	}
	return d
}

// established installs a freshly dialed conn for generation gen and starts
// its reader. A conn belonging to a torn-down generation is closed and
// dropped.
func (m *Manager) established(gen int, conn Conn) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		_ = conn.Close()
		return
	}
	m.conn = conn
	m.attempts = 0
	m.setStateLocked(StateConnected)
	m.mu.Unlock()

	m.log.Info("push channel connected")
	m.emit(models.EventConnected, nil)
	go m.readLoop(gen, conn)
}

func (m *Manager) readLoop(gen int, conn Conn) {
	for {
		env, err := conn.ReadEvent()
		if err != nil {
			m.mu.Lock()
			if gen != m.gen {
				// Local teardown already handled this conn.
				m.mu.Unlock()
				return
			}
			m.conn = nil
			m.mu.Unlock()
			m.log.Warn("push channel closed by server", "error", err)
			m.reconnectLoop(gen)
			return
		}
		if m.metrics != nil {
			m.metrics.PushEvents.WithLabelValues(env.Event).Inc()
		}
		m.dispatch(env.Event, env.Data)
	}
}

func (m *Manager) reconnectLoop(gen int) {
	for {
		m.mu.Lock()
		if gen != m.gen {
			m.mu.Unlock()
			return
		}
		m.attempts++
		attempt := m.attempts
		if attempt > m.cfg.MaxAttempts {
			m.setStateLocked(StateFailed)
			m.mu.Unlock()
			m.log.Error("push channel gave up", "attempts", attempt-1)
			m.emit(models.EventDisconnected, models.DisconnectEvent{Reason: models.ReasonMaxAttempts})
			return
		}
		m.setStateLocked(StateReconnecting)
		token := m.token
		done := m.done
		m.mu.Unlock()

		if m.metrics != nil {
			m.metrics.ReconnectAttempts.Inc()
		}

		select {
		case <-time.After(m.reconnectDelay(attempt)):
		case <-done:
			return
		}

		conn, err := m.transport.Dial(context.Background(), token)
		if err != nil {
			if errors.Is(err, ErrUnauthorized) {
				m.fail(gen, models.ReasonUnauthorized)
				return
			}
			m.log.Warn("push channel reconnect failed", "attempt", attempt, "error", err)
			continue
		}
		m.established(gen, conn)
		return
	}
}

// fail moves generation gen to the terminal Failed state.
func (m *Manager) fail(gen int, reason string) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.setStateLocked(StateFailed)
	m.mu.Unlock()
	m.log.Error("push channel failed", "reason", reason)
	m.emit(models.EventDisconnected, models.DisconnectEvent{Reason: reason})
}

// teardownLocked invalidates the current generation: the reader and any
// pending reconnect notice the bumped gen (or closed done) and exit.
func (m *Manager) teardownLocked() {
	m.gen++
	if m.done != nil {
		close(m.done)
		m.done = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.attempts = 0
}

func (m *Manager) setStateLocked(s State) {
	m.state = s
	if m.metrics != nil {
		m.metrics.ConnectionState.Set(float64(s))
	}
}

// emit marshals v and dispatches it to the event's handlers. A nil v
// dispatches an empty payload.
func (m *Manager) emit(event string, v any) {
	var data json.RawMessage
	if v != nil {
		b, err := json.Marshal(v)
		if err != nil {
			m.log.Error("marshaling event payload", "event", event, "error", err)
			return
		}
		data = b
	}
	m.dispatch(event, data)
}

// dispatch calls the registered handlers for event in registration order,
// outside the manager lock.
func (m *Manager) dispatch(event string, data json.RawMessage) {
	m.mu.Lock()
	ids := make([]int, 0, len(m.handlers[event]))
	for id := range m.handlers[event] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	hs := make([]Handler, len(ids))
	for i, id := range ids {
		hs[i] = m.handlers[event][id]
	}
	m.mu.Unlock()

	for _, h := range hs {
		h(data)
	}
}
