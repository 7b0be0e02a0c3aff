package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfarer-app/wayfarer-go/internal/models"
)

type fakeConn struct {
	events    chan *models.PushEnvelope
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		events: make(chan *models.PushEnvelope, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadEvent() (*models.PushEnvelope, error) {
	select {
	case env := <-c.events:
		return env, nil
	case <-c.closed:
		return nil, io.EOF
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) push(event string, v any) {
	data, _ := json.Marshal(v)
	c.events <- &models.PushEnvelope{Event: event, Data: data}
}

type fakeTransport struct {
	mu        sync.Mutex
	dials     int
	failDials int // the first failDials dials are refused
	authErr   bool
	conns     []*fakeConn
}

func (t *fakeTransport) Dial(ctx context.Context, token string) (Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dials++
	if t.authErr {
		return nil, ErrUnauthorized
	}
	if t.dials <= t.failDials {
		return nil, errors.New("dial refused")
	}
	conn := newFakeConn()
	t.conns = append(t.conns, conn)
	return conn, nil
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

func (t *fakeTransport) lastConn() *fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conns[len(t.conns)-1]
}

func fastConfig() Config {
	return Config{BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestConnectEstablishesChannel(t *testing.T) {
	ft := &fakeTransport{}
	m := NewManager(ft, fastConfig(), nil, nil)

	var connected int
	m.On(models.EventConnected, func(json.RawMessage) { connected++ })

	require.NoError(t, m.Connect(context.Background(), "token-1"))
	require.True(t, m.IsConnected())
	assert.Equal(t, StateConnected, m.State())
	assert.Equal(t, "token-1", m.CurrentToken())
	assert.Equal(t, 0, m.Attempts())
	assert.Equal(t, 1, ft.dialCount())
	assert.Equal(t, 1, connected)
}

func TestConnectSameTokenIsNoOp(t *testing.T) {
	ft := &fakeTransport{}
	m := NewManager(ft, fastConfig(), nil, nil)

	var events int
	m.On(models.EventConnected, func(json.RawMessage) { events++ })
	m.On(models.EventDisconnected, func(json.RawMessage) { events++ })

	require.NoError(t, m.Connect(context.Background(), "token-1"))
	require.NoError(t, m.Connect(context.Background(), "token-1"))
	require.NoError(t, m.Connect(context.Background(), "token-1"))

	assert.Equal(t, 1, ft.dialCount(), "same-token connect must not redial")
	assert.Equal(t, 1, events, "same-token connect must not emit lifecycle events")
	assert.True(t, m.IsConnected())
}

func TestConnectNewTokenRebindsChannel(t *testing.T) {
	ft := &fakeTransport{}
	m := NewManager(ft, fastConfig(), nil, nil)

	require.NoError(t, m.Connect(context.Background(), "token-1"))
	first := ft.lastConn()
	require.NoError(t, m.Connect(context.Background(), "token-2"))

	assert.Equal(t, 2, ft.dialCount())
	assert.Equal(t, "token-2", m.CurrentToken())
	select {
	case <-first.closed:
	default:
		t.Fatal("old channel should have been torn down")
	}
}

func TestReconnectDelaysAreLinearAndCapped(t *testing.T) {
	m := NewManager(&fakeTransport{}, Config{}, nil, nil)
	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		3 * time.Second,
		4 * time.Second,
		5 * time.Second,
	}
	for i, d := range want {
		assert.Equal(t, d, m.reconnectDelay(i+1), "attempt %d", i+1)
	}
	// Past the cap the delay stays flat.
	assert.Equal(t, 5*time.Second, m.reconnectDelay(7))
}

func TestExhaustedAttemptsReachFailed(t *testing.T) {
	ft := &fakeTransport{failDials: 100}
	m := NewManager(ft, fastConfig(), nil, nil)

	var mu sync.Mutex
	var reason string
	m.On(models.EventDisconnected, func(data json.RawMessage) {
		var ev models.DisconnectEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		mu.Lock()
		reason = ev.Reason
		mu.Unlock()
	})

	require.NoError(t, m.Connect(context.Background(), "token-1"))
	require.Eventually(t, func() bool {
		return m.State() == StateFailed
	}, time.Second, time.Millisecond)

	// Initial dial plus five scheduled reconnects; the sixth attempt fails
	// terminally without dialing.
	assert.Equal(t, 6, ft.dialCount())
	mu.Lock()
	assert.Equal(t, models.ReasonMaxAttempts, reason)
	mu.Unlock()

	// Failed is terminal: no further retries are scheduled.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 6, ft.dialCount())
}

func TestUnauthorizedIsTerminal(t *testing.T) {
	ft := &fakeTransport{authErr: true}
	m := NewManager(ft, fastConfig(), nil, nil)

	var mu sync.Mutex
	var reason string
	m.On(models.EventDisconnected, func(data json.RawMessage) {
		var ev models.DisconnectEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		mu.Lock()
		reason = ev.Reason
		mu.Unlock()
	})

	err := m.Connect(context.Background(), "bad-token")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, StateFailed, m.State())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, ft.dialCount(), "a rejected token must never be retried")
	mu.Lock()
	assert.Equal(t, models.ReasonUnauthorized, reason)
	mu.Unlock()
}

func TestServerCloseTriggersReconnect(t *testing.T) {
	ft := &fakeTransport{}
	m := NewManager(ft, fastConfig(), nil, nil)

	require.NoError(t, m.Connect(context.Background(), "token-1"))
	ft.lastConn().Close()

	require.Eventually(t, func() bool {
		return ft.dialCount() == 2 && m.IsConnected()
	}, time.Second, time.Millisecond)
	assert.Equal(t, 0, m.Attempts(), "attempt counter resets on success")
}

func TestLocalDisconnectSchedulesNoReconnect(t *testing.T) {
	ft := &fakeTransport{}
	m := NewManager(ft, fastConfig(), nil, nil)

	require.NoError(t, m.Connect(context.Background(), "token-1"))
	m.Disconnect()

	assert.Equal(t, StateDisconnected, m.State())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, ft.dialCount())
}

func TestPushEventsDispatchInOrder(t *testing.T) {
	ft := &fakeTransport{}
	m := NewManager(ft, fastConfig(), nil, nil)

	var mu sync.Mutex
	var got []string
	m.On(models.EventNotification, func(data json.RawMessage) {
		var v struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(data, &v))
		mu.Lock()
		got = append(got, v.ID)
		mu.Unlock()
	})

	require.NoError(t, m.Connect(context.Background(), "token-1"))
	conn := ft.lastConn()
	conn.push(models.EventNotification, map[string]string{"id": "n1"})
	conn.push(models.EventNotification, map[string]string{"id": "n2"})
	conn.push(models.EventNotification, map[string]string{"id": "n3"})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, time.Second, time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{"n1", "n2", "n3"}, got)
	mu.Unlock()
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	ft := &fakeTransport{}
	m := NewManager(ft, fastConfig(), nil, nil)

	var calls int
	unsub := m.On(models.EventConnected, func(json.RawMessage) { calls++ })
	unsub()

	require.NoError(t, m.Connect(context.Background(), "token-1"))
	assert.Equal(t, 0, calls)
}
