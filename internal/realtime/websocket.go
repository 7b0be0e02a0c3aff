package realtime

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/wayfarer-app/wayfarer-go/internal/models"
)

// WebsocketTransport dials the server's push endpoint over websocket and
// reads JSON event frames.
type WebsocketTransport struct {
	url    string
	dialer *websocket.Dialer
}

// NewWebsocketTransport creates a transport for the given ws:// or wss:// URL.
func NewWebsocketTransport(url string) *WebsocketTransport {
	return &WebsocketTransport{
		url:    url,
		dialer: websocket.DefaultDialer,
	}
}

// Dial opens the channel with a bearer-token handshake. A 401 handshake
// response maps to ErrUnauthorized so the manager knows not to retry.
func (t *WebsocketTransport) Dial(ctx context.Context, token string) (Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	c, resp, err := t.dialer.DialContext(ctx, t.url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return &wsConn{conn: c}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (w *wsConn) ReadEvent() (*models.PushEnvelope, error) {
	var env models.PushEnvelope
	if err := w.conn.ReadJSON(&env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}
