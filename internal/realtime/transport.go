package realtime

import (
	"context"
	"errors"

	"github.com/wayfarer-app/wayfarer-go/internal/models"
)

// ErrUnauthorized is returned by a Transport when the server rejects the
// token during the handshake. The manager treats it as terminal and never
// retries it.
var ErrUnauthorized = errors.New("push channel unauthorized")

// Conn is one live push channel. ReadEvent blocks until the server sends a
// frame or the channel dies.
type Conn interface {
	ReadEvent() (*models.PushEnvelope, error)
	Close() error
}

// Transport dials the push channel. The production implementation is
// WebsocketTransport; tests substitute an in-memory fake.
type Transport interface {
	Dial(ctx context.Context, token string) (Conn, error)
}
