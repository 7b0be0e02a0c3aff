// Package devserver is an in-process reference implementation of the remote
// collaborators the sync core talks to: the notification API, the block
// API, the feed, and the push channel. It backs the demo binary and the
// integration tests; production clients point at the real backend instead.
package devserver

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/wayfarer-app/wayfarer-go/internal/models"
)

// Server wires the in-memory repositories, handlers, and push hub behind
// one http.Handler.
type Server struct {
	Users         *UserRepository
	Posts         *PostRepository
	Notifications *NotificationRepository
	Blocks        *BlockRepository
	Hub           *Hub

	echo   *echo.Echo
	secret []byte
}

// New creates a Server signing session tokens with secret.
func New(secret string) *Server {
	s := &Server{
		Users:         NewUserRepository(),
		Posts:         NewPostRepository(),
		Notifications: NewNotificationRepository(),
		Blocks:        NewBlockRepository(),
		Hub:           NewHub(),
		secret:        []byte(secret),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	api := e.Group("/api/v1")
	api.Use(authMiddleware(s.secret))

	NewNotificationHandler(s.Notifications).RegisterNotificationRoutes(api)
	NewBlockHandler(s.Blocks, s.Users).RegisterBlockRoutes(api)
	NewFeedHandler(s.Posts).RegisterFeedRoutes(api)
	api.GET("/realtime", s.Hub.HandleWS)

	s.echo = e
	return s
}

// Handler exposes the server for httptest or a net/http listener.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr, blocking.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// IssueToken signs a session token for userID, valid for 24h.
func (s *Server) IssueToken(userID string) (string, error) {
	return signToken(s.secret, userID, 24*time.Hour)
}

// CreateNotification stores a notification for the recipient and pushes it
// on their live channels. A missing id or timestamp is filled in.
func (s *Server) CreateNotification(recipientID string, n models.Notification) models.Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	s.Notifications.Create(recipientID, n)
	s.Hub.Push(recipientID, models.EventNotification, n)
	return n
}

// PushEvent sends an arbitrary named event to the user's live channels.
func (s *Server) PushEvent(userID, event string, v any) {
	s.Hub.Push(userID, event, v)
}
