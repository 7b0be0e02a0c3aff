// Package session wires the sync core together for one login. The session
// is an explicitly constructed container: created at login, passed by
// reference to consumers, torn down at logout. Nothing in it is ambient
// process state.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wayfarer-app/wayfarer-go/internal/apiclient"
	"github.com/wayfarer-app/wayfarer-go/internal/feedcache"
	"github.com/wayfarer-app/wayfarer-go/internal/metrics"
	"github.com/wayfarer-app/wayfarer-go/internal/models"
	"github.com/wayfarer-app/wayfarer-go/internal/notifications"
	"github.com/wayfarer-app/wayfarer-go/internal/realtime"
	"github.com/wayfarer-app/wayfarer-go/internal/visibility"
)

// Config configures one session.
type Config struct {
	ServerURL    string
	PushURL      string
	Token        string
	PollInterval time.Duration // unread reconciliation interval, default 60s

	// Transport overrides the websocket transport; tests use a fake.
	Transport realtime.Transport
	// Registry receives the session's metric collectors when non-nil.
	Registry prometheus.Registerer
	Logger   *slog.Logger
}

// Session owns the connection manager, notification store, visibility
// ledger, and feed cache for one authenticated user.
type Session struct {
	cfg     Config
	log     *slog.Logger
	Metrics *metrics.Metrics

	Manager *realtime.Manager
	Store   *notifications.Store
	Cache   *feedcache.Cache
	Ledger  *visibility.Ledger

	users apiclient.UserAPI
	feed  apiclient.FeedAPI

	mu               sync.Mutex
	onConnectionLost func(reason string)

	unsubs    []func()
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New builds a session from cfg without touching the network.
func New(cfg Config) *Session {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := metrics.New(cfg.Registry)
	client := apiclient.NewClient(cfg.ServerURL, cfg.Token)
	cache := feedcache.New()

	transport := cfg.Transport
	if transport == nil {
		transport = realtime.NewWebsocketTransport(cfg.PushURL)
	}

	return &Session{
		cfg:     cfg,
		log:     logger,
		Metrics: m,
		Manager: realtime.NewManager(transport, realtime.Config{}, logger, m),
		Store:   notifications.NewStore(apiclient.NewNotificationAPI(client), logger, m),
		Cache:   cache,
		Ledger:  visibility.NewLedger(apiclient.NewBlockAPI(client), cache, logger),
		users:   apiclient.NewUserAPI(client),
		feed:    apiclient.NewFeedAPI(client),
	}
}

// OnConnectionLost sets the callback invoked when the push channel is gone
// for good (max attempts exhausted or token rejected). Local Disconnect does
// not trigger it.
func (s *Session) OnConnectionLost(fn func(reason string)) {
	s.mu.Lock()
	s.onConnectionLost = fn
	s.mu.Unlock()
}

// Start connects the push channel, subscribes the push handlers, loads the
// first notification page, and launches the unread reconciliation loop.
func (s *Session) Start(ctx context.Context) error {
	s.subscribe()

	if err := s.Manager.Connect(ctx, s.cfg.Token); err != nil {
		return fmt.Errorf("connecting push channel: %w", err)
	}

	if err := s.Store.FetchPage(ctx, 1, 20); err != nil {
		// The channel is up; the poller and pushes will converge the store.
		s.log.Warn("initial notification fetch failed", "error", err)
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.pollLoop(pollCtx)
	return nil
}

// Close tears the session down: poller stopped, handlers unsubscribed,
// channel disconnected. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		for _, unsub := range s.unsubs {
			unsub()
		}
		s.unsubs = nil
		s.Manager.Disconnect()
		s.wg.Wait()
	})
}

// LoadFeed fetches the home timeline and projects it into the cache.
func (s *Session) LoadFeed(ctx context.Context, page, limit int) error {
	posts, err := s.feed.Feed(ctx, page, limit)
	if err != nil {
		return fmt.Errorf("loading feed: %w", err)
	}
	s.Cache.Update(func(tx *feedcache.Txn) {
		ids := make([]string, len(posts))
		for i, p := range posts {
			tx.PutPost(p)
			ids[i] = p.ID
		}
		if page <= 1 {
			tx.SetTimeline(feedcache.TimelineHome, ids)
		} else {
			tx.AppendTimeline(feedcache.TimelineHome, ids...)
		}
	})
	return nil
}

// LoadProfile fetches a profile directly, caches it, and absorbs its
// server-reported block flags into the ledger.
func (s *Session) LoadProfile(ctx context.Context, userID string) (*models.Profile, error) {
	p, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading profile %s: %w", userID, err)
	}
	s.Ledger.IngestProfile(*p)
	return p, nil
}

func (s *Session) subscribe() {
	s.unsubs = append(s.unsubs,
		s.Manager.On(models.EventNotification, s.Store.HandlePush),
		s.Manager.On(models.EventPostLike, s.handlePostLike),
		s.Manager.On(models.EventPostComment, s.handlePostComment),
		s.Manager.On(models.EventNewPost, s.handleNewPost),
		s.Manager.On(models.EventDisconnected, s.handleDisconnected),
	)
}

func (s *Session) handlePostLike(data json.RawMessage) {
	var ev models.PostLikeUpdate
	if err := json.Unmarshal(data, &ev); err != nil {
		s.log.Error("decoding post like event", "error", err)
		return
	}
	s.Cache.Update(func(tx *feedcache.Txn) {
		tx.SetPostLikes(ev.PostID, ev.LikesCount)
	})
}

func (s *Session) handlePostComment(data json.RawMessage) {
	var ev models.PostCommentUpdate
	if err := json.Unmarshal(data, &ev); err != nil {
		s.log.Error("decoding post comment event", "error", err)
		return
	}
	s.Cache.Update(func(tx *feedcache.Txn) {
		tx.SetPostComments(ev.PostID, ev.CommentsCount)
	})
}

func (s *Session) handleNewPost(data json.RawMessage) {
	var ev models.NewPostEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.log.Error("decoding new post event", "error", err)
		return
	}
	s.Cache.Update(func(tx *feedcache.Txn) {
		tx.PutPost(ev.Post)
		tx.PrependTimeline(feedcache.TimelineHome, ev.Post.ID)
	})
}

func (s *Session) handleDisconnected(data json.RawMessage) {
	var ev models.DisconnectEvent
	if err := json.Unmarshal(data, &ev); err != nil || ev.Reason == models.ReasonLocalClose {
		return
	}
	s.mu.Lock()
	fn := s.onConnectionLost
	s.mu.Unlock()
	if fn != nil {
		fn(ev.Reason)
	}
}

// pollLoop reconciles the unread counter against the server on a fixed
// interval. Polls replace rather than merge, so a poll racing an in-flight
// mutation at worst leaves a skew the next poll corrects.
func (s *Session) pollLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Store.RefreshUnreadCount(ctx); err != nil {
				s.log.Warn("unread count poll failed", "error", err)
			}
		}
	}
}
