// Package notifications holds the locally cached notification list, its
// pagination state, and the unread counter.
//
// The unread counter is a projection, not a source of truth: push delivery
// increments it live, optimistic mutations adjust it, and the periodic poll
// replaces it outright with the authoritative server value.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wayfarer-app/wayfarer-go/internal/apiclient"
	"github.com/wayfarer-app/wayfarer-go/internal/metrics"
	"github.com/wayfarer-app/wayfarer-go/internal/models"
	"github.com/wayfarer-app/wayfarer-go/internal/reconcile"
)

// Store is safe for concurrent use. Items are kept most-recent-first by
// CreatedAt.
type Store struct {
	api     apiclient.NotificationAPI
	log     *slog.Logger
	metrics *metrics.Metrics

	group       singleflight.Group
	dedupWindow time.Duration

	mu         sync.Mutex
	items      []models.Notification
	unread     int
	totalCount int
	hasMore    bool
	recent     map[string]time.Time
}

// NewStore creates a Store backed by the given remote collaborator. logger
// and m may be nil.
func NewStore(api apiclient.NotificationAPI, logger *slog.Logger, m *metrics.Metrics) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		api:         api,
		log:         logger,
		metrics:     m,
		dedupWindow: time.Second,
		recent:      make(map[string]time.Time),
	}
}

// FetchPage loads one page from the server. Page 1 replaces the local list,
// later pages append. The authoritative unread count returned with the page
// replaces the local counter.
//
// Rapid repeated calls for the same page collapse: concurrent callers share
// one round trip, and a call within the dedup window of a successful fetch
// is satisfied from the already-applied result.
func (s *Store) FetchPage(ctx context.Context, page, limit int) error {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}
	key := fmt.Sprintf("%d:%d", page, limit)

	s.mu.Lock()
	if at, ok := s.recent[key]; ok && time.Since(at) < s.dedupWindow {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	_, err, _ := s.group.Do(key, func() (any, error) {
		resp, err := s.api.List(ctx, page, limit)
		if err != nil {
			return nil, err
		}
		s.apply(page, resp)
		s.mu.Lock()
		s.recent[key] = time.Now()
		s.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("fetching notifications page %d: %w", page, err)
	}
	return nil
}

func (s *Store) apply(page int, resp *apiclient.NotificationPage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page == 1 {
		s.items = append([]models.Notification{}, resp.Notifications...)
	} else {
		for _, n := range resp.Notifications {
			if s.indexOfLocked(n.ID) < 0 {
				s.items = append(s.items, n)
			}
		}
	}
	s.totalCount = resp.TotalCount
	s.hasMore = resp.HasMore
	s.setUnreadLocked(resp.UnreadCount)
}

type markReadSnapshot struct {
	applied    bool
	prevUnread int
}

// MarkAsRead optimistically marks one notification read. Already-read items
// are a no-op. On remote failure the exact captured tuple (wasRead=false,
// prior counter) is replayed.
func (s *Store) MarkAsRead(ctx context.Context, id string) error {
	s.mu.Lock()
	if i := s.indexOfLocked(id); i < 0 || s.items[i].IsRead {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	return reconcile.Run(ctx, "mark notification read",
		func() markReadSnapshot {
			s.mu.Lock()
			defer s.mu.Unlock()
			i := s.indexOfLocked(id)
			if i < 0 || s.items[i].IsRead {
				return markReadSnapshot{}
			}
			snap := markReadSnapshot{applied: true, prevUnread: s.unread}
			s.items[i].IsRead = true
			s.setUnreadLocked(s.unread - 1)
			return snap
		},
		func(ctx context.Context) error {
			return s.api.MarkRead(ctx, id)
		},
		func(snap markReadSnapshot) {
			if !snap.applied {
				return
			}
			s.mu.Lock()
			if i := s.indexOfLocked(id); i >= 0 {
				s.items[i].IsRead = false
			}
			s.setUnreadLocked(snap.prevUnread)
			s.mu.Unlock()
			s.countRollback()
		})
}

type markAllSnapshot struct {
	items      []models.Notification
	prevUnread int
}

// MarkAllAsRead optimistically marks every notification read and zeroes the
// counter. The whole prior list and counter form one snapshot that is
// restored atomically on remote failure.
func (s *Store) MarkAllAsRead(ctx context.Context) error {
	return reconcile.Run(ctx, "mark all notifications read",
		func() markAllSnapshot {
			s.mu.Lock()
			defer s.mu.Unlock()
			snap := markAllSnapshot{
				items:      append([]models.Notification{}, s.items...),
				prevUnread: s.unread,
			}
			for i := range s.items {
				s.items[i].IsRead = true
			}
			s.setUnreadLocked(0)
			return snap
		},
		func(ctx context.Context) error {
			return s.api.MarkAllRead(ctx)
		},
		func(snap markAllSnapshot) {
			s.mu.Lock()
			s.items = snap.items
			s.setUnreadLocked(snap.prevUnread)
			s.mu.Unlock()
			s.countRollback()
		})
}

type deleteSnapshot struct {
	applied   bool
	item      models.Notification
	wasUnread bool
}

// Delete optimistically removes one notification. On remote failure the item
// is reinserted at its CreatedAt-descending position and, if it had been
// unread, its counter contribution is restored.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.indexOfLocked(id) < 0 {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	return reconcile.Run(ctx, "delete notification",
		func() deleteSnapshot {
			s.mu.Lock()
			defer s.mu.Unlock()
			i := s.indexOfLocked(id)
			if i < 0 {
				return deleteSnapshot{}
			}
			snap := deleteSnapshot{applied: true, item: s.items[i], wasUnread: !s.items[i].IsRead}
			s.items = append(s.items[:i], s.items[i+1:]...)
			if snap.wasUnread {
				s.setUnreadLocked(s.unread - 1)
			}
			return snap
		},
		func(ctx context.Context) error {
			return s.api.Delete(ctx, id)
		},
		func(snap deleteSnapshot) {
			if !snap.applied {
				return
			}
			s.mu.Lock()
			s.insertSortedLocked(snap.item)
			if snap.wasUnread {
				s.setUnreadLocked(s.unread + 1)
			}
			s.mu.Unlock()
			s.countRollback()
		})
}

// RefreshUnreadCount polls the authoritative count and replaces the local
// counter. It never merges by delta; push increments landing between polls
// stand on their own and the next poll corrects any transient skew.
func (s *Store) RefreshUnreadCount(ctx context.Context) error {
	count, err := s.api.UnreadCount(ctx)
	if err != nil {
		return fmt.Errorf("refreshing unread count: %w", err)
	}
	s.mu.Lock()
	s.setUnreadLocked(count)
	s.mu.Unlock()
	return nil
}

// HandlePush ingests a pushed notification: inserted at the head, counter
// incremented live when unread. Duplicate ids are dropped.
func (s *Store) HandlePush(data json.RawMessage) {
	var n models.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		s.log.Error("decoding pushed notification", "error", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOfLocked(n.ID) >= 0 {
		return
	}
	s.items = append([]models.Notification{n}, s.items...)
	s.totalCount++
	if !n.IsRead {
		s.setUnreadLocked(s.unread + 1)
	}
}

// Notifications returns a copy of the local list, most recent first.
func (s *Store) Notifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notification{}, s.items...)
}

// UnreadCount returns the locally tracked unread counter.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// HasMore reports whether the server has pages beyond the last one fetched.
func (s *Store) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// TotalCount returns the server-reported total, adjusted for pushes.
func (s *Store) TotalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalCount
}

// IsRead reports the read state of a locally known notification.
func (s *Store) IsRead(id string) (read, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOfLocked(id)
	if i < 0 {
		return false, false
	}
	return s.items[i].IsRead, true
}

func (s *Store) indexOfLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// insertSortedLocked places n at its CreatedAt-descending position, after
// any items with an equal or later timestamp.
func (s *Store) insertSortedLocked(n models.Notification) {
	i := 0
	for i < len(s.items) && !s.items[i].CreatedAt.Before(n.CreatedAt) {
		i++
	}
	s.items = append(s.items, models.Notification{})
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = n
}

// setUnreadLocked clamps at zero; the counter must never go negative.
func (s *Store) setUnreadLocked(n int) {
	if n < 0 {
		n = 0
	}
	s.unread = n
	if s.metrics != nil {
		s.metrics.UnreadCount.Set(float64(n))
	}
}

func (s *Store) countRollback() {
	if s.metrics != nil {
		s.metrics.Rollbacks.Inc()
	}
}
