// Package visibility owns the viewer's block relations and the predicate
// that keeps blocked parties out of aggregate query results.
package visibility

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wayfarer-app/wayfarer-go/internal/apiclient"
	"github.com/wayfarer-app/wayfarer-go/internal/feedcache"
	"github.com/wayfarer-app/wayfarer-go/internal/models"
)

// Ledger tracks the viewer's outgoing block edges plus the server-reported
// incoming ones, and projects them into the feed cache. Filtering is
// symmetric: content is hidden whichever direction the edge points.
//
// Block and Unblock are deliberately not optimistic. A block that appears
// applied but never reached the server is a safety inconsistency, not a UX
// one, so the local projections are gated behind remote success.
type Ledger struct {
	api   apiclient.BlockAPI
	cache *feedcache.Cache
	log   *slog.Logger

	mu        sync.RWMutex
	blocked   map[string]struct{}
	blockedBy map[string]struct{}
}

// NewLedger creates a Ledger projecting into cache. logger may be nil.
func NewLedger(api apiclient.BlockAPI, cache *feedcache.Cache, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		api:       api,
		cache:     cache,
		log:       logger,
		blocked:   make(map[string]struct{}),
		blockedBy: make(map[string]struct{}),
	}
}

// Block records a block edge against userID. On remote success it applies
// the three local projections in one cache transaction: the profile's block
// flag, the viewer's edge set, and the aggregate-result filter. The push
// channel is untouched; blocking is not a connection event.
//
// On remote failure nothing is applied locally.
func (l *Ledger) Block(ctx context.Context, userID string) error {
	if err := l.api.Block(ctx, userID); err != nil {
		return fmt.Errorf("blocking user %s: %w", userID, err)
	}

	l.cache.Update(func(tx *feedcache.Txn) {
		l.mu.Lock()
		l.blocked[userID] = struct{}{}
		_, blockedBy := l.blockedBy[userID]
		l.mu.Unlock()

		tx.SetProfileBlockFlags(userID, true, blockedBy)
		tx.HideAuthor(userID)
	})
	l.log.Info("user blocked", "user_id", userID)
	return nil
}

// Unblock removes the viewer's edge against userID and reverses the
// projections. Restored visibility comes from ceasing to filter; no cache
// entry outside the implicated user is touched and nothing is refetched.
func (l *Ledger) Unblock(ctx context.Context, userID string) error {
	if err := l.api.Unblock(ctx, userID); err != nil {
		return fmt.Errorf("unblocking user %s: %w", userID, err)
	}

	l.cache.Update(func(tx *feedcache.Txn) {
		l.mu.Lock()
		delete(l.blocked, userID)
		_, blockedBy := l.blockedBy[userID]
		l.mu.Unlock()

		tx.SetProfileBlockFlags(userID, false, blockedBy)
		if !blockedBy {
			tx.UnhideAuthor(userID)
		}
	})
	l.log.Info("user unblocked", "user_id", userID)
	return nil
}

// IsVisible is the predicate aggregate read paths consult: false when a
// block edge exists in either direction between the viewer and authorID.
func (l *Ledger) IsVisible(authorID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.blocked[authorID]; ok {
		return false
	}
	if _, ok := l.blockedBy[authorID]; ok {
		return false
	}
	return true
}

// IsBlocked reports whether the viewer holds an outgoing edge to userID.
func (l *Ledger) IsBlocked(userID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.blocked[userID]
	return ok
}

// MarkBlockedBy records server-reported incoming block status. The client
// cannot derive "blocked-by" from its own edge set, so profile payloads are
// the source of this input.
func (l *Ledger) MarkBlockedBy(userID string, blockedBy bool) {
	l.cache.Update(func(tx *feedcache.Txn) {
		l.mu.Lock()
		if blockedBy {
			l.blockedBy[userID] = struct{}{}
		} else {
			delete(l.blockedBy, userID)
		}
		_, blocked := l.blocked[userID]
		l.mu.Unlock()

		if blockedBy {
			tx.HideAuthor(userID)
		} else if !blocked {
			tx.UnhideAuthor(userID)
		}
	})
}

// IngestProfile caches a directly fetched profile and absorbs its
// server-reported block flags.
func (l *Ledger) IngestProfile(p models.Profile) {
	l.cache.Update(func(tx *feedcache.Txn) {
		tx.PutProfile(p)
	})
	l.MarkBlockedBy(p.ID, p.IsBlockedBy)
}
