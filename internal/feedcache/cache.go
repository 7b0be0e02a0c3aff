// Package feedcache is the client data layer's in-memory cache: posts and
// profiles by id, plus aggregate query results (timelines) stored as ordered
// post-id lists.
//
// Aggregate reads and direct reads are distinct paths. A timeline read
// filters out authors hidden by the visibility ledger; a direct by-id read
// never does. Hiding an author therefore removes their posts from every
// aggregate result while the underlying records stay resolvable.
package feedcache

import (
	"sync"

	"github.com/wayfarer-app/wayfarer-go/internal/models"
)

// TimelineHome is the aggregate result holding the viewer's main feed.
const TimelineHome = "home"

// Cache is safe for concurrent use. All writes go through Update, which
// runs the whole transaction under one lock so multi-entry mutations are
// observed atomically.
type Cache struct {
	mu        sync.RWMutex
	posts     map[string]models.Post
	profiles  map[string]profileEntry
	timelines map[string][]string
	hidden    map[string]struct{}
}

type profileEntry struct {
	profile models.Profile
	version int
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{
		posts:     make(map[string]models.Post),
		profiles:  make(map[string]profileEntry),
		timelines: make(map[string][]string),
		hidden:    make(map[string]struct{}),
	}
}

// Txn is a write transaction over the cache. It is only valid inside the
// Update callback that produced it.
type Txn struct {
	c *Cache
}

// Update runs fn as one atomic write transaction.
func (c *Cache) Update(fn func(tx *Txn)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&Txn{c: c})
}

// PutPost stores or replaces a post record.
func (tx *Txn) PutPost(p models.Post) {
	tx.c.posts[p.ID] = p
}

// PutProfile stores or replaces a profile record, bumping its version.
func (tx *Txn) PutProfile(p models.Profile) {
	e := tx.c.profiles[p.ID]
	e.profile = p
	e.version++
	tx.c.profiles[p.ID] = e
}

// SetTimeline replaces the named aggregate result with the given post ids.
func (tx *Txn) SetTimeline(name string, postIDs []string) {
	ids := make([]string, len(postIDs))
	copy(ids, postIDs)
	tx.c.timelines[name] = ids
}

// AppendTimeline appends post ids to the named aggregate result.
func (tx *Txn) AppendTimeline(name string, postIDs ...string) {
	tx.c.timelines[name] = append(tx.c.timelines[name], postIDs...)
}

// PrependTimeline inserts post ids at the head of the named aggregate
// result (most-recent-first ordering).
func (tx *Txn) PrependTimeline(name string, postIDs ...string) {
	tx.c.timelines[name] = append(append([]string{}, postIDs...), tx.c.timelines[name]...)
}

// HideAuthor excludes the author's posts from every aggregate read. The
// timeline id lists and the post records themselves are untouched, so
// unhiding restores the original aggregate order without a refetch.
func (tx *Txn) HideAuthor(authorID string) {
	tx.c.hidden[authorID] = struct{}{}
}

// UnhideAuthor ceases to filter the author from aggregate reads.
func (tx *Txn) UnhideAuthor(authorID string) {
	delete(tx.c.hidden, authorID)
}

// SetProfileBlockFlags updates the block flags on a cached profile, if
// present. Only that profile's version changes.
func (tx *Txn) SetProfileBlockFlags(userID string, blocked, blockedBy bool) {
	e, ok := tx.c.profiles[userID]
	if !ok {
		return
	}
	e.profile.IsBlocked = blocked
	e.profile.IsBlockedBy = blockedBy
	e.version++
	tx.c.profiles[userID] = e
}

// SetPostLikes updates a cached post's like counter, if present.
func (tx *Txn) SetPostLikes(postID string, likes int) {
	p, ok := tx.c.posts[postID]
	if !ok {
		return
	}
	p.LikesCount = likes
	tx.c.posts[postID] = p
}

// SetPostComments updates a cached post's comment counter, if present.
func (tx *Txn) SetPostComments(postID string, comments int) {
	p, ok := tx.c.posts[postID]
	if !ok {
		return
	}
	p.CommentsCount = comments
	tx.c.posts[postID] = p
}

// Timeline resolves the named aggregate result, applying the hidden-author
// filter. Ids without a cached post record are skipped.
func (c *Cache) Timeline(name string) []models.Post {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := c.timelines[name]
	result := make([]models.Post, 0, len(ids))
	for _, id := range ids {
		p, ok := c.posts[id]
		if !ok {
			continue
		}
		if _, hidden := c.hidden[p.AuthorID]; hidden {
			continue
		}
		result = append(result, p)
	}
	return result
}

// Post is the direct by-id read path. It bypasses aggregate filtering.
func (c *Cache) Post(id string) (models.Post, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.posts[id]
	return p, ok
}

// Profile is the direct by-id profile read.
func (c *Cache) Profile(id string) (models.Profile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.profiles[id]
	return e.profile, ok
}

// ProfileVersion returns the mutation counter for a cached profile. Zero
// means the profile is not cached.
func (c *Cache) ProfileVersion(id string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.profiles[id].version
}
