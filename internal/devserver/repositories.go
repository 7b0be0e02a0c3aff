package devserver

import (
	"sort"
	"sync"

	"github.com/wayfarer-app/wayfarer-go/internal/models"
)

// NotificationRepository stores notifications per recipient, in memory.
type NotificationRepository struct {
	mu    sync.Mutex
	byRecipient map[string][]models.Notification
}

// NewNotificationRepository creates an empty NotificationRepository.
func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{byRecipient: make(map[string][]models.Notification)}
}

// Create adds a notification for the recipient, keeping CreatedAt-descending
// order.
func (r *NotificationRepository) Create(recipientID string, n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := append(r.byRecipient[recipientID], n)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	r.byRecipient[recipientID] = items
}

// ListByRecipient returns one page plus the total count.
func (r *NotificationRepository) ListByRecipient(recipientID string, page, limit int) ([]models.Notification, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.byRecipient[recipientID]
	total := len(items)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	out := make([]models.Notification, end-start)
	copy(out, items[start:end])
	return out, total
}

// UnreadCount returns the recipient's unread total.
func (r *NotificationRepository) UnreadCount(recipientID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.byRecipient[recipientID] {
		if !n.IsRead {
			count++
		}
	}
	return count
}

// MarkRead marks one notification read. Returns false when it is unknown.
func (r *NotificationRepository) MarkRead(recipientID, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.byRecipient[recipientID]
	for i := range items {
		if items[i].ID == id {
			items[i].IsRead = true
			return true
		}
	}
	return false
}

// MarkAllRead marks every notification of the recipient read.
func (r *NotificationRepository) MarkAllRead(recipientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.byRecipient[recipientID]
	for i := range items {
		items[i].IsRead = true
	}
}

// Delete removes one notification. Returns false when it is unknown.
func (r *NotificationRepository) Delete(recipientID, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.byRecipient[recipientID]
	for i := range items {
		if items[i].ID == id {
			r.byRecipient[recipientID] = append(items[:i], items[i+1:]...)
			return true
		}
	}
	return false
}

// UserRepository stores profiles in memory.
type UserRepository struct {
	mu    sync.Mutex
	users map[string]models.Profile
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]models.Profile)}
}

// Put stores or replaces a profile.
func (r *UserRepository) Put(p models.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[p.ID] = p
}

// Get fetches a profile by id.
func (r *UserRepository) Get(id string) (models.Profile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.users[id]
	return p, ok
}

// PostRepository stores posts in memory, newest first.
type PostRepository struct {
	mu    sync.Mutex
	posts []models.Post
}

// NewPostRepository creates an empty PostRepository.
func NewPostRepository() *PostRepository {
	return &PostRepository{}
}

// Put adds or replaces a post.
func (r *PostRepository) Put(p models.Post) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.posts {
		if r.posts[i].ID == p.ID {
			r.posts[i] = p
			return
		}
	}
	r.posts = append(r.posts, p)
	sort.SliceStable(r.posts, func(i, j int) bool {
		return r.posts[i].CreatedAt.After(r.posts[j].CreatedAt)
	})
}

// List returns one page of posts.
func (r *PostRepository) List(page, limit int) []models.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := (page - 1) * limit
	if start > len(r.posts) {
		start = len(r.posts)
	}
	end := start + limit
	if end > len(r.posts) {
		end = len(r.posts)
	}
	out := make([]models.Post, end-start)
	copy(out, r.posts[start:end])
	return out
}

// BlockRepository stores directed block edges in memory.
type BlockRepository struct {
	mu    sync.Mutex
	edges map[[2]string]struct{}
}

// NewBlockRepository creates an empty BlockRepository.
func NewBlockRepository() *BlockRepository {
	return &BlockRepository{edges: make(map[[2]string]struct{})}
}

// Block records the edge (blocker, blocked).
func (r *BlockRepository) Block(blockerID, blockedID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges[[2]string{blockerID, blockedID}] = struct{}{}
}

// Unblock removes the edge (blocker, blocked).
func (r *BlockRepository) Unblock(blockerID, blockedID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.edges, [2]string{blockerID, blockedID})
}

// IsBlocked reports whether blocker holds an edge against blocked.
func (r *BlockRepository) IsBlocked(blockerID, blockedID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.edges[[2]string{blockerID, blockedID}]
	return ok
}
