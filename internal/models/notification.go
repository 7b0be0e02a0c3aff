package models

import "time"

// NotificationKind enumerates the notification variants the server emits.
type NotificationKind string

const (
	KindLike    NotificationKind = "like"
	KindComment NotificationKind = "comment"
	KindFollow  NotificationKind = "follow"
	KindMention NotificationKind = "mention"
)

// Valid reports whether k is one of the known kinds.
func (k NotificationKind) Valid() bool {
	switch k {
	case KindLike, KindComment, KindFollow, KindMention:
		return true
	}
	return false
}

// Notification represents a user notification as delivered by the server.
// Actor is a weak reference: the embedded display fields are a cached copy,
// the authoritative record lives in the profile cache keyed by Actor.ID.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"type"`
	Actor     UserCompact      `json:"actor"`
	PostID    string           `json:"post_id,omitempty"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

// DisplayText renders the notification line for the given kind. The switch
// is exhaustive over NotificationKind; unknown kinds fall through to a
// neutral line rather than being dropped.
func (n Notification) DisplayText() string {
	switch n.Kind {
	case KindLike:
		return n.Actor.Name + " liked your post"
	case KindComment:
		return n.Actor.Name + " commented on your post"
	case KindFollow:
		return n.Actor.Name + " started following you"
	case KindMention:
		return n.Actor.Name + " mentioned you in a post"
	default:
		return n.Actor.Name + " sent you a notification"
	}
}
