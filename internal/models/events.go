package models

import "encoding/json"

// Event names carried on the push channel. Lifecycle events (connected,
// disconnected) are emitted by the connection manager itself; the rest are
// server-pushed domain events re-dispatched to listeners.
const (
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
	EventNotification = "notification"
	EventPostLike     = "post:like"
	EventPostComment  = "post:comment"
	EventNewPost      = "newPost"
)

// Disconnect reasons attached to the disconnected event.
const (
	ReasonMaxAttempts  = "max-attempts"
	ReasonUnauthorized = "unauthorized"
	ReasonLocalClose   = "local-close"
)

// PushEnvelope is the wire frame exchanged on the push channel.
type PushEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// PostLikeUpdate carries a live like-counter change for a post.
type PostLikeUpdate struct {
	PostID     string `json:"post_id"`
	LikesCount int    `json:"likes_count"`
}

// PostCommentUpdate carries a live comment-counter change for a post.
type PostCommentUpdate struct {
	PostID        string `json:"post_id"`
	CommentsCount int    `json:"comments_count"`
}

// NewPostEvent announces a post from a followed user.
type NewPostEvent struct {
	Post Post `json:"post"`
}

// DisconnectEvent explains why the channel went away for good.
type DisconnectEvent struct {
	Reason string `json:"reason"`
}
