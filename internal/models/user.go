package models

import "github.com/golang-jwt/jwt/v4"

// UserCompact is the minimal user representation embedded in feed entries
// and notifications.
type UserCompact struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Profile is a full user profile as returned by a direct profile fetch.
// IsBlocked marks the viewer's own outgoing block edge; IsBlockedBy is
// reported by the server since the client cannot derive it from local state.
type Profile struct {
	UserCompact
	Bio         string `json:"bio,omitempty"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	IsBlocked   bool   `json:"is_blocked"`
	IsBlockedBy bool   `json:"is_blocked_by"`
}

// ToCompact strips a profile down to its embeddable form.
func (p Profile) ToCompact() UserCompact {
	return p.UserCompact
}

// SessionClaims are custom claims extending standard jwt.RegisteredClaims,
// used by the reference collaborator to authenticate REST and push requests.
type SessionClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
