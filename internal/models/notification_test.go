package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotificationKindValid(t *testing.T) {
	for _, k := range []NotificationKind{KindLike, KindComment, KindFollow, KindMention} {
		assert.True(t, k.Valid(), string(k))
	}
	assert.False(t, NotificationKind("poke").Valid())
	assert.False(t, NotificationKind("").Valid())
}

func TestDisplayTextPerKind(t *testing.T) {
	actor := UserCompact{ID: "u1", Name: "Amelia"}
	cases := []struct {
		kind NotificationKind
		want string
	}{
		{KindLike, "Amelia liked your post"},
		{KindComment, "Amelia commented on your post"},
		{KindFollow, "Amelia started following you"},
		{KindMention, "Amelia mentioned you in a post"},
		{NotificationKind("poke"), "Amelia sent you a notification"},
	}
	for _, tc := range cases {
		n := Notification{Kind: tc.kind, Actor: actor}
		assert.Equal(t, tc.want, n.DisplayText())
	}
}
