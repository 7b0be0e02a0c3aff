package session

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfarer-app/wayfarer-go/internal/devserver"
	"github.com/wayfarer-app/wayfarer-go/internal/models"
	"github.com/wayfarer-app/wayfarer-go/internal/realtime"
)

// startWorld boots the reference server with a seeded viewer and two
// authors, and opens a session for the viewer against it.
func startWorld(t *testing.T) (*devserver.Server, *Session) {
	t.Helper()

	srv := devserver.New("test-secret")
	srv.Users.Put(models.Profile{UserCompact: models.UserCompact{ID: "viewer", Name: "Val"}})
	srv.Users.Put(models.Profile{UserCompact: models.UserCompact{ID: "amelia", Name: "Amelia"}})
	srv.Users.Put(models.Profile{UserCompact: models.UserCompact{ID: "ben", Name: "Ben"}})

	now := time.Now().UTC()
	srv.Posts.Put(models.Post{ID: "p1", AuthorID: "amelia", Content: "sunrise", CreatedAt: now.Add(-3 * time.Hour)})
	srv.Posts.Put(models.Post{ID: "p2", AuthorID: "ben", Content: "night train", CreatedAt: now.Add(-2 * time.Hour)})
	srv.Posts.Put(models.Post{ID: "p3", AuthorID: "amelia", Content: "market day", CreatedAt: now.Add(-time.Hour)})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	token, err := srv.IssueToken("viewer")
	require.NoError(t, err)

	sess := New(Config{
		ServerURL:    ts.URL + "/api/v1",
		PushURL:      "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/realtime",
		Token:        token,
		PollInterval: time.Hour, // keep the poller quiet during tests
	})
	require.NoError(t, sess.Start(context.Background()))
	t.Cleanup(sess.Close)

	return srv, sess
}

func TestPushNotificationRoundTrip(t *testing.T) {
	srv, sess := startWorld(t)

	created := srv.CreateNotification("viewer", models.Notification{
		Kind:  models.KindLike,
		Actor: models.UserCompact{ID: "amelia", Name: "Amelia"},
	})

	require.Eventually(t, func() bool {
		return len(sess.Store.Notifications()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	items := sess.Store.Notifications()
	assert.Equal(t, created.ID, items[0].ID)
	assert.Equal(t, 1, sess.Store.UnreadCount())

	// Mark it read against the live server, then confirm the server agrees.
	require.NoError(t, sess.Store.MarkAsRead(context.Background(), created.ID))
	assert.Equal(t, 0, sess.Store.UnreadCount())
	require.NoError(t, sess.Store.RefreshUnreadCount(context.Background()))
	assert.Equal(t, 0, sess.Store.UnreadCount())
}

func TestLiveCounterEventsUpdateCache(t *testing.T) {
	srv, sess := startWorld(t)
	require.NoError(t, sess.LoadFeed(context.Background(), 1, 10))

	srv.PushEvent("viewer", models.EventPostLike, models.PostLikeUpdate{PostID: "p1", LikesCount: 4})
	srv.PushEvent("viewer", models.EventPostComment, models.PostCommentUpdate{PostID: "p1", CommentsCount: 2})

	require.Eventually(t, func() bool {
		p, ok := sess.Cache.Post("p1")
		return ok && p.LikesCount == 4 && p.CommentsCount == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNewPostPrependsTimeline(t *testing.T) {
	srv, sess := startWorld(t)
	require.NoError(t, sess.LoadFeed(context.Background(), 1, 10))

	srv.PushEvent("viewer", models.EventNewPost, models.NewPostEvent{
		Post: models.Post{ID: "p4", AuthorID: "amelia", Content: "ferry timetables"},
	})

	require.Eventually(t, func() bool {
		timeline := sess.Cache.Timeline("home")
		return len(timeline) == 4 && timeline[0].ID == "p4"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBlockFlowLeavesChannelAlone(t *testing.T) {
	_, sess := startWorld(t)
	ctx := context.Background()
	require.NoError(t, sess.LoadFeed(ctx, 1, 10))
	require.Len(t, sess.Cache.Timeline("home"), 3)

	require.NoError(t, sess.Ledger.Block(ctx, "ben"))
	timeline := sess.Cache.Timeline("home")
	require.Len(t, timeline, 2)
	for _, p := range timeline {
		assert.NotEqual(t, "ben", p.AuthorID)
	}

	// Blocking is a data-layer concern; the push channel never noticed.
	assert.True(t, sess.Manager.IsConnected())
	assert.Equal(t, 0, sess.Manager.Attempts())

	require.NoError(t, sess.Ledger.Unblock(ctx, "ben"))
	timeline = sess.Cache.Timeline("home")
	require.Len(t, timeline, 3)
	assert.Equal(t, "p2", timeline[1].ID, "original position restored")
}

func TestLoadProfileAbsorbsIncomingBlock(t *testing.T) {
	srv, sess := startWorld(t)
	ctx := context.Background()
	require.NoError(t, sess.LoadFeed(ctx, 1, 10))

	// amelia has blocked the viewer; her profile reports it.
	srv.Blocks.Block("amelia", "viewer")
	profile, err := sess.LoadProfile(ctx, "amelia")
	require.NoError(t, err)
	assert.True(t, profile.IsBlockedBy)

	timeline := sess.Cache.Timeline("home")
	require.Len(t, timeline, 1)
	assert.Equal(t, "p2", timeline[0].ID)
	assert.False(t, sess.Ledger.IsVisible("amelia"))
}

func TestStartRejectsBadToken(t *testing.T) {
	srv := devserver.New("test-secret")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	sess := New(Config{
		ServerURL: ts.URL + "/api/v1",
		PushURL:   "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/realtime",
		Token:     "not-a-token",
	})
	err := sess.Start(context.Background())
	require.ErrorIs(t, err, realtime.ErrUnauthorized)
	assert.Equal(t, realtime.StateFailed, sess.Manager.State())
}

func TestCloseIsIdempotent(t *testing.T) {
	_, sess := startWorld(t)
	sess.Close()
	sess.Close()
	assert.False(t, sess.Manager.IsConnected())
}
