package devserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfarer-app/wayfarer-go/internal/apiclient"
	"github.com/wayfarer-app/wayfarer-go/internal/models"
)

func newClient(t *testing.T, srv *Server, userID string) *apiclient.Client {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	token, err := srv.IssueToken(userID)
	require.NoError(t, err)
	return apiclient.NewClient(ts.URL+"/api/v1", token)
}

func TestNotificationPagination(t *testing.T) {
	srv := New("test-secret")
	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		srv.Notifications.Create("viewer", models.Notification{
			ID:        string(rune('a' + i)),
			Kind:      models.KindLike,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		})
	}

	api := apiclient.NewNotificationAPI(newClient(t, srv, "viewer"))
	page, err := api.List(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, page.Notifications, 2)
	assert.Equal(t, "e", page.Notifications[0].ID, "newest first")
	assert.Equal(t, 5, page.TotalCount)
	assert.Equal(t, 5, page.UnreadCount)
	assert.True(t, page.HasMore)

	page, err = api.List(context.Background(), 3, 2)
	require.NoError(t, err)
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, "a", page.Notifications[0].ID)
	assert.False(t, page.HasMore)
}

func TestMarkReadAndDeleteAdjustCounts(t *testing.T) {
	srv := New("test-secret")
	srv.Notifications.Create("viewer", models.Notification{ID: "n1", Kind: models.KindLike, CreatedAt: time.Now()})
	srv.Notifications.Create("viewer", models.Notification{ID: "n2", Kind: models.KindFollow, CreatedAt: time.Now()})

	api := apiclient.NewNotificationAPI(newClient(t, srv, "viewer"))
	ctx := context.Background()

	require.NoError(t, api.MarkRead(ctx, "n1"))
	count, err := api.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, api.Delete(ctx, "n2"))
	page, err := api.List(ctx, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, "n1", page.Notifications[0].ID)
	assert.Equal(t, 0, page.UnreadCount)

	// Unknown ids are a 404, not a silent success.
	var apiErr *apiclient.APIError
	require.ErrorAs(t, api.MarkRead(ctx, "ghost"), &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	srv := New("test-secret")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	api := apiclient.NewNotificationAPI(apiclient.NewClient(ts.URL+"/api/v1", ""))
	_, err := api.List(context.Background(), 1, 20)
	assert.ErrorIs(t, err, apiclient.ErrUnauthorized)
}

func TestProfileReportsBothBlockDirections(t *testing.T) {
	srv := New("test-secret")
	srv.Users.Put(models.Profile{UserCompact: models.UserCompact{ID: "viewer", Name: "Val"}})
	srv.Users.Put(models.Profile{UserCompact: models.UserCompact{ID: "ben", Name: "Ben"}})
	srv.Blocks.Block("viewer", "ben")
	srv.Blocks.Block("ben", "viewer")

	api := apiclient.NewUserAPI(newClient(t, srv, "viewer"))
	profile, err := api.GetProfile(context.Background(), "ben")
	require.NoError(t, err)
	assert.True(t, profile.IsBlocked)
	assert.True(t, profile.IsBlockedBy)
}
