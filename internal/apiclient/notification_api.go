package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/wayfarer-app/wayfarer-go/internal/models"
)

// NotificationPage is one page of notifications plus the authoritative
// counters returned alongside it.
type NotificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
	TotalCount    int                   `json:"total_count"`
	HasMore       bool                  `json:"has_more"`
}

// NotificationAPI defines the remote collaborator owning notification state.
type NotificationAPI interface {
	List(ctx context.Context, page, limit int) (*NotificationPage, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	Delete(ctx context.Context, id string) error
	UnreadCount(ctx context.Context) (int, error)
}

type httpNotificationAPI struct {
	client *Client
}

// NewNotificationAPI creates the HTTP implementation of NotificationAPI.
func NewNotificationAPI(client *Client) NotificationAPI {
	return &httpNotificationAPI{client: client}
}

func (a *httpNotificationAPI) List(ctx context.Context, page, limit int) (*NotificationPage, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("limit", fmt.Sprint(limit))

	var result NotificationPage
	if err := a.client.do(ctx, http.MethodGet, "/notifications?"+q.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (a *httpNotificationAPI) MarkRead(ctx context.Context, id string) error {
	return a.client.do(ctx, http.MethodPatch, "/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

func (a *httpNotificationAPI) MarkAllRead(ctx context.Context) error {
	return a.client.do(ctx, http.MethodPatch, "/notifications/read-all", nil, nil)
}

func (a *httpNotificationAPI) Delete(ctx context.Context, id string) error {
	return a.client.do(ctx, http.MethodDelete, "/notifications/"+url.PathEscape(id), nil, nil)
}

func (a *httpNotificationAPI) UnreadCount(ctx context.Context) (int, error) {
	var result struct {
		Count int `json:"count"`
	}
	if err := a.client.do(ctx, http.MethodGet, "/notifications/unread-count", nil, &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}
