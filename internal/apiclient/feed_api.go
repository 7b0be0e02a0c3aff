package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/wayfarer-app/wayfarer-go/internal/models"
)

// FeedAPI defines the remote collaborator serving the aggregate timeline.
type FeedAPI interface {
	Feed(ctx context.Context, page, limit int) ([]models.Post, error)
}

type httpFeedAPI struct {
	client *Client
}

// NewFeedAPI creates the HTTP implementation of FeedAPI.
func NewFeedAPI(client *Client) FeedAPI {
	return &httpFeedAPI{client: client}
}

func (a *httpFeedAPI) Feed(ctx context.Context, page, limit int) ([]models.Post, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("limit", fmt.Sprint(limit))

	var result struct {
		Posts []models.Post `json:"posts"`
	}
	if err := a.client.do(ctx, http.MethodGet, "/feed?"+q.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return result.Posts, nil
}
