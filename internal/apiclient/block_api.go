package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/wayfarer-app/wayfarer-go/internal/models"
)

// BlockAPI defines the remote collaborator owning block relations.
type BlockAPI interface {
	Block(ctx context.Context, userID string) error
	Unblock(ctx context.Context, userID string) error
}

// UserAPI defines direct profile access.
type UserAPI interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
}

type httpBlockAPI struct {
	client *Client
}

// NewBlockAPI creates the HTTP implementation of BlockAPI.
func NewBlockAPI(client *Client) BlockAPI {
	return &httpBlockAPI{client: client}
}

func (a *httpBlockAPI) Block(ctx context.Context, userID string) error {
	return a.client.do(ctx, http.MethodPost, "/users/block/"+url.PathEscape(userID), nil, nil)
}

func (a *httpBlockAPI) Unblock(ctx context.Context, userID string) error {
	return a.client.do(ctx, http.MethodDelete, "/users/block/"+url.PathEscape(userID), nil, nil)
}

type httpUserAPI struct {
	client *Client
}

// NewUserAPI creates the HTTP implementation of UserAPI.
func NewUserAPI(client *Client) UserAPI {
	return &httpUserAPI{client: client}
}

func (a *httpUserAPI) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	if err := a.client.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID)+"/profile", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
