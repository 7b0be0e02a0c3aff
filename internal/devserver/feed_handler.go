package devserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// FeedHandler handles feed-related HTTP requests.
type FeedHandler struct {
	postRepository *PostRepository
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(postRepo *PostRepository) *FeedHandler {
	return &FeedHandler{postRepository: postRepo}
}

// RegisterFeedRoutes registers feed-related routes.
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
}

// GetFeed returns paginated feed posts
func (h *FeedHandler) GetFeed(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"posts": h.postRepository.List(page, limit),
		},
	})
}
