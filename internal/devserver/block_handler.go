package devserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// BlockHandler handles block/unblock and profile HTTP requests.
type BlockHandler struct {
	blockRepository *BlockRepository
	userRepository  *UserRepository
}

// NewBlockHandler creates a new BlockHandler.
func NewBlockHandler(blockRepo *BlockRepository, userRepo *UserRepository) *BlockHandler {
	return &BlockHandler{
		blockRepository: blockRepo,
		userRepository:  userRepo,
	}
}

// RegisterBlockRoutes registers block and profile routes.
func (h *BlockHandler) RegisterBlockRoutes(g *echo.Group) {
	g.POST("/users/block/:userId", h.BlockUser)
	g.DELETE("/users/block/:userId", h.UnblockUser)
	g.GET("/users/:id/profile", h.GetProfile)
}

// BlockUser records a block edge from the current user
func (h *BlockHandler) BlockUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	targetID := c.Param("userId")
	if targetID == currentUserID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot block yourself")
	}
	if _, ok := h.userRepository.Get(targetID); !ok {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	h.blockRepository.Block(currentUserID, targetID)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"status": "blocked"},
	})
}

// UnblockUser removes a block edge held by the current user
func (h *BlockHandler) UnblockUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	h.blockRepository.Unblock(currentUserID, c.Param("userId"))
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"status": "unblocked"},
	})
}

// GetProfile returns a profile with block flags relative to the viewer
func (h *BlockHandler) GetProfile(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	profile, ok := h.userRepository.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	profile.IsBlocked = h.blockRepository.IsBlocked(currentUserID, profile.ID)
	profile.IsBlockedBy = h.blockRepository.IsBlocked(profile.ID, currentUserID)

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    profile,
	})
}
