package usage

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobfit-backend/internal/shared/server/middleware"
	"jobfit-backend/internal/shared/server/respond"
	"jobfit-backend/internal/users"
)

// Handler exposes usage endpoints.
type Handler struct {
	Enforcer *Enforcer
}

// NewHandler constructs a Handler.
func NewHandler(enforcer *Enforcer) *Handler {
	return &Handler{Enforcer: enforcer}
}

// RegisterRoutes attaches usage routes to a group that already requires a user.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/usage", h.getUsage)
}

func (h *Handler) getUsage(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	u, err := h.Enforcer.Snapshot(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "User not found", "")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			respond.Error(c, http.StatusRequestTimeout, "timeout", "Request canceled", "")
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to fetch usage", "")
		}
		return
	}
	respond.JSON(c, http.StatusOK, u)
}
