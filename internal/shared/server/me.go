package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobfit-backend/internal/shared/server/middleware"
	"jobfit-backend/internal/shared/server/respond"
	"jobfit-backend/internal/usage"
	"jobfit-backend/internal/users"
)

type meHandler struct {
	users users.Store
}

// registerMeRoutes attaches /me. With a user store, the first call provisions
// the caller's record from the verified token and the reply carries their quota.
func registerMeRoutes(rg *gin.RouterGroup, store users.Store) {
	h := meHandler{users: store}
	rg.GET("/me", h.get)
}

func (h meHandler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized", "missing or invalid token")
		return
	}
	email := middleware.UserEmailFromContext(c)
	name := middleware.UserNameFromContext(c)

	response := gin.H{
		"userId": userID,
	}
	if email != "" {
		response["email"] = email
	}
	if name != "" {
		response["name"] = name
	}

	if h.users != nil {
		ctx := c.Request.Context()
		if err := h.users.Upsert(ctx, users.User{ID: userID, Email: email, Name: name}); err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to load profile", "")
			return
		}
		user, err := h.users.GetByID(ctx, userID)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to load profile", "")
			return
		}
		response["plan"] = user.Plan
		response["creditsUsed"] = user.CreditsUsed
		response["limit"] = usage.Ceiling(user.Plan)
	}

	respond.JSON(c, http.StatusOK, response)
}
