package generations

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"jobfit-backend/internal/shared/server/middleware"
	"jobfit-backend/internal/shared/server/respond"
)

// Handler serves the caller's generation history.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches history routes to a group that already requires a user.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/generations", h.list)
	rg.DELETE("/generations/:id", h.delete)
	rg.GET("/generations/:id/file", h.download)
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to list generations", "")
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"items": entries, "limit": limit, "offset": offset})
}

func (h *Handler) delete(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	err := h.Svc.Delete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeLookupError(c, err, "Failed to delete generation")
		return
	}
	respond.Success(c)
}

func (h *Handler) download(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	entry, reader, err := h.Svc.OpenDocument(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeLookupError(c, err, "Failed to load document")
		return
	}
	defer reader.Close()

	respond.Attachment(c, docxContentType, "optimized_"+entry.OriginalFileName, reader)
}

func writeLookupError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Generation not found", "")
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "Forbidden", "")
	case errors.Is(err, ErrNotArchived):
		respond.Error(c, http.StatusNotFound, "not_archived", "Document not archived", "")
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, "")
	}
}
