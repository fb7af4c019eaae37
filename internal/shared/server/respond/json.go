package respond

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobfit-backend/internal/shared/util"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// Success writes the {"success": true} acknowledgement.
func Success(c *gin.Context) {
	JSON(c, http.StatusOK, gin.H{"success": true})
}

// Attachment streams body as a download named fileName.
func Attachment(c *gin.Context, contentType, fileName string, body io.Reader) {
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", util.AttachmentName(fileName)))
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, body)
}
