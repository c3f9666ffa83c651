package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/timmy/pitchtrack/internal/storage"
)

// allowedVideoExts are the container formats accepted for upload.
var allowedVideoExts = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
}

// VideoHandler handles video object upload and removal. Uploaded videos are
// referenced in detection requests via storage:// locators.
type VideoHandler struct {
	store storage.ObjectStorage
}

// NewVideoHandler creates a new video handler.
// Parameters:
//   - store: object storage backing the video bucket.
// Returns:
//   - *VideoHandler: initialized handler.
func NewVideoHandler(store storage.ObjectStorage) *VideoHandler {
	return &VideoHandler{store: store}
}

// Upload handles POST /api/videos.
// Parameters:
//   - c: Gin request context carrying a multipart "file" field.
// Returns: none (writes JSON response).
func (h *VideoHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Multipart field 'file' is required",
		})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedVideoExts[ext] {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unsupported video format: " + ext,
		})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := "videos/" + uuid.NewString() + ext
	if err := h.store.Upload(c.Request.Context(), key, file, header.Size, contentType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Upload failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"key":     key,
		"locator": "storage://" + key,
		"url":     h.store.GetURL(key),
	})
}

// Delete handles DELETE /api/videos/*key.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *VideoHandler) Delete(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Object key is required",
		})
		return
	}

	exists, err := h.store.Exists(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Existence check failed: " + err.Error(),
		})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Object not found",
		})
		return
	}

	if err := h.store.Delete(c.Request.Context(), key); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Delete failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deleted": key,
	})
}
