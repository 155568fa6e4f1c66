package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sice-api/pkg/response"
)

type photoOpener interface {
	OpenPhoto(ctx context.Context, token string) (io.ReadCloser, string, error)
}

// FileHandler serves stored files behind signed URLs.
type FileHandler struct {
	photos photoOpener
}

func NewFileHandler(photos photoOpener) *FileHandler {
	return &FileHandler{photos: photos}
}

// Photo godoc
// @Summary Download a profile photo
// @Description Public; the signed token in the path authorises the download until it expires.
// @Tags Files
// @Produce image/jpeg,image/png,image/gif
// @Param token path string true "Signed photo token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/photos/{token} [get]
func (h *FileHandler) Photo(c *gin.Context) {
	file, contentType, err := h.photos.OpenPhoto(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Cache-Control", "private, max-age=300")
	c.DataFromReader(http.StatusOK, -1, contentType, file, nil)
}
