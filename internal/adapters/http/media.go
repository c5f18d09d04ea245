package http

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chat/internal/adapters/blob"
)

type mediaHandlers struct {
	audio *blob.AudioStore
}

func (h *mediaHandlers) serveAudio(c *gin.Context) {
	data, ctype, err := h.audio.Open(c.Param("name"))
	switch {
	case err == nil:
		c.Data(http.StatusOK, ctype, data)
	case errors.Is(err, blob.ErrBadName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, fs.ErrNotExist):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		log.Error().Err(err).Str("module", "adapters.http").Msg("open attachment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
