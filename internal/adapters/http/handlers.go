package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/songlist/editor/internal/domain/entities"
	"github.com/songlist/editor/internal/infrastructure/logger"
	"github.com/songlist/editor/internal/ports"
)

// SongsHandler serves the song document
type SongsHandler struct {
	documentService ports.DocumentService
	logger          *logger.Logger
}

// NewSongsHandler creates a new songs handler
func NewSongsHandler(documentService ports.DocumentService, logger *logger.Logger) *SongsHandler {
	return &SongsHandler{
		documentService: documentService,
		logger:          logger,
	}
}

// GetSongs returns the whole stored document
//
// @Summary Get the song document
// @Tags Songs
// @Produce json
// @Success 200 {object} entities.Document
// @Router /api/songs [get]
func (h *SongsHandler) GetSongs(c echo.Context) error {
	doc := h.documentService.Get(c.Request().Context())
	return c.JSONBlob(http.StatusOK, doc)
}

// PutSongs overwrites the stored document with the request body
//
// @Summary Replace the song document
// @Tags Songs
// @Accept json
// @Produce json
// @Param document body entities.Document true "Document to store"
// @Success 200 {object} entities.Ack
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/songs [put]
func (h *SongsHandler) PutSongs(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read request body")
	}

	if err := h.documentService.Put(c.Request().Context(), body); err != nil {
		if errors.Is(err, entities.ErrInvalidDocument) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		h.logger.WithRequestID(c.Response().Header().Get(echo.HeaderXRequestID)).Errorw("Save songs failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, entities.Ack{OK: true})
}
